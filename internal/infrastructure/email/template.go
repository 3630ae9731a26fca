package email

import (
	"fmt"
	"html/template"
	"strings"
)

var verificationTmpl = template.Must(template.New("verification").Parse(`<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<title>Verify your email</title>
</head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
	<div style="max-width: 600px; margin: 0 auto; padding: 20px;">
		<h1>Verify your email address</h1>
		<p>Thanks for signing up for Contacts. Confirm {{.Email}} by clicking the link below:</p>
		<p style="margin: 30px 0;"><a href="{{.URL}}">Verify email</a></p>
		<p>Or paste this link into your browser:</p>
		<p style="word-break: break-all; color: #666;">{{.URL}}</p>
		<p style="color: #999; font-size: 12px;">If you didn't create an account, ignore this email.</p>
	</div>
</body>
</html>`))

// RenderVerification returns the HTML and plain-text bodies of the verification mail.
func RenderVerification(email, url string) (html, text string, err error) {
	var buf strings.Builder
	data := struct{ Email, URL string }{Email: email, URL: url}
	if err := verificationTmpl.Execute(&buf, data); err != nil {
		return "", "", fmt.Errorf("render verification template: %w", err)
	}
	text = fmt.Sprintf("Confirm %s by opening this link:\n\n%s\n", email, url)
	return buf.String(), text, nil
}
