package email

import (
	"context"
	"fmt"

	"github.com/wneessen/go-mail"

	"github.com/baechuer/contacts-service/internal/application/auth"
)

const verificationSubject = "Verify your email address"

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
	// TLS: "mandatory", "opportunistic" or "none"
	TLSPolicy string
}

type dialer interface {
	DialAndSendWithContext(ctx context.Context, msgs ...*mail.Msg) error
}

// SMTPSender delivers verification mails directly over SMTP.
// It satisfies auth.EventPublisher for MAIL_TRANSPORT=smtp and is the
// delivery backend of the mail worker.
type SMTPSender struct {
	client   dialer
	from     string
	fromName string
}

func NewSMTPSender(cfg SMTPConfig) (*SMTPSender, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("SMTP_HOST is required")
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("SMTP_FROM is required")
	}

	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTLSPolicy(tlsPolicy(cfg.TLSPolicy)),
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	c, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}

	return &SMTPSender{client: c, from: cfg.From, fromName: cfg.FromName}, nil
}

func tlsPolicy(s string) mail.TLSPolicy {
	switch s {
	case "mandatory":
		return mail.TLSMandatory
	case "none":
		return mail.NoTLS
	default:
		return mail.TLSOpportunistic
	}
}

func (s *SMTPSender) PublishVerifyEmail(ctx context.Context, evt auth.VerifyEmailEvent) error {
	return s.SendVerification(ctx, evt.Email, evt.URL)
}

func (s *SMTPSender) SendVerification(ctx context.Context, to, url string) error {
	msg, err := s.buildVerification(to, url)
	if err != nil {
		return err
	}
	if err := s.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("failed to send email via SMTP: %w", err)
	}
	return nil
}

func (s *SMTPSender) buildVerification(to, url string) (*mail.Msg, error) {
	html, text, err := RenderVerification(to, url)
	if err != nil {
		return nil, err
	}

	msg := mail.NewMsg()
	if s.fromName != "" {
		err = msg.FromFormat(s.fromName, s.from)
	} else {
		err = msg.From(s.from)
	}
	if err != nil {
		return nil, fmt.Errorf("invalid from address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("invalid recipient: %w", err)
	}
	msg.Subject(verificationSubject)
	msg.SetBodyString(mail.TypeTextPlain, text)
	msg.AddAlternativeString(mail.TypeTextHTML, html)
	return msg, nil
}
