package bootstrap

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baechuer/contacts-service/internal/application/auth"
)

// inbox captures verification links instead of mailing them.
type inbox struct {
	mu   sync.Mutex
	urls []string
}

func (i *inbox) PublishVerifyEmail(_ context.Context, evt auth.VerifyEmailEvent) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.urls = append(i.urls, evt.URL)
	return nil
}

func (i *inbox) last(t *testing.T) string {
	t.Helper()
	i.mu.Lock()
	defer i.mu.Unlock()
	require.NotEmpty(t, i.urls, "no verification link captured")
	return i.urls[len(i.urls)-1]
}

type client struct {
	t     *testing.T
	base  string
	http  *http.Client
	token string
}

func (c *client) do(method, path string, body io.Reader, contentType string) (int, map[string]any) {
	c.t.Helper()
	req, err := http.NewRequest(method, c.base+path, body)
	require.NoError(c.t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()

	var out map[string]any
	// 204 and static files have no JSON body
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func (c *client) json(method, path string, body any) (int, map[string]any) {
	c.t.Helper()
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(c.t, err)
		rdr = bytes.NewReader(b)
	}
	return c.do(method, path, rdr, "application/json")
}

func TestEndToEnd_UserJourney(t *testing.T) {
	if testing.Short() {
		t.Skip("end-to-end test skipped in short mode")
	}

	cfg := memoryConfig(t)
	cfg.MailTransport = "rabbitmq"
	box := &inbox{}
	d := testDeps(cfg)
	d.NewPublisher = func(string, string) (auth.EventPublisher, error) { return box, nil }

	srv, cleanup, err := NewServerWithDeps(d)
	require.NoError(t, err)
	defer cleanup()

	ts := httptest.NewServer(srv.Handler)
	defer ts.Close()

	c := &client{t: t, base: ts.URL, http: &http.Client{Timeout: 10 * time.Second}}

	// signup
	code, body := c.json(http.MethodPost, "/api/users/signup", map[string]string{"email": "journey@example.com", "password": "secret123"})
	require.Equal(t, http.StatusCreated, code, body)

	// unverified identities may still log in
	code, body = c.json(http.MethodPost, "/api/users/login", map[string]string{"email": "journey@example.com", "password": "secret123"})
	require.Equal(t, http.StatusOK, code, body)
	c.token = body["token"].(string)

	// verify through the emailed link
	link := box.last(t)
	path := strings.TrimPrefix(link, cfg.VerifyEmailBaseURL)
	code, body = c.json(http.MethodGet, "/api/users/verify/"+path, nil)
	require.Equal(t, http.StatusOK, code, body)

	code, body = c.json(http.MethodPost, "/api/users/verify", map[string]string{"email": "journey@example.com"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "already_verified", body["error"].(map[string]any)["code"])

	// contacts
	code, body = c.json(http.MethodPost, "/api/contacts/", map[string]any{"name": "Bob", "email": "bob@example.com", "phone": "555-0100"})
	require.Equal(t, http.StatusCreated, code, body)
	id := body["id"].(string)

	code, body = c.json(http.MethodPatch, "/api/contacts/"+id+"/favorite", map[string]bool{"favorite": true})
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, true, body["favorite"])

	code, body = c.json(http.MethodGet, "/api/contacts/?favorite=true", nil)
	require.Equal(t, http.StatusOK, code, body)
	assert.EqualValues(t, 1, body["total"])

	// avatar upload, then fetch the stored file
	var img bytes.Buffer
	require.NoError(t, png.Encode(&img, image.NewRGBA(image.Rect(0, 0, 320, 240))))
	var form bytes.Buffer
	mw := multipart.NewWriter(&form)
	fw, err := mw.CreateFormFile("avatar", "me.png")
	require.NoError(t, err)
	_, err = fw.Write(img.Bytes())
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	code, body = c.do(http.MethodPatch, "/api/users/avatars", &form, mw.FormDataContentType())
	require.Equal(t, http.StatusOK, code, body)
	avatarURL := body["avatarURL"].(string)
	assert.True(t, strings.HasPrefix(avatarURL, "/avatars/"), avatarURL)

	resp, err := http.Get(ts.URL + avatarURL)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	stored, err := png.DecodeConfig(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, 250, stored.Width)
	assert.Equal(t, 250, stored.Height)

	// logout, then the bearer token still verifies until it expires
	code, _ = c.json(http.MethodGet, "/api/users/logout", nil)
	assert.Equal(t, http.StatusNoContent, code)

	code, body = c.json(http.MethodGet, "/api/users/current", nil)
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, avatarURL, body["avatarURL"])
}
