package http_handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/baechuer/contacts-service/internal/application/auth"
	"github.com/baechuer/contacts-service/internal/application/contacts"
	"github.com/baechuer/contacts-service/internal/infrastructure/avatar"
	"github.com/baechuer/contacts-service/internal/infrastructure/memory"
	"github.com/baechuer/contacts-service/internal/infrastructure/security"
	"github.com/baechuer/contacts-service/internal/transport/http/middleware"
	"github.com/baechuer/contacts-service/internal/transport/http/validate"
)

const testVerifyBase = "http://localhost:3000/api/users/verify/"

type capturePublisher struct {
	mu     sync.Mutex
	events []auth.VerifyEmailEvent
	err    error
}

func (p *capturePublisher) PublishVerifyEmail(_ context.Context, evt auth.VerifyEmailEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, evt)
	return nil
}

// lastToken returns the verification token of the most recent message.
func (p *capturePublisher) lastToken(t *testing.T) string {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.events) == 0 {
		t.Fatalf("no verification message published")
	}
	return strings.TrimPrefix(p.events[len(p.events)-1].URL, testVerifyBase)
}

type testEnv struct {
	svc       *auth.Service
	users     *memory.UserRepo
	pub       *capturePublisher
	publicDir string
	h         http.Handler
}

// newTestEnv mounts the handlers on a bare chi router. Authenticated routes
// read the caller from the X-Test-User header instead of a bearer token.
func newTestEnv(t *testing.T, maxAvatarBytes int64) *testEnv {
	t.Helper()

	dir := t.TempDir()
	publicDir := filepath.Join(dir, "public")
	store, err := avatar.NewLocalStorage(filepath.Join(dir, "tmp"), publicDir, "/avatars")
	if err != nil {
		t.Fatalf("local storage: %v", err)
	}

	users := memory.NewUserRepo()
	pub := &capturePublisher{}
	svc := auth.NewService(
		users,
		security.NewBcryptHasher(bcrypt.MinCost),
		security.NewJWTSigner("test-secret", "contacts-service"),
		pub,
		avatar.NewProcessor(),
		store,
		auth.Config{VerifyEmailBaseURL: testVerifyBase},
	)

	v := validate.New()
	ah := NewAuthHandler(svc, v, maxAvatarBytes)
	ch := NewContactsHandler(contacts.New(memory.NewContactRepo(), nil), v)

	fakeAuth := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if uid := r.Header.Get("X-Test-User"); uid != "" {
				r = r.WithContext(middleware.WithUser(r.Context(), uid, ""))
			}
			next.ServeHTTP(w, r)
		})
	}

	r := chi.NewRouter()
	r.Route("/api/users", func(r chi.Router) {
		r.Post("/signup", ah.Signup)
		r.Post("/login", ah.Login)
		r.Get("/verify/{verificationToken}", ah.VerifyEmail)
		r.Post("/verify", ah.ResendVerification)
		r.With(fakeAuth).Get("/current", ah.Current)
		r.With(fakeAuth).Get("/logout", ah.Logout)
		r.With(fakeAuth).Patch("/", ah.UpdateSubscription)
		r.With(fakeAuth).Patch("/avatars", ah.UpdateAvatar)
	})
	r.Route("/api/contacts", func(r chi.Router) {
		r.Use(fakeAuth)
		r.Get("/", ch.List)
		r.Post("/", ch.Create)
		r.Get("/{contactId}", ch.Get)
		r.Put("/{contactId}", ch.Update)
		r.Delete("/{contactId}", ch.Delete)
		r.Patch("/{contactId}/favorite", ch.UpdateFavorite)
	})

	return &testEnv{svc: svc, users: users, pub: pub, publicDir: publicDir, h: r}
}

func (e *testEnv) do(t *testing.T, method, path, body, uid string) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if uid != "" {
		req.Header.Set("X-Test-User", uid)
	}
	rr := httptest.NewRecorder()
	e.h.ServeHTTP(rr, req)
	return rr
}

// signup registers an identity and returns its id.
func (e *testEnv) signup(t *testing.T, email, password string) string {
	t.Helper()
	rr := e.do(t, http.MethodPost, "/api/users/signup", `{"email":"`+email+`","password":"`+password+`"}`, "")
	if rr.Code != http.StatusCreated {
		t.Fatalf("signup: status=%d body=%s", rr.Code, rr.Body.String())
	}
	u, err := e.users.GetByEmail(context.Background(), email)
	if err != nil {
		t.Fatalf("signup lookup: %v", err)
	}
	return u.ID
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode body %q: %v", rr.Body.String(), err)
	}
	return v
}

func errCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	body := decode[struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}](t, rr)
	return body.Error.Code
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func multipartBody(t *testing.T, field, filename string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	if _, err := fw.Write(data); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	return &buf, mw.FormDataContentType()
}
