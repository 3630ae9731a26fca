package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/baechuer/contacts-service/internal/application/auth"
	"github.com/baechuer/contacts-service/internal/domain"
)

// ---- fakes ----

type fakeVerifier struct {
	claims auth.TokenClaims
	err    error
	calls  int
	gotTok string
}

func (f *fakeVerifier) VerifyAccessToken(token string) (auth.TokenClaims, error) {
	f.calls++
	f.gotTok = token
	return f.claims, f.err
}

type fakeUsers struct {
	user  domain.User
	err   error
	calls int
	gotID string
}

func (u *fakeUsers) GetByID(_ context.Context, id string) (domain.User, error) {
	u.calls++
	u.gotID = id
	return u.user, u.err
}

type writeErrRecorder struct {
	calls int
	last  error
}

func (w *writeErrRecorder) fn(_ http.ResponseWriter, _ *http.Request, err error) {
	w.calls++
	w.last = err
}

// next handler checks context injection
type nextRecorder struct {
	calls     int
	gotUID    string
	gotAvatar string
}

func (n *nextRecorder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	n.calls++
	n.gotUID, _ = UserIDFromContext(r.Context())
	n.gotAvatar = AvatarURLFromContext(r.Context())
	w.WriteHeader(http.StatusOK)
}

func runAuthMW(t *testing.T, verifier TokenVerifier, users UserReader, req *http.Request) (*writeErrRecorder, *nextRecorder) {
	t.Helper()

	we := &writeErrRecorder{}
	nx := &nextRecorder{}

	Auth(verifier, users, we.fn)(nx).ServeHTTP(httptest.NewRecorder(), req)
	return we, nx
}

func bearerReq(h string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/users/current", nil)
	if h != "" {
		req.Header.Set("Authorization", h)
	}
	return req
}

// ---- tests ----

func TestAuth_MissingAuthorizationHeader_ReturnsTokenMissing(t *testing.T) {
	v := &fakeVerifier{}
	we, nx := runAuthMW(t, v, &fakeUsers{}, bearerReq(""))

	if !domain.Is(we.last, "token_missing") {
		t.Fatalf("expected token_missing, got %v", we.last)
	}
	if nx.calls != 0 || v.calls != 0 {
		t.Fatalf("next/verifier must not run")
	}
}

func TestAuth_WrongScheme_ReturnsTokenInvalid(t *testing.T) {
	for _, h := range []string{"Basic abc", "Bearer", "Token x"} {
		we, nx := runAuthMW(t, &fakeVerifier{}, &fakeUsers{}, bearerReq(h))
		if !domain.Is(we.last, "token_invalid") {
			t.Fatalf("%q: expected token_invalid, got %v", h, we.last)
		}
		if nx.calls != 0 {
			t.Fatalf("%q: next must not run", h)
		}
	}
}

func TestAuth_EmptyBearerValue_ReturnsTokenMissing(t *testing.T) {
	we, _ := runAuthMW(t, &fakeVerifier{}, &fakeUsers{}, bearerReq("Bearer    "))
	if !domain.Is(we.last, "token_missing") {
		t.Fatalf("expected token_missing, got %v", we.last)
	}
}

func TestAuth_VerifierError_Propagates(t *testing.T) {
	v := &fakeVerifier{err: domain.ErrTokenExpired()}
	users := &fakeUsers{}
	we, nx := runAuthMW(t, v, users, bearerReq("Bearer tok"))

	if !domain.Is(we.last, "token_expired") {
		t.Fatalf("expected token_expired, got %v", we.last)
	}
	if v.gotTok != "tok" {
		t.Fatalf("unexpected token: %q", v.gotTok)
	}
	if users.calls != 0 || nx.calls != 0 {
		t.Fatalf("store/next must not run on bad token")
	}
}

func TestAuth_EmptySubject_ReturnsTokenInvalid(t *testing.T) {
	we, _ := runAuthMW(t, &fakeVerifier{claims: auth.TokenClaims{UserID: "  "}}, &fakeUsers{}, bearerReq("Bearer tok"))
	if !domain.Is(we.last, "token_invalid") {
		t.Fatalf("expected token_invalid, got %v", we.last)
	}
}

func TestAuth_DeletedIdentity_ReturnsIdentityNotFound(t *testing.T) {
	users := &fakeUsers{err: domain.ErrUserNotFound()}
	we, nx := runAuthMW(t, &fakeVerifier{claims: auth.TokenClaims{UserID: "u1"}}, users, bearerReq("Bearer tok"))

	if !domain.Is(we.last, "identity_not_found") {
		t.Fatalf("expected identity_not_found, got %v", we.last)
	}
	if domain.KindOf(we.last) != domain.KindAuth {
		t.Fatalf("expected auth kind")
	}
	if nx.calls != 0 {
		t.Fatalf("next must not run")
	}
}

func TestAuth_StoreFailure_Propagates(t *testing.T) {
	storeErr := domain.ErrDBUnavailable(errors.New("down"))
	we, _ := runAuthMW(t, &fakeVerifier{claims: auth.TokenClaims{UserID: "u1"}}, &fakeUsers{err: storeErr}, bearerReq("Bearer tok"))

	if !domain.Is(we.last, "db_unavailable") {
		t.Fatalf("expected db_unavailable, got %v", we.last)
	}
}

func TestAuth_Success_InjectsIdentity(t *testing.T) {
	users := &fakeUsers{user: domain.User{ID: "u1", AvatarURL: "/avatars/u1.jpg", PasswordHash: "secret"}}
	we, nx := runAuthMW(t, &fakeVerifier{claims: auth.TokenClaims{UserID: "u1"}}, users, bearerReq("bearer tok"))

	if we.calls != 0 {
		t.Fatalf("unexpected error: %v", we.last)
	}
	if nx.calls != 1 || nx.gotUID != "u1" || nx.gotAvatar != "/avatars/u1.jpg" {
		t.Fatalf("unexpected context: %+v", nx)
	}
	if users.gotID != "u1" {
		t.Fatalf("store queried with %q", users.gotID)
	}
}

func TestBearerToken(t *testing.T) {
	cases := []struct {
		header string
		tok    string
		code   string
	}{
		{"Bearer abc", "abc", ""},
		{"bearer  abc ", "abc", ""},
		{"", "", "token_missing"},
		{"Bearer ", "", "token_missing"},
		{"Bearer", "", "token_invalid"},
		{"Basic dXNlcjpwdw==", "", "token_invalid"},
	}
	for _, c := range cases {
		tok, err := bearerToken(c.header)
		if c.code == "" {
			if err != nil || tok != c.tok {
				t.Fatalf("%q: got (%q, %v), want %q", c.header, tok, err, c.tok)
			}
			continue
		}
		if !domain.Is(err, c.code) {
			t.Fatalf("%q: expected %s, got %v", c.header, c.code, err)
		}
	}
}
