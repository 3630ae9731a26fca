package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/baechuer/contacts-service/internal/application/auth"
	"github.com/baechuer/contacts-service/internal/domain"
)

type TokenVerifier interface {
	VerifyAccessToken(token string) (auth.TokenClaims, error)
}

// UserReader resolves the identity a token names.
type UserReader interface {
	GetByID(ctx context.Context, id string) (domain.User, error)
}

type WriteErrFunc func(http.ResponseWriter, *http.Request, error)

// Auth is the gate in front of every private route. It requires
// "Authorization: Bearer <jwt>", checks the token and loads the user it
// names; handlers then read the user id and avatar url from the context.
func Auth(verifier TokenVerifier, users UserReader, writeErr WriteErrFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, err := identify(r, verifier, users)
			if err != nil {
				writeErr(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u.ID, u.AvatarURL)))
		})
	}
}

func identify(r *http.Request, verifier TokenVerifier, users UserReader) (domain.User, error) {
	raw, err := bearerToken(r.Header.Get("Authorization"))
	if err != nil {
		return domain.User{}, err
	}

	claims, err := verifier.VerifyAccessToken(raw)
	if err != nil {
		return domain.User{}, err
	}
	if strings.TrimSpace(claims.UserID) == "" {
		return domain.User{}, domain.ErrTokenInvalid()
	}

	u, err := users.GetByID(r.Context(), claims.UserID)
	if domain.Is(err, "user_not_found") {
		return domain.User{}, domain.ErrIdentityNotFound()
	}
	return u, err
}

// bearerToken accepts the scheme in any case. A header with the scheme but
// no token counts as missing.
func bearerToken(header string) (string, error) {
	if header == "" {
		return "", domain.ErrTokenMissing()
	}
	scheme, tok, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", domain.ErrTokenInvalid()
	}
	if tok = strings.TrimSpace(tok); tok == "" {
		return "", domain.ErrTokenMissing()
	}
	return tok, nil
}
