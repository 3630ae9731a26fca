package auth

import (
	"context"

	"github.com/baechuer/contacts-service/internal/domain"
)

// Login checks the credentials and issues a bearer token. The token is also
// stored on the user record as the current session token.
func (s *Service) Login(ctx context.Context, email, password string) (res LoginResult, err error) {
	email = domain.NormalizeEmail(email)
	defer func() {
		if err != nil {
			s.audit("login_failed", map[string]string{"email": email, "code": domain.CodeOf(err)})
		}
	}()

	u, err := s.authenticate(ctx, email, password)
	if err != nil {
		return LoginResult{}, err
	}

	claims := TokenClaims{UserID: u.ID, Email: u.Email}
	tok, err := s.signer.SignAccessToken(claims, s.accessTTL)
	if err != nil {
		return LoginResult{}, domain.ErrTokenSignFailed(err)
	}
	if err = s.users.SetSessionToken(ctx, u.ID, tok); err != nil {
		return LoginResult{}, err
	}
	u.Token = tok

	s.audit("user_logged_in", map[string]string{"user_id": u.ID})
	return LoginResult{User: u, Token: tok, ExpiresIn: int64(s.accessTTL.Seconds())}, nil
}

// authenticate maps unknown email and wrong password to the same error.
func (s *Service) authenticate(ctx context.Context, email, password string) (domain.User, error) {
	if email == "" || password == "" {
		return domain.User{}, domain.ErrInvalidCredentials()
	}

	u, err := s.users.GetByEmail(ctx, email)
	switch {
	case domain.Is(err, "user_not_found"):
		return domain.User{}, domain.ErrInvalidCredentials()
	case err != nil:
		return domain.User{}, err
	}

	if s.hasher.Compare(u.PasswordHash, password) != nil {
		return domain.User{}, domain.ErrInvalidCredentials()
	}
	return u, nil
}
