package auth

import (
	"context"

	"github.com/baechuer/contacts-service/internal/domain"
)

// Register creates an unverified identity and dispatches the verification link.
// A failed dispatch does not undo the signup; the resend flow recovers it.
func (s *Service) Register(ctx context.Context, email, password string) (RegisterResult, error) {
	email = domain.NormalizeEmail(email)
	if email == "" {
		return RegisterResult{}, domain.ErrMissingField("email")
	}
	if password == "" {
		return RegisterResult{}, domain.ErrMissingField("password")
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return RegisterResult{}, domain.ErrHashFailed(err)
	}

	u := domain.NewUser(s.newID(), email, hash, s.newToken(), s.now())

	created, err := s.users.Create(ctx, u)
	if err != nil {
		return RegisterResult{}, err
	}

	s.audit("user_registered", map[string]string{"user_id": created.ID})

	if err := s.sendVerification(ctx, created); err != nil {
		s.audit("verify_email_dispatch_failed", map[string]string{
			"user_id": created.ID,
			"error":   err.Error(),
		})
	}

	return RegisterResult{User: created}, nil
}
