package auth

import (
	"context"
	"strings"

	"github.com/baechuer/contacts-service/internal/domain"
)

// VerifyEmail consumes a verification token.
// Unknown tokens are not found; a second use of a token fails as already verified.
func (s *Service) VerifyEmail(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.ErrVerifyTokenNotFound()
	}

	u, err := s.users.GetByVerificationToken(ctx, token)
	if err != nil {
		if domain.Is(err, "user_not_found") {
			return domain.ErrVerifyTokenNotFound()
		}
		return err
	}
	if u.Verified {
		return domain.ErrAlreadyVerified()
	}

	if err := s.users.MarkVerified(ctx, u.ID, token); err != nil {
		return err
	}

	s.audit("email_verified", map[string]string{"user_id": u.ID})
	return nil
}

// ResendVerification rotates the token of an unverified identity and sends a new link.
// Unlike signup, a failed dispatch is reported to the caller.
func (s *Service) ResendVerification(ctx context.Context, email string) (string, error) {
	email = domain.NormalizeEmail(email)
	if email == "" {
		return "", domain.ErrMissingField("email")
	}

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	if u.Verified {
		return "", domain.ErrAlreadyVerified()
	}

	token := s.newToken()
	if err := s.users.SetVerificationToken(ctx, u.ID, token); err != nil {
		return "", err
	}
	u.VerificationToken = token

	if err := s.sendVerification(ctx, u); err != nil {
		return "", domain.ErrMailFailed(err)
	}

	s.audit("verify_email_resent", map[string]string{"user_id": u.ID})
	return token, nil
}

func (s *Service) VerificationURL(token string) string {
	return s.verifyEmailBaseURL + token
}

func (s *Service) sendVerification(ctx context.Context, u domain.User) error {
	return s.pub.PublishVerifyEmail(ctx, VerifyEmailEvent{
		UserID: u.ID,
		Email:  u.Email,
		URL:    s.VerificationURL(u.VerificationToken),
	})
}
