package auth

import "context"

// Logout clears the stored session token. Issued JWTs stay valid until expiry.
func (s *Service) Logout(ctx context.Context, userID string) error {
	if err := s.users.SetSessionToken(ctx, userID, ""); err != nil {
		return err
	}
	s.audit("user_logged_out", map[string]string{"user_id": userID})
	return nil
}
