package auth

import (
	"context"

	"github.com/baechuer/contacts-service/internal/domain"
)

func (s *Service) UpdateSubscription(ctx context.Context, userID, raw string) (domain.User, error) {
	if raw == "" {
		return domain.User{}, domain.ErrMissingField("subscription")
	}
	sub, err := domain.ParseSubscription(raw)
	if err != nil {
		return domain.User{}, err
	}

	u, err := s.users.SetSubscription(ctx, userID, sub)
	if err != nil {
		return domain.User{}, err
	}

	s.audit("subscription_changed", map[string]string{
		"user_id":      userID,
		"subscription": string(sub),
	})
	return u, nil
}
