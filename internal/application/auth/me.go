package auth

import (
	"context"

	"github.com/baechuer/contacts-service/internal/domain"
)

func (s *Service) GetUserByID(ctx context.Context, userID string) (domain.User, error) {
	return s.users.GetByID(ctx, userID)
}
