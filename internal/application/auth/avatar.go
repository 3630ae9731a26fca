package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/baechuer/contacts-service/internal/domain"
)

// UpdateAvatar resizes the upload, stores it under {userID}_{timestamp}.{ext}
// and only then persists the new reference. A storage failure leaves the
// identity untouched.
func (s *Service) UpdateAvatar(ctx context.Context, userID string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", domain.ErrNoFile()
	}

	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return "", err
	}

	img, err := s.images.Process(data, s.avatarSize)
	if err != nil {
		var de *domain.Error
		if errors.As(err, &de) {
			return "", err
		}
		return "", domain.ErrImageProcessingFailed(err)
	}

	filename := fmt.Sprintf("%s_%d.%s", userID, s.now().UnixNano(), img.Ext)

	url, err := s.avatars.Save(ctx, filename, img)
	if err != nil {
		var de *domain.Error
		if errors.As(err, &de) {
			return "", err
		}
		return "", domain.ErrStorageFailed(err)
	}

	if err := s.users.SetAvatarURL(ctx, userID, url); err != nil {
		return "", err
	}

	s.audit("avatar_updated", map[string]string{"user_id": userID, "avatar_url": url})
	return url, nil
}
