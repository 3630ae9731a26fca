package middleware

import (
	"context"

	appCtx "github.com/baechuer/contacts-service/internal/pkg/context"
)

// WithUser attaches the identity projection handlers read back.
func WithUser(ctx context.Context, userID, avatarURL string) context.Context {
	return appCtx.WithIdentity(ctx, userID, avatarURL)
}

func UserIDFromContext(ctx context.Context) (string, bool) {
	id := appCtx.GetUserID(ctx)
	return id, id != ""
}

func AvatarURLFromContext(ctx context.Context) string {
	return appCtx.GetAvatarURL(ctx)
}
