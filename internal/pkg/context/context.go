// Package context holds the request-scoped values shared by the transport
// layer and the logger.
package context

import "context"

type key int

const (
	requestIDKey key = iota
	userIDKey
	avatarURLKey
)

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

func GetRequestID(ctx context.Context) string {
	return stringValue(ctx, requestIDKey)
}

// WithIdentity records the authenticated user for the rest of the request.
func WithIdentity(ctx context.Context, userID, avatarURL string) context.Context {
	ctx = context.WithValue(ctx, userIDKey, userID)
	return context.WithValue(ctx, avatarURLKey, avatarURL)
}

func GetUserID(ctx context.Context) string {
	return stringValue(ctx, userIDKey)
}

func GetAvatarURL(ctx context.Context) string {
	return stringValue(ctx, avatarURLKey)
}

func stringValue(ctx context.Context, k key) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(k).(string)
	return v
}
