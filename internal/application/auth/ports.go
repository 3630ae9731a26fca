package auth

import (
	"context"
	"time"

	"github.com/baechuer/contacts-service/internal/domain"
)

/*
UserRepo
--------
Persistence port for identities (the credential store).
Only describes WHAT the auth service needs, not HOW it's stored.
Lookups return domain.ErrUserNotFound when nothing matches.
*/
type UserRepo interface {
	GetByEmail(ctx context.Context, email string) (domain.User, error)
	GetByID(ctx context.Context, id string) (domain.User, error)
	GetByVerificationToken(ctx context.Context, token string) (domain.User, error)

	// Create fails with domain.ErrEmailAlreadyExists on a duplicate email.
	Create(ctx context.Context, u domain.User) (domain.User, error)

	// Single-document updates needed by business flows
	SetSessionToken(ctx context.Context, userID, token string) error
	SetAvatarURL(ctx context.Context, userID, avatarURL string) error
	SetSubscription(ctx context.Context, userID string, sub domain.Subscription) (domain.User, error)

	// SetVerificationToken only touches unverified identities.
	SetVerificationToken(ctx context.Context, userID, token string) error
	// MarkVerified flips verified and clears the token in one write, only
	// while token is still the identity's current verification token.
	// Returns domain.ErrAlreadyVerified if the identity was verified
	// concurrently, domain.ErrVerifyTokenNotFound if the token was rotated.
	MarkVerified(ctx context.Context, userID, token string) error
}

/*
PasswordHasher
--------------
Abstracts bcrypt.
*/
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash string, password string) error // nil if match
}

/*
TokenSigner
-----------
Issues and verifies bearer tokens (JWT).
Used by service + auth middleware.
*/
type TokenClaims struct {
	UserID    string
	Email     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type TokenSigner interface {
	SignAccessToken(claims TokenClaims, ttl time.Duration) (string, error)
	VerifyAccessToken(token string) (TokenClaims, error)
}

/*
EventPublisher
--------------
Dispatches the verification message. Implemented by the SMTP sender,
the RabbitMQ publisher (mail worker sends) and a logging no-op.
*/
type EventPublisher interface {
	PublishVerifyEmail(ctx context.Context, evt VerifyEmailEvent) error
}

type VerifyEmailEvent struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	URL    string `json:"url"`
}

/*
Avatar ports
------------
ImageProcessor normalizes uploads to a square image.
AvatarStorage relocates the processed file into public storage and
returns the reference to persist.
*/
type ProcessedImage struct {
	Data        []byte
	Ext         string // without dot: "jpg" | "png"
	ContentType string
}

type ImageProcessor interface {
	Process(data []byte, size int) (ProcessedImage, error)
}

type AvatarStorage interface {
	Save(ctx context.Context, filename string, img ProcessedImage) (url string, err error)
}
