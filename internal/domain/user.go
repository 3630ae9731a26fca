package domain

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
	"time"
)

type Subscription string

const (
	SubscriptionStarter  Subscription = "starter"
	SubscriptionPro      Subscription = "pro"
	SubscriptionBusiness Subscription = "business"
)

func ParseSubscription(s string) (Subscription, error) {
	switch v := Subscription(strings.ToLower(strings.TrimSpace(s))); v {
	case SubscriptionStarter, SubscriptionPro, SubscriptionBusiness:
		return v, nil
	default:
		return "", ErrInvalidSubscription(s)
	}
}

// User is a registered identity.
// VerificationToken is non-empty exactly while Verified is false.
type User struct {
	ID                string
	Email             string
	PasswordHash      string
	Subscription      Subscription
	Token             string // last issued session token, cleared on logout
	AvatarURL         string
	Verified          bool
	VerificationToken string
	CreatedAt         time.Time
}

// NewUser builds an unverified identity with the default subscription and a gravatar avatar.
func NewUser(id, email, passwordHash, verificationToken string, now time.Time) User {
	email = NormalizeEmail(email)
	return User{
		ID:                id,
		Email:             email,
		PasswordHash:      passwordHash,
		Subscription:      SubscriptionStarter,
		AvatarURL:         GravatarURL(email),
		Verified:          false,
		VerificationToken: verificationToken,
		CreatedAt:         now.UTC(),
	}
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// GravatarURL returns the "mystery person" fallback image for unknown addresses.
func GravatarURL(email string) string {
	sum := md5.Sum([]byte(NormalizeEmail(email)))
	return "https://www.gravatar.com/avatar/" + hex.EncodeToString(sum[:]) + "?s=200&r=pg&d=mp"
}
