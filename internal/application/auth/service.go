package auth

import (
	"time"

	"github.com/google/uuid"

	"github.com/baechuer/contacts-service/internal/domain"
)

type Service struct {
	users   UserRepo
	hasher  PasswordHasher
	signer  TokenSigner
	pub     EventPublisher
	images  ImageProcessor
	avatars AvatarStorage

	accessTTL time.Duration
	audit     func(action string, fields map[string]string)

	// verification link = verifyEmailBaseURL + token
	verifyEmailBaseURL string
	avatarSize         int

	now      func() time.Time
	newID    func() string
	newToken func() string
}

type Config struct {
	AccessTTL          time.Duration
	VerifyEmailBaseURL string
	AvatarSize         int
}

func NewService(
	users UserRepo,
	hasher PasswordHasher,
	signer TokenSigner,
	pub EventPublisher,
	images ImageProcessor,
	avatars AvatarStorage,
	cfg Config,
) *Service {
	accessTTL := cfg.AccessTTL
	if accessTTL <= 0 {
		accessTTL = 12 * time.Hour
	}
	size := cfg.AvatarSize
	if size <= 0 {
		size = 250
	}
	return &Service{
		users:   users,
		hasher:  hasher,
		signer:  signer,
		pub:     pub,
		images:  images,
		avatars: avatars,
		audit:   func(string, map[string]string) {},

		accessTTL:          accessTTL,
		verifyEmailBaseURL: cfg.VerifyEmailBaseURL,
		avatarSize:         size,

		now:      time.Now,
		newID:    uuid.NewString,
		newToken: uuid.NewString,
	}
}

type RegisterResult struct {
	User domain.User
}

type LoginResult struct {
	User      domain.User
	Token     string
	ExpiresIn int64 // seconds
}

func (s *Service) WithAudit(fn func(action string, fields map[string]string)) *Service {
	if fn != nil {
		s.audit = fn
	}
	return s
}

// AccessTTL is exposed for handlers that report token lifetime.
func (s *Service) AccessTTL() time.Duration { return s.accessTTL }
