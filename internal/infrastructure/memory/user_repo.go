package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/baechuer/contacts-service/internal/domain"
)

// UserRepo keeps users in process memory. It backs DB_DRIVER=memory and
// the handler tests; uniqueness rules match the database adapters.
type UserRepo struct {
	mu      sync.RWMutex
	users   map[string]domain.User
	emails  map[string]string // normalized email -> id
	pending map[string]string // verification token -> id
}

func NewUserRepo() *UserRepo {
	return &UserRepo{
		users:   map[string]domain.User{},
		emails:  map[string]string{},
		pending: map[string]string{},
	}
}

func (r *UserRepo) lookup(index map[string]string, key string) (domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if id, ok := index[key]; ok && key != "" {
		return r.users[id], nil
	}
	return domain.User{}, domain.ErrUserNotFound()
}

func (r *UserRepo) GetByEmail(_ context.Context, email string) (domain.User, error) {
	return r.lookup(r.emails, domain.NormalizeEmail(email))
}

func (r *UserRepo) GetByVerificationToken(_ context.Context, token string) (domain.User, error) {
	return r.lookup(r.pending, token)
}

func (r *UserRepo) GetByID(_ context.Context, id string) (domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if u, ok := r.users[id]; ok {
		return u, nil
	}
	return domain.User{}, domain.ErrUserNotFound()
}

func (r *UserRepo) Create(_ context.Context, u domain.User) (domain.User, error) {
	if u.ID == "" {
		return domain.User{}, domain.ErrInternal(errors.New("memory: user without id"))
	}
	email := domain.NormalizeEmail(u.Email)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.emails[email]; taken {
		return domain.User{}, domain.ErrEmailAlreadyExists()
	}
	r.users[u.ID] = u
	r.emails[email] = u.ID
	if u.VerificationToken != "" {
		r.pending[u.VerificationToken] = u.ID
	}
	return u, nil
}

// update applies fn to a copy of the user and stores it if fn succeeds,
// keeping the token index in step.
func (r *UserRepo) update(id string, fn func(u *domain.User) error) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound()
	}
	oldToken := u.VerificationToken
	if err := fn(&u); err != nil {
		return domain.User{}, err
	}

	if oldToken != u.VerificationToken {
		delete(r.pending, oldToken)
		if u.VerificationToken != "" {
			r.pending[u.VerificationToken] = id
		}
	}
	r.users[id] = u
	return u, nil
}

func (r *UserRepo) SetSessionToken(_ context.Context, userID, token string) error {
	_, err := r.update(userID, func(u *domain.User) error {
		u.Token = token
		return nil
	})
	return err
}

func (r *UserRepo) SetAvatarURL(_ context.Context, userID, avatarURL string) error {
	_, err := r.update(userID, func(u *domain.User) error {
		u.AvatarURL = avatarURL
		return nil
	})
	return err
}

func (r *UserRepo) SetSubscription(_ context.Context, userID string, sub domain.Subscription) (domain.User, error) {
	return r.update(userID, func(u *domain.User) error {
		u.Subscription = sub
		return nil
	})
}

func (r *UserRepo) SetVerificationToken(_ context.Context, userID, token string) error {
	_, err := r.update(userID, func(u *domain.User) error {
		if u.Verified {
			return domain.ErrAlreadyVerified()
		}
		u.VerificationToken = token
		return nil
	})
	return err
}

// MarkVerified consumes token: it must still be the identity's current one,
// and it is cleared in the same step.
func (r *UserRepo) MarkVerified(_ context.Context, userID, token string) error {
	_, err := r.update(userID, func(u *domain.User) error {
		switch {
		case u.Verified:
			return domain.ErrAlreadyVerified()
		case token == "" || u.VerificationToken != token:
			return domain.ErrVerifyTokenNotFound()
		}
		u.Verified, u.VerificationToken = true, ""
		return nil
	})
	return err
}

// Ping always succeeds.
func (r *UserRepo) Ping(context.Context) error { return nil }
