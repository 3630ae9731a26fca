package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/baechuer/contacts-service/internal/domain"
)

type auditEntry struct {
	action string
	fields map[string]string
}

// fakeUserRepo is a map-backed UserRepo. failing[method] makes that method
// return the error instead of touching the map.
type fakeUserRepo struct {
	mu      sync.Mutex
	users   map[string]domain.User
	failing map[string]error

	avatarWrites []string
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[string]domain.User{}, failing: map[string]error{}}
}

func (f *fakeUserRepo) fail(method string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failing[method] = err
}

func (f *fakeUserRepo) put(u domain.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[u.ID] = u
}

func (f *fakeUserRepo) get(id string) domain.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.users[id]
}

// find returns the first user matching pred. Caller holds f.mu.
func (f *fakeUserRepo) find(pred func(domain.User) bool) (domain.User, bool) {
	for _, u := range f.users {
		if pred(u) {
			return u, true
		}
	}
	return domain.User{}, false
}

// edit runs fn on the stored user under the lock, unless method is failing.
func (f *fakeUserRepo) edit(method, id string, fn func(*domain.User) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.failing[method]; err != nil {
		return err
	}
	u, ok := f.users[id]
	if !ok {
		return domain.ErrUserNotFound()
	}
	if err := fn(&u); err != nil {
		return err
	}
	f.users[id] = u
	return nil
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.failing["GetByEmail"]; err != nil {
		return domain.User{}, err
	}
	if u, ok := f.find(func(u domain.User) bool { return u.Email == email }); ok {
		return u, nil
	}
	return domain.User{}, domain.ErrUserNotFound()
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.failing["GetByID"]; err != nil {
		return domain.User{}, err
	}
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return domain.User{}, domain.ErrUserNotFound()
}

func (f *fakeUserRepo) GetByVerificationToken(_ context.Context, token string) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	u, ok := f.find(func(u domain.User) bool { return token != "" && u.VerificationToken == token })
	if !ok {
		return domain.User{}, domain.ErrUserNotFound()
	}
	return u, nil
}

func (f *fakeUserRepo) Create(_ context.Context, u domain.User) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.failing["Create"]; err != nil {
		return domain.User{}, err
	}
	if _, taken := f.find(func(x domain.User) bool { return x.Email == u.Email }); taken {
		return domain.User{}, domain.ErrEmailAlreadyExists()
	}
	f.users[u.ID] = u
	return u, nil
}

func (f *fakeUserRepo) SetSessionToken(_ context.Context, userID, token string) error {
	return f.edit("SetSessionToken", userID, func(u *domain.User) error {
		u.Token = token
		return nil
	})
}

func (f *fakeUserRepo) SetAvatarURL(_ context.Context, userID, avatarURL string) error {
	return f.edit("SetAvatarURL", userID, func(u *domain.User) error {
		f.avatarWrites = append(f.avatarWrites, avatarURL)
		u.AvatarURL = avatarURL
		return nil
	})
}

func (f *fakeUserRepo) SetSubscription(_ context.Context, userID string, sub domain.Subscription) (domain.User, error) {
	var out domain.User
	err := f.edit("SetSubscription", userID, func(u *domain.User) error {
		u.Subscription = sub
		out = *u
		return nil
	})
	return out, err
}

func (f *fakeUserRepo) SetVerificationToken(_ context.Context, userID, token string) error {
	return f.edit("SetVerificationToken", userID, func(u *domain.User) error {
		u.VerificationToken = token
		return nil
	})
}

func (f *fakeUserRepo) MarkVerified(_ context.Context, userID, token string) error {
	return f.edit("MarkVerified", userID, func(u *domain.User) error {
		if u.Verified {
			return domain.ErrAlreadyVerified()
		}
		if u.VerificationToken != token {
			return domain.ErrVerifyTokenNotFound()
		}
		u.Verified, u.VerificationToken = true, ""
		return nil
	})
}

type fakeHasher struct {
	hashFn    func(pw string) (string, error)
	compareFn func(hash, pw string) error
}

func (h *fakeHasher) Hash(password string) (string, error) {
	if h.hashFn != nil {
		return h.hashFn(password)
	}
	return "hash:" + password, nil
}

func (h *fakeHasher) Compare(hash string, password string) error {
	if h.compareFn != nil {
		return h.compareFn(hash, password)
	}
	if hash == "hash:"+password {
		return nil
	}
	return errors.New("mismatch")
}

type fakeSigner struct {
	signFn func(c TokenClaims, ttl time.Duration) (string, error)

	lastTTL time.Duration
}

func (s *fakeSigner) SignAccessToken(c TokenClaims, ttl time.Duration) (string, error) {
	s.lastTTL = ttl
	if s.signFn != nil {
		return s.signFn(c, ttl)
	}
	return fmt.Sprintf("jwt(%s,%s)", c.UserID, c.Email), nil
}

func (s *fakeSigner) VerifyAccessToken(token string) (TokenClaims, error) {
	return TokenClaims{}, nil
}

type fakePublisher struct {
	mu        sync.Mutex
	verifyErr error
	evts      []VerifyEmailEvent
}

func (p *fakePublisher) PublishVerifyEmail(ctx context.Context, evt VerifyEmailEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.verifyErr != nil {
		return p.verifyErr
	}
	p.evts = append(p.evts, evt)
	return nil
}

type fakeImages struct {
	err      error
	lastSize int
}

func (f *fakeImages) Process(data []byte, size int) (ProcessedImage, error) {
	f.lastSize = size
	if f.err != nil {
		return ProcessedImage{}, f.err
	}
	return ProcessedImage{Data: data, Ext: "jpg", ContentType: "image/jpeg"}, nil
}

type fakeStorage struct {
	err   error
	saved []string
}

func (f *fakeStorage) Save(ctx context.Context, filename string, img ProcessedImage) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.saved = append(f.saved, filename)
	return "/avatars/" + filename, nil
}

/*
Service factory for tests
*/

type testDeps struct {
	users   *fakeUserRepo
	hasher  *fakeHasher
	signer  *fakeSigner
	pub     *fakePublisher
	images  *fakeImages
	storage *fakeStorage
	audits  *[]auditEntry
}

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newSvcForTest(t *testing.T) (*Service, testDeps) {
	t.Helper()

	d := testDeps{
		users:   newFakeUserRepo(),
		hasher:  &fakeHasher{},
		signer:  &fakeSigner{},
		pub:     &fakePublisher{},
		images:  &fakeImages{},
		storage: &fakeStorage{},
		audits:  &[]auditEntry{},
	}

	cfg := Config{
		AccessTTL:          12 * time.Hour,
		VerifyEmailBaseURL: "http://localhost:3000/api/users/verify/",
		AvatarSize:         250,
	}

	svc := NewService(d.users, d.hasher, d.signer, d.pub, d.images, d.storage, cfg).
		WithAudit(func(action string, fields map[string]string) {
			cp := map[string]string{}
			for k, v := range fields {
				cp[k] = v
			}
			*d.audits = append(*d.audits, auditEntry{action: action, fields: cp})
		})
	svc.now = func() time.Time { return fixedNow }

	seq := 0
	svc.newToken = func() string {
		seq++
		return fmt.Sprintf("vt-%d", seq)
	}

	return svc, d
}

/*
Small assertions
*/

func requireDomainCode(t *testing.T, err error, wantCode string) {
	t.Helper()
	got := domain.CodeOf(err)
	if got != wantCode {
		t.Fatalf("expected domain code %q, got %q (err=%v)", wantCode, got, err)
	}
}

func requireAuditAction(t *testing.T, audits *[]auditEntry, wantAction string) auditEntry {
	t.Helper()
	for i := len(*audits) - 1; i >= 0; i-- {
		if (*audits)[i].action == wantAction {
			return (*audits)[i]
		}
	}
	t.Fatalf("expected audit action %q, got %+v", wantAction, *audits)
	return auditEntry{}
}
