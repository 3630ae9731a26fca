package contacts

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/baechuer/contacts-service/internal/domain"
)

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

type Service struct {
	repo  ContactRepo
	clock Clock
	newID func() string
}

func New(repo ContactRepo, clock Clock) *Service {
	if clock == nil {
		clock = systemClock{}
	}
	return &Service{repo: repo, clock: clock, newID: uuid.NewString}
}

// Paging bounds. MaxPage keeps (Page-1)*Limit far from int overflow.
const (
	DefaultLimit = 20
	MaxLimit     = 100
	MaxPage      = 1_000_000
)

type ListFilter struct {
	Page     int
	Limit    int
	Favorite *bool
}

func (f *ListFilter) Normalize() {
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.Page > MaxPage {
		f.Page = MaxPage
	}
	if f.Limit <= 0 {
		f.Limit = DefaultLimit
	}
	if f.Limit > MaxLimit {
		f.Limit = MaxLimit
	}
}

// Skip is the number of records before the requested page.
func (f ListFilter) Skip() int { return (f.Page - 1) * f.Limit }

type ListResult struct {
	Items []domain.Contact
	Total int
	Page  int
	Limit int
}

func (s *Service) List(ctx context.Context, ownerID string, f ListFilter) (ListResult, error) {
	f.Normalize()
	items, total, err := s.repo.List(ctx, ownerID, f)
	if err != nil {
		return ListResult{}, err
	}
	return ListResult{Items: items, Total: total, Page: f.Page, Limit: f.Limit}, nil
}

func (s *Service) Get(ctx context.Context, ownerID, id string) (domain.Contact, error) {
	if strings.TrimSpace(id) == "" {
		return domain.Contact{}, domain.ErrContactNotFound()
	}
	return s.repo.Get(ctx, ownerID, id)
}

type CreateCmd struct {
	Name     string
	Email    string
	Phone    string
	Favorite bool
}

func (s *Service) Create(ctx context.Context, ownerID string, cmd CreateCmd) (domain.Contact, error) {
	name := strings.TrimSpace(cmd.Name)
	email := strings.TrimSpace(cmd.Email)
	phone := strings.TrimSpace(cmd.Phone)
	switch {
	case name == "":
		return domain.Contact{}, domain.ErrMissingField("name")
	case email == "":
		return domain.Contact{}, domain.ErrMissingField("email")
	case phone == "":
		return domain.Contact{}, domain.ErrMissingField("phone")
	}

	now := s.clock.Now()
	return s.repo.Create(ctx, domain.Contact{
		ID:        s.newID(),
		Name:      name,
		Email:     email,
		Phone:     phone,
		Favorite:  cmd.Favorite,
		Owner:     ownerID,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

func (s *Service) Update(ctx context.Context, ownerID, id string, p domain.ContactPatch) (domain.Contact, error) {
	if p.Empty() {
		return domain.Contact{}, domain.ErrMissingFields()
	}
	for field, v := range map[string]*string{"name": p.Name, "email": p.Email, "phone": p.Phone} {
		if v != nil && strings.TrimSpace(*v) == "" {
			return domain.Contact{}, domain.ErrInvalidField(field, "empty")
		}
	}
	return s.repo.Update(ctx, ownerID, id, p, s.clock.Now())
}

func (s *Service) Delete(ctx context.Context, ownerID, id string) (domain.Contact, error) {
	return s.repo.Delete(ctx, ownerID, id)
}

func (s *Service) UpdateFavorite(ctx context.Context, ownerID, id string, favorite bool) (domain.Contact, error) {
	return s.repo.SetFavorite(ctx, ownerID, id, favorite, s.clock.Now())
}
