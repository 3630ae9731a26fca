package contacts

import (
	"context"
	"time"

	"github.com/baechuer/contacts-service/internal/domain"
)

type Clock interface {
	Now() time.Time
}

// ContactRepo is scoped by owner on every call. A contact owned by someone
// else is reported as domain.ErrContactNotFound.
type ContactRepo interface {
	List(ctx context.Context, ownerID string, f ListFilter) ([]domain.Contact, int, error)
	Get(ctx context.Context, ownerID, id string) (domain.Contact, error)
	Create(ctx context.Context, c domain.Contact) (domain.Contact, error)
	Update(ctx context.Context, ownerID, id string, p domain.ContactPatch, now time.Time) (domain.Contact, error)
	Delete(ctx context.Context, ownerID, id string) (domain.Contact, error)
	SetFavorite(ctx context.Context, ownerID, id string, favorite bool, now time.Time) (domain.Contact, error)
}
