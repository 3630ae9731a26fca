package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/baechuer/contacts-service/internal/application/contacts"
	"github.com/baechuer/contacts-service/internal/domain"
)

type ContactRepo struct {
	mu   sync.RWMutex
	byID map[string]domain.Contact
	seq  map[string]int // insertion order for stable listing
	next int
}

func NewContactRepo() *ContactRepo {
	return &ContactRepo{
		byID: make(map[string]domain.Contact),
		seq:  make(map[string]int),
	}
}

func (r *ContactRepo) List(ctx context.Context, ownerID string, f contacts.ListFilter) ([]domain.Contact, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var all []domain.Contact
	for _, c := range r.byID {
		if c.Owner != ownerID {
			continue
		}
		if f.Favorite != nil && c.Favorite != *f.Favorite {
			continue
		}
		all = append(all, c)
	}
	sort.Slice(all, func(i, j int) bool { return r.seq[all[i].ID] < r.seq[all[j].ID] })

	total := len(all)
	start := f.Skip()
	if start >= total {
		return []domain.Contact{}, total, nil
	}
	end := start + f.Limit
	if end > total {
		end = total
	}
	return all[start:end], total, nil
}

func (r *ContactRepo) Get(ctx context.Context, ownerID, id string) (domain.Contact, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.byID[id]
	if !ok || c.Owner != ownerID {
		return domain.Contact{}, domain.ErrContactNotFound()
	}
	return c, nil
}

func (r *ContactRepo) Create(ctx context.Context, c domain.Contact) (domain.Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.next++
	r.seq[c.ID] = r.next
	r.byID[c.ID] = c
	return c, nil
}

func (r *ContactRepo) mutate(ownerID, id string, fn func(c *domain.Contact)) (domain.Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.byID[id]
	if !ok || c.Owner != ownerID {
		return domain.Contact{}, domain.ErrContactNotFound()
	}
	fn(&c)
	r.byID[id] = c
	return c, nil
}

func (r *ContactRepo) Update(ctx context.Context, ownerID, id string, p domain.ContactPatch, now time.Time) (domain.Contact, error) {
	return r.mutate(ownerID, id, func(c *domain.Contact) {
		*c = p.Apply(*c)
		c.UpdatedAt = now
	})
}

func (r *ContactRepo) SetFavorite(ctx context.Context, ownerID, id string, favorite bool, now time.Time) (domain.Contact, error) {
	return r.mutate(ownerID, id, func(c *domain.Contact) {
		c.Favorite = favorite
		c.UpdatedAt = now
	})
}

func (r *ContactRepo) Delete(ctx context.Context, ownerID, id string) (domain.Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.byID[id]
	if !ok || c.Owner != ownerID {
		return domain.Contact{}, domain.ErrContactNotFound()
	}
	delete(r.byID, id)
	delete(r.seq, id)
	return c, nil
}
