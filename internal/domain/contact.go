package domain

import "time"

// Contact is a phonebook entry owned by exactly one user.
type Contact struct {
	ID        string
	Name      string
	Email     string
	Phone     string
	Favorite  bool
	Owner     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ContactPatch carries the optional fields of a partial update.
type ContactPatch struct {
	Name  *string
	Email *string
	Phone *string
}

func (p ContactPatch) Empty() bool {
	return p.Name == nil && p.Email == nil && p.Phone == nil
}

// Apply returns c with the non-nil fields of p applied.
func (p ContactPatch) Apply(c Contact) Contact {
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.Email != nil {
		c.Email = *p.Email
	}
	if p.Phone != nil {
		c.Phone = *p.Phone
	}
	return c
}
