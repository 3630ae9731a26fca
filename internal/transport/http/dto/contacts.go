package dto

import (
	"time"

	"github.com/baechuer/contacts-service/internal/domain"
)

type CreateContactRequest struct {
	Name     string `json:"name" validate:"required,notblank,max=200"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Phone    string `json:"phone" validate:"required,notblank,max=50"`
	Favorite bool   `json:"favorite"`
}

// UpdateContactRequest is a partial update; absent fields are left unchanged.
type UpdateContactRequest struct {
	Name  *string `json:"name,omitempty" validate:"omitempty,notblank,max=200"`
	Email *string `json:"email,omitempty" validate:"omitempty,email,max=254"`
	Phone *string `json:"phone,omitempty" validate:"omitempty,notblank,max=50"`
}

func (r UpdateContactRequest) Patch() domain.ContactPatch {
	return domain.ContactPatch{Name: r.Name, Email: r.Email, Phone: r.Phone}
}

type FavoriteRequest struct {
	Favorite *bool `json:"favorite" validate:"required"`
}

type ContactView struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Favorite  bool      `json:"favorite"`
	Owner     string    `json:"owner"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func NewContactView(c domain.Contact) ContactView {
	return ContactView{
		ID:        c.ID,
		Name:      c.Name,
		Email:     c.Email,
		Phone:     c.Phone,
		Favorite:  c.Favorite,
		Owner:     c.Owner,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

type ContactListResponse struct {
	Items []ContactView `json:"items"`
	Total int           `json:"total"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
}
