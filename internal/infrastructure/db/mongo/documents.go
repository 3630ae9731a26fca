package mongo

import (
	"time"

	"github.com/baechuer/contacts-service/internal/domain"
)

type userDoc struct {
	ID                string    `bson:"_id"`
	Email             string    `bson:"email"`
	PasswordHash      string    `bson:"password_hash"`
	Subscription      string    `bson:"subscription"`
	Token             string    `bson:"token,omitempty"`
	AvatarURL         string    `bson:"avatar_url"`
	Verified          bool      `bson:"verified"`
	VerificationToken string    `bson:"verification_token,omitempty"`
	CreatedAt         time.Time `bson:"created_at"`
}

func fromDomainUser(u domain.User) userDoc {
	return userDoc{
		ID:                u.ID,
		Email:             u.Email,
		PasswordHash:      u.PasswordHash,
		Subscription:      string(u.Subscription),
		Token:             u.Token,
		AvatarURL:         u.AvatarURL,
		Verified:          u.Verified,
		VerificationToken: u.VerificationToken,
		CreatedAt:         u.CreatedAt,
	}
}

func (d userDoc) toDomain() domain.User {
	return domain.User{
		ID:                d.ID,
		Email:             d.Email,
		PasswordHash:      d.PasswordHash,
		Subscription:      domain.Subscription(d.Subscription),
		Token:             d.Token,
		AvatarURL:         d.AvatarURL,
		Verified:          d.Verified,
		VerificationToken: d.VerificationToken,
		CreatedAt:         d.CreatedAt.UTC(),
	}
}

type contactDoc struct {
	ID        string    `bson:"_id"`
	Name      string    `bson:"name"`
	Email     string    `bson:"email"`
	Phone     string    `bson:"phone"`
	Favorite  bool      `bson:"favorite"`
	Owner     string    `bson:"owner"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

func fromDomainContact(c domain.Contact) contactDoc {
	return contactDoc{
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

func (d contactDoc) toDomain() domain.Contact {
	return domain.Contact{
		ID:        d.ID,
		Name:      d.Name,
		Email:     d.Email,
		Phone:     d.Phone,
		Favorite:  d.Favorite,
		Owner:     d.Owner,
		CreatedAt: d.CreatedAt.UTC(),
		UpdatedAt: d.UpdatedAt.UTC(),
	}
}
