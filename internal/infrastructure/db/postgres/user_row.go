package postgres

import (
	"database/sql"
	"time"

	"github.com/baechuer/contacts-service/internal/domain"
)

type userRow struct {
	ID                string
	Email             string
	PasswordHash      string
	Subscription      string
	Token             sql.NullString
	AvatarURL         string
	Verified          bool
	VerificationToken sql.NullString
	CreatedAt         time.Time
}

const userColumns = `id, email, password_hash, subscription, token, avatar_url, verified, verification_token, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (userRow, error) {
	var ur userRow
	err := row.Scan(
		&ur.ID,
		&ur.Email,
		&ur.PasswordHash,
		&ur.Subscription,
		&ur.Token,
		&ur.AvatarURL,
		&ur.Verified,
		&ur.VerificationToken,
		&ur.CreatedAt,
	)
	return ur, err
}

func toDomainUser(ur userRow) domain.User {
	return domain.User{
		ID:                ur.ID,
		Email:             ur.Email,
		PasswordHash:      ur.PasswordHash,
		Subscription:      domain.Subscription(ur.Subscription),
		Token:             ur.Token.String,
		AvatarURL:         ur.AvatarURL,
		Verified:          ur.Verified,
		VerificationToken: ur.VerificationToken.String,
		CreatedAt:         ur.CreatedAt.UTC(),
	}
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
