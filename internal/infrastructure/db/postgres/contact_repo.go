package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/baechuer/contacts-service/internal/application/contacts"
	"github.com/baechuer/contacts-service/internal/domain"
)

type ContactRepo struct {
	db *sql.DB
}

func NewContactRepo(db *sql.DB) *ContactRepo {
	return &ContactRepo{db: db}
}

const contactColumns = `id, name, email, phone, favorite, owner, created_at, updated_at`

func scanContact(row rowScanner) (domain.Contact, error) {
	var c domain.Contact
	err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Favorite, &c.Owner, &c.CreatedAt, &c.UpdatedAt)
	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()
	return c, err
}

func contactOrNotFound(c domain.Contact, err error) (domain.Contact, error) {
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Contact{}, domain.ErrContactNotFound()
		}
		return domain.Contact{}, domain.ErrDBUnavailable(err)
	}
	return c, nil
}

func (r *ContactRepo) List(ctx context.Context, ownerID string, f contacts.ListFilter) ([]domain.Contact, int, error) {
	where := "owner = $1"
	args := []any{ownerID}
	if f.Favorite != nil {
		where += " AND favorite = $2"
		args = append(args, *f.Favorite)
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM contacts WHERE `+where+`;`, args...).Scan(&total); err != nil {
		return nil, 0, domain.ErrDBUnavailable(err)
	}

	n := len(args)
	q := fmt.Sprintf(`SELECT %s FROM contacts WHERE %s ORDER BY created_at, id LIMIT $%d OFFSET $%d;`,
		contactColumns, where, n+1, n+2)
	rows, err := r.db.QueryContext(ctx, q, append(args, f.Limit, f.Skip())...)
	if err != nil {
		return nil, 0, domain.ErrDBUnavailable(err)
	}
	defer rows.Close()

	out := []domain.Contact{}
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, 0, domain.ErrDBUnavailable(err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, domain.ErrDBUnavailable(err)
	}
	return out, total, nil
}

func (r *ContactRepo) Get(ctx context.Context, ownerID, id string) (domain.Contact, error) {
	q := `SELECT ` + contactColumns + ` FROM contacts WHERE id = $1 AND owner = $2;`
	return contactOrNotFound(scanContact(r.db.QueryRowContext(ctx, q, id, ownerID)))
}

func (r *ContactRepo) Create(ctx context.Context, c domain.Contact) (domain.Contact, error) {
	q := `
INSERT INTO contacts (id, name, email, phone, favorite, owner, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
RETURNING ` + contactColumns + `;`
	return contactOrNotFound(scanContact(r.db.QueryRowContext(ctx, q,
		c.ID, c.Name, c.Email, c.Phone, c.Favorite, c.Owner, c.CreatedAt, c.UpdatedAt)))
}

func (r *ContactRepo) Update(ctx context.Context, ownerID, id string, p domain.ContactPatch, now time.Time) (domain.Contact, error) {
	sets := []string{"updated_at = $3"}
	args := []any{id, ownerID, now}
	add := func(col string, v *string) {
		if v != nil {
			args = append(args, *v)
			sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
		}
	}
	add("name", p.Name)
	add("email", p.Email)
	add("phone", p.Phone)

	q := `UPDATE contacts SET ` + strings.Join(sets, ", ") +
		` WHERE id = $1 AND owner = $2 RETURNING ` + contactColumns + `;`
	return contactOrNotFound(scanContact(r.db.QueryRowContext(ctx, q, args...)))
}

func (r *ContactRepo) SetFavorite(ctx context.Context, ownerID, id string, favorite bool, now time.Time) (domain.Contact, error) {
	q := `UPDATE contacts SET favorite = $3, updated_at = $4 WHERE id = $1 AND owner = $2 RETURNING ` + contactColumns + `;`
	return contactOrNotFound(scanContact(r.db.QueryRowContext(ctx, q, id, ownerID, favorite, now)))
}

func (r *ContactRepo) Delete(ctx context.Context, ownerID, id string) (domain.Contact, error) {
	q := `DELETE FROM contacts WHERE id = $1 AND owner = $2 RETURNING ` + contactColumns + `;`
	return contactOrNotFound(scanContact(r.db.QueryRowContext(ctx, q, id, ownerID)))
}
