package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/baechuer/contacts-service/internal/domain"
)

type UserRepo struct {
	db *sql.DB
}

func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{db: db}
}

// ---------- helpers ----------

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(strings.ToLower(err.Error()), "duplicate")
}

func (r *UserRepo) queryOne(ctx context.Context, where string, arg any) (domain.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE ` + where + ` LIMIT 1;`
	ur, err := scanUser(r.db.QueryRowContext(ctx, q, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.User{}, domain.ErrUserNotFound()
		}
		return domain.User{}, domain.ErrDBUnavailable(err)
	}
	return toDomainUser(ur), nil
}

func (r *UserRepo) execOne(ctx context.Context, q string, args ...any) error {
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return domain.ErrDBUnavailable(err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return domain.ErrUserNotFound()
	}
	return nil
}

// execUnverified runs a conditional update and, when nothing matched,
// reports why: the identity is missing, already verified, or holds another
// verification token.
func (r *UserRepo) execUnverified(ctx context.Context, q string, args ...any) error {
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return domain.ErrDBUnavailable(err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}

	var verified bool
	err = r.db.QueryRowContext(ctx, `SELECT verified FROM users WHERE id = $1;`, args[0]).Scan(&verified)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return domain.ErrUserNotFound()
	case err != nil:
		return domain.ErrDBUnavailable(err)
	case verified:
		return domain.ErrAlreadyVerified()
	default:
		return domain.ErrVerifyTokenNotFound()
	}
}

// ---------- auth.UserRepo ----------

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	email = domain.NormalizeEmail(email)
	if email == "" {
		return domain.User{}, domain.ErrMissingField("email")
	}
	return r.queryOne(ctx, "email = $1", email)
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (domain.User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.User{}, domain.ErrMissingField("id")
	}
	return r.queryOne(ctx, "id = $1", id)
}

func (r *UserRepo) GetByVerificationToken(ctx context.Context, token string) (domain.User, error) {
	if token == "" {
		return domain.User{}, domain.ErrUserNotFound()
	}
	return r.queryOne(ctx, "verification_token = $1", token)
}

func (r *UserRepo) Create(ctx context.Context, u domain.User) (domain.User, error) {
	u.Email = domain.NormalizeEmail(u.Email)
	if u.ID == "" {
		return domain.User{}, domain.ErrMissingField("id")
	}
	if u.Email == "" {
		return domain.User{}, domain.ErrMissingField("email")
	}
	if u.PasswordHash == "" {
		return domain.User{}, domain.ErrMissingField("password_hash")
	}
	if u.Subscription == "" {
		u.Subscription = domain.SubscriptionStarter
	}

	const q = `
INSERT INTO users (id, email, password_hash, subscription, avatar_url, verified, verification_token, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
RETURNING ` + userColumns + `;
`
	ur, err := scanUser(r.db.QueryRowContext(ctx, q,
		u.ID, u.Email, u.PasswordHash, string(u.Subscription), u.AvatarURL,
		u.Verified, nullable(u.VerificationToken), u.CreatedAt,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return domain.User{}, domain.ErrEmailAlreadyExists()
		}
		return domain.User{}, domain.ErrDBUnavailable(err)
	}
	return toDomainUser(ur), nil
}

func (r *UserRepo) SetSessionToken(ctx context.Context, userID, token string) error {
	return r.execOne(ctx, `UPDATE users SET token = $2 WHERE id = $1;`, userID, nullable(token))
}

func (r *UserRepo) SetAvatarURL(ctx context.Context, userID, avatarURL string) error {
	return r.execOne(ctx, `UPDATE users SET avatar_url = $2 WHERE id = $1;`, userID, avatarURL)
}

func (r *UserRepo) SetSubscription(ctx context.Context, userID string, sub domain.Subscription) (domain.User, error) {
	q := `UPDATE users SET subscription = $2 WHERE id = $1 RETURNING ` + userColumns + `;`
	ur, err := scanUser(r.db.QueryRowContext(ctx, q, userID, string(sub)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.User{}, domain.ErrUserNotFound()
		}
		return domain.User{}, domain.ErrDBUnavailable(err)
	}
	return toDomainUser(ur), nil
}

func (r *UserRepo) SetVerificationToken(ctx context.Context, userID, token string) error {
	return r.execUnverified(ctx,
		`UPDATE users SET verification_token = $2 WHERE id = $1 AND verified = FALSE;`,
		userID, nullable(token))
}

func (r *UserRepo) MarkVerified(ctx context.Context, userID, token string) error {
	return r.execUnverified(ctx,
		`UPDATE users SET verified = TRUE, verification_token = NULL WHERE id = $1 AND verified = FALSE AND verification_token = $2;`,
		userID, token)
}

func (r *UserRepo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
