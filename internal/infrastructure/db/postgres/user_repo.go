package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/icritic/users-service/internal/domain"
)

// postgres error codes
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// UserRepo implements auth.UserRepo over database/sql with the pgx driver.
type UserRepo struct {
	db *sql.DB
}

func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{db: db}
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func (r *UserRepo) findOne(ctx context.Context, where string, arg any) (domain.User, error) {
	q := "SELECT " + userColumns + "\n" + userFrom + "\nWHERE " + where + "\nLIMIT 1;"
	ur, err := scanUserRow(r.db.QueryRowContext(ctx, q, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.User{}, domain.ErrUserNotFound()
		}
		return domain.User{}, domain.ErrDBUnavailable(err)
	}
	return ur.toDomain(), nil
}

// ---------- boundary contracts ----------

func (r *UserRepo) FindByEmail(ctx context.Context, email string) (domain.User, error) {
	email = domain.NormalizeEmail(email)
	if email == "" {
		return domain.User{}, domain.ErrUserNotFound()
	}
	// matches users_email_lower_key
	return r.findOne(ctx, "lower(u.email) = $1", email)
}

func (r *UserRepo) FindByID(ctx context.Context, id int64) (domain.User, error) {
	if id <= 0 {
		return domain.User{}, domain.ErrUserNotFound()
	}
	return r.findOne(ctx, "u.id = $1", id)
}

func (r *UserRepo) FindAll(ctx context.Context) ([]domain.User, error) {
	q := "SELECT " + userColumns + "\n" + userFrom + "\nORDER BY u.id;"
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, domain.ErrDBUnavailable(err)
	}
	defer rows.Close()

	out := []domain.User{}
	for rows.Next() {
		ur, err := scanUserRow(rows)
		if err != nil {
			return nil, domain.ErrDBUnavailable(err)
		}
		out = append(out, ur.toDomain())
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrDBUnavailable(err)
	}
	return out, nil
}

// UpdateUser writes the non-nil profile fields and returns the stored record.
func (r *UserRepo) UpdateUser(ctx context.Context, id int64, upd domain.UserUpdate) (domain.User, error) {
	const q = `
UPDATE users
SET name        = COALESCE($2, name),
    description = COALESCE($3, description),
    country_id  = COALESCE($4, country_id),
    updated_at  = NOW()
WHERE id = $1;
`
	res, err := r.db.ExecContext(ctx, q, id, upd.Name, upd.Description, upd.CountryID)
	if err != nil {
		if pgCode(err) == pgForeignKeyViolation {
			return domain.User{}, domain.ErrCountryNotFound()
		}
		return domain.User{}, domain.ErrDBUnavailable(err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return domain.User{}, domain.ErrUserNotFound()
	}
	return r.FindByID(ctx, id)
}

func (r *UserRepo) UpdateRole(ctx context.Context, id int64, role domain.Role) error {
	if !role.Valid() {
		return domain.ErrInvalidRole(role.String())
	}

	const q = `
UPDATE users
SET role = $2,
    updated_at = NOW()
WHERE id = $1;
`
	res, err := r.db.ExecContext(ctx, q, id, role.String())
	if err != nil {
		return domain.ErrDBUnavailable(err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return domain.ErrUserNotFound()
	}
	return nil
}

// UpdateStatus sets the active flag and appends the transition in one transaction.
// The row lock taken by the UPDATE orders concurrent writers: last commit wins.
func (r *UserRepo) UpdateStatus(ctx context.Context, t domain.StatusTransition) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.ErrDBUnavailable(err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const upd = `
UPDATE users
SET active = $2,
    updated_at = NOW()
WHERE id = $1;
`
	res, err := tx.ExecContext(ctx, upd, t.UserID, t.Active())
	if err != nil {
		return domain.ErrDBUnavailable(err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return domain.ErrUserNotFound()
	}

	const ins = `
INSERT INTO user_status_transitions (user_id, actor_id, action, motive, created_at)
VALUES ($1, $2, $3, $4, $5);
`
	actor := sql.NullInt64{Int64: t.ActorID, Valid: t.ActorID > 0}
	if _, err = tx.ExecContext(ctx, ins, t.UserID, actor, t.Action.String(), t.Motive, t.At); err != nil {
		return domain.ErrDBUnavailable(err)
	}

	if err = tx.Commit(); err != nil {
		return domain.ErrDBUnavailable(err)
	}
	return nil
}

func (r *UserRepo) CountByRole(ctx context.Context, role domain.Role) (int, error) {
	if !role.Valid() {
		return 0, domain.ErrInvalidRole(role.String())
	}

	const q = `SELECT COUNT(1) FROM users WHERE role = $1;`

	var n int
	if err := r.db.QueryRowContext(ctx, q, role.String()).Scan(&n); err != nil {
		return 0, domain.ErrDBUnavailable(err)
	}
	return n, nil
}

// ---------- provisioning ----------

// Create inserts a user; used by seeding and the operator tool.
func (r *UserRepo) Create(ctx context.Context, u domain.User) (domain.User, error) {
	u.Email = domain.NormalizeEmail(u.Email)
	if u.Email == "" {
		return domain.User{}, domain.ErrMissingField("email")
	}
	if u.PasswordHash == "" {
		return domain.User{}, domain.ErrMissingField("password_hash")
	}
	if u.Role == "" {
		u.Role = domain.RoleDefault
	}
	if !u.Role.Valid() {
		return domain.User{}, domain.ErrInvalidRole(u.Role.String())
	}

	const q = `
INSERT INTO users (email, password_hash, name, description, role, active)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, created_at;
`
	err := r.db.QueryRowContext(ctx, q,
		u.Email, u.PasswordHash, u.Name, u.Description, u.Role.String(), u.Active,
	).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		if pgCode(err) == pgUniqueViolation {
			return domain.User{}, domain.ErrEmailAlreadyExists()
		}
		return domain.User{}, domain.ErrDBUnavailable(err)
	}
	return u, nil
}

// StatusHistory returns a user's transitions, newest first.
func (r *UserRepo) StatusHistory(ctx context.Context, userID int64) ([]domain.StatusTransition, error) {
	const q = `
SELECT user_id, COALESCE(actor_id, 0), action, motive, created_at
FROM user_status_transitions
WHERE user_id = $1
ORDER BY created_at DESC, id DESC;
`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, domain.ErrDBUnavailable(err)
	}
	defer rows.Close()

	out := []domain.StatusTransition{}
	for rows.Next() {
		var (
			t      domain.StatusTransition
			action string
		)
		if err := rows.Scan(&t.UserID, &t.ActorID, &action, &t.Motive, &t.At); err != nil {
			return nil, domain.ErrDBUnavailable(err)
		}
		a, ok := domain.ParseBanAction(action)
		if !ok {
			return nil, domain.ErrDBUnavailable(fmt.Errorf("unknown status action %q", action))
		}
		t.Action = a
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrDBUnavailable(err)
	}
	return out, nil
}
