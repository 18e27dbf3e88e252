package postgres

import (
	"database/sql"
	"time"

	"github.com/icritic/users-service/internal/domain"
)

type userRow struct {
	ID           int64
	Email        string
	PasswordHash string
	Name         string
	Description  string
	Role         string
	Active       bool
	CountryID    sql.NullInt64
	CountryName  sql.NullString
	CreatedAt    time.Time
}

const userColumns = `u.id, u.email, u.password_hash, u.name, u.description, u.role, u.active,
       u.country_id, c.name, u.created_at`

const userFrom = `FROM users u
LEFT JOIN countries c ON c.id = u.country_id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUserRow(s rowScanner) (userRow, error) {
	var ur userRow
	err := s.Scan(
		&ur.ID,
		&ur.Email,
		&ur.PasswordHash,
		&ur.Name,
		&ur.Description,
		&ur.Role,
		&ur.Active,
		&ur.CountryID,
		&ur.CountryName,
		&ur.CreatedAt,
	)
	return ur, err
}

func (ur userRow) toDomain() domain.User {
	u := domain.User{
		ID:           ur.ID,
		Email:        ur.Email,
		PasswordHash: ur.PasswordHash,
		Name:         ur.Name,
		Description:  ur.Description,
		Role:         domain.Role(ur.Role),
		Active:       ur.Active,
		CreatedAt:    ur.CreatedAt,
	}
	if ur.CountryID.Valid {
		u.Country = &domain.Country{ID: ur.CountryID.Int64, Name: ur.CountryName.String}
	}
	return u
}
