package domain

import (
	"strings"
	"time"
)

type Country struct {
	ID   int64
	Name string
}

type User struct {
	ID           int64
	Email        string
	PasswordHash string
	Name         string
	Description  string
	Role         Role
	Active       bool
	Country      *Country
	CreatedAt    time.Time
}

// Redacted returns a copy safe to hand to callers outside the core.
func (u User) Redacted() User {
	u.PasswordHash = ""
	if u.Country != nil {
		c := *u.Country
		u.Country = &c
	}
	return u
}

func (u User) Status() AccountStatus { return StatusOf(u.Active) }

// UserUpdate holds the mutable profile fields; nil means unchanged.
type UserUpdate struct {
	Name        *string
	Description *string
	CountryID   *int64
}

func (u UserUpdate) Empty() bool {
	return u.Name == nil && u.Description == nil && u.CountryID == nil
}

const (
	MaxNameLength        = 100
	MaxDescriptionLength = 1000
)

// Validate trims the text fields in place and reports every violation.
func (u *UserUpdate) Validate() error {
	violations := map[string]string{}
	if u.Name != nil {
		n := strings.TrimSpace(*u.Name)
		u.Name = &n
		switch {
		case n == "":
			violations["name"] = "must not be blank"
		case len(n) > MaxNameLength:
			violations["name"] = "too long"
		}
	}
	if u.Description != nil {
		d := strings.TrimSpace(*u.Description)
		u.Description = &d
		if len(d) > MaxDescriptionLength {
			violations["description"] = "too long"
		}
	}
	if u.CountryID != nil && *u.CountryID <= 0 {
		violations["countryId"] = "must be positive"
	}
	if len(violations) > 0 {
		return ErrResourceViolation(violations)
	}
	return nil
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
