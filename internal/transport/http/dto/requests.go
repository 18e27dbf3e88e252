package dto

import (
	"strings"

	"github.com/icritic/users-service/internal/domain"
)

type SignInRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,max=72"`
}

func (r *SignInRequest) Normalize() {
	r.Email = domain.NormalizeEmail(r.Email)
}

// RefreshRequest may be empty when the token travels in the cookie.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// UpdateProfileRequest accepts email and password for compatibility with
// older clients; both are ignored.
type UpdateProfileRequest struct {
	Name        *string `json:"name" validate:"omitempty,max=100"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
	CountryID   *int64  `json:"countryId" validate:"omitempty,gt=0"`

	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *UpdateProfileRequest) ToUpdate() domain.UserUpdate {
	upd := domain.UserUpdate{Description: r.Description, CountryID: r.CountryID}
	if r.Name != nil {
		name := strings.TrimSpace(*r.Name)
		upd.Name = &name
	}
	return upd
}

type ChangeRoleRequest struct {
	Role string `json:"role" validate:"required"`
}

type StatusChangeRequest struct {
	Motive string `json:"motive" validate:"max=500"`
}
