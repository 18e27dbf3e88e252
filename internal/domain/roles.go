package domain

import "strings"

type Role string

const (
	// Default users manage their own profile only.
	RoleDefault Role = "DEFAULT"
	// Moderators can be granted status changes through policy.
	RoleModerator Role = "MODERATOR"
	// Admins manage roles and account status of every user.
	RoleAdmin Role = "ADMIN"
)

// roleOrder is the single source of the privilege order, lowest first.
var roleOrder = []Role{RoleDefault, RoleModerator, RoleAdmin}

// Roles returns every known role, lowest privilege first.
func Roles() []Role {
	out := make([]Role, len(roleOrder))
	copy(out, roleOrder)
	return out
}

// ParseRole accepts a role name in any case.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	if r.Rank() == 0 {
		return "", false
	}
	return r, true
}

// Rank: bigger => higher privilege, 0 for unknown roles.
func (r Role) Rank() int {
	for i, known := range roleOrder {
		if r == known {
			return i + 1
		}
	}
	return 0
}

func (r Role) Valid() bool { return r.Rank() > 0 }

// AtLeast reports whether r is a known role ranking at or above min.
func (r Role) AtLeast(min Role) bool {
	return r.Valid() && min.Valid() && r.Rank() >= min.Rank()
}

func (r Role) String() string { return string(r) }
