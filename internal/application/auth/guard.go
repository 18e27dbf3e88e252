package auth

import "github.com/icritic/users-service/internal/domain"

// Policy sets the minimum caller role for each privileged mutation.
type Policy struct {
	RoleChangeMin   domain.Role
	StatusChangeMin domain.Role
}

func DefaultPolicy() Policy {
	return Policy{RoleChangeMin: domain.RoleAdmin, StatusChangeMin: domain.RoleAdmin}
}

// Guard decides whether a caller role may perform a mutation.
// Every refusal is a Forbidden-kind error.
type Guard struct {
	policy Policy
}

func NewGuard(p Policy) *Guard {
	def := DefaultPolicy()
	if !p.RoleChangeMin.Valid() {
		p.RoleChangeMin = def.RoleChangeMin
	}
	if !p.StatusChangeMin.Valid() {
		p.StatusChangeMin = def.StatusChangeMin
	}
	return &Guard{policy: p}
}

func (g *Guard) Policy() Policy { return g.policy }

// Validate allows a role mutation when the caller meets the policy minimum
// and ranks at least as high as the role being granted.
func (g *Guard) Validate(caller, requested domain.Role) error {
	if !caller.Valid() || !requested.Valid() {
		return domain.ErrForbidden()
	}
	if !caller.AtLeast(g.policy.RoleChangeMin) {
		return domain.ErrInsufficientRole(g.policy.RoleChangeMin.String())
	}
	if !caller.AtLeast(requested) {
		return domain.ErrInsufficientRole(requested.String())
	}
	return nil
}

// ValidateStatusActor checks only the caller side of a status change.
func (g *Guard) ValidateStatusActor(caller domain.Role) error {
	if !caller.Valid() {
		return domain.ErrForbidden()
	}
	if !caller.AtLeast(g.policy.StatusChangeMin) {
		return domain.ErrInsufficientRole(g.policy.StatusChangeMin.String())
	}
	return nil
}

// ValidateStatusChange also requires the caller to rank at least as high as the target.
func (g *Guard) ValidateStatusChange(caller, target domain.Role) error {
	if err := g.ValidateStatusActor(caller); err != nil {
		return err
	}
	if !target.Valid() || !caller.AtLeast(target) {
		return domain.ErrInsufficientRole(target.String())
	}
	return nil
}
