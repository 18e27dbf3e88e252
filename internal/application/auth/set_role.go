package auth

import (
	"context"
	"time"

	"github.com/icritic/users-service/internal/domain"
)

// ChangeRole sets the target user's role after the guard approves it.
// Hard rules enforced here (not in handlers):
// - nobody changes their own role
// - the caller must outrank or equal both the current and the new role
// - the last admin cannot be demoted
func (s *Service) ChangeRole(ctx context.Context, actor Actor, targetID int64, newRole string) (domain.User, error) {
	audit := s.auditor("admin.change_role", actor, targetID)

	if targetID <= 0 {
		err := domain.ErrInvalidField("id", "must be positive")
		audit("error", err, nil)
		return domain.User{}, err
	}
	role, ok := domain.ParseRole(newRole)
	if !ok {
		err := domain.ErrInvalidRole(newRole)
		audit("error", err, nil)
		return domain.User{}, err
	}

	if err := s.guard.Validate(actor.Role, role); err != nil {
		audit("error", err, map[string]string{"requested_role": role.String()})
		return domain.User{}, err
	}
	if actor.ID == targetID {
		err := domain.ErrCannotAffectSelf()
		audit("error", err, nil)
		return domain.User{}, err
	}

	target, err := s.users.FindByID(ctx, targetID)
	if err != nil {
		audit("error", err, nil)
		return domain.User{}, err
	}
	if !actor.Role.AtLeast(target.Role) {
		err := domain.ErrInsufficientRole(target.Role.String())
		audit("error", err, map[string]string{"target_role": target.Role.String()})
		return domain.User{}, err
	}

	if target.Role == domain.RoleAdmin && role != domain.RoleAdmin {
		cnt, err := s.users.CountByRole(ctx, domain.RoleAdmin)
		if err != nil {
			audit("error", err, nil)
			return domain.User{}, err
		}
		if cnt <= 1 {
			err := domain.ErrLastAdminProtected()
			audit("error", err, nil)
			return domain.User{}, err
		}
	}

	if err := s.users.UpdateRole(ctx, targetID, role); err != nil {
		audit("error", err, nil)
		return domain.User{}, err
	}

	audit("success", nil, map[string]string{
		"old_role": target.Role.String(),
		"new_role": role.String(),
		"at":       s.now().UTC().Format(time.RFC3339),
	})
	target.Role = role
	return target.Redacted(), nil
}
