package auth

import (
	"context"

	"github.com/icritic/users-service/internal/domain"
)

// BanUser deactivates the target account; motive is required.
func (s *Service) BanUser(ctx context.Context, actor Actor, targetID int64, motive string) (domain.StatusTransition, error) {
	return s.ChangeStatus(ctx, actor, targetID, domain.StatusChange{Action: domain.ActionBan, Motive: motive})
}

// UnbanUser reactivates the target account; motive is optional.
func (s *Service) UnbanUser(ctx context.Context, actor Actor, targetID int64, motive string) (domain.StatusTransition, error) {
	return s.ChangeStatus(ctx, actor, targetID, domain.StatusChange{Action: domain.ActionUnban, Motive: motive})
}

// ChangeStatus runs one transition through the status machine and audits it.
func (s *Service) ChangeStatus(ctx context.Context, actor Actor, targetID int64, change domain.StatusChange) (domain.StatusTransition, error) {
	action := "mod.unban_user"
	if change.Action == domain.ActionBan {
		action = "mod.ban_user"
	}
	audit := s.auditor(action, actor, targetID)

	t, err := s.status.Apply(ctx, actor, targetID, change)
	if err != nil {
		audit("error", err, nil)
		return domain.StatusTransition{}, err
	}

	audit("success", nil, map[string]string{"motive": t.Motive})
	return t, nil
}

// StatusHistory lists a user's transitions for callers allowed to change status.
func (s *Service) StatusHistory(ctx context.Context, actor Actor, targetID int64) ([]domain.StatusTransition, error) {
	if err := s.guard.ValidateStatusActor(actor.Role); err != nil {
		return nil, err
	}
	if _, err := s.users.FindByID(ctx, targetID); err != nil {
		return nil, err
	}
	return s.users.StatusHistory(ctx, targetID)
}
