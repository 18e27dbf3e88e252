package auth

import (
	"context"
	"time"

	"github.com/icritic/users-service/internal/domain"
)

// StatusMachine applies BAN / UNBAN. Both actions go through Apply; the
// resulting status depends only on the action, so repeating one is harmless.
type StatusMachine struct {
	users   UserByIDFinder
	updater UserStatusUpdater
	guard   *Guard
	now     func() time.Time
}

func NewStatusMachine(users UserByIDFinder, updater UserStatusUpdater, guard *Guard) *StatusMachine {
	return &StatusMachine{users: users, updater: updater, guard: guard, now: time.Now}
}

// Apply validates and persists one transition. Nothing is written on error.
func (m *StatusMachine) Apply(ctx context.Context, actor Actor, targetID int64, change domain.StatusChange) (domain.StatusTransition, error) {
	if targetID <= 0 {
		return domain.StatusTransition{}, domain.ErrInvalidField("id", "must be positive")
	}
	if err := change.Validate(); err != nil {
		return domain.StatusTransition{}, err
	}
	// caller check before lookup so refusals do not reveal which ids exist
	if err := m.guard.ValidateStatusActor(actor.Role); err != nil {
		return domain.StatusTransition{}, err
	}
	if actor.ID == targetID {
		return domain.StatusTransition{}, domain.ErrCannotAffectSelf()
	}

	target, err := m.users.FindByID(ctx, targetID)
	if err != nil {
		return domain.StatusTransition{}, err
	}
	if err := m.guard.ValidateStatusChange(actor.Role, target.Role); err != nil {
		return domain.StatusTransition{}, err
	}

	t := domain.StatusTransition{
		UserID:  target.ID,
		ActorID: actor.ID,
		Action:  change.Action,
		Motive:  change.Motive,
		At:      m.now().UTC(),
	}
	if err := m.updater.UpdateStatus(ctx, t); err != nil {
		return domain.StatusTransition{}, err
	}
	return t, nil
}
