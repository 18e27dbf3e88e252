package auth

import (
	"context"

	"github.com/icritic/users-service/internal/domain"
)

func (s *Service) ListUsers(ctx context.Context) ([]domain.User, error) {
	users, err := s.users.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.User, 0, len(users))
	for _, u := range users {
		out = append(out, u.Redacted())
	}
	return out, nil
}

func (s *Service) GetUser(ctx context.Context, id int64) (domain.User, error) {
	if id <= 0 {
		return domain.User{}, domain.ErrUserNotFound()
	}
	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		return domain.User{}, err
	}
	return u.Redacted(), nil
}

// UpdateProfile changes the caller's own name, description or country.
// Email, password, role and status are not reachable from here.
func (s *Service) UpdateProfile(ctx context.Context, actor Actor, upd domain.UserUpdate) (domain.User, error) {
	audit := s.auditor("user.update_profile", actor, actor.ID)

	if actor.ID <= 0 {
		err := domain.ErrForbidden()
		audit("error", err, nil)
		return domain.User{}, err
	}
	if err := upd.Validate(); err != nil {
		audit("error", err, nil)
		return domain.User{}, err
	}
	if upd.Empty() {
		return s.GetUser(ctx, actor.ID)
	}

	u, err := s.users.UpdateUser(ctx, actor.ID, upd)
	if err != nil {
		audit("error", err, nil)
		return domain.User{}, err
	}
	audit("success", nil, nil)
	return u.Redacted(), nil
}
