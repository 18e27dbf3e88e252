package http_handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/icritic/users-service/internal/application/auth"
	"github.com/icritic/users-service/internal/domain"
	"github.com/icritic/users-service/internal/logger"
	"github.com/icritic/users-service/internal/transport/http/dto"
	"github.com/icritic/users-service/internal/transport/http/middleware"
	"github.com/icritic/users-service/internal/transport/http/response"
)

type UsersService interface {
	ListUsers(ctx context.Context) ([]domain.User, error)
	GetUser(ctx context.Context, id int64) (domain.User, error)
	UpdateProfile(ctx context.Context, actor auth.Actor, upd domain.UserUpdate) (domain.User, error)
	ChangeRole(ctx context.Context, actor auth.Actor, targetID int64, newRole string) (domain.User, error)
	BanUser(ctx context.Context, actor auth.Actor, targetID int64, motive string) (domain.StatusTransition, error)
	UnbanUser(ctx context.Context, actor auth.Actor, targetID int64, motive string) (domain.StatusTransition, error)
	StatusHistory(ctx context.Context, actor auth.Actor, targetID int64) ([]domain.StatusTransition, error)
}

type UsersHandler struct {
	svc UsersService
}

func NewUsersHandler(svc UsersService) *UsersHandler {
	return &UsersHandler{svc: svc}
}

func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.ListUsers(r.Context())
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.OK(w, dto.NewUserViews(users))
}

func (h *UsersHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	u, err := h.svc.GetUser(r.Context(), id)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.OK(w, dto.NewUserView(u))
}

func (h *UsersHandler) Me(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		response.WriteError(w, r, domain.ErrTokenInvalid())
		return
	}
	u, err := h.svc.GetUser(r.Context(), actor.ID)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.OK(w, dto.NewUserView(u))
}

// UpdateMe handles PUT /users/v1/me. The target is always the caller.
func (h *UsersHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		response.WriteError(w, r, domain.ErrTokenInvalid())
		return
	}

	var req dto.UpdateProfileRequest
	if err := response.DecodeJSON(w, r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	if err := dto.Validate(req); err != nil {
		response.WriteError(w, r, err)
		return
	}

	u, err := h.svc.UpdateProfile(r.Context(), actor, req.ToUpdate())
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.OK(w, dto.NewUserView(u))
}

func (h *UsersHandler) ChangeRole(w http.ResponseWriter, r *http.Request) {
	actor, targetID, ok := h.privileged(w, r)
	if !ok {
		return
	}

	var req dto.ChangeRoleRequest
	if err := response.DecodeJSON(w, r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	if err := dto.Validate(req); err != nil {
		response.WriteError(w, r, err)
		return
	}

	u, err := h.svc.ChangeRole(r.Context(), actor, targetID, strings.TrimSpace(req.Role))
	middleware.PrivilegedActionsTotal.WithLabelValues("role_change", resultLabel(err)).Inc()
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	lg := logger.WithCtx(r.Context())
	lg.Info().
		Int64("actor_id", actor.ID).
		Int64("target_id", targetID).
		Str("role", u.Role.String()).
		Msg("user_role_changed")

	response.OK(w, dto.NewUserView(u))
}

func (h *UsersHandler) Ban(w http.ResponseWriter, r *http.Request) {
	h.changeStatus(w, r, domain.ActionBan)
}

func (h *UsersHandler) Unban(w http.ResponseWriter, r *http.Request) {
	h.changeStatus(w, r, domain.ActionUnban)
}

func (h *UsersHandler) changeStatus(w http.ResponseWriter, r *http.Request, action domain.BanAction) {
	actor, targetID, ok := h.privileged(w, r)
	if !ok {
		return
	}

	var req dto.StatusChangeRequest
	if err := response.DecodeOptionalJSON(w, r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	if err := dto.Validate(req); err != nil {
		response.WriteError(w, r, err)
		return
	}

	var (
		t   domain.StatusTransition
		err error
	)
	if action == domain.ActionBan {
		t, err = h.svc.BanUser(r.Context(), actor, targetID, req.Motive)
	} else {
		t, err = h.svc.UnbanUser(r.Context(), actor, targetID, req.Motive)
	}
	middleware.PrivilegedActionsTotal.WithLabelValues(strings.ToLower(action.String()), resultLabel(err)).Inc()
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	lg := logger.WithCtx(r.Context())
	lg.Info().
		Int64("actor_id", actor.ID).
		Int64("target_id", targetID).
		Str("action", action.String()).
		Msg("user_status_changed")

	response.OK(w, dto.NewTransitionView(t))
}

func (h *UsersHandler) StatusHistory(w http.ResponseWriter, r *http.Request) {
	actor, targetID, ok := h.privileged(w, r)
	if !ok {
		return
	}
	ts, err := h.svc.StatusHistory(r.Context(), actor, targetID)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.OK(w, dto.NewTransitionViews(ts))
}

// privileged resolves the caller and the {id} path target, writing the
// error response itself when either is missing.
func (h *UsersHandler) privileged(w http.ResponseWriter, r *http.Request) (auth.Actor, int64, bool) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		response.WriteError(w, r, domain.ErrTokenInvalid())
		return auth.Actor{}, 0, false
	}
	id, err := pathID(r)
	if err != nil {
		response.WriteError(w, r, err)
		return auth.Actor{}, 0, false
	}
	return actor, id, true
}

func pathID(r *http.Request) (int64, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "id"))
	if raw == "" {
		return 0, domain.ErrMissingField("id")
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.ErrInvalidField("id", "must be a positive integer")
	}
	return id, nil
}
