package http_handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/icritic/users-service/internal/application/auth"
	"github.com/icritic/users-service/internal/domain"
	"github.com/icritic/users-service/internal/infrastructure/security"
	"github.com/icritic/users-service/internal/logger"
	"github.com/icritic/users-service/internal/transport/http/dto"
	"github.com/icritic/users-service/internal/transport/http/middleware"
	"github.com/icritic/users-service/internal/transport/http/response"
)

type AuthService interface {
	Login(ctx context.Context, email, password string) (auth.LoginResult, error)
	RefreshAccessToken(ctx context.Context, refreshToken string) (auth.TokenPair, error)
}

type AuthHandler struct {
	svc           AuthService
	refreshTTL    time.Duration
	secureCookies bool
}

func NewAuthHandler(svc AuthService, refreshTTL time.Duration, secureCookies bool) *AuthHandler {
	return &AuthHandler{
		svc:           svc,
		refreshTTL:    refreshTTL,
		secureCookies: secureCookies,
	}
}

// SignIn handles POST /users/v1/sign-in.
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req dto.SignInRequest
	if err := response.DecodeJSON(w, r, &req); err != nil {
		middleware.SignInAttemptsTotal.WithLabelValues(resultLabel(err)).Inc()
		response.WriteError(w, r, err)
		return
	}

	req.Normalize()
	if err := dto.Validate(req); err != nil {
		middleware.SignInAttemptsTotal.WithLabelValues(resultLabel(err)).Inc()
		response.WriteError(w, r, err)
		return
	}

	res, err := h.svc.Login(r.Context(), req.Email, req.Password)
	middleware.SignInAttemptsTotal.WithLabelValues(resultLabel(err)).Inc()
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	lg := logger.WithCtx(r.Context())
	lg.Info().
		Int64("user_id", res.User.ID).
		Msg("user_signed_in")

	security.SetRefreshToken(w, res.Tokens.RefreshToken, h.cookieTTL(res.Tokens), h.secureCookies)

	response.OK(w, dto.SignInData{
		User:   dto.NewUserView(res.User),
		Tokens: dto.NewTokensView(res.Tokens),
	})
}

// Refresh handles POST /users/v1/refresh. The token comes from the body,
// falling back to the refresh cookie.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req dto.RefreshRequest
	if err := response.DecodeOptionalJSON(w, r, &req); err != nil {
		middleware.TokenRefreshTotal.WithLabelValues(resultLabel(err)).Inc()
		response.WriteError(w, r, err)
		return
	}

	tok := strings.TrimSpace(req.RefreshToken)
	if tok == "" {
		tok, _ = security.ReadRefreshToken(r)
	}
	if tok == "" {
		err := domain.ErrTokenMissing()
		middleware.TokenRefreshTotal.WithLabelValues(resultLabel(err)).Inc()
		response.WriteError(w, r, err)
		return
	}

	pair, err := h.svc.RefreshAccessToken(r.Context(), tok)
	middleware.TokenRefreshTotal.WithLabelValues(resultLabel(err)).Inc()
	if err != nil {
		// expired, forged or replayed: the stored cookie is useless now
		if domain.KindOf(err) == domain.KindAuth {
			security.ClearRefreshToken(w, h.secureCookies)
		}
		response.WriteError(w, r, err)
		return
	}

	security.SetRefreshToken(w, pair.RefreshToken, h.cookieTTL(pair), h.secureCookies)
	response.OK(w, dto.RefreshData{Tokens: dto.NewTokensView(pair)})
}

// cookieTTL follows the refresh token's own expiry when the pair carries it.
func (h *AuthHandler) cookieTTL(p auth.TokenPair) time.Duration {
	if p.RefreshExpiresAt.IsZero() {
		return h.refreshTTL
	}
	return time.Until(p.RefreshExpiresAt)
}

// resultLabel is "success" or the error code; non-domain errors collapse
// to internal_error to keep label cardinality bounded.
func resultLabel(err error) string {
	if err == nil {
		return "success"
	}
	var de *domain.Error
	if errors.As(err, &de) {
		return de.Code
	}
	return "internal_error"
}
