package router

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HealthHandler interface {
	Healthz(w http.ResponseWriter, r *http.Request)
	Readyz(w http.ResponseWriter, r *http.Request)
}

type AuthHandler interface {
	SignIn(w http.ResponseWriter, r *http.Request)
	Refresh(w http.ResponseWriter, r *http.Request)
}

type UsersHandler interface {
	List(w http.ResponseWriter, r *http.Request)
	Get(w http.ResponseWriter, r *http.Request)
	Me(w http.ResponseWriter, r *http.Request)
	UpdateMe(w http.ResponseWriter, r *http.Request)

	// Privileged
	ChangeRole(w http.ResponseWriter, r *http.Request)
	Ban(w http.ResponseWriter, r *http.Request)
	Unban(w http.ResponseWriter, r *http.Request)
	StatusHistory(w http.ResponseWriter, r *http.Request)
}

type Middleware = func(http.Handler) http.Handler

type Deps struct {
	Health HealthHandler
	Auth   AuthHandler
	Users  UsersHandler

	RequestIDMW Middleware
	MetricsMW   Middleware
	AuthMW      Middleware
	// PrivilegedMW is a coarse role gate in front of role and status routes.
	// The service guard still decides per operation.
	PrivilegedMW Middleware

	// Optional; nil disables the limit.
	SignInLimitMW  Middleware
	RefreshLimitMW Middleware
}

func New(deps Deps) (http.Handler, error) {
	if deps.Health == nil {
		return nil, fmt.Errorf("nil Health handler")
	}
	if deps.Auth == nil {
		return nil, fmt.Errorf("nil Auth handler")
	}
	if deps.Users == nil {
		return nil, fmt.Errorf("nil Users handler")
	}
	if deps.RequestIDMW == nil {
		return nil, fmt.Errorf("nil RequestID middleware")
	}
	if deps.AuthMW == nil {
		return nil, fmt.Errorf("nil Auth middleware")
	}
	if deps.PrivilegedMW == nil {
		return nil, fmt.Errorf("nil Privileged middleware")
	}

	r := chi.NewRouter()
	r.Use(deps.RequestIDMW)
	r.Use(chimw.Recoverer)
	if deps.MetricsMW != nil {
		r.Use(deps.MetricsMW)
	}

	r.Get("/healthz", deps.Health.Healthz)
	r.Get("/readyz", deps.Health.Readyz)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/users/v1", func(r chi.Router) {
		r.With(optional(deps.SignInLimitMW)).Post("/sign-in", deps.Auth.SignIn)
		r.With(optional(deps.RefreshLimitMW)).Post("/refresh", deps.Auth.Refresh)

		r.Group(func(r chi.Router) {
			r.Use(deps.AuthMW)

			r.Get("/me", deps.Users.Me)
			r.Put("/me", deps.Users.UpdateMe)
			r.Get("/users", deps.Users.List)
			r.Get("/users/{id}", deps.Users.Get)

			r.Group(func(r chi.Router) {
				r.Use(deps.PrivilegedMW)

				r.Put("/users/{id}/role", deps.Users.ChangeRole)
				r.Post("/users/{id}/ban", deps.Users.Ban)
				r.Post("/users/{id}/unban", deps.Users.Unban)
				r.Get("/users/{id}/status-history", deps.Users.StatusHistory)
			})
		})
	})

	return r, nil
}

func optional(mw Middleware) Middleware {
	if mw == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return mw
}
