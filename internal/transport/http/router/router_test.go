package router

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// ---------- fakes ----------

func write(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(msg))
}

type fakeHealth struct{}

func (fakeHealth) Healthz(w http.ResponseWriter, r *http.Request) { write(w, "ok") }
func (fakeHealth) Readyz(w http.ResponseWriter, r *http.Request)  { write(w, "ready") }

type fakeAuth struct{}

func (fakeAuth) SignIn(w http.ResponseWriter, r *http.Request)  { write(w, "sign_in") }
func (fakeAuth) Refresh(w http.ResponseWriter, r *http.Request) { write(w, "refresh") }

type fakeUsers struct{}

func (fakeUsers) List(w http.ResponseWriter, r *http.Request)     { write(w, "list") }
func (fakeUsers) Get(w http.ResponseWriter, r *http.Request)      { write(w, "get") }
func (fakeUsers) Me(w http.ResponseWriter, r *http.Request)       { write(w, "me") }
func (fakeUsers) UpdateMe(w http.ResponseWriter, r *http.Request) { write(w, "update_me") }
func (fakeUsers) ChangeRole(w http.ResponseWriter, r *http.Request) {
	write(w, "role")
}
func (fakeUsers) Ban(w http.ResponseWriter, r *http.Request)   { write(w, "ban") }
func (fakeUsers) Unban(w http.ResponseWriter, r *http.Request) { write(w, "unban") }
func (fakeUsers) StatusHistory(w http.ResponseWriter, r *http.Request) {
	write(w, "history")
}

func noopMW(next http.Handler) http.Handler { return next }

// tagMW appends its name to X-Chain so tests can see which middlewares ran.
func tagMW(name string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Add("X-Chain", name)
			next.ServeHTTP(w, r)
		})
	}
}

func baseDeps() Deps {
	return Deps{
		Health:         fakeHealth{},
		Auth:           fakeAuth{},
		Users:          fakeUsers{},
		RequestIDMW:    noopMW,
		AuthMW:         tagMW("auth"),
		PrivilegedMW:   tagMW("privileged"),
		SignInLimitMW:  tagMW("sign_in_limit"),
		RefreshLimitMW: tagMW("refresh_limit"),
	}
}

// ---------- tests ----------

func TestNew_RequiredDeps(t *testing.T) {
	t.Parallel()

	mutations := map[string]func(*Deps){
		"health":     func(d *Deps) { d.Health = nil },
		"auth":       func(d *Deps) { d.Auth = nil },
		"users":      func(d *Deps) { d.Users = nil },
		"request id": func(d *Deps) { d.RequestIDMW = nil },
		"auth mw":    func(d *Deps) { d.AuthMW = nil },
		"privileged": func(d *Deps) { d.PrivilegedMW = nil },
	}
	for name, mutate := range mutations {
		d := baseDeps()
		mutate(&d)
		if _, err := New(d); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}

	d := baseDeps()
	d.SignInLimitMW, d.RefreshLimitMW, d.MetricsMW = nil, nil, nil
	if _, err := New(d); err != nil {
		t.Fatalf("optional middlewares must not be required: %v", err)
	}
}

func TestNew_Routes(t *testing.T) {
	t.Parallel()

	h, err := New(baseDeps())
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	cases := []struct {
		method, path string
		body         string
		chain        string
	}{
		{http.MethodGet, "/healthz", "ok", ""},
		{http.MethodGet, "/readyz", "ready", ""},
		{http.MethodPost, "/users/v1/sign-in", "sign_in", "sign_in_limit"},
		{http.MethodPost, "/users/v1/refresh", "refresh", "refresh_limit"},
		{http.MethodGet, "/users/v1/me", "me", "auth"},
		{http.MethodPut, "/users/v1/me", "update_me", "auth"},
		{http.MethodGet, "/users/v1/users", "list", "auth"},
		{http.MethodGet, "/users/v1/users/3", "get", "auth"},
		{http.MethodPut, "/users/v1/users/3/role", "role", "auth,privileged"},
		{http.MethodPost, "/users/v1/users/3/ban", "ban", "auth,privileged"},
		{http.MethodPost, "/users/v1/users/3/unban", "unban", "auth,privileged"},
		{http.MethodGet, "/users/v1/users/3/status-history", "history", "auth,privileged"},
	}

	for _, tc := range cases {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(tc.method, tc.path, nil))

		if rr.Code != http.StatusOK || rr.Body.String() != tc.body {
			t.Fatalf("%s %s: got %d %q", tc.method, tc.path, rr.Code, rr.Body.String())
		}
		if got := strings.Join(rr.Header().Values("X-Chain"), ","); got != tc.chain {
			t.Fatalf("%s %s: middleware chain %q, want %q", tc.method, tc.path, got, tc.chain)
		}
	}
}

func TestNew_UnknownRouteAndMethod(t *testing.T) {
	t.Parallel()

	h, err := New(baseDeps())
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/auth/v1/login", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/users/v1/sign-in", nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rr.Code)
	}
}

func TestNew_MetricsEndpoint(t *testing.T) {
	t.Parallel()

	h, err := New(baseDeps())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "go_goroutines") {
		t.Fatalf("expected prometheus exposition, got %d", rr.Code)
	}
}

func TestNew_RecoversPanics(t *testing.T) {
	t.Parallel()

	d := baseDeps()
	d.AuthMW = func(http.Handler) http.Handler {
		return http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") })
	}
	h, err := New(d)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/users/v1/me", nil))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
}
