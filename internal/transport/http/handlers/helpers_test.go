package http_handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/icritic/users-service/internal/application/auth"
	"github.com/icritic/users-service/internal/domain"
	"github.com/icritic/users-service/internal/infrastructure/memory"
	"github.com/icritic/users-service/internal/infrastructure/security"
	"github.com/icritic/users-service/internal/transport/http/middleware"
	"github.com/icritic/users-service/internal/transport/http/response"
)

type testEnv struct {
	repo   *memory.UserRepo
	tokens *security.JWTService
	svc    *auth.Service
	auth   *AuthHandler
	users  *UsersHandler

	admin domain.User
	mod   domain.User
	ana   domain.User
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()

	repo := memory.NewUserRepo()
	hasher := security.NewBcryptHasher(bcrypt.MinCost)
	tokens, err := security.NewJWTService(security.JWTConfig{
		AccessSecret:  "access-secret",
		RefreshSecret: "refresh-secret",
		Issuer:        "users-service",
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
	})
	if err != nil {
		t.Fatalf("jwt service: %v", err)
	}

	create := func(email, pw string, role domain.Role, active bool) domain.User {
		hash, err := hasher.Hash(pw)
		if err != nil {
			t.Fatalf("hash: %v", err)
		}
		u, err := repo.Create(context.Background(), domain.User{
			Email:        email,
			PasswordHash: hash,
			Name:         email,
			Role:         role,
			Active:       active,
			Country:      &domain.Country{ID: 1},
		})
		if err != nil {
			t.Fatalf("create %s: %v", email, err)
		}
		return u
	}

	env := testEnv{repo: repo, tokens: tokens}
	env.admin = create("admin@x.com", "root-pass", domain.RoleAdmin, true)
	env.mod = create("mod@x.com", "mod-pass", domain.RoleModerator, true)
	env.ana = create("ana@x.com", "ana-pass", domain.RoleDefault, true)

	env.svc = auth.NewService(repo, hasher, tokens, auth.NewGuard(auth.DefaultPolicy()), auth.Config{RotateRefreshTokens: true}).
		WithRefreshLedger(memory.NewRefreshLedger())
	env.auth = NewAuthHandler(env.svc, time.Hour, false)
	env.users = NewUsersHandler(env.svc)
	return env
}

func mustJSONBody(t *testing.T, v any) io.Reader {
	t.Helper()

	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("json marshal: %v", err)
	}
	return bytes.NewReader(b)
}

// mustReadData decodes the {"data": ...} envelope into out.
func mustReadData(t *testing.T, rr *httptest.ResponseRecorder, out any) {
	t.Helper()

	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil || len(env.Data) == 0 {
		t.Fatalf("decode envelope failed; body=%s", rr.Body.String())
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		t.Fatalf("decode data failed; body=%s err=%v", rr.Body.String(), err)
	}
}

func requireError(t *testing.T, rr *httptest.ResponseRecorder, wantStatus int, wantCode string) {
	t.Helper()

	if rr.Code != wantStatus {
		t.Fatalf("expected status %d, got %d; body=%s", wantStatus, rr.Code, rr.Body.String())
	}
	var body response.ErrorBody
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body: %v; body=%s", err, rr.Body.String())
	}
	if body.Error.Code != wantCode {
		t.Fatalf("expected code %q, got %q", wantCode, body.Error.Code)
	}
}

func readCookie(rr *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rr.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func asUser(req *http.Request, u domain.User) *http.Request {
	return req.WithContext(middleware.WithUser(req.Context(), u.ID, u.Role))
}

// withURLParam injects a chi URL param (e.g. /users/{id}) into the request context.
func withURLParam(req *http.Request, key, val string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, val)

	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	return req.WithContext(ctx)
}

func withID(req *http.Request, id int64) *http.Request {
	return withURLParam(req, "id", strconv.FormatInt(id, 10))
}

func asActor(u domain.User) auth.Actor { return auth.Actor{ID: u.ID, Role: u.Role} }
