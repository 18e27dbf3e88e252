package http_handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/icritic/users-service/internal/domain"
	"github.com/icritic/users-service/internal/transport/http/dto"
)

func TestUsers_ListAndGet(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	rr := httptest.NewRecorder()
	env.users.List(rr, asUser(httptest.NewRequest(http.MethodGet, "/users/v1/users", nil), env.ana))
	var list []dto.UserView
	mustReadData(t, rr, &list)
	if len(list) != 3 || list[0].ID != env.admin.ID {
		t.Fatalf("unexpected list %+v", list)
	}

	rr = httptest.NewRecorder()
	env.users.Get(rr, withID(httptest.NewRequest(http.MethodGet, "/", nil), env.mod.ID))
	var got dto.UserView
	mustReadData(t, rr, &got)
	if got.Email != "mod@x.com" || got.Country == nil || got.Country.Name != "Argentina" {
		t.Fatalf("unexpected user %+v", got)
	}

	rr = httptest.NewRecorder()
	env.users.Get(rr, withID(httptest.NewRequest(http.MethodGet, "/", nil), 999))
	requireError(t, rr, http.StatusNotFound, "user_not_found")

	rr = httptest.NewRecorder()
	env.users.Get(rr, withURLParam(httptest.NewRequest(http.MethodGet, "/", nil), "id", "abc"))
	requireError(t, rr, http.StatusBadRequest, "invalid_field")
}

func TestUsers_Me(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	rr := httptest.NewRecorder()
	env.users.Me(rr, httptest.NewRequest(http.MethodGet, "/users/v1/me", nil))
	requireError(t, rr, http.StatusUnauthorized, "token_invalid")

	rr = httptest.NewRecorder()
	env.users.Me(rr, asUser(httptest.NewRequest(http.MethodGet, "/users/v1/me", nil), env.ana))
	var me dto.UserView
	mustReadData(t, rr, &me)
	if me.ID != env.ana.ID {
		t.Fatalf("unexpected me %+v", me)
	}
}

func TestUsers_UpdateMe_IgnoresEmailAndPassword(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPut, "/users/v1/me", mustJSONBody(t, map[string]any{
		"name":        "  Ana Maria ",
		"description": "critic",
		"countryId":   7,
		"email":       "evil@x.com",
		"password":    "new",
	}))
	rr := httptest.NewRecorder()
	env.users.UpdateMe(rr, asUser(req, env.ana))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}

	var v dto.UserView
	mustReadData(t, rr, &v)
	if v.Name != "Ana Maria" || v.Description != "critic" || v.Country == nil || v.Country.Name != "Spain" {
		t.Fatalf("unexpected profile %+v", v)
	}
	if v.Email != "ana@x.com" {
		t.Fatalf("email must not change, got %q", v.Email)
	}
}

func TestUsers_UpdateMe_Violations(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPut, "/users/v1/me", mustJSONBody(t, map[string]any{
		"name":      strings.Repeat("x", 101),
		"countryId": -1,
	}))
	rr := httptest.NewRecorder()
	env.users.UpdateMe(rr, asUser(req, env.ana))
	requireError(t, rr, http.StatusBadRequest, "resource_violation")

	req = httptest.NewRequest(http.MethodPut, "/users/v1/me", mustJSONBody(t, map[string]any{"countryId": 999}))
	rr = httptest.NewRecorder()
	env.users.UpdateMe(rr, asUser(req, env.ana))
	requireError(t, rr, http.StatusNotFound, "country_not_found")
}

func TestUsers_ChangeRole(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	change := func(actor domain.User, target int64, role string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPut, "/", mustJSONBody(t, map[string]string{"role": role}))
		rr := httptest.NewRecorder()
		env.users.ChangeRole(rr, withID(asUser(req, actor), target))
		return rr
	}

	rr := change(env.admin, env.ana.ID, "moderator")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	var v dto.UserView
	mustReadData(t, rr, &v)
	if v.Role != "MODERATOR" {
		t.Fatalf("unexpected role %q", v.Role)
	}

	requireError(t, change(env.mod, env.ana.ID, "ADMIN"), http.StatusForbidden, "insufficient_role")
	requireError(t, change(env.admin, env.admin.ID, "DEFAULT"), http.StatusForbidden, "cannot_affect_self")
	requireError(t, change(env.admin, env.ana.ID, "ROOT"), http.StatusBadRequest, "invalid_role")
	requireError(t, change(env.admin, 999, "ADMIN"), http.StatusNotFound, "user_not_found")
	requireError(t, change(env.admin, env.ana.ID, ""), http.StatusBadRequest, "resource_violation")
}

func TestUsers_BanUnbanAndHistory(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	post := func(h http.HandlerFunc, actor domain.User, target int64, body any) *httptest.ResponseRecorder {
		var req *http.Request
		if body == nil {
			req = httptest.NewRequest(http.MethodPost, "/", nil)
		} else {
			req = httptest.NewRequest(http.MethodPost, "/", mustJSONBody(t, body))
		}
		rr := httptest.NewRecorder()
		h(rr, withID(asUser(req, actor), target))
		return rr
	}

	requireError(t, post(env.users.Ban, env.admin, env.ana.ID, nil), http.StatusBadRequest, "resource_violation")
	requireError(t, post(env.users.Ban, env.mod, env.ana.ID, map[string]string{"motive": "x"}), http.StatusForbidden, "insufficient_role")
	requireError(t, post(env.users.Ban, env.admin, env.admin.ID, map[string]string{"motive": "x"}), http.StatusForbidden, "cannot_affect_self")

	rr := post(env.users.Ban, env.admin, env.ana.ID, map[string]string{"motive": "spam"})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	var tv dto.TransitionView
	mustReadData(t, rr, &tv)
	if tv.Action != "BAN" || tv.Status != "BANNED" || tv.Motive != "spam" || tv.ActorID != env.admin.ID {
		t.Fatalf("unexpected transition %+v", tv)
	}

	rr = post(env.users.Unban, env.admin, env.ana.ID, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("unban without body: expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rr = httptest.NewRecorder()
	env.users.StatusHistory(rr, withID(asUser(req, env.admin), env.ana.ID))
	var hist []dto.TransitionView
	mustReadData(t, rr, &hist)
	if len(hist) != 2 || hist[0].Action != "UNBAN" || hist[1].Action != "BAN" {
		t.Fatalf("unexpected history %+v", hist)
	}

	rr = httptest.NewRecorder()
	env.users.StatusHistory(rr, withID(asUser(httptest.NewRequest(http.MethodGet, "/", nil), env.ana), env.ana.ID))
	requireError(t, rr, http.StatusForbidden, "insufficient_role")
}

func TestUsers_PrivilegedRequiresActorAndID(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	rr := httptest.NewRecorder()
	env.users.Ban(rr, withID(httptest.NewRequest(http.MethodPost, "/", nil), env.ana.ID))
	requireError(t, rr, http.StatusUnauthorized, "token_invalid")

	rr = httptest.NewRecorder()
	env.users.Ban(rr, asUser(httptest.NewRequest(http.MethodPost, "/", nil), env.admin))
	requireError(t, rr, http.StatusBadRequest, "missing_field")
}
