package auth

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/icritic/users-service/internal/domain"
)

/*
Shared audit capture
*/

type auditEntry struct {
	action string
	fields map[string]string
}

/*
Fakes for ports
*/

type fakeUserRepo struct {
	mu sync.Mutex

	byID map[int64]domain.User

	// injected errors (if set, method returns error)
	findByEmailErr  error
	findByIDErr     error
	findAllErr      error
	updateUserErr   error
	updateRoleErr   error
	updateStatusErr error
	countByRoleErr  error

	// record calls
	transitions []domain.StatusTransition
	roleUpdates []struct {
		id   int64
		role domain.Role
	}
	emailLookups int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byID: map[int64]domain.User{}}
}

func (f *fakeUserRepo) put(u domain.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID[u.ID] = u
}

func (f *fakeUserRepo) get(id int64) domain.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byID[id]
}

func (f *fakeUserRepo) FindByEmail(ctx context.Context, email string) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.emailLookups++
	if f.findByEmailErr != nil {
		return domain.User{}, f.findByEmailErr
	}
	for _, u := range f.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return domain.User{}, domain.ErrUserNotFound()
}

func (f *fakeUserRepo) FindByID(ctx context.Context, id int64) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.findByIDErr != nil {
		return domain.User{}, f.findByIDErr
	}
	u, ok := f.byID[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound()
	}
	return u, nil
}

func (f *fakeUserRepo) FindAll(ctx context.Context) ([]domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.findAllErr != nil {
		return nil, f.findAllErr
	}
	out := make([]domain.User, 0, len(f.byID))
	for _, u := range f.byID {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeUserRepo) UpdateUser(ctx context.Context, id int64, upd domain.UserUpdate) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.updateUserErr != nil {
		return domain.User{}, f.updateUserErr
	}
	u, ok := f.byID[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound()
	}
	if upd.Name != nil {
		u.Name = *upd.Name
	}
	if upd.Description != nil {
		u.Description = *upd.Description
	}
	if upd.CountryID != nil {
		u.Country = &domain.Country{ID: *upd.CountryID}
	}
	f.byID[id] = u
	return u, nil
}

func (f *fakeUserRepo) UpdateRole(ctx context.Context, id int64, role domain.Role) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.updateRoleErr != nil {
		return f.updateRoleErr
	}
	u, ok := f.byID[id]
	if !ok {
		return domain.ErrUserNotFound()
	}
	u.Role = role
	f.byID[id] = u
	f.roleUpdates = append(f.roleUpdates, struct {
		id   int64
		role domain.Role
	}{id, role})
	return nil
}

func (f *fakeUserRepo) UpdateStatus(ctx context.Context, t domain.StatusTransition) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.updateStatusErr != nil {
		return f.updateStatusErr
	}
	u, ok := f.byID[t.UserID]
	if !ok {
		return domain.ErrUserNotFound()
	}
	u.Active = t.Active()
	f.byID[t.UserID] = u
	f.transitions = append(f.transitions, t)
	return nil
}

func (f *fakeUserRepo) CountByRole(ctx context.Context, role domain.Role) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.countByRoleErr != nil {
		return 0, f.countByRoleErr
	}
	cnt := 0
	for _, u := range f.byID {
		if u.Role == role {
			cnt++
		}
	}
	return cnt, nil
}

func (f *fakeUserRepo) StatusHistory(ctx context.Context, userID int64) ([]domain.StatusTransition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := []domain.StatusTransition{}
	for i := len(f.transitions) - 1; i >= 0; i-- {
		if f.transitions[i].UserID == userID {
			out = append(out, f.transitions[i])
		}
	}
	return out, nil
}

type fakeHasher struct {
	mu       sync.Mutex
	compares int
}

func (h *fakeHasher) Hash(password string) (string, error) {
	return "hash:" + password, nil
}

func (h *fakeHasher) Compare(hash string, password string) error {
	h.mu.Lock()
	h.compares++
	h.mu.Unlock()
	if hash == "hash:"+password {
		return nil
	}
	return errors.New("mismatch")
}

// fakeTokens encodes "class|jti|uid|role" in clear text.
type fakeTokens struct {
	mu  sync.Mutex
	seq int

	issueErr error
	// expiresAt overrides the one hour default expiry of verified tokens
	expiresAt time.Time
}

func (f *fakeTokens) Issue(userID int64, role domain.Role) (TokenPair, error) {
	if f.issueErr != nil {
		return TokenPair{}, f.issueErr
	}
	f.mu.Lock()
	f.seq++
	n := f.seq
	f.mu.Unlock()
	return TokenPair{
		AccessToken:  fmt.Sprintf("access|a%d|%d|%s", n, userID, role),
		RefreshToken: fmt.Sprintf("refresh|r%d|%d|%s", n, userID, role),
		ExpiresIn:    900,
		TokenType:    "Bearer",
	}, nil
}

func (f *fakeTokens) Verify(token string, class TokenClass) (TokenClaims, error) {
	parts := strings.Split(token, "|")
	if len(parts) != 4 || parts[0] != class.String() {
		return TokenClaims{}, domain.ErrTokenInvalid()
	}
	var uid int64
	if _, err := fmt.Sscan(parts[2], &uid); err != nil {
		return TokenClaims{}, domain.ErrTokenInvalid()
	}
	exp := time.Now().Add(time.Hour)
	if !f.expiresAt.IsZero() {
		exp = f.expiresAt
	}
	if !exp.After(time.Now()) {
		return TokenClaims{}, domain.ErrTokenExpired()
	}
	return TokenClaims{
		ID:        parts[1],
		UserID:    uid,
		Role:      domain.Role(parts[3]),
		ExpiresAt: exp,
	}, nil
}

func (f *fakeTokens) Refresh(refreshToken string) (TokenPair, TokenClaims, error) {
	claims, err := f.Verify(refreshToken, RefreshToken)
	if err != nil {
		return TokenPair{}, TokenClaims{}, err
	}
	pair, err := f.Issue(claims.UserID, claims.Role)
	if err != nil {
		return TokenPair{}, TokenClaims{}, err
	}
	return pair, claims, nil
}

type fakeLedger struct {
	mu   sync.Mutex
	used map[string]bool
	err  error
}

func (l *fakeLedger) Consume(ctx context.Context, id string, exp time.Time) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return false, l.err
	}
	if l.used == nil {
		l.used = map[string]bool{}
	}
	if l.used[id] {
		return false, nil
	}
	l.used[id] = true
	return true, nil
}

/*
Service factory for tests
*/

type testEnv struct {
	svc    *Service
	users  *fakeUserRepo
	hasher *fakeHasher
	tokens *fakeTokens
	audits *[]auditEntry
}

var (
	admin     = domain.User{ID: 1, Email: "admin@x.com", PasswordHash: "hash:root", Role: domain.RoleAdmin, Active: true}
	moderator = domain.User{ID: 2, Email: "mod@x.com", PasswordHash: "hash:mod", Role: domain.RoleModerator, Active: true}
	regular   = domain.User{ID: 3, Email: "ana@x.com", PasswordHash: "hash:pw", Name: "Ana", Role: domain.RoleDefault, Active: true}
)

func asActor(u domain.User) Actor { return Actor{ID: u.ID, Role: u.Role} }

func newSvcForTest(t *testing.T, opts ...func(*Config)) testEnv {
	t.Helper()

	users := newFakeUserRepo()
	users.put(admin)
	users.put(moderator)
	users.put(regular)

	hasher := &fakeHasher{}
	tokens := &fakeTokens{}

	cfg := Config{RotateRefreshTokens: true}
	for _, o := range opts {
		o(&cfg)
	}

	audits := &[]auditEntry{}
	var mu sync.Mutex
	svc := NewService(users, hasher, tokens, NewGuard(DefaultPolicy()), cfg).
		WithAudit(func(action string, fields map[string]string) {
			cp := map[string]string{}
			for k, v := range fields {
				cp[k] = v
			}
			mu.Lock()
			*audits = append(*audits, auditEntry{action: action, fields: cp})
			mu.Unlock()
		})

	if svc == nil {
		t.Fatalf("svc is nil")
	}
	return testEnv{svc: svc, users: users, hasher: hasher, tokens: tokens, audits: audits}
}

/*
Small assertions
*/

func requireDomainCode(t *testing.T, err error, wantCode string) {
	t.Helper()
	got := domainCode(err)
	if got != wantCode {
		t.Fatalf("expected domain code %q, got %q (err=%v)", wantCode, got, err)
	}
}

func lastAudit(audits *[]auditEntry) (auditEntry, bool) {
	if audits == nil || len(*audits) == 0 {
		return auditEntry{}, false
	}
	return (*audits)[len(*audits)-1], true
}

func requireAuditAction(t *testing.T, audits *[]auditEntry, wantAction string) auditEntry {
	t.Helper()
	e, ok := lastAudit(audits)
	if !ok {
		t.Fatalf("expected audit entry, got none")
	}
	if e.action != wantAction {
		t.Fatalf("expected audit action %q, got %q", wantAction, e.action)
	}
	return e
}

func requireAuditField(t *testing.T, e auditEntry, k, want string) {
	t.Helper()
	got := strings.TrimSpace(e.fields[k])
	if got != want {
		t.Fatalf("expected audit field %q=%q, got %q (all=%v)", k, want, got, e.fields)
	}
}
