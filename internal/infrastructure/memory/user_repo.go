package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/icritic/users-service/internal/domain"
)

// UserRepo is an in-process store used in dev mode and by handler tests.
type UserRepo struct {
	mu sync.RWMutex

	seq         int64
	byID        map[int64]domain.User
	byEmail     map[string]int64
	countries   map[int64]domain.Country
	transitions []domain.StatusTransition
	now         func() time.Time
}

// DefaultCountries mirrors the rows the SQL migrations seed.
var DefaultCountries = []domain.Country{
	{ID: 1, Name: "Argentina"},
	{ID: 2, Name: "Brazil"},
	{ID: 3, Name: "Chile"},
	{ID: 4, Name: "Colombia"},
	{ID: 5, Name: "Mexico"},
	{ID: 6, Name: "Peru"},
	{ID: 7, Name: "Spain"},
	{ID: 8, Name: "United States"},
}

func NewUserRepo() *UserRepo {
	r := &UserRepo{
		byID:      make(map[int64]domain.User),
		byEmail:   make(map[string]int64),
		countries: make(map[int64]domain.Country),
		now:       time.Now,
	}
	for _, c := range DefaultCountries {
		r.countries[c.ID] = c
	}
	return r
}

// clone detaches the Country pointer from the stored copy.
func clone(u domain.User) domain.User {
	if u.Country != nil {
		c := *u.Country
		u.Country = &c
	}
	return u
}

func (r *UserRepo) FindByEmail(ctx context.Context, email string) (domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[domain.NormalizeEmail(email)]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound()
	}
	return clone(r.byID[id]), nil
}

func (r *UserRepo) FindByID(ctx context.Context, id int64) (domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound()
	}
	return clone(u), nil
}

func (r *UserRepo) FindAll(ctx context.Context) ([]domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.User, 0, len(r.byID))
	for _, u := range r.byID {
		out = append(out, clone(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *UserRepo) UpdateUser(ctx context.Context, id int64, upd domain.UserUpdate) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound()
	}
	if upd.CountryID != nil {
		c, ok := r.countries[*upd.CountryID]
		if !ok {
			return domain.User{}, domain.ErrCountryNotFound()
		}
		u.Country = &c
	}
	if upd.Name != nil {
		u.Name = *upd.Name
	}
	if upd.Description != nil {
		u.Description = *upd.Description
	}
	r.byID[id] = u
	return clone(u), nil
}

func (r *UserRepo) UpdateRole(ctx context.Context, id int64, role domain.Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return domain.ErrUserNotFound()
	}
	u.Role = role
	r.byID[id] = u
	return nil
}

// UpdateStatus writes the flag and appends the transition under one lock.
func (r *UserRepo) UpdateStatus(ctx context.Context, t domain.StatusTransition) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[t.UserID]
	if !ok {
		return domain.ErrUserNotFound()
	}
	u.Active = t.Active()
	r.byID[t.UserID] = u
	r.transitions = append(r.transitions, t)
	return nil
}

func (r *UserRepo) CountByRole(ctx context.Context, role domain.Role) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, u := range r.byID {
		if u.Role == role {
			n++
		}
	}
	return n, nil
}

func (r *UserRepo) StatusHistory(ctx context.Context, userID int64) ([]domain.StatusTransition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []domain.StatusTransition{}
	for i := len(r.transitions) - 1; i >= 0; i-- {
		if r.transitions[i].UserID == userID {
			out = append(out, r.transitions[i])
		}
	}
	return out, nil
}

// Create assigns the next id. Emails are unique after normalization.
func (r *UserRepo) Create(ctx context.Context, u domain.User) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u.Email = domain.NormalizeEmail(u.Email)
	if _, exists := r.byEmail[u.Email]; exists {
		return domain.User{}, domain.ErrEmailAlreadyExists()
	}
	if u.Country != nil {
		c, ok := r.countries[u.Country.ID]
		if !ok {
			return domain.User{}, domain.ErrCountryNotFound()
		}
		u.Country = &c
	}
	if !u.Role.Valid() {
		u.Role = domain.RoleDefault
	}

	r.seq++
	u.ID = r.seq
	if u.CreatedAt.IsZero() {
		u.CreatedAt = r.now().UTC()
	}
	r.byID[u.ID] = u
	r.byEmail[u.Email] = u.ID
	return clone(u), nil
}
