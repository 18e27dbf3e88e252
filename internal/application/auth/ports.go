package auth

import (
	"context"
	"time"

	"github.com/icritic/users-service/internal/domain"
)

/*
Boundary contracts
------------------
Storage ports the core depends on. Each one is a single capability so a
component only asks for what it uses. An absent user is reported as
domain.ErrUserNotFound; every other failure is propagated unchanged.
*/
type UserByEmailFinder interface {
	FindByEmail(ctx context.Context, email string) (domain.User, error)
}

type UserByIDFinder interface {
	FindByID(ctx context.Context, id int64) (domain.User, error)
}

type UsersLister interface {
	FindAll(ctx context.Context) ([]domain.User, error)
}

type UserUpdater interface {
	UpdateUser(ctx context.Context, id int64, upd domain.UserUpdate) (domain.User, error)
}

type UserRoleUpdater interface {
	UpdateRole(ctx context.Context, id int64, role domain.Role) error
}

// UserStatusUpdater writes the active flag and persists the transition
// record as one unit.
type UserStatusUpdater interface {
	UpdateStatus(ctx context.Context, t domain.StatusTransition) error
}

type RoleCounter interface {
	CountByRole(ctx context.Context, role domain.Role) (int, error)
}

// StatusHistoryReader lists persisted transitions, newest first.
type StatusHistoryReader interface {
	StatusHistory(ctx context.Context, userID int64) ([]domain.StatusTransition, error)
}

// UserRepo is the full storage surface a single adapter provides.
type UserRepo interface {
	UserByEmailFinder
	UserByIDFinder
	UsersLister
	UserUpdater
	UserRoleUpdater
	UserStatusUpdater
	RoleCounter
	StatusHistoryReader
}

/*
PasswordHasher
--------------
Abstracts bcrypt.
*/
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash string, password string) error // nil if match
}

/*
TokenService
------------
Issues and verifies signed, time-limited bearer tokens.
Pure CPU work: no storage is consulted.
*/
type TokenClass int

const (
	AccessToken TokenClass = iota + 1
	RefreshToken
)

func (c TokenClass) String() string {
	switch c {
	case AccessToken:
		return "access"
	case RefreshToken:
		return "refresh"
	default:
		return "unknown"
	}
}

type TokenClaims struct {
	ID        string // jti
	UserID    int64
	Role      domain.Role
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	ExpiresIn        int64  // access token lifetime, seconds
	TokenType        string // "Bearer"
	RefreshExpiresAt time.Time
}

type TokenService interface {
	Issue(userID int64, role domain.Role) (TokenPair, error)
	Verify(token string, class TokenClass) (TokenClaims, error)
	// Refresh returns a fresh pair plus the claims of the presented refresh token.
	Refresh(refreshToken string) (TokenPair, TokenClaims, error)
}

/*
RefreshLedger
-------------
Remembers consumed refresh token ids until they expire.
Consume reports false when the id was already used.
*/
type RefreshLedger interface {
	Consume(ctx context.Context, tokenID string, expiresAt time.Time) (bool, error)
}

/*
EventPublisher
--------------
Publishes user lifecycle events after a successful write.
*/
type EventPublisher interface {
	PublishStatusChanged(ctx context.Context, evt StatusChangedEvent) error
	PublishRoleChanged(ctx context.Context, evt RoleChangedEvent) error
}

type StatusChangedEvent struct {
	UserID  int64
	ActorID int64
	Action  domain.BanAction
	Motive  string
	At      time.Time
}

type RoleChangedEvent struct {
	UserID int64
	Role   domain.Role
	At     time.Time
}

// Actor is the verified caller of a privileged operation.
type Actor struct {
	ID   int64
	Role domain.Role
}
