package auth

import (
	"time"

	"github.com/icritic/users-service/internal/domain"
)

type Service struct {
	users  UserRepo
	tokens TokenService
	guard  *Guard

	credentials *CredentialVerifier
	status      *StatusMachine

	ledger RefreshLedger
	rotate bool
	audit  func(action string, fields map[string]string)
	now    func() time.Time
}

type Config struct {
	// RotateRefreshTokens issues a new refresh token on every refresh.
	// When false the presented refresh token is handed back unchanged.
	RotateRefreshTokens bool
}

func NewService(
	users UserRepo,
	hasher PasswordHasher,
	tokens TokenService,
	guard *Guard,
	cfg Config,
) *Service {
	if guard == nil {
		guard = NewGuard(DefaultPolicy())
	}
	return &Service{
		users:       users,
		tokens:      tokens,
		guard:       guard,
		credentials: NewCredentialVerifier(users, hasher),
		status:      NewStatusMachine(users, users, guard),
		rotate:      cfg.RotateRefreshTokens,
		audit:       func(string, map[string]string) {},
		now:         time.Now,
	}
}

// LoginResult is the common output for handlers/DTO mapping.
type LoginResult struct {
	User   domain.User
	Tokens TokenPair
}

func (s *Service) WithAudit(fn func(action string, fields map[string]string)) *Service {
	if fn != nil {
		s.audit = fn
	}
	return s
}

// WithRefreshLedger enables replay detection for rotated refresh tokens.
func (s *Service) WithRefreshLedger(l RefreshLedger) *Service {
	s.ledger = l
	return s
}

// WithClock stamps role changes and status transitions with now.
func (s *Service) WithClock(now func() time.Time) *Service {
	if now != nil {
		s.now = now
		s.status.now = now
	}
	return s
}

func (s *Service) Guard() *Guard { return s.guard }
