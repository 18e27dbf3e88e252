package auth

import (
	"context"

	"github.com/icritic/users-service/internal/domain"
)

// SignIn verifies credentials and returns the user without its hash.
// It does not reject banned accounts; Login does.
func (s *Service) SignIn(ctx context.Context, email, password string) (domain.User, error) {
	u, err := s.credentials.Verify(ctx, email, password)
	if err != nil {
		return domain.User{}, err
	}
	return u.Redacted(), nil
}

// IssueTokens mints an access/refresh pair for the user's id and role.
func (s *Service) IssueTokens(u domain.User) (TokenPair, error) {
	if u.ID <= 0 || !u.Role.Valid() {
		return TokenPair{}, domain.ErrInternal(nil)
	}
	return s.tokens.Issue(u.ID, u.Role)
}

// Login is SignIn, an active-account check, then IssueTokens.
// IMPORTANT: must not leak whether the email exists.
func (s *Service) Login(ctx context.Context, email, password string) (LoginResult, error) {
	const action = "auth.sign_in"
	normalized := domain.NormalizeEmail(email)

	u, err := s.SignIn(ctx, email, password)
	if err != nil {
		s.audit(action, map[string]string{"email": normalized, "result": "error", "error_code": domainCode(err)})
		return LoginResult{}, err
	}
	audit := s.auditor(action, Actor{ID: u.ID, Role: u.Role}, u.ID)

	if !u.Active {
		err := domain.ErrAccountBanned()
		audit("error", err, map[string]string{"email": normalized})
		return LoginResult{}, err
	}

	toks, err := s.IssueTokens(u)
	if err != nil {
		audit("error", err, nil)
		return LoginResult{}, err
	}

	audit("success", nil, map[string]string{"email": normalized})
	return LoginResult{User: u, Tokens: toks}, nil
}
