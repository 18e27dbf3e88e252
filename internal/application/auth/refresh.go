package auth

import (
	"context"
	"strings"

	"github.com/icritic/users-service/internal/domain"
)

// RefreshAccessToken exchanges a refresh token for a new pair carrying the
// same user id and role. Storage is not consulted for the user.
// Rotation rule: with a ledger configured, a refresh token works once.
func (s *Service) RefreshAccessToken(ctx context.Context, refreshToken string) (TokenPair, error) {
	const action = "auth.refresh"

	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return TokenPair{}, domain.ErrTokenMissing()
	}

	pair, old, err := s.tokens.Refresh(refreshToken)
	if err != nil {
		s.audit(action, map[string]string{"result": "error", "error_code": domainCode(err)})
		return TokenPair{}, err
	}
	audit := s.auditor(action, Actor{ID: old.UserID, Role: old.Role}, old.UserID)

	if !s.rotate {
		pair.RefreshToken = refreshToken
		pair.RefreshExpiresAt = old.ExpiresAt
		audit("success", nil, map[string]string{"rotated": "false"})
		return pair, nil
	}

	if s.ledger != nil {
		fresh, err := s.ledger.Consume(ctx, old.ID, old.ExpiresAt)
		if err != nil {
			audit("error", err, nil)
			return TokenPair{}, err
		}
		if !fresh {
			err := domain.ErrRefreshTokenReused()
			audit("error", err, map[string]string{"jti": old.ID})
			return TokenPair{}, err
		}
	}

	audit("success", nil, map[string]string{"rotated": "true"})
	return pair, nil
}
