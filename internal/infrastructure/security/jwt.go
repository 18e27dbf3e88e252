package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/icritic/users-service/internal/application/auth"
	"github.com/icritic/users-service/internal/domain"
)

type JWTConfig struct {
	AccessSecret  string
	RefreshSecret string
	Issuer        string
	AccessTTL     time.Duration
	// RefreshTTL defaults to ten times AccessTTL.
	RefreshTTL time.Duration
}

const DefaultAccessTTL = 15 * time.Minute

// JWTService issues HS512 tokens. Access and refresh tokens are signed with
// different secrets, so a token only verifies as the class it was issued as.
type JWTService struct {
	accessSecret  []byte
	refreshSecret []byte
	issuer        string
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

func NewJWTService(cfg JWTConfig) (*JWTService, error) {
	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		return nil, errors.New("jwt: access and refresh secrets are required")
	}
	if cfg.AccessSecret == cfg.RefreshSecret {
		return nil, errors.New("jwt: access and refresh secrets must differ")
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = DefaultAccessTTL
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 10 * cfg.AccessTTL
	}
	if cfg.RefreshTTL <= cfg.AccessTTL {
		return nil, fmt.Errorf("jwt: refresh ttl %s must exceed access ttl %s", cfg.RefreshTTL, cfg.AccessTTL)
	}
	return &JWTService{
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		issuer:        cfg.Issuer,
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
		now:           time.Now,
	}, nil
}

func (s *JWTService) AccessTTL() time.Duration  { return s.accessTTL }
func (s *JWTService) RefreshTTL() time.Duration { return s.refreshTTL }

type userClaims struct {
	UserID int64  `json:"userId"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

func (s *JWTService) Issue(userID int64, role domain.Role) (auth.TokenPair, error) {
	if userID <= 0 || !role.Valid() {
		return auth.TokenPair{}, domain.ErrTokenSignFailed(fmt.Errorf("invalid subject %d/%q", userID, role))
	}
	now := s.now()

	access, err := s.sign(userID, role, now, s.accessTTL, s.accessSecret)
	if err != nil {
		return auth.TokenPair{}, err
	}
	refresh, err := s.sign(userID, role, now, s.refreshTTL, s.refreshSecret)
	if err != nil {
		return auth.TokenPair{}, err
	}

	return auth.TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		ExpiresIn:        int64(s.accessTTL.Seconds()),
		TokenType:        "Bearer",
		RefreshExpiresAt: jwt.NewNumericDate(now.Add(s.refreshTTL)).Time,
	}, nil
}

func (s *JWTService) sign(userID int64, role domain.Role, now time.Time, ttl time.Duration, secret []byte) (string, error) {
	claims := userClaims{
		UserID: userID,
		Role:   role.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(secret)
	if err != nil {
		return "", domain.ErrTokenSignFailed(err)
	}
	return signed, nil
}

// Verify checks signature first, then expiry. A token signed with the other
// class's secret is invalid whether or not it has expired.
func (s *JWTService) Verify(token string, class auth.TokenClass) (auth.TokenClaims, error) {
	var secret []byte
	switch class {
	case auth.AccessToken:
		secret = s.accessSecret
	case auth.RefreshToken:
		secret = s.refreshSecret
	default:
		return auth.TokenClaims{}, domain.ErrTokenInvalid()
	}

	opts := []jwt.ParserOption{
		// prevent alg confusion
		jwt.WithValidMethods([]string{jwt.SigningMethodHS512.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	parsed, err := jwt.ParseWithClaims(token, &userClaims{}, func(*jwt.Token) (any, error) {
		return secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return auth.TokenClaims{}, domain.ErrTokenExpired()
		}
		return auth.TokenClaims{}, domain.ErrTokenInvalid()
	}

	claims, ok := parsed.Claims.(*userClaims)
	if !ok || !parsed.Valid {
		return auth.TokenClaims{}, domain.ErrTokenInvalid()
	}
	role := domain.Role(claims.Role)
	if claims.UserID <= 0 || !role.Valid() || claims.ID == "" {
		return auth.TokenClaims{}, domain.ErrTokenInvalid()
	}

	out := auth.TokenClaims{
		ID:        claims.ID,
		UserID:    claims.UserID,
		Role:      role,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	return out, nil
}

// Refresh verifies a refresh token and issues a new pair for the same user and role.
func (s *JWTService) Refresh(refreshToken string) (auth.TokenPair, auth.TokenClaims, error) {
	claims, err := s.Verify(refreshToken, auth.RefreshToken)
	if err != nil {
		return auth.TokenPair{}, auth.TokenClaims{}, err
	}
	pair, err := s.Issue(claims.UserID, claims.Role)
	if err != nil {
		return auth.TokenPair{}, auth.TokenClaims{}, err
	}
	return pair, claims, nil
}
