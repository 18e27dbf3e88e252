package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/icritic/users-service/internal/domain"
)

type Config struct {
	// App
	Env string `validate:"oneof=dev staging prod"`
	// HTTP
	HTTPAddr string `validate:"required"`

	// Tokens
	JWTAccessSecret     string `validate:"required"`
	JWTRefreshSecret    string `validate:"required,nefield=JWTAccessSecret"`
	JWTIssuer           string
	AccessTokenTTL      time.Duration `validate:"gt=0"`
	RefreshTokenTTL     time.Duration `validate:"gtfield=AccessTokenTTL"`
	RotateRefreshTokens bool

	BcryptCost int `validate:"min=4,max=31"`

	// Guard policy
	RoleChangeMinRole   domain.Role
	StatusChangeMinRole domain.Role

	// Infrastructure
	DBAddr        string `validate:"required"`
	DBDebug       bool
	DBAutoMigrate bool
	SeedDevUsers  bool

	RedisAddr     string
	RedisPassword string
	RedisDB       int `validate:"min=0"`

	RabbitURL      string
	RabbitExchange string `validate:"required"`

	HTTPReadTimeout  time.Duration `validate:"gt=0"`
	HTTPWriteTimeout time.Duration `validate:"gt=0"`
	HTTPIdleTimeout  time.Duration `validate:"gt=0"`
}

func (c *Config) IsDev() bool { return c.Env == "dev" }

// LoadDotEnv reads .env style files into the environment. Missing files
// are ignored and variables already set win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

func Load() (*Config, error) {
	var err error
	cfg := &Config{
		Env:            strings.ToLower(getEnv("ENV", "dev")),
		HTTPAddr:       getEnv("HTTP_ADDR", ":8080"),
		JWTIssuer:      getEnv("JWT_ISSUER", "users-service"),
		RabbitExchange: getEnv("RABBIT_EXCHANGE", "users.events"),
	}

	cfg.JWTAccessSecret = os.Getenv("JWT_ACCESS_SECRET")
	if cfg.JWTAccessSecret == "" {
		return nil, fmt.Errorf("missing required env var: JWT_ACCESS_SECRET")
	}
	cfg.JWTRefreshSecret = os.Getenv("JWT_REFRESH_SECRET")
	if cfg.JWTRefreshSecret == "" {
		return nil, fmt.Errorf("missing required env var: JWT_REFRESH_SECRET")
	}

	if cfg.AccessTokenTTL, err = getDuration("ACCESS_TOKEN_TTL", 15*time.Minute); err != nil {
		return nil, err
	}
	if cfg.RefreshTokenTTL, err = getDuration("REFRESH_TOKEN_TTL", 10*cfg.AccessTokenTTL); err != nil {
		return nil, err
	}
	if cfg.RotateRefreshTokens, err = getBool("ROTATE_REFRESH_TOKENS", true); err != nil {
		return nil, err
	}
	if cfg.BcryptCost, err = getInt("BCRYPT_COST", 12); err != nil {
		return nil, err
	}

	if cfg.RoleChangeMinRole, err = getRole("ROLE_CHANGE_MIN_ROLE", domain.RoleAdmin); err != nil {
		return nil, err
	}
	if cfg.StatusChangeMinRole, err = getRole("STATUS_CHANGE_MIN_ROLE", domain.RoleAdmin); err != nil {
		return nil, err
	}

	cfg.DBAddr = os.Getenv("DB_ADDR")
	if cfg.DBAddr == "" {
		return nil, fmt.Errorf("missing required env var: DB_ADDR")
	}
	if err := validatePostgresDSN(cfg.DBAddr); err != nil {
		return nil, err
	}
	if cfg.DBDebug, err = getBool("DB_DEBUG", false); err != nil {
		return nil, err
	}
	if cfg.DBAutoMigrate, err = getBool("DB_AUTO_MIGRATE", cfg.IsDev()); err != nil {
		return nil, err
	}
	if cfg.SeedDevUsers, err = getBool("SEED_DEV_USERS", cfg.IsDev()); err != nil {
		return nil, err
	}

	cfg.RedisAddr = os.Getenv("REDIS_ADDR")
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	if cfg.RedisDB, err = getInt("REDIS_DB", 0); err != nil {
		return nil, err
	}

	// outside dev the broker is required
	cfg.RabbitURL = os.Getenv("RABBIT_URL")
	if cfg.RabbitURL == "" && !cfg.IsDev() {
		return nil, fmt.Errorf("missing required env var: RABBIT_URL")
	}

	if cfg.HTTPReadTimeout, err = getDuration("HTTP_READ_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.HTTPWriteTimeout, err = getDuration("HTTP_WRITE_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.HTTPIdleTimeout, err = getDuration("HTTP_IDLE_TIMEOUT", time.Minute); err != nil {
		return nil, err
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func validatePostgresDSN(dsn string) error {
	u, err := url.Parse(dsn)
	if err != nil {
		return fmt.Errorf("invalid DB_ADDR: %w", err)
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return fmt.Errorf("invalid DB_ADDR scheme %q", u.Scheme)
	}
	if strings.Trim(u.Path, "/") == "" {
		return fmt.Errorf("DB_ADDR must name a database")
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s: %q: %w", key, v, err)
	}
	return d, nil
}

func getBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid bool for %s: %q: %w", key, v, err)
	}
	return b, nil
}

func getInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid int for %s: %q: %w", key, v, err)
	}
	return n, nil
}

func getRole(key string, def domain.Role) (domain.Role, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	r, ok := domain.ParseRole(v)
	if !ok {
		return "", fmt.Errorf("invalid role for %s: %q", key, v)
	}
	return r, nil
}
