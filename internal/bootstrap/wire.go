package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/icritic/users-service/internal/application/auth"
	"github.com/icritic/users-service/internal/audit"
	"github.com/icritic/users-service/internal/config"
	"github.com/icritic/users-service/internal/domain"
	"github.com/icritic/users-service/internal/infrastructure/db/postgres"
	"github.com/icritic/users-service/internal/infrastructure/memory"
	"github.com/icritic/users-service/internal/infrastructure/messaging"
	"github.com/icritic/users-service/internal/infrastructure/messaging/rabbitmq"
	"github.com/icritic/users-service/internal/infrastructure/redis"
	"github.com/icritic/users-service/internal/infrastructure/security"
	"github.com/icritic/users-service/internal/logger"
	http_handlers "github.com/icritic/users-service/internal/transport/http/handlers"
	"github.com/icritic/users-service/internal/transport/http/middleware"
	"github.com/icritic/users-service/internal/transport/http/response"
	"github.com/icritic/users-service/internal/transport/http/router"
)

/*
========================
 Public entry (prod)
========================
*/

func NewServer() (*http.Server, func(), error) {
	return newServer(defaultDeps())
}

// NewServerWithDeps allows injecting dependencies for testing
func NewServerWithDeps(deps Deps) (*http.Server, func(), error) {
	return newServer(deps)
}

/*
========================
 Dependency injection
========================
*/

type Deps struct {
	LoadConfig func() (*config.Config, error)

	NewDB func(dsn string, debug bool) (*sql.DB, error)

	Migrate func(ctx context.Context, db *sql.DB) error

	NewRedis func(addr, password string, db int) *redis.Client

	NewPublisher func(url, exchange string) (Publisher, error)

	NewRouter func(router.Deps) (http.Handler, error)
}

type Publisher interface {
	auth.EventPublisher
	Close() error
}

/*
========================
 Core bootstrap logic
========================
*/

func newServer(deps Deps) (*http.Server, func(), error) {
	lg := logger.Logger

	// 0) config
	cfg, err := deps.LoadConfig()
	if err != nil {
		return nil, nil, err
	}

	// 1) db
	db, err := deps.NewDB(cfg.DBAddr, cfg.DBDebug)
	if err != nil {
		return nil, nil, err
	}

	cleanupFns := []func(){
		func() { _ = db.Close() },
	}
	fail := func(err error) (*http.Server, func(), error) {
		runCleanup(cleanupFns)
		return nil, nil, err
	}

	if cfg.DBAutoMigrate && deps.Migrate != nil {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		err := deps.Migrate(ctx, db)
		cancel()
		if err != nil {
			return fail(fmt.Errorf("migrate: %w", err))
		}
	}

	// 2) user repo
	userRepo := postgres.NewUserRepo(db)
	hasher := security.NewBcryptHasher(cfg.BcryptCost)

	if cfg.SeedDevUsers {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		postgres.SeedUsers(ctx, userRepo, hasher, postgres.DevSeedUsers, lg)
		cancel()
	}

	// 3) redis (best-effort)
	var redisCli *redis.Client
	if deps.NewRedis != nil && cfg.RedisAddr != "" {
		c := deps.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err := c.Ping(ctx)
		cancel()

		if err != nil {
			lg.Warn().Err(err).Msg("redis unavailable; rate limits disabled, refresh ledger in memory")
			_ = c.Close()
		} else {
			lg.Info().Msg("redis connected")
			redisCli = c
			cleanupFns = append(cleanupFns, func() { _ = c.Close() })
		}
	}

	var ledger auth.RefreshLedger
	var limiter *redis.FixedWindowLimiter
	if redisCli != nil {
		ledger = redis.NewRefreshLedger(redisCli)
		limiter = redis.NewFixedWindowLimiter(redisCli)
	} else {
		// single-instance only
		ledger = memory.NewRefreshLedger()
	}

	// 4) publisher
	pub, err := newPublisher(deps, cfg)
	if err != nil {
		return fail(err)
	}
	cleanupFns = append(cleanupFns, func() { _ = pub.Close() })

	// status and role writes publish through the repo decorator
	repo := messaging.NewNotifyingRepo(userRepo, pub, lg)

	// 5) security
	lg.Info().Str("issuer", cfg.JWTIssuer).Msg("initializing jwt service")
	tokens, err := security.NewJWTService(security.JWTConfig{
		AccessSecret:  cfg.JWTAccessSecret,
		RefreshSecret: cfg.JWTRefreshSecret,
		Issuer:        cfg.JWTIssuer,
		AccessTTL:     cfg.AccessTokenTTL,
		RefreshTTL:    cfg.RefreshTokenTTL,
	})
	if err != nil {
		return fail(err)
	}

	// 6) service
	guard := auth.NewGuard(auth.Policy{
		RoleChangeMin:   cfg.RoleChangeMinRole,
		StatusChangeMin: cfg.StatusChangeMinRole,
	})
	svc := auth.NewService(repo, hasher, tokens, guard, auth.Config{
		RotateRefreshTokens: cfg.RotateRefreshTokens,
	}).
		WithAudit(audit.New(lg).Record).
		WithRefreshLedger(ledger)

	// 7) handlers + middleware
	secureCookies := !cfg.IsDev()

	authH := http_handlers.NewAuthHandler(svc, tokens.RefreshTTL(), secureCookies)
	usersH := http_handlers.NewUsersHandler(svc)
	healthH := http_handlers.NewHealthHandler(db)

	policy := guard.Policy()
	gate := policy.RoleChangeMin
	if policy.StatusChangeMin.Rank() < gate.Rank() {
		gate = policy.StatusChangeMin
	}

	// rate limit (fail-open)
	rl := func(scope string, limit int, window time.Duration) router.Middleware {
		if limiter == nil {
			return nil
		}
		return middleware.RateLimitFixedWindow(
			limiter,
			middleware.FixedWindowConfig{Scope: scope, Limit: limit, Window: window},
			response.WriteError,
		)
	}

	// 8) router
	mux, err := deps.NewRouter(router.Deps{
		Health: healthH,
		Auth:   authH,
		Users:  usersH,

		RequestIDMW:  middleware.RequestID,
		MetricsMW:    middleware.Metrics,
		AuthMW:       middleware.Auth(tokens, response.WriteError),
		PrivilegedMW: middleware.RequireAtLeast(gate, response.WriteError),

		SignInLimitMW:  rl("sign_in", 5, time.Minute),
		RefreshLimitMW: rl("refresh", 10, time.Minute),
	})
	if err != nil {
		return fail(err)
	}

	// 9) server
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           mux,
		ReadTimeout:       cfg.HTTPReadTimeout,
		ReadHeaderTimeout: cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
	}

	lg.Info().
		Str("env", cfg.Env).
		Bool("redis", redisCli != nil).
		Str("role_change_min", policy.RoleChangeMin.String()).
		Str("status_change_min", policy.StatusChangeMin.String()).
		Msg("server wired")

	cleanup := func() {
		runCleanup(cleanupFns)
	}

	return srv, cleanup, nil
}

// newPublisher connects to RabbitMQ. In dev an absent or unreachable broker
// degrades to a logging no-op publisher; elsewhere it is fatal.
func newPublisher(deps Deps, cfg *config.Config) (Publisher, error) {
	noop := func() Publisher {
		return closerPublisher{memory.NewNoopPublisher(logger.Logger)}
	}

	if cfg.RabbitURL == "" || deps.NewPublisher == nil {
		if cfg.IsDev() {
			logger.Logger.Warn().Msg("RABBIT_URL not set; using noop publisher")
			return noop(), nil
		}
		return nil, domain.ErrRabbitUnavailable(fmt.Errorf("RABBIT_URL is required in %s", cfg.Env))
	}

	pub, err := deps.NewPublisher(cfg.RabbitURL, cfg.RabbitExchange)
	if err != nil {
		if cfg.IsDev() {
			logger.Logger.Warn().Err(err).Msg("rabbitmq unavailable; using noop publisher")
			return noop(), nil
		}
		return nil, err
	}
	return pub, nil
}

type closerPublisher struct {
	*memory.NoopPublisher
}

func (closerPublisher) Close() error { return nil }

/*
========================
 Default deps (prod)
========================
*/

func defaultDeps() Deps {
	return Deps{
		LoadConfig: func() (*config.Config, error) {
			if err := config.LoadDotEnv(); err != nil {
				return nil, err
			}
			return config.Load()
		},
		NewDB: func(dsn string, debug bool) (*sql.DB, error) {
			return config.NewDB(dsn, debug, logger.Logger)
		},
		Migrate: postgres.Migrate,
		NewRedis: func(addr, password string, db int) *redis.Client {
			return redis.New(addr, password, db)
		},
		NewPublisher: func(url, exchange string) (Publisher, error) {
			return rabbitmq.NewPublisher(url, exchange)
		},
		NewRouter: func(d router.Deps) (http.Handler, error) {
			return router.New(d)
		},
	}
}

/*
========================
 helpers
========================
*/

func runCleanup(fns []func()) {
	for i := len(fns) - 1; i >= 0; i-- {
		fns[i]()
	}
}
