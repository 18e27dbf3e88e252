// Command tool holds operator helpers: password hashing for manual seeding,
// token minting for local testing, and schema migrations.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/icritic/users-service/internal/config"
	"github.com/icritic/users-service/internal/domain"
	"github.com/icritic/users-service/internal/infrastructure/db/postgres"
	"github.com/icritic/users-service/internal/infrastructure/security"
	"github.com/icritic/users-service/internal/logger"
)

const usage = `usage: tool <command> [flags]

commands:
  hash                      read a password and print its bcrypt hash
  token -user ID -role ROLE print an access/refresh pair (JWT_* env vars)
  migrate [up|version]      apply or inspect schema migrations (DB_ADDR)
`

// passwordReader is swapped in tests.
var passwordReader = readPassword

func main() {
	logger.Init()
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return 2
	}

	var err error
	switch args[0] {
	case "hash":
		err = cmdHash(args[1:], stdin, stdout)
	case "token":
		err = cmdToken(args[1:], stdout)
	case "migrate":
		err = cmdMigrate(args[1:], stdout)
	case "-h", "--help", "help":
		fmt.Fprint(stdout, usage)
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", args[0], usage)
		return 2
	}
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}
	return 0
}

func cmdHash(args []string, stdin io.Reader, stdout io.Writer) error {
	fs := flag.NewFlagSet("hash", flag.ContinueOnError)
	cost := fs.Int("cost", envInt("BCRYPT_COST", 12), "bcrypt cost")
	if err := fs.Parse(args); err != nil {
		return err
	}

	pw, err := passwordReader(stdin)
	if err != nil {
		return err
	}
	if pw == "" {
		return errors.New("empty password")
	}

	hash, err := security.NewBcryptHasher(*cost).Hash(pw)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, hash)
	return nil
}

// readPassword prompts without echo on a terminal and reads one line otherwise.
func readPassword(stdin io.Reader) (string, error) {
	if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(os.Stderr, "password: ")
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	line, err := bufio.NewReader(stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func cmdToken(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	userID := fs.Int64("user", 0, "user id")
	roleName := fs.String("role", string(domain.RoleDefault), "role")
	if err := fs.Parse(args); err != nil {
		return err
	}

	role, ok := domain.ParseRole(*roleName)
	if !ok {
		return domain.ErrInvalidRole(*roleName)
	}

	accessTTL, err := envDuration("ACCESS_TOKEN_TTL", 0)
	if err != nil {
		return err
	}
	refreshTTL, err := envDuration("REFRESH_TOKEN_TTL", 0)
	if err != nil {
		return err
	}
	issuer := os.Getenv("JWT_ISSUER")
	if issuer == "" {
		issuer = "users-service"
	}

	tokens, err := security.NewJWTService(security.JWTConfig{
		AccessSecret:  os.Getenv("JWT_ACCESS_SECRET"),
		RefreshSecret: os.Getenv("JWT_REFRESH_SECRET"),
		Issuer:        issuer,
		AccessTTL:     accessTTL,
		RefreshTTL:    refreshTTL,
	})
	if err != nil {
		return err
	}

	pair, err := tokens.Issue(*userID, role)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "access_token=%s\nrefresh_token=%s\nexpires_in=%d\n", pair.AccessToken, pair.RefreshToken, pair.ExpiresIn)
	return nil
}

func cmdMigrate(args []string, stdout io.Writer) error {
	action := "up"
	if len(args) > 0 {
		action = args[0]
	}
	if action != "up" && action != "version" {
		return fmt.Errorf("unknown migrate action %q", action)
	}

	dsn := os.Getenv("DB_ADDR")
	if dsn == "" {
		return errors.New("missing required env var: DB_ADDR")
	}
	db, err := config.NewDB(dsn, false, logger.Logger)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if action == "up" {
		if err := postgres.Migrate(ctx, db); err != nil {
			return err
		}
	}
	v, err := postgres.MigrationVersion(ctx, db)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "schema version %d\n", v)
	return nil
}

func envInt(key string, def int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return def
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
