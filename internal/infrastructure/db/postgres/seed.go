package postgres

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/icritic/users-service/internal/domain"
)

type SeederHasher interface {
	Hash(password string) (string, error)
}

type SeederRepo interface {
	Create(ctx context.Context, u domain.User) (domain.User, error)
}

type SeedUser struct {
	Email string
	Name  string
	Role  domain.Role
	Pass  string
}

// DevSeedUsers is one account per role for local environments.
var DevSeedUsers = []SeedUser{
	{Email: "admin@example.com", Name: "Admin", Role: domain.RoleAdmin, Pass: "AdminPassword123!"},
	{Email: "moderator@example.com", Name: "Moderator", Role: domain.RoleModerator, Pass: "ModeratorPassword123!"},
	{Email: "user@example.com", Name: "User", Role: domain.RoleDefault, Pass: "UserPassword123!"},
}

// SeedUsers creates the given accounts, skipping ones that already exist.
// It returns how many were created.
func SeedUsers(ctx context.Context, repo SeederRepo, hasher SeederHasher, seeds []SeedUser, lg zerolog.Logger) int {
	created := 0
	for _, s := range seeds {
		hash, err := hasher.Hash(s.Pass)
		if err != nil {
			lg.Warn().Err(err).Str("email", s.Email).Msg("seed hash failed")
			continue
		}

		_, err = repo.Create(ctx, domain.User{
			Email:        s.Email,
			Name:         s.Name,
			PasswordHash: hash,
			Role:         s.Role,
			Active:       true,
		})
		if err != nil {
			// duplicates are expected on restart
			if !domain.Is(err, "email_already_exists") {
				lg.Warn().Err(err).Str("email", s.Email).Msg("seed create failed")
			}
			continue
		}
		created++
	}

	lg.Info().Int("created", created).Msg("users seeded")
	return created
}
