package auth

import (
	"context"
	"sync"

	"github.com/icritic/users-service/internal/domain"
)

// CredentialVerifier checks an email/password pair against stored hashes.
// Unknown email and wrong password fail identically.
type CredentialVerifier struct {
	users  UserByEmailFinder
	hasher PasswordHasher

	dummyOnce sync.Once
	dummyHash string
}

func NewCredentialVerifier(users UserByEmailFinder, hasher PasswordHasher) *CredentialVerifier {
	return &CredentialVerifier{users: users, hasher: hasher}
}

// Verify returns the stored user (hash included) when the password matches.
// The active flag is not checked here.
func (v *CredentialVerifier) Verify(ctx context.Context, email, password string) (domain.User, error) {
	email = domain.NormalizeEmail(email)
	if email == "" || password == "" {
		return domain.User{}, domain.ErrInvalidCredentials()
	}

	u, err := v.users.FindByEmail(ctx, email)
	if err != nil {
		if domain.Is(err, "user_not_found") {
			// same hashing cost as a real comparison
			_ = v.hasher.Compare(v.dummy(), password)
			return domain.User{}, domain.ErrInvalidCredentials()
		}
		return domain.User{}, err
	}

	if err := v.hasher.Compare(u.PasswordHash, password); err != nil {
		return domain.User{}, domain.ErrInvalidCredentials()
	}
	return u, nil
}

// fallbackDummyHash is a well-formed cost 12 bcrypt hash no password maps to
// in practice; used when the hasher cannot produce one.
const fallbackDummyHash = "$2a$12$DCq7YPn5Rq63x1Lad4cll.TV4S6ytwfsfvkgY8jIucDrjc8deX1s."

func (v *CredentialVerifier) dummy() string {
	v.dummyOnce.Do(func() {
		v.dummyHash = fallbackDummyHash
		if h, err := v.hasher.Hash("users-service-timing-equalizer"); err == nil && h != "" {
			v.dummyHash = h
		}
	})
	return v.dummyHash
}
