package providers

import (
	"github.com/zatekoja/tutorscheduler/backend/internal/domain/entities"
)

// PasswordHasher hashes and verifies passwords
type PasswordHasher interface {
	Hash(password string) (string, error)
	// Compare returns nil when password matches hash
	Compare(hash, password string) error
}

// TokenManager issues and verifies session tokens
type TokenManager interface {
	Issue(user *entities.User) (string, error)
	Parse(token string) (*entities.Principal, error)
}
