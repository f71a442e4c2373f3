package ports

import "github.com/99minutos/member-portal/internal/core/domain"

// TokenService signs and verifies session tokens.
type TokenService interface {
	Issue(user domain.SanitizedUser) (string, error)
	// Verify never errors: any malformed, forged or expired token yields false.
	Verify(token string) (domain.SanitizedUser, bool)
}

// PasswordHasher hashes and checks plaintext passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) bool
}
