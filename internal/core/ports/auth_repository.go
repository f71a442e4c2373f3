package ports

import (
	"context"

	"github.com/99minutos/member-portal/internal/core/domain"
)

// UserRepository is the credential store. Create must report a unique-index
// violation on email as domain.ErrDuplicateEmail; lookups and updates report
// a miss as domain.ErrUserNotFound.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	// FindByEmail returns the record without its password hash.
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	// FindCredentials returns the record including its password hash.
	FindCredentials(ctx context.Context, email string) (*domain.User, error)
	Update(ctx context.Context, email string, patch domain.UserPatch) error
}
