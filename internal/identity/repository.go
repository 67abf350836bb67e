// Package identity provides account registration, login and token validation.
package identity

import (
	"context"

	"github.com/bissquit/storefront/internal/domain"
)

// Repository defines the credential store.
//
// CreateUser assigns ID and JoinedAt. A duplicate email must fail with
// ErrEmailExists; an unreachable medium with an error wrapping ErrStorage.
// Lookups return ErrUserNotFound when nothing matches.
type Repository interface {
	CreateUser(ctx context.Context, user *domain.User) error
	GetUserByID(ctx context.Context, id int64) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}
