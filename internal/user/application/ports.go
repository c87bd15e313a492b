package application

import (
	"context"

	"github.com/felixzhu97/orderflow/internal/user/domain"
)

// UserRepository persists the user aggregate with the same Save contract as
// the other repositories: insert at Version 0, version-checked update after.
type UserRepository interface {
	FindByID(ctx context.Context, id string) (domain.User, error)
	FindByEmail(ctx context.Context, email string) (domain.User, error)
	FindByUsername(ctx context.Context, username string) (domain.User, error)
	Save(ctx context.Context, u domain.User) (domain.User, error)
	Delete(ctx context.Context, id string) error
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
}

type PasswordHasher interface {
	Hash(plain string) (string, error)
	Compare(hash, plain string) error
}
