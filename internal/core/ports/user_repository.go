package ports

import (
	"context"

	"github.com/identitylab/user-access-api/internal/core/domain"
)

// UserReader is the read-only lookup surface over the user store. It is safe
// to use outside a unit of work (e.g. from the authentication middleware).
type UserReader interface {
	GetByID(ctx context.Context, id int) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	GetAll(ctx context.Context) ([]domain.User, error)
}

// UserRepository adds staged mutations on top of UserReader. Mutations are
// only staged, never written, until the owning unit of work completes.
type UserRepository interface {
	UserReader

	Add(user *domain.User)
	AddRange(users []*domain.User)
	Update(user *domain.User)
	Remove(user *domain.User)
}
