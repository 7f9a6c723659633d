package ports

import (
	"context"

	"github.com/identitylab/user-access-api/internal/core/domain"
)

type AuthenticateInput struct {
	Username string
	Password string
}

// AuthenticateResult is the outcome of a successful authentication. It never
// carries the password hash.
type AuthenticateResult struct {
	ID        int         `json:"id"`
	FirstName string      `json:"firstName"`
	LastName  string      `json:"lastName"`
	Username  string      `json:"username"`
	Role      domain.Role `json:"role"`
	Token     string      `json:"token"`
}

type RegisterInput struct {
	FirstName string
	LastName  string
	Username  string
	Password  string
	Role      domain.Role
}

// UpdateInput mirrors RegisterInput, but an empty Password means "leave the
// stored hash unchanged".
type UpdateInput struct {
	FirstName string
	LastName  string
	Username  string
	Password  string
	Role      domain.Role
}

type UserService interface {
	Authenticate(ctx context.Context, input AuthenticateInput) (*AuthenticateResult, error)
	Register(ctx context.Context, input RegisterInput) error
	Update(ctx context.Context, id int, input UpdateInput) error
	Delete(ctx context.Context, id int) error
	GetByID(ctx context.Context, id int) (*domain.User, error)
	GetAll(ctx context.Context) ([]domain.User, error)
	Seed(ctx context.Context, users []*domain.User) (int, error)
}
