package ports

import "context"

// UnitOfWork groups staged repository mutations into a single atomic commit.
type UnitOfWork interface {
	// Users returns the repository bound to this unit of work.
	Users() UserRepository

	// Complete commits all staged mutations atomically and returns the number
	// of affected records. A store-level uniqueness violation surfaces as
	// domain.ErrUsernameTaken; any other store failure as domain.ErrPersistence.
	Complete(ctx context.Context) (int, error)

	// Dispose discards staged, uncommitted mutations. Safe to defer on every
	// exit path; a no-op after Complete.
	Dispose()
}

// UnitOfWorkFactory hands out one unit of work per logical service operation.
type UnitOfWorkFactory interface {
	Begin(ctx context.Context) (UnitOfWork, error)
}
