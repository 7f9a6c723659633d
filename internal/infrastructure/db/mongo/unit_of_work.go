package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/identitylab/user-access-api/internal/core/domain"
	"github.com/identitylab/user-access-api/internal/core/ports"
)

type stagedOp func(sc mongo.SessionContext) (int64, error)

// UnitOfWork collects staged repository mutations and commits them inside a
// single MongoDB session transaction. Reads bypass the transaction. No
// session is held between calls: Complete opens one, runs every staged
// operation, and ends it on every exit path.
type UnitOfWork struct {
	client *mongo.Client
	users  *UserRepository
	staged []stagedOp
	done   bool
}

// Users returns the repository bound to this unit of work.
func (u *UnitOfWork) Users() ports.UserRepository {
	return u.users
}

func (u *UnitOfWork) stage(op stagedOp) {
	if u.done {
		panic("mongo: mutation staged on a completed unit of work")
	}
	u.staged = append(u.staged, op)
}

// Complete commits all staged mutations atomically and returns the number of
// affected records. A duplicate-key violation anywhere in the batch surfaces
// as domain.ErrUsernameTaken; any other store failure as domain.ErrPersistence.
func (u *UnitOfWork) Complete(ctx context.Context) (int, error) {
	if u.done {
		return 0, fmt.Errorf("%w: unit of work already completed", domain.ErrPersistence)
	}
	u.done = true

	ops := u.staged
	u.staged = nil
	if len(ops) == 0 {
		return 0, nil
	}

	session, err := u.client.StartSession()
	if err != nil {
		return 0, fmt.Errorf("%w: start session: %v", domain.ErrPersistence, err)
	}
	defer session.EndSession(ctx)

	var affected int64
	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		affected = 0
		for _, op := range ops {
			n, err := op(sc)
			if err != nil {
				return nil, err
			}
			affected += n
		}
		return nil, nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrUsernameTaken) || mongo.IsDuplicateKeyError(err) {
			return 0, domain.ErrUsernameTaken
		}
		return 0, fmt.Errorf("%w: commit: %v", domain.ErrPersistence, err)
	}

	return int(affected), nil
}

// Dispose discards staged, uncommitted mutations so an aborted operation
// cannot leak writes into a later commit. Idempotent; a no-op after Complete.
func (u *UnitOfWork) Dispose() {
	u.staged = nil
	u.done = true
}

// UnitOfWorkFactory hands out one UnitOfWork per logical service operation.
type UnitOfWorkFactory struct {
	client *mongo.Client
	db     *mongo.Database
}

func NewUnitOfWorkFactory(client *mongo.Client, db *mongo.Database) *UnitOfWorkFactory {
	return &UnitOfWorkFactory{client: client, db: db}
}

func (f *UnitOfWorkFactory) Begin(_ context.Context) (ports.UnitOfWork, error) {
	uow := &UnitOfWork{client: f.client}
	uow.users = &UserRepository{
		coll:     f.db.Collection(userCollection),
		counters: f.db.Collection(counterCollection),
		owner:    uow,
	}
	return uow, nil
}
