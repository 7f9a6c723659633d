package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/identitylab/user-access-api/internal/core/domain"
)

const (
	userCollection    = "users"
	counterCollection = "counters"
	userSequence      = "user_id"
)

type mongoUser struct {
	ID           int    `bson:"_id"`
	FirstName    string `bson:"first_name"`
	LastName     string `bson:"last_name"`
	Username     string `bson:"username"`
	PasswordHash string `bson:"password_hash"`
	Role         string `bson:"role"`
}

type counterDoc struct {
	ID  string `bson:"_id"`
	Seq int    `bson:"seq"`
}

// UserRepository implements typed CRUD over the users collection. Reads run
// against the given context directly; mutations are only staged on the owning
// unit of work and execute inside its transaction.
type UserRepository struct {
	coll     *mongo.Collection
	counters *mongo.Collection
	owner    *UnitOfWork // nil for a read-only repository
}

// NewUserReader returns a read-only repository suitable for lookups outside
// a unit of work, e.g. from the authentication middleware.
func NewUserReader(db *mongo.Database) *UserRepository {
	return &UserRepository{
		coll:     db.Collection(userCollection),
		counters: db.Collection(counterCollection),
	}
}

func (r *UserRepository) GetByID(ctx context.Context, id int) (*domain.User, error) {
	var mu mongoUser
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&mu); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("%w: find user by id: %v", domain.ErrPersistence, err)
	}
	return fromMongoUser(mu), nil
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	var mu mongoUser
	if err := r.coll.FindOne(ctx, bson.M{"username": username}).Decode(&mu); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("%w: find user by username: %v", domain.ErrPersistence, err)
	}
	return fromMongoUser(mu), nil
}

func (r *UserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{"username": username}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("%w: count users by username: %v", domain.ErrPersistence, err)
	}
	return n > 0, nil
}

// GetAll returns a snapshot of every user, sorted by id for stable output.
func (r *UserRepository) GetAll(ctx context.Context) ([]domain.User, error) {
	cursor, err := r.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("%w: list users: %v", domain.ErrPersistence, err)
	}
	defer cursor.Close(ctx)

	var docs []mongoUser
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("%w: decode users: %v", domain.ErrPersistence, err)
	}

	users := make([]domain.User, 0, len(docs))
	for _, mu := range docs {
		users = append(users, *fromMongoUser(mu))
	}
	return users, nil
}

// Add stages an insert. The id is allocated from the counter sequence inside
// the commit transaction and written back to user.
func (r *UserRepository) Add(user *domain.User) {
	r.mustOwner().stage(func(sc mongo.SessionContext) (int64, error) {
		return r.insert(sc, user)
	})
}

// AddRange stages inserts for several users as part of the same commit.
func (r *UserRepository) AddRange(users []*domain.User) {
	r.mustOwner().stage(func(sc mongo.SessionContext) (int64, error) {
		var affected int64
		for _, u := range users {
			n, err := r.insert(sc, u)
			if err != nil {
				return affected, err
			}
			affected += n
		}
		return affected, nil
	})
}

// Update stages a full replace of the user's document.
func (r *UserRepository) Update(user *domain.User) {
	id := user.ID
	r.mustOwner().stage(func(sc mongo.SessionContext) (int64, error) {
		res, err := r.coll.ReplaceOne(sc, bson.M{"_id": id}, toMongoUser(user))
		if err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return 0, domain.ErrUsernameTaken
			}
			return 0, fmt.Errorf("replace user: %w", err)
		}
		return res.ModifiedCount, nil
	})
}

// Remove stages a delete.
func (r *UserRepository) Remove(user *domain.User) {
	id := user.ID
	r.mustOwner().stage(func(sc mongo.SessionContext) (int64, error) {
		res, err := r.coll.DeleteOne(sc, bson.M{"_id": id})
		if err != nil {
			return 0, fmt.Errorf("delete user: %w", err)
		}
		return res.DeletedCount, nil
	})
}

func (r *UserRepository) insert(sc mongo.SessionContext, user *domain.User) (int64, error) {
	id, err := r.nextID(sc)
	if err != nil {
		return 0, err
	}

	doc := toMongoUser(user)
	doc.ID = id
	if _, err := r.coll.InsertOne(sc, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return 0, domain.ErrUsernameTaken
		}
		return 0, fmt.Errorf("insert user: %w", err)
	}

	user.ID = id
	return 1, nil
}

// nextID atomically increments and returns the user id sequence.
func (r *UserRepository) nextID(sc mongo.SessionContext) (int, error) {
	var counter counterDoc
	err := r.counters.FindOneAndUpdate(
		sc,
		bson.M{"_id": userSequence},
		bson.M{"$inc": bson.M{"seq": 1}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("next user id: %w", err)
	}
	return counter.Seq, nil
}

func (r *UserRepository) mustOwner() *UnitOfWork {
	if r.owner == nil {
		panic("mongo: user repository mutation outside a unit of work")
	}
	return r.owner
}

func toMongoUser(u *domain.User) mongoUser {
	return mongoUser{
		ID:           u.ID,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		Username:     u.Username,
		PasswordHash: u.PasswordHash,
		Role:         string(u.Role),
	}
}

func fromMongoUser(mu mongoUser) *domain.User {
	return &domain.User{
		ID:           mu.ID,
		FirstName:    mu.FirstName,
		LastName:     mu.LastName,
		Username:     mu.Username,
		PasswordHash: mu.PasswordHash,
		Role:         domain.Role(mu.Role),
	}
}
