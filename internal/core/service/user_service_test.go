package service

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/identitylab/user-access-api/internal/core/domain"
	"github.com/identitylab/user-access-api/internal/core/ports"
	"github.com/identitylab/user-access-api/internal/token"
)

// stubStore mimics the transactional user store: mutations are staged by the
// unit of work and only applied at Complete, where uniqueness is enforced as
// the final authority.
type stubStore struct {
	users  map[int]*domain.User
	nextID int

	// raceUsername simulates a concurrent registration that slipped past the
	// service pre-check: ExistsByUsername lies for this username while the
	// commit-time uniqueness check still catches the duplicate.
	raceUsername string
}

func newStubStore() *stubStore {
	return &stubStore{users: make(map[int]*domain.User)}
}

func (s *stubStore) usernameHeld(username string, exceptID int) bool {
	for id, u := range s.users {
		if u.Username == username && id != exceptID {
			return true
		}
	}
	return false
}

type stubFactory struct {
	store *stubStore
}

func (f *stubFactory) Begin(context.Context) (ports.UnitOfWork, error) {
	return &stubUnitOfWork{store: f.store}, nil
}

type stubUnitOfWork struct {
	store  *stubStore
	staged []func() (int, error)
}

func (u *stubUnitOfWork) Users() ports.UserRepository { return &stubRepo{uow: u} }

func (u *stubUnitOfWork) Complete(context.Context) (int, error) {
	total := 0
	for _, op := range u.staged {
		n, err := op()
		if err != nil {
			return 0, err
		}
		total += n
	}
	u.staged = nil
	return total, nil
}

func (u *stubUnitOfWork) Dispose() { u.staged = nil }

type stubRepo struct {
	uow *stubUnitOfWork
}

func clone(u *domain.User) *domain.User {
	c := *u
	return &c
}

func (r *stubRepo) GetByID(_ context.Context, id int) (*domain.User, error) {
	u, ok := r.uow.store.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return clone(u), nil
}

func (r *stubRepo) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	for _, u := range r.uow.store.users {
		if u.Username == username {
			return clone(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubRepo) ExistsByUsername(_ context.Context, username string) (bool, error) {
	if username == r.uow.store.raceUsername {
		return false, nil
	}
	return r.uow.store.usernameHeld(username, 0), nil
}

func (r *stubRepo) GetAll(context.Context) ([]domain.User, error) {
	store := r.uow.store
	ids := make([]int, 0, len(store.users))
	for id := range store.users {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	users := make([]domain.User, 0, len(ids))
	for _, id := range ids {
		users = append(users, *store.users[id])
	}
	return users, nil
}

func (r *stubRepo) Add(user *domain.User) {
	store := r.uow.store
	r.uow.staged = append(r.uow.staged, func() (int, error) {
		if store.usernameHeld(user.Username, 0) {
			return 0, domain.ErrUsernameTaken
		}
		store.nextID++
		user.ID = store.nextID
		store.users[user.ID] = clone(user)
		return 1, nil
	})
}

func (r *stubRepo) AddRange(users []*domain.User) {
	for _, u := range users {
		r.Add(u)
	}
}

func (r *stubRepo) Update(user *domain.User) {
	store := r.uow.store
	u := clone(user)
	r.uow.staged = append(r.uow.staged, func() (int, error) {
		if store.usernameHeld(u.Username, u.ID) {
			return 0, domain.ErrUsernameTaken
		}
		if _, ok := store.users[u.ID]; !ok {
			return 0, nil
		}
		store.users[u.ID] = u
		return 1, nil
	})
}

func (r *stubRepo) Remove(user *domain.User) {
	store := r.uow.store
	id := user.ID
	r.uow.staged = append(r.uow.staged, func() (int, error) {
		if _, ok := store.users[id]; !ok {
			return 0, nil
		}
		delete(store.users, id)
		return 1, nil
	})
}

const testSecret = "test-secret"

func newTestService(store *stubStore) *UserService {
	return NewUserService(&stubFactory{store: store}, token.NewJWT(testSecret, time.Hour), zerolog.Nop())
}

func register(t *testing.T, svc *UserService, username, password string, role domain.Role) {
	t.Helper()
	err := svc.Register(context.Background(), ports.RegisterInput{
		FirstName: "First",
		LastName:  "Last",
		Username:  username,
		Password:  password,
		Role:      role,
	})
	if err != nil {
		t.Fatalf("register %s: %v", username, err)
	}
}

func TestUserService_Authenticate_Success(t *testing.T) {
	store := newStubStore()
	svc := newTestService(store)
	register(t, svc, "alice", "p1", domain.RoleUser)

	result, err := svc.Authenticate(context.Background(), ports.AuthenticateInput{Username: "alice", Password: "p1"})
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if result.Username != "alice" || result.Role != domain.RoleUser {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.Token == "" {
		t.Fatalf("expected token")
	}

	id, err := token.NewJWT(testSecret, time.Hour).Verify(result.Token)
	if err != nil {
		t.Fatalf("issued token does not verify: %v", err)
	}
	if id != result.ID {
		t.Fatalf("token user id %d, want %d", id, result.ID)
	}
}

func TestUserService_Authenticate_WrongPassword(t *testing.T) {
	store := newStubStore()
	svc := newTestService(store)
	register(t, svc, "alice", "p1", domain.RoleUser)

	_, err := svc.Authenticate(context.Background(), ports.AuthenticateInput{Username: "alice", Password: "wrong"})
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestUserService_Authenticate_UnknownUser(t *testing.T) {
	svc := newTestService(newStubStore())

	// Unknown username and wrong password must be indistinguishable.
	_, err := svc.Authenticate(context.Background(), ports.AuthenticateInput{Username: "ghost", Password: "p"})
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestUserService_Register_HashesPassword(t *testing.T) {
	store := newStubStore()
	svc := newTestService(store)
	register(t, svc, "alice", "p1", domain.RoleUser)

	stored := store.users[1]
	if stored.PasswordHash == "p1" {
		t.Fatalf("expected password to be hashed")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("p1")); err != nil {
		t.Fatalf("stored hash does not match password: %v", err)
	}
}

func TestUserService_Register_Duplicate(t *testing.T) {
	store := newStubStore()
	svc := newTestService(store)
	register(t, svc, "alice", "p1", domain.RoleUser)

	err := svc.Register(context.Background(), ports.RegisterInput{
		FirstName: "B", LastName: "B", Username: "alice", Password: "p2", Role: domain.RoleUser,
	})
	if !errors.Is(err, domain.ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
	if len(store.users) != 1 {
		t.Fatalf("expected 1 user, got %d", len(store.users))
	}
}

func TestUserService_Register_DuplicateRace(t *testing.T) {
	store := newStubStore()
	svc := newTestService(store)
	register(t, svc, "alice", "p1", domain.RoleUser)

	// The pre-check misses the existing user; the store-level uniqueness
	// check at commit time must still reject the duplicate.
	store.raceUsername = "alice"
	err := svc.Register(context.Background(), ports.RegisterInput{
		FirstName: "B", LastName: "B", Username: "alice", Password: "p2", Role: domain.RoleUser,
	})
	if !errors.Is(err, domain.ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken from commit, got %v", err)
	}
	if len(store.users) != 1 {
		t.Fatalf("expected 1 user, got %d", len(store.users))
	}
}

func TestUserService_Register_InvalidRole(t *testing.T) {
	svc := newTestService(newStubStore())

	err := svc.Register(context.Background(), ports.RegisterInput{
		FirstName: "A", LastName: "A", Username: "a", Password: "p", Role: "Superuser",
	})
	if !errors.Is(err, domain.ErrInvalidRole) {
		t.Fatalf("expected ErrInvalidRole, got %v", err)
	}
}

func TestUserService_Update_NotFound(t *testing.T) {
	svc := newTestService(newStubStore())

	err := svc.Update(context.Background(), 99, ports.UpdateInput{
		FirstName: "A", LastName: "A", Username: "a", Role: domain.RoleUser,
	})
	if !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestUserService_Update_RenameConflict(t *testing.T) {
	store := newStubStore()
	svc := newTestService(store)
	register(t, svc, "alice", "p1", domain.RoleUser)
	register(t, svc, "bob", "p2", domain.RoleUser)

	err := svc.Update(context.Background(), 2, ports.UpdateInput{
		FirstName: "Bob", LastName: "B", Username: "alice", Role: domain.RoleUser,
	})
	if !errors.Is(err, domain.ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
	if store.users[2].Username != "bob" {
		t.Fatalf("user 2 must be unchanged, got username %q", store.users[2].Username)
	}
}

func TestUserService_Update_EmptyPasswordKeepsHash(t *testing.T) {
	store := newStubStore()
	svc := newTestService(store)
	register(t, svc, "alice", "p1", domain.RoleUser)
	before := store.users[1].PasswordHash

	err := svc.Update(context.Background(), 1, ports.UpdateInput{
		FirstName: "Alicia", LastName: "L", Username: "alice", Role: domain.RoleAdmin,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	after := store.users[1]
	if after.PasswordHash != before {
		t.Fatalf("password hash must be unchanged")
	}
	if after.FirstName != "Alicia" || after.Role != domain.RoleAdmin {
		t.Fatalf("fields not updated: %+v", after)
	}
}

func TestUserService_Update_NewPasswordRehashed(t *testing.T) {
	store := newStubStore()
	svc := newTestService(store)
	register(t, svc, "alice", "p1", domain.RoleUser)
	before := store.users[1].PasswordHash

	err := svc.Update(context.Background(), 1, ports.UpdateInput{
		FirstName: "First", LastName: "Last", Username: "alice", Password: "p2", Role: domain.RoleUser,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	after := store.users[1].PasswordHash
	if after == before {
		t.Fatalf("password hash must change")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(after), []byte("p2")); err != nil {
		t.Fatalf("new hash does not match new password: %v", err)
	}
}

func TestUserService_Delete(t *testing.T) {
	store := newStubStore()
	svc := newTestService(store)
	register(t, svc, "alice", "p1", domain.RoleAdmin)
	register(t, svc, "bob", "p2", domain.RoleUser)

	if err := svc.Delete(context.Background(), 2); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.GetByID(context.Background(), 2); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound after delete, got %v", err)
	}
}

func TestUserService_Delete_NotFound(t *testing.T) {
	svc := newTestService(newStubStore())
	if err := svc.Delete(context.Background(), 99); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestUserService_GetAll_Idempotent(t *testing.T) {
	store := newStubStore()
	svc := newTestService(store)
	register(t, svc, "alice", "p1", domain.RoleAdmin)
	register(t, svc, "bob", "p2", domain.RoleUser)

	first, err := svc.GetAll(context.Background())
	if err != nil {
		t.Fatalf("getall: %v", err)
	}
	second, err := svc.GetAll(context.Background())
	if err != nil {
		t.Fatalf("getall: %v", err)
	}

	if len(first) != 2 || len(second) != 2 {
		t.Fatalf("expected 2 users in both snapshots, got %d and %d", len(first), len(second))
	}
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Fatalf("snapshots differ at %d: %d vs %d", i, first[i].ID, second[i].ID)
		}
	}
}

func TestUserService_Seed(t *testing.T) {
	store := newStubStore()
	svc := newTestService(store)

	seed := []*domain.User{
		{FirstName: "Admin", LastName: "User", Username: "admin", PasswordHash: "h1", Role: domain.RoleAdmin},
		{FirstName: "Normal", LastName: "User", Username: "user", PasswordHash: "h2", Role: domain.RoleUser},
	}

	created, err := svc.Seed(context.Background(), seed)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if created != 2 {
		t.Fatalf("expected 2 created, got %d", created)
	}

	// Seeding again is a no-op: both usernames already exist.
	created, err = svc.Seed(context.Background(), seed)
	if err != nil {
		t.Fatalf("re-seed: %v", err)
	}
	if created != 0 {
		t.Fatalf("expected 0 created on re-seed, got %d", created)
	}
}

func TestUserService_RegisterThenAuthenticate(t *testing.T) {
	store := newStubStore()
	svc := newTestService(store)
	register(t, svc, "alice", "p1", domain.RoleUser)

	if _, err := svc.Authenticate(context.Background(), ports.AuthenticateInput{Username: "alice", Password: "p1"}); err != nil {
		t.Fatalf("authenticate with correct password: %v", err)
	}
	if _, err := svc.Authenticate(context.Background(), ports.AuthenticateInput{Username: "alice", Password: "p2"}); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials with wrong password, got %v", err)
	}
}
