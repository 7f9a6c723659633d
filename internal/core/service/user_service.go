package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/identitylab/user-access-api/internal/api/metrics"
	"github.com/identitylab/user-access-api/internal/core/domain"
	"github.com/identitylab/user-access-api/internal/core/ports"
)

// UserService orchestrates authentication and user management against the
// unit of work and the token manager. It is stateless between calls; all
// state lives in the user store.
type UserService struct {
	uow    ports.UnitOfWorkFactory
	tokens ports.TokenManager
	logger zerolog.Logger
}

func NewUserService(uow ports.UnitOfWorkFactory, tokens ports.TokenManager, logger zerolog.Logger) *UserService {
	return &UserService{uow: uow, tokens: tokens, logger: logger}
}

// Authenticate verifies the credential and issues a token. The error is the
// same whether the username is unknown or the password wrong, so the caller
// cannot probe which of the two failed.
func (s *UserService) Authenticate(ctx context.Context, input ports.AuthenticateInput) (*ports.AuthenticateResult, error) {
	uow, err := s.uow.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer uow.Dispose()

	user, err := uow.Users().GetByUsername(ctx, input.Username)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			metrics.AuthAttemptsTotal.WithLabelValues("invalid_credentials").Inc()
			return nil, domain.ErrInvalidCredentials
		}
		metrics.AuthAttemptsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)) != nil {
		metrics.AuthAttemptsTotal.WithLabelValues("invalid_credentials").Inc()
		return nil, domain.ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		metrics.AuthAttemptsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	metrics.AuthAttemptsTotal.WithLabelValues("success").Inc()
	metrics.TokensIssuedTotal.Inc()
	s.logger.Info().Int("user_id", user.ID).Str("username", user.Username).Msg("user authenticated")

	return &ports.AuthenticateResult{
		ID:        user.ID,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Username:  user.Username,
		Role:      user.Role,
		Token:     token,
	}, nil
}

// Register creates a new user. The ExistsByUsername call is a best-effort
// pre-check for a clean error; the store's unique index remains the final
// authority and a racing duplicate still surfaces as ErrUsernameTaken from
// Complete. Registration does not log the user in.
func (s *UserService) Register(ctx context.Context, input ports.RegisterInput) error {
	if !input.Role.Valid() {
		return domain.ErrInvalidRole
	}

	uow, err := s.uow.Begin(ctx)
	if err != nil {
		return err
	}
	defer uow.Dispose()

	taken, err := uow.Users().ExistsByUsername(ctx, input.Username)
	if err != nil {
		return err
	}
	if taken {
		return domain.ErrUsernameTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Username:     input.Username,
		PasswordHash: string(hash),
		Role:         input.Role,
	}

	uow.Users().Add(user)
	if _, err := uow.Complete(ctx); err != nil {
		return err
	}

	s.logger.Info().Int("user_id", user.ID).Str("username", user.Username).Str("role", string(user.Role)).Msg("user registered")
	return nil
}

// Update rewrites the user's fields. Renaming to a username held by a
// different user fails with ErrUsernameTaken; an empty password leaves the
// stored hash unchanged.
func (s *UserService) Update(ctx context.Context, id int, input ports.UpdateInput) error {
	if !input.Role.Valid() {
		return domain.ErrInvalidRole
	}

	uow, err := s.uow.Begin(ctx)
	if err != nil {
		return err
	}
	defer uow.Dispose()

	user, err := uow.Users().GetByID(ctx, id)
	if err != nil {
		return err
	}

	if input.Username != user.Username {
		taken, err := uow.Users().ExistsByUsername(ctx, input.Username)
		if err != nil {
			return err
		}
		if taken {
			return domain.ErrUsernameTaken
		}
	}

	if input.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}
		user.PasswordHash = string(hash)
	}

	user.FirstName = input.FirstName
	user.LastName = input.LastName
	user.Username = input.Username
	user.Role = input.Role

	uow.Users().Update(user)
	if _, err := uow.Complete(ctx); err != nil {
		return err
	}

	s.logger.Info().Int("user_id", id).Str("username", user.Username).Msg("user updated")
	return nil
}

// Delete removes the user. Self-delete prevention is enforced at the HTTP
// boundary, which knows the caller's identity.
func (s *UserService) Delete(ctx context.Context, id int) error {
	uow, err := s.uow.Begin(ctx)
	if err != nil {
		return err
	}
	defer uow.Dispose()

	user, err := uow.Users().GetByID(ctx, id)
	if err != nil {
		return err
	}

	uow.Users().Remove(user)
	if _, err := uow.Complete(ctx); err != nil {
		return err
	}

	s.logger.Info().Int("user_id", id).Str("username", user.Username).Msg("user deleted")
	return nil
}

func (s *UserService) GetByID(ctx context.Context, id int) (*domain.User, error) {
	uow, err := s.uow.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer uow.Dispose()

	return uow.Users().GetByID(ctx, id)
}

func (s *UserService) GetAll(ctx context.Context) ([]domain.User, error) {
	uow, err := s.uow.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer uow.Dispose()

	return uow.Users().GetAll(ctx)
}

// Seed stages every user whose username is not yet present and commits them
// in a single atomic batch. It returns the number of records created.
func (s *UserService) Seed(ctx context.Context, users []*domain.User) (int, error) {
	uow, err := s.uow.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer uow.Dispose()

	missing := make([]*domain.User, 0, len(users))
	for _, u := range users {
		exists, err := uow.Users().ExistsByUsername(ctx, u.Username)
		if err != nil {
			return 0, err
		}
		if !exists {
			missing = append(missing, u)
		}
	}
	if len(missing) == 0 {
		return 0, nil
	}

	uow.Users().AddRange(missing)
	created, err := uow.Complete(ctx)
	if err != nil {
		return 0, err
	}

	s.logger.Info().Int("count", created).Msg("seeded default users")
	return created, nil
}
