package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/identitylab/user-access-api/internal/api"
	"github.com/identitylab/user-access-api/internal/api/middleware"
	"github.com/identitylab/user-access-api/internal/core/domain"
	"github.com/identitylab/user-access-api/internal/core/service"
	"github.com/identitylab/user-access-api/internal/infrastructure/config"
	mongodb "github.com/identitylab/user-access-api/internal/infrastructure/db/mongo"
	redisdb "github.com/identitylab/user-access-api/internal/infrastructure/db/redis"
	"github.com/identitylab/user-access-api/internal/token"
	"github.com/identitylab/user-access-api/pkg/logger"
)

// @title        User Access API
// @version      1.0
// @description  Authenticates users by credential, issues bearer tokens, and
// @description  gates user management operations by role.
//
// @securityDefinitions.apikey BearerAuth
// @in   header
// @name Authorization
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()

	cfg := config.Load()
	log := logger.Init(logger.Options{
		Level:  cfg.LogLevel,
		Pretty: cfg.Env == "development",
	})

	if cfg.JWTSecret == "" {
		log.Fatal().Msg("JWT_SECRET must be set")
	}

	client, db, err := mongodb.Connect(ctx, mongodb.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to mongodb")
	}
	defer func() {
		if err := client.Disconnect(context.Background()); err != nil {
			log.Error().Err(err).Msg("mongodb disconnect")
		}
	}()

	if err := mongodb.EnsureUserIndexes(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("failed to create indexes")
	}

	rdb, err := redisdb.Connect(ctx, redisdb.Config{
		Addr: cfg.Redis.Addr,
		DB:   cfg.Redis.DB,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Error().Err(err).Msg("redis close")
		}
	}()

	uowFactory := mongodb.NewUnitOfWorkFactory(client, db)
	userReader := mongodb.NewUserReader(db)
	tokens := token.NewJWT(cfg.JWTSecret, cfg.JWTTTL)
	userService := service.NewUserService(uowFactory, tokens, log)

	if cfg.SeedDefaultUsers {
		if err := seedDefaultUsers(ctx, userService); err != nil {
			log.Fatal().Err(err).Msg("failed to seed default users")
		}
	}

	var loginLimiter middleware.AttemptLimiter
	if cfg.LoginRateLimit > 0 {
		loginLimiter = redisdb.NewLoginLimiter(rdb, cfg.LoginRateLimit)
	}

	e := api.NewRouter(userService, tokens, userReader, db, rdb, loginLimiter, log)

	go func() {
		log.Info().Str("port", cfg.Port).Msg("starting http server")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server stopped")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown")
	}
}

// seedDefaultUsers creates the well-known development accounts in a single
// atomic commit when they do not exist yet.
func seedDefaultUsers(ctx context.Context, svc *service.UserService) error {
	adminHash, err := bcrypt.GenerateFromPassword([]byte("admin"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	userHash, err := bcrypt.GenerateFromPassword([]byte("user"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	_, err = svc.Seed(ctx, []*domain.User{
		{FirstName: "Admin", LastName: "User", Username: "admin", PasswordHash: string(adminHash), Role: domain.RoleAdmin},
		{FirstName: "Normal", LastName: "User", Username: "user", PasswordHash: string(userHash), Role: domain.RoleUser},
	})
	return err
}
