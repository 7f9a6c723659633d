package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	echoswagger "github.com/swaggo/echo-swagger"
	"go.mongodb.org/mongo-driver/mongo"

	_ "github.com/identitylab/user-access-api/docs"
	"github.com/identitylab/user-access-api/internal/api/handler"
	"github.com/identitylab/user-access-api/internal/api/middleware"
	"github.com/identitylab/user-access-api/internal/core/domain"
	"github.com/identitylab/user-access-api/internal/core/ports"
)

// NewRouter builds the Echo instance with all routes registered. Every route's
// auth requirement is declared here, next to its registration: anonymous
// routes carry no gate, authenticated ones chain Authenticate before
// RequireRole, and RequireRole() with no roles admits any authenticated user.
func NewRouter(
	userService ports.UserService,
	tokens ports.TokenManager,
	users ports.UserReader,
	db *mongo.Database,
	rdb *redis.Client,
	loginLimiter middleware.AttemptLimiter,
	log zerolog.Logger,
) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Logger())
	e.Use(echoprometheus.NewMiddleware("users"))

	// --- Dependencies ---
	userHandler := handler.NewUserHandler(userService, log)
	authenticate := middleware.Authenticate(tokens, users)
	adminOnly := middleware.RequireRole(domain.RoleAdmin)
	anyAuthenticated := middleware.RequireRole()

	// --- User routes ---
	if loginLimiter != nil {
		e.POST("/users/authenticate", userHandler.Authenticate, middleware.LoginRateLimit(loginLimiter, log))
	} else {
		e.POST("/users/authenticate", userHandler.Authenticate)
	}
	e.POST("/users/register", userHandler.Register, authenticate, adminOnly)
	e.PUT("/users/:id", userHandler.Update, authenticate, adminOnly)
	e.GET("/users", userHandler.GetAll, authenticate, adminOnly)
	e.DELETE("/users/:id", userHandler.Delete, authenticate, adminOnly)
	e.GET("/users/:id", userHandler.GetByID, authenticate, anyAuthenticated)

	// --- Health probes (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	healthDepsHandler := handler.NewHealthDependenciesHandler(db, rdb)

	e.GET("/health", healthHandler.Liveness)            // liveness  – is the process alive?
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness – are dependencies up?

	// --- Operational endpoints ---
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoswagger.WrapHandler)

	return e
}
