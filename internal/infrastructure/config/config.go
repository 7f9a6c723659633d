package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port      string `env:"PORT,      default=8080"`
	Env       string `env:"ENV,       default=development"`
	JWTSecret string `env:"JWT_SECRET"`
	LogLevel  string `env:"LOG_LEVEL, default=info"`

	// JWTTTL bounds token lifetime; tokens are stateless and cannot be
	// revoked before expiry.
	JWTTTL time.Duration `env:"JWT_TTL, default=168h"`

	// SeedDefaultUsers creates the default admin/user accounts at startup
	// when their usernames are not present yet.
	SeedDefaultUsers bool `env:"SEED_DEFAULT_USERS, default=true"`

	// LoginRateLimit caps authentication attempts per client IP per minute.
	// Zero or negative disables the throttle.
	LoginRateLimit int `env:"LOGIN_RATE_LIMIT, default=10"`

	Mongo MongoConfig
	Redis RedisConfig
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=user_access"`
}

type RedisConfig struct {
	Addr string `env:"REDIS_ADDR, default=localhost:6379"`
	DB   int    `env:"REDIS_DB,  default=0"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load() *Config {
	var cfg Config
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return &cfg
}
