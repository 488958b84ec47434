// Package config loads the server configuration from the environment.
//
// LOADING ORDER:
//  1. An optional .env file in the working directory (godotenv). Variables that
//     are already set in the process environment are NOT overwritten.
//  2. Process environment, read into the Config struct by cleanenv using the
//     `env` and `env-default` struct tags.
//
// Derived values (database name, CORS origins) are computed by methods so that
// the raw environment stays visible in the struct.
package config

import (
	"fmt"
	"math"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

const (
	EnvDev  = "dev"
	EnvProd = "prod"

	DriverMongo  = "mongo"
	DriverSQLite = "sqlite"

	databasePrefix = "openforge"
)

// Config holds every setting the server reads from the environment.
type Config struct {
	Environment string `env:"ENVIRONMENT" env-default:"dev"`
	Port        int    `env:"PORT" env-default:"8000"`
	LogLevel    string `env:"LOG_LEVEL" env-default:"info"`
	APIBaseURL  string `env:"API_BASE_URL" env-default:"http://localhost:8000"`
	FrontendURL string `env:"FRONTEND_URL"`

	Store StoreConfig

	Clerk  ClerkConfig
	GitHub GitHubConfig

	MarketplaceTopic    string        `env:"MARKETPLACE_TOPIC" env-default:"openforge-demo"`
	MarketplaceCacheTTL time.Duration `env:"MARKETPLACE_CACHE_TTL" env-default:"1h"`

	// Per-client limit on POST /api/projects/create-github-repo.
	CreateRepoPerMinute float64 `env:"CREATE_REPO_PER_MINUTE" env-default:"5"`
}

type StoreConfig struct {
	Driver     string `env:"STORE_DRIVER" env-default:"mongo"`
	MongoURL   string `env:"MONGODB_URL"`
	MongoName  string `env:"MONGODB_DB_NAME"`
	SQLitePath string `env:"SQLITE_PATH"`
}

type ClerkConfig struct {
	SecretKey        string `env:"CLERK_SECRET_KEY"`
	APIURL           string `env:"CLERK_API_URL" env-default:"https://api.clerk.com/v1"`
	JWKSURL          string `env:"CLERK_JWKS_URL"`
	Issuer           string `env:"CLERK_ISSUER"`
	AllowUserIDParam bool   `env:"ALLOW_USER_ID_FALLBACK" env-default:"true"`
}

type GitHubConfig struct {
	Token     string        `env:"GITHUB_TOKEN"`
	APIURL    string        `env:"GITHUB_API_URL" env-default:"https://api.github.com"`
	RateLimit float64       `env:"GITHUB_RATE_LIMIT" env-default:"10"`
	Timeout   time.Duration `env:"GITHUB_TIMEOUT" env-default:"15s"`
}

// Load reads .env (if present) and the process environment, then validates.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("config: reading environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects combinations the server cannot start with.
func (c *Config) Validate() error {
	switch c.Environment {
	case EnvDev, EnvProd:
	default:
		return fmt.Errorf("config: ENVIRONMENT must be %q or %q, got %q", EnvDev, EnvProd, c.Environment)
	}

	switch c.Store.Driver {
	case DriverMongo:
		if c.Store.MongoURL == "" {
			return fmt.Errorf("config: MONGODB_URL is required when STORE_DRIVER=%s", DriverMongo)
		}
	case DriverSQLite:
	default:
		return fmt.Errorf("config: unknown STORE_DRIVER %q", c.Store.Driver)
	}

	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: invalid PORT %d", c.Port)
	}
	if c.GitHub.RateLimit <= 0 {
		return fmt.Errorf("config: GITHUB_RATE_LIMIT must be positive")
	}
	if c.CreateRepoPerMinute <= 0 {
		return fmt.Errorf("config: CREATE_REPO_PER_MINUTE must be positive")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == EnvProd
}

// DatabaseName returns openforge-dev or openforge-prod.
//
// An explicit MONGODB_DB_NAME is honoured only when it already ends with the
// environment suffix; otherwise the environment wins so a dev process can
// never write into the production database by accident.
func (c *Config) DatabaseName() string {
	want := databasePrefix + "-" + c.Environment
	name := c.Store.MongoName
	if name == "" || !strings.HasSuffix(name, "-"+c.Environment) {
		return want
	}
	return name
}

// SQLiteFile returns the database file used by the sqlite driver.
func (c *Config) SQLiteFile() string {
	if c.Store.SQLitePath != "" {
		return c.Store.SQLitePath
	}
	return filepath.Join("data", c.DatabaseName()+".db")
}

// AllowedOrigins lists CORS origins: the local frontend ports plus FRONTEND_URL.
// An https frontend also gets its www/bare twin.
func (c *Config) AllowedOrigins() []string {
	origins := []string{"http://localhost:3000", "http://localhost:3001"}

	frontend := strings.TrimRight(strings.TrimSpace(c.FrontendURL), "/")
	if frontend == "" {
		return origins
	}
	origins = appendUnique(origins, frontend)

	u, err := url.Parse(frontend)
	if err != nil || u.Scheme != "https" || u.Host == "" {
		return origins
	}
	if host, ok := strings.CutPrefix(u.Host, "www."); ok {
		origins = appendUnique(origins, "https://"+host)
	} else {
		origins = appendUnique(origins, "https://www."+u.Host)
	}
	return origins
}

// GitHubBurst is the token bucket size matching the configured rate.
func (c *Config) GitHubBurst() int {
	return int(math.Max(1, math.Ceil(c.GitHub.RateLimit)))
}

// CreateRepoBurst lets a client create a few repositories back to back.
func (c *Config) CreateRepoBurst() int {
	return int(math.Max(1, math.Ceil(c.CreateRepoPerMinute)))
}

func appendUnique(list []string, v string) []string {
	for _, s := range list {
		if s == v {
			return list
		}
	}
	return append(list, v)
}
