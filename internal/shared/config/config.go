package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Auth       AuthConfig
	Frontend   FrontendConfig
	Logging    LoggingConfig
	RateLimit  RateLimitConfig
	Simulation SimulationConfig
	Galaxy     GalaxyConfig
	Telemetry  TelemetryConfig
}

type ServerConfig struct {
	Port         string        `env:"SERVER_PORT" envDefault:"8080"`
	URL          string        `env:"SERVER_URL" envDefault:"http://localhost:8080"`
	Environment  string        `env:"ENVIRONMENT" envDefault:"development"`
	ReadTimeout  time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"15s"`
	IdleTimeout  time.Duration `env:"SERVER_IDLE_TIMEOUT" envDefault:"60s"`
}

type DatabaseConfig struct {
	// Driver is "postgres" or "sqlite".
	Driver          string        `env:"DB_DRIVER" envDefault:"postgres"`
	Host            string        `env:"DB_HOST" envDefault:"localhost"`
	Port            string        `env:"DB_PORT" envDefault:"5432"`
	User            string        `env:"DB_USER" envDefault:"postgres"`
	Password        string        `env:"DB_PASSWORD" envDefault:"postgres"`
	Name            string        `env:"DB_NAME" envDefault:"galactic"`
	SSLMode         string        `env:"DB_SSLMODE" envDefault:"disable"`
	SQLitePath      string        `env:"DB_SQLITE_PATH" envDefault:"data/galactic.db"`
	MaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	MaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"5m"`
}

type RedisConfig struct {
	Enabled  bool          `env:"REDIS_ENABLED" envDefault:"true"`
	URL      string        `env:"REDIS_URL"`
	Host     string        `env:"REDIS_HOST" envDefault:"localhost"`
	Port     string        `env:"REDIS_PORT" envDefault:"6379"`
	Password string        `env:"REDIS_PASSWORD"`
	DB       int           `env:"REDIS_DB" envDefault:"0"`
	LockTTL  time.Duration `env:"REDIS_LOCK_TTL" envDefault:"30s"`
}

type AuthConfig struct {
	JWTSecret string `env:"JWT_SECRET"`
	// AdminUsers may start games and inspect any empire.
	AdminUsers []string `env:"ADMIN_USERS" envSeparator:","`
}

type FrontendConfig struct {
	URL       string `env:"FRONTEND_URL" envDefault:"http://localhost:3000"`
	CORSDebug bool   `env:"CORS_DEBUG" envDefault:"false"`
}

type LoggingConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"debug"`
	Format string `env:"LOG_FORMAT" envDefault:"text"`
}

type RateLimitConfig struct {
	Enabled           bool    `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	RequestsPerSecond float64 `env:"RATE_LIMIT_REQUESTS_PER_SECOND" envDefault:"10"`
	BurstSize         int     `env:"RATE_LIMIT_BURST_SIZE" envDefault:"20"`
	TrustProxy        bool    `env:"RATE_LIMIT_TRUST_PROXY" envDefault:"false"`
}

type SimulationConfig struct {
	Enabled bool `env:"SIMULATION_ENABLED" envDefault:"true"`
	// Period lengths for game speeds 1 (slow), 2 (medium) and 3 (fast).
	SlowInterval   time.Duration `env:"SIMULATION_SLOW_INTERVAL" envDefault:"60s"`
	MediumInterval time.Duration `env:"SIMULATION_MEDIUM_INTERVAL" envDefault:"30s"`
	FastInterval   time.Duration `env:"SIMULATION_FAST_INTERVAL" envDefault:"20s"`
	ArchiveDir     string        `env:"SIMULATION_ARCHIVE_DIR"`
	CatalogDir     string        `env:"SIMULATION_CATALOG_DIR"`
}

type GalaxyConfig struct {
	DefaultSize        int     `env:"GALAXY_DEFAULT_SIZE" envDefault:"60"`
	DefaultSpacing     float64 `env:"GALAXY_DEFAULT_SPACING" envDefault:"50"`
	CyclePercentage    float64 `env:"GALAXY_CYCLE_PERCENTAGE" envDefault:"0.2"`
	ClusterSize        int     `env:"GALAXY_CLUSTER_SIZE" envDefault:"15"`
	CollisionPrecision float64 `env:"GALAXY_COLLISION_PRECISION" envDefault:"1.2"`
}

type TelemetryConfig struct {
	Enabled     bool   `env:"OTEL_ENABLED" envDefault:"false"`
	Endpoint    string `env:"OTEL_ENDPOINT"`
	ServiceName string `env:"OTEL_SERVICE_NAME" envDefault:"galactic-server"`
}

var GlobalConfig *Config

func Init() error {
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found, using system environment variables")
	}

	config, err := Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	GlobalConfig = config
	return nil
}

// Load parses the process environment without touching GlobalConfig.
func Load() (*Config, error) {
	config := &Config{}
	if err := env.Parse(config); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

func (c *Config) validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	if len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters long")
	}

	if c.Server.Port == "" {
		return fmt.Errorf("SERVER_PORT is required")
	}

	switch c.Database.Driver {
	case "postgres":
		if c.Database.Host == "" {
			return fmt.Errorf("DB_HOST is required")
		}
		if c.Database.Name == "" {
			return fmt.Errorf("DB_NAME is required")
		}
	case "sqlite":
		if c.Database.SQLitePath == "" {
			return fmt.Errorf("DB_SQLITE_PATH is required")
		}
	default:
		return fmt.Errorf("DB_DRIVER must be postgres or sqlite, got %q", c.Database.Driver)
	}

	if c.Simulation.SlowInterval <= 0 || c.Simulation.MediumInterval <= 0 || c.Simulation.FastInterval <= 0 {
		return fmt.Errorf("simulation intervals must be positive")
	}

	if c.Galaxy.DefaultSize <= 0 {
		return fmt.Errorf("GALAXY_DEFAULT_SIZE must be positive")
	}

	if c.Galaxy.CyclePercentage < 0 || c.Galaxy.CyclePercentage > 1 {
		return fmt.Errorf("GALAXY_CYCLE_PERCENTAGE must be between 0 and 1")
	}

	if c.Telemetry.Enabled && c.Telemetry.Endpoint == "" {
		return fmt.Errorf("OTEL_ENDPOINT is required when OTEL_ENABLED is true")
	}

	return nil
}

func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

func (c *Config) IsAdmin(userID string) bool {
	for _, id := range c.Auth.AdminUsers {
		if id == userID {
			return true
		}
	}
	return false
}

func (c *Config) ConnectionString() string {
	if c.Database.Driver == "sqlite" {
		return c.Database.SQLitePath
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}
