package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	StoreMemory = "memory"
	StoreMongo  = "mongo"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr        string        `env:"TECHNOVIT_ADDR" envDefault:":8080"`
	Environment string        `env:"APP_ENV" envDefault:"development"`
	LogLevel    string        `env:"LOG_LEVEL" envDefault:"info"`
	SecretKey   string        `env:"SECRET_KEY" envDefault:"dev-secret-key-change-in-production"`
	JWTIssuer   string        `env:"JWT_ISSUER" envDefault:"technovit"`
	TokenTTL    time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"24h"`

	Store     Store
	Redis     Redis
	Audit     Audit
	Tracing   Tracing
	HTTP      HTTP
	Analytics Analytics
}

// Store selects and configures the document store.
type Store struct {
	Driver   string        `env:"STORE_DRIVER" envDefault:"memory"`
	MongoURL string        `env:"MONGODB_URL" envDefault:"mongodb://localhost:27017"`
	Database string        `env:"MONGODB_DATABASE" envDefault:"technovit"`
	Timeout  time.Duration `env:"STORE_TIMEOUT" envDefault:"5s"`
}

// Redis configures the optional stats cache and token revocation list.
type Redis struct {
	URL          string        `env:"REDIS_URL"`
	PoolSize     int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT" envDefault:"3s"`
}

// Enabled reports whether a Redis URL was configured.
func (r Redis) Enabled() bool { return r.URL != "" }

// Audit configures the durable audit outbox and its Kafka relay.
type Audit struct {
	DatabaseURL    string        `env:"AUDIT_DATABASE_URL"`
	DatabaseDriver string        `env:"AUDIT_DATABASE_DRIVER" envDefault:"pgx"`
	KafkaBrokers   []string      `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaTopic     string        `env:"KAFKA_AUDIT_TOPIC" envDefault:"technovit.audit"`
	RelayInterval  time.Duration `env:"AUDIT_RELAY_INTERVAL" envDefault:"2s"`
	RelayBatch     int           `env:"AUDIT_RELAY_BATCH" envDefault:"100"`
}

// Tracing configures OTLP span export.
type Tracing struct {
	Endpoint    string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	ServiceName string `env:"OTEL_SERVICE_NAME" envDefault:"technovit"`
}

// HTTP configures edge middleware.
type HTTP struct {
	AllowedOrigins     []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
	RateLimitPerMinute int      `env:"RATE_LIMIT_PER_MINUTE" envDefault:"300"`
}

// Analytics tunes admin reporting.
type Analytics struct {
	StatsCacheTTL time.Duration `env:"STATS_CACHE_TTL" envDefault:"30s"`
	BreakdownJobs int           `env:"BREAKDOWN_CONCURRENCY" envDefault:"8"`
}

// IsProduction reports whether the server runs with production defaults.
func (s Server) IsProduction() bool { return s.Environment == EnvProduction }

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() (Server, error) {
	var cfg Server
	if err := env.Parse(&cfg); err != nil {
		return Server{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Server{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the server cannot start with.
func (s Server) Validate() error {
	switch s.Store.Driver {
	case StoreMemory, StoreMongo:
	default:
		return fmt.Errorf("unsupported STORE_DRIVER %q", s.Store.Driver)
	}
	if s.IsProduction() && (s.SecretKey == "" || s.SecretKey == "dev-secret-key-change-in-production") {
		return fmt.Errorf("SECRET_KEY must be set in production")
	}
	switch s.Audit.DatabaseDriver {
	case "pgx", "postgres":
	default:
		return fmt.Errorf("unsupported AUDIT_DATABASE_DRIVER %q", s.Audit.DatabaseDriver)
	}
	if s.TokenTTL <= 0 {
		return fmt.Errorf("ACCESS_TOKEN_TTL must be positive")
	}
	if s.HTTP.RateLimitPerMinute < 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must not be negative")
	}
	if s.Analytics.BreakdownJobs <= 0 {
		return fmt.Errorf("BREAKDOWN_CONCURRENCY must be positive")
	}
	return nil
}
