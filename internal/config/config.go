// Package config provides environment configuration for the API server and
// the HQ terminal.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Store backends.
const (
	StoreSQLite   = "sqlite"
	StoreJSONFile = "jsonfile"
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	ServerPort         string        `env:"PORT" envDefault:"8080"`
	ServerReadTimeout  time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"30s"`
	ServerWriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"120s"`

	// CORS origins allowed to call the API; empty allows any
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`

	// JWT settings for admin routes
	JWTSecret string `env:"JWT_SECRET" envDefault:"development-secret-change-in-production"`

	// LLM settings
	AnthropicAPIKey string        `env:"ANTHROPIC_API_KEY"`
	OpenAIAPIKey    string        `env:"OPENAI_API_KEY"`
	DefaultLLM      string        `env:"DEFAULT_LLM" envDefault:"anthropic"`
	LLMModel        string        `env:"LLM_MODEL"`
	LLMTimeout      time.Duration `env:"LLM_TIMEOUT" envDefault:"8s"`

	// Profile storage
	StoreBackend  string        `env:"STORE_BACKEND" envDefault:"sqlite"`
	SQLitePath    string        `env:"SQLITE_PATH" envDefault:"data/agents.db"`
	JSONStorePath string        `env:"JSON_STORE_PATH" envDefault:"data/agents.json"`
	StoreTimeout  time.Duration `env:"STORE_TIMEOUT" envDefault:"5s"`
	SaveRetries   int           `env:"SAVE_RETRIES" envDefault:"2"`

	// Onboarding
	PersonalityRounds int    `env:"PERSONALITY_ROUNDS" envDefault:"3"`
	ContentFile       string `env:"CONTENT_FILE"`

	// NATS settings; an empty URL disables the journal
	NATSURL      string `env:"NATS_URL"`
	NATSCAFile   string `env:"NATS_CA_FILE"`
	NATSCertFile string `env:"NATS_CERT_FILE"`
	NATSKeyFile  string `env:"NATS_KEY_FILE"`
	NATSToken    string `env:"NATS_TOKEN"`

	// Session snapshots; an empty address keeps them in memory
	ValkeyAddr string        `env:"VALKEY_ADDR"`
	SessionTTL time.Duration `env:"SESSION_TTL" envDefault:"24h"`

	// Confirmation email; an empty host disables it
	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser     string `env:"SMTP_USER"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
	SMTPFrom     string `env:"SMTP_FROM" envDefault:"hq@greatgiftheist.party"`

	// Rate limiting
	RateLimitRequests int           `env:"RATE_LIMIT_REQUESTS" envDefault:"60"`
	RateLimitWindow   time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"1m"`

	// Logging
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	LogFile  string `env:"LOG_FILE"`

	// Tracing
	TracingEndpoint string `env:"TRACING_ENDPOINT" envDefault:"localhost:4318"`
	TracingEnabled  bool   `env:"TRACING_ENABLED" envDefault:"false"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values env tags cannot express.
func (c *Config) Validate() error {
	c.StoreBackend = strings.ToLower(strings.TrimSpace(c.StoreBackend))
	switch c.StoreBackend {
	case StoreSQLite, StoreJSONFile:
	default:
		return fmt.Errorf("STORE_BACKEND must be %q or %q, got %q", StoreSQLite, StoreJSONFile, c.StoreBackend)
	}
	if c.PersonalityRounds < 1 {
		return fmt.Errorf("PERSONALITY_ROUNDS must be at least 1, got %d", c.PersonalityRounds)
	}
	if c.SaveRetries < 0 {
		return fmt.Errorf("SAVE_RETRIES must not be negative, got %d", c.SaveRetries)
	}
	if c.RateLimitRequests < 1 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be at least 1, got %d", c.RateLimitRequests)
	}
	return nil
}

// LLMAPIKey returns the key for the configured default provider.
func (c *Config) LLMAPIKey() string {
	if strings.EqualFold(c.DefaultLLM, "openai") {
		return c.OpenAIAPIKey
	}
	return c.AnthropicAPIKey
}
