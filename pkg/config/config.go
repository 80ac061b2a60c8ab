package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"net/url"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for claimcheck.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords, keys) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"3443"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	BaseURL  string `yaml:"base_url" env:"BASE_URL" env-default:""` // Auto-derived from Port if empty
	Version  string `yaml:"-"`                                      // Set at load time, not from config

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`

	Auth     AuthConfig     `yaml:"auth"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	SEO      SEOConfig      `yaml:"seo"`
	Scoring  ScoringConfig  `yaml:"scoring"`
	Voting   VotingConfig   `yaml:"voting"`
}

// AuthConfig holds authentication-related configuration.
type AuthConfig struct {
	// EnableVerification controls whether JWT tokens are validated.
	// Set to false for local development without auth server.
	EnableVerification bool `yaml:"enable_verification" env:"AUTH_ENABLE_VERIFICATION" env-default:"true"`

	// JWKSEndpointsStr is a comma-separated list of issuer=jwks_url pairs.
	// Format: "issuer1=url1,issuer2=url2"
	JWKSEndpointsStr string `yaml:"jwks_endpoints" env:"JWKS_ENDPOINTS" env-default:""`

	// JWKSEndpoints is the parsed map from JWKSEndpointsStr (not from config file).
	JWKSEndpoints map[string]string `yaml:"-"`

	// Audience, when set, must be present in every token's aud claim.
	Audience string `yaml:"audience" env:"AUTH_AUDIENCE" env-default:""`

	// Leeway tolerates clock skew when checking exp/nbf.
	Leeway time.Duration `yaml:"leeway" env:"AUTH_LEEWAY" env-default:"30s"`

	// ModeratorRole is the JWT role that grants moderation capability.
	ModeratorRole string `yaml:"moderator_role" env:"AUTH_MODERATOR_ROLE" env-default:"moderator"`
}

// DatabaseConfig holds PostgreSQL database configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"claimcheck"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"claimcheck"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"25"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
	// MigrationsPath is the directory holding golang-migrate SQL files.
	MigrationsPath string `yaml:"migrations_path" env:"MIGRATIONS_PATH" env-default:"./migrations"`
}

// RedisConfig holds Redis configuration for the notification dispatcher.
// Leave Host empty to log notifications instead of publishing them.
type RedisConfig struct {
	Host     string `yaml:"host" env:"REDIS_HOST" env-default:""`
	Port     int    `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	Password string `yaml:"-" env:"REDIS_PASSWORD"` // Secret - not in YAML
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
	Channel  string `yaml:"channel" env:"REDIS_CHANNEL" env-default:"claimcheck.events"`
}

// SEOConfig configures the OpenAI-compatible endpoint that writes claim SEO metadata.
// Leave LLMBaseURL empty to disable regeneration.
type SEOConfig struct {
	LLMBaseURL string        `yaml:"llm_base_url" env:"SEO_LLM_BASE_URL" env-default:""`
	LLMModel   string        `yaml:"llm_model" env:"SEO_LLM_MODEL" env-default:""`
	APIKey     string        `yaml:"-" env:"SEO_LLM_API_KEY"` // Secret - not in YAML
	Timeout    time.Duration `yaml:"timeout" env:"SEO_TIMEOUT" env-default:"30s"`
	MaxRetries int           `yaml:"max_retries" env:"SEO_MAX_RETRIES" env-default:"2"`
	DedupTTL   time.Duration `yaml:"dedup_ttl" env:"SEO_DEDUP_TTL" env-default:"1h"`
}

// IsAvailable returns true if SEO generation is configured.
func (c *SEOConfig) IsAvailable() bool {
	return c.LLMBaseURL != "" && c.LLMModel != ""
}

// ScoringConfig controls when claim scores are recomputed.
type ScoringConfig struct {
	// RecomputeOnRead refreshes a claim's total score every time it is fetched by ID.
	RecomputeOnRead bool `yaml:"recompute_on_read" env:"SCORING_RECOMPUTE_ON_READ" env-default:"true"`
	// ListRefreshConcurrency bounds concurrent recomputes while listing claims. 0 disables refresh on list.
	ListRefreshConcurrency int `yaml:"list_refresh_concurrency" env:"SCORING_LIST_REFRESH_CONCURRENCY" env-default:"4"`
}

// VotingConfig holds caller-side voting policy.
type VotingConfig struct {
	// RequireApprovedClaim rejects votes on claims (and their content) that are not approved.
	RequireApprovedClaim bool `yaml:"require_approved_claim" env:"VOTING_REQUIRE_APPROVED_CLAIM" env-default:"false"`
}

// Load reads configuration from config.yaml with environment variable overrides.
// When config.yaml is absent only the environment is read.
// The version parameter is injected at build time and set on the returned Config.
func Load(version string) (*Config, error) {
	return LoadFrom("config.yaml", version)
}

// LoadFrom reads configuration from the given YAML path with environment variable overrides.
func LoadFrom(path, version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	// Environment-only deployments run without a config file.
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	} else if err := cleanenv.ReadConfig(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	cfg.Auth.JWKSEndpoints = parseJWKSEndpoints(cfg.Auth.JWKSEndpointsStr)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = (&url.URL{
			Scheme: "http",
			Host:   "localhost:" + cfg.Port,
		}).String()
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Auth.EnableVerification && len(c.Auth.JWKSEndpoints) == 0 {
		return fmt.Errorf("auth.jwks_endpoints is required when verification is enabled")
	}
	if c.Scoring.ListRefreshConcurrency < 0 {
		return fmt.Errorf("scoring.list_refresh_concurrency must be >= 0")
	}
	if c.SEO.MaxRetries < 0 {
		return fmt.Errorf("seo.max_retries must be >= 0")
	}
	return nil
}

// parseJWKSEndpoints parses the JWKS endpoints string into a map.
// Format: "issuer1=url1,issuer2=url2"
func parseJWKSEndpoints(value string) map[string]string {
	endpoints := make(map[string]string)
	if value == "" {
		return endpoints
	}

	pairs := strings.Split(value, ",")
	for _, pair := range pairs {
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) == 2 {
			endpoints[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
		}
	}
	return endpoints
}

// ConnectionString returns a PostgreSQL URL suitable for both pgxpool and golang-migrate.
func (c *DatabaseConfig) ConnectionString() string {
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", ResolveHostForDocker(c.Host), c.Port),
		Path:     "/" + c.Database,
		RawQuery: "sslmode=" + c.SSLMode,
	}
	return u.String()
}

// Addr returns the host:port address of the Redis server.
func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", ResolveHostForDocker(c.Host), c.Port)
}
