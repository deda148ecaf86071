package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendNone   = "none"

	defaultPort         = "3001"
	defaultTokenTTL     = 7 * 24 * time.Hour
	defaultChallengeTTL = 5 * time.Minute
	defaultRedisURL     = "redis://localhost:6379/0"
	defaultOrigin       = "http://localhost:3000"
)

// Config holds runtime settings for the server
type Config struct {
	Port             string        `yaml:"port"`
	JWTSecret        string        `yaml:"jwt_secret"`         // empty selects the development key
	TokenTTL         time.Duration `yaml:"token_ttl"`          // credential validity window
	ChallengeTTL     time.Duration `yaml:"challenge_ttl"`      // captcha validity window
	CaptchaFixedCode string        `yaml:"captcha_fixed_code"` // development only
	ChallengeStore   string        `yaml:"challenge_store"`    // memory or redis
	Events           string        `yaml:"events"`             // memory, redis or none
	RedisURL         string        `yaml:"redis_url"`
	DatabaseURL      string        `yaml:"database_url"` // empty uses the seeded in-memory users
	AllowedOrigins   []string      `yaml:"allowed_origins"`
	LogLevel         string        `yaml:"log_level"`
}

// Default returns the configuration used when nothing is set
func Default() Config {
	return Config{
		Port:           defaultPort,
		TokenTTL:       defaultTokenTTL,
		ChallengeTTL:   defaultChallengeTTL,
		ChallengeStore: BackendMemory,
		Events:         BackendMemory,
		RedisURL:       defaultRedisURL,
		AllowedOrigins: []string{defaultOrigin},
		LogLevel:       "info",
	}
}

// Load reads the optional YAML file at path, then applies environment
// overrides and validates the result
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) error {
	cfg.Port = firstNonEmpty(os.Getenv("PORT"), cfg.Port)
	cfg.JWTSecret = firstNonEmpty(os.Getenv("JWT_SECRET"), cfg.JWTSecret)
	cfg.CaptchaFixedCode = firstNonEmpty(os.Getenv("CAPTCHA_FIXED_CODE"), cfg.CaptchaFixedCode)
	cfg.ChallengeStore = firstNonEmpty(os.Getenv("CHALLENGE_STORE"), cfg.ChallengeStore)
	cfg.Events = firstNonEmpty(os.Getenv("EVENTS"), cfg.Events)
	cfg.RedisURL = firstNonEmpty(os.Getenv("REDIS_URL"), cfg.RedisURL)
	cfg.DatabaseURL = firstNonEmpty(os.Getenv("DATABASE_URL"), cfg.DatabaseURL)
	cfg.LogLevel = firstNonEmpty(os.Getenv("LOG_LEVEL"), cfg.LogLevel)

	if origins := parseCSV(os.Getenv("ALLOWED_ORIGINS")); len(origins) > 0 {
		cfg.AllowedOrigins = origins
	}

	var err error
	if cfg.TokenTTL, err = durationFromEnv("TOKEN_TTL", cfg.TokenTTL); err != nil {
		return err
	}
	if cfg.ChallengeTTL, err = durationFromEnv("CHALLENGE_TTL", cfg.ChallengeTTL); err != nil {
		return err
	}
	return nil
}

// Validate checks values that cannot be defaulted
func (c *Config) Validate() error {
	var errs []error

	if c.Port == "" {
		errs = append(errs, errors.New("port must be set"))
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, errors.New("token_ttl must be positive"))
	}
	if c.ChallengeTTL <= 0 {
		errs = append(errs, errors.New("challenge_ttl must be positive"))
	}
	switch c.ChallengeStore {
	case BackendMemory, BackendRedis:
	default:
		errs = append(errs, fmt.Errorf("unknown challenge_store %q", c.ChallengeStore))
	}
	switch c.Events {
	case BackendMemory, BackendRedis, BackendNone:
	default:
		errs = append(errs, fmt.Errorf("unknown events backend %q", c.Events))
	}
	if c.NeedsRedis() && c.RedisURL == "" {
		errs = append(errs, errors.New("redis_url must be set when redis is used"))
	}
	if _, err := c.SlogLevel(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// NeedsRedis reports whether any component is configured to use Redis
func (c *Config) NeedsRedis() bool {
	return c.ChallengeStore == BackendRedis || c.Events == BackendRedis
}

// UsesDevelopmentSecret reports whether tokens will be signed with the
// built-in development key
func (c *Config) UsesDevelopmentSecret() bool {
	return c.JWTSecret == ""
}

// SlogLevel parses LogLevel
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("invalid log_level %q: %w", c.LogLevel, err)
	}
	return level, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// durationFromEnv reads a duration from env var name, keeping def when unset
func durationFromEnv(name string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(name)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	return d, nil
}

// parseCSV splits a comma-separated list and trims spaces; empty entries are skipped
func parseCSV(s string) []string {
	var out []string
	for _, v := range strings.Split(s, ",") {
		if t := strings.TrimSpace(v); t != "" {
			out = append(out, t)
		}
	}
	return out
}
