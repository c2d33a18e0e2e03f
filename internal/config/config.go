// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"encoding/hex"
	"errors"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP server listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// DatabasePath is the SQLite database file path (e.g. ./reportdesk.db).
	DatabasePath string `mapstructure:"DATABASE_PATH"`
	// JWTAccessSecret signs access tokens (HS256). Required; must differ from JWT_REFRESH_SECRET.
	JWTAccessSecret string `mapstructure:"JWT_ACCESS_SECRET"`
	// JWTRefreshSecret signs refresh tokens (HS256). Required; must differ from JWT_ACCESS_SECRET.
	JWTRefreshSecret string `mapstructure:"JWT_REFRESH_SECRET"`
	// JWTIssuer is the iss claim (e.g. "reportdesk-auth").
	JWTIssuer string `mapstructure:"JWT_ISSUER"`
	// JWTAudience is the aud claim (e.g. "reportdesk-api").
	JWTAudience string `mapstructure:"JWT_AUDIENCE"`
	// JWTAccessTTL is the access token lifetime (e.g. "15m").
	JWTAccessTTL string `mapstructure:"JWT_ACCESS_TTL"`
	// JWTRefreshTTL is the refresh token lifetime (e.g. "168h").
	JWTRefreshTTL string `mapstructure:"JWT_REFRESH_TTL"`
	// BcryptCost is the bcrypt cost factor (4-31); default 12.
	BcryptCost int `mapstructure:"BCRYPT_COST"`
	// LockoutMaxAttempts is the number of consecutive failed logins before lockout; default 5.
	LockoutMaxAttempts int `mapstructure:"LOCKOUT_MAX_ATTEMPTS"`
	// LockoutDuration is how long a locked account stays locked (e.g. "15m").
	LockoutDuration string `mapstructure:"LOCKOUT_DURATION"`
	// SessionSlidingTimeout is the idle timeout; each successful validate resets it (e.g. "30m").
	SessionSlidingTimeout string `mapstructure:"SESSION_SLIDING_TIMEOUT"`
	// SessionAbsoluteTTL caps a session's total lifetime regardless of activity (e.g. "12h").
	SessionAbsoluteTTL string `mapstructure:"SESSION_ABSOLUTE_TTL"`
	// SessionSweepInterval is how often the cleanup sweeper runs (e.g. "5m").
	SessionSweepInterval string `mapstructure:"SESSION_SWEEP_INTERVAL"`
	// DraftKeyPassphrase is the operator passphrase the draft master key is derived from. Required.
	DraftKeyPassphrase string `mapstructure:"DRAFT_KEY_PASSPHRASE"`
	// DraftKeySalt is the hex-encoded salt for master key derivation (>= 16 bytes). Required.
	DraftKeySalt string `mapstructure:"DRAFT_KEY_SALT"`
	// DraftKDFIterations is the PBKDF2 iteration count for per-record keys; default 600000.
	DraftKDFIterations int `mapstructure:"DRAFT_KDF_ITERATIONS"`
	// DraftKDFDigest selects the PBKDF2 digest: "sha256" or "sha512".
	DraftKDFDigest string `mapstructure:"DRAFT_KDF_DIGEST"`
	// OTLPEndpoint is the OTLP gRPC endpoint for telemetry export; empty disables export.
	OTLPEndpoint string `mapstructure:"OTLP_ENDPOINT"`
	// OTLPInsecure forces plaintext OTLP export even for https endpoints.
	OTLPInsecure bool `mapstructure:"OTLP_INSECURE"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("DATABASE_PATH", "reportdesk.db")
	v.SetDefault("JWT_ACCESS_SECRET", "")
	v.SetDefault("JWT_REFRESH_SECRET", "")
	v.SetDefault("JWT_ISSUER", "reportdesk-auth")
	v.SetDefault("JWT_AUDIENCE", "reportdesk-api")
	v.SetDefault("JWT_ACCESS_TTL", "15m")
	v.SetDefault("JWT_REFRESH_TTL", "168h") // 7d
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("LOCKOUT_MAX_ATTEMPTS", 5)
	v.SetDefault("LOCKOUT_DURATION", "15m")
	v.SetDefault("SESSION_SLIDING_TIMEOUT", "30m")
	v.SetDefault("SESSION_ABSOLUTE_TTL", "12h")
	v.SetDefault("SESSION_SWEEP_INTERVAL", "5m")
	v.SetDefault("DRAFT_KEY_PASSPHRASE", "")
	v.SetDefault("DRAFT_KEY_SALT", "")
	v.SetDefault("DRAFT_KDF_ITERATIONS", 600000)
	v.SetDefault("DRAFT_KDF_DIGEST", "sha256")
	v.SetDefault("OTLP_ENDPOINT", "")
	v.SetDefault("OTLP_INSECURE", false)
	v.SetDefault("APP_ENV", "")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}
	if cfg.DatabasePath == "" {
		return nil, errors.New("config: DATABASE_PATH must be set")
	}
	if cfg.JWTAccessSecret == "" || cfg.JWTRefreshSecret == "" {
		return nil, errors.New("config: JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must be set")
	}
	if cfg.JWTAccessSecret == cfg.JWTRefreshSecret {
		return nil, errors.New("config: JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must differ")
	}

	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = 12
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return nil, errors.New("config: BCRYPT_COST must be between 4 and 31")
	}
	if cfg.LockoutMaxAttempts < 1 {
		return nil, errors.New("config: LOCKOUT_MAX_ATTEMPTS must be at least 1")
	}

	if cfg.DraftKeyPassphrase == "" {
		return nil, errors.New("config: DRAFT_KEY_PASSPHRASE must be set")
	}
	salt, err := hex.DecodeString(cfg.DraftKeySalt)
	if err != nil {
		return nil, errors.New("config: DRAFT_KEY_SALT must be hex-encoded")
	}
	if len(salt) < 16 {
		return nil, errors.New("config: DRAFT_KEY_SALT must decode to at least 16 bytes")
	}
	if cfg.DraftKDFIterations < 1 {
		return nil, errors.New("config: DRAFT_KDF_ITERATIONS must be positive")
	}
	switch cfg.DraftKDFDigest {
	case "sha256", "sha512":
	default:
		return nil, errors.New("config: DRAFT_KDF_DIGEST must be sha256 or sha512")
	}

	return &cfg, nil
}

// MasterKeySalt returns the decoded DRAFT_KEY_SALT. Load has already validated it.
func (c *Config) MasterKeySalt() []byte {
	salt, _ := hex.DecodeString(c.DraftKeySalt)
	return salt
}

// AccessTTL parses JWTAccessTTL as a time.Duration. Returns 15m if unset or invalid.
func (c *Config) AccessTTL() time.Duration {
	return durationOr(c.JWTAccessTTL, 15*time.Minute)
}

// RefreshTTL parses JWTRefreshTTL as a time.Duration. Returns 168h if unset or invalid.
func (c *Config) RefreshTTL() time.Duration {
	return durationOr(c.JWTRefreshTTL, 168*time.Hour)
}

// LockoutWindow parses LockoutDuration. Returns 15m if unset or invalid.
func (c *Config) LockoutWindow() time.Duration {
	return durationOr(c.LockoutDuration, 15*time.Minute)
}

// SlidingTimeout parses SessionSlidingTimeout. Returns 30m if unset or invalid.
func (c *Config) SlidingTimeout() time.Duration {
	return durationOr(c.SessionSlidingTimeout, 30*time.Minute)
}

// AbsoluteTTL parses SessionAbsoluteTTL. Returns 12h if unset or invalid.
func (c *Config) AbsoluteTTL() time.Duration {
	return durationOr(c.SessionAbsoluteTTL, 12*time.Hour)
}

// SweepInterval parses SessionSweepInterval. Returns 5m if unset or invalid.
func (c *Config) SweepInterval() time.Duration {
	return durationOr(c.SessionSweepInterval, 5*time.Minute)
}

func durationOr(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
