// Package config loads runtime settings from the environment and an optional .env file.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	AuthModeJWT    = "jwt"
	AuthModeRemote = "remote"
	AuthModeDev    = "dev"

	minSecretLen = 32
)

type Config struct {
	Port     string `mapstructure:"PORT"`
	Env      string `mapstructure:"ENV"`
	AppName  string `mapstructure:"APP_NAME"`
	AuthMode string `mapstructure:"AUTH_MODE"`

	JWTSecret string        `mapstructure:"JWT_SECRET"`
	JWTIssuer string        `mapstructure:"JWT_ISSUER"`
	TokenTTL  time.Duration `mapstructure:"TOKEN_TTL"`

	// Empty means in-memory repositories.
	DatabaseURL    string `mapstructure:"DATABASE_URL"`
	DBMaxOpenConns int    `mapstructure:"DB_MAX_OPEN_CONNS"`
	AutoMigrate    bool   `mapstructure:"AUTO_MIGRATE"`

	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`

	IAMBaseURL string `mapstructure:"IAM_BASE_URL"`
	IAMAPIKey  string `mapstructure:"IAM_API_KEY"`

	RateLimitRPS   float64 `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int     `mapstructure:"RATE_LIMIT_BURST"`
}

var keys = []string{
	"PORT", "ENV", "APP_NAME", "AUTH_MODE",
	"JWT_SECRET", "JWT_ISSUER", "TOKEN_TTL",
	"DATABASE_URL", "DB_MAX_OPEN_CONNS", "AUTO_MIGRATE",
	"LOG_LEVEL", "LOG_FORMAT",
	"IAM_BASE_URL", "IAM_API_KEY",
	"RATE_LIMIT_RPS", "RATE_LIMIT_BURST",
}

// Load reads the environment, falling back to .env in the working directory.
func Load() (*Config, error) {
	return LoadFile(".env")
}

// LoadFile is Load with an explicit dotenv path. A missing file is not an error.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("APP_NAME", "health-record-portal")
	v.SetDefault("AUTH_MODE", AuthModeJWT)
	v.SetDefault("JWT_ISSUER", "health-record-portal")
	v.SetDefault("TOKEN_TTL", "24h")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("AUTO_MIGRATE", false)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("RATE_LIMIT_RPS", 20)
	v.SetDefault("RATE_LIMIT_BURST", 40)

	// Unmarshal only sees env vars that are bound.
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.AuthMode = strings.ToLower(strings.TrimSpace(cfg.AuthMode))
	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// Validate refuses configurations that would run without real authentication
// outside development.
func (c *Config) Validate() error {
	switch c.AuthMode {
	case AuthModeJWT:
		if len(c.JWTSecret) < minSecretLen {
			if !c.IsDev() {
				return fmt.Errorf("JWT_SECRET must be at least %d bytes when ENV=%q", minSecretLen, c.Env)
			}
		}
	case AuthModeRemote:
		if strings.TrimSpace(c.IAMBaseURL) == "" || strings.TrimSpace(c.IAMAPIKey) == "" {
			return fmt.Errorf("IAM_BASE_URL and IAM_API_KEY are required when AUTH_MODE is %q", AuthModeRemote)
		}
	case AuthModeDev:
		if !c.IsDev() {
			return fmt.Errorf("AUTH_MODE %q is only allowed when ENV=development", AuthModeDev)
		}
	default:
		return fmt.Errorf("AUTH_MODE must be %q, %q or %q, got %q", AuthModeJWT, AuthModeRemote, AuthModeDev, c.AuthMode)
	}

	if c.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be positive")
	}
	if c.DBMaxOpenConns < 0 {
		return fmt.Errorf("DB_MAX_OPEN_CONNS must not be negative")
	}
	return nil
}
