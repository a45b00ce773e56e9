// Package config loads the server configuration from the environment.
//
// A .env file in the working directory is read first if present (it never
// overrides variables already set), then variables are parsed into Config
// and validated. Config is built once in main and passed down by value.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Host        string `env:"HOST" envDefault:"0.0.0.0"`
	Port        int    `env:"PORT" envDefault:"3001" validate:"min=1,max=65535"`
	PublicURL   string `env:"PUBLIC_URL" envDefault:"http://localhost:3001" validate:"url"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`
	FrontendDir string `env:"FRONTEND_DIR" envDefault:"frontend"`

	// DBPath is the sqlite file, used unless DatabaseURL holds a postgres DSN.
	DBPath      string `env:"DB_PATH" envDefault:"data/devdashboard.db"`
	DatabaseURL string `env:"DATABASE_URL"`

	// TokenEncryptionKey is 32 bytes in hex. Empty stores access tokens as-is.
	TokenEncryptionKey string `env:"TOKEN_ENCRYPTION_KEY" validate:"omitempty,len=64,hexadecimal"`
	// OAuthStateSecret enables the signed OAuth state check. Empty disables it.
	OAuthStateSecret string `env:"OAUTH_STATE_SECRET" validate:"omitempty,min=16"`

	StoreRetries int      `env:"STORE_RETRIES" envDefault:"2" validate:"min=0,max=10"`
	CORSOrigins  []string `env:"CORS_ORIGINS" envSeparator:","`

	GitHub GitHubConfig `envPrefix:"GITHUB_"`
}

type GitHubConfig struct {
	ClientID     string `env:"CLIENT_ID" validate:"required"`
	ClientSecret string `env:"CLIENT_SECRET" validate:"required"`
	// RedirectURL defaults to PublicURL + "/auth/github/callback".
	RedirectURL string `env:"REDIRECT_URL" validate:"omitempty,url"`
	// Empty AuthURL/TokenURL mean github.com's endpoints.
	AuthURL  string        `env:"AUTH_URL" validate:"omitempty,url"`
	TokenURL string        `env:"TOKEN_URL" validate:"omitempty,url"`
	UserURL  string        `env:"USER_URL" envDefault:"https://api.github.com/user" validate:"url"`
	Timeout  time.Duration `env:"TIMEOUT" envDefault:"10s" validate:"gt=0s"`
}

// Load reads .env (if any) and then the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()
	return Parse()
}

// Parse builds a Config from the process environment alone.
func Parse() (Config, error) {
	return parseFrom(nil)
}

// parseFrom parses environ instead of the process environment when non-nil.
func parseFrom(environ map[string]string) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: environ}); err != nil {
		return Config{}, fmt.Errorf("config: parse env: %w", err)
	}

	if cfg.GitHub.RedirectURL == "" {
		cfg.GitHub.RedirectURL = strings.TrimRight(cfg.PublicURL, "/") + "/auth/github/callback"
	}
	cfg.CORSOrigins = trimEmpty(cfg.CORSOrigins)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field rules and reports the first violation by env name.
func (c Config) Validate() error {
	err := validator.New().Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return fmt.Errorf("config: %s failed on '%s' validation", envName(fe.StructNamespace()), fe.Tag())
	}
	return fmt.Errorf("config: %w", err)
}

// Addr is the listen address, e.g. "0.0.0.0:3001".
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// BaseURL is the address the server is reachable on, for startup logs.
func (c Config) BaseURL() string {
	return "http://" + c.Addr()
}

// UsePostgres reports whether DatabaseURL selects the postgres store.
func (c Config) UsePostgres() bool {
	return strings.HasPrefix(c.DatabaseURL, "postgres://") ||
		strings.HasPrefix(c.DatabaseURL, "postgresql://")
}

func (c Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

var envNames = map[string]string{
	"Config.Host":                "HOST",
	"Config.Port":                "PORT",
	"Config.PublicURL":           "PUBLIC_URL",
	"Config.LogLevel":            "LOG_LEVEL",
	"Config.TokenEncryptionKey":  "TOKEN_ENCRYPTION_KEY",
	"Config.OAuthStateSecret":    "OAUTH_STATE_SECRET",
	"Config.StoreRetries":        "STORE_RETRIES",
	"Config.GitHub.ClientID":     "GITHUB_CLIENT_ID",
	"Config.GitHub.ClientSecret": "GITHUB_CLIENT_SECRET",
	"Config.GitHub.RedirectURL":  "GITHUB_REDIRECT_URL",
	"Config.GitHub.AuthURL":      "GITHUB_AUTH_URL",
	"Config.GitHub.TokenURL":     "GITHUB_TOKEN_URL",
	"Config.GitHub.UserURL":      "GITHUB_USER_URL",
	"Config.GitHub.Timeout":      "GITHUB_TIMEOUT",
}

func envName(namespace string) string {
	if name, ok := envNames[namespace]; ok {
		return name
	}
	return namespace
}

func trimEmpty(in []string) []string {
	out := in[:0]
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
