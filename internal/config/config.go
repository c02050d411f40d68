// Package config loads LinkStash settings with Viper.
//
// Precedence, highest first:
//
//	LINKSTASH_* environment variables  (LINKSTASH_SERVER_PORT=9000)
//	config file                        (./configs/config.yaml or ./config.yaml, or --config)
//	defaults                           (setDefaults)
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/sakif/linkstash/internal/auth"
	"github.com/sakif/linkstash/internal/profile"
	"github.com/sakif/linkstash/internal/repository/sqlite"
)

const EnvPrefix = "LINKSTASH"

// Config is the complete LinkStash configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Log        LogConfig        `mapstructure:"log"`
	Enrich     EnrichConfig     `mapstructure:"enrich"`
	Metadata   MetadataConfig   `mapstructure:"metadata"`
	GitHub     GitHubConfig     `mapstructure:"github"`
	HackerNews HackerNewsConfig `mapstructure:"hackernews"`
	Auth       AuthConfig       `mapstructure:"auth"`
}

type ServerConfig struct {
	Port          int  `mapstructure:"port"`
	SecureCookies bool `mapstructure:"secure_cookies"`
}

type DatabaseConfig struct {
	// Dir holds linkstash.db. ":memory:" keeps everything in memory.
	Dir string `mapstructure:"dir"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type EnrichConfig struct {
	Enabled   bool `mapstructure:"enabled"`
	Workers   int  `mapstructure:"workers"`
	QueueSize int  `mapstructure:"queue_size"`
}

type MetadataConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

type GitHubConfig struct {
	APIURL string `mapstructure:"api_url"`
	// Token authenticates profile lookups when no account is linked.
	Token string `mapstructure:"token"`
}

type HackerNewsConfig struct {
	APIURL string `mapstructure:"api_url"`
}

// AuthConfig enables the login requirement when JWTSecret is set.
type AuthConfig struct {
	JWTSecret          string        `mapstructure:"jwt_secret"`
	SessionTTL         time.Duration `mapstructure:"session_ttl"`
	PassphraseHash     string        `mapstructure:"passphrase_hash"`
	GitHubClientID     string        `mapstructure:"github_client_id"`
	GitHubClientSecret string        `mapstructure:"github_client_secret"`
	GitHubCallbackURL  string        `mapstructure:"github_callback_url"`
}

// Enabled reports whether login is required.
func (a AuthConfig) Enabled() bool {
	return a.JWTSecret != ""
}

// GitHubOAuthEnabled reports whether GitHub account linking is configured.
func (a AuthConfig) GitHubOAuthEnabled() bool {
	return a.GitHubClientID != "" && a.GitHubClientSecret != ""
}

// DatabasePath is where the SQLite file lives.
func (c *Config) DatabasePath() string {
	if c.Database.Dir == sqlite.MemoryPath {
		return sqlite.MemoryPath
	}
	return sqlite.Path(c.Database.Dir)
}

// Load reads configuration from cfgFile (when non-empty) or the default
// search paths, then the environment. A missing config file is fine.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if cfg.Auth.GitHubCallbackURL == "" {
		cfg.Auth.GitHubCallbackURL = fmt.Sprintf("http://localhost:%d/auth/github/callback", cfg.Server.Port)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return &cfg, nil
}

// setDefaults registers every key. Env overrides only reach Unmarshal for
// keys Viper knows about, so secrets get empty defaults too.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.secure_cookies", false)

	v.SetDefault("database.dir", "data")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("enrich.enabled", true)
	v.SetDefault("enrich.workers", 2)
	v.SetDefault("enrich.queue_size", 100)

	v.SetDefault("metadata.timeout", 10*time.Second)

	v.SetDefault("github.api_url", profile.DefaultGitHubAPIURL)
	v.SetDefault("github.token", "")
	v.SetDefault("hackernews.api_url", profile.DefaultHackerNewsAPIURL)

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.session_ttl", auth.DefaultSessionTTL)
	v.SetDefault("auth.passphrase_hash", "")
	v.SetDefault("auth.github_client_id", "")
	v.SetDefault("auth.github_client_secret", "")
	v.SetDefault("auth.github_callback_url", "")
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port))
	}
	if strings.TrimSpace(c.Database.Dir) == "" {
		errs = append(errs, errors.New("database.dir must not be empty"))
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if f := strings.ToLower(c.Log.Format); f != "text" && f != "json" {
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}
	if c.Enrich.Enabled {
		if c.Enrich.Workers < 1 || c.Enrich.Workers > 32 {
			errs = append(errs, fmt.Errorf("enrich.workers must be between 1 and 32, got %d", c.Enrich.Workers))
		}
		if c.Enrich.QueueSize < 1 {
			errs = append(errs, fmt.Errorf("enrich.queue_size must be positive, got %d", c.Enrich.QueueSize))
		}
	}
	if c.Metadata.Timeout <= 0 {
		errs = append(errs, errors.New("metadata.timeout must be positive"))
	}
	if c.Auth.Enabled() {
		if len(c.Auth.JWTSecret) < auth.MinSecretLength {
			errs = append(errs, fmt.Errorf("auth.jwt_secret must be at least %d characters", auth.MinSecretLength))
		}
		if c.Auth.PassphraseHash == "" {
			errs = append(errs, errors.New("auth.passphrase_hash is required when auth.jwt_secret is set (see `linkstash hash-passphrase`)"))
		}
	}
	if c.Auth.GitHubOAuthEnabled() && !c.Auth.Enabled() {
		errs = append(errs, errors.New("GitHub OAuth requires auth.jwt_secret"))
	}

	return errors.Join(errs...)
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("log.level must be debug, info, warn or error, got %q", s)
	}
	return level, nil
}
