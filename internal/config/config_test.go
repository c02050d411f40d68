package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir()) // no config.yaml in the search paths

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "data", cfg.Database.Dir)
	assert.Equal(t, filepath.Join("data", "linkstash.db"), cfg.DatabasePath())
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.True(t, cfg.Enrich.Enabled)
	assert.Equal(t, 2, cfg.Enrich.Workers)
	assert.Equal(t, 100, cfg.Enrich.QueueSize)
	assert.Equal(t, 10*time.Second, cfg.Metadata.Timeout)
	assert.Equal(t, "https://api.github.com", cfg.GitHub.APIURL)
	assert.Equal(t, "http://localhost:8080/auth/github/callback", cfg.Auth.GitHubCallbackURL)
	assert.False(t, cfg.Auth.Enabled())
	assert.False(t, cfg.Auth.GitHubOAuthEnabled())
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9000
database:
  dir: ":memory:"
log:
  level: debug
  format: json
enrich:
  workers: 4
metadata:
  timeout: 3s
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, ":memory:", cfg.DatabasePath())
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 4, cfg.Enrich.Workers)
	assert.Equal(t, 100, cfg.Enrich.QueueSize, "unset keys keep their defaults")
	assert.Equal(t, 3*time.Second, cfg.Metadata.Timeout)
	assert.Equal(t, "http://localhost:9000/auth/github/callback", cfg.Auth.GitHubCallbackURL)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9000\n")
	t.Setenv("LINKSTASH_SERVER_PORT", "9100")
	t.Setenv("LINKSTASH_AUTH_JWT_SECRET", "an-env-secret-of-decent-length")
	t.Setenv("LINKSTASH_AUTH_PASSPHRASE_HASH", "$2a$12$abc")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.True(t, cfg.Auth.Enabled())
	assert.Equal(t, "$2a$12$abc", cfg.Auth.PassphraseHash)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_InvalidFile(t *testing.T) {
	path := writeConfig(t, "server:\n  port: [not a number\n")
	_, err := Load(path)
	assert.Error(t, err)
}

func validConfig() Config {
	return Config{
		Server:   ServerConfig{Port: 8080},
		Database: DatabaseConfig{Dir: "data"},
		Log:      LogConfig{Level: "info", Format: "text"},
		Enrich:   EnrichConfig{Enabled: true, Workers: 2, QueueSize: 10},
		Metadata: MetadataConfig{Timeout: time.Second},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"port zero", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"port too big", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"no data dir", func(c *Config) { c.Database.Dir = " " }, "database.dir"},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"no workers", func(c *Config) { c.Enrich.Workers = 0 }, "enrich.workers"},
		{"too many workers", func(c *Config) { c.Enrich.Workers = 100 }, "enrich.workers"},
		{"workers ignored when disabled", func(c *Config) { c.Enrich.Enabled = false; c.Enrich.Workers = 0 }, ""},
		{"zero timeout", func(c *Config) { c.Metadata.Timeout = 0 }, "metadata.timeout"},
		{"short secret", func(c *Config) {
			c.Auth.JWTSecret = "short"
			c.Auth.PassphraseHash = "$2a$12$x"
		}, "jwt_secret"},
		{"secret without passphrase", func(c *Config) { c.Auth.JWTSecret = "long-enough-secret-value" }, "passphrase_hash"},
		{"oauth without auth", func(c *Config) {
			c.Auth.GitHubClientID = "id"
			c.Auth.GitHubClientSecret = "secret"
		}, "GitHub OAuth"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("warn")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, level)

	_, err = ParseLevel("verbose")
	assert.Error(t, err)
}
