package app

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/linkstash/internal/config"
	"github.com/sakif/linkstash/internal/service"
)

func testConfig(dir string) *config.Config {
	return &config.Config{
		Server:   config.ServerConfig{Port: 8080},
		Database: config.DatabaseConfig{Dir: dir},
		Log:      config.LogConfig{Level: "info", Format: "text"},
		Enrich:   config.EnrichConfig{Enabled: true, Workers: 1, QueueSize: 4},
		Metadata: config.MetadataConfig{Timeout: time.Second},
	}
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBuild_InMemory(t *testing.T) {
	a, err := Build(testConfig(":memory:"), discard())
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })

	assert.NotNil(t, a.Enricher)
	assert.False(t, a.Sessions.Enabled())

	link, err := a.Links.Save(context.Background(), service.SaveLinkInput{
		URL:   "https://example.com",
		Title: "Example",
		Tags:  []string{"demo"},
	})
	require.NoError(t, err)

	tags, err := a.Tags.List(context.Background())
	require.NoError(t, err)
	require.Len(t, tags, 1)
	assert.Equal(t, 1, tags[0].LinkCount)
	assert.Equal(t, "demo", link.Tags[0].Name)
}

func TestBuild_QueuesBareLinks(t *testing.T) {
	a, err := Build(testConfig(":memory:"), discard())
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })

	_, err = a.Links.Save(context.Background(), service.SaveLinkInput{URL: "https://example.com"})
	require.NoError(t, err)
	assert.Equal(t, 1, a.Enricher.Pending())
}

func TestBuild_WithoutBackgroundEnrichment(t *testing.T) {
	a, err := Build(testConfig(":memory:"), discard(), WithoutBackgroundEnrichment())
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	require.NotNil(t, a.Enricher, "the pool stays available for synchronous fetches")

	_, err = a.Links.Save(context.Background(), service.SaveLinkInput{URL: "https://example.com"})
	require.NoError(t, err)
	assert.Zero(t, a.Enricher.Pending(), "nothing may be queued on a pool that never starts")

	backlog, err := a.Enricher.Backfill(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, backlog, "the link is left for the next backfill")
	assert.Equal(t, 1, a.Enricher.Pending())
}

func TestBuild_CreatesDataDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	cfg := testConfig(dir)
	cfg.Enrich.Enabled = false

	a, err := Build(cfg, discard())
	require.NoError(t, err)
	assert.Nil(t, a.Enricher)
	require.NoError(t, a.Close())

	_, err = os.Stat(filepath.Join(dir, "linkstash.db"))
	assert.NoError(t, err)
}

func TestBuild_WithAuth(t *testing.T) {
	cfg := testConfig(":memory:")
	cfg.Auth = config.AuthConfig{
		JWTSecret:          "a-long-enough-jwt-secret",
		PassphraseHash:     "$2a$12$placeholder",
		GitHubClientID:     "id",
		GitHubClientSecret: "secret",
		GitHubCallbackURL:  "http://localhost:8080/auth/github/callback",
	}

	a, err := Build(cfg, discard())
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })

	assert.True(t, a.Sessions.Enabled())
	assert.True(t, a.Sessions.GitHubEnabled())
}

func TestBuild_BadSecret(t *testing.T) {
	cfg := testConfig(":memory:")
	cfg.Auth.JWTSecret = "short"

	_, err := Build(cfg, discard())
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(config.LogConfig{Level: "warn", Format: "json"}, &buf)
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)

	_, err = NewLogger(config.LogConfig{Level: "chatty"}, &buf)
	assert.Error(t, err)
}
