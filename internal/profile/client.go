// Package profile fetches public profiles from GitHub and HackerNews.
//
// Profiles are read live on every request and never stored. Both clients
// speak plain JSON over HTTP; the GitHub client can attach an OAuth token so
// requests count against the owner's (much larger) rate limit.
package profile

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const (
	DefaultGitHubAPIURL     = "https://api.github.com"
	DefaultHackerNewsAPIURL = "https://hacker-news.firebaseio.com/v0"

	userAgent       = "linkstash"
	maxBodyBytes    = 1 << 20
	defaultTimeout  = 10 * time.Second
	defaultInterval = 200 * time.Millisecond
	defaultBurst    = 5
)

// Option configures a client.
type Option func(*clientConfig)

type clientConfig struct {
	httpClient *http.Client
	limiter    *rate.Limiter
}

// WithHTTPClient replaces the default HTTP client (10s timeout).
func WithHTTPClient(c *http.Client) Option {
	return func(cfg *clientConfig) { cfg.httpClient = c }
}

// WithRateLimit sets how often requests may be sent. A zero interval
// disables limiting.
func WithRateLimit(interval time.Duration, burst int) Option {
	return func(cfg *clientConfig) {
		if interval <= 0 {
			cfg.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		cfg.limiter = rate.NewLimiter(rate.Every(interval), burst)
	}
}

func newClientConfig(opts []Option) clientConfig {
	cfg := clientConfig{
		httpClient: &http.Client{Timeout: defaultTimeout},
		limiter:    rate.NewLimiter(rate.Every(defaultInterval), defaultBurst),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// getJSON waits for the limiter, GETs url and decodes a 200 response into
// dst. It returns the status code so callers can map 404 themselves.
func getJSON(ctx context.Context, client *http.Client, limiter *rate.Limiter, url string, dst any) (int, error) {
	if err := limiter.Wait(ctx); err != nil {
		return 0, fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("requesting %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return resp.StatusCode, nil
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(dst); err != nil {
		return resp.StatusCode, fmt.Errorf("decoding response: %w", err)
	}
	return resp.StatusCode, nil
}
