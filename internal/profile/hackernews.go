package profile

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/time/rate"

	"github.com/sakif/linkstash/internal/apperror"
	"github.com/sakif/linkstash/internal/model"
)

var hnUsernamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{2,15}$`)

// ValidHackerNewsUsername reports whether username could be a HackerNews
// account name.
func ValidHackerNewsUsername(username string) bool {
	return hnUsernamePattern.MatchString(username)
}

// HackerNewsClient reads users from the HackerNews Firebase API.
type HackerNewsClient struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

func NewHackerNewsClient(baseURL string, opts ...Option) *HackerNewsClient {
	if baseURL == "" {
		baseURL = DefaultHackerNewsAPIURL
	}
	cfg := newClientConfig(opts)
	return &HackerNewsClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: cfg.httpClient,
		limiter:    cfg.limiter,
	}
}

type hnUser struct {
	ID    string `json:"id"`
	Karma int    `json:"karma"`
	About string `json:"about"`
}

// Fetch returns the profile of username. The API answers 200 with a literal
// null body for unknown users, which is reported as NotFound.
func (c *HackerNewsClient) Fetch(ctx context.Context, username string) (*model.HackerNewsProfile, error) {
	username = strings.TrimSpace(username)
	if !ValidHackerNewsUsername(username) {
		return nil, apperror.ValidationFailed("username", "invalid HackerNews username")
	}

	var u *hnUser
	status, err := getJSON(ctx, c.httpClient, c.limiter,
		c.baseURL+"/user/"+url.PathEscape(username)+".json", &u)
	if err != nil {
		return nil, fmt.Errorf("hackernews: %w", err)
	}
	switch status {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, apperror.NotFound("hackernews user", username)
	default:
		return nil, fmt.Errorf("hackernews: unexpected status %d for %s", status, username)
	}
	if u == nil {
		return nil, apperror.NotFound("hackernews user", username)
	}

	return &model.HackerNewsProfile{
		Username: u.ID,
		Karma:    u.Karma,
		About:    u.About,
	}, nil
}
