package profile

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/sakif/linkstash/internal/apperror"
	"github.com/sakif/linkstash/internal/model"
)

var githubLoginPattern = regexp.MustCompile(`^[A-Za-z0-9](?:[A-Za-z0-9-]{0,38})$`)

// ValidGitHubLogin reports whether login is a syntactically valid GitHub
// user name.
func ValidGitHubLogin(login string) bool {
	return githubLoginPattern.MatchString(login)
}

// GitHubClient reads users from the GitHub REST API.
type GitHubClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewGitHubClient returns a client for baseURL (DefaultGitHubAPIURL when
// empty). token may be empty for anonymous access.
func NewGitHubClient(baseURL, token string, opts ...Option) *GitHubClient {
	if baseURL == "" {
		baseURL = DefaultGitHubAPIURL
	}
	cfg := newClientConfig(opts)
	return &GitHubClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: cfg.httpClient,
		limiter:    cfg.limiter,
	}
}

// githubUser is the subset of GET /users/{login} we read.
// name and bio are null when the user never set them.
type githubUser struct {
	Login       string  `json:"login"`
	Name        *string `json:"name"`
	AvatarURL   string  `json:"avatar_url"`
	Bio         *string `json:"bio"`
	PublicRepos int     `json:"public_repos"`
	Followers   int     `json:"followers"`
	Following   int     `json:"following"`
}

// Fetch returns the public profile of login using the client's own token.
func (c *GitHubClient) Fetch(ctx context.Context, login string) (*model.GitHubProfile, error) {
	return c.FetchWithToken(ctx, login, "")
}

// FetchWithToken is Fetch authenticated with token, falling back to the
// client's token when empty.
func (c *GitHubClient) FetchWithToken(ctx context.Context, login, token string) (*model.GitHubProfile, error) {
	login = strings.TrimSpace(login)
	if !ValidGitHubLogin(login) {
		return nil, apperror.ValidationFailed("login", "invalid GitHub login")
	}

	var u githubUser
	status, err := getJSON(ctx, c.clientFor(ctx, token), c.limiter,
		c.baseURL+"/users/"+url.PathEscape(login), &u)
	if err != nil {
		return nil, fmt.Errorf("github: %w", err)
	}
	switch status {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, apperror.NotFound("github user", login)
	default:
		return nil, fmt.Errorf("github: unexpected status %d for %s", status, login)
	}

	p := &model.GitHubProfile{
		Login:       u.Login,
		AvatarURL:   u.AvatarURL,
		PublicRepos: u.PublicRepos,
		Followers:   u.Followers,
		Following:   u.Following,
	}
	if u.Name != nil {
		p.Name = *u.Name
	}
	if u.Bio != nil {
		p.Bio = *u.Bio
	}
	return p, nil
}

// clientFor wraps the base client in an oauth2 transport when a token is
// available. The base client's transport is kept so tests and custom
// timeouts still apply.
func (c *GitHubClient) clientFor(ctx context.Context, token string) *http.Client {
	if token == "" {
		token = c.token
	}
	if token == "" {
		return c.httpClient
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))
	client.Timeout = c.httpClient.Timeout
	return client
}
