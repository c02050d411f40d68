package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

const defaultGitHubAPIURL = "https://api.github.com"

// GitHubIdentity is what account linking needs from a finished OAuth flow:
// who the user is and a token to call the API as them.
type GitHubIdentity struct {
	Login       string
	AccessToken string
}

// GitHubProvider runs the GitHub Authorization Code flow used to link the
// owner's GitHub account.
//
//  1. /auth/github/login redirects to AuthURL(state)
//  2. GitHub redirects back to the callback with ?code=...&state=...
//  3. Exchange trades the code for a token (server to server, using the
//     client secret) and reads GET /user with it
type GitHubProvider struct {
	config *oauth2.Config
	apiURL string
}

// NewGitHubProvider configures the flow. callbackURL must match the OAuth
// app's registered callback exactly. Only "read:user" is requested:
// profiles are public data.
func NewGitHubProvider(clientID, clientSecret, callbackURL string) *GitHubProvider {
	return &GitHubProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes:       []string{"read:user"},
			Endpoint:     github.Endpoint,
		},
		apiURL: defaultGitHubAPIURL,
	}
}

// WithEndpoints points the provider at other OAuth and API hosts. Used by
// tests and GitHub Enterprise.
func (p *GitHubProvider) WithEndpoints(authURL, tokenURL, apiURL string) *GitHubProvider {
	p.config.Endpoint = oauth2.Endpoint{AuthURL: authURL, TokenURL: tokenURL}
	p.apiURL = strings.TrimRight(apiURL, "/")
	return p
}

// AuthURL is where to send the browser. state must be random and checked
// on the callback to stop CSRF.
func (p *GitHubProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange completes the flow and returns the GitHub identity.
func (p *GitHubProvider) Exchange(ctx context.Context, code string) (*GitHubIdentity, error) {
	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("auth: exchanging OAuth code: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.apiURL+"/user", nil)
	if err != nil {
		return nil, fmt.Errorf("auth: building /user request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.config.Client(ctx, token).Do(req)
	if err != nil {
		return nil, fmt.Errorf("auth: calling GitHub /user API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("auth: GitHub /user API returned status %d", resp.StatusCode)
	}

	var user struct {
		Login string `json:"login"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("auth: decoding GitHub /user response: %w", err)
	}
	if user.Login == "" {
		return nil, fmt.Errorf("auth: GitHub returned a user without a login")
	}

	return &GitHubIdentity{Login: user.Login, AccessToken: token.AccessToken}, nil
}
