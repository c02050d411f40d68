package model

// GitHubProfile is a read-only snapshot of a GitHub account.
//
// Profiles are fetched live when someone asks for them and are never stored.
// Name and Bio are optional on GitHub; an empty string means the user left
// them blank.
type GitHubProfile struct {
	Login       string `json:"login"`
	Name        string `json:"name,omitempty"`
	AvatarURL   string `json:"avatarUrl"`
	Bio         string `json:"bio,omitempty"`
	PublicRepos int    `json:"publicRepos"`
	Followers   int    `json:"followers"`
	Following   int    `json:"following"`
}

// DisplayName is the profile's name, or the login when no name is set.
func (p GitHubProfile) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	return p.Login
}

// HackerNewsProfile is a read-only snapshot of a HackerNews account.
// About is HTML as returned by the HackerNews API.
type HackerNewsProfile struct {
	Username string `json:"username"`
	Karma    int    `json:"karma"`
	About    string `json:"about,omitempty"`
}

// Profiles groups the profiles of every linked account. A nil field means
// that account is not linked or could not be fetched; in the latter case
// Errors holds a message keyed by provider.
type Profiles struct {
	GitHub     *GitHubProfile      `json:"github,omitempty"`
	HackerNews *HackerNewsProfile  `json:"hackernews,omitempty"`
	Errors     map[Provider]string `json:"errors,omitempty"`
}
