package model

import "time"

// Provider names an external service an account can be linked to.
type Provider string

const (
	ProviderGitHub     Provider = "github"
	ProviderHackerNews Provider = "hackernews"
)

// Valid reports whether p is a supported provider.
func (p Provider) Valid() bool {
	return p == ProviderGitHub || p == ProviderHackerNews
}

// Account is one of the owner's linked external accounts. There is at most
// one account per provider.
//
// WHY AccessToken HAS json:"-":
// The GitHub OAuth token is stored so profile requests can be authenticated,
// but it must never be echoed back through the API.
type Account struct {
	Provider    Provider  `json:"provider"    db:"provider"`
	Username    string    `json:"username"    db:"username"`
	AccessToken string    `json:"-"           db:"access_token"`
	LinkedAt    time.Time `json:"linkedAt"    db:"linked_at"`
}
