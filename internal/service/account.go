package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/linkstash/internal/apperror"
	"github.com/sakif/linkstash/internal/model"
	"github.com/sakif/linkstash/internal/profile"
	"github.com/sakif/linkstash/internal/repository"
)

// ProfileFetcher reads live profiles. *profile.Service implements it.
type ProfileFetcher interface {
	GitHub(ctx context.Context, login string) (*model.GitHubProfile, error)
	HackerNews(ctx context.Context, username string) (*model.HackerNewsProfile, error)
	FetchAll(ctx context.Context, req profile.Request) (*model.Profiles, error)
}

// AccountService links the owner's GitHub and HackerNews accounts and reads
// their profiles.
type AccountService struct {
	accounts repository.AccountRepository
	profiles ProfileFetcher
	logger   *slog.Logger
}

func NewAccountService(accounts repository.AccountRepository, profiles ProfileFetcher, logger *slog.Logger) *AccountService {
	return &AccountService{accounts: accounts, profiles: profiles, logger: logger}
}

// LinkHackerNews links a HackerNews username after checking it exists.
func (s *AccountService) LinkHackerNews(ctx context.Context, username string) (*model.Account, error) {
	username = strings.TrimSpace(username)
	if !profile.ValidHackerNewsUsername(username) {
		return nil, apperror.ValidationFailed("username", "invalid HackerNews username")
	}

	p, err := s.profiles.HackerNews(ctx, username)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.ValidationFailed("username",
				fmt.Sprintf("HackerNews user %q does not exist", username))
		}
		return nil, err
	}

	account := &model.Account{Provider: model.ProviderHackerNews, Username: p.Username}
	if err := s.accounts.Save(ctx, account); err != nil {
		return nil, err
	}
	s.logger.Info("account linked", slog.String("provider", "hackernews"), slog.String("username", account.Username))
	return account, nil
}

// LinkGitHub stores the GitHub login and OAuth token obtained from the
// OAuth callback.
func (s *AccountService) LinkGitHub(ctx context.Context, login, token string) (*model.Account, error) {
	login = strings.TrimSpace(login)
	if !profile.ValidGitHubLogin(login) {
		return nil, apperror.ValidationFailed("login", "invalid GitHub login")
	}

	account := &model.Account{Provider: model.ProviderGitHub, Username: login, AccessToken: token}
	if err := s.accounts.Save(ctx, account); err != nil {
		return nil, err
	}
	s.logger.Info("account linked", slog.String("provider", "github"), slog.String("username", login))
	return account, nil
}

func (s *AccountService) List(ctx context.Context) ([]model.Account, error) {
	return s.accounts.List(ctx)
}

// Unlink forgets the account for provider.
func (s *AccountService) Unlink(ctx context.Context, provider model.Provider) error {
	if !provider.Valid() {
		return apperror.ValidationFailed("provider", fmt.Sprintf("unknown provider %q", provider))
	}
	if err := s.accounts.Delete(ctx, provider); err != nil {
		return err
	}
	s.logger.Info("account unlinked", slog.String("provider", string(provider)))
	return nil
}

// Profiles fetches the live profile of every linked account.
func (s *AccountService) Profiles(ctx context.Context) (*model.Profiles, error) {
	accounts, err := s.accounts.List(ctx)
	if err != nil {
		return nil, err
	}

	var req profile.Request
	for _, a := range accounts {
		switch a.Provider {
		case model.ProviderGitHub:
			req.GitHubLogin = a.Username
			req.GitHubToken = a.AccessToken
		case model.ProviderHackerNews:
			req.HackerNewsUsername = a.Username
		}
	}
	return s.profiles.FetchAll(ctx, req)
}

// GitHubProfile fetches any GitHub user's profile.
func (s *AccountService) GitHubProfile(ctx context.Context, login string) (*model.GitHubProfile, error) {
	return s.profiles.GitHub(ctx, login)
}

// HackerNewsProfile fetches any HackerNews user's profile.
func (s *AccountService) HackerNewsProfile(ctx context.Context, username string) (*model.HackerNewsProfile, error) {
	return s.profiles.HackerNews(ctx, username)
}
