package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/sakif/linkstash/internal/apperror"
	"github.com/sakif/linkstash/internal/auth"
)

// SessionService logs the owner in with their passphrase and finishes the
// GitHub OAuth flow.
//
// It knows nothing about cookies or redirects; the handler turns its results
// into HTTP.
type SessionService struct {
	tokens         *auth.TokenService // nil when auth is disabled
	hasher         *auth.PassphraseHasher
	passphraseHash string
	github         *auth.GitHubProvider // nil when GitHub linking is not configured
	accounts       *AccountService
	logger         *slog.Logger
}

func NewSessionService(
	tokens *auth.TokenService,
	hasher *auth.PassphraseHasher,
	passphraseHash string,
	github *auth.GitHubProvider,
	accounts *AccountService,
	logger *slog.Logger,
) *SessionService {
	return &SessionService{
		tokens:         tokens,
		hasher:         hasher,
		passphraseHash: passphraseHash,
		github:         github,
		accounts:       accounts,
		logger:         logger,
	}
}

// Enabled reports whether logging in is required at all.
func (s *SessionService) Enabled() bool {
	return s.tokens != nil
}

// Tokens exposes the token service for the auth middleware.
func (s *SessionService) Tokens() *auth.TokenService {
	return s.tokens
}

// GitHubEnabled reports whether GitHub account linking is configured.
func (s *SessionService) GitHubEnabled() bool {
	return s.github != nil
}

// Login checks the passphrase and returns a signed session token.
func (s *SessionService) Login(ctx context.Context, passphrase string) (string, error) {
	if !s.Enabled() {
		return "", apperror.Forbidden("authentication is disabled")
	}
	if s.passphraseHash == "" {
		return "", apperror.Forbidden("no passphrase is configured")
	}
	if passphrase == "" {
		return "", apperror.ValidationFailed("passphrase", "passphrase is required")
	}

	if err := s.hasher.Verify(s.passphraseHash, passphrase); err != nil {
		if errors.Is(err, auth.ErrWrongPassphrase) {
			s.logger.Warn("failed login attempt")
			return "", apperror.Unauthorized("wrong passphrase")
		}
		s.logger.Error("passphrase check failed", slog.String("error", err.Error()))
		return "", err
	}

	token, err := s.tokens.Generate(auth.OwnerSubject)
	if err != nil {
		return "", err
	}
	s.logger.Info("owner logged in")
	return token, nil
}

// GitHubAuthURL returns where to send the browser to start linking GitHub.
func (s *SessionService) GitHubAuthURL(state string) (string, error) {
	if s.github == nil {
		return "", apperror.Forbidden("GitHub linking is not configured")
	}
	return s.github.AuthURL(state), nil
}

// CompleteGitHub exchanges the OAuth code and links the GitHub account.
func (s *SessionService) CompleteGitHub(ctx context.Context, code string) (string, error) {
	if s.github == nil {
		return "", apperror.Forbidden("GitHub linking is not configured")
	}
	if code == "" {
		return "", apperror.ValidationFailed("code", "missing OAuth code")
	}

	identity, err := s.github.Exchange(ctx, code)
	if err != nil {
		s.logger.Error("GitHub OAuth exchange failed", slog.String("error", err.Error()))
		return "", apperror.Unauthorized("GitHub authorization failed")
	}

	account, err := s.accounts.LinkGitHub(ctx, identity.Login, identity.AccessToken)
	if err != nil {
		return "", err
	}
	return account.Username, nil
}
