package profile

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/sakif/linkstash/internal/apperror"
	"github.com/sakif/linkstash/internal/model"
)

// Request names the accounts whose profiles should be fetched. Empty fields
// are skipped.
type Request struct {
	GitHubLogin        string
	GitHubToken        string
	HackerNewsUsername string
}

// Service fetches several profiles at once.
type Service struct {
	github *GitHubClient
	hn     *HackerNewsClient
	logger *slog.Logger
}

func NewService(github *GitHubClient, hn *HackerNewsClient, logger *slog.Logger) *Service {
	return &Service{github: github, hn: hn, logger: logger}
}

// GitHub fetches one GitHub profile.
func (s *Service) GitHub(ctx context.Context, login string) (*model.GitHubProfile, error) {
	return s.github.Fetch(ctx, login)
}

// HackerNews fetches one HackerNews profile.
func (s *Service) HackerNews(ctx context.Context, username string) (*model.HackerNewsProfile, error) {
	return s.hn.Fetch(ctx, username)
}

// FetchAll fetches the requested profiles concurrently.
//
// A provider that fails does not fail the whole call: its profile stays nil
// and the reason is recorded in Profiles.Errors. Only cancellation of ctx is
// returned as an error.
func (s *Service) FetchAll(ctx context.Context, req Request) (*model.Profiles, error) {
	var (
		out model.Profiles
		mu  sync.Mutex
	)
	fail := func(p model.Provider, err error) {
		mu.Lock()
		defer mu.Unlock()
		if out.Errors == nil {
			out.Errors = make(map[model.Provider]string)
		}
		out.Errors[p] = err.Error()

		if apperror.IsNotFound(err) {
			s.logger.Info("linked profile not found", slog.String("provider", string(p)))
			return
		}
		s.logger.Warn("profile fetch failed",
			slog.String("provider", string(p)),
			slog.String("error", err.Error()))
	}

	g, gctx := errgroup.WithContext(ctx)

	if req.GitHubLogin != "" {
		g.Go(func() error {
			p, err := s.github.FetchWithToken(gctx, req.GitHubLogin, req.GitHubToken)
			if err != nil {
				fail(model.ProviderGitHub, err)
				return nil
			}
			mu.Lock()
			out.GitHub = p
			mu.Unlock()
			return nil
		})
	}

	if req.HackerNewsUsername != "" {
		g.Go(func() error {
			p, err := s.hn.Fetch(gctx, req.HackerNewsUsername)
			if err != nil {
				fail(model.ProviderHackerNews, err)
				return nil
			}
			mu.Lock()
			out.HackerNews = p
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &out, nil
}
