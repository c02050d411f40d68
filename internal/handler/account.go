package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/linkstash/internal/model"
	"github.com/sakif/linkstash/internal/service"
)

// AccountHandler serves linked accounts and the live profiles behind them.
type AccountHandler struct {
	accounts *service.AccountService
	logger   *slog.Logger
}

func NewAccountHandler(accounts *service.AccountService, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{accounts: accounts, logger: logger}
}

// HandleList: GET /api/accounts. Access tokens are never serialized.
func (h *AccountHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.accounts.List(r.Context())
	if err != nil {
		logFailure(h.logger, r, "listing accounts failed", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, accounts)
}

// HandleLinkHackerNews links a HackerNews user after checking it exists.
//
// HTTP: PUT /api/accounts/hackernews {"username": "pg"}
func (h *AccountHandler) HandleLinkHackerNews(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	account, err := h.accounts.LinkHackerNews(r.Context(), req.Username)
	if err != nil {
		logFailure(h.logger, r, "linking HackerNews failed", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

// HandleUnlink: DELETE /api/accounts/{provider}
func (h *AccountHandler) HandleUnlink(w http.ResponseWriter, r *http.Request) {
	provider := model.Provider(chi.URLParam(r, "provider"))
	if err := h.accounts.Unlink(r.Context(), provider); err != nil {
		logFailure(h.logger, r, "unlinking account failed", err)
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleProfiles returns the live profile of every linked account. A
// provider that could not be reached is reported under "errors" rather than
// failing the request.
//
// HTTP: GET /api/profiles
func (h *AccountHandler) HandleProfiles(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.accounts.Profiles(r.Context())
	if err != nil {
		logFailure(h.logger, r, "fetching profiles failed", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profiles)
}

// HandleGitHubProfile: GET /api/profiles/github/{login}
func (h *AccountHandler) HandleGitHubProfile(w http.ResponseWriter, r *http.Request) {
	p, err := h.accounts.GitHubProfile(r.Context(), chi.URLParam(r, "login"))
	if err != nil {
		logFailure(h.logger, r, "fetching GitHub profile failed", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// HandleHackerNewsProfile: GET /api/profiles/hackernews/{username}
func (h *AccountHandler) HandleHackerNewsProfile(w http.ResponseWriter, r *http.Request) {
	p, err := h.accounts.HackerNewsProfile(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		logFailure(h.logger, r, "fetching HackerNews profile failed", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
