package handler

import (
	"log/slog"
	"net/http"

	"github.com/rs/xid"

	"github.com/sakif/linkstash/internal/auth"
	"github.com/sakif/linkstash/internal/service"
)

const stateCookieName = "oauth_state"

// AuthHandler logs the owner in and out and runs the GitHub linking flow.
//
//   - HandleLogin          → check the passphrase, set the session cookie
//   - HandleLogout         → clear the session cookie
//   - HandleGitHubLogin    → redirect the browser to GitHub
//   - HandleGitHubCallback → check state, link the account, redirect home
type AuthHandler struct {
	sessions      *service.SessionService
	secureCookies bool
	logger        *slog.Logger
}

// NewAuthHandler creates an AuthHandler. secureCookies should be true
// whenever the server is reached over HTTPS.
func NewAuthHandler(sessions *service.SessionService, secureCookies bool, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{sessions: sessions, secureCookies: secureCookies, logger: logger}
}

// HandleLogin exchanges the passphrase for a session.
//
// HTTP: POST /auth/login {"passphrase": "..."} → {"token": "..."}
//
// The token is also set as an HttpOnly cookie so the HTML page works
// without JavaScript touching it; scripts can use the returned token as a
// Bearer header instead.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Passphrase string `json:"passphrase"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	token, err := h.sessions.Login(r.Context(), req.Passphrase)
	if err != nil {
		logFailure(h.logger, r, "login failed", err)
		writeError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.sessions.Tokens().TTL().Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// HandleLogout clears the session cookie. Tokens are stateless, so an
// already-copied token stays valid until it expires.
//
// HTTP: POST /auth/logout
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// HandleGitHubLogin starts linking the owner's GitHub account.
//
// HTTP: GET /auth/github/login
//
// A random state is stored in a short-lived cookie and checked on the
// callback, so only a flow this server started can complete.
func (h *AuthHandler) HandleGitHubLogin(w http.ResponseWriter, r *http.Request) {
	state := xid.New().String()
	target, err := h.sessions.GitHubAuthURL(state)
	if err != nil {
		writeError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, target, http.StatusTemporaryRedirect)
}

// HandleGitHubCallback finishes the flow.
//
// HTTP: GET /auth/github/callback?code=xxx&state=yyy
func (h *AuthHandler) HandleGitHubCallback(w http.ResponseWriter, r *http.Request) {
	stateCookie, err := r.Cookie(stateCookieName)
	if err != nil || stateCookie.Value == "" {
		h.logger.Warn("github callback: missing state cookie")
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}
	if r.URL.Query().Get("state") != stateCookie.Value {
		h.logger.Warn("github callback: state mismatch")
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}

	// Single use.
	http.SetCookie(w, &http.Cookie{
		Name:   stateCookieName,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("github callback: authorization denied", slog.String("error", errParam))
		http.Redirect(w, r, "/?github=denied", http.StatusSeeOther)
		return
	}

	login, err := h.sessions.CompleteGitHub(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		logFailure(h.logger, r, "github linking failed", err)
		writeError(w, err)
		return
	}

	h.logger.Info("github account linked", slog.String("login", login))
	http.Redirect(w, r, "/?github=linked", http.StatusSeeOther)
}
