package handler

import (
	"embed"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/sakif/linkstash/internal/auth"
	"github.com/sakif/linkstash/internal/model"
	"github.com/sakif/linkstash/internal/repository"
	"github.com/sakif/linkstash/internal/service"
	"github.com/sakif/linkstash/internal/view"
)

//go:embed templates/*.html
var templateFS embed.FS

// PageHandler renders the HTML card list.
//
// Templates are parsed once at startup: base.html lays out the page and
// links.html fills its "content" block.
type PageHandler struct {
	templates *template.Template
	links     *service.LinkService
	sessions  *service.SessionService
	logger    *slog.Logger
}

func NewPageHandler(links *service.LinkService, sessions *service.SessionService, logger *slog.Logger) (*PageHandler, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/base.html", "templates/links.html")
	if err != nil {
		return nil, err
	}
	return &PageHandler{templates: tmpl, links: links, sessions: sessions, logger: logger}, nil
}

type pageData struct {
	Title         string
	LoggedIn      bool
	AuthEnabled   bool
	GitHubEnabled bool
	Notice        string
	Error         string

	Items  []view.LinkItem
	Total  int
	Query  string
	Type   string
	Sort   string
	Types  []model.LinkType
	Sorts  []repository.LinkSort
}

var notices = map[string]string{
	"linked": "GitHub account linked.",
	"denied": "GitHub authorization was cancelled.",
}

// HandleIndex serves the card list.
//
// HTTP: GET /?q=&type=&sort=&favorite=&archived=&completed=&tag=
//
// Without a valid session (when auth is enabled) only the login form is
// shown.
func (h *PageHandler) HandleIndex(w http.ResponseWriter, r *http.Request) {
	data := pageData{
		Title:         "LinkStash",
		AuthEnabled:   h.sessions.Enabled(),
		GitHubEnabled: h.sessions.GitHubEnabled(),
		LoggedIn:      auth.IsAuthenticated(r, h.sessions.Tokens()),
		Notice:        notices[r.URL.Query().Get("github")],
		Query:         r.URL.Query().Get("q"),
		Type:          r.URL.Query().Get("type"),
		Sort:          r.URL.Query().Get("sort"),
		Types:         model.LinkTypes(),
		Sorts:         []repository.LinkSort{repository.SortNewest, repository.SortOldest, repository.SortTitle, repository.SortCompleted},
	}

	status := http.StatusOK
	if data.LoggedIn {
		if err := h.loadLinks(r, &data); err != nil {
			logFailure(h.logger, r, "loading links for page failed", err)
			status, _ = statusFor(err)
			data.Error = "Could not load links."
			if status < http.StatusInternalServerError {
				data.Error = err.Error()
			}
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := h.templates.ExecuteTemplate(w, "base", data); err != nil {
		h.logger.Error("failed to render template", slog.String("error", err.Error()))
	}
}

func (h *PageHandler) loadLinks(r *http.Request, data *pageData) error {
	filter, err := parseLinkFilter(r)
	if err != nil {
		return err
	}
	// Archived links stay out of the default view.
	if filter.Archived == nil {
		filter.Archived = repository.Bool(false)
	}
	page, err := h.links.List(r.Context(), filter)
	if err != nil {
		return err
	}
	data.Items = view.NewLinkItems(page.Links, view.Callbacks{})
	data.Total = page.Total
	return nil
}
