// Package handler contains the HTTP handlers of LinkStash.
//
// Handlers are the glue between HTTP and the service layer:
//  1. parse the request (path, query, JSON body)
//  2. call a service
//  3. write the result with writeJSON or writeError
//
// They hold no business rules of their own.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/linkstash/internal/apperror"
	"github.com/sakif/linkstash/internal/model"
	"github.com/sakif/linkstash/internal/repository"
	"github.com/sakif/linkstash/internal/service"
	"github.com/sakif/linkstash/internal/view"
)

// LinkHandler serves /api/links.
type LinkHandler struct {
	links  *service.LinkService
	logger *slog.Logger
}

func NewLinkHandler(links *service.LinkService, logger *slog.Logger) *LinkHandler {
	return &LinkHandler{links: links, logger: logger}
}

// CardPage is the ?view=card variant of a list response.
type CardPage struct {
	Items  []view.LinkItem `json:"items"`
	Total  int             `json:"total"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

// HandleList returns one page of links.
//
// HTTP: GET /api/links?favorite=&archived=&completed=&tag=&type=&q=&sort=&limit=&offset=&view=
//
// Boolean filters are tri-state: absent means "either". view=card returns
// display-ready cards instead of raw links.
func (h *LinkHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	filter, err := parseLinkFilter(r)
	if err != nil {
		writeError(w, err)
		return
	}

	page, err := h.links.List(r.Context(), filter)
	if err != nil {
		logFailure(h.logger, r, "listing links failed", err)
		writeError(w, err)
		return
	}

	switch r.URL.Query().Get("view") {
	case "", "raw":
		writeJSON(w, http.StatusOK, page)
	case "card":
		writeJSON(w, http.StatusOK, CardPage{
			Items:  view.NewLinkItems(page.Links, view.Callbacks{}),
			Total:  page.Total,
			Limit:  page.Limit,
			Offset: page.Offset,
		})
	default:
		writeError(w, apperror.ValidationFailed("view", "view must be raw or card"))
	}
}

// HandleCreate saves a new link.
//
// HTTP: POST /api/links
// BODY: {"url": "...", "title": "...", "description": "...", "type": "VIDEO", "tags": ["go"]}
func (h *LinkHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in service.SaveLinkInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}

	link, err := h.links.Save(r.Context(), in)
	if err != nil {
		logFailure(h.logger, r, "saving link failed", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, link)
}

// HandleGet returns one link.
//
// HTTP: GET /api/links/{id}
func (h *LinkHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	link, err := h.links.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		logFailure(h.logger, r, "getting link failed", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, link)
}

// HandleUpdate changes a link. Absent fields are left alone.
//
// HTTP: PUT /api/links/{id}
func (h *LinkHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var in service.UpdateLinkInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}

	link, err := h.links.Update(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		logFailure(h.logger, r, "updating link failed", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, link)
}

// HandleDelete removes a link.
//
// HTTP: DELETE /api/links/{id} → 204
func (h *LinkHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.links.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		logFailure(h.logger, r, "deleting link failed", err)
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleToggleFavorite: POST /api/links/{id}/favorite
func (h *LinkHandler) HandleToggleFavorite(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, h.links.ToggleFavorite)
}

// HandleToggleArchive: POST /api/links/{id}/archive
func (h *LinkHandler) HandleToggleArchive(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, h.links.ToggleArchive)
}

// HandleToggleStatus: POST /api/links/{id}/status
func (h *LinkHandler) HandleToggleStatus(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, h.links.ToggleStatus)
}

func (h *LinkHandler) toggle(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, id string) (*model.Link, error)) {
	link, err := fn(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		logFailure(h.logger, r, "toggling link failed", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, link)
}

type tagNameRequest struct {
	Name string `json:"name"`
}

// HandleAddTag attaches a tag by name, creating it when needed.
//
// HTTP: POST /api/links/{id}/tags
// BODY: {"name": "reading"}
func (h *LinkHandler) HandleAddTag(w http.ResponseWriter, r *http.Request) {
	var req tagNameRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	link, err := h.links.AddTag(r.Context(), chi.URLParam(r, "id"), req.Name)
	if err != nil {
		logFailure(h.logger, r, "adding tag failed", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, link)
}

// HandleRemoveTag detaches a tag.
//
// HTTP: DELETE /api/links/{id}/tags/{tagID}
func (h *LinkHandler) HandleRemoveTag(w http.ResponseWriter, r *http.Request) {
	link, err := h.links.RemoveTag(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "tagID"))
	if err != nil {
		logFailure(h.logger, r, "removing tag failed", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, link)
}

// parseLinkFilter reads list filters from the query string.
func parseLinkFilter(r *http.Request) (repository.LinkFilter, error) {
	q := r.URL.Query()
	var (
		f   repository.LinkFilter
		err error
	)

	if f.Favorite, err = parseTriState(q.Get("favorite"), "favorite"); err != nil {
		return f, err
	}
	if f.Archived, err = parseTriState(q.Get("archived"), "archived"); err != nil {
		return f, err
	}
	if f.Completed, err = parseTriState(q.Get("completed"), "completed"); err != nil {
		return f, err
	}

	f.TagID = strings.TrimSpace(q.Get("tag"))
	f.Query = strings.TrimSpace(q.Get("q"))
	f.Sort = repository.LinkSort(q.Get("sort"))

	if raw := q.Get("type"); raw != "" {
		typ, ok := model.ParseLinkType(raw)
		if !ok {
			return f, apperror.ValidationFailed("type", "unknown link type "+strconv.Quote(raw))
		}
		f.Type = typ
	}

	if f.Limit, err = parseIntParam(q.Get("limit"), "limit"); err != nil {
		return f, err
	}
	if f.Offset, err = parseIntParam(q.Get("offset"), "offset"); err != nil {
		return f, err
	}
	return f, nil
}

func parseTriState(raw, field string) (*bool, error) {
	if raw == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, apperror.ValidationFailed(field, field+" must be true or false")
	}
	return &b, nil
}

func parseIntParam(raw, field string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, apperror.ValidationFailed(field, field+" must be a non-negative integer")
	}
	return n, nil
}
