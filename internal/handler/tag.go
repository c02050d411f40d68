package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/linkstash/internal/service"
)

// TagHandler serves /api/tags.
type TagHandler struct {
	tags   *service.TagService
	logger *slog.Logger
}

func NewTagHandler(tags *service.TagService, logger *slog.Logger) *TagHandler {
	return &TagHandler{tags: tags, logger: logger}
}

// HandleList: GET /api/tags
func (h *TagHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	tags, err := h.tags.List(r.Context())
	if err != nil {
		logFailure(h.logger, r, "listing tags failed", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tags)
}

// HandleCreate: POST /api/tags {"name": "..."}
func (h *TagHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req tagNameRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	tag, err := h.tags.Create(r.Context(), req.Name)
	if err != nil {
		logFailure(h.logger, r, "creating tag failed", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, tag)
}

// HandleRename: PATCH /api/tags/{id} {"name": "..."}
func (h *TagHandler) HandleRename(w http.ResponseWriter, r *http.Request) {
	var req tagNameRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	tag, err := h.tags.Rename(r.Context(), chi.URLParam(r, "id"), req.Name)
	if err != nil {
		logFailure(h.logger, r, "renaming tag failed", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tag)
}

// HandleDelete: DELETE /api/tags/{id}
func (h *TagHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.tags.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		logFailure(h.logger, r, "deleting tag failed", err)
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandlePrune deletes tags attached to no link.
//
// HTTP: DELETE /api/tags/orphans → {"deleted": n}
func (h *TagHandler) HandlePrune(w http.ResponseWriter, r *http.Request) {
	n, err := h.tags.Prune(r.Context())
	if err != nil {
		logFailure(h.logger, r, "pruning tags failed", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": n})
}
