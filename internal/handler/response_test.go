package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/linkstash/internal/apperror"
	"github.com/sakif/linkstash/internal/model"
	"github.com/sakif/linkstash/internal/repository"
)

func TestWriteError_Mapping(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		kind    string
		message string
	}{
		{"validation", apperror.ValidationFailed("url", "URL is required"), 400, "validation_error", "URL is required"},
		{"unauthorized", apperror.Unauthorized("wrong passphrase"), 401, "unauthorized", "wrong passphrase"},
		{"forbidden", apperror.Forbidden("nope"), 403, "forbidden", "nope"},
		{"not found", apperror.NotFound("link", "abc"), 404, "not_found", "link not found with id abc"},
		{"conflict", apperror.Conflict("link", "url", "https://x"), 409, "conflict", `a link with url "https://x" already exists`},
		{"wrapped", fmt.Errorf("listing: %w", apperror.NotFound("tag", "t1")), 404, "not_found", "tag not found with id t1"},
		{"storage hides details", apperror.Storage("creating link", errors.New("disk I/O at /var/db")), 500, "internal_error", "An internal error occurred"},
		{"plain error", errors.New("boom"), 500, "internal_error", "An internal error occurred"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			writeError(rr, tt.err)

			assert.Equal(t, tt.status, rr.Code)
			assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

			var resp ErrorResponse
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
			assert.Equal(t, tt.kind, resp.Error)
			assert.Equal(t, tt.message, resp.Message)
		})
	}
}

func TestWriteError_IncludesField(t *testing.T) {
	rr := httptest.NewRecorder()
	writeError(rr, apperror.ValidationFailed("title", "too long"))

	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "title", resp.Field)
}

func TestDecodeJSON(t *testing.T) {
	var dst struct {
		Name string `json:"name"`
	}

	tests := map[string]string{
		"empty":         "",
		"malformed":     "{",
		"unknown field": `{"nam":"x"}`,
		"too large":     `{"name":"` + strings.Repeat("x", maxBodyBytes) + `"}`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
			err := decodeJSON(httptest.NewRecorder(), req, &dst)
			assert.ErrorIs(t, err, apperror.ErrValidation)
		})
	}

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"ok"}`))
	require.NoError(t, decodeJSON(httptest.NewRecorder(), req, &dst))
	assert.Equal(t, "ok", dst.Name)
}

func TestParseLinkFilter(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet,
		"/api/links?favorite=true&archived=0&tag=t1&type=podcast&q=+go+&sort=oldest&limit=10&offset=20", nil)

	f, err := parseLinkFilter(req)
	require.NoError(t, err)

	require.NotNil(t, f.Favorite)
	assert.True(t, *f.Favorite)
	require.NotNil(t, f.Archived)
	assert.False(t, *f.Archived)
	assert.Nil(t, f.Completed, "absent means either")
	assert.Equal(t, "t1", f.TagID)
	assert.Equal(t, model.LinkTypePodcast, f.Type)
	assert.Equal(t, "go", f.Query)
	assert.Equal(t, repository.SortOldest, f.Sort)
	assert.Equal(t, 10, f.Limit)
	assert.Equal(t, 20, f.Offset)
}

func TestParseLinkFilter_Invalid(t *testing.T) {
	for _, query := range []string{
		"completed=yes",
		"type=movie",
		"limit=ten",
		"offset=-3",
	} {
		t.Run(query, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/links?"+query, nil)
			_, err := parseLinkFilter(req)
			assert.ErrorIs(t, err, apperror.ErrValidation)
		})
	}
}
