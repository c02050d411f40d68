package enrich

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/linkstash/internal/apperror"
	"github.com/sakif/linkstash/internal/metadata"
	"github.com/sakif/linkstash/internal/model"
	"github.com/sakif/linkstash/internal/repository"
)

type memLinks struct {
	mu       sync.Mutex
	links    map[string]model.Link
	enriched map[string]bool
	updates  int
}

func newMemLinks(links ...model.Link) *memLinks {
	m := &memLinks{links: make(map[string]model.Link), enriched: make(map[string]bool)}
	for _, l := range links {
		m.links[l.ID] = l
	}
	return m
}

func (m *memLinks) GetByID(_ context.Context, id string) (*model.Link, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.links[id]
	if !ok {
		return nil, apperror.NotFound("link", id)
	}
	return &l, nil
}

func (m *memLinks) FillMetadata(_ context.Context, id string, meta repository.LinkMetadata, _ time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.links[id]
	if !ok {
		return false, apperror.NotFound("link", id)
	}
	changed := false
	fill := func(dst *string, v string) {
		if *dst == "" && v != "" {
			*dst = v
			changed = true
		}
	}
	fill(&l.Title, meta.Title)
	fill(&l.Description, meta.Description)
	fill(&l.PreviewImageURL, meta.Image)
	m.links[id] = l
	m.enriched[id] = true
	if changed {
		m.updates++
	}
	return changed, nil
}

func (m *memLinks) ListUnenriched(_ context.Context, limit int) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0)
	for id, l := range m.links {
		if m.enriched[id] || (l.Title != "" && l.Description != "") {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func (m *memLinks) get(id string) model.Link {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.links[id]
}

type stubFetcher struct {
	meta  metadata.Metadata
	err   error
	block chan struct{} // when set, Fetch waits on it
}

func (f *stubFetcher) Fetch(ctx context.Context, _ string) (metadata.Metadata, error) {
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return metadata.Metadata{}, ctx.Err()
		}
	}
	return f.meta, f.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPool_Process(t *testing.T) {
	links := newMemLinks(model.Link{ID: "l1", URL: "https://example.com"})
	fetcher := &stubFetcher{meta: metadata.Metadata{Title: "Example Domain"}}
	p := NewPool(links, fetcher, Config{}, discardLogger())

	changed, err := p.Process(context.Background(), "l1")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, "Example Domain", links.get("l1").Title)

	changed, err = p.Process(context.Background(), "l1")
	require.NoError(t, err)
	assert.False(t, changed, "nothing left to fill")

	_, err = p.Process(context.Background(), "missing")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestPool_ProcessFetchError(t *testing.T) {
	links := newMemLinks(model.Link{ID: "l1", URL: "https://example.com"})
	p := NewPool(links, &stubFetcher{err: errors.New("boom")}, Config{}, discardLogger())

	changed, err := p.Process(context.Background(), "l1")
	assert.Error(t, err)
	assert.False(t, changed)
	assert.Zero(t, links.updates)
}

func TestPool_StopDrainsQueue(t *testing.T) {
	var all []model.Link
	for _, id := range []string{"a", "b", "c", "d"} {
		all = append(all, model.Link{ID: id, URL: "https://example.com/" + id})
	}
	links := newMemLinks(all...)
	p := NewPool(links, &stubFetcher{meta: metadata.Metadata{Title: "filled"}}, Config{Workers: 2, QueueSize: 10}, discardLogger())

	for _, l := range all {
		require.True(t, p.Enqueue(l.ID))
	}
	p.Start()
	p.Start() // idempotent
	p.Stop()

	for _, l := range all {
		assert.Equal(t, "filled", links.get(l.ID).Title, "link %s", l.ID)
	}
	assert.False(t, p.Enqueue("a"), "stopped pool refuses work")
	p.Stop() // idempotent
}

func TestPool_EnqueueNeverBlocks(t *testing.T) {
	links := newMemLinks(model.Link{ID: "x", URL: "https://example.com"})
	fetcher := &stubFetcher{block: make(chan struct{})}
	p := NewPool(links, fetcher, Config{Workers: 1, QueueSize: 1, JobTimeout: time.Second}, discardLogger())

	// Not started: the first job fills the only slot, the second is dropped.
	assert.True(t, p.Enqueue("x"))

	done := make(chan bool)
	go func() { done <- p.Enqueue("x") }()
	select {
	case ok := <-done:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("Enqueue blocked on a full queue")
	}

	close(fetcher.block)
	p.Start()
	p.Stop()
}

func TestPool_Backfill(t *testing.T) {
	links := newMemLinks(
		model.Link{ID: "bare", URL: "https://example.com/bare"},
		model.Link{ID: "full", URL: "https://example.com/full", Title: "Full", Description: "done"},
		model.Link{ID: "tried", URL: "https://example.com/tried"},
		model.Link{ID: "titled", URL: "https://example.com/titled", Title: "Titled"},
	)
	links.enriched["tried"] = true
	p := NewPool(links, &stubFetcher{}, Config{QueueSize: 10}, discardLogger())

	n, err := p.Backfill(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, p.Pending())
}

func TestPool_BackfillStopsWhenQueueFull(t *testing.T) {
	links := newMemLinks(
		model.Link{ID: "a", URL: "https://example.com/a"},
		model.Link{ID: "b", URL: "https://example.com/b"},
		model.Link{ID: "c", URL: "https://example.com/c"},
	)
	p := NewPool(links, &stubFetcher{}, Config{QueueSize: 2}, discardLogger())
	require.True(t, p.Enqueue("a"))

	n, err := p.Backfill(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 2, p.Pending())
}

func TestPool_StartPicksUpUnenrichedLinks(t *testing.T) {
	links := newMemLinks(
		model.Link{ID: "a", URL: "https://example.com/a"},
		model.Link{ID: "b", URL: "https://example.com/b"},
	)
	p := NewPool(links, &stubFetcher{meta: metadata.Metadata{Title: "filled"}}, Config{Workers: 1}, discardLogger())

	p.Start()
	assert.Eventually(t, func() bool {
		return links.get("a").Title == "filled" && links.get("b").Title == "filled"
	}, 2*time.Second, 10*time.Millisecond)
	p.Stop()
}
