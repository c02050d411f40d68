package view

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/linkstash/internal/model"
)

var created = time.Date(2026, 3, 7, 15, 4, 5, 0, time.UTC)

func TestNewLinkItem_TitleFallback(t *testing.T) {
	item := NewLinkItem(model.Link{URL: "https://example.com", CreatedAt: created}, Callbacks{})

	assert.Equal(t, "https://example.com", item.Title)
	assert.Empty(t, item.URL, "URL is not repeated when it is the title")

	item = NewLinkItem(model.Link{URL: "https://example.com", Title: "Example", CreatedAt: created}, Callbacks{})
	assert.Equal(t, "Example", item.Title)
	assert.Equal(t, "https://example.com", item.URL)
}

func TestNewLinkItem_Labels(t *testing.T) {
	done := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)
	link := model.Link{
		URL:         "https://youtu.be/x",
		Title:       "A talk",
		Type:        model.LinkTypeVideo,
		CreatedAt:   created,
		IsCompleted: true,
		CompletedAt: &done,
		IsFavorite:  true,
		Tags:        []model.Tag{{ID: "1", Name: "talks"}},
	}

	item := NewLinkItem(link, Callbacks{})

	assert.Equal(t, "Mar 7, 2026", item.CreatedLabel)
	assert.Equal(t, "Updated: Apr 1, 2026", item.CompletedLabel)
	assert.Equal(t, "Watched", item.StatusLabel)
	assert.True(t, item.Completed)
	assert.Equal(t, "Remove from favorites", item.FavoriteAction)
	assert.Equal(t, "Archive", item.ArchiveAction)
	assert.Equal(t, []string{"talks"}, item.Tags)
	assert.True(t, item.HasTags)
}

func TestNewLinkItem_PendingDefaults(t *testing.T) {
	item := NewLinkItem(model.Link{URL: "https://example.com", Type: model.LinkTypeBook, IsArchived: true, CreatedAt: created}, Callbacks{})

	assert.Equal(t, "Not started", item.StatusLabel)
	assert.False(t, item.Completed)
	assert.Empty(t, item.CompletedLabel)
	assert.Equal(t, "Add to favorites", item.FavoriteAction)
	assert.Equal(t, "Unarchive", item.ArchiveAction)
	assert.False(t, item.HasTags)
	assert.NotNil(t, item.Tags)
}

func TestLinkItem_Activate(t *testing.T) {
	link := model.Link{ID: "abc", URL: "https://example.com", CreatedAt: created}

	var calls []string
	record := func(name string) func(model.Link) {
		return func(l model.Link) {
			assert.Equal(t, "abc", l.ID)
			calls = append(calls, name)
		}
	}
	item := NewLinkItem(link, Callbacks{
		Open:           record("open"),
		Edit:           record("edit"),
		ToggleFavorite: record("fav"),
		ToggleArchive:  record("archive"),
		ToggleStatus:   record("status"),
	})

	for _, a := range []Action{ActionOpen, ActionEdit, ActionToggleFavorite, ActionToggleArchive, ActionToggleStatus} {
		require.NoError(t, item.Activate(a))
	}
	assert.Equal(t, []string{"open", "edit", "fav", "archive", "status"}, calls)

	assert.ErrorIs(t, item.Activate(ActionShare), ErrActionUnavailable)
	assert.ErrorIs(t, item.Activate("explode"), ErrUnknownAction)
	assert.Len(t, calls, 5)
}

func TestLinkItem_ActivateNilCallbackIsNoop(t *testing.T) {
	item := NewLinkItem(model.Link{URL: "https://example.com"}, Callbacks{})
	assert.NoError(t, item.Activate(ActionToggleFavorite))
}

func TestNewLinkItems(t *testing.T) {
	items := NewLinkItems([]model.Link{{ID: "1", URL: "https://a.dev"}, {ID: "2", URL: "https://b.dev"}}, Callbacks{})
	require.Len(t, items, 2)
	assert.Equal(t, "2", items[1].Link().ID)

	assert.NotNil(t, NewLinkItems(nil, Callbacks{}))
}
