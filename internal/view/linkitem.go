// Package view turns links into display-ready list items ("cards").
//
// A LinkItem holds only strings and flags, so the HTML page, the JSON API and
// the CLI table can all render the same thing without re-deriving labels.
package view

import (
	"errors"

	"github.com/sakif/linkstash/internal/model"
)

const (
	dateLayout = "Jan 2, 2006"

	labelAddFavorite    = "Add to favorites"
	labelRemoveFavorite = "Remove from favorites"
	labelArchive        = "Archive"
	labelUnarchive      = "Unarchive"
)

// Action names a user interaction on a card.
type Action string

const (
	ActionOpen           Action = "open"
	ActionEdit           Action = "edit"
	ActionToggleFavorite Action = "toggle_favorite"
	ActionToggleArchive  Action = "toggle_archive"
	ActionToggleStatus   Action = "toggle_status"
	ActionShare          Action = "share"
)

var (
	// ErrActionUnavailable is returned for actions that exist on the card
	// but do nothing yet.
	ErrActionUnavailable = errors.New("view: action not available")
	ErrUnknownAction     = errors.New("view: unknown action")
)

// Callbacks are invoked by LinkItem.Activate. Any of them may be nil.
type Callbacks struct {
	Open           func(link model.Link)
	Edit           func(link model.Link)
	ToggleFavorite func(link model.Link)
	ToggleArchive  func(link model.Link)
	ToggleStatus   func(link model.Link)
}

// LinkItem is the card shown for one link in a list.
type LinkItem struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	URL         string   `json:"url,omitempty"` // empty when Title already is the URL
	Description string   `json:"description,omitempty"`
	Image       string   `json:"image,omitempty"`
	Tags        []string `json:"tags"`
	HasTags     bool     `json:"hasTags"`

	CreatedLabel   string `json:"createdLabel"`
	CompletedLabel string `json:"completedLabel,omitempty"`
	StatusLabel    string `json:"statusLabel"`
	Completed      bool   `json:"completed"`

	Favorite       bool   `json:"favorite"`
	Archived       bool   `json:"archived"`
	FavoriteAction string `json:"favoriteAction"`
	ArchiveAction  string `json:"archiveAction"`

	link      model.Link
	callbacks Callbacks
}

// NewLinkItem builds the card for link.
func NewLinkItem(link model.Link, callbacks Callbacks) LinkItem {
	item := LinkItem{
		ID:           link.ID,
		Title:        link.DisplayTitle(),
		Description:  link.Description,
		Image:        link.PreviewImageURL,
		Tags:         link.TagNames(),
		HasTags:      len(link.Tags) > 0,
		CreatedLabel: link.CreatedAt.Format(dateLayout),
		StatusLabel:  link.StatusLabel(),
		Completed:    link.IsCompleted,
		Favorite:     link.IsFavorite,
		Archived:     link.IsArchived,
		link:         link,
		callbacks:    callbacks,
	}

	if link.HasTitle() {
		item.URL = link.URL
	}
	if link.CompletedAt != nil {
		item.CompletedLabel = "Updated: " + link.CompletedAt.Format(dateLayout)
	}

	item.FavoriteAction = labelAddFavorite
	if link.IsFavorite {
		item.FavoriteAction = labelRemoveFavorite
	}
	item.ArchiveAction = labelArchive
	if link.IsArchived {
		item.ArchiveAction = labelUnarchive
	}
	return item
}

// NewLinkItems builds cards for a whole list, sharing one set of callbacks.
func NewLinkItems(links []model.Link, callbacks Callbacks) []LinkItem {
	items := make([]LinkItem, 0, len(links))
	for _, l := range links {
		items = append(items, NewLinkItem(l, callbacks))
	}
	return items
}

// Link returns the link the card was built from.
func (i LinkItem) Link() model.Link {
	return i.link
}

// Activate runs the callback bound to action.
func (i LinkItem) Activate(action Action) error {
	var fn func(model.Link)
	switch action {
	case ActionOpen:
		fn = i.callbacks.Open
	case ActionEdit:
		fn = i.callbacks.Edit
	case ActionToggleFavorite:
		fn = i.callbacks.ToggleFavorite
	case ActionToggleArchive:
		fn = i.callbacks.ToggleArchive
	case ActionToggleStatus:
		fn = i.callbacks.ToggleStatus
	case ActionShare:
		return ErrActionUnavailable
	default:
		return ErrUnknownAction
	}

	if fn != nil {
		fn(i.link)
	}
	return nil
}
