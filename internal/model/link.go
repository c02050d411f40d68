// Package model defines the data structures used throughout the application.
//
// Models are plain structs. Behaviour that only depends on a model's own
// fields (flag toggles, the title fallback, status wording) lives here as
// methods; anything touching storage or the network lives in a service.
package model

import (
	"strings"
	"time"
)

// LinkType classifies a saved link. It only changes how completion is
// worded ("Read" for an article, "Watched" for a video, ...).
type LinkType string

const (
	LinkTypeArticle    LinkType = "ARTICLE"
	LinkTypeVideo      LinkType = "VIDEO"
	LinkTypeBook       LinkType = "BOOK"
	LinkTypePodcast    LinkType = "PODCAST"
	LinkTypeRepository LinkType = "REPOSITORY"
	LinkTypeDiscussion LinkType = "DISCUSSION"
	LinkTypeOther      LinkType = "OTHER"
)

// DefaultLinkType is used when a link is saved without a type.
const DefaultLinkType = LinkTypeArticle

// statusLabels maps each type to its {completed, pending} wording.
var statusLabels = map[LinkType][2]string{
	LinkTypeArticle:    {"Read", "Unread"},
	LinkTypeVideo:      {"Watched", "Not watched"},
	LinkTypeBook:       {"Finished", "Not started"},
	LinkTypePodcast:    {"Listened", "Not listened"},
	LinkTypeRepository: {"Explored", "Not explored"},
	LinkTypeDiscussion: {"Read", "Unread"},
	LinkTypeOther:      {"Completed", "Not completed"},
}

// LinkTypes lists every known type in display order.
func LinkTypes() []LinkType {
	return []LinkType{
		LinkTypeArticle,
		LinkTypeVideo,
		LinkTypeBook,
		LinkTypePodcast,
		LinkTypeRepository,
		LinkTypeDiscussion,
		LinkTypeOther,
	}
}

// ParseLinkType accepts any casing ("video", "Video") and reports whether
// the value names a known type.
func ParseLinkType(s string) (LinkType, bool) {
	t := LinkType(strings.ToUpper(strings.TrimSpace(s)))
	_, ok := statusLabels[t]
	return t, ok
}

// Valid reports whether t is one of the known link types.
func (t LinkType) Valid() bool {
	_, ok := statusLabels[t]
	return ok
}

// StatusLabel returns the wording for a link of this type in the given
// completion state. Unknown types fall back to the OTHER wording.
func (t LinkType) StatusLabel(completed bool) string {
	labels, ok := statusLabels[t]
	if !ok {
		labels = statusLabels[LinkTypeOther]
	}
	if completed {
		return labels[0]
	}
	return labels[1]
}

// Link is a saved bookmark.
//
// Title and Description are optional: an empty string means "absent".
// CompletedAt is a pointer because its absence is meaningful: it is non-nil
// exactly when IsCompleted is true.
type Link struct {
	ID              string     `json:"id"`
	URL             string     `json:"url"`
	Title           string     `json:"title,omitempty"`
	Description     string     `json:"description,omitempty"`
	PreviewImageURL string     `json:"previewImageUrl,omitempty"`
	Type            LinkType   `json:"type"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
	CompletedAt     *time.Time `json:"completedAt,omitempty"`
	IsFavorite      bool       `json:"isFavorite"`
	IsArchived      bool       `json:"isArchived"`
	IsCompleted     bool       `json:"isCompleted"`
	Tags            []Tag      `json:"tags"`
}

// DisplayTitle is the text shown as the link's headline: the title when
// there is one, otherwise the URL itself.
func (l *Link) DisplayTitle() string {
	if l.HasTitle() {
		return l.Title
	}
	return l.URL
}

// HasTitle reports whether the link carries a title of its own.
func (l *Link) HasTitle() bool {
	return strings.TrimSpace(l.Title) != ""
}

// StatusLabel is the completion wording for this link's type.
func (l *Link) StatusLabel() string {
	return l.Type.StatusLabel(l.IsCompleted)
}

// ToggleFavorite flips the favorite flag.
func (l *Link) ToggleFavorite() {
	l.IsFavorite = !l.IsFavorite
}

// ToggleArchive flips the archived flag.
func (l *Link) ToggleArchive() {
	l.IsArchived = !l.IsArchived
}

// ToggleCompleted flips the completion flag. Completing stamps CompletedAt
// with now; un-completing clears it.
func (l *Link) ToggleCompleted(now time.Time) {
	l.SetCompleted(!l.IsCompleted, now)
}

// SetCompleted puts the link in the given completion state, keeping
// CompletedAt consistent with it. Re-completing an already completed link
// keeps the original timestamp.
func (l *Link) SetCompleted(completed bool, now time.Time) {
	if !completed {
		l.IsCompleted = false
		l.CompletedAt = nil
		return
	}
	if l.IsCompleted && l.CompletedAt != nil {
		return
	}
	ts := now
	l.IsCompleted = true
	l.CompletedAt = &ts
}

// TagNames returns the names of the link's tags in their current order.
func (l *Link) TagNames() []string {
	names := make([]string, 0, len(l.Tags))
	for _, t := range l.Tags {
		names = append(names, t.Name)
	}
	return names
}

// HasTag reports whether a tag with the given ID is attached to the link.
func (l *Link) HasTag(tagID string) bool {
	for _, t := range l.Tags {
		if t.ID == tagID {
			return true
		}
	}
	return false
}
