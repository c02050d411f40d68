// Package repository declares the data-access contracts of LinkStash.
//
// Services depend on these interfaces, never on a concrete database. The
// SQLite implementation lives in repository/sqlite; tests use in-memory mocks.
package repository

import (
	"context"
	"time"

	"github.com/sakif/linkstash/internal/model"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

// LinkSort selects the ordering of LinkRepository.List.
type LinkSort string

const (
	SortNewest    LinkSort = "newest"
	SortOldest    LinkSort = "oldest"
	SortTitle     LinkSort = "title"     // title, falling back to the URL
	SortCompleted LinkSort = "completed" // most recently completed first
)

// ParseLinkSort maps user input to a LinkSort, defaulting to SortNewest.
func ParseLinkSort(s string) (LinkSort, bool) {
	switch LinkSort(s) {
	case "", SortNewest:
		return SortNewest, true
	case SortOldest, SortTitle, SortCompleted:
		return LinkSort(s), true
	}
	return SortNewest, false
}

// LinkFilter narrows LinkRepository.List. Nil pointers mean "don't care".
type LinkFilter struct {
	Favorite  *bool
	Archived  *bool
	Completed *bool
	TagID     string
	Type      model.LinkType
	Query     string // substring of title, URL or description
	Sort      LinkSort
	Limit     int
	Offset    int
}

// Bool is a helper for building filters: repository.LinkFilter{Favorite: repository.Bool(true)}.
func Bool(b bool) *bool {
	return &b
}

// Normalized returns a copy with limit, offset and sort clamped to sane values.
func (f LinkFilter) Normalized() LinkFilter {
	if f.Limit <= 0 {
		f.Limit = DefaultListLimit
	}
	if f.Limit > MaxListLimit {
		f.Limit = MaxListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	if s, ok := ParseLinkSort(string(f.Sort)); ok {
		f.Sort = s
	} else {
		f.Sort = SortNewest
	}
	return f
}

// LinkFlag names one of a link's boolean columns.
type LinkFlag string

const (
	FlagFavorite  LinkFlag = "favorite"
	FlagArchived  LinkFlag = "archived"
	FlagCompleted LinkFlag = "completed"
)

// LinkUpdate is a partial edit of a link. Nil fields keep their stored
// value. A non-nil TagNames replaces the tag set; missing tags are created.
type LinkUpdate struct {
	URL         *string
	Title       *string
	Description *string
	Type        *model.LinkType
	TagNames    *[]string
}

// LinkMetadata is what enrichment found on a link's page.
type LinkMetadata struct {
	Title       string
	Description string
	Image       string
}

// LinkRepository is the link DAO.
//
// Every mutation is a single statement or a single transaction that writes
// only the columns it changes, so concurrent edits of different fields never
// undo each other.
type LinkRepository interface {
	// Create assigns ID and timestamps, then stores the link together with
	// link.Tags. A tag with an empty ID is looked up by name and created if
	// missing, in the same transaction as the link.
	Create(ctx context.Context, link *model.Link) error
	GetByID(ctx context.Context, id string) (*model.Link, error)
	List(ctx context.Context, filter LinkFilter) ([]model.Link, error)
	Count(ctx context.Context, filter LinkFilter) (int, error)
	Update(ctx context.Context, id string, update LinkUpdate) error
	Delete(ctx context.Context, id string) error

	// ToggleFlag flips one flag. Toggling FlagCompleted stamps or clears
	// the completion time.
	ToggleFlag(ctx context.Context, id string, flag LinkFlag, now time.Time) error
	// SetCompleted sets completion. Completing an already completed link
	// keeps its original completion time.
	SetCompleted(ctx context.Context, id string, completed bool, now time.Time) error

	// FillMetadata writes meta into the link's empty fields only, marks the
	// link as enriched and reports whether any field changed.
	FillMetadata(ctx context.Context, id string, meta LinkMetadata, now time.Time) (bool, error)
	// ListUnenriched returns the IDs of links never enriched that still
	// miss a title or description, oldest first.
	ListUnenriched(ctx context.Context, limit int) ([]string, error)

	// AddTag attaches the tag called name, creating it if needed.
	AddTag(ctx context.Context, linkID, name string) error
	RemoveTag(ctx context.Context, linkID, tagID string) error
}

// TagRepository is the tag DAO.
type TagRepository interface {
	Create(ctx context.Context, tag *model.Tag) error
	GetByID(ctx context.Context, id string) (*model.Tag, error)
	GetByName(ctx context.Context, name string) (*model.Tag, error)
	List(ctx context.Context) ([]model.Tag, error)
	ListForLink(ctx context.Context, linkID string) ([]model.Tag, error)
	Rename(ctx context.Context, id, name string) error
	Delete(ctx context.Context, id string) error
	// DeleteOrphans removes tags attached to no link and reports how many.
	DeleteOrphans(ctx context.Context) (int64, error)
}

// AccountRepository stores the owner's linked external accounts.
type AccountRepository interface {
	Save(ctx context.Context, account *model.Account) error
	Get(ctx context.Context, provider model.Provider) (*model.Account, error)
	List(ctx context.Context) ([]model.Account, error)
	Delete(ctx context.Context, provider model.Provider) error
}
