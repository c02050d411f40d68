// Package service contains the business rules of LinkStash.
//
// THE LAYERS:
//
//	Handler / CLI  → parse input, render output
//	Service        → validate, enforce rules, orchestrate
//	Repository     → read/write the database
//
// Services take repository interfaces, never *sqlite.DB, so tests can hand
// them in-memory fakes and the CLI and HTTP server share the same rules.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sakif/linkstash/internal/apperror"
	"github.com/sakif/linkstash/internal/model"
	"github.com/sakif/linkstash/internal/repository"
)

// Validation limits.
const (
	MaxURLLength         = 2048
	MaxTitleLength       = 500
	MaxDescriptionLength = 5000
	MaxTagsPerLink       = 20
)

// Enqueuer schedules background metadata enrichment. *enrich.Pool
// implements it.
type Enqueuer interface {
	Enqueue(linkID string) bool
}

// LinkService handles saving, browsing and updating links.
type LinkService struct {
	links    repository.LinkRepository
	enricher Enqueuer // may be nil
	logger   *slog.Logger
	now      func() time.Time
}

// NewLinkService wires a LinkService. enricher may be nil to disable
// background enrichment.
func NewLinkService(links repository.LinkRepository, enricher Enqueuer, logger *slog.Logger) *LinkService {
	return &LinkService{
		links:    links,
		enricher: enricher,
		logger:   logger,
		now:      time.Now,
	}
}

// SaveLinkInput is what a user supplies when saving a link. Only URL is
// required.
type SaveLinkInput struct {
	URL         string   `json:"url"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Type        string   `json:"type"`
	Tags        []string `json:"tags"`
}

// UpdateLinkInput changes an existing link. Nil fields are left alone; a
// non-nil Tags replaces the whole tag set.
type UpdateLinkInput struct {
	URL         *string   `json:"url"`
	Title       *string   `json:"title"`
	Description *string   `json:"description"`
	Type        *string   `json:"type"`
	Tags        *[]string `json:"tags"`
}

// LinkPage is one page of List results.
type LinkPage struct {
	Links  []model.Link `json:"links"`
	Total  int          `json:"total"`
	Limit  int          `json:"limit"`
	Offset int          `json:"offset"`
}

// Save validates and stores a new link. Tags are looked up by name and
// created when missing, in the same transaction as the link. A link saved
// without a title or without a description is queued for enrichment.
func (s *LinkService) Save(ctx context.Context, in SaveLinkInput) (*model.Link, error) {
	link := &model.Link{}
	if err := applyText(link, &in.URL, &in.Title, &in.Description); err != nil {
		return nil, err
	}
	typ, err := parseType(in.Type)
	if err != nil {
		return nil, err
	}
	link.Type = typ

	names, err := normalizeTagNames(in.Tags)
	if err != nil {
		return nil, err
	}
	for _, name := range names {
		link.Tags = append(link.Tags, model.Tag{Name: name})
	}

	if err := s.links.Create(ctx, link); err != nil {
		if !errors.Is(err, apperror.ErrConflict) {
			s.logger.Error("failed to save link",
				slog.String("url", link.URL),
				slog.String("error", err.Error()))
		}
		return nil, err
	}

	s.logger.Info("link saved",
		slog.String("id", link.ID),
		slog.String("url", link.URL),
		slog.Int("tags", len(link.Tags)))

	s.maybeEnrich(link)
	return link, nil
}

func (s *LinkService) maybeEnrich(link *model.Link) {
	if s.enricher == nil {
		return
	}
	if link.HasTitle() && link.Description != "" {
		return
	}
	s.enricher.Enqueue(link.ID)
}

// Get returns one link with its tags.
func (s *LinkService) Get(ctx context.Context, id string) (*model.Link, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "link ID is required")
	}
	return s.links.GetByID(ctx, id)
}

// List returns one page of links matching filter plus the total count.
func (s *LinkService) List(ctx context.Context, filter repository.LinkFilter) (*LinkPage, error) {
	if filter.Type != "" && !filter.Type.Valid() {
		return nil, apperror.ValidationFailed("type", fmt.Sprintf("unknown link type %q", filter.Type))
	}
	if _, ok := repository.ParseLinkSort(string(filter.Sort)); !ok {
		return nil, apperror.ValidationFailed("sort", fmt.Sprintf("unknown sort %q", filter.Sort))
	}
	filter = filter.Normalized()

	links, err := s.links.List(ctx, filter)
	if err != nil {
		s.logger.Error("failed to list links", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing links: %w", err)
	}
	total, err := s.links.Count(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("counting links: %w", err)
	}

	return &LinkPage{Links: links, Total: total, Limit: filter.Limit, Offset: filter.Offset}, nil
}

// Update applies in to the link with the given ID and returns the result.
// Only the fields set in in are written, so concurrent toggles and
// enrichment are never overwritten.
func (s *LinkService) Update(ctx context.Context, id string, in UpdateLinkInput) (*model.Link, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "link ID is required")
	}

	var (
		update repository.LinkUpdate
		text   model.Link
	)
	if err := applyText(&text, in.URL, in.Title, in.Description); err != nil {
		return nil, err
	}
	if in.URL != nil {
		update.URL = &text.URL
	}
	if in.Title != nil {
		update.Title = &text.Title
	}
	if in.Description != nil {
		update.Description = &text.Description
	}
	if in.Type != nil {
		typ, err := parseType(*in.Type)
		if err != nil {
			return nil, err
		}
		update.Type = &typ
	}
	if in.Tags != nil {
		names, err := normalizeTagNames(*in.Tags)
		if err != nil {
			return nil, err
		}
		update.TagNames = &names
	}

	if err := s.links.Update(ctx, id, update); err != nil {
		return nil, err
	}
	s.logger.Info("link updated", slog.String("id", id))
	return s.links.GetByID(ctx, id)
}

// ToggleFavorite flips the favorite flag.
func (s *LinkService) ToggleFavorite(ctx context.Context, id string) (*model.Link, error) {
	return s.toggle(ctx, id, repository.FlagFavorite)
}

// ToggleArchive flips the archived flag.
func (s *LinkService) ToggleArchive(ctx context.Context, id string) (*model.Link, error) {
	return s.toggle(ctx, id, repository.FlagArchived)
}

// ToggleStatus flips completion. Completing stamps CompletedAt with the
// current time; un-completing clears it.
func (s *LinkService) ToggleStatus(ctx context.Context, id string) (*model.Link, error) {
	return s.toggle(ctx, id, repository.FlagCompleted)
}

func (s *LinkService) toggle(ctx context.Context, id string, flag repository.LinkFlag) (*model.Link, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "link ID is required")
	}
	if err := s.links.ToggleFlag(ctx, id, flag, s.now()); err != nil {
		return nil, err
	}
	return s.logFlags(ctx, id, string(flag)+" toggled")
}

// SetCompleted sets completion explicitly; setting the current value is a
// no-op that keeps the original timestamp.
func (s *LinkService) SetCompleted(ctx context.Context, id string, completed bool) (*model.Link, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "link ID is required")
	}
	if err := s.links.SetCompleted(ctx, id, completed, s.now()); err != nil {
		return nil, err
	}
	return s.logFlags(ctx, id, "status set")
}

func (s *LinkService) logFlags(ctx context.Context, id, event string) (*model.Link, error) {
	link, err := s.links.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.logger.Info("link "+event,
		slog.String("id", link.ID),
		slog.Bool("favorite", link.IsFavorite),
		slog.Bool("archived", link.IsArchived),
		slog.Bool("completed", link.IsCompleted))
	return link, nil
}

// Delete removes a link. Its tags stay.
func (s *LinkService) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return apperror.ValidationFailed("id", "link ID is required")
	}
	if err := s.links.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("link deleted", slog.String("id", id))
	return nil
}

// AddTag attaches the tag called name to a link, creating the tag if needed.
// Nothing is created when the link does not exist.
func (s *LinkService) AddTag(ctx context.Context, linkID, name string) (*model.Link, error) {
	names, err := normalizeTagNames([]string{name})
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, apperror.ValidationFailed("name", "tag name is required")
	}
	if err := s.links.AddTag(ctx, linkID, names[0]); err != nil {
		return nil, err
	}
	return s.links.GetByID(ctx, linkID)
}

// RemoveTag detaches a tag from a link. The tag itself is kept.
func (s *LinkService) RemoveTag(ctx context.Context, linkID, tagID string) (*model.Link, error) {
	if err := s.links.RemoveTag(ctx, linkID, tagID); err != nil {
		return nil, err
	}
	return s.links.GetByID(ctx, linkID)
}

// SetTags replaces a link's tags with the named ones.
func (s *LinkService) SetTags(ctx context.Context, linkID string, names []string) (*model.Link, error) {
	return s.Update(ctx, linkID, UpdateLinkInput{Tags: &names})
}

// normalizeTagNames trims and validates names. Blank names are skipped and
// names differing only in case collapse to the first spelling.
func normalizeTagNames(raw []string) ([]string, error) {
	seen := make(map[string]struct{}, len(raw))
	names := make([]string, 0, len(raw))

	for _, r := range raw {
		name := model.NormalizeTagName(r)
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		if err := validateTagName(name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}

	if len(names) > MaxTagsPerLink {
		return nil, apperror.ValidationFailed("tags",
			fmt.Sprintf("a link can have at most %d tags", MaxTagsPerLink))
	}
	return names, nil
}

// applyText validates and assigns the text fields that are non-nil.
func applyText(link *model.Link, rawURL, title, description *string) error {
	if rawURL != nil {
		u, err := validateURL(*rawURL)
		if err != nil {
			return err
		}
		link.URL = u
	}
	if title != nil {
		t := strings.TrimSpace(*title)
		if utf8.RuneCountInString(t) > MaxTitleLength {
			return apperror.ValidationFailed("title",
				fmt.Sprintf("title must be %d characters or less", MaxTitleLength))
		}
		link.Title = t
	}
	if description != nil {
		d := strings.TrimSpace(*description)
		if utf8.RuneCountInString(d) > MaxDescriptionLength {
			return apperror.ValidationFailed("description",
				fmt.Sprintf("description must be %d characters or less", MaxDescriptionLength))
		}
		link.Description = d
	}
	return nil
}

// validateURL accepts absolute http(s) URLs with a host.
func validateURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", apperror.ValidationFailed("url", "URL is required")
	}
	if len(raw) > MaxURLLength {
		return "", apperror.ValidationFailed("url",
			fmt.Sprintf("URL must be %d characters or less", MaxURLLength))
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", apperror.ValidationFailed("url", "URL must be absolute, like https://example.com")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", apperror.ValidationFailed("url", "only http and https URLs can be saved")
	}
	return raw, nil
}

func parseType(s string) (model.LinkType, error) {
	if strings.TrimSpace(s) == "" {
		return model.DefaultLinkType, nil
	}
	typ, ok := model.ParseLinkType(s)
	if !ok {
		return "", apperror.ValidationFailed("type", fmt.Sprintf("unknown link type %q", s))
	}
	return typ, nil
}
