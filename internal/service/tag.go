package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/sakif/linkstash/internal/apperror"
	"github.com/sakif/linkstash/internal/model"
	"github.com/sakif/linkstash/internal/repository"
)

const MaxTagNameLength = 50

// TagService manages the tag vocabulary.
type TagService struct {
	tags   repository.TagRepository
	logger *slog.Logger
}

func NewTagService(tags repository.TagRepository, logger *slog.Logger) *TagService {
	return &TagService{tags: tags, logger: logger}
}

// Create adds a tag. A name already in use (ignoring case) is a Conflict.
func (s *TagService) Create(ctx context.Context, name string) (*model.Tag, error) {
	name = model.NormalizeTagName(name)
	if err := validateTagName(name); err != nil {
		return nil, err
	}

	tag := &model.Tag{Name: name}
	if err := s.tags.Create(ctx, tag); err != nil {
		return nil, err
	}
	s.logger.Info("tag created", slog.String("id", tag.ID), slog.String("name", tag.Name))
	return tag, nil
}

// List returns all tags with their link counts, ordered by name.
func (s *TagService) List(ctx context.Context) ([]model.Tag, error) {
	tags, err := s.tags.List(ctx)
	if err != nil {
		s.logger.Error("failed to list tags", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing tags: %w", err)
	}
	return tags, nil
}

// Find looks a tag up by name, ignoring case.
func (s *TagService) Find(ctx context.Context, name string) (*model.Tag, error) {
	name = model.NormalizeTagName(name)
	if name == "" {
		return nil, apperror.ValidationFailed("name", "tag name is required")
	}
	return s.tags.GetByName(ctx, name)
}

// Rename gives a tag a new name.
func (s *TagService) Rename(ctx context.Context, id, name string) (*model.Tag, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "tag ID is required")
	}
	name = model.NormalizeTagName(name)
	if err := validateTagName(name); err != nil {
		return nil, err
	}

	if err := s.tags.Rename(ctx, id, name); err != nil {
		return nil, err
	}
	s.logger.Info("tag renamed", slog.String("id", id), slog.String("name", name))
	return s.tags.GetByID(ctx, id)
}

// Delete removes a tag and detaches it from every link.
func (s *TagService) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return apperror.ValidationFailed("id", "tag ID is required")
	}
	if err := s.tags.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("tag deleted", slog.String("id", id))
	return nil
}

// Prune deletes every tag no link uses and returns how many went.
func (s *TagService) Prune(ctx context.Context) (int64, error) {
	n, err := s.tags.DeleteOrphans(ctx)
	if err != nil {
		return 0, err
	}
	s.logger.Info("orphan tags pruned", slog.Int64("count", n))
	return n, nil
}

func validateTagName(name string) error {
	if name == "" {
		return apperror.ValidationFailed("name", "tag name is required")
	}
	if utf8.RuneCountInString(name) > MaxTagNameLength {
		return apperror.ValidationFailed("name",
			fmt.Sprintf("tag name must be %d characters or less", MaxTagNameLength))
	}
	return nil
}
