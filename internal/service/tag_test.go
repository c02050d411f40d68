package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sakif/linkstash/internal/apperror"
)

func newTagFixture() (*TagService, *LinkService, *mockTagRepo) {
	tags := newMockTagRepo()
	links := newMockLinkRepo(tags)
	return NewTagService(tags, testLogger()), NewLinkService(links, nil, testLogger()), tags
}

func TestTagCreate(t *testing.T) {
	svc, _, _ := newTagFixture()
	ctx := context.Background()

	tag, err := svc.Create(ctx, "  machine   learning ")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if tag.Name != "machine learning" {
		t.Errorf("Name = %q, want whitespace collapsed", tag.Name)
	}
	if tag.ID == "" {
		t.Error("Create() should assign an ID")
	}

	if _, err := svc.Create(ctx, "Machine Learning"); !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("Create(same name, other case) error = %v, want ErrConflict", err)
	}
}

func TestTagCreate_Invalid(t *testing.T) {
	svc, _, _ := newTagFixture()

	for name, input := range map[string]string{
		"empty":    "",
		"blank":    "   ",
		"too long": strings.Repeat("x", MaxTagNameLength+1),
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := svc.Create(context.Background(), input); !errors.Is(err, apperror.ErrValidation) {
				t.Errorf("Create(%q) error = %v, want ErrValidation", input, err)
			}
		})
	}
}

func TestTagList_SortedByName(t *testing.T) {
	svc, _, _ := newTagFixture()
	ctx := context.Background()
	for _, n := range []string{"zeta", "Alpha", "beta"} {
		if _, err := svc.Create(ctx, n); err != nil {
			t.Fatalf("Create(%q) error = %v", n, err)
		}
	}

	tags, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	var names []string
	for _, tag := range tags {
		names = append(names, tag.Name)
	}
	if got := strings.Join(names, ","); got != "Alpha,beta,zeta" {
		t.Errorf("List() names = %q, want Alpha,beta,zeta", got)
	}
}

func TestTagRename(t *testing.T) {
	svc, _, _ := newTagFixture()
	ctx := context.Background()
	golang, _ := svc.Create(ctx, "golang")
	svc.Create(ctx, "rust")

	got, err := svc.Rename(ctx, golang.ID, " Go ")
	if err != nil {
		t.Fatalf("Rename() error = %v", err)
	}
	if got.Name != "Go" {
		t.Errorf("Name = %q, want Go", got.Name)
	}

	if _, err := svc.Rename(ctx, golang.ID, "RUST"); !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("Rename(taken) error = %v, want ErrConflict", err)
	}
	if _, err := svc.Rename(ctx, "missing", "new"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Rename(missing) error = %v, want ErrNotFound", err)
	}
	if _, err := svc.Rename(ctx, golang.ID, ""); !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("Rename(blank) error = %v, want ErrValidation", err)
	}
}

func TestTagDelete_DetachesFromLinks(t *testing.T) {
	svc, links, _ := newTagFixture()
	ctx := context.Background()

	link, err := links.Save(ctx, SaveLinkInput{URL: "https://example.com", Tags: []string{"temp", "keep"}})
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	var tempID string
	for _, tag := range link.Tags {
		if tag.Name == "temp" {
			tempID = tag.ID
		}
	}

	if err := svc.Delete(ctx, tempID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	got, _ := links.Get(ctx, link.ID)
	if names := got.TagNames(); len(names) != 1 || names[0] != "keep" {
		t.Errorf("TagNames() = %v, want [keep]", names)
	}
	if err := svc.Delete(ctx, tempID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
}

func TestTagPrune(t *testing.T) {
	svc, links, tags := newTagFixture()
	ctx := context.Background()

	if _, err := links.Save(ctx, SaveLinkInput{URL: "https://example.com", Tags: []string{"used"}}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	svc.Create(ctx, "orphan-1")
	svc.Create(ctx, "orphan-2")

	n, err := svc.Prune(ctx)
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if n != 2 {
		t.Errorf("Prune() = %d, want 2", n)
	}
	if len(tags.tags) != 1 {
		t.Errorf("remaining tags = %d, want 1", len(tags.tags))
	}
}

func TestTagFind(t *testing.T) {
	svc, _, _ := newTagFixture()
	ctx := context.Background()
	created, _ := svc.Create(ctx, "Reading List")

	got, err := svc.Find(ctx, "  reading   list ")
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if got.ID != created.ID {
		t.Errorf("Find() = %s, want %s", got.ID, created.ID)
	}
	if _, err := svc.Find(ctx, "missing"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Find(missing) error = %v, want ErrNotFound", err)
	}
	if _, err := svc.Find(ctx, " "); !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("Find(blank) error = %v, want ErrValidation", err)
	}
}
