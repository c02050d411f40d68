package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/sakif/linkstash/internal/apperror"
	"github.com/sakif/linkstash/internal/model"
	"github.com/sakif/linkstash/internal/profile"
	"github.com/sakif/linkstash/internal/repository"
)

// =========================================================================
// IN-MEMORY FAKES
// =========================================================================
//
// Hand-written fakes of the repository interfaces. They store copies, never
// the caller's pointers, so a test can't accidentally mutate "the database".

type mockTagRepo struct {
	tags   map[string]model.Tag
	nextID int
	links  *mockLinkRepo // for link counts and orphan detection
}

func newMockTagRepo() *mockTagRepo {
	return &mockTagRepo{tags: make(map[string]model.Tag)}
}

func (m *mockTagRepo) Create(_ context.Context, tag *model.Tag) error {
	for _, t := range m.tags {
		if strings.EqualFold(t.Name, tag.Name) {
			return apperror.Conflict("tag", "name", tag.Name)
		}
	}
	m.nextID++
	tag.ID = fmt.Sprintf("tag-%d", m.nextID)
	m.tags[tag.ID] = *tag
	return nil
}

func (m *mockTagRepo) GetByID(_ context.Context, id string) (*model.Tag, error) {
	t, ok := m.tags[id]
	if !ok {
		return nil, apperror.NotFound("tag", id)
	}
	return &t, nil
}

func (m *mockTagRepo) GetByName(_ context.Context, name string) (*model.Tag, error) {
	for _, t := range m.tags {
		if strings.EqualFold(t.Name, name) {
			return &t, nil
		}
	}
	return nil, apperror.NotFound("tag", name)
}

func (m *mockTagRepo) List(_ context.Context) ([]model.Tag, error) {
	out := make([]model.Tag, 0, len(m.tags))
	for _, t := range m.tags {
		out = append(out, t)
	}
	model.SortTags(out)
	return out, nil
}

func (m *mockTagRepo) ListForLink(ctx context.Context, linkID string) ([]model.Tag, error) {
	l, err := m.links.GetByID(ctx, linkID)
	if err != nil {
		return nil, err
	}
	return l.Tags, nil
}

func (m *mockTagRepo) Rename(_ context.Context, id, name string) error {
	t, ok := m.tags[id]
	if !ok {
		return apperror.NotFound("tag", id)
	}
	for otherID, other := range m.tags {
		if otherID != id && strings.EqualFold(other.Name, name) {
			return apperror.Conflict("tag", "name", name)
		}
	}
	t.Name = name
	m.tags[id] = t
	return nil
}

func (m *mockTagRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.tags[id]; !ok {
		return apperror.NotFound("tag", id)
	}
	delete(m.tags, id)
	if m.links != nil {
		for linkID, ids := range m.links.tagIDs {
			m.links.tagIDs[linkID] = without(ids, id)
		}
	}
	return nil
}

func (m *mockTagRepo) DeleteOrphans(_ context.Context) (int64, error) {
	used := make(map[string]bool)
	if m.links != nil {
		for _, ids := range m.links.tagIDs {
			for _, id := range ids {
				used[id] = true
			}
		}
	}
	var n int64
	for id := range m.tags {
		if !used[id] {
			delete(m.tags, id)
			n++
		}
	}
	return n, nil
}

type mockLinkRepo struct {
	links  map[string]model.Link
	tagIDs map[string][]string
	tags   *mockTagRepo
	nextID int

	createErr error
	updates   int
}

func newMockLinkRepo(tags *mockTagRepo) *mockLinkRepo {
	m := &mockLinkRepo{
		links:  make(map[string]model.Link),
		tagIDs: make(map[string][]string),
		tags:   tags,
	}
	tags.links = m
	return m
}

func (m *mockLinkRepo) Create(_ context.Context, link *model.Link) error {
	if m.createErr != nil {
		return m.createErr
	}
	// The conflict check comes first: like the real store, a rejected link
	// creates no tags.
	for _, l := range m.links {
		if l.URL == link.URL {
			return apperror.Conflict("link", "url", link.URL)
		}
	}
	resolved := make([]model.Tag, 0, len(link.Tags))
	ids := make([]string, 0, len(link.Tags))
	for _, t := range link.Tags {
		if t.ID == "" {
			tag, err := m.ensureTag(t.Name)
			if err != nil {
				return err
			}
			t = *tag
		}
		resolved = append(resolved, t)
		ids = append(ids, t.ID)
	}

	m.nextID++
	link.ID = fmt.Sprintf("link-%d", m.nextID)
	link.Tags = resolved
	model.SortTags(link.Tags)
	stored := *link
	stored.Tags = nil
	m.links[link.ID] = stored
	m.tagIDs[link.ID] = ids
	return nil
}

func (m *mockLinkRepo) ensureTag(name string) (*model.Tag, error) {
	tag, err := m.tags.GetByName(context.Background(), name)
	if err == nil {
		return tag, nil
	}
	tag = &model.Tag{Name: name}
	if err := m.tags.Create(context.Background(), tag); err != nil {
		return nil, err
	}
	return tag, nil
}

func (m *mockLinkRepo) GetByID(_ context.Context, id string) (*model.Link, error) {
	l, ok := m.links[id]
	if !ok {
		return nil, apperror.NotFound("link", id)
	}
	l.Tags = []model.Tag{}
	for _, tagID := range m.tagIDs[id] {
		if t, ok := m.tags.tags[tagID]; ok {
			l.Tags = append(l.Tags, t)
		}
	}
	model.SortTags(l.Tags)
	return &l, nil
}

func (m *mockLinkRepo) List(ctx context.Context, f repository.LinkFilter) ([]model.Link, error) {
	out := make([]model.Link, 0)
	for id := range m.links {
		l, _ := m.GetByID(ctx, id)
		if f.Favorite != nil && l.IsFavorite != *f.Favorite {
			continue
		}
		if f.Archived != nil && l.IsArchived != *f.Archived {
			continue
		}
		out = append(out, *l)
	}
	if f.Offset >= len(out) {
		return []model.Link{}, nil
	}
	out = out[f.Offset:]
	if f.Limit > 0 && f.Limit < len(out) {
		out = out[:f.Limit]
	}
	return out, nil
}

func (m *mockLinkRepo) Count(ctx context.Context, f repository.LinkFilter) (int, error) {
	f.Limit, f.Offset = 0, 0
	all, err := m.List(ctx, f)
	return len(all), err
}

func (m *mockLinkRepo) Update(_ context.Context, id string, u repository.LinkUpdate) error {
	l, ok := m.links[id]
	if !ok {
		return apperror.NotFound("link", id)
	}
	if u.URL != nil {
		for otherID, other := range m.links {
			if otherID != id && other.URL == *u.URL {
				return apperror.Conflict("link", "url", *u.URL)
			}
		}
		l.URL = *u.URL
	}
	if u.Title != nil {
		l.Title = *u.Title
	}
	if u.Description != nil {
		l.Description = *u.Description
	}
	if u.Type != nil {
		l.Type = *u.Type
	}
	if u.TagNames != nil {
		ids := make([]string, 0, len(*u.TagNames))
		for _, name := range *u.TagNames {
			tag, err := m.ensureTag(name)
			if err != nil {
				return err
			}
			ids = append(ids, tag.ID)
		}
		m.tagIDs[id] = ids
	}
	m.links[id] = l
	m.updates++
	return nil
}

func (m *mockLinkRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.links[id]; !ok {
		return apperror.NotFound("link", id)
	}
	delete(m.links, id)
	delete(m.tagIDs, id)
	return nil
}

func (m *mockLinkRepo) ToggleFlag(_ context.Context, id string, flag repository.LinkFlag, now time.Time) error {
	l, ok := m.links[id]
	if !ok {
		return apperror.NotFound("link", id)
	}
	switch flag {
	case repository.FlagFavorite:
		l.ToggleFavorite()
	case repository.FlagArchived:
		l.ToggleArchive()
	case repository.FlagCompleted:
		l.ToggleCompleted(now.UTC())
	default:
		return apperror.ValidationFailed("flag", "unknown link flag")
	}
	m.links[id] = l
	m.updates++
	return nil
}

func (m *mockLinkRepo) SetCompleted(_ context.Context, id string, completed bool, now time.Time) error {
	l, ok := m.links[id]
	if !ok {
		return apperror.NotFound("link", id)
	}
	l.SetCompleted(completed, now.UTC())
	m.links[id] = l
	m.updates++
	return nil
}

func (m *mockLinkRepo) FillMetadata(_ context.Context, id string, meta repository.LinkMetadata, _ time.Time) (bool, error) {
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
	return changed, nil
}

func (m *mockLinkRepo) ListUnenriched(_ context.Context, _ int) ([]string, error) {
	return []string{}, nil
}

func (m *mockLinkRepo) AddTag(_ context.Context, linkID, name string) error {
	if _, ok := m.links[linkID]; !ok {
		return apperror.NotFound("link", linkID)
	}
	tag, err := m.ensureTag(name)
	if err != nil {
		return err
	}
	for _, id := range m.tagIDs[linkID] {
		if id == tag.ID {
			return nil
		}
	}
	m.tagIDs[linkID] = append(m.tagIDs[linkID], tag.ID)
	return nil
}

func (m *mockLinkRepo) RemoveTag(_ context.Context, linkID, tagID string) error {
	ids := m.tagIDs[linkID]
	rest := without(ids, tagID)
	if len(rest) == len(ids) {
		return apperror.NotFound("link tag", linkID+"/"+tagID)
	}
	m.tagIDs[linkID] = rest
	return nil
}

func without(ids []string, drop string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != drop {
			out = append(out, id)
		}
	}
	return out
}

type mockAccountRepo struct {
	accounts map[model.Provider]model.Account
}

func newMockAccountRepo() *mockAccountRepo {
	return &mockAccountRepo{accounts: make(map[model.Provider]model.Account)}
}

func (m *mockAccountRepo) Save(_ context.Context, a *model.Account) error {
	m.accounts[a.Provider] = *a
	return nil
}

func (m *mockAccountRepo) Get(_ context.Context, p model.Provider) (*model.Account, error) {
	a, ok := m.accounts[p]
	if !ok {
		return nil, apperror.NotFound("account", string(p))
	}
	return &a, nil
}

func (m *mockAccountRepo) List(_ context.Context) ([]model.Account, error) {
	out := make([]model.Account, 0, len(m.accounts))
	for _, p := range []model.Provider{model.ProviderGitHub, model.ProviderHackerNews} {
		if a, ok := m.accounts[p]; ok {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *mockAccountRepo) Delete(_ context.Context, p model.Provider) error {
	if _, ok := m.accounts[p]; !ok {
		return apperror.NotFound("account", string(p))
	}
	delete(m.accounts, p)
	return nil
}

// recordingEnqueuer remembers which links were queued for enrichment.
type recordingEnqueuer struct {
	mu  sync.Mutex
	ids []string
}

func (r *recordingEnqueuer) Enqueue(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, id)
	return true
}

// stubProfiles answers profile lookups from fixed maps.
type stubProfiles struct {
	github  map[string]model.GitHubProfile
	hn      map[string]model.HackerNewsProfile
	lastReq profile.Request
}

func (s *stubProfiles) GitHub(_ context.Context, login string) (*model.GitHubProfile, error) {
	p, ok := s.github[login]
	if !ok {
		return nil, apperror.NotFound("github user", login)
	}
	return &p, nil
}

func (s *stubProfiles) HackerNews(_ context.Context, username string) (*model.HackerNewsProfile, error) {
	p, ok := s.hn[username]
	if !ok {
		return nil, apperror.NotFound("hackernews user", username)
	}
	return &p, nil
}

func (s *stubProfiles) FetchAll(ctx context.Context, req profile.Request) (*model.Profiles, error) {
	s.lastReq = req
	var out model.Profiles
	if req.GitHubLogin != "" {
		out.GitHub, _ = s.GitHub(ctx, req.GitHubLogin)
	}
	if req.HackerNewsUsername != "" {
		out.HackerNews, _ = s.HackerNews(ctx, req.HackerNewsUsername)
	}
	return &out, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
