package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/linkstash/internal/apperror"
	"github.com/sakif/linkstash/internal/model"
	"github.com/sakif/linkstash/internal/repository"
)

// compile-time check that *LinkStore implements repository.LinkRepository
var _ repository.LinkRepository = (*LinkStore)(nil)

// LinkStore is the SQLite link DAO.
type LinkStore struct {
	db *DB
}

// linkColumns must stay in the order scanLink reads them.
const linkColumns = `id, url, title, description, preview_image_url, type,
	created_at, updated_at, completed_at, is_favorite, is_archived, is_completed`

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanLink(s rowScanner) (model.Link, error) {
	var (
		l           model.Link
		linkType    string
		completedAt sql.NullTime
	)
	err := s.Scan(
		&l.ID,
		&l.URL,
		&l.Title,
		&l.Description,
		&l.PreviewImageURL,
		&linkType,
		&l.CreatedAt,
		&l.UpdatedAt,
		&completedAt,
		&l.IsFavorite,
		&l.IsArchived,
		&l.IsCompleted,
	)
	if err != nil {
		return model.Link{}, err
	}
	l.Type = model.LinkType(linkType)
	if completedAt.Valid {
		ts := completedAt.Time
		l.CompletedAt = &ts
	}
	l.Tags = []model.Tag{}
	return l, nil
}

// normalizeCompletion keeps IsCompleted and CompletedAt consistent before a
// write; the table's CHECK constraint rejects anything else.
func normalizeCompletion(l *model.Link, now time.Time) {
	if !l.IsCompleted {
		l.CompletedAt = nil
		return
	}
	if l.CompletedAt == nil {
		ts := now
		l.CompletedAt = &ts
	}
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

// Create inserts a new link and associates it with link.Tags.
//
// The link row, any tags created by name and the join rows are written in
// one transaction: a failed insert (a duplicate URL, say) leaves neither a
// half-tagged link nor freshly created orphan tags behind. The caller's
// struct receives the generated ID, timestamps and resolved tags.
func (s *LinkStore) Create(ctx context.Context, link *model.Link) error {
	now := time.Now().UTC()
	link.ID = xid.New().String()
	link.CreatedAt = now
	link.UpdatedAt = now
	if link.Type == "" {
		link.Type = model.DefaultLinkType
	}
	normalizeCompletion(link, now)

	var resolved []model.Tag
	err := s.db.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO links (id, url, title, description, preview_image_url, type,
			                    created_at, updated_at, completed_at,
			                    is_favorite, is_archived, is_completed)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			link.ID,
			link.URL,
			link.Title,
			link.Description,
			link.PreviewImageURL,
			string(link.Type),
			link.CreatedAt,
			link.UpdatedAt,
			nullableTime(link.CompletedAt),
			link.IsFavorite,
			link.IsArchived,
			link.IsCompleted,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return apperror.Conflict("link", "url", link.URL)
			}
			return apperror.Storage("creating link", err)
		}

		resolved, err = resolveTags(ctx, tx, link.Tags)
		if err != nil {
			return err
		}
		for _, tag := range resolved {
			if err := insertLinkTag(ctx, tx, link.ID, tag.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		link.ID = ""
		return err
	}

	link.Tags = resolved
	model.SortTags(link.Tags)
	return nil
}

// resolveTags turns tags given by ID or by name into stored tags, creating
// named ones that don't exist yet. The result has no duplicate IDs.
func resolveTags(ctx context.Context, tx *sql.Tx, tags []model.Tag) ([]model.Tag, error) {
	out := make([]model.Tag, 0, len(tags))
	for _, t := range tags {
		if t.ID == "" {
			stored, err := ensureTag(ctx, tx, t.Name)
			if err != nil {
				return nil, err
			}
			t = stored
		}
		out = append(out, t)
	}
	return dedupeTags(out), nil
}

// GetByID retrieves a single link, tags included.
func (s *LinkStore) GetByID(ctx context.Context, id string) (*model.Link, error) {
	link, err := getLink(ctx, s.db.conn, id)
	if err != nil {
		return nil, err
	}

	tags, err := tagsForLink(ctx, s.db.conn, id)
	if err != nil {
		return nil, err
	}
	link.Tags = tags
	return link, nil
}

func getLink(ctx context.Context, q querier, id string) (*model.Link, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+linkColumns+` FROM links WHERE id = ?`, id)
	link, err := scanLink(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("link", id)
		}
		return nil, apperror.Storage("getting link "+id, err)
	}
	return &link, nil
}

// List retrieves links matching the filter, each with its tags.
//
// Rows are fully read and closed before the tags are loaded in one extra
// query; an in-memory database has a single connection and a second query
// while rows are open would wait forever.
func (s *LinkStore) List(ctx context.Context, filter repository.LinkFilter) ([]model.Link, error) {
	f := filter.Normalized()
	where, args := buildLinkWhere(f)

	query := `SELECT ` + linkColumns + ` FROM links` + where +
		` ORDER BY ` + linkOrderBy(f.Sort) + ` LIMIT ? OFFSET ?`
	args = append(args, f.Limit, f.Offset)

	links, err := s.queryLinks(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	if err := s.attachTags(ctx, links); err != nil {
		return nil, err
	}
	return links, nil
}

func (s *LinkStore) queryLinks(ctx context.Context, query string, args ...any) ([]model.Link, error) {
	rows, err := s.db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperror.Storage("listing links", err)
	}
	defer rows.Close()

	links := make([]model.Link, 0)
	for rows.Next() {
		l, err := scanLink(rows)
		if err != nil {
			return nil, apperror.Storage("scanning link row", err)
		}
		links = append(links, l)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.Storage("iterating links", err)
	}
	return links, nil
}

// Count returns how many links match the filter, ignoring limit and offset.
func (s *LinkStore) Count(ctx context.Context, filter repository.LinkFilter) (int, error) {
	where, args := buildLinkWhere(filter)

	var n int
	err := s.db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM links`+where, args...).Scan(&n)
	if err != nil {
		return 0, apperror.Storage("counting links", err)
	}
	return n, nil
}

// buildLinkWhere turns a filter into a WHERE clause with ? placeholders.
// Only fixed SQL fragments are concatenated; every user value is an argument.
func buildLinkWhere(f repository.LinkFilter) (string, []any) {
	var (
		clauses []string
		args    []any
	)

	if f.Favorite != nil {
		clauses = append(clauses, "is_favorite = ?")
		args = append(args, *f.Favorite)
	}
	if f.Archived != nil {
		clauses = append(clauses, "is_archived = ?")
		args = append(args, *f.Archived)
	}
	if f.Completed != nil {
		clauses = append(clauses, "is_completed = ?")
		args = append(args, *f.Completed)
	}
	if f.TagID != "" {
		clauses = append(clauses,
			"EXISTS (SELECT 1 FROM link_tags lt WHERE lt.link_id = links.id AND lt.tag_id = ?)")
		args = append(args, f.TagID)
	}
	if f.Type != "" {
		clauses = append(clauses, "type = ?")
		args = append(args, string(f.Type))
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		pattern := "%" + escapeLike(q) + "%"
		clauses = append(clauses,
			`(title LIKE ? ESCAPE '\' OR url LIKE ? ESCAPE '\' OR description LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern, pattern)
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func linkOrderBy(sort repository.LinkSort) string {
	switch sort {
	case repository.SortOldest:
		return "created_at ASC, id ASC"
	case repository.SortTitle:
		return "COALESCE(NULLIF(title, ''), url) COLLATE NOCASE ASC, id ASC"
	case repository.SortCompleted:
		return "completed_at IS NULL, completed_at DESC, id DESC"
	default:
		return "created_at DESC, id DESC"
	}
}

// attachTags loads the tags of every link in one query and fills link.Tags.
func (s *LinkStore) attachTags(ctx context.Context, links []model.Link) error {
	if len(links) == 0 {
		return nil
	}

	index := make(map[string]int, len(links))
	placeholders := make([]string, 0, len(links))
	args := make([]any, 0, len(links))
	for i, l := range links {
		index[l.ID] = i
		placeholders = append(placeholders, "?")
		args = append(args, l.ID)
	}

	rows, err := s.db.conn.QueryContext(ctx,
		`SELECT lt.link_id, t.id, t.name, t.created_at
		 FROM link_tags lt
		 JOIN tags t ON t.id = lt.tag_id
		 WHERE lt.link_id IN (`+strings.Join(placeholders, ", ")+`)
		 ORDER BY t.name COLLATE NOCASE, t.id`,
		args...,
	)
	if err != nil {
		return apperror.Storage("loading link tags", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			linkID string
			tag    model.Tag
		)
		if err := rows.Scan(&linkID, &tag.ID, &tag.Name, &tag.CreatedAt); err != nil {
			return apperror.Storage("scanning link tag", err)
		}
		if i, ok := index[linkID]; ok {
			links[i].Tags = append(links[i].Tags, tag)
		}
	}
	if err := rows.Err(); err != nil {
		return apperror.Storage("iterating link tags", err)
	}
	return nil
}

// Update writes the non-nil fields of u and bumps UpdatedAt. With
// u.TagNames set, the tag set is replaced in the same transaction, so a
// failure leaves both the text fields and the tags as they were.
func (s *LinkStore) Update(ctx context.Context, id string, u repository.LinkUpdate) error {
	sets := []string{"updated_at = ?"}
	args := []any{time.Now().UTC()}
	if u.URL != nil {
		sets = append(sets, "url = ?")
		args = append(args, *u.URL)
	}
	if u.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *u.Title)
	}
	if u.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *u.Description)
	}
	if u.Type != nil {
		sets = append(sets, "type = ?")
		args = append(args, string(*u.Type))
	}
	args = append(args, id)

	return s.db.withTx(ctx, func(tx *sql.Tx) error {
		// The write comes first so the transaction holds the write lock
		// before it reads anything.
		result, err := tx.ExecContext(ctx,
			`UPDATE links SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
		if err != nil {
			if isUniqueViolation(err) && u.URL != nil {
				return apperror.Conflict("link", "url", *u.URL)
			}
			return apperror.Storage("updating link "+id, err)
		}
		if err := requireAffected(result, "link", id); err != nil {
			return err
		}

		if u.TagNames == nil {
			return nil
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM link_tags WHERE link_id = ?`, id); err != nil {
			return apperror.Storage("clearing link tags", err)
		}
		for _, name := range *u.TagNames {
			if err := attachTagByName(ctx, tx, id, name); err != nil {
				return err
			}
		}
		return nil
	})
}

// ToggleFlag flips one flag in a single statement. SQLite evaluates every
// right-hand side against the old row, so completed_at follows the old
// is_completed.
func (s *LinkStore) ToggleFlag(ctx context.Context, id string, flag repository.LinkFlag, now time.Time) error {
	now = now.UTC()
	var (
		set  string
		args []any
	)
	switch flag {
	case repository.FlagFavorite:
		set = "is_favorite = NOT is_favorite"
	case repository.FlagArchived:
		set = "is_archived = NOT is_archived"
	case repository.FlagCompleted:
		set = "is_completed = NOT is_completed, completed_at = CASE WHEN is_completed THEN NULL ELSE ? END"
		args = append(args, now)
	default:
		return apperror.ValidationFailed("flag", fmt.Sprintf("unknown link flag %q", flag))
	}
	args = append(args, time.Now().UTC(), id)

	result, err := s.db.conn.ExecContext(ctx,
		`UPDATE links SET `+set+`, updated_at = ? WHERE id = ?`, args...)
	if err != nil {
		return apperror.Storage("toggling "+string(flag)+" on link "+id, err)
	}
	return requireAffected(result, "link", id)
}

func (s *LinkStore) SetCompleted(ctx context.Context, id string, completed bool, now time.Time) error {
	result, err := s.db.conn.ExecContext(ctx,
		`UPDATE links
		 SET is_completed = ?,
		     completed_at = CASE WHEN ? THEN COALESCE(completed_at, ?) ELSE NULL END,
		     updated_at   = ?
		 WHERE id = ?`,
		completed, completed, now.UTC(), time.Now().UTC(), id,
	)
	if err != nil {
		return apperror.Storage("setting completion of link "+id, err)
	}
	return requireAffected(result, "link", id)
}

// FillMetadata copies meta into whichever of title, description and
// preview image are still empty when the statement runs. Anything the user
// wrote meanwhile wins.
func (s *LinkStore) FillMetadata(ctx context.Context, id string, meta repository.LinkMetadata, now time.Time) (bool, error) {
	now = now.UTC()
	changed := false
	err := s.db.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			`UPDATE links
			 SET title             = CASE WHEN title = '' THEN ? ELSE title END,
			     description       = CASE WHEN description = '' THEN ? ELSE description END,
			     preview_image_url = CASE WHEN preview_image_url = '' THEN ? ELSE preview_image_url END,
			     enriched_at       = ?,
			     updated_at        = ?
			 WHERE id = ?
			   AND ((title = '' AND ? <> '')
			     OR (description = '' AND ? <> '')
			     OR (preview_image_url = '' AND ? <> ''))`,
			meta.Title, meta.Description, meta.Image,
			now, now, id,
			meta.Title, meta.Description, meta.Image,
		)
		if err != nil {
			return apperror.Storage("filling metadata of link "+id, err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return apperror.Storage("checking rows affected", err)
		}
		if n > 0 {
			changed = true
			return nil
		}

		// Nothing to fill: still record the attempt so the link is not
		// picked up again on the next start.
		result, err = tx.ExecContext(ctx,
			`UPDATE links SET enriched_at = ? WHERE id = ?`, now, id)
		if err != nil {
			return apperror.Storage("marking link "+id+" enriched", err)
		}
		return requireAffected(result, "link", id)
	})
	return changed, err
}

func (s *LinkStore) ListUnenriched(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		limit = repository.DefaultListLimit
	}
	rows, err := s.db.conn.QueryContext(ctx,
		`SELECT id FROM links
		 WHERE enriched_at IS NULL AND (title = '' OR description = '')
		 ORDER BY created_at, id
		 LIMIT ?`, limit)
	if err != nil {
		return nil, apperror.Storage("listing unenriched links", err)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, apperror.Storage("scanning link id", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.Storage("iterating unenriched links", err)
	}
	return ids, nil
}

// Delete removes a link. Its join rows go with it (ON DELETE CASCADE); the
// tags themselves stay.
func (s *LinkStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.conn.ExecContext(ctx, `DELETE FROM links WHERE id = ?`, id)
	if err != nil {
		return apperror.Storage("deleting link "+id, err)
	}
	return requireAffected(result, "link", id)
}

// AddTag attaches the tag called name, creating the tag if needed. An
// unknown link is NotFound and creates nothing. Adding a tag that is
// already attached is a no-op.
func (s *LinkStore) AddTag(ctx context.Context, linkID, name string) error {
	return s.db.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			`UPDATE links SET updated_at = ? WHERE id = ?`, time.Now().UTC(), linkID)
		if err != nil {
			return apperror.Storage("touching link "+linkID, err)
		}
		if err := requireAffected(result, "link", linkID); err != nil {
			return err
		}
		return attachTagByName(ctx, tx, linkID, name)
	})
}

// attachTagByName gets or creates the tag and writes the join row. The link
// must exist.
func attachTagByName(ctx context.Context, tx *sql.Tx, linkID, name string) error {
	tag, err := ensureTag(ctx, tx, name)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO link_tags (link_id, tag_id) VALUES (?, ?)`, linkID, tag.ID)
	if err != nil {
		return apperror.Storage("tagging link", err)
	}
	return nil
}

// RemoveTag detaches a tag from a link. Returns NotFound when the tag was
// not attached.
func (s *LinkStore) RemoveTag(ctx context.Context, linkID, tagID string) error {
	return s.db.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			`DELETE FROM link_tags WHERE link_id = ? AND tag_id = ?`, linkID, tagID)
		if err != nil {
			return apperror.Storage("removing link tag", err)
		}
		if err := requireAffected(result, "link tag", linkID+"/"+tagID); err != nil {
			return err
		}
		return touchLink(ctx, tx, linkID)
	})
}

// insertLinkTag writes one join row. The tag must exist; the link is
// checked by the caller (or was just inserted).
func insertLinkTag(ctx context.Context, tx *sql.Tx, linkID, tagID string) error {
	if err := requireRow(ctx, tx, "tags", "tag", tagID); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO link_tags (link_id, tag_id) VALUES (?, ?)`, linkID, tagID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return apperror.NotFound("link", linkID)
		}
		return apperror.Storage("tagging link", err)
	}
	return nil
}

func touchLink(ctx context.Context, tx *sql.Tx, linkID string) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE links SET updated_at = ? WHERE id = ?`, time.Now().UTC(), linkID)
	if err != nil {
		return apperror.Storage("touching link "+linkID, err)
	}
	return nil
}

// requireRow returns NotFound unless a row with the given id exists in table.
// table is always a constant from this package, never user input.
func requireRow(ctx context.Context, q querier, table, resource, id string) error {
	var n int
	err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table+` WHERE id = ?`, id).Scan(&n)
	if err != nil {
		return apperror.Storage("looking up "+resource+" "+id, err)
	}
	if n == 0 {
		return apperror.NotFound(resource, id)
	}
	return nil
}

// requireAffected turns "0 rows affected" into NotFound.
func requireAffected(result sql.Result, resource, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return apperror.Storage("checking rows affected", err)
	}
	if n == 0 {
		return apperror.NotFound(resource, id)
	}
	return nil
}

func dedupeTags(tags []model.Tag) []model.Tag {
	out := make([]model.Tag, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		if _, ok := seen[t.ID]; ok {
			continue
		}
		seen[t.ID] = struct{}{}
		out = append(out, t)
	}
	return out
}
