package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/linkstash/internal/apperror"
	"github.com/sakif/linkstash/internal/model"
	"github.com/sakif/linkstash/internal/repository"
)

var _ repository.TagRepository = (*TagStore)(nil)

// TagStore is the SQLite tag DAO. Tag names are unique case-insensitively
// (the column is COLLATE NOCASE).
type TagStore struct {
	db *DB
}

const tagColumns = `id, name, created_at,
	(SELECT COUNT(*) FROM link_tags lt WHERE lt.tag_id = tags.id)`

func scanTag(s rowScanner) (model.Tag, error) {
	var t model.Tag
	err := s.Scan(&t.ID, &t.Name, &t.CreatedAt, &t.LinkCount)
	return t, err
}

// Create inserts a new tag. A name that already exists (in any case) is a
// Conflict.
func (s *TagStore) Create(ctx context.Context, tag *model.Tag) error {
	tag.ID = xid.New().String()
	tag.CreatedAt = time.Now().UTC()

	_, err := s.db.conn.ExecContext(ctx,
		`INSERT INTO tags (id, name, created_at) VALUES (?, ?, ?)`,
		tag.ID, tag.Name, tag.CreatedAt,
	)
	if err != nil {
		tag.ID = ""
		if isUniqueViolation(err) {
			return apperror.Conflict("tag", "name", tag.Name)
		}
		return apperror.Storage("creating tag", err)
	}
	return nil
}

func (s *TagStore) GetByID(ctx context.Context, id string) (*model.Tag, error) {
	row := s.db.conn.QueryRowContext(ctx,
		`SELECT `+tagColumns+` FROM tags WHERE id = ?`, id)
	t, err := scanTag(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("tag", id)
		}
		return nil, apperror.Storage("getting tag "+id, err)
	}
	return &t, nil
}

// GetByName looks a tag up by name, ignoring case.
func (s *TagStore) GetByName(ctx context.Context, name string) (*model.Tag, error) {
	row := s.db.conn.QueryRowContext(ctx,
		`SELECT `+tagColumns+` FROM tags WHERE name = ?`, name)
	t, err := scanTag(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("tag", name)
		}
		return nil, apperror.Storage("getting tag "+name, err)
	}
	return &t, nil
}

// List returns every tag ordered by name, with link counts.
func (s *TagStore) List(ctx context.Context) ([]model.Tag, error) {
	rows, err := s.db.conn.QueryContext(ctx,
		`SELECT `+tagColumns+` FROM tags ORDER BY name COLLATE NOCASE, id`)
	if err != nil {
		return nil, apperror.Storage("listing tags", err)
	}
	defer rows.Close()

	tags := make([]model.Tag, 0)
	for rows.Next() {
		t, err := scanTag(rows)
		if err != nil {
			return nil, apperror.Storage("scanning tag row", err)
		}
		tags = append(tags, t)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.Storage("iterating tags", err)
	}
	return tags, nil
}

// ListForLink returns the tags attached to one link. An unknown link yields
// NotFound rather than an empty list.
func (s *TagStore) ListForLink(ctx context.Context, linkID string) ([]model.Tag, error) {
	if err := requireRow(ctx, s.db.conn, "links", "link", linkID); err != nil {
		return nil, err
	}
	return tagsForLink(ctx, s.db.conn, linkID)
}

func tagsForLink(ctx context.Context, q querier, linkID string) ([]model.Tag, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT t.id, t.name, t.created_at
		 FROM tags t
		 JOIN link_tags lt ON lt.tag_id = t.id
		 WHERE lt.link_id = ?
		 ORDER BY t.name COLLATE NOCASE, t.id`, linkID)
	if err != nil {
		return nil, apperror.Storage("listing tags for link "+linkID, err)
	}
	defer rows.Close()

	tags := make([]model.Tag, 0)
	for rows.Next() {
		var t model.Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.CreatedAt); err != nil {
			return nil, apperror.Storage("scanning tag row", err)
		}
		tags = append(tags, t)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.Storage("iterating tags", err)
	}
	return tags, nil
}

// Rename changes a tag's name. Renaming to a name held by another tag is a
// Conflict; changing only the case of its own name is allowed.
func (s *TagStore) Rename(ctx context.Context, id, name string) error {
	result, err := s.db.conn.ExecContext(ctx,
		`UPDATE tags SET name = ? WHERE id = ?`, name, id)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("tag", "name", name)
		}
		return apperror.Storage("renaming tag "+id, err)
	}
	return requireAffected(result, "tag", id)
}

// Delete removes a tag and detaches it from every link.
func (s *TagStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.conn.ExecContext(ctx, `DELETE FROM tags WHERE id = ?`, id)
	if err != nil {
		return apperror.Storage("deleting tag "+id, err)
	}
	return requireAffected(result, "tag", id)
}

// DeleteOrphans removes every tag that is attached to no link.
func (s *TagStore) DeleteOrphans(ctx context.Context) (int64, error) {
	result, err := s.db.conn.ExecContext(ctx,
		`DELETE FROM tags WHERE NOT EXISTS (SELECT 1 FROM link_tags lt WHERE lt.tag_id = tags.id)`)
	if err != nil {
		return 0, apperror.Storage("deleting orphan tags", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, apperror.Storage("checking rows affected", err)
	}
	return n, nil
}

// ensureTag returns the tag called name, creating it inside tx when it does
// not exist. Callers hold the write lock (they have already written in tx),
// so no other writer can create the same name in between.
func ensureTag(ctx context.Context, tx *sql.Tx, name string) (model.Tag, error) {
	if name == "" {
		return model.Tag{}, apperror.ValidationFailed("name", "tag name is required")
	}

	var t model.Tag
	err := tx.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM tags WHERE name = ?`, name,
	).Scan(&t.ID, &t.Name, &t.CreatedAt)
	if err == nil {
		return t, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return model.Tag{}, apperror.Storage("getting tag "+name, err)
	}

	t = model.Tag{ID: xid.New().String(), Name: name, CreatedAt: time.Now().UTC()}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO tags (id, name, created_at) VALUES (?, ?, ?)`, t.ID, t.Name, t.CreatedAt)
	if err != nil {
		return model.Tag{}, apperror.Storage("creating tag "+name, err)
	}
	return t, nil
}
