package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/setlist/pkg/core"
)

const setlistColumns = "id, title, items, created_at, updated_at"

// Get retrieves a setlist by its ID.
func (s *Store) Get(ctx context.Context, id string) (core.Document, error) {
	db, err := s.handle()
	if err != nil {
		return core.Document{}, core.Storage("get", id, err)
	}
	row := db.QueryRowContext(ctx, "SELECT "+setlistColumns+" FROM setlists WHERE id = ?", id)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Document{}, core.ErrNotFound
	}
	return doc, core.Storage("get", id, err)
}

// List returns all setlists, most recently updated first.
func (s *Store) List(ctx context.Context) ([]core.Document, error) {
	db, err := s.handle()
	if err != nil {
		return nil, core.Storage("list", "", err)
	}
	rows, err := db.QueryContext(ctx, "SELECT "+setlistColumns+" FROM setlists ORDER BY updated_at DESC, id")
	if err != nil {
		return nil, core.Storage("list", "", err)
	}
	defer rows.Close()

	var docs []core.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, core.Storage("list", "", err)
		}
		docs = append(docs, doc)
	}
	return docs, core.Storage("list", "", rows.Err())
}

// Put inserts or replaces a setlist.
func (s *Store) Put(ctx context.Context, doc core.Document) error {
	items, err := encodeItems(doc.Items)
	if err != nil {
		return core.Storage("put", doc.ID, err)
	}
	_, err = s.exec(ctx, `
		INSERT INTO setlists (`+setlistColumns+`) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			items = excluded.items,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at`,
		doc.ID, doc.Title, items, toUnix(doc.CreatedAt), toUnix(doc.UpdatedAt))
	return core.Storage("put", doc.ID, err)
}

// Patch updates only the fields set in patch with a single statement.
func (s *Store) Patch(ctx context.Context, id string, patch core.DocumentPatch) error {
	var title, items any
	if patch.Title != nil {
		title = *patch.Title
	}
	if patch.Items != nil {
		encoded, err := encodeItems(*patch.Items)
		if err != nil {
			return core.Storage("patch", id, err)
		}
		items = encoded
	}
	updatedAt := patch.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}

	n, err := s.exec(ctx, `
		UPDATE setlists SET
			title = COALESCE(?, title),
			items = COALESCE(?, items),
			updated_at = ?
		WHERE id = ?`,
		title, items, toUnix(updatedAt), id)
	if err != nil {
		return core.Storage("patch", id, err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// Delete removes a setlist. A missing id is core.ErrNotFound.
func (s *Store) Delete(ctx context.Context, id string) error {
	n, err := s.exec(ctx, "DELETE FROM setlists WHERE id = ?", id)
	if err != nil {
		return core.Storage("delete", id, err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(row scanner) (core.Document, error) {
	var (
		doc                  core.Document
		items                string
		createdAt, updatedAt int64
	)
	if err := row.Scan(&doc.ID, &doc.Title, &items, &createdAt, &updatedAt); err != nil {
		return core.Document{}, err
	}
	if err := json.Unmarshal([]byte(items), &doc.Items); err != nil {
		return core.Document{}, fmt.Errorf("decode items of %s: %w", doc.ID, err)
	}
	if doc.Items == nil {
		doc.Items = core.Items{}
	}
	doc.CreatedAt = fromUnix(createdAt)
	doc.UpdatedAt = fromUnix(updatedAt)
	return doc, nil
}

func encodeItems(items []core.Item) (string, error) {
	if items == nil {
		items = []core.Item{}
	}
	data, err := json.Marshal(core.Items(items))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Timestamps are stored as Unix nanoseconds so ORDER BY is numeric.
func toUnix(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromUnix(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}
