package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/aretw0/setlist/pkg/core"
)

const entryColumns = "id, title, artist, comment, url, created_at, updated_at"

const upsertEntry = `
	INSERT INTO library_entries (` + entryColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		title = excluded.title,
		artist = excluded.artist,
		comment = excluded.comment,
		url = excluded.url,
		created_at = excluded.created_at,
		updated_at = excluded.updated_at`

// GetEntry retrieves a library entry by its ID.
func (s *Store) GetEntry(ctx context.Context, id string) (core.LibraryEntry, error) {
	db, err := s.handle()
	if err != nil {
		return core.LibraryEntry{}, core.Storage("get entry", id, err)
	}
	e, err := scanEntry(db.QueryRowContext(ctx, "SELECT "+entryColumns+" FROM library_entries WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.LibraryEntry{}, core.ErrNotFound
	}
	return e, core.Storage("get entry", id, err)
}

// ListEntries returns all library entries, newest first.
func (s *Store) ListEntries(ctx context.Context) ([]core.LibraryEntry, error) {
	db, err := s.handle()
	if err != nil {
		return nil, core.Storage("list entries", "", err)
	}
	rows, err := db.QueryContext(ctx, "SELECT "+entryColumns+" FROM library_entries ORDER BY updated_at DESC, id")
	if err != nil {
		return nil, core.Storage("list entries", "", err)
	}
	defer rows.Close()

	var out []core.LibraryEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, core.Storage("list entries", "", err)
		}
		out = append(out, e)
	}
	return out, core.Storage("list entries", "", rows.Err())
}

// PutEntry inserts or replaces a library entry.
func (s *Store) PutEntry(ctx context.Context, e core.LibraryEntry) error {
	_, err := s.exec(ctx, upsertEntry, entryArgs(e)...)
	return core.Storage("put entry", e.ID, err)
}

// PutEntries writes the batch in one transaction.
func (s *Store) PutEntries(ctx context.Context, entries []core.LibraryEntry) error {
	if len(entries) == 0 {
		return nil
	}
	db, err := s.handle()
	if err != nil {
		return core.Storage("put entries", "", err)
	}

	err = retryOnBusy(ctx, func() error {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		stmt, err := tx.PrepareContext(ctx, upsertEntry)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, e := range entries {
			if _, err := stmt.ExecContext(ctx, entryArgs(e)...); err != nil {
				return err
			}
		}
		return tx.Commit()
	})
	return core.Storage("put entries", "", err)
}

// DeleteEntries removes library entries. Missing ids are ignored.
func (s *Store) DeleteEntries(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	_, err := s.exec(ctx, "DELETE FROM library_entries WHERE id IN ("+placeholders+")", args...)
	return core.Storage("delete entries", "", err)
}

func entryArgs(e core.LibraryEntry) []any {
	return []any{e.ID, e.Title, e.Artist, e.Comment, e.URL, toUnix(e.CreatedAt), toUnix(e.UpdatedAt)}
}

func scanEntry(row scanner) (core.LibraryEntry, error) {
	var (
		e                    core.LibraryEntry
		createdAt, updatedAt int64
	)
	if err := row.Scan(&e.ID, &e.Title, &e.Artist, &e.Comment, &e.URL, &createdAt, &updatedAt); err != nil {
		return core.LibraryEntry{}, err
	}
	e.CreatedAt = fromUnix(createdAt)
	e.UpdatedAt = fromUnix(updatedAt)
	return e, nil
}
