// Package library handles the song library's tabular import and export.
package library

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aretw0/setlist/pkg/core"
)

// Columns is the positional column order used when a file has no header.
var Columns = []string{"title", "artist", "comment", "url"}

// Row is one parsed record, trimmed.
type Row struct {
	Title   string
	Artist  string
	Comment string
	URL     string
}

// Key identifies a library entry for deduplication. Matching is exact
// (byte-for-byte after trimming); no case folding or Unicode normalization
// is applied.
type Key struct {
	Title  string
	Artist string
}

var bom = []byte("\uFEFF")

// ParseCSV reads rows from r. If the first record has a cell named "title"
// it is a header and columns are matched by name; otherwise columns are
// taken positionally as title, artist, comment, url. Extra columns are
// ignored and every cell is trimmed.
func ParseCSV(r io.Reader) ([]Row, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	data = bytes.TrimPrefix(data, bom)

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	// Titles like 12" Single carry bare quotes; keep them rather than
	// rejecting the whole file.
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, &core.FormatError{Err: fmt.Errorf("invalid csv: %w", err)}
	}
	if len(records) == 0 {
		return nil, nil
	}

	index := map[string]int{}
	for i, name := range Columns {
		index[name] = i
	}
	body := records

	if header := headerIndex(records[0]); header != nil {
		index = header
		body = records[1:]
	}

	rows := make([]Row, 0, len(body))
	for _, rec := range body {
		if blank(rec) {
			continue
		}
		rows = append(rows, Row{
			Title:   cell(rec, index, "title"),
			Artist:  cell(rec, index, "artist"),
			Comment: cell(rec, index, "comment"),
			URL:     cell(rec, index, "url"),
		})
	}
	return rows, nil
}

func headerIndex(rec []string) map[string]int {
	index := map[string]int{}
	for i, h := range rec {
		name := strings.TrimSpace(h)
		if _, dup := index[name]; !dup {
			index[name] = i
		}
	}
	if _, ok := index["title"]; !ok {
		return nil
	}
	return index
}

func cell(rec []string, index map[string]int, name string) string {
	i, ok := index[name]
	if !ok || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func blank(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// Plan turns parsed rows into new entries. Rows with an empty title are
// skipped, as are rows whose (title, artist) pair already exists in the
// library or appeared earlier in the same batch.
func Plan(existing []core.LibraryEntry, rows []Row, now time.Time) []core.LibraryEntry {
	seen := make(map[Key]bool, len(existing)+len(rows))
	for _, e := range existing {
		seen[Key{Title: e.Title, Artist: e.Artist}] = true
	}

	var out []core.LibraryEntry
	for _, r := range rows {
		if r.Title == "" {
			continue
		}
		k := Key{Title: r.Title, Artist: r.Artist}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, core.LibraryEntry{
			ID:        core.NewID(),
			Title:     r.Title,
			Artist:    r.Artist,
			Comment:   r.Comment,
			URL:       r.URL,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}
	return out
}

// ErrNothingToImport is returned when a file only held blank or duplicate rows.
var ErrNothingToImport = errors.New("no new songs to import (only blank or duplicate rows)")

// WriteCSV writes entries with a title,artist,comment,url header.
func WriteCSV(w io.Writer, entries []core.LibraryEntry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return err
	}
	for _, e := range entries {
		if err := cw.Write([]string{e.Title, e.Artist, e.Comment, e.URL}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
