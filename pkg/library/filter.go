package library

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/aretw0/setlist/pkg/core"
)

// Filter returns the entries whose "title artist" text contains query,
// compared case-insensitively. A blank query returns entries unchanged.
func Filter(entries []core.LibraryEntry, query string) []core.LibraryEntry {
	fold := cases.Fold()
	q := fold.String(strings.TrimSpace(query))
	if q == "" {
		return entries
	}
	var out []core.LibraryEntry
	for _, e := range entries {
		if strings.Contains(fold.String(e.Title+" "+e.Artist), q) {
			out = append(out, e)
		}
	}
	return out
}
