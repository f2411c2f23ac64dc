// Package view derives presentation data from an item sequence. Nothing
// here is stored: codes and counts are recomputed from position on every
// call, so reordering renumbers every song for free.
package view

import (
	"fmt"

	"github.com/aretw0/setlist/pkg/core"
)

// Counts holds the number of songs per segment.
type Counts struct {
	Main   int `json:"main"`
	Encore int `json:"encore"`
	Total  int `json:"total"`
}

// CountSongs counts songs before and after the first encore boundary.
func CountSongs(items []core.Item) Counts {
	var c Counts
	encore := false
	for _, it := range items {
		switch it.(type) {
		case core.EncoreBoundary:
			encore = true
		case core.Song:
			if encore {
				c.Encore++
			} else {
				c.Main++
			}
		}
	}
	c.Total = c.Main + c.Encore
	return c
}

// SongCodes maps every song ID to its display code: M01, M02, ... for the
// main segment and EN01, EN02, ... for the encore. Numbers are padded to at
// least two digits and never truncated.
func SongCodes(items []core.Item) map[string]string {
	out := make(map[string]string)
	main, encore := 0, 0
	inEncore := false
	for _, it := range items {
		switch v := it.(type) {
		case core.EncoreBoundary:
			inEncore = true
		case core.Song:
			if inEncore {
				encore++
				out[v.ID] = fmt.Sprintf("EN%02d", encore)
			} else {
				main++
				out[v.ID] = fmt.Sprintf("M%02d", main)
			}
		}
	}
	return out
}
