// Package sequence implements the mutation algebra over an ordered item
// list. Every function is pure: inputs are never modified, and out-of-range
// arguments turn the call into a no-op returning the original slice.
//
// A setlist holds at most one core.EncoreBoundary. The functions here do not
// enforce that; callers check HasEncoreBoundary before inserting one.
package sequence

import "github.com/aretw0/setlist/pkg/core"

// Append returns a new sequence with item at the end.
func Append(items []core.Item, item core.Item) []core.Item {
	out := make([]core.Item, 0, len(items)+1)
	out = append(out, items...)
	return append(out, item)
}

// InsertAfter returns a new sequence with item placed right after index.
// It is a no-op when index is out of bounds.
func InsertAfter(items []core.Item, index int, item core.Item) []core.Item {
	if index < 0 || index >= len(items) {
		return items
	}
	out := make([]core.Item, 0, len(items)+1)
	out = append(out, items[:index+1]...)
	out = append(out, item)
	return append(out, items[index+1:]...)
}

// MoveTo relocates the item at from to position to, shifting the items in
// between. It is a no-op if either index is outside [0, len).
func MoveTo(items []core.Item, from, to int) []core.Item {
	n := len(items)
	if from < 0 || from >= n || to < 0 || to >= n {
		return items
	}
	out := make([]core.Item, n)
	copy(out, items)
	if from == to {
		return out
	}
	moved := out[from]
	if from < to {
		copy(out[from:to], out[from+1:to+1])
	} else {
		copy(out[to+1:from+1], out[to:from])
	}
	out[to] = moved
	return out
}

// RemoveByID returns a new sequence without the item carrying id.
func RemoveByID(items []core.Item, id string) []core.Item {
	i := IndexOf(items, id)
	if i < 0 {
		return items
	}
	out := make([]core.Item, 0, len(items)-1)
	out = append(out, items[:i]...)
	return append(out, items[i+1:]...)
}

// IndexOf returns the position of the item carrying id, or -1.
func IndexOf(items []core.Item, id string) int {
	for i, it := range items {
		if it.ItemID() == id {
			return i
		}
	}
	return -1
}

// HasEncoreBoundary reports whether an encore boundary is present.
func HasEncoreBoundary(items []core.Item) bool {
	for _, it := range items {
		if _, ok := it.(core.EncoreBoundary); ok {
			return true
		}
	}
	return false
}

// Update replaces the item carrying id with fn(item). The identifier and
// position are preserved whatever fn returns; a nil result is ignored.
func Update(items []core.Item, id string, fn func(core.Item) core.Item) []core.Item {
	i := IndexOf(items, id)
	if i < 0 {
		return items
	}
	next := fn(items[i])
	if next == nil {
		return items
	}
	out := make([]core.Item, len(items))
	copy(out, items)
	out[i] = core.WithID(next, id)
	return out
}

// ApplyLibraryEntry copies the title and artist of entry into the song
// carrying id. Other kinds and unknown ids are left alone.
func ApplyLibraryEntry(items []core.Item, id string, entry core.LibraryEntry) []core.Item {
	i := IndexOf(items, id)
	if i < 0 {
		return items
	}
	if _, ok := items[i].(core.Song); !ok {
		return items
	}
	return Update(items, id, func(it core.Item) core.Item {
		song := it.(core.Song)
		song.Title = entry.Title
		song.Artist = entry.Artist
		return song
	})
}
