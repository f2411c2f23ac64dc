// Package core holds the setlist domain model and the ports the rest of the
// engine depends on.
package core

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Kind is the discriminant of an Item.
type Kind string

const (
	KindSong   Kind = "SONG"
	KindNote   Kind = "NOTE"
	KindEncore Kind = "ENCORE_START"
)

// Valid reports whether k is one of the known item kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindSong, KindNote, KindEncore:
		return true
	}
	return false
}

// Item is one line of a setlist. The set of implementations is closed:
// Song, Note and EncoreBoundary.
type Item interface {
	ItemID() string
	Kind() Kind
	isItem()
}

// Song is a performable piece.
type Song struct {
	ID     string
	Title  string
	Artist string
	Memo   string
}

// Note is a non-musical annotation such as a stage direction.
type Note struct {
	ID    string
	Label string
	Text  string
}

// EncoreBoundary splits a setlist into its main and encore segments.
type EncoreBoundary struct {
	ID   string
	Memo string
}

func (s Song) ItemID() string           { return s.ID }
func (n Note) ItemID() string           { return n.ID }
func (e EncoreBoundary) ItemID() string { return e.ID }

func (Song) Kind() Kind           { return KindSong }
func (Note) Kind() Kind           { return KindNote }
func (EncoreBoundary) Kind() Kind { return KindEncore }

func (Song) isItem()           {}
func (Note) isItem()           {}
func (EncoreBoundary) isItem() {}

// NewID returns a fresh random identifier.
func NewID() string {
	return uuid.NewString()
}

// NewItemOK builds a default-valued item of the given kind with a fresh ID.
func NewItemOK(kind Kind) (Item, bool) {
	id := NewID()
	switch kind {
	case KindSong:
		return Song{ID: id}, true
	case KindNote:
		return Note{ID: id}, true
	case KindEncore:
		return EncoreBoundary{ID: id}, true
	}
	return nil, false
}

// NewItem is like NewItemOK but panics on an unknown kind.
func NewItem(kind Kind) Item {
	it, ok := NewItemOK(kind)
	if !ok {
		panic(fmt.Sprintf("core: unknown item kind %q", kind))
	}
	return it
}

// WithID returns a copy of it carrying the given identifier.
func WithID(it Item, id string) Item {
	switch v := it.(type) {
	case Song:
		v.ID = id
		return v
	case Note:
		v.ID = id
		return v
	case EncoreBoundary:
		v.ID = id
		return v
	}
	return it
}

// ParseKind maps user-facing names ("song", "note", "encore") and wire
// discriminants to a Kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "song", "SONG":
		return KindSong, nil
	case "note", "NOTE":
		return KindNote, nil
	case "encore", "ENCORE_START":
		return KindEncore, nil
	}
	return "", fmt.Errorf("unknown item kind %q (want song, note or encore)", s)
}

// Document is one ordered performance program. The order of Items is the
// program order.
type Document struct {
	ID        string    `json:"id" yaml:"id"`
	Title     string    `json:"title" yaml:"title"`
	Items     Items     `json:"items" yaml:"items"`
	CreatedAt time.Time `json:"createdAt" yaml:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" yaml:"updatedAt"`
}

// DefaultTitle is given to setlists created from scratch.
const DefaultTitle = "New setlist"

// NewDocument returns an empty document with a fresh ID and timestamps.
func NewDocument(title string, now time.Time) Document {
	if title == "" {
		title = DefaultTitle
	}
	return Document{
		ID:        NewID(),
		Title:     title,
		Items:     Items{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// DocumentPatch carries the fields of a partial document update. Nil
// pointers leave the stored value untouched.
type DocumentPatch struct {
	Title     *string
	Items     *[]Item
	UpdatedAt time.Time
}

// Apply writes the patch onto doc. A zero UpdatedAt is replaced by now.
func (p DocumentPatch) Apply(doc *Document, now time.Time) {
	if p.Title != nil {
		doc.Title = *p.Title
	}
	if p.Items != nil {
		doc.Items = append(Items{}, (*p.Items)...)
	}
	doc.UpdatedAt = p.UpdatedAt
	if doc.UpdatedAt.IsZero() {
		doc.UpdatedAt = now
	}
}

// LibraryEntry is a reusable catalog record that can be copied into a Song.
type LibraryEntry struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Artist    string    `json:"artist"`
	Comment   string    `json:"comment"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// EventType represents the type of change in the store.
type EventType string

const (
	EventCreate EventType = "CREATE"
	EventModify EventType = "MODIFY"
	EventDelete EventType = "DELETE"
)

// Event represents a change to a stored setlist.
type Event struct {
	Type      EventType
	ID        string
	Timestamp int64 // Unix timestamp
}

func (e Event) String() string {
	return fmt.Sprintf("%s %s", e.Type, e.ID)
}
