// Package setlist is the use-case layer of the engine. It combines the
// storage ports with the sequence algebra, the codec, the library helpers
// and the autosave controller.
package setlist

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/introspection"
	"github.com/aretw0/lifecycle"

	"github.com/aretw0/setlist/pkg/autosave"
	"github.com/aretw0/setlist/pkg/codec"
	"github.com/aretw0/setlist/pkg/core"
	"github.com/aretw0/setlist/pkg/library"
	"github.com/aretw0/setlist/pkg/sequence"
)

var (
	// ErrEncoreExists is returned when adding a second encore boundary.
	ErrEncoreExists = errors.New("setlist already has an encore boundary")
	// ErrWatchUnsupported is returned by Watch and Follow when the store
	// cannot report external changes.
	ErrWatchUnsupported = errors.New("repository does not support watching")
	// ErrEmptyID is returned for operations given a blank id.
	ErrEmptyID = errors.New("id cannot be empty")
	// ErrEmptyTitle is returned when a library entry has no title.
	ErrEmptyTitle = errors.New("title cannot be empty")
	// ErrItemNotFound is returned when an item id is not in the setlist.
	ErrItemNotFound = errors.New("item not found")
	// ErrPosition is returned when an index is outside the item list.
	ErrPosition = errors.New("position out of range")
)

// Service handles the business logic for setlists and the song library.
type Service struct {
	store    core.Store
	logger   *slog.Logger
	now      func() time.Time
	autosave []autosave.Option

	mu      sync.Mutex
	editors []*autosave.Controller
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger used by the service and its controllers.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock sets the source of timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithAutosaveOptions are passed to every controller created by Edit.
func WithAutosaveOptions(opts ...autosave.Option) Option {
	return func(s *Service) {
		s.autosave = append(s.autosave, opts...)
	}
}

// New creates a Service over store.
func New(store core.Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		logger: slog.New(slog.DiscardHandler),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store returns the underlying store.
func (s *Service) Store() core.Store {
	return s.store
}

// --- Setlists ---

// Create stores a new empty setlist. A blank title gets core.DefaultTitle.
func (s *Service) Create(ctx context.Context, title string) (core.Document, error) {
	doc := core.NewDocument(strings.TrimSpace(title), s.now())
	if err := s.store.Put(ctx, doc); err != nil {
		return core.Document{}, err
	}
	s.logger.Debug("setlist created", "id", doc.ID)
	return doc, nil
}

// Get retrieves a setlist.
func (s *Service) Get(ctx context.Context, id string) (core.Document, error) {
	if id == "" {
		return core.Document{}, ErrEmptyID
	}
	return s.store.Get(ctx, id)
}

// List returns all setlists, most recently updated first.
func (s *Service) List(ctx context.Context) ([]core.Document, error) {
	return s.store.List(ctx)
}

// Rename sets the title of a setlist.
func (s *Service) Rename(ctx context.Context, id, title string) error {
	if id == "" {
		return ErrEmptyID
	}
	return s.store.Patch(ctx, id, core.DocumentPatch{Title: &title, UpdatedAt: s.now()})
}

// Delete removes a setlist.
func (s *Service) Delete(ctx context.Context, id string) error {
	if id == "" {
		return ErrEmptyID
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Debug("setlist deleted", "id", id)
	return nil
}

// Duplicate stores a copy of the setlist with fresh ids and returns it.
func (s *Service) Duplicate(ctx context.Context, id string) (core.Document, error) {
	src, err := s.Get(ctx, id)
	if err != nil {
		return core.Document{}, err
	}
	dup := codec.Duplicate(src)
	if err := s.store.Put(ctx, dup); err != nil {
		return core.Document{}, err
	}
	s.logger.Debug("setlist duplicated", "id", id, "copy", dup.ID)
	return dup, nil
}

// Export renders the setlist as a versioned envelope.
func (s *Service) Export(ctx context.Context, id string, format codec.Format) ([]byte, error) {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return codec.Marshal(codec.Export(doc), format)
}

// Import sanitizes raw and stores the result as a new setlist.
func (s *Service) Import(ctx context.Context, raw []byte, format codec.Format) (core.Document, error) {
	env, err := codec.ImportFormat(raw, format)
	if err != nil {
		return core.Document{}, err
	}
	if err := s.store.Put(ctx, env.Setlist); err != nil {
		return core.Document{}, err
	}
	s.logger.Debug("setlist imported", "id", env.Setlist.ID, "items", len(env.Setlist.Items))
	return env.Setlist, nil
}

// --- Items ---

// AddItem appends item to the setlist.
func (s *Service) AddItem(ctx context.Context, id string, item core.Item) (core.Document, error) {
	return s.mutate(ctx, id, func(items []core.Item) ([]core.Item, error) {
		if item.Kind() == core.KindEncore && sequence.HasEncoreBoundary(items) {
			return nil, ErrEncoreExists
		}
		return sequence.Append(items, item), nil
	})
}

// InsertItem inserts item right after position index. An index outside the
// list returns ErrPosition and nothing is written.
func (s *Service) InsertItem(ctx context.Context, id string, index int, item core.Item) (core.Document, error) {
	return s.mutate(ctx, id, func(items []core.Item) ([]core.Item, error) {
		if item.Kind() == core.KindEncore && sequence.HasEncoreBoundary(items) {
			return nil, ErrEncoreExists
		}
		if index < 0 || index >= len(items) {
			return nil, fmt.Errorf("insert after %d of %d items: %w", index+1, len(items), ErrPosition)
		}
		return sequence.InsertAfter(items, index, item), nil
	})
}

// MoveItem moves the item at from to position to. Both must be inside the
// list (ErrPosition).
func (s *Service) MoveItem(ctx context.Context, id string, from, to int) (core.Document, error) {
	return s.mutate(ctx, id, func(items []core.Item) ([]core.Item, error) {
		if from < 0 || from >= len(items) || to < 0 || to >= len(items) {
			return nil, fmt.Errorf("move %d to %d of %d items: %w", from+1, to+1, len(items), ErrPosition)
		}
		return sequence.MoveTo(items, from, to), nil
	})
}

// RemoveItem deletes the item with itemID.
func (s *Service) RemoveItem(ctx context.Context, id, itemID string) (core.Document, error) {
	return s.mutate(ctx, id, func(items []core.Item) ([]core.Item, error) {
		if sequence.IndexOf(items, itemID) < 0 {
			return nil, ErrItemNotFound
		}
		return sequence.RemoveByID(items, itemID), nil
	})
}

// UseLibraryEntry copies the entry's title and artist into a song.
func (s *Service) UseLibraryEntry(ctx context.Context, id, itemID, entryID string) (core.Document, error) {
	entry, err := s.store.GetEntry(ctx, entryID)
	if err != nil {
		return core.Document{}, err
	}
	return s.mutate(ctx, id, func(items []core.Item) ([]core.Item, error) {
		i := sequence.IndexOf(items, itemID)
		if i < 0 || items[i].Kind() != core.KindSong {
			return nil, ErrItemNotFound
		}
		return sequence.ApplyLibraryEntry(items, itemID, entry), nil
	})
}

func (s *Service) mutate(ctx context.Context, id string, fn func([]core.Item) ([]core.Item, error)) (core.Document, error) {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return core.Document{}, err
	}
	items, err := fn(doc.Items)
	if err != nil {
		return core.Document{}, err
	}
	patch := core.DocumentPatch{Items: &items, UpdatedAt: s.now()}
	if err := s.store.Patch(ctx, id, patch); err != nil {
		return core.Document{}, err
	}
	patch.Apply(&doc, s.now())
	return doc, nil
}

// --- Editing ---

// Edit loads the setlist into a new autosave controller. The caller owns
// the controller and must Close it.
func (s *Service) Edit(ctx context.Context, id string) (*autosave.Controller, error) {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	opts := append([]autosave.Option{
		autosave.WithLogger(s.logger),
		autosave.WithClock(s.now),
	}, s.autosave...)
	ctrl := autosave.New(s.store, opts...)
	if err := ctrl.Load(doc); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.editors = append(s.pruneLocked(), ctrl)
	s.mu.Unlock()
	return ctrl, nil
}

// Watch observes changes in the store if supported.
func (s *Service) Watch(ctx context.Context, pattern string) (<-chan core.Event, error) {
	w, ok := s.store.(core.Watchable)
	if !ok {
		return nil, ErrWatchUnsupported
	}
	return w.Watch(ctx, pattern)
}

// Follow keeps ctrl in step with changes made to its setlist elsewhere.
// Modifications are adopted only while the buffer is clean; a deleted
// setlist is logged and otherwise left to the caller. Follow returns once
// the watch is established and stops when ctx is done.
func (s *Service) Follow(ctx context.Context, ctrl *autosave.Controller) error {
	id := ctrl.Snapshot().ID
	if id == "" {
		return autosave.ErrNotLoaded
	}
	events, err := s.Watch(ctx, "")
	if err != nil {
		return err
	}

	lifecycle.Go(ctx, func(ctx context.Context) error {
		for e := range events {
			if e.ID != id {
				continue
			}
			switch e.Type {
			case core.EventDelete:
				s.logger.Warn("setlist deleted while editing", "id", id)
			case core.EventCreate, core.EventModify:
				doc, err := s.store.Get(ctx, id)
				if err != nil {
					s.logger.Error("reload failed", "id", id, "error", err)
					continue
				}
				if ctrl.Refresh(doc) {
					s.logger.Info("setlist reloaded", "id", id)
				}
			}
		}
		return nil
	}, lifecycle.WithErrorHandler(func(err error) {
		s.logger.Error("follow failed", "id", id, "error", err)
	}))
	return nil
}

// --- Library ---

// AddLibraryEntry stores a new library entry.
func (s *Service) AddLibraryEntry(ctx context.Context, title, artist, comment, url string) (core.LibraryEntry, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return core.LibraryEntry{}, ErrEmptyTitle
	}
	now := s.now()
	e := core.LibraryEntry{
		ID:        core.NewID(),
		Title:     title,
		Artist:    strings.TrimSpace(artist),
		Comment:   strings.TrimSpace(comment),
		URL:       strings.TrimSpace(url),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.PutEntry(ctx, e); err != nil {
		return core.LibraryEntry{}, err
	}
	return e, nil
}

// UpdateLibraryEntry replaces the editable fields of an existing entry.
func (s *Service) UpdateLibraryEntry(ctx context.Context, e core.LibraryEntry) (core.LibraryEntry, error) {
	if strings.TrimSpace(e.Title) == "" {
		return core.LibraryEntry{}, ErrEmptyTitle
	}
	current, err := s.store.GetEntry(ctx, e.ID)
	if err != nil {
		return core.LibraryEntry{}, err
	}
	current.Title = strings.TrimSpace(e.Title)
	current.Artist = strings.TrimSpace(e.Artist)
	current.Comment = strings.TrimSpace(e.Comment)
	current.URL = strings.TrimSpace(e.URL)
	current.UpdatedAt = s.now()
	if err := s.store.PutEntry(ctx, current); err != nil {
		return core.LibraryEntry{}, err
	}
	return current, nil
}

// DeleteLibraryEntries removes entries. Unknown ids are ignored.
func (s *Service) DeleteLibraryEntries(ctx context.Context, ids ...string) error {
	return s.store.DeleteEntries(ctx, ids...)
}

// ListLibrary returns all entries, most recently updated first.
func (s *Service) ListLibrary(ctx context.Context) ([]core.LibraryEntry, error) {
	return s.store.ListEntries(ctx)
}

// SearchLibrary filters the library by a case-insensitive substring of
// "title artist".
func (s *Service) SearchLibrary(ctx context.Context, query string) ([]core.LibraryEntry, error) {
	entries, err := s.store.ListEntries(ctx)
	if err != nil {
		return nil, err
	}
	return library.Filter(entries, query), nil
}

// ImportLibraryCSV adds the rows of a CSV file that are not already in the
// library. It returns the created entries, or library.ErrNothingToImport.
func (s *Service) ImportLibraryCSV(ctx context.Context, r io.Reader) ([]core.LibraryEntry, error) {
	rows, err := library.ParseCSV(r)
	if err != nil {
		return nil, err
	}
	existing, err := s.store.ListEntries(ctx)
	if err != nil {
		return nil, err
	}
	planned := library.Plan(existing, rows, s.now())
	if len(planned) == 0 {
		return nil, library.ErrNothingToImport
	}
	if err := s.store.PutEntries(ctx, planned); err != nil {
		return nil, fmt.Errorf("import library: %w", err)
	}
	s.logger.Debug("library imported", "rows", len(rows), "added", len(planned))
	return planned, nil
}

// ExportLibraryCSV writes the whole library as CSV.
func (s *Service) ExportLibraryCSV(ctx context.Context, w io.Writer) error {
	entries, err := s.store.ListEntries(ctx)
	if err != nil {
		return err
	}
	return library.WriteCSV(w, entries)
}

// --- Introspection ---

// ServiceState exposes internal state for observability.
type ServiceState struct {
	Store   any   `json:"store,omitempty"`
	Editors []any `json:"editors,omitempty"`
}

// State implements introspection.Introspectable.
func (s *Service) State() any {
	st := ServiceState{}
	if in, ok := s.store.(introspection.Introspectable); ok {
		st.Store = in.State()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.pruneLocked() {
		st.Editors = append(st.Editors, c.State())
	}
	return st
}

// pruneLocked drops closed controllers from the editor list.
func (s *Service) pruneLocked() []*autosave.Controller {
	live := s.editors[:0]
	for _, c := range s.editors {
		if !c.Closed() {
			live = append(live, c)
		}
	}
	clear(s.editors[len(live):])
	s.editors = live
	return live
}

// ComponentType implements introspection.Component.
func (s *Service) ComponentType() string {
	return "service"
}

var _ introspection.Introspectable = (*Service)(nil)
var _ introspection.Component = (*Service)(nil)
