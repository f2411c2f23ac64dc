// Package memory provides an in-process core.Store. Nothing survives the
// process; it backs tests and throwaway sessions.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/aretw0/introspection"

	"github.com/aretw0/setlist/pkg/core"
)

// Repository is a map-backed core.Store that also implements
// core.Watchable for changes made through it.
type Repository struct {
	mu       sync.RWMutex
	docs     map[string]core.Document
	entries  map[string]core.LibraryEntry
	watchers []chan core.Event
	buffer   int
}

// New creates an empty repository. buffer sizes the channels returned by
// Watch; events are dropped when a watcher falls that far behind.
func New(buffer int) *Repository {
	if buffer <= 0 {
		buffer = 16
	}
	return &Repository{
		docs:    make(map[string]core.Document),
		entries: make(map[string]core.LibraryEntry),
		buffer:  buffer,
	}
}

func (r *Repository) Initialize(ctx context.Context) error { return nil }

func (r *Repository) Get(ctx context.Context, id string) (core.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.docs[id]
	if !ok {
		return core.Document{}, core.ErrNotFound
	}
	return clone(doc), nil
}

func (r *Repository) List(ctx context.Context) ([]core.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	docs := make([]core.Document, 0, len(r.docs))
	for _, d := range r.docs {
		docs = append(docs, clone(d))
	}
	sort.Slice(docs, func(i, j int) bool {
		if docs[i].UpdatedAt.Equal(docs[j].UpdatedAt) {
			return docs[i].ID < docs[j].ID
		}
		return docs[i].UpdatedAt.After(docs[j].UpdatedAt)
	})
	return docs, nil
}

func (r *Repository) Put(ctx context.Context, doc core.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, existed := r.docs[doc.ID]
	r.docs[doc.ID] = clone(doc)
	if existed {
		r.emitLocked(core.EventModify, doc.ID)
	} else {
		r.emitLocked(core.EventCreate, doc.ID)
	}
	return nil
}

func (r *Repository) Patch(ctx context.Context, id string, patch core.DocumentPatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok {
		return core.ErrNotFound
	}
	patch.Apply(&doc, time.Now().UTC())
	r.docs[id] = clone(doc)
	r.emitLocked(core.EventModify, id)
	return nil
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.docs[id]; !ok {
		return core.ErrNotFound
	}
	delete(r.docs, id)
	r.emitLocked(core.EventDelete, id)
	return nil
}

func (r *Repository) GetEntry(ctx context.Context, id string) (core.LibraryEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	if !ok {
		return core.LibraryEntry{}, core.ErrNotFound
	}
	return e, nil
}

func (r *Repository) ListEntries(ctx context.Context) ([]core.LibraryEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]core.LibraryEntry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

func (r *Repository) PutEntry(ctx context.Context, e core.LibraryEntry) error {
	return r.PutEntries(ctx, []core.LibraryEntry{e})
}

func (r *Repository) PutEntries(ctx context.Context, entries []core.LibraryEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range entries {
		r.entries[e.ID] = e
	}
	return nil
}

func (r *Repository) DeleteEntries(ctx context.Context, ids ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		delete(r.entries, id)
	}
	return nil
}

// Watch reports changes made through this repository. The pattern is
// ignored. The channel is closed when ctx is cancelled.
func (r *Repository) Watch(ctx context.Context, pattern string) (<-chan core.Event, error) {
	ch := make(chan core.Event, r.buffer)
	r.mu.Lock()
	r.watchers = append(r.watchers, ch)
	r.mu.Unlock()

	go func() {
		<-ctx.Done()
		r.mu.Lock()
		defer r.mu.Unlock()
		for i, w := range r.watchers {
			if w == ch {
				r.watchers = append(r.watchers[:i], r.watchers[i+1:]...)
				break
			}
		}
		close(ch)
	}()
	return ch, nil
}

func (r *Repository) emitLocked(t core.EventType, id string) {
	e := core.Event{Type: t, ID: id, Timestamp: time.Now().UTC().Unix()}
	for _, w := range r.watchers {
		select {
		case w <- e:
		default:
		}
	}
}

func clone(doc core.Document) core.Document {
	doc.Items = append(core.Items{}, doc.Items...)
	return doc
}

// RepositoryState exposes internal state for observability.
type RepositoryState struct {
	Setlists int `json:"setlists"`
	Entries  int `json:"entries"`
	Watchers int `json:"watchers"`
}

// State implements introspection.Introspectable.
func (r *Repository) State() any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return RepositoryState{
		Setlists: len(r.docs),
		Entries:  len(r.entries),
		Watchers: len(r.watchers),
	}
}

// ComponentType implements introspection.Component.
func (r *Repository) ComponentType() string {
	return "repository"
}

var (
	_ core.Store                   = (*Repository)(nil)
	_ core.Watchable               = (*Repository)(nil)
	_ introspection.Introspectable = (*Repository)(nil)
	_ introspection.Component      = (*Repository)(nil)
)
