// Package autosave keeps an in-memory edit buffer of one setlist in step
// with durable storage.
//
// Edits are cheap and frequent; writes are not. The Controller compares a
// key computed over the whole editable state with the key of the last
// successful commit and, when they differ, commits once the buffer has been
// quiet for the configured interval. Writes are serialized so at most one
// is in flight, and a write that finishes after the buffer was reloaded
// never touches the new session.
package autosave

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/introspection"

	"github.com/aretw0/setlist/pkg/core"
)

var (
	ErrNotLoaded = errors.New("autosave: no setlist loaded")
	ErrClosed    = errors.New("autosave: controller closed")
)

// Patcher is the slice of the storage port the controller writes through.
type Patcher interface {
	Patch(ctx context.Context, id string, patch core.DocumentPatch) error
}

// Status is the controller's position in its state machine.
type Status int

const (
	StatusUninitialized Status = iota
	StatusLoaded
	StatusDirty
	StatusCommitting
)

func (s Status) String() string {
	switch s {
	case StatusUninitialized:
		return "uninitialized"
	case StatusLoaded:
		return "loaded"
	case StatusDirty:
		return "dirty"
	case StatusCommitting:
		return "committing"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Snapshot is a copy of the edit buffer.
type Snapshot struct {
	ID    string
	Title string
	Items []core.Item
}

// Commit describes a successful write.
type Commit struct {
	ID        string
	UpdatedAt time.Time
}

// Controller owns the edit buffer of a single setlist.
type Controller struct {
	store Patcher
	opts  *options

	// writeMu serializes commits so at most one write is in flight.
	writeMu sync.Mutex

	mu           sync.Mutex
	loaded       bool
	closed       bool
	id           string
	title        string
	items        []core.Item
	key          string
	committedKey string
	generation   uint64 // bumped on Load and Close
	seq          uint64 // identifies the scheduled commit
	pending      Timer
	inflight     int
	commits      int
	lastCommit   time.Time
	lastErr      error
	// version is the UpdatedAt of the state last loaded or committed.
	version time.Time
}

// New creates a controller writing through store. Nothing is committed
// until Load has been called.
func New(store Patcher, opts ...Option) *Controller {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return &Controller{store: store, opts: o}
}

// Load resets the controller to doc. Any scheduled commit for the previous
// buffer is cancelled and writes still in flight for it are disowned.
func (c *Controller) Load(doc core.Document) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	c.loadLocked(doc)
	return nil
}

func (c *Controller) loadLocked(doc core.Document) {
	c.cancelLocked()
	c.generation++
	c.loaded = true
	c.id = doc.ID
	c.title = doc.Title
	c.items = append([]core.Item{}, doc.Items...)
	c.key = keyOf(c.title, c.items)
	c.committedKey = c.key
	c.version = doc.UpdatedAt
	c.lastErr = nil
	c.opts.logger.Debug("autosave loaded", "id", doc.ID, "items", len(doc.Items))
}

// Refresh adopts an externally updated version of the loaded setlist, but
// only while the buffer holds no uncommitted edits. It reports whether the
// buffer was replaced. Our own commits come back with the committed key and
// are ignored, and so is any document whose UpdatedAt is not later than the
// last load or commit: it was read before our latest write.
func (c *Controller) Refresh(doc core.Document) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || !c.loaded || doc.ID != c.id {
		return false
	}
	if c.inflight > 0 || c.key != c.committedKey {
		return false
	}
	if !doc.UpdatedAt.After(c.version) {
		return false
	}
	if keyOf(doc.Title, doc.Items) == c.committedKey {
		return false
	}
	c.loadLocked(doc)
	return true
}

// SetTitle replaces the title in the buffer.
func (c *Controller) SetTitle(title string) error {
	return c.Update(func(_ string, items []core.Item) (string, []core.Item) {
		return title, items
	})
}

// SetItems replaces the item list in the buffer.
func (c *Controller) SetItems(items []core.Item) error {
	return c.Update(func(title string, _ []core.Item) (string, []core.Item) {
		return title, items
	})
}

// Apply transforms the item list, typically with a sequence function.
func (c *Controller) Apply(fn func([]core.Item) []core.Item) error {
	return c.Update(func(title string, items []core.Item) (string, []core.Item) {
		return title, fn(items)
	})
}

// Update applies fn to the buffer and re-arms the debounce timer when the
// result differs from the last committed state.
func (c *Controller) Update(fn func(title string, items []core.Item) (string, []core.Item)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if !c.loaded {
		return ErrNotLoaded
	}

	title, items := fn(c.title, append([]core.Item{}, c.items...))
	c.title = title
	c.items = append([]core.Item{}, items...)
	c.key = keyOf(c.title, c.items)

	c.cancelLocked()
	if c.key != c.committedKey {
		c.scheduleLocked()
	}
	return nil
}

// Flush cancels the pending timer and commits immediately if the buffer
// is dirty.
func (c *Controller) Flush(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if !c.loaded {
		c.mu.Unlock()
		return ErrNotLoaded
	}
	c.cancelLocked()
	gen := c.generation
	c.mu.Unlock()

	return c.commit(ctx, gen)
}

// Close cancels any pending commit. Edits after Close are rejected and a
// write already in flight no longer updates the controller.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.cancelLocked()
	c.generation++
	c.closed = true
}

// Closed reports whether Close has been called.
func (c *Controller) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Snapshot returns a copy of the buffer.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		ID:    c.id,
		Title: c.title,
		Items: append([]core.Item{}, c.items...),
	}
}

// Status reports the current state.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.statusLocked()
}

func (c *Controller) statusLocked() Status {
	switch {
	case !c.loaded:
		return StatusUninitialized
	case c.inflight > 0:
		return StatusCommitting
	case c.key != c.committedKey:
		return StatusDirty
	}
	return StatusLoaded
}

// Dirty reports whether the buffer holds uncommitted edits.
func (c *Controller) Dirty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loaded && c.key != c.committedKey
}

// LastError returns the error of the most recent failed commit, cleared by
// the next successful one.
func (c *Controller) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

func (c *Controller) cancelLocked() {
	c.seq++
	if c.pending != nil {
		c.pending.Stop()
		c.pending = nil
	}
}

func (c *Controller) scheduleLocked() {
	c.seq++
	gen, seq := c.generation, c.seq
	c.pending = c.opts.schedule(c.opts.interval, func() {
		c.fire(gen, seq)
	})
}

// fire runs on the timer. A timer that lost the race against a newer edit,
// a reload or Close finds a different seq or generation and does nothing.
func (c *Controller) fire(gen, seq uint64) {
	c.mu.Lock()
	if c.closed || gen != c.generation || seq != c.seq {
		c.mu.Unlock()
		return
	}
	c.pending = nil
	c.mu.Unlock()

	if err := c.commit(context.Background(), gen); err != nil && c.opts.onError != nil {
		c.opts.onError(err)
	}
}

func (c *Controller) commit(ctx context.Context, gen uint64) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.mu.Lock()
	if gen != c.generation || c.key == c.committedKey {
		c.mu.Unlock()
		return nil
	}
	id, title, key := c.id, c.title, c.key
	items := append([]core.Item{}, c.items...)
	c.inflight++
	c.mu.Unlock()

	now := c.opts.now()
	err := c.store.Patch(ctx, id, core.DocumentPatch{
		Title:     &title,
		Items:     &items,
		UpdatedAt: now,
	})

	c.mu.Lock()
	c.inflight--
	if gen != c.generation {
		c.mu.Unlock()
		return err
	}
	if err != nil {
		c.lastErr = err
		c.mu.Unlock()
		c.opts.logger.Error("autosave commit failed", "id", id, "error", err)
		return err
	}

	// The committed key is the one observed when the write was issued.
	c.committedKey = key
	c.lastErr = nil
	c.lastCommit = now
	if now.After(c.version) {
		c.version = now
	}
	c.commits++
	// An edit made during the write may have landed back on the previous
	// committed key and therefore scheduled nothing; re-arm so it is not lost.
	if c.key != c.committedKey && c.pending == nil {
		c.scheduleLocked()
	}
	c.mu.Unlock()

	c.opts.logger.Debug("autosave committed", "id", id, "updated_at", now)
	if c.opts.onCommit != nil {
		c.opts.onCommit(Commit{ID: id, UpdatedAt: now})
	}
	return nil
}

// keyOf computes the comparison key over the full editable state.
func keyOf(title string, items []core.Item) string {
	data, err := json.Marshal(struct {
		Title string     `json:"title"`
		Items core.Items `json:"items"`
	}{title, items})
	if err != nil {
		// Unencodable state never equals a committed key.
		return fmt.Sprintf("unencodable:%p:%v", &items, err)
	}
	return string(data)
}

// ControllerState exposes internal state for observability.
type ControllerState struct {
	SetlistID  string     `json:"setlist_id"`
	Status     string     `json:"status"`
	Interval   string     `json:"interval"`
	Commits    int        `json:"commits"`
	LastCommit *time.Time `json:"last_commit,omitempty"`
	LastError  string     `json:"last_error,omitempty"`
	Closed     bool       `json:"closed"`
}

// State implements introspection.Introspectable.
func (c *Controller) State() any {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := ControllerState{
		SetlistID: c.id,
		Status:    c.statusLocked().String(),
		Interval:  c.opts.interval.String(),
		Commits:   c.commits,
		Closed:    c.closed,
	}
	if !c.lastCommit.IsZero() {
		t := c.lastCommit
		s.LastCommit = &t
	}
	if c.lastErr != nil {
		s.LastError = c.lastErr.Error()
	}
	return s
}

// ComponentType implements introspection.Component.
func (c *Controller) ComponentType() string {
	return "autosave"
}

var _ introspection.Introspectable = (*Controller)(nil)
var _ introspection.Component = (*Controller)(nil)

// LogValue lets a controller be passed directly as a slog attribute.
func (c *Controller) LogValue() slog.Value {
	s := c.State().(ControllerState)
	return slog.GroupValue(
		slog.String("id", s.SetlistID),
		slog.String("status", s.Status),
		slog.Int("commits", s.Commits),
	)
}
