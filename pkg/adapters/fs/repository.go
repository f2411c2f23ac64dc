package fs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/aretw0/setlist/pkg/core"
)

const (
	// SetlistDir holds one JSON file per setlist.
	SetlistDir = "setlists"
	// LibraryDir holds one JSON file per library entry.
	LibraryDir = "library"
	// DefaultSystemDir holds the lock file and other bookkeeping.
	DefaultSystemDir = ".setlist"

	fileExt = ".json"
)

// Repository implements core.Store on top of a directory of JSON files.
//
// Layout:
//
//	<Path>/setlists/<id>.json
//	<Path>/library/<id>.json
//	<Path>/<SystemDir>/lock
type Repository struct {
	Path   string
	config Config

	lock *flock.Flock
	// writeMu serializes writers inside this process; the file lock only
	// excludes other processes.
	writeMu sync.Mutex

	mu            sync.RWMutex
	watcherActive bool
	lastEvent     *time.Time
	writes        int
}

// Config holds the configuration for the filesystem repository.
type Config struct {
	Path         string
	MustExist    bool
	ReadOnly     bool
	SystemDir    string // e.g. ".setlist"
	Logger       *slog.Logger
	ErrorHandler func(error)
	// LockTimeout bounds how long a writer waits for the file lock before
	// failing with core.ErrLocked. Zero means DefaultLockTimeout.
	LockTimeout time.Duration
	// EventBuffer is the capacity of channels returned by Watch.
	EventBuffer int
}

// DefaultLockTimeout is used when Config.LockTimeout is zero.
const DefaultLockTimeout = 2 * time.Second

// NewRepository creates a new filesystem-backed repository.
func NewRepository(config Config) *Repository {
	if config.SystemDir == "" {
		config.SystemDir = DefaultSystemDir
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.DiscardHandler)
	}
	if config.LockTimeout <= 0 {
		config.LockTimeout = DefaultLockTimeout
	}
	return &Repository{
		Path:   config.Path,
		config: config,
		lock:   flock.New(filepath.Join(config.Path, config.SystemDir, "lock")),
	}
}

// Initialize creates the directory layout.
func (r *Repository) Initialize(ctx context.Context) error {
	if r.config.MustExist {
		info, err := os.Stat(r.Path)
		if os.IsNotExist(err) {
			return fmt.Errorf("store path does not exist: %s", r.Path)
		}
		if err != nil {
			return fmt.Errorf("failed to stat store path: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("store path is not a directory: %s", r.Path)
		}
	}
	if r.config.ReadOnly {
		return nil
	}

	for _, dir := range []string{"", SetlistDir, LibraryDir, r.config.SystemDir} {
		if err := os.MkdirAll(filepath.Join(r.Path, dir), 0755); err != nil {
			return fmt.Errorf("failed to create store directory: %w", err)
		}
	}
	return nil
}

// Close releases the file lock if this process still holds it.
func (r *Repository) Close() error {
	return r.lock.Close()
}

// --- Setlists ---

// Get retrieves a setlist by its ID.
func (r *Repository) Get(ctx context.Context, id string) (core.Document, error) {
	if validID(id) != nil {
		return core.Document{}, core.ErrNotFound
	}
	var doc core.Document
	if err := r.readJSON(r.setlistPath(id), &doc); err != nil {
		return core.Document{}, core.Storage("get", id, err)
	}
	doc.ID = id
	if doc.Items == nil {
		doc.Items = core.Items{}
	}
	return doc, nil
}

// List returns all setlists, newest first.
func (r *Repository) List(ctx context.Context) ([]core.Document, error) {
	ids, err := r.listIDs(SetlistDir)
	if err != nil {
		return nil, core.Storage("list", "", err)
	}

	docs := make([]core.Document, 0, len(ids))
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		doc, err := r.Get(ctx, id)
		if errors.Is(err, core.ErrNotFound) {
			// Removed between the directory scan and the read.
			continue
		}
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}

	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].UpdatedAt.After(docs[j].UpdatedAt)
	})
	return docs, nil
}

// Put writes the whole setlist, creating or replacing it.
func (r *Repository) Put(ctx context.Context, doc core.Document) error {
	if doc.ID == "" {
		return core.Storage("put", "", errors.New("document has no id"))
	}
	if err := validID(doc.ID); err != nil {
		return core.Storage("put", doc.ID, err)
	}
	if doc.Items == nil {
		doc.Items = core.Items{}
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return core.Storage("put", doc.ID, err)
	}
	return core.Storage("put", doc.ID, r.withWriteLock(ctx, func() error {
		return writeFileAtomic(r.setlistPath(doc.ID), append(data, '\n'), 0644)
	}))
}

// Delete removes a setlist.
func (r *Repository) Delete(ctx context.Context, id string) error {
	if validID(id) != nil {
		return core.ErrNotFound
	}
	return core.Storage("delete", id, r.withWriteLock(ctx, func() error {
		err := os.Remove(r.setlistPath(id))
		if os.IsNotExist(err) {
			return core.ErrNotFound
		}
		return err
	}))
}

// --- Library ---

// GetEntry retrieves a library entry by its ID.
func (r *Repository) GetEntry(ctx context.Context, id string) (core.LibraryEntry, error) {
	if validID(id) != nil {
		return core.LibraryEntry{}, core.ErrNotFound
	}
	var e core.LibraryEntry
	if err := r.readJSON(r.entryPath(id), &e); err != nil {
		return core.LibraryEntry{}, core.Storage("get entry", id, err)
	}
	e.ID = id
	return e, nil
}

// ListEntries returns all library entries, newest first.
func (r *Repository) ListEntries(ctx context.Context) ([]core.LibraryEntry, error) {
	ids, err := r.listIDs(LibraryDir)
	if err != nil {
		return nil, core.Storage("list entries", "", err)
	}

	entries := make([]core.LibraryEntry, 0, len(ids))
	for _, id := range ids {
		e, err := r.GetEntry(ctx, id)
		if errors.Is(err, core.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].UpdatedAt.After(entries[j].UpdatedAt)
	})
	return entries, nil
}

// PutEntry creates or replaces a library entry.
func (r *Repository) PutEntry(ctx context.Context, e core.LibraryEntry) error {
	return r.PutEntries(ctx, []core.LibraryEntry{e})
}

// PutEntries writes a batch of entries under a single lock acquisition.
func (r *Repository) PutEntries(ctx context.Context, entries []core.LibraryEntry) error {
	payloads := make(map[string][]byte, len(entries))
	for _, e := range entries {
		if err := validID(e.ID); err != nil {
			return core.Storage("put entry", e.ID, err)
		}
		data, err := json.MarshalIndent(e, "", "  ")
		if err != nil {
			return core.Storage("put entry", e.ID, err)
		}
		payloads[e.ID] = append(data, '\n')
	}

	return core.Storage("put entries", "", r.withWriteLock(ctx, func() error {
		for _, e := range entries {
			if err := writeFileAtomic(r.entryPath(e.ID), payloads[e.ID], 0644); err != nil {
				return fmt.Errorf("entry %s: %w", e.ID, err)
			}
		}
		return nil
	}))
}

// DeleteEntries removes library entries. Missing ids are ignored.
func (r *Repository) DeleteEntries(ctx context.Context, ids ...string) error {
	return core.Storage("delete entries", "", r.withWriteLock(ctx, func() error {
		for _, id := range ids {
			if validID(id) != nil {
				continue
			}
			if err := os.Remove(r.entryPath(id)); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("entry %s: %w", id, err)
			}
		}
		return nil
	}))
}

// --- helpers ---

func (r *Repository) setlistPath(id string) string {
	return filepath.Join(r.Path, SetlistDir, id+fileExt)
}

func (r *Repository) entryPath(id string) string {
	return filepath.Join(r.Path, LibraryDir, id+fileExt)
}

func (r *Repository) readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return core.ErrNotFound
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	return nil
}

func (r *Repository) listIDs(dir string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(r.Path, dir))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || filepath.Ext(name) != fileExt || strings.HasPrefix(name, TempFilePrefix) {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, fileExt))
	}
	return ids, nil
}

// validID rejects ids that would escape the store directory. Lookups and
// deletes treat such ids as not found.
func validID(id string) error {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
		return fmt.Errorf("invalid id %q", id)
	}
	return nil
}

func (r *Repository) recordWrite() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writes++
}
