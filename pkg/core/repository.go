package core

import "context"

// Repository defines the contract for storing and retrieving setlists.
// Adhering to this interface keeps the engine independent of the
// underlying storage mechanism (filesystem, SQLite, memory).
type Repository interface {
	// Get retrieves a setlist by its ID. It returns ErrNotFound when absent.
	Get(ctx context.Context, id string) (Document, error)

	// List returns all setlists ordered by UpdatedAt, newest first.
	List(ctx context.Context) ([]Document, error)

	// Put persists a whole setlist. It creates if not exists, or replaces if it does.
	Put(ctx context.Context, doc Document) error

	// Patch updates selected fields of an existing setlist.
	Patch(ctx context.Context, id string, patch DocumentPatch) error

	// Delete removes a setlist by its ID.
	Delete(ctx context.Context, id string) error

	// Initialize ensures the underlying storage is ready (directories, schema).
	Initialize(ctx context.Context) error
}

// LibraryRepository stores library entries keyed by ID.
type LibraryRepository interface {
	GetEntry(ctx context.Context, id string) (LibraryEntry, error)

	// ListEntries returns all entries ordered by UpdatedAt, newest first.
	ListEntries(ctx context.Context) ([]LibraryEntry, error)

	PutEntry(ctx context.Context, e LibraryEntry) error

	// PutEntries stores a batch of entries.
	PutEntries(ctx context.Context, entries []LibraryEntry) error

	DeleteEntries(ctx context.Context, ids ...string) error
}

// Store is a repository that also holds the song library. All bundled
// adapters implement it.
type Store interface {
	Repository
	LibraryRepository
}

// Watchable is implemented by repositories that can report changes made
// outside the current process.
type Watchable interface {
	// Watch emits events for setlists whose relative path matches pattern.
	Watch(ctx context.Context, pattern string) (<-chan Event, error)
}

// Closer is implemented by repositories holding OS resources.
type Closer interface {
	Close() error
}
