package setlist

import (
	"log/slog"
	"time"

	"github.com/aretw0/setlist/internal/platform"
	"github.com/aretw0/setlist/pkg/core"
	"github.com/aretw0/setlist/pkg/setlist"
)

// --- Types ---

// Service is the use-case layer returned by New.
type Service = setlist.Service

// ServiceState is the introspection snapshot returned by Service.State.
type ServiceState = setlist.ServiceState

// Document is one setlist.
type Document = core.Document

// Item is one line of a setlist.
type Item = core.Item

// --- Configuration ---

// Option defines a functional option for configuring the engine.
type Option = platform.Option

// Adapter names.
const (
	AdapterFS     = platform.AdapterFS
	AdapterSQLite = platform.AdapterSQLite
	AdapterMemory = platform.AdapterMemory
)

// WithLogger sets the logger for the service.
func WithLogger(logger *slog.Logger) Option {
	return platform.WithLogger(logger)
}

// WithRepository allows injecting a custom storage adapter.
func WithRepository(repo core.Store) Option {
	return platform.WithRepository(repo)
}

// WithAdapter selects the storage adapter by name.
func WithAdapter(name string) Option {
	return platform.WithAdapter(name)
}

// WithSystemDir sets the hidden directory name (e.g. ".setlist").
func WithSystemDir(name string) Option {
	return platform.WithSystemDir(name)
}

// WithAutosaveInterval sets the quiet period before edits are committed.
func WithAutosaveInterval(d time.Duration) Option {
	return platform.WithAutosaveInterval(d)
}

// WithMustExist requires the store directory to exist already.
func WithMustExist(must bool) Option {
	return platform.WithMustExist(must)
}

// WithReadOnly opens the store without writing to it.
func WithReadOnly(enabled bool) Option {
	return platform.WithReadOnly(enabled)
}

// WithEventBuffer sets the capacity of watch channels.
func WithEventBuffer(size int) Option {
	return platform.WithEventBuffer(size)
}

// WithWatcherErrorHandler receives runtime watcher failures.
func WithWatcherErrorHandler(fn func(error)) Option {
	return platform.WithWatcherErrorHandler(fn)
}

// WithConfigFile reads settings from an explicit YAML or TOML file.
func WithConfigFile(path string) Option {
	return platform.WithConfigFile(path)
}

// --- Factory ---

// New opens (creating if needed) the store at path and returns a Service.
func New(path string, opts ...Option) (*Service, error) {
	return platform.New(path, opts...)
}

// Init only prepares the store at path.
func Init(path string, opts ...Option) (core.Store, error) {
	return platform.Init(path, opts...)
}

// FindRoot looks upwards from dir for an existing store.
func FindRoot(dir string) (string, error) {
	return platform.FindRoot(dir)
}
