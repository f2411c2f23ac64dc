package platform

import (
	"log/slog"
	"time"

	"github.com/aretw0/setlist/pkg/core"
)

// Adapter names accepted by WithAdapter and the config file.
const (
	AdapterFS     = "fs"
	AdapterSQLite = "sqlite"
	AdapterMemory = "memory"
)

// Config keys. File values only fill keys no option has set.
const (
	keyAdapter          = "adapter"
	keySystemDir        = "system_dir"
	keyAutosaveInterval = "autosave_interval"
	keyMustExist        = "must_exist"
	keyReadOnly         = "read_only"
	keyEventBuffer      = "event_buffer"
	keyErrorHandler     = "watcher_error_handler"
)

// options holds the internal configuration for the setlist engine.
type options struct {
	repository core.Store
	logger     *slog.Logger
	configFile string
	config     map[string]interface{}
}

// Option defines a functional option for configuring the engine.
type Option func(*options)

func defaultOptions() *options {
	return &options{
		config: make(map[string]interface{}),
	}
}

func (o *options) adapter() string {
	if name, ok := o.config[keyAdapter].(string); ok && name != "" {
		return name
	}
	return AdapterFS
}

func (o *options) autosaveInterval() time.Duration {
	d, _ := o.config[keyAutosaveInterval].(time.Duration)
	return d
}

func (o *options) log() *slog.Logger {
	if o.logger != nil {
		return o.logger
	}
	return slog.Default()
}

// WithLogger sets the logger for the service, the store and every
// autosave controller.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithRepository injects a custom store. The adapter options are ignored.
func WithRepository(repo core.Store) Option {
	return func(o *options) {
		o.repository = repo
	}
}

// WithAdapter selects the storage adapter by name: "fs" (default),
// "sqlite" or "memory".
func WithAdapter(name string) Option {
	return func(o *options) {
		o.config[keyAdapter] = name
	}
}

// WithSystemDir sets the hidden bookkeeping directory (default ".setlist").
func WithSystemDir(name string) Option {
	return func(o *options) {
		o.config[keySystemDir] = name
	}
}

// WithAutosaveInterval sets the quiet period before an edit is committed.
func WithAutosaveInterval(d time.Duration) Option {
	return func(o *options) {
		o.config[keyAutosaveInterval] = d
	}
}

// WithMustExist requires the store directory to exist already.
func WithMustExist(must bool) Option {
	return func(o *options) {
		o.config[keyMustExist] = must
	}
}

// WithReadOnly opens the store without creating anything; writes fail with
// core.ErrReadOnly. Only the fs adapter honors it.
func WithReadOnly(enabled bool) Option {
	return func(o *options) {
		o.config[keyReadOnly] = enabled
	}
}

// WithEventBuffer sets the capacity of watch channels. Zero means default.
func WithEventBuffer(size int) Option {
	return func(o *options) {
		o.config[keyEventBuffer] = size
	}
}

// WithWatcherErrorHandler receives runtime watcher failures that would
// otherwise only be logged.
func WithWatcherErrorHandler(fn func(error)) Option {
	return func(o *options) {
		o.config[keyErrorHandler] = fn
	}
}

// WithConfigFile reads settings from path instead of looking for
// setlist.yaml, setlist.yml or setlist.toml in the store root.
func WithConfigFile(path string) Option {
	return func(o *options) {
		o.configFile = path
	}
}
