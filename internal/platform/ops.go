package platform

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/aretw0/setlist/pkg/adapters/fs"
	"github.com/aretw0/setlist/pkg/adapters/memory"
	"github.com/aretw0/setlist/pkg/adapters/sqlite"
	"github.com/aretw0/setlist/pkg/core"
)

// Init builds and initializes the store selected by the options. The uri
// is adapter specific: the store directory for "fs", the directory or .db
// file for "sqlite", ignored for "memory".
func Init(uri string, opts ...Option) (core.Store, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return o.init(uri)
}

func (o *options) init(uri string) (core.Store, error) {
	if o.repository != nil {
		return o.repository, nil
	}
	if err := o.applyConfigFile(uri); err != nil {
		return nil, err
	}

	var (
		repo core.Store
		err  error
	)
	switch o.adapter() {
	case AdapterFS:
		repo, err = o.initFS(uri)
	case AdapterSQLite:
		repo, err = o.initSQLite(uri)
	case AdapterMemory:
		buffer, _ := o.config[keyEventBuffer].(int)
		repo = memory.New(buffer)
	default:
		return nil, fmt.Errorf("unknown adapter: %s", o.adapter())
	}
	if err != nil {
		return nil, err
	}

	if err := repo.Initialize(context.Background()); err != nil {
		return nil, err
	}
	o.log().Debug("store ready", "adapter", o.adapter(), "path", uri)
	return repo, nil
}

func (o *options) initFS(path string) (core.Store, error) {
	if path == "" {
		return nil, fmt.Errorf("fs adapter needs a directory")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}

	mustExist, _ := o.config[keyMustExist].(bool)
	readOnly, _ := o.config[keyReadOnly].(bool)
	systemDir, _ := o.config[keySystemDir].(string)
	buffer, _ := o.config[keyEventBuffer].(int)
	onError, _ := o.config[keyErrorHandler].(func(error))

	return fs.NewRepository(fs.Config{
		Path:         abs,
		MustExist:    mustExist,
		ReadOnly:     readOnly,
		SystemDir:    systemDir,
		Logger:       o.log(),
		ErrorHandler: onError,
		EventBuffer:  buffer,
	}), nil
}

func (o *options) initSQLite(uri string) (core.Store, error) {
	if uri == "" {
		return nil, fmt.Errorf("sqlite adapter needs a directory or database file")
	}
	path := uri
	if !strings.HasSuffix(strings.ToLower(uri), ".db") {
		path = filepath.Join(uri, sqlite.DefaultFileName)
	}
	mustExist, _ := o.config[keyMustExist].(bool)

	return sqlite.New(sqlite.Config{
		Path:      path,
		MustExist: mustExist,
		Logger:    o.log(),
	}), nil
}
