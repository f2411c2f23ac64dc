package fs

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/lifecycle"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/aretw0/setlist/pkg/core"
)

const (
	// DefaultWatchPattern matches every setlist file.
	DefaultWatchPattern = SetlistDir + "/*" + fileExt
	// DefaultEventBuffer is the capacity of the channel returned by Watch.
	DefaultEventBuffer = 16

	debounceWindow = 50 * time.Millisecond
)

// Watch reports changes to setlist files whose path relative to the store
// root matches pattern (doublestar syntax; empty means all setlists).
// Bursts of filesystem events for the same setlist are coalesced. The
// returned channel is closed once ctx is cancelled.
func (r *Repository) Watch(ctx context.Context, pattern string) (<-chan core.Event, error) {
	if pattern == "" {
		pattern = DefaultWatchPattern
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid watch pattern %q", pattern)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Join(r.Path, SetlistDir)); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", SetlistDir, err)
	}

	known, err := r.listIDs(SetlistDir)
	if err != nil {
		_ = watcher.Close()
		return nil, err
	}

	size := r.config.EventBuffer
	if size <= 0 {
		size = DefaultEventBuffer
	}
	events := make(chan core.Event, size)

	w := &watchWorker{
		repo:      r,
		pattern:   pattern,
		events:    events,
		watcher:   watcher,
		debouncer: newDebouncer(debounceWindow),
		known:     make(map[string]bool, len(known)),
	}
	for _, id := range known {
		w.known[id] = true
	}

	r.setWatcherActive(true)
	lifecycle.Go(ctx, w.run, lifecycle.WithErrorHandler(func(err error) {
		r.reportError(fmt.Errorf("watcher: %w", err))
	}))
	return events, nil
}

type watchWorker struct {
	repo      *Repository
	pattern   string
	events    chan core.Event
	watcher   *fsnotify.Watcher
	debouncer *debouncer
	// known tracks ids present on disk, so an atomic rename onto an
	// existing file is reported as MODIFY rather than CREATE.
	known map[string]bool
}

func (w *watchWorker) run(ctx context.Context) (err error) {
	logger := w.repo.config.Logger
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("watcher panic: %v", recovered)
			if logger.Enabled(ctx, slog.LevelDebug) {
				logger.Error("watcher panic", "error", err, "stack", string(debug.Stack()))
			} else {
				logger.Error("watcher panic", "error", err)
			}
		}
	}()
	defer w.repo.setWatcherActive(false)
	defer close(w.events)
	defer w.watcher.Close()

	err = w.loop(ctx)

	// In-flight timers must finish before the events channel is closed.
	w.debouncer.stopAndWait(5 * time.Second)
	return err
}

func (w *watchWorker) loop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("watcher events channel closed")
			}
			w.process(ctx, event)

		case wErr, ok := <-w.watcher.Errors:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("watcher errors channel closed")
			}
			w.repo.config.Logger.Error("fsnotify error", "error", wErr)
			w.repo.reportError(wErr)
		}
	}
}

// process filters, maps and debounces one filesystem event.
func (w *watchWorker) process(ctx context.Context, event fsnotify.Event) bool {
	w.repo.config.Logger.Debug("event received", "path", event.Name)

	name := filepath.Base(event.Name)
	if filepath.Ext(name) != fileExt || strings.HasPrefix(name, TempFilePrefix) {
		return false
	}
	rel := SetlistDir + "/" + name
	if ok, _ := doublestar.Match(w.pattern, rel); !ok {
		return false
	}

	id := strings.TrimSuffix(name, fileExt)
	eType := w.mapEventType(event, id)
	if eType == "" {
		return false
	}

	w.debouncer.add(core.Event{
		Type:      eType,
		ID:        id,
		Timestamp: time.Now().Unix(),
	}, func(e core.Event) {
		defer func() {
			// The events channel may already be closed during shutdown.
			_ = recover()
		}()
		select {
		case w.events <- e:
			w.repo.recordEvent()
		case <-ctx.Done():
		}
	})
	return true
}

func (w *watchWorker) mapEventType(event fsnotify.Event, id string) core.EventType {
	switch {
	case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
		if w.known[id] {
			return core.EventModify
		}
		w.known[id] = true
		return core.EventCreate
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		if _, err := os.Stat(event.Name); err == nil {
			return ""
		}
		delete(w.known, id)
		return core.EventDelete
	}
	return ""
}

// debouncer coalesces events per setlist id and emits the last one after
// the window has passed without a newer event for the same id.
type debouncer struct {
	window time.Duration

	mu      sync.Mutex
	wg      sync.WaitGroup
	seq     uint64
	stopped bool
	pending map[string]*pendingEvent
}

type pendingEvent struct {
	seq   uint64
	event core.Event
	timer *time.Timer
}

func newDebouncer(window time.Duration) *debouncer {
	return &debouncer{
		window:  window,
		pending: make(map[string]*pendingEvent),
	}
}

func (d *debouncer) add(e core.Event, emit func(core.Event)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}

	if prev, ok := d.pending[e.ID]; ok {
		// A file created and then written inside one window is still new.
		if prev.event.Type == core.EventCreate && e.Type == core.EventModify {
			e.Type = core.EventCreate
		}
		if prev.timer.Stop() {
			d.wg.Done()
		}
	}

	d.seq++
	p := &pendingEvent{seq: d.seq, event: e}
	d.wg.Add(1)
	p.timer = time.AfterFunc(d.window, func() {
		defer d.wg.Done()
		d.mu.Lock()
		cur, ok := d.pending[e.ID]
		if !ok || cur.seq != p.seq || d.stopped {
			d.mu.Unlock()
			return
		}
		delete(d.pending, e.ID)
		ev := cur.event
		d.mu.Unlock()
		emit(ev)
	})
	d.pending[e.ID] = p
}

// stopAndWait drops pending events and waits up to timeout for timers that
// are already running.
func (d *debouncer) stopAndWait(timeout time.Duration) {
	d.mu.Lock()
	d.stopped = true
	for id, p := range d.pending {
		if p.timer.Stop() {
			d.wg.Done()
		}
		delete(d.pending, id)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
	}
}
