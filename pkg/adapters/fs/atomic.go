package fs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aretw0/setlist/pkg/core"
)

const (
	// TempFilePrefix is the prefix used for temporary atomic write files.
	TempFilePrefix = ".setlist-tmp-"

	lockRetryInterval = 10 * time.Millisecond
)

// writeFileAtomic writes data to a file atomically by writing to a temp file
// and then renaming it to the target filename.
func writeFileAtomic(filename string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(filename)

	// Same directory, so the rename stays on one filesystem.
	tmpFile, err := os.CreateTemp(dir, TempFilePrefix+"*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmpFile.Name())

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpFile.Name(), perm); err != nil {
		return fmt.Errorf("failed to chmod temp file: %w", err)
	}
	if err := os.Rename(tmpFile.Name(), filename); err != nil {
		return fmt.Errorf("failed to rename temp file to %s: %w", filename, err)
	}
	return nil
}

// withWriteLock runs fn while holding both the in-process write mutex and
// the advisory file lock. It gives up with core.ErrLocked once the
// configured timeout has passed.
func (r *Repository) withWriteLock(ctx context.Context, fn func() error) error {
	if r.config.ReadOnly {
		return core.ErrReadOnly
	}

	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	deadline := time.Now().Add(r.config.LockTimeout)
	for {
		ok, err := r.lock.TryLock()
		if err != nil {
			return fmt.Errorf("acquire lock: %w", err)
		}
		if ok {
			break
		}
		if time.Now().After(deadline) {
			return core.ErrLocked
		}
		select {
		case <-time.After(lockRetryInterval):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	defer func() {
		if err := r.lock.Unlock(); err != nil {
			r.config.Logger.Warn("failed to release lock", "path", r.lock.Path(), "error", err)
		}
	}()

	if err := fn(); err != nil {
		return err
	}
	r.recordWrite()
	return nil
}
