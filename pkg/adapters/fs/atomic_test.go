package fs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofrs/flock"

	"github.com/aretw0/setlist/pkg/core"
)

func TestWriteFileAtomic(t *testing.T) {
	t.Run("Overwrites Existing File", func(t *testing.T) {
		filename := filepath.Join(t.TempDir(), "set.json")
		if err := os.WriteFile(filename, []byte("initial"), 0644); err != nil {
			t.Fatalf("Setup failed: %v", err)
		}

		if err := writeFileAtomic(filename, []byte("overwritten"), 0644); err != nil {
			t.Fatalf("writeFileAtomic failed: %v", err)
		}

		got, err := os.ReadFile(filename)
		if err != nil {
			t.Fatalf("Failed to read file: %v", err)
		}
		if string(got) != "overwritten" {
			t.Errorf("Expected content 'overwritten', got '%s'", string(got))
		}
	})

	t.Run("Leaves No Temp Files", func(t *testing.T) {
		dir := t.TempDir()
		if err := writeFileAtomic(filepath.Join(dir, "a.json"), []byte("{}"), 0644); err != nil {
			t.Fatalf("writeFileAtomic failed: %v", err)
		}

		entries, err := os.ReadDir(dir)
		if err != nil {
			t.Fatal(err)
		}
		if len(entries) != 1 || entries[0].Name() != "a.json" {
			t.Errorf("unexpected directory contents: %v", entries)
		}
	})

	t.Run("Fails if Directory Missing", func(t *testing.T) {
		filename := filepath.Join(t.TempDir(), "missing_folder", "set.json")
		if err := writeFileAtomic(filename, []byte("fail"), 0644); err == nil {
			t.Error("Expected error when directory is missing, got nil")
		}
	})
}

func TestWithWriteLock(t *testing.T) {
	newRepo := func(t *testing.T, cfg Config) *Repository {
		t.Helper()
		cfg.Path = t.TempDir()
		repo := NewRepository(cfg)
		if err := repo.Initialize(context.Background()); err != nil {
			t.Fatalf("Initialize failed: %v", err)
		}
		t.Cleanup(func() { _ = repo.Close() })
		return repo
	}

	t.Run("Times Out While Another Process Holds The Lock", func(t *testing.T) {
		repo := newRepo(t, Config{LockTimeout: 50 * time.Millisecond})

		// A separate Flock on the same path behaves like another process.
		other := flock.New(filepath.Join(repo.Path, DefaultSystemDir, "lock"))
		ok, err := other.TryLock()
		if err != nil || !ok {
			t.Fatalf("failed to take lock: ok=%v err=%v", ok, err)
		}
		defer other.Unlock()

		called := false
		err = repo.withWriteLock(context.Background(), func() error {
			called = true
			return nil
		})
		if !errors.Is(err, core.ErrLocked) {
			t.Fatalf("expected ErrLocked, got %v", err)
		}
		if called {
			t.Error("fn ran without the lock")
		}
	})

	t.Run("Rejects Writes When Read Only", func(t *testing.T) {
		repo := newRepo(t, Config{})
		repo.config.ReadOnly = true

		err := repo.withWriteLock(context.Background(), func() error { return nil })
		if !errors.Is(err, core.ErrReadOnly) {
			t.Fatalf("expected ErrReadOnly, got %v", err)
		}
	})

	t.Run("Releases The Lock Afterwards", func(t *testing.T) {
		repo := newRepo(t, Config{})
		if err := repo.withWriteLock(context.Background(), func() error { return nil }); err != nil {
			t.Fatalf("withWriteLock failed: %v", err)
		}

		other := flock.New(filepath.Join(repo.Path, DefaultSystemDir, "lock"))
		ok, err := other.TryLock()
		if err != nil || !ok {
			t.Fatalf("lock still held: ok=%v err=%v", ok, err)
		}
		_ = other.Unlock()
	})
}
