package sqlite_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/setlist/pkg/adapters/sqlite"
	"github.com/aretw0/setlist/pkg/core"
)

func openStore(t *testing.T) (*sqlite.Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data", sqlite.DefaultFileName)
	store := sqlite.New(sqlite.Config{Path: path})
	require.NoError(t, store.Initialize(context.Background()))
	t.Cleanup(func() { _ = store.Close() })
	return store, path
}

func TestStore_Setlists(t *testing.T) {
	ctx := context.Background()
	store, _ := openStore(t)
	now := time.Date(2026, 10, 16, 12, 0, 0, 123, time.UTC)

	doc := core.Document{
		ID:    "abc",
		Title: "Budokan",
		Items: core.Items{
			core.Song{ID: "s1", Title: "Lemon", Artist: "米津玄師"},
			core.EncoreBoundary{ID: "e1", Memo: "change guitar"},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, store.Put(ctx, doc))

	got, err := store.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, doc, got)

	title := "Budokan night 2"
	items := []core.Item{core.Note{ID: "n1", Label: "MC"}}
	later := now.Add(time.Hour)
	require.NoError(t, store.Patch(ctx, "abc", core.DocumentPatch{Title: &title, UpdatedAt: later}))
	got, err = store.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, title, got.Title)
	assert.Len(t, got.Items, 2, "items untouched by a title patch")
	assert.Equal(t, later, got.UpdatedAt)
	assert.Equal(t, now, got.CreatedAt)

	require.NoError(t, store.Patch(ctx, "abc", core.DocumentPatch{Items: &items, UpdatedAt: later}))
	got, err = store.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, core.Items{core.Note{ID: "n1", Label: "MC"}}, got.Items)

	require.NoError(t, store.Put(ctx, core.Document{ID: "old", Title: "Old", UpdatedAt: now.Add(-time.Hour)}))
	docs, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "abc", docs[0].ID)
	assert.NotNil(t, docs[1].Items)

	require.NoError(t, store.Delete(ctx, "old"))
	_, err = store.Get(ctx, "old")
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.ErrorIs(t, store.Delete(ctx, "old"), core.ErrNotFound)
	assert.ErrorIs(t, store.Patch(ctx, "old", core.DocumentPatch{Title: &title}), core.ErrNotFound)
}

func TestStore_Library(t *testing.T) {
	ctx := context.Background()
	store, _ := openStore(t)
	now := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.PutEntries(ctx, []core.LibraryEntry{
		{ID: "1", Title: "Lemon", Artist: "米津玄師", CreatedAt: now, UpdatedAt: now},
		{ID: "2", Title: "Flamingo", Artist: "米津玄師", URL: "https://example.com", CreatedAt: now, UpdatedAt: now.Add(time.Second)},
		{ID: "3", Title: "Uma to Shika", CreatedAt: now, UpdatedAt: now.Add(-time.Second)},
	}))

	entries, err := store.ListEntries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, []string{"2", "1", "3"}, []string{entries[0].ID, entries[1].ID, entries[2].ID})

	e := entries[1]
	e.Comment = "ballad"
	require.NoError(t, store.PutEntry(ctx, e))
	got, err := store.GetEntry(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "ballad", got.Comment)

	require.NoError(t, store.DeleteEntries(ctx, "1", "3", "missing"))
	entries, err = store.ListEntries(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	_, err = store.GetEntry(ctx, "1")
	assert.True(t, errors.Is(err, core.ErrNotFound))
}

func TestStore_ReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	store, path := openStore(t)
	require.NoError(t, store.Put(ctx, core.Document{ID: "keep", Title: "Keep"}))
	require.NoError(t, store.Close())

	again := sqlite.New(sqlite.Config{Path: path, MustExist: true})
	require.NoError(t, again.Initialize(ctx))
	defer again.Close()

	got, err := again.Get(ctx, "keep")
	require.NoError(t, err)
	assert.Equal(t, "Keep", got.Title)
}

func TestStore_NotInitialized(t *testing.T) {
	store := sqlite.New(sqlite.Config{Path: filepath.Join(t.TempDir(), "x.db")})
	_, err := store.Get(context.Background(), "x")
	var se *core.StorageError
	assert.ErrorAs(t, err, &se)

	state := store.State().(sqlite.StoreState)
	assert.False(t, state.Open)
}

func TestStore_ConcurrentPatches(t *testing.T) {
	ctx := context.Background()
	store, _ := openStore(t)
	require.NoError(t, store.Put(ctx, core.Document{ID: "abc", Title: "x"}))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			title := string(rune('a' + i))
			assert.NoError(t, store.Patch(ctx, "abc", core.DocumentPatch{Title: &title}))
		}(i)
	}
	wg.Wait()

	state := store.State().(sqlite.StoreState)
	assert.Equal(t, 11, state.Writes)
}
