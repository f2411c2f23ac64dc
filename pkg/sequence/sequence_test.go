package sequence_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aretw0/setlist/pkg/core"
	"github.com/aretw0/setlist/pkg/sequence"
)

func ids(items []core.Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ItemID()
	}
	return out
}

func fixture() []core.Item {
	return []core.Item{
		core.Song{ID: "a", Title: "A"},
		core.Song{ID: "b", Title: "B"},
		core.EncoreBoundary{ID: "enc"},
		core.Song{ID: "c", Title: "C"},
	}
}

func TestAppend(t *testing.T) {
	items := fixture()
	out := sequence.Append(items, core.Note{ID: "n"})
	assert.Equal(t, []string{"a", "b", "enc", "c", "n"}, ids(out))
	assert.Len(t, items, 4, "input must not grow")

	assert.Equal(t, []string{"x"}, ids(sequence.Append(nil, core.Song{ID: "x"})))
}

func TestInsertAfter(t *testing.T) {
	items := fixture()

	out := sequence.InsertAfter(items, 0, core.Note{ID: "n"})
	assert.Equal(t, []string{"a", "n", "b", "enc", "c"}, ids(out))

	out = sequence.InsertAfter(items, 3, core.Note{ID: "n"})
	assert.Equal(t, []string{"a", "b", "enc", "c", "n"}, ids(out))

	for _, idx := range []int{-1, 4, 100} {
		out = sequence.InsertAfter(items, idx, core.Note{ID: "n"})
		assert.Equal(t, ids(items), ids(out), "index %d must be a no-op", idx)
	}
	assert.Equal(t, []string{"a", "b", "enc", "c"}, ids(items))
}

func TestMoveTo(t *testing.T) {
	tests := []struct {
		name     string
		from, to int
		want     []string
	}{
		{"down", 0, 2, []string{"b", "enc", "a", "c"}},
		{"up", 3, 0, []string{"c", "a", "b", "enc"}},
		{"same", 1, 1, []string{"a", "b", "enc", "c"}},
		{"to end", 0, 3, []string{"b", "enc", "c", "a"}},
		{"from out of range", 4, 0, []string{"a", "b", "enc", "c"}},
		{"to out of range", 0, -1, []string{"a", "b", "enc", "c"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items := fixture()
			out := sequence.MoveTo(items, tt.from, tt.to)
			assert.Equal(t, tt.want, ids(out))
			assert.Equal(t, []string{"a", "b", "enc", "c"}, ids(items), "input must not change")
		})
	}
}

func TestMoveTo_RestoresOrderWhenTrackedByID(t *testing.T) {
	items := fixture()
	for i := range items {
		for j := range items {
			moved := items[i].ItemID()
			out := sequence.MoveTo(items, i, j)
			back := sequence.MoveTo(out, sequence.IndexOf(out, moved), i)
			assert.Equal(t, ids(items), ids(back), "move %d->%d and back", i, j)
		}
	}
}

func TestRemoveByID(t *testing.T) {
	items := fixture()
	assert.Equal(t, []string{"a", "enc", "c"}, ids(sequence.RemoveByID(items, "b")))
	assert.Equal(t, ids(items), ids(sequence.RemoveByID(items, "missing")))
	assert.Empty(t, sequence.RemoveByID([]core.Item{core.Song{ID: "x"}}, "x"))
}

func TestHasEncoreBoundary(t *testing.T) {
	assert.True(t, sequence.HasEncoreBoundary(fixture()))
	assert.False(t, sequence.HasEncoreBoundary(sequence.RemoveByID(fixture(), "enc")))
	assert.False(t, sequence.HasEncoreBoundary(nil))
}

func TestUpdate(t *testing.T) {
	items := fixture()
	out := sequence.Update(items, "b", func(it core.Item) core.Item {
		s := it.(core.Song)
		s.Title = "B2"
		s.ID = "hijack"
		return s
	})
	assert.Equal(t, core.Song{ID: "b", Title: "B2"}, out[1], "id is preserved")
	assert.Equal(t, core.Song{ID: "b", Title: "B"}, items[1])

	same := sequence.Update(items, "missing", func(it core.Item) core.Item { return it })
	assert.Equal(t, ids(items), ids(same))

	ignored := sequence.Update(items, "a", func(core.Item) core.Item { return nil })
	assert.Equal(t, items[0], ignored[0])
}

func TestApplyLibraryEntry(t *testing.T) {
	items := fixture()
	entry := core.LibraryEntry{ID: "lib", Title: "Lemon", Artist: "米津玄師", Comment: "ignored"}

	out := sequence.ApplyLibraryEntry(items, "a", entry)
	assert.Equal(t, core.Song{ID: "a", Title: "Lemon", Artist: "米津玄師"}, out[0])

	out = sequence.ApplyLibraryEntry(items, "enc", entry)
	assert.Equal(t, items[2], out[2], "non-songs are left alone")
}
