package view_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aretw0/setlist/pkg/core"
	"github.com/aretw0/setlist/pkg/view"
)

func TestText(t *testing.T) {
	items := []core.Item{
		core.Song{ID: "a", Title: "Lemon", Artist: "米津玄師", Memo: "capo 2\r\n\r\nslow intro\n"},
		core.Note{ID: "n", Label: "MC", Text: "greetings\nintroduce band"},
		core.Song{ID: "b", Title: "", Artist: ""},
		core.Note{ID: "n2"},
		core.EncoreBoundary{ID: "e", Memo: "lights off"},
		core.Song{ID: "c", Artist: "Only Artist"},
	}

	want := strings.Join([]string{
		"Live 2026",
		"- M01 Lemon - 米津玄師",
		"  - capo 2",
		"  - slow intro",
		"- [MC] greetings",
		"  introduce band",
		"- M02",
		"- [NOTE]",
		"- Encore",
		"  - lights off",
		"- EN01 Only Artist",
	}, "\n")

	assert.Equal(t, want, view.Text("Live 2026", items))
}

func TestText_UntitledAndEmpty(t *testing.T) {
	assert.Equal(t, view.UntitledLabel, view.Text("   ", nil))
}

func TestSongLabel(t *testing.T) {
	assert.Equal(t, "T - A", view.SongLabel(" T ", "A"))
	assert.Equal(t, "T", view.SongLabel("T", ""))
	assert.Equal(t, "A", view.SongLabel("", "A"))
	assert.Equal(t, "", view.SongLabel("", ""))
}

func TestDiff(t *testing.T) {
	a := "Live\n- M01 A\n- M02 B"
	b := "Live\n- M01 B\n- M02 A"

	out := view.Diff(a, b)
	assert.Contains(t, out, "  Live\n")
	assert.Contains(t, out, "- - M01 A\n")
	assert.Contains(t, out, "+ - M01 B\n")
	assert.Contains(t, out, "+ - M02 A\n")

	assert.Equal(t, "  same\n", view.Diff("same", "same"))
}
