package codec_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/setlist/pkg/codec"
	"github.com/aretw0/setlist/pkg/core"
	"github.com/aretw0/setlist/pkg/sequence"
)

var fixedNow = time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

func withClock(t *testing.T) {
	t.Helper()
	t.Cleanup(codec.SetNow(func() time.Time { return fixedNow }))
}

func sampleDoc() core.Document {
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return core.Document{
		ID:    "doc-1",
		Title: "Live 2026",
		Items: core.Items{
			core.Song{ID: "s1", Title: "Lemon", Artist: "米津玄師", Memo: "capo 2"},
			core.Note{ID: "n1", Label: "MC", Text: "hello"},
			core.EncoreBoundary{ID: "e1", Memo: "lights"},
			core.Song{ID: "s2", Title: "Encore song"},
		},
		CreatedAt: created,
		UpdatedAt: created,
	}
}

func content(items []core.Item) []core.Item {
	out := make([]core.Item, len(items))
	for i, it := range items {
		out[i] = core.WithID(it, "")
	}
	return out
}

func TestExport_KeepsIdentity(t *testing.T) {
	withClock(t)
	doc := sampleDoc()

	env := codec.Export(doc)
	assert.Equal(t, codec.SchemaVersion, env.SchemaVersion)
	assert.Equal(t, fixedNow, env.ExportedAt)
	assert.Equal(t, doc, env.Setlist)
}

func TestMarshal_JSONWireShape(t *testing.T) {
	withClock(t)
	data, err := codec.Marshal(codec.Export(sampleDoc()), codec.FormatJSON)
	require.NoError(t, err)

	s := string(data)
	assert.Contains(t, s, `"schemaVersion": "setlist-assist.v1"`)
	assert.Contains(t, s, `"exportedAt": "2026-10-16T12:00:00Z"`)
	assert.Contains(t, s, `"type": "ENCORE_START"`)
	assert.Contains(t, s, `"setlist": {`)
}

func TestImportExport_RoundTrip(t *testing.T) {
	for _, format := range []codec.Format{codec.FormatJSON, codec.FormatYAML} {
		t.Run(string(format), func(t *testing.T) {
			doc := sampleDoc()
			data, err := codec.Marshal(codec.Export(doc), format)
			require.NoError(t, err)

			env, err := codec.ImportFormat(data, format)
			require.NoError(t, err)

			got := env.Setlist
			assert.NotEqual(t, doc.ID, got.ID)
			assert.Equal(t, doc.Title, got.Title)
			assert.Equal(t, content(doc.Items), content(got.Items))
			for i := range got.Items {
				assert.NotEqual(t, doc.Items[i].ItemID(), got.Items[i].ItemID())
			}
		})
	}
}

func TestImport_SanitizesEncoreAndUnknownTags(t *testing.T) {
	raw := `{"schemaVersion":"setlist-assist.v1","setlist":{"title":"X","items":[{"type":"ENCORE_START"},{"type":"ENCORE_START"},{"type":"BOGUS"}]}}`

	env, err := codec.Import([]byte(raw))
	require.NoError(t, err)

	items := env.Setlist.Items
	require.Len(t, items, 1)
	assert.IsType(t, core.EncoreBoundary{}, items[0])
	assert.True(t, sequence.HasEncoreBoundary(items))
	assert.Equal(t, "X", env.Setlist.Title)
}

func TestImport_CoercesFields(t *testing.T) {
	withClock(t)
	raw := `{
		"schemaVersion": "setlist-assist.v1",
		"exportedAt": "whenever",
		"setlist": {
			"id": "external-id",
			"title": 42,
			"createdAt": "1999-01-01T00:00:00Z",
			"items": [
				{"id": "ext-1", "type": "SONG", "title": 1, "artist": null, "memo": ["x"]},
				{"id": "ext-2", "type": "NOTE", "label": {"a": 1}, "text": "ok"},
				"not an object",
				42,
				{"type": "song"},
				{"id": "ext-3", "type": "ENCORE_START", "memo": true}
			]
		}
	}`

	env, err := codec.Import([]byte(raw))
	require.NoError(t, err)

	doc := env.Setlist
	assert.Equal(t, codec.ImportedTitle, doc.Title)
	assert.NotEqual(t, "external-id", doc.ID)
	assert.Equal(t, fixedNow, doc.CreatedAt)
	assert.Equal(t, fixedNow, doc.UpdatedAt)

	require.Len(t, doc.Items, 3)
	assert.Equal(t, core.Song{}, core.WithID(doc.Items[0], ""))
	assert.Equal(t, core.Note{Text: "ok"}, core.WithID(doc.Items[1], ""))
	assert.Equal(t, core.EncoreBoundary{}, core.WithID(doc.Items[2], ""))

	seen := map[string]bool{}
	for _, it := range doc.Items {
		assert.False(t, strings.HasPrefix(it.ItemID(), "ext-"))
		assert.False(t, seen[it.ItemID()])
		seen[it.ItemID()] = true
	}
}

func TestImport_NonArrayItems(t *testing.T) {
	env, err := codec.Import([]byte(`{"schemaVersion":"setlist-assist.v1","setlist":{"title":"T","items":{"0":{}}}}`))
	require.NoError(t, err)
	assert.NotNil(t, env.Setlist.Items)
	assert.Empty(t, env.Setlist.Items)
}

func TestImport_Errors(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		check func(t *testing.T, err error)
	}{
		{"not json", `{oops`, func(t *testing.T, err error) {
			var fe *core.FormatError
			assert.True(t, errors.As(err, &fe))
		}},
		{"array", `[1,2]`, func(t *testing.T, err error) {
			var fe *core.FormatError
			require.True(t, errors.As(err, &fe))
			assert.Contains(t, err.Error(), "an array")
		}},
		{"null", `null`, func(t *testing.T, err error) {
			var fe *core.FormatError
			assert.True(t, errors.As(err, &fe))
		}},
		{"wrong version", `{"schemaVersion":"setlist-assist.v2","setlist":{}}`, func(t *testing.T, err error) {
			var ve *core.VersionError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, "setlist-assist.v2", ve.Got)
		}},
		{"missing version", `{"setlist":{}}`, func(t *testing.T, err error) {
			var ve *core.VersionError
			assert.True(t, errors.As(err, &ve))
		}},
		{"setlist not object", `{"schemaVersion":"setlist-assist.v1","setlist":[]}`, func(t *testing.T, err error) {
			var se *core.ShapeError
			assert.True(t, errors.As(err, &se))
		}},
		{"setlist missing", `{"schemaVersion":"setlist-assist.v1"}`, func(t *testing.T, err error) {
			var se *core.ShapeError
			assert.True(t, errors.As(err, &se))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := codec.Import([]byte(tt.raw))
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestImportFormat_YAMLErrors(t *testing.T) {
	_, err := codec.ImportFormat([]byte("- just\n- a list\n"), codec.FormatYAML)
	var fe *core.FormatError
	assert.True(t, errors.As(err, &fe))

	_, err = codec.ImportFormat([]byte("schemaVersion: nope\nsetlist: {}\n"), codec.FormatYAML)
	var ve *core.VersionError
	assert.True(t, errors.As(err, &ve))
}

func TestDuplicate(t *testing.T) {
	withClock(t)
	doc := sampleDoc()

	dup := codec.Duplicate(doc)
	assert.NotEqual(t, doc.ID, dup.ID)
	assert.Equal(t, "Live 2026 (copy)", dup.Title)
	assert.Equal(t, fixedNow, dup.CreatedAt)
	assert.Equal(t, fixedNow, dup.UpdatedAt)
	require.Len(t, dup.Items, len(doc.Items))
	assert.Equal(t, content(doc.Items), content(dup.Items))

	for i := range doc.Items {
		assert.NotEqual(t, doc.Items[i].ItemID(), dup.Items[i].ItemID())
	}
	assert.Equal(t, "s1", doc.Items[0].ItemID(), "source must not change")
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, codec.FormatYAML, codec.FormatFromPath("x/set.YML"))
	assert.Equal(t, codec.FormatJSON, codec.FormatFromPath("set.json"))
	assert.Equal(t, codec.FormatJSON, codec.FormatFromPath("set"))

	f, err := codec.ParseFormat("yaml")
	require.NoError(t, err)
	assert.Equal(t, codec.FormatYAML, f)
	_, err = codec.ParseFormat("xml")
	assert.Error(t, err)
}

func TestSafeFileName(t *testing.T) {
	assert.Equal(t, "a_b_c", codec.SafeFileName("a/b:c"))
	assert.Equal(t, "Live 2026", codec.SafeFileName("  Live \t 2026 "))
	assert.Equal(t, "setlist", codec.SafeFileName(""))
	assert.Equal(t, "setlist", codec.SafeFileName("   "))
}
