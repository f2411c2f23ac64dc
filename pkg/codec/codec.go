// Package codec converts setlists to and from the versioned export envelope.
//
// Import is an untrusted-input boundary: every field of the incoming
// document is checked individually and replaced by a safe default when it
// has the wrong type. Imported setlists never reuse external identifiers.
package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/setlist/pkg/core"
)

// SchemaVersion is the only envelope version this package reads and writes.
const SchemaVersion = "setlist-assist.v1"

// ImportedTitle is used when an imported setlist has no usable title.
const ImportedTitle = "Imported setlist"

// CopySuffix decorates the title of a duplicated setlist.
const CopySuffix = " (copy)"

// Envelope is the external representation of a setlist.
type Envelope struct {
	SchemaVersion string        `json:"schemaVersion" yaml:"schemaVersion"`
	ExportedAt    time.Time     `json:"exportedAt" yaml:"exportedAt"`
	Setlist       core.Document `json:"setlist" yaml:"setlist"`
}

// Format selects the envelope encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat maps a user-supplied name to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unknown format %q (want json or yaml)", s)
}

// FormatFromPath picks the format from a file extension, defaulting to JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	}
	return FormatJSON
}

// nowFunc is replaced in tests.
var nowFunc = func() time.Time { return time.Now().UTC() }

// Export wraps doc in a current envelope. Identifiers are left untouched.
func Export(doc core.Document) Envelope {
	return Envelope{
		SchemaVersion: SchemaVersion,
		ExportedAt:    nowFunc(),
		Setlist:       doc,
	}
}

// Marshal encodes env in the given format.
func Marshal(env Envelope, format Format) ([]byte, error) {
	if env.Setlist.Items == nil {
		env.Setlist.Items = core.Items{}
	}
	switch format {
	case FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(env); err != nil {
			return nil, err
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case FormatJSON, "":
		return json.MarshalIndent(env, "", "  ")
	}
	return nil, fmt.Errorf("unknown format %q", format)
}

// Import parses a JSON envelope. See ImportFormat.
func Import(raw []byte) (Envelope, error) {
	return ImportFormat(raw, FormatJSON)
}

// ImportFormat parses an envelope from untrusted input and builds a new
// setlist from it. It fails with *core.FormatError when raw is not an
// object, *core.VersionError when the schema version is not supported and
// *core.ShapeError when the nested setlist is not an object.
func ImportFormat(raw []byte, format Format) (Envelope, error) {
	var parsed any
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(raw, &parsed); err != nil {
			return Envelope{}, &core.FormatError{Err: err}
		}
	default:
		if err := json.Unmarshal(raw, &parsed); err != nil {
			return Envelope{}, &core.FormatError{Err: err}
		}
	}

	root, ok := parsed.(map[string]any)
	if !ok {
		return Envelope{}, &core.FormatError{Err: fmt.Errorf("top level is %s, want an object", describe(parsed))}
	}

	version, _ := root["schemaVersion"].(string)
	if version != SchemaVersion {
		return Envelope{}, &core.VersionError{Got: version, Want: SchemaVersion}
	}

	setlist, ok := root["setlist"].(map[string]any)
	if !ok {
		return Envelope{}, &core.ShapeError{Field: "setlist", Want: "an object"}
	}

	now := nowFunc()
	doc := core.Document{
		ID:        core.NewID(),
		Title:     asString(setlist["title"], ImportedTitle),
		Items:     sanitizeItems(setlist["items"]),
		CreatedAt: now,
		UpdatedAt: now,
	}

	return Envelope{
		SchemaVersion: SchemaVersion,
		ExportedAt:    now,
		Setlist:       doc,
	}, nil
}

// sanitizeItems keeps known item kinds, coerces every text field to a
// string, assigns fresh identifiers and drops every encore boundary after
// the first.
func sanitizeItems(input any) core.Items {
	list, ok := input.([]any)
	if !ok {
		return core.Items{}
	}

	out := make(core.Items, 0, len(list))
	encoreSeen := false
	for _, raw := range list {
		obj, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		kind, _ := obj["type"].(string)
		switch core.Kind(kind) {
		case core.KindSong:
			out = append(out, core.Song{
				ID:     core.NewID(),
				Title:  asString(obj["title"], ""),
				Artist: asString(obj["artist"], ""),
				Memo:   asString(obj["memo"], ""),
			})
		case core.KindNote:
			out = append(out, core.Note{
				ID:    core.NewID(),
				Label: asString(obj["label"], ""),
				Text:  asString(obj["text"], ""),
			})
		case core.KindEncore:
			if encoreSeen {
				continue
			}
			encoreSeen = true
			out = append(out, core.EncoreBoundary{
				ID:   core.NewID(),
				Memo: asString(obj["memo"], ""),
			})
		}
	}
	return out
}

func asString(v any, fallback string) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fallback
}

func describe(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case []any:
		return "an array"
	case string:
		return "a string"
	case bool:
		return "a boolean"
	case float64, int, int64, uint64:
		return "a number"
	}
	return fmt.Sprintf("%T", v)
}

// Duplicate deep-copies doc under a new identity: fresh document ID, fresh
// item IDs (one-to-one, order preserved), fresh timestamps and a title
// marked as a copy. Item content is copied verbatim.
func Duplicate(doc core.Document) core.Document {
	now := nowFunc()
	items := make(core.Items, len(doc.Items))
	for i, it := range doc.Items {
		items[i] = core.WithID(it, core.NewID())
	}
	return core.Document{
		ID:        core.NewID(),
		Title:     doc.Title + CopySuffix,
		Items:     items,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

var unsafeFileChars = regexp.MustCompile(`[\\/:*?"<>|]`)
var whitespaceRun = regexp.MustCompile(`\s+`)

// SafeFileName turns a setlist title into a file name without path
// separators or characters rejected by common filesystems.
func SafeFileName(name string) string {
	if name == "" {
		name = "setlist"
	}
	name = unsafeFileChars.ReplaceAllString(name, "_")
	name = strings.TrimSpace(whitespaceRun.ReplaceAllString(name, " "))
	if name == "" {
		return "setlist"
	}
	return name
}
