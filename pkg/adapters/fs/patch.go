package fs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	jsonpatch "github.com/evanphx/json-patch"

	"github.com/aretw0/setlist/pkg/core"
)

// Patch applies the non-nil fields of patch to the stored setlist as an
// RFC 7386 merge patch. The read, merge and write happen under the write
// lock so concurrent writers cannot interleave.
func (r *Repository) Patch(ctx context.Context, id string, patch core.DocumentPatch) error {
	if validID(id) != nil {
		return core.ErrNotFound
	}
	body, err := mergeDocument(patch)
	if err != nil {
		return core.Storage("patch", id, err)
	}

	return core.Storage("patch", id, r.withWriteLock(ctx, func() error {
		path := r.setlistPath(id)
		current, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			return core.ErrNotFound
		}
		if err != nil {
			return err
		}

		merged, err := jsonpatch.MergePatch(current, body)
		if err != nil {
			return fmt.Errorf("merge patch: %w", err)
		}

		// Round-trip through the domain type so a corrupt merge never lands.
		var doc core.Document
		if err := json.Unmarshal(merged, &doc); err != nil {
			return fmt.Errorf("merged document is invalid: %w", err)
		}
		if doc.Items == nil {
			doc.Items = core.Items{}
		}
		out, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return err
		}
		return writeFileAtomic(path, append(out, '\n'), 0644)
	}))
}

// mergeDocument renders patch as a JSON merge document.
func mergeDocument(patch core.DocumentPatch) ([]byte, error) {
	updatedAt := patch.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}

	m := map[string]any{"updatedAt": updatedAt}
	if patch.Title != nil {
		m["title"] = *patch.Title
	}
	if patch.Items != nil {
		items := core.Items(*patch.Items)
		if items == nil {
			items = core.Items{}
		}
		m["items"] = items
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(m); err != nil {
		return nil, err
	}
	return bytes.TrimSpace(buf.Bytes()), nil
}
