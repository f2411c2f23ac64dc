// Package setlist is the composition root of the setlist document engine.
//
// A setlist is an ordered performance program made of songs, notes and at
// most one encore boundary. The engine keeps that order authoritative and
// derives everything else from it: per-segment song codes (M01, EN01),
// counts and a copyable text program. Edits go through a debounced
// autosave controller so a burst of changes becomes one durable write.
//
// Storage is pluggable behind core.Store:
//
//   - fs (default): one JSON file per setlist, atomic writes, an advisory
//     file lock and an fsnotify watcher.
//   - sqlite: a single database file using a pure-Go driver.
//   - memory: nothing is persisted.
//
// Usage:
//
//	svc, err := setlist.New("./shows", setlist.WithLogger(logger))
//	doc, err := svc.Create(ctx, "Budokan")
//	ctrl, err := svc.Edit(ctx, doc.ID)
//	defer ctrl.Close()
//	ctrl.SetTitle("Budokan, night 2")
//
// Setlists move between installations as versioned envelopes (see
// pkg/codec); the song library imports and exports CSV (see pkg/library).
package setlist
