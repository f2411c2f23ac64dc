package core

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Items is an ordered item list with a tagged wire representation:
// every element carries a "type" discriminant next to its fields.
type Items []Item

type songWire struct {
	ID     string `json:"id" yaml:"id"`
	Type   Kind   `json:"type" yaml:"type"`
	Title  string `json:"title" yaml:"title"`
	Artist string `json:"artist" yaml:"artist"`
	Memo   string `json:"memo" yaml:"memo"`
}

type noteWire struct {
	ID    string `json:"id" yaml:"id"`
	Type  Kind   `json:"type" yaml:"type"`
	Label string `json:"label" yaml:"label"`
	Text  string `json:"text" yaml:"text"`
}

type encoreWire struct {
	ID   string `json:"id" yaml:"id"`
	Type Kind   `json:"type" yaml:"type"`
	Memo string `json:"memo" yaml:"memo"`
}

func toWire(it Item) (any, error) {
	switch v := it.(type) {
	case Song:
		return songWire{ID: v.ID, Type: KindSong, Title: v.Title, Artist: v.Artist, Memo: v.Memo}, nil
	case Note:
		return noteWire{ID: v.ID, Type: KindNote, Label: v.Label, Text: v.Text}, nil
	case EncoreBoundary:
		return encoreWire{ID: v.ID, Type: KindEncore, Memo: v.Memo}, nil
	}
	return nil, fmt.Errorf("unsupported item type %T", it)
}

func (items Items) wire() ([]any, error) {
	out := make([]any, 0, len(items))
	for _, it := range items {
		w, err := toWire(it)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, nil
}

// MarshalJSON implements json.Marshaler.
func (items Items) MarshalJSON() ([]byte, error) {
	w, err := items.wire()
	if err != nil {
		return nil, err
	}
	return json.Marshal(w)
}

// MarshalYAML implements yaml.Marshaler.
func (items Items) MarshalYAML() (interface{}, error) {
	return items.wire()
}

// UnmarshalJSON decodes items written by MarshalJSON. It is meant for
// trusted storage and rejects unknown discriminants; untrusted documents go
// through the codec's sanitizer instead.
func (items *Items) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*items = Items{}
		return nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	out := make(Items, 0, len(raw))
	for i, r := range raw {
		var head struct {
			Type Kind `json:"type"`
		}
		if err := json.Unmarshal(r, &head); err != nil {
			return fmt.Errorf("item %d: %w", i, err)
		}
		switch head.Type {
		case KindSong:
			var w songWire
			if err := json.Unmarshal(r, &w); err != nil {
				return fmt.Errorf("item %d: %w", i, err)
			}
			out = append(out, Song{ID: w.ID, Title: w.Title, Artist: w.Artist, Memo: w.Memo})
		case KindNote:
			var w noteWire
			if err := json.Unmarshal(r, &w); err != nil {
				return fmt.Errorf("item %d: %w", i, err)
			}
			out = append(out, Note{ID: w.ID, Label: w.Label, Text: w.Text})
		case KindEncore:
			var w encoreWire
			if err := json.Unmarshal(r, &w); err != nil {
				return fmt.Errorf("item %d: %w", i, err)
			}
			out = append(out, EncoreBoundary{ID: w.ID, Memo: w.Memo})
		default:
			return fmt.Errorf("item %d: unknown type %q", i, head.Type)
		}
	}

	*items = out
	return nil
}
