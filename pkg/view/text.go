package view

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/aretw0/setlist/pkg/core"
)

// UntitledLabel replaces a blank title in text exports.
const UntitledLabel = "(untitled)"

// Text renders the plain-text program meant for pasting into chats and
// notes. Songs carry their codes; memos become indented sub-bullets.
func Text(title string, items []core.Item) string {
	codes := SongCodes(items)

	lines := []string{title}
	if strings.TrimSpace(title) == "" {
		lines[0] = UntitledLabel
	}

	for _, it := range items {
		switch v := it.(type) {
		case core.Song:
			head := joinNonEmpty(" ", codes[v.ID], SongLabel(v.Title, v.Artist))
			lines = append(lines, strings.TrimRight("- "+head, " "))
			lines = appendMemo(lines, v.Memo)

		case core.Note:
			label := strings.TrimSpace(v.Label)
			if label == "" {
				label = "NOTE"
			}
			text := strings.TrimRight(normalizeNewlines(v.Text), " \t\n")
			if text == "" {
				lines = append(lines, "- ["+label+"]")
				continue
			}
			parts := strings.Split(text, "\n")
			lines = append(lines, strings.TrimRight("- ["+label+"] "+parts[0], " \t"))
			for _, p := range parts[1:] {
				if p == "" {
					continue
				}
				lines = append(lines, "  "+p)
			}

		case core.EncoreBoundary:
			lines = append(lines, "- Encore")
			lines = appendMemo(lines, v.Memo)
		}
	}

	return strings.Join(lines, "\n")
}

// SongLabel formats "title - artist", dropping whichever part is blank.
func SongLabel(title, artist string) string {
	title = strings.TrimSpace(title)
	artist = strings.TrimSpace(artist)
	switch {
	case title != "" && artist != "":
		return title + " - " + artist
	case title != "":
		return title
	default:
		return artist
	}
}

func appendMemo(lines []string, memo string) []string {
	memo = strings.TrimRight(normalizeNewlines(memo), " \t\n")
	if memo == "" {
		return lines
	}
	for _, m := range strings.Split(memo, "\n") {
		if m == "" {
			continue
		}
		lines = append(lines, "  - "+m)
	}
	return lines
}

func normalizeNewlines(s string) string {
	return strings.ReplaceAll(s, "\r\n", "\n")
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}

// Diff returns a line-level unified view of the changes between two text
// exports. Unchanged lines are prefixed with two spaces, removed lines with
// "- " and added lines with "+ ".
func Diff(a, b string) string {
	dmp := diffmatchpatch.New()
	ca, cb, lines := dmp.DiffLinesToChars(a, b)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(ca, cb, false), lines)

	var sb strings.Builder
	for _, d := range diffs {
		prefix := "  "
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			prefix = "- "
		case diffmatchpatch.DiffInsert:
			prefix = "+ "
		}
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}
			sb.WriteString(prefix)
			sb.WriteString(line)
			if !strings.HasSuffix(line, "\n") {
				sb.WriteString("\n")
			}
		}
	}
	return sb.String()
}
