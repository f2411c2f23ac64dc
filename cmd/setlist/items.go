package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/aretw0/setlist/pkg/core"
	"github.com/aretw0/setlist/pkg/setlist"
)

var (
	itemTitle  string
	itemArtist string
	itemMemo   string
	itemLabel  string
	itemText   string
	itemAfter  int
	itemEntry  string
)

var addCmd = &cobra.Command{
	Use:   "add <id> <song|note|encore>",
	Short: "Append an item to a setlist (or insert it with --after)",
	Example: `  setlist add 3f2a song --title Lemon --artist "Kenshi Yonezu"
  setlist add 3f2a note --label MC --text "Thanks for coming" --after 4
  setlist add 3f2a encore`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		kind, err := core.ParseKind(args[1])
		if err != nil {
			fatal("Error parsing item kind", err)
		}

		svc := openService()
		ctx := cmd.Context()
		doc := mustResolve(ctx, svc, args[0])

		item, err := newItem(ctx, svc, kind)
		if err != nil {
			fatal("Error adding item", err)
		}
		doc, err = addItem(ctx, svc, doc.ID, item, itemAfter)
		if err != nil {
			fatal("Error adding item", err)
		}
		printDocument(cmd, doc)
	},
}

var moveCmd = &cobra.Command{
	Use:   "move <id> <from> <to>",
	Short: "Move the item at position <from> to position <to> (1-based)",
	Args:  cobra.ExactArgs(3),
	Run: func(cmd *cobra.Command, args []string) {
		from, to := position(args[1]), position(args[2])
		svc := openService()
		ctx := cmd.Context()
		doc := mustResolve(ctx, svc, args[0])
		doc, err := svc.MoveItem(ctx, doc.ID, from-1, to-1)
		if err != nil {
			fatal("Error moving item", err)
		}
		printDocument(cmd, doc)
	},
}

var removeCmd = &cobra.Command{
	Use:   "remove <id> <item-id|position>",
	Short: "Remove one item from a setlist",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		svc := openService()
		ctx := cmd.Context()
		doc := mustResolve(ctx, svc, args[0])

		itemID := args[1]
		if n, err := strconv.Atoi(itemID); err == nil && n >= 1 && n <= len(doc.Items) {
			itemID = doc.Items[n-1].ItemID()
		}
		doc, err := svc.RemoveItem(ctx, doc.ID, itemID)
		if err != nil {
			fatal("Error removing item", err)
		}
		printDocument(cmd, doc)
	},
}

var useCmd = &cobra.Command{
	Use:   "use <id> <position> <library-entry-id>",
	Short: "Fill a song's title and artist from a library entry",
	Args:  cobra.ExactArgs(3),
	Run: func(cmd *cobra.Command, args []string) {
		pos := position(args[1])
		svc := openService()
		ctx := cmd.Context()
		doc := mustResolve(ctx, svc, args[0])
		if pos > len(doc.Items) {
			fatal("Error applying library entry", fmt.Errorf("position %d out of range (1-%d)", pos, len(doc.Items)))
		}
		doc, err := svc.UseLibraryEntry(ctx, doc.ID, doc.Items[pos-1].ItemID(), args[2])
		if err != nil {
			fatal("Error applying library entry", err)
		}
		printDocument(cmd, doc)
	},
}

// newItem builds the item from the add flags. A library entry is looked up
// before anything is written.
func newItem(ctx context.Context, svc *setlist.Service, kind core.Kind) (core.Item, error) {
	if itemEntry != "" && kind != core.KindSong {
		return nil, fmt.Errorf("--from-library only applies to songs")
	}
	switch kind {
	case core.KindSong:
		song := core.Song{ID: core.NewID(), Title: itemTitle, Artist: itemArtist, Memo: itemMemo}
		if itemEntry != "" {
			e, err := svc.Store().GetEntry(ctx, itemEntry)
			if err != nil {
				return nil, fmt.Errorf("library entry %q: %w", itemEntry, err)
			}
			song.Title, song.Artist = e.Title, e.Artist
		}
		return song, nil
	case core.KindNote:
		return core.Note{ID: core.NewID(), Label: itemLabel, Text: itemText}, nil
	}
	return core.EncoreBoundary{ID: core.NewID(), Memo: itemMemo}, nil
}

// addItem appends item, or inserts it after the 1-based position after.
func addItem(ctx context.Context, svc *setlist.Service, id string, item core.Item, after int) (core.Document, error) {
	if after > 0 {
		return svc.InsertItem(ctx, id, after-1, item)
	}
	return svc.AddItem(ctx, id, item)
}

func position(arg string) int {
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 {
		fatal("Error parsing position", fmt.Errorf("%q is not a position (1, 2, ...)", arg))
	}
	return n
}

func init() {
	addCmd.Flags().StringVar(&itemTitle, "title", "", "Song title")
	addCmd.Flags().StringVar(&itemArtist, "artist", "", "Song artist")
	addCmd.Flags().StringVar(&itemMemo, "memo", "", "Memo for a song or the encore")
	addCmd.Flags().StringVar(&itemLabel, "label", "", "Note label (e.g. MC)")
	addCmd.Flags().StringVar(&itemText, "text", "", "Note text")
	addCmd.Flags().IntVar(&itemAfter, "after", 0, "Insert after this position (1-based) instead of appending")
	addCmd.Flags().StringVar(&itemEntry, "from-library", "", "Fill a new song from this library entry ID")

	rootCmd.AddCommand(addCmd, moveCmd, removeCmd, useCmd)
}
