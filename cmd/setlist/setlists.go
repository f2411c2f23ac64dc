package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/aretw0/setlist/pkg/core"
	"github.com/aretw0/setlist/pkg/setlist"
	"github.com/aretw0/setlist/pkg/view"
)

var (
	listJSON bool
	showText bool
	showJSON bool
)

var newCmd = &cobra.Command{
	Use:   "new [title]",
	Short: "Create an empty setlist",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		svc := openService()
		title := ""
		if len(args) == 1 {
			title = args[0]
		}
		doc, err := svc.Create(cmd.Context(), title)
		if err != nil {
			fatal("Error creating setlist", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), doc.ID)
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List setlists, most recently updated first",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		svc := openService()
		docs, err := svc.List(cmd.Context())
		if err != nil {
			fatal("Error listing setlists", err)
		}

		out := cmd.OutOrStdout()
		if listJSON {
			type summary struct {
				ID        string      `json:"id"`
				Title     string      `json:"title"`
				Songs     view.Counts `json:"songs"`
				UpdatedAt time.Time   `json:"updatedAt"`
			}
			list := make([]summary, 0, len(docs))
			for _, d := range docs {
				list = append(list, summary{ID: d.ID, Title: d.Title, Songs: view.CountSongs(d.Items), UpdatedAt: d.UpdatedAt})
			}
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			if err := enc.Encode(list); err != nil {
				fatal("Error encoding JSON", err)
			}
			return
		}

		rows := make([][]string, 0, len(docs))
		for _, d := range docs {
			c := view.CountSongs(d.Items)
			rows = append(rows, []string{
				d.ID,
				d.Title,
				fmt.Sprintf("%d/%d", c.Main, c.Encore),
				d.UpdatedAt.Local().Format("2006-01-02 15:04"),
			})
		}
		writeRows(out, []string{"ID", "TITLE", "MAIN/EN", "UPDATED"}, rows,
			[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft})
	},
}

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show the items of a setlist with their derived codes",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		svc := openService()
		doc := mustResolve(cmd.Context(), svc, args[0])
		out := cmd.OutOrStdout()

		switch {
		case showText:
			fmt.Fprintln(out, view.Text(doc.Title, doc.Items))
		case showJSON:
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			if err := enc.Encode(doc); err != nil {
				fatal("Error encoding JSON", err)
			}
		default:
			printDocument(cmd, doc)
		}
	},
}

var renameCmd = &cobra.Command{
	Use:   "rename <id> <title>",
	Short: "Change the title of a setlist",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		svc := openService()
		doc := mustResolve(cmd.Context(), svc, args[0])
		if err := svc.Rename(cmd.Context(), doc.ID, args[1]); err != nil {
			fatal("Error renaming setlist", err)
		}
	},
}

var duplicateCmd = &cobra.Command{
	Use:     "duplicate <id>",
	Aliases: []string{"dup", "cp"},
	Short:   "Copy a setlist under a new identity",
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		svc := openService()
		doc := mustResolve(cmd.Context(), svc, args[0])
		dup, err := svc.Duplicate(cmd.Context(), doc.ID)
		if err != nil {
			fatal("Error duplicating setlist", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), dup.ID)
	},
}

var deleteCmd = &cobra.Command{
	Use:     "delete <id>",
	Aliases: []string{"rm"},
	Short:   "Delete a setlist",
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		svc := openService()
		doc := mustResolve(cmd.Context(), svc, args[0])
		if err := svc.Delete(cmd.Context(), doc.ID); err != nil {
			fatal("Error deleting setlist", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s (%s)\n", doc.ID, doc.Title)
	},
}

func init() {
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output in JSON format")
	showCmd.Flags().BoolVarP(&showText, "text", "t", false, "Print the copyable text program")
	showCmd.Flags().BoolVar(&showJSON, "json", false, "Print the stored document as JSON")

	rootCmd.AddCommand(newCmd, listCmd, showCmd, renameCmd, duplicateCmd, deleteCmd)
}

// resolve finds a setlist by exact ID or by a unique ID prefix.
func resolve(ctx context.Context, svc *setlist.Service, ref string) (core.Document, error) {
	doc, err := svc.Get(ctx, ref)
	if err == nil || !errors.Is(err, core.ErrNotFound) {
		return doc, err
	}

	docs, err := svc.List(ctx)
	if err != nil {
		return core.Document{}, err
	}
	var matches []core.Document
	for _, d := range docs {
		if strings.HasPrefix(d.ID, ref) {
			matches = append(matches, d)
		}
	}
	switch len(matches) {
	case 0:
		return core.Document{}, fmt.Errorf("setlist %q: %w", ref, core.ErrNotFound)
	case 1:
		return matches[0], nil
	}
	return core.Document{}, fmt.Errorf("setlist %q is ambiguous (%d matches)", ref, len(matches))
}

func mustResolve(ctx context.Context, svc *setlist.Service, ref string) core.Document {
	doc, err := resolve(ctx, svc, ref)
	if err != nil {
		fatal("Error loading setlist", err)
	}
	return doc
}

func printDocument(cmd *cobra.Command, doc core.Document) {
	out := cmd.OutOrStdout()
	c := view.CountSongs(doc.Items)
	fmt.Fprintf(out, "%s  %s\n", doc.Title, faint(fmt.Sprintf("%d main, %d encore", c.Main, c.Encore)))
	if len(doc.Items) == 0 {
		fmt.Fprintln(out, faint("(no items)"))
		return
	}
	writeRows(out, []string{"#", "CODE", "KIND", "TITLE", "ARTIST / TEXT", "MEMO", "ID"}, itemRows(doc.Items),
		[]columnAlignment{alignRight})
}

func itemRows(items []core.Item) [][]string {
	codes := view.SongCodes(items)
	rows := make([][]string, 0, len(items))
	for i, it := range items {
		pos := fmt.Sprintf("%d", i+1)
		switch v := it.(type) {
		case core.Song:
			code := codes[v.ID]
			if strings.HasPrefix(code, "EN") {
				code = encoreCode(code)
			} else {
				code = mainCode(code)
			}
			rows = append(rows, []string{pos, code, "song", v.Title, v.Artist, oneLine(v.Memo), v.ID})
		case core.Note:
			rows = append(rows, []string{pos, "", "note", v.Label, oneLine(v.Text), "", v.ID})
		case core.EncoreBoundary:
			rows = append(rows, []string{pos, marker("ENCORE"), "encore", "", "", oneLine(v.Memo), v.ID})
		}
	}
	return rows
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

