package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/aretw0/setlist/pkg/core"
)

var (
	libJSON    bool
	libArtist  string
	libComment string
	libURL     string
	libOutput  string
)

var libraryCmd = &cobra.Command{
	Use:     "library",
	Aliases: []string{"lib"},
	Short:   "Manage the reusable song library",
}

var libraryListCmd = &cobra.Command{
	Use:   "list [query]",
	Short: "List library entries, optionally filtered by title, artist or comment",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		svc := openService()
		var (
			entries []core.LibraryEntry
			err     error
		)
		if len(args) == 1 {
			entries, err = svc.SearchLibrary(cmd.Context(), args[0])
		} else {
			entries, err = svc.ListLibrary(cmd.Context())
		}
		if err != nil {
			fatal("Error listing library", err)
		}
		printEntries(cmd, entries)
	},
}

var libraryAddCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Add a song to the library",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		svc := openService()
		e, err := svc.AddLibraryEntry(cmd.Context(), args[0], libArtist, libComment, libURL)
		if err != nil {
			fatal("Error adding library entry", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), e.ID)
	},
}

var libraryEditCmd = &cobra.Command{
	Use:   "edit <entry-id>",
	Short: "Change fields of a library entry",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		svc := openService()
		ctx := cmd.Context()
		e, err := svc.Store().GetEntry(ctx, args[0])
		if err != nil {
			fatal("Error loading library entry", err)
		}
		flags := cmd.Flags()
		if flags.Changed("title") {
			e.Title, _ = flags.GetString("title")
		}
		if flags.Changed("artist") {
			e.Artist = libArtist
		}
		if flags.Changed("comment") {
			e.Comment = libComment
		}
		if flags.Changed("url") {
			e.URL = libURL
		}
		if _, err := svc.UpdateLibraryEntry(ctx, e); err != nil {
			fatal("Error updating library entry", err)
		}
	},
}

var libraryRemoveCmd = &cobra.Command{
	Use:     "remove <entry-id>...",
	Aliases: []string{"rm"},
	Short:   "Delete library entries",
	Args:    cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		svc := openService()
		if err := svc.DeleteLibraryEntries(cmd.Context(), args...); err != nil {
			fatal("Error removing library entries", err)
		}
	},
}

var libraryImportCmd = &cobra.Command{
	Use:   "import <file.csv>",
	Short: "Add entries from a CSV of title,artist,comment,url",
	Long: `import reads a UTF-8 CSV (a leading BOM is accepted). Rows without a
title are skipped, and rows whose title and artist already exist in the
library, or earlier in the same file, are not added again.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		f, err := os.Open(filepath.Clean(args[0]))
		if err != nil {
			fatal("Error opening CSV", err)
		}
		defer f.Close()

		svc := openService()
		added, err := svc.ImportLibraryCSV(cmd.Context(), f)
		if err != nil {
			fatal("Error importing library", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %d entries\n", len(added))
	},
}

var libraryExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the library as CSV",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		svc := openService()
		out := cmd.OutOrStdout()
		if libOutput != "" && libOutput != "-" {
			f, err := os.Create(libOutput)
			if err != nil {
				fatal("Error creating CSV", err)
			}
			defer f.Close()
			out = f
		}
		if err := svc.ExportLibraryCSV(cmd.Context(), out); err != nil {
			fatal("Error exporting library", err)
		}
	},
}

func printEntries(cmd *cobra.Command, entries []core.LibraryEntry) {
	out := cmd.OutOrStdout()
	if libJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(entries); err != nil {
			fatal("Error encoding JSON", err)
		}
		return
	}
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{e.ID, e.Title, e.Artist, oneLine(e.Comment), e.URL})
	}
	writeRows(out, []string{"ID", "TITLE", "ARTIST", "COMMENT", "URL"}, rows, nil)
}

func init() {
	libraryListCmd.Flags().BoolVar(&libJSON, "json", false, "Output in JSON format")

	for _, c := range []*cobra.Command{libraryAddCmd, libraryEditCmd} {
		c.Flags().StringVar(&libArtist, "artist", "", "Artist")
		c.Flags().StringVar(&libComment, "comment", "", "Free-form comment")
		c.Flags().StringVar(&libURL, "url", "", "Reference URL")
	}
	libraryEditCmd.Flags().String("title", "", "Title")
	libraryExportCmd.Flags().StringVarP(&libOutput, "output", "o", "", "Output path (default stdout)")

	libraryCmd.AddCommand(libraryListCmd, libraryAddCmd, libraryEditCmd, libraryRemoveCmd, libraryImportCmd, libraryExportCmd)
	rootCmd.AddCommand(libraryCmd)
}
