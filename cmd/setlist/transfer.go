package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/setlist/pkg/codec"
	"github.com/aretw0/setlist/pkg/view"
)

var (
	exportOutput string
	exportFormat string
	importFormat string
)

var exportCmd = &cobra.Command{
	Use:   "export <id>",
	Short: "Write a setlist as a versioned JSON (or YAML) envelope",
	Long: `Export writes the setlist to a file named after its title
(e.g. "Budokan night.json"), or to the path given with --output.
Use --output - to write to stdout.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		format, err := codec.ParseFormat(exportFormat)
		if err != nil {
			fatal("Error parsing format", err)
		}
		if exportFormat == "" && exportOutput != "" && exportOutput != "-" {
			format = codec.FormatFromPath(exportOutput)
		}

		svc := openService()
		ctx := cmd.Context()
		doc := mustResolve(ctx, svc, args[0])
		raw, err := svc.Export(ctx, doc.ID, format)
		if err != nil {
			fatal("Error exporting setlist", err)
		}

		if exportOutput == "-" {
			cmd.OutOrStdout().Write(raw)
			return
		}
		path := exportOutput
		if path == "" {
			path = codec.SafeFileName(doc.Title) + "." + string(format)
		}
		if err := os.WriteFile(path, raw, 0644); err != nil {
			fatal("Error writing export", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Exported %s to %s\n", doc.ID, path)
	},
}

var importCmd = &cobra.Command{
	Use:   "import <file|->",
	Short: "Create a new setlist from an exported envelope",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		var (
			raw []byte
			err error
		)
		format := codec.FormatFromPath(args[0])
		if args[0] == "-" {
			raw, err = io.ReadAll(cmd.InOrStdin())
		} else {
			raw, err = os.ReadFile(filepath.Clean(args[0]))
		}
		if err != nil {
			fatal("Error reading import", err)
		}
		if importFormat != "" {
			if format, err = codec.ParseFormat(importFormat); err != nil {
				fatal("Error parsing format", err)
			}
		}

		svc := openService()
		doc, err := svc.Import(cmd.Context(), raw, format)
		if err != nil {
			fatal("Error importing setlist", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), doc.ID)
	},
}

var diffCmd = &cobra.Command{
	Use:   "diff <id> <id>",
	Short: "Compare the text programs of two setlists line by line",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		svc := openService()
		ctx := cmd.Context()
		a := mustResolve(ctx, svc, args[0])
		b := mustResolve(ctx, svc, args[1])

		out := cmd.OutOrStdout()
		diff := view.Diff(view.Text(a.Title, a.Items)+"\n", view.Text(b.Title, b.Items)+"\n")
		for _, line := range strings.Split(strings.TrimSuffix(diff, "\n"), "\n") {
			switch {
			case strings.HasPrefix(line, "+ "):
				fmt.Fprintln(out, added(line))
			case strings.HasPrefix(line, "- "):
				fmt.Fprintln(out, removed(line))
			default:
				fmt.Fprintln(out, line)
			}
		}
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output path, or - for stdout")
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "", "Envelope format: json or yaml (default from --output, else json)")
	importCmd.Flags().StringVarP(&importFormat, "format", "f", "", "Envelope format: json or yaml (default from the file extension)")

	rootCmd.AddCommand(exportCmd, importCmd, diffCmd)
}
