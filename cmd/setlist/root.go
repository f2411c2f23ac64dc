package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/aretw0/setlist"
)

var (
	verbose bool
	dir     string
	adapter string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "setlist",
	Short: "Build and reorder performance setlists from the terminal",
	Long: `setlist keeps ordered performance programs (songs, notes and an encore
boundary) in a local store and derives song codes, counts and a copyable
text program from the order.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}

		opts := &slog.HandlerOptions{
			Level: level,
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, opts))
		slog.SetDefault(logger)

		color.NoColor = !shouldColorize(cmd.OutOrStdout())
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&dir, "dir", "d", "", "Store directory (default: nearest store above the working directory, or the working directory)")
	rootCmd.PersistentFlags().StringVar(&adapter, "adapter", "", "Storage adapter: fs, sqlite or memory (default from config file, else fs)")
}

// storeDir resolves --dir, falling back to the nearest existing store and
// then to the working directory.
func storeDir() string {
	if dir != "" {
		return dir
	}
	wd, err := os.Getwd()
	if err != nil {
		fatal("Error getting working directory", err)
	}
	if root, err := setlist.FindRoot(wd); err == nil {
		return root
	}
	return wd
}

func storeOptions(extra ...setlist.Option) []setlist.Option {
	opts := []setlist.Option{setlist.WithLogger(slog.Default())}
	if adapter != "" {
		opts = append(opts, setlist.WithAdapter(adapter))
	}
	return append(opts, extra...)
}

// openService opens an existing store.
func openService() *setlist.Service {
	svc, err := setlist.New(storeDir(), storeOptions(setlist.WithMustExist(true))...)
	if err != nil {
		fatal("Error opening store", err)
	}
	return svc
}
