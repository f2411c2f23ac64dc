package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	changes "github.com/aretw0/setlist/pkg/adapters/lifecycle"
	"github.com/aretw0/setlist/pkg/core"
)

var watchPattern string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print setlist changes made by any process until interrupted",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		svc := openService()
		events, err := svc.Watch(ctx, watchPattern)
		if err != nil {
			fatal("Error starting watcher", err)
		}

		src := changes.NewSource(events)
		if err := src.Start(ctx); err != nil {
			fatal("Error starting watcher", err)
		}

		out := cmd.OutOrStdout()
		for e := range src.Events() {
			title := ""
			if ce, ok := e.(core.Event); ok && ce.Type != core.EventDelete {
				if doc, err := svc.Get(ctx, ce.ID); err == nil {
					title = doc.Title
				}
			}
			fmt.Fprintf(out, "%s %s %s\n", faint(time.Now().Format("15:04:05")), e, title)
		}
	},
}

func init() {
	watchCmd.Flags().StringVar(&watchPattern, "pattern", "", "Glob of setlist files to watch (fs adapter only)")
	rootCmd.AddCommand(watchCmd)
}
