package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/setlist"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a setlist store in the current (or --dir) directory",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		path := dir
		if path == "" {
			wd, err := os.Getwd()
			if err != nil {
				fatal("Error getting working directory", err)
			}
			path = wd
		}

		repo, err := setlist.Init(path, storeOptions()...)
		if err != nil {
			fatal("Error initializing store", err)
		}
		if c, ok := repo.(interface{ Close() error }); ok {
			_ = c.Close()
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Initialized setlist store in %s\n", path)
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
