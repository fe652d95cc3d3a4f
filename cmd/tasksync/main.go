package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nhle/tasksync/internal/model"
)

// Version is set at build time.
var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "tasksync",
		Short: "Personal task list kept in sync across devices",
		Long: `tasksync keeps a personal task list with subtasks in a shared
remote store. Every device signed in as the same user sees changes
as soon as the store broadcasts them.

Run without arguments to open the interactive task list.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd.Context(), configPath)
		},
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", model.DefaultConfigPath(), "path to the config file")

	rootCmd.AddCommand(loginCmd(&configPath))
	rootCmd.AddCommand(logoutCmd(&configPath))
	rootCmd.AddCommand(listCmd(&configPath))
	rootCmd.AddCommand(addCmd(&configPath))

	return rootCmd
}
