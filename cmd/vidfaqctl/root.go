package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/binyominzeev/vidfaq/internal/config"
)

func newRootCommand() *cobra.Command {
	var configFlag string

	rootCmd := &cobra.Command{
		Use:           "vidfaqctl",
		Short:         "VidFAQ operator tools",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path (default $CONFIG_PATH or config.yaml)")

	load := func() (*config.Config, error) {
		path := configFlag
		if path == "" {
			path = os.Getenv("CONFIG_PATH")
		}
		if path == "" {
			path = "config.yaml"
		}
		return config.Load(path)
	}

	rootCmd.AddCommand(newTokenCommand(load))
	rootCmd.AddCommand(newQueueCommand(load))

	return rootCmd
}
