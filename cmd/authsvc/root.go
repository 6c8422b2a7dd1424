package main

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for the authsvc CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "authsvc",
		Short: "Account and session service",
		Long: `authsvc issues and rotates bearer sessions for registered accounts.
Configuration is read from the environment and an optional .env file.`,
		SilenceUsage: true,
	}

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewCreateAccountCmd())

	return cmd
}
