package main

import (
	"os"

	"github.com/spf13/cobra"

	"supportdesk/internal/interfaces/cli/migrate"
	"supportdesk/internal/interfaces/cli/server"
	"supportdesk/internal/shared/version"
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "supportdesk",
		Short:   "Supportdesk - support ticket conversations",
		Long:    `Supportdesk serves support tickets and their conversations to end users and agents, with live ticket lists, message streams and reply notifications.`,
		Version: version.String(),
	}

	rootCmd.AddCommand(
		server.NewCommand(),
		migrate.NewCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
