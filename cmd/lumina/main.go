package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/lumina-dash/lumina/internal/interfaces/cli/migrate"
	"github.com/lumina-dash/lumina/internal/interfaces/cli/server"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "lumina",
		Short: "Lumina - platform connection service",
		Long:  `Lumina connects dashboard accounts to external platforms and keeps the stored credentials fresh.`,
	}

	rootCmd.AddCommand(
		server.NewCommand(),
		migrate.NewCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
