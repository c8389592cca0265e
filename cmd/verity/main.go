package main

import (
	"os"

	"github.com/spf13/cobra"

	"verity/internal/interfaces/cli/migrate"
	"verity/internal/interfaces/cli/server"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "verity",
		Short: "Verity - identity verification and billing for tokenized assets",
		Long:  `Verity runs KYC verification and subscription billing for tokenized real-world assets, reconciling provider webhooks into a consistent local state.`,
	}

	rootCmd.AddCommand(
		server.NewCommand(),
		migrate.NewCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
