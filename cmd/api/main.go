// Package main provides the entry point for the membership network API server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var version = "0.1.0-dev"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// Load .env file if exists
	_ = godotenv.Load()

	serve := newServeCmd()

	rootCmd := &cobra.Command{
		Use:           "panglobal",
		Short:         "Membership network backend: connections, forum and resource library",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serve.RunE,
	}
	rootCmd.Flags().AddFlagSet(serve.Flags())

	rootCmd.AddCommand(
		serve,
		newMigrateCmd(),
		newReconcileCmd(),
	)

	return rootCmd.ExecuteContext(ctx)
}
