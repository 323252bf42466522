package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/dbgate/pkg/config"
)

var envFiles []string

var rootCmd = &cobra.Command{
	Use:   "dbgate",
	Short: "Multi-tenant REST gateway for graph and document databases",
	Long: `dbgate connects to database servers named by each request, keeps one
connection per host and a bounded session pool per database, and leases a
session to every request.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if len(envFiles) == 0 {
			return nil
		}
		return config.LoadEnv(envFiles...)
	},
}

// Execute runs the root command until SIGINT or SIGTERM.
func Execute(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil, "load environment from these .env files, later files win")
	rootCmd.AddCommand(serveCmd, versionCmd, driversCmd)
}
