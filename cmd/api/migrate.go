package main

import (
	"errors"

	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the PostgreSQL schema",
		Long:  "Creates every table and index the server needs. Safe to run repeatedly.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), func(a *app) error {
				if a.postgres == nil {
					return errors.New("migrate requires STORE=postgres")
				}
				if err := a.postgres.Migrate(cmd.Context()); err != nil {
					return err
				}
				a.logger.Info("database schema applied")
				return nil
			})
		},
	}
}
