package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"discern/internal/storage"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := openStorage()
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			if err := db.Migrate(cmd.Context()); err != nil {
				return err
			}

			slog.Info("Database schema up to date",
				"version", storage.ExpectedSchemaVersion)
			return nil
		},
	}
}
