package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

func cacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the classification cache",
		RunE:  runCacheStatus,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Remove all cached classification labels",
		RunE:  runCacheClear,
	})

	return cmd
}

func runCacheStatus(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	db, err := openStorage()
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	if err := db.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	size, err := db.CacheSize(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Cached classifications: %d\n", size)
	return nil
}

func runCacheClear(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	db, err := openStorage()
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	if err := db.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := db.ClearCache(ctx); err != nil {
		return err
	}

	slog.Info("Classification cache cleared")
	return nil
}
