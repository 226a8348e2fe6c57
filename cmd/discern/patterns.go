package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func patternsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "patterns",
		Short: "Show resolution patterns from the last run",
		RunE:  runPatterns,
	}
}

func runPatterns(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	db, err := openStorage()
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	if err := db.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	patterns, err := db.GetPatterns(ctx)
	if err != nil {
		return err
	}

	if len(patterns) == 0 {
		fmt.Println("No patterns stored. Run 'discern resolve' first.")
		return nil
	}

	fmt.Println("Resolution Patterns")
	fmt.Println("===================")
	for _, p := range patterns {
		fmt.Fprintf(os.Stdout, "\nPattern %d (%d comments)\n", p.Cluster, p.Size)
		fmt.Fprintf(os.Stdout, "  Exemplar [%s]: %s\n", p.ExemplarOrderID, p.Exemplar)
	}
	return nil
}
