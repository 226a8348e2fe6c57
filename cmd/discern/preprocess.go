package main

import (
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"discern/internal/gcs"
	"discern/internal/ingest"
)

func preprocessCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preprocess",
		Short: "Clean and filter the discrepancy feed",
		Long: `Deduplicate the discrepancy feed, keep only Not Found-SysB rows, and
export the reduced three-column CSV consumed by downstream systems.`,
		RunE: runPreprocess,
	}

	cmd.Flags().StringP("data", "d", "", "discrepancy feed CSV (required)")
	cmd.Flags().StringP("output", "o", "preprocessed_output.csv", "output CSV path")
	cmd.Flags().Bool("upload", false, "upload the output to cloud storage")
	cmd.Flags().String("bucket", "", "cloud storage bucket for uploads")

	_ = cmd.MarkFlagRequired("data")
	_ = viper.BindPFlag("gcs.bucket", cmd.Flags().Lookup("bucket"))

	return cmd
}

func runPreprocess(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	dataPath, _ := cmd.Flags().GetString("data")
	outputPath, _ := cmd.Flags().GetString("output")
	upload, _ := cmd.Flags().GetBool("upload")

	rows, err := ingest.ReadDiscrepancyFile(dataPath)
	if err != nil {
		return err
	}

	total := len(rows)
	rows = ingest.FilterNotFound(ingest.Clean(rows), viper.GetString("ingest.not_found_value"))

	if err := ingest.WriteCSVFile(outputPath, rows); err != nil {
		return err
	}

	slog.Info("Preprocessed discrepancy feed",
		"input_rows", total,
		"output_rows", len(rows),
		"output", outputPath)

	if !upload {
		return nil
	}

	store, err := gcs.NewStore(ctx, gcs.Config{
		Bucket:          viper.GetString("gcs.bucket"),
		CredentialsFile: viper.GetString("gcs.credentials_file"),
	}, slog.Default())
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	return store.UploadFile(ctx, "", outputPath)
}
