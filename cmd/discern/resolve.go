package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"discern/internal/engine"
	"discern/internal/gcs"
	"discern/internal/ingest"
	"discern/internal/model"
	"discern/internal/report"
	"discern/internal/storage"
)

func resolveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Classify discrepancies and cluster resolution patterns",
		Long: `Run the full resolution pipeline over a discrepancy feed.

Every record with a System B status of Not Found-SysB is joined with its
resolution comment, classified as Resolved or Unresolved, clustered (resolved
records only), and routed to a terminal disposition.

Examples:
  discern resolve --data feed.csv --comments comments.csv
  discern resolve --data feed.csv --comments comments.csv --output ./out
  discern resolve --data feed.csv --comments comments.csv --upload --bucket my-bucket`,
		RunE: runResolve,
	}

	cmd.Flags().StringP("data", "d", "", "discrepancy feed CSV (required)")
	cmd.Flags().StringP("comments", "c", "", "resolution comments CSV (required)")
	cmd.Flags().StringP("output", "o", ".", "directory for report artifacts")
	cmd.Flags().IntP("workers", "w", 0, "concurrent classification workers")
	cmd.Flags().IntP("clusters", "k", 0, "number of pattern clusters")
	cmd.Flags().Int64("seed", 42, "clustering seed for reproducible patterns")
	cmd.Flags().Bool("no-cluster", false, "skip the pattern clustering phase")
	cmd.Flags().Bool("upload", false, "upload artifacts to cloud storage")
	cmd.Flags().String("bucket", "", "cloud storage bucket for uploads")

	_ = cmd.MarkFlagRequired("data")
	_ = cmd.MarkFlagRequired("comments")

	_ = viper.BindPFlag("resolve.workers", cmd.Flags().Lookup("workers"))
	_ = viper.BindPFlag("resolve.clusters", cmd.Flags().Lookup("clusters"))
	_ = viper.BindPFlag("resolve.seed", cmd.Flags().Lookup("seed"))
	_ = viper.BindPFlag("clustering.disabled", cmd.Flags().Lookup("no-cluster"))
	_ = viper.BindPFlag("gcs.bucket", cmd.Flags().Lookup("bucket"))

	return cmd
}

func runResolve(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	dataPath, _ := cmd.Flags().GetString("data")
	commentsPath, _ := cmd.Flags().GetString("comments")
	outputDir, _ := cmd.Flags().GetString("output")
	upload, _ := cmd.Flags().GetBool("upload")

	records, err := loadRecords(dataPath, commentsPath)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		slog.Info("No Not Found-SysB discrepancies to process")
		return nil
	}

	db, err := openStorage()
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("Failed to close database", "error", closeErr)
		}
	}()

	if err := db.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	classifier, err := createClassifier(db)
	if err != nil {
		return err
	}
	defer func() { _ = classifier.Close() }()
	classifier.Warm(ctx)

	embedder, err := createEmbedder()
	if err != nil {
		// A missing embedding backend degrades to an unclustered run.
		slog.Warn("Embedding engine unavailable, clustering disabled", "error", err)
		embedder = nil
	}

	bar := newProgressBar(len(records))
	cfg := engine.Config{
		Workers:      viper.GetInt("resolve.workers"),
		ClusterCount: viper.GetInt("resolve.clusters"),
		Seed:         viper.GetInt64("resolve.seed"),
		OnProgress: func(_, _ int) {
			_ = bar.Add(1)
		},
	}

	eng := engine.New(classifier, embedder, db, cfg, slog.Default())
	result, runErr := eng.Run(ctx, records)

	classifier.Flush(context.WithoutCancel(ctx))

	if result != nil {
		persistRun(ctx, db, result)
		if err := writeArtifacts(outputDir, result); err != nil {
			return err
		}
		if upload {
			if err := uploadArtifacts(ctx, outputDir, records, result); err != nil {
				return err
			}
		}
		_ = report.WriteRunSummary(os.Stdout, result.Stats)
	}

	return runErr
}

func loadRecords(dataPath, commentsPath string) ([]model.DiscrepancyRecord, error) {
	rows, err := ingest.ReadDiscrepancyFile(dataPath)
	if err != nil {
		return nil, err
	}
	rows = ingest.FilterNotFound(ingest.Clean(rows), viper.GetString("ingest.not_found_value"))

	comments, err := ingest.ReadCommentsFile(commentsPath)
	if err != nil {
		return nil, err
	}

	slog.Info("Loaded discrepancy feed",
		"records", len(rows),
		"comments", len(comments))

	return ingest.Merge(rows, comments), nil
}

func persistRun(ctx context.Context, db *storage.SQLiteStorage, result *engine.RunResult) {
	// The run context may already be canceled; these results are final and
	// must land regardless.
	ctx = context.WithoutCancel(ctx)
	for i := range result.Classifications {
		if err := db.SaveClassification(ctx, &result.Classifications[i]); err != nil {
			slog.Error("Failed to save classification",
				"order_id", result.Classifications[i].OrderID,
				"error", err)
		}
	}
	if result.Stats.Clustered {
		if err := db.SaveClusterAssignments(ctx, result.Assignments); err != nil {
			slog.Error("Failed to save cluster assignments", "error", err)
		}
		if err := db.SavePatterns(ctx, result.Patterns); err != nil {
			slog.Error("Failed to save patterns", "error", err)
		}
	}
}

func writeArtifacts(outputDir string, result *engine.RunResult) error {
	if err := os.MkdirAll(outputDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	dispositionsPath := filepath.Join(outputDir, "dispositions.csv")
	f, err := os.Create(dispositionsPath) // #nosec G304 -- user-supplied output dir
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dispositionsPath, err)
	}
	if err := report.WriteDispositionCSV(f, result.Dispositions); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", dispositionsPath, err)
	}

	patternsPath := filepath.Join(outputDir, "patterns.txt")
	pf, err := os.Create(patternsPath) // #nosec G304 -- user-supplied output dir
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", patternsPath, err)
	}
	if err := report.WritePatternReport(pf, result.Patterns, result.Assignments); err != nil {
		_ = pf.Close()
		return err
	}
	if err := pf.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", patternsPath, err)
	}

	slog.Info("Wrote run artifacts",
		"dispositions", dispositionsPath,
		"patterns", patternsPath)
	return nil
}

func uploadArtifacts(ctx context.Context, outputDir string, records []model.DiscrepancyRecord, result *engine.RunResult) error {
	store, err := gcs.NewStore(ctx, gcs.Config{
		Bucket:          viper.GetString("gcs.bucket"),
		CredentialsFile: viper.GetString("gcs.credentials_file"),
	}, slog.Default())
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	comments := make(map[string]string, len(records))
	for _, r := range records {
		comments[r.OrderID] = r.Comment
	}

	for _, cr := range result.Classifications {
		folder := gcs.FolderUnresolved
		if cr.Status == model.StatusResolved {
			folder = gcs.FolderResolved
		}
		note := report.ResolutionNote(cr, comments[cr.OrderID])
		if err := store.UploadString(ctx, gcs.NoteKey(folder, cr.OrderID), note); err != nil {
			slog.Error("Failed to upload resolution note",
				"order_id", cr.OrderID,
				"error", err)
		}
	}

	if err := store.UploadFile(ctx, "", filepath.Join(outputDir, "dispositions.csv")); err != nil {
		return err
	}
	if err := store.UploadFile(ctx, "", filepath.Join(outputDir, "patterns.txt")); err != nil {
		return err
	}

	slog.Info("Uploaded run artifacts", "bucket", viper.GetString("gcs.bucket"))
	return nil
}

func newProgressBar(total int) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("Classifying comments..."),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(os.Stderr)
		}),
	)
}
