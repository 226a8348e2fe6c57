// Package gcs uploads run artifacts to Google Cloud Storage. Resolved and
// unresolved notes land under processed/resolved and processed/unresolved;
// the preprocessed feed and reports go to the bucket root.
package gcs

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// Folder layout inside the bucket.
const (
	FolderResolved   = "processed/resolved"
	FolderUnresolved = "processed/unresolved"
)

const uploadTimeout = 2 * time.Minute

// Config holds the bucket target and optional credentials file. With no
// credentials file the client falls back to application default credentials.
type Config struct {
	Bucket          string
	CredentialsFile string
}

// Store writes artifacts to a single GCS bucket.
type Store struct {
	client *storage.Client
	logger *slog.Logger
	bucket string
}

// NewStore creates a bucket-scoped store.
func NewStore(ctx context.Context, cfg Config, logger *slog.Logger) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}

	var opts []option.ClientOption
	opts = append(opts, option.WithScopes(storage.ScopeReadWrite))
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	logger.Info("object storage initialized", "bucket", cfg.Bucket)

	return &Store{
		client: client,
		logger: logger.With("component", "gcs"),
		bucket: cfg.Bucket,
	}, nil
}

// Upload writes content to the given object key.
func (s *Store) Upload(ctx context.Context, key string, content io.Reader) error {
	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	if ct := contentTypeForKey(key); ct != "" {
		w.ContentType = ct
	}
	if _, err := io.Copy(w, content); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to write object %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close writer for %s: %w", key, err)
	}

	s.logger.Debug("uploaded object", "key", key)
	return nil
}

// UploadString writes a text artifact to the given object key.
func (s *Store) UploadString(ctx context.Context, key, content string) error {
	return s.Upload(ctx, key, strings.NewReader(content))
}

// UploadFile uploads a local file, keeping its base name under the given
// folder.
func (s *Store) UploadFile(ctx context.Context, folder, localPath string) error {
	f, err := os.Open(localPath) // #nosec G304 -- user-supplied artifact path
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", localPath, err)
	}
	defer func() { _ = f.Close() }()

	key := path.Join(folder, path.Base(localPath))
	return s.Upload(ctx, key, f)
}

// NoteKey builds the object key for a per-order resolution note.
func NoteKey(folder, orderID string) string {
	return path.Join(folder, fmt.Sprintf("%s.txt", orderID))
}

// Close releases the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

func contentTypeForKey(key string) string {
	switch strings.ToLower(path.Ext(key)) {
	case ".csv":
		return "text/csv"
	case ".txt":
		return "text/plain"
	case ".json":
		return "application/json"
	default:
		return ""
	}
}
