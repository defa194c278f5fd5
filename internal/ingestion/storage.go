// Package ingestion runs the persisted scoring pipeline: archive the input
// batch, score it, archive the result and record the run.
package ingestion

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
)

// Blob kinds stored per run.
const (
	KindBatch  = "batch"
	KindResult = "result"
)

const blobContentType = "application/json"

// ErrBlobNotFound is returned by every backend when a run has no blob of the
// requested kind.
var ErrBlobNotFound = errors.New("blob not found")

// StorageClient abstracts blob storage for run inputs and results.
type StorageClient interface {
	Put(ctx context.Context, runID, kind string, data []byte) error
	Get(ctx context.Context, runID, kind string) ([]byte, error)
}

// BlobRef is the storage key of a run's blob, shared by every backend.
func BlobRef(runID, kind string) string {
	return path.Join("runs", runID, kind+".json")
}

func blobMetadata(runID, kind string) map[string]string {
	return map[string]string{"run-id": runID, "kind": kind}
}

// StorageConfig selects and configures a blob backend.
type StorageConfig struct {
	Backend   string `envconfig:"BACKEND" default:"local"` // local, s3 or gcs
	LocalPath string `envconfig:"LOCAL_PATH" default:"/tmp/tierscore-data"`
	Bucket    string `envconfig:"BUCKET"`
	S3        S3Config
}

// NewStorage builds the configured backend.
func NewStorage(ctx context.Context, cfg StorageConfig) (StorageClient, error) {
	switch cfg.Backend {
	case "", "local":
		return NewLocalStorage(cfg.LocalPath), nil
	case "s3":
		s3cfg := cfg.S3
		if s3cfg.Bucket == "" {
			s3cfg.Bucket = cfg.Bucket
		}
		return NewS3Storage(ctx, s3cfg)
	case "gcs":
		return NewGCSStorage(ctx, cfg.Bucket)
	}
	return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
}

// LocalStorage implements StorageClient using the local filesystem.
// Useful for development and testing.
type LocalStorage struct {
	BaseDir string
}

// NewLocalStorage creates a LocalStorage rooted at the given directory.
func NewLocalStorage(baseDir string) *LocalStorage {
	return &LocalStorage{BaseDir: baseDir}
}

func (s *LocalStorage) path(runID, kind string) string {
	return filepath.Join(s.BaseDir, filepath.FromSlash(BlobRef(runID, kind)))
}

// Put stores a blob, creating parent directories as needed.
func (s *LocalStorage) Put(ctx context.Context, runID, kind string, data []byte) error {
	p := s.path(runID, kind)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	return os.WriteFile(p, data, 0o644)
}

// Get retrieves a blob.
func (s *LocalStorage) Get(ctx context.Context, runID, kind string) ([]byte, error) {
	data, err := os.ReadFile(s.path(runID, kind))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("local storage: %s: %w", BlobRef(runID, kind), ErrBlobNotFound)
	}
	return data, err
}
