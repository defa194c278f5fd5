package ingestion

import (
	"context"
	"errors"
	"fmt"
	"io"

	gcs "cloud.google.com/go/storage"
)

// GCSStorage keeps run blobs in a Cloud Storage bucket. Credentials come
// from Application Default Credentials.
type GCSStorage struct {
	client *gcs.Client
	bkt    *gcs.BucketHandle
}

func NewGCSStorage(ctx context.Context, bucket string) (*GCSStorage, error) {
	if bucket == "" {
		return nil, errors.New("gcs storage: bucket is required")
	}
	client, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("gcs storage: creating client: %w", err)
	}
	return &GCSStorage{client: client, bkt: client.Bucket(bucket)}, nil
}

func (s *GCSStorage) Put(ctx context.Context, runID, kind string, data []byte) error {
	key := BlobRef(runID, kind)
	w := s.bkt.Object(key).NewWriter(ctx)
	w.ContentType = blobContentType
	w.Metadata = blobMetadata(runID, kind)

	_, werr := w.Write(data)
	// Close commits the object; it must run even after a failed write.
	cerr := w.Close()
	if err := errors.Join(werr, cerr); err != nil {
		return fmt.Errorf("gcs storage: writing %s: %w", key, err)
	}
	return nil
}

func (s *GCSStorage) Get(ctx context.Context, runID, kind string) ([]byte, error) {
	key := BlobRef(runID, kind)
	r, err := s.bkt.Object(key).NewReader(ctx)
	switch {
	case errors.Is(err, gcs.ErrObjectNotExist):
		return nil, fmt.Errorf("gcs storage: %s: %w", key, ErrBlobNotFound)
	case err != nil:
		return nil, fmt.Errorf("gcs storage: reading %s: %w", key, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("gcs storage: reading %s: %w", key, err)
	}
	return data, nil
}

// Close releases the client.
func (s *GCSStorage) Close() error {
	return s.client.Close()
}
