package ingestion

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Config configures the S3 backend. Endpoint switches to path-style
// addressing for S3-compatible stores such as MinIO.
type S3Config struct {
	Bucket    string `envconfig:"BUCKET"`
	Region    string `envconfig:"REGION"`
	Endpoint  string `envconfig:"ENDPOINT"`
	AccessKey string `envconfig:"ACCESS_KEY"`
	SecretKey string `envconfig:"SECRET_KEY"`
	// Prefix is prepended to every object key.
	Prefix string `envconfig:"PREFIX"`
}

// S3Storage keeps run blobs in an S3 bucket.
type S3Storage struct {
	api    *s3.Client
	bucket *string
	prefix string
}

func NewS3Storage(ctx context.Context, cfg S3Config) (*S3Storage, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3 storage: bucket is required")
	}

	loaders := []func(*awsconfig.LoadOptions) error{}
	if cfg.Region != "" {
		loaders = append(loaders, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		static := credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")
		loaders = append(loaders, awsconfig.WithCredentialsProvider(static))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loaders...)
	if err != nil {
		return nil, fmt.Errorf("s3 storage: loading aws config: %w", err)
	}

	api := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint == "" {
			return
		}
		o.BaseEndpoint = aws.String(cfg.Endpoint)
		o.UsePathStyle = true
	})
	return &S3Storage{api: api, bucket: aws.String(cfg.Bucket), prefix: cfg.Prefix}, nil
}

func (s *S3Storage) Put(ctx context.Context, runID, kind string, data []byte) error {
	key := s.prefix + BlobRef(runID, kind)
	_, err := s.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      s.bucket,
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(blobContentType),
		Metadata:    blobMetadata(runID, kind),
	})
	if err != nil {
		return fmt.Errorf("s3 storage: writing %s: %w", key, err)
	}
	return nil
}

func (s *S3Storage) Get(ctx context.Context, runID, kind string) ([]byte, error) {
	key := s.prefix + BlobRef(runID, kind)
	obj, err := s.api.GetObject(ctx, &s3.GetObjectInput{Bucket: s.bucket, Key: aws.String(key)})
	if err != nil {
		var missing *types.NoSuchKey
		if errors.As(err, &missing) {
			return nil, fmt.Errorf("s3 storage: %s: %w", key, ErrBlobNotFound)
		}
		return nil, fmt.Errorf("s3 storage: reading %s: %w", key, err)
	}
	defer obj.Body.Close()

	data, err := io.ReadAll(obj.Body)
	if err != nil {
		return nil, fmt.Errorf("s3 storage: reading %s: %w", key, err)
	}
	return data, nil
}
