package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/jsamuelsen/quotesync/internal/domain"
	"github.com/jsamuelsen/quotesync/internal/platform/config"
)

// BucketSink uploads exports to an S3-compatible bucket.
type BucketSink struct {
	client *minio.Client
	bucket string
	region string
	prefix string

	mu     sync.Mutex
	exists bool
}

// NewBucketSink creates a sink for cfg. No request is made until the first write.
func NewBucketSink(cfg config.ObjectStoreConfig) (*BucketSink, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, errors.New("bucket endpoint is required")
	}

	if strings.TrimSpace(cfg.Name) == "" {
		return nil, errors.New("bucket name is required")
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("creating object storage client: %w", err)
	}

	return &BucketSink{
		client: client,
		bucket: cfg.Name,
		region: region,
		prefix: cfg.Prefix,
	}, nil
}

// Name implements ports.ExportSink.
func (s *BucketSink) Name() string { return "bucket" }

// Write uploads body under the configured prefix and returns an s3:// URL.
func (s *BucketSink) Write(ctx context.Context, filename string, body io.Reader, size int64) (string, error) {
	if err := s.ensureBucket(ctx); err != nil {
		return "", domain.NewUnavailableError("bucket", err.Error())
	}

	key := objectKey(s.prefix, filename)

	info, err := s.client.PutObject(ctx, s.bucket, key, body, size, minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return "", domain.NewUnavailableError("bucket", fmt.Sprintf("uploading %s: %v", key, err))
	}

	return fmt.Sprintf("s3://%s/%s", info.Bucket, info.Key), nil
}

// Check implements ports.HealthChecker.
func (s *BucketSink) Check(ctx context.Context) error {
	if _, err := s.client.BucketExists(ctx, s.bucket); err != nil {
		return domain.NewUnavailableError("bucket", err.Error())
	}

	return nil
}

// ensureBucket creates the bucket once. A failed attempt is retried on the next write.
func (s *BucketSink) ensureBucket(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.exists {
		return nil
	}

	ok, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("checking bucket: %w", err)
	}

	if !ok {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
			return fmt.Errorf("creating bucket: %w", err)
		}
	}

	s.exists = true

	return nil
}

func objectKey(prefix, filename string) string {
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	filename = strings.TrimLeft(strings.TrimSpace(filename), "/")

	if prefix == "" {
		return filename
	}

	return prefix + "/" + filename
}
