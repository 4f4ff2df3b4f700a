package imagestore

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/mealsnap/mealsnap/internal/domain/capture"
)

// MinioArchive stores captured frames in an S3-compatible bucket.
type MinioArchive struct {
	client *minio.Client
	bucket string
	logger *slog.Logger
}

// NewMinioArchive constructs the archive adapter.
func NewMinioArchive(endpoint, accessKey, secretKey, bucket, region string, logger *slog.Logger) (*MinioArchive, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cleanEndpoint := sanitizeEndpoint(endpoint)
	useSSL := strings.HasPrefix(strings.ToLower(endpoint), "https")
	client, err := minio.New(cleanEndpoint, &minio.Options{
		Creds:        credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure:       useSSL,
		Region:       region,
		BucketLookup: minio.BucketLookupPath,
	})
	if err != nil {
		return nil, fmt.Errorf("init archive client: %w", err)
	}
	return &MinioArchive{client: client, bucket: bucket, logger: logger.With("component", "imagestore.minio")}, nil
}

func (s *MinioArchive) ensureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err == nil && exists {
		return nil
	}
	err = s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{})
	if err != nil && minio.ToErrorResponse(err).Code != "BucketAlreadyOwnedByYou" {
		return err
	}
	return nil
}

// Put uploads a captured frame.
func (s *MinioArchive) Put(ctx context.Context, key string, data []byte, mimeType string) error {
	if err := s.ensureBucket(ctx); err != nil {
		return err
	}
	reader := bytes.NewReader(data)
	_, err := s.client.PutObject(ctx, s.bucket, key, reader, int64(len(data)), minio.PutObjectOptions{
		ContentType:      mimeType,
		DisableMultipart: len(data) < 5*1024*1024, // small uploads as single part
	})
	if err != nil {
		return err
	}
	s.logger.Debug("capture archived", "key", key, "bytes", len(data))
	return nil
}

func sanitizeEndpoint(endpoint string) string {
	clean := strings.TrimSpace(endpoint)
	clean = strings.TrimPrefix(clean, "https://")
	clean = strings.TrimPrefix(clean, "http://")
	return strings.TrimRight(clean, "/")
}

var _ capture.Archive = (*MinioArchive)(nil)
