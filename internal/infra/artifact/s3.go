package artifact

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// S3Source reads artifacts from an S3 compatible bucket (MinIO, R2).
type S3Source struct {
	client *minio.Client
	bucket string
	prefix string
	logger *slog.Logger
}

// NewS3Source constructs the bucket adapter.
func NewS3Source(endpoint, accessKey, secretKey, bucket, region, prefix string, logger *slog.Logger) (*S3Source, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cleanEndpoint := sanitizeEndpoint(endpoint)
	useSSL := strings.HasPrefix(strings.ToLower(strings.TrimSpace(endpoint)), "https")
	client, err := minio.New(cleanEndpoint, &minio.Options{
		Creds:        credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure:       useSSL,
		Region:       region,
		BucketLookup: minio.BucketLookupPath,
	})
	if err != nil {
		return nil, fmt.Errorf("init s3 client: %w", err)
	}
	return &S3Source{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
		logger: logger.With("component", "artifact.s3"),
	}, nil
}

// Open fetches an object for reading.
func (s *S3Source) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	key := objectKey(s.prefix, name)
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get artifact %s: %w", key, err)
	}
	// GetObject is lazy; Stat surfaces missing keys before decoding starts.
	if _, statErr := obj.Stat(); statErr != nil {
		_ = obj.Close()
		if minio.ToErrorResponse(statErr).Code == "NoSuchKey" {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("stat artifact %s: %w", key, statErr)
	}
	s.logger.Debug("artifact opened", "bucket", s.bucket, "key", key)
	return obj, nil
}

var _ Source = (*S3Source)(nil)

func objectKey(prefix, name string) string {
	name = strings.TrimPrefix(name, "/")
	if prefix == "" {
		return name
	}
	return path.Join(prefix, name)
}

// sanitizeEndpoint removes schemes and paths to satisfy minio.New expectations.
func sanitizeEndpoint(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return raw
	}
	raw = strings.TrimPrefix(strings.TrimPrefix(raw, "https://"), "http://")
	if strings.Contains(raw, "/") {
		parts := strings.Split(raw, "/")
		raw = parts[0]
	}
	return raw
}
