package snapshot

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/couchcryptid/ca-cities-import/internal/config"
	"github.com/couchcryptid/ca-cities-import/internal/domain"
)

// Archiver stores the raw CSV behind each import in an S3-compatible bucket.
// It implements pipeline.Archiver.
type Archiver struct {
	client *minio.Client
	bucket string
	logger *slog.Logger
}

// NewArchiver connects to the configured MinIO endpoint.
func NewArchiver(cfg *config.Config, logger *slog.Logger) (*Archiver, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	return &Archiver{client: client, bucket: cfg.SnapshotBucket, logger: logger}, nil
}

// Archive uploads src.Raw under the run's prefix and returns the object key.
// Sources without raw bytes (the builtin list) are skipped with an empty key.
func (a *Archiver) Archive(ctx context.Context, runID string, src domain.Source) (string, error) {
	if len(src.Raw) == 0 {
		return "", nil
	}

	if err := a.ensureBucket(ctx); err != nil {
		return "", err
	}

	key := objectKey(runID)
	_, err := a.client.PutObject(ctx, a.bucket, key,
		bytes.NewReader(src.Raw), int64(len(src.Raw)),
		minio.PutObjectOptions{
			ContentType: "text/csv",
			UserMetadata: map[string]string{
				"tier":   string(src.Tier),
				"origin": src.Origin,
			},
		})
	if err != nil {
		return "", fmt.Errorf("store snapshot %s: %w", key, err)
	}

	a.logger.Info("source snapshot stored", "bucket", a.bucket, "key", key, "bytes", len(src.Raw))
	return key, nil
}

func (a *Archiver) ensureBucket(ctx context.Context) error {
	exists, err := a.client.BucketExists(ctx, a.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", a.bucket, err)
	}
	if exists {
		return nil
	}
	if err := a.client.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("create bucket %s: %w", a.bucket, err)
	}
	return nil
}

func objectKey(runID string) string {
	return path.Join("snapshots", runID, config.LocalCSVName)
}
