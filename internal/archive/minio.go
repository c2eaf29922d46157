package archive

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

const (
	defaultBucket = "aerae-documents"
	objectPrefix  = "documents"
)

type MinioOpts func(c *minioConfig)

type minioConfig struct {
	endpoint        string
	bucket          string
	accessKey       string
	secretAccessKey string
	useSSL          bool
}

func newConfig(opts ...MinioOpts) *minioConfig {
	cfg := &minioConfig{
		useSSL: false,
		bucket: defaultBucket,
	}

	for _, o := range opts {
		o(cfg)
	}
	return cfg
}

// MinioArchive copies uploaded documents to an S3 compatible bucket.
type MinioArchive struct {
	cfg    *minioConfig
	client *minio.Client
}

func NewMinioArchive(opts ...MinioOpts) (*MinioArchive, error) {
	cfg := newConfig(opts...)
	if cfg.endpoint == "" {
		return nil, fmt.Errorf("archive endpoint is not set")
	}

	minioClient, err := minio.New(cfg.endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.accessKey, cfg.secretAccessKey, ""),
		Secure: cfg.useSSL,
	})
	if err != nil {
		return nil, err
	}

	return &MinioArchive{cfg: cfg, client: minioClient}, nil
}

// EnsureBucket creates the bucket when it does not exist yet.
func (m *MinioArchive) EnsureBucket(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.cfg.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", m.cfg.bucket, err)
	}
	if exists {
		return nil
	}
	if err := m.client.MakeBucket(ctx, m.cfg.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", m.cfg.bucket, err)
	}
	zap.S().Named("archive").Infof("created bucket %s", m.cfg.bucket)
	return nil
}

// Archive uploads the file at path as documents/<job id>.pdf and returns the object key.
func (m *MinioArchive) Archive(ctx context.Context, jobID uuid.UUID, path string) (string, error) {
	key := ObjectKey(jobID)
	info, err := m.client.FPutObject(ctx, m.cfg.bucket, key, path, minio.PutObjectOptions{ContentType: "application/pdf"})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}
	zap.S().Named("archive").Debugf("archived %s (%d bytes)", key, info.Size)
	return key, nil
}

func (m *MinioArchive) Type() string {
	return "minio"
}

func ObjectKey(jobID uuid.UUID) string {
	return fmt.Sprintf("%s/%s.pdf", objectPrefix, jobID)
}

func WithEndpoint(endpoint string) MinioOpts {
	return func(c *minioConfig) {
		c.endpoint = endpoint
	}
}

func WithBucket(bucket string) MinioOpts {
	return func(c *minioConfig) {
		if bucket != "" {
			c.bucket = bucket
		}
	}
}

func WithAccessKey(accessKey string) MinioOpts {
	return func(c *minioConfig) {
		c.accessKey = accessKey
	}
}

func WithSecretKey(secretKey string) MinioOpts {
	return func(c *minioConfig) {
		c.secretAccessKey = secretKey
	}
}

func WithSSL(useSSL bool) MinioOpts {
	return func(c *minioConfig) {
		c.useSSL = useSSL
	}
}
