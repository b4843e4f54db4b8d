// Package minio reads input tables from and writes the opportunity artifact to
// an S3-compatible object store.
package minio

import (
	"context"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/turtacn/OpportunityRadar/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/OpportunityRadar/pkg/errors"
)

// MinIOAPI is the subset of *minio.Client used by this package.
type MinIOAPI interface {
	ListBuckets(ctx context.Context) ([]minio.BucketInfo, error)
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (*minio.Object, error)
	StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
}

// Config configures the object store connection.
type Config struct {
	Endpoint        string        `mapstructure:"endpoint"`
	AccessKeyID     string        `mapstructure:"access_key_id"`
	SecretAccessKey string        `mapstructure:"secret_access_key"`
	UseSSL          bool          `mapstructure:"use_ssl"`
	Region          string        `mapstructure:"region"`
	CreateBucket    bool          `mapstructure:"create_bucket"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
}

func applyDefaults(cfg *Config) {
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
}

// Client wraps the object store API.
type Client struct {
	api    MinIOAPI
	config Config
	logger logging.Logger

	// open fetches an object body; it stats the object first so a missing
	// key surfaces here rather than on the first Read.
	open func(ctx context.Context, bucket, key string) (io.ReadCloser, error)
}

// NewClient connects to the endpoint in cfg and verifies the connection.
func NewClient(cfg Config, logger logging.Logger) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, errors.NewValidation("minio endpoint is required")
	}
	applyDefaults(&cfg)

	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorage, "failed to create minio client")
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancel()
	if _, err := mc.ListBuckets(ctx); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeServiceUnavailable, "failed to connect to minio")
	}

	c := newClientWithAPI(mc, cfg, logger)
	c.logger.Info("MinIO client connected", logging.String("endpoint", cfg.Endpoint), logging.Bool("ssl", cfg.UseSSL))
	return c, nil
}

func newClientWithAPI(api MinIOAPI, cfg Config, logger logging.Logger) *Client {
	applyDefaults(&cfg)
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	c := &Client{api: api, config: cfg, logger: logger.Named("minio")}
	c.open = c.openObject
	return c
}

func (c *Client) openObject(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	obj, err := c.api.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		return nil, err
	}
	return obj, nil
}

// EnsureBucket creates bucket when it does not exist.
func (c *Client) EnsureBucket(ctx context.Context, bucket string) error {
	exists, err := c.api.BucketExists(ctx, bucket)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeStorage, "failed to check bucket existence")
	}
	if exists {
		return nil
	}
	if err := c.api.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: c.config.Region}); err != nil {
		return errors.New(errors.ErrCodeStorage, "failed to create bucket").WithCause(err).WithDetail(bucket)
	}
	c.logger.Info("Created bucket", logging.String("bucket", bucket))
	return nil
}

// Get reads the whole object.  A missing object is ErrCodeArtifactNotFound.
func (c *Client) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	rc, err := c.open(ctx, bucket, key)
	if err != nil {
		if isNotFound(err) {
			return nil, errors.New(errors.ErrCodeArtifactNotFound, "object not found").WithDetail(bucket + "/" + key)
		}
		return nil, errors.New(errors.ErrCodeStorage, "failed to get object").WithCause(err).WithDetail(bucket + "/" + key)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, errors.New(errors.ErrCodeStorage, "failed to read object").WithCause(err).WithDetail(bucket + "/" + key)
	}
	return data, nil
}

// Put uploads data as a single object.  The object becomes visible only once
// the upload completes.
func (c *Client) Put(ctx context.Context, bucket, key string, r io.Reader, size int64, contentType string) error {
	if c.config.CreateBucket {
		if err := c.EnsureBucket(ctx, bucket); err != nil {
			return err
		}
	}
	info, err := c.api.PutObject(ctx, bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return errors.New(errors.ErrCodeStorage, "failed to put object").WithCause(err).WithDetail(bucket + "/" + key)
	}
	c.logger.Debug("object uploaded",
		logging.String("bucket", bucket),
		logging.String("key", key),
		logging.Int64("size", info.Size))
	return nil
}

// HealthCheck lists buckets to verify connectivity.
func (c *Client) HealthCheck(ctx context.Context) error {
	if _, err := c.api.ListBuckets(ctx); err != nil {
		return errors.Wrap(err, errors.ErrCodeServiceUnavailable, "minio health check failed")
	}
	return nil
}

func isNotFound(err error) bool {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchBucket":
		return true
	}
	return false
}
