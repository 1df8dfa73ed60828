package storage

import (
	"context"
	"errors"
	"io"
	"time"

	"cloud.google.com/go/storage"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/noteflow/pkg/domain/interfaces"
	"github.com/secmon-lab/noteflow/pkg/utils/safe"
	"google.golang.org/api/option"
)

// GCS stores objects in one Cloud Storage bucket
type GCS struct {
	client *storage.Client
	bucket string
	prefix string
}

var _ interfaces.BlobStore = &GCS{}

// GCSOption configures GCS
type GCSOption func(*gcsConfig)

type gcsConfig struct {
	prefix  string
	options []option.ClientOption
}

// WithObjectPrefix prepends prefix to every key
func WithObjectPrefix(prefix string) GCSOption {
	return func(c *gcsConfig) {
		c.prefix = prefix
	}
}

// WithClientOptions passes options to the Cloud Storage client
func WithClientOptions(opts ...option.ClientOption) GCSOption {
	return func(c *gcsConfig) {
		c.options = append(c.options, opts...)
	}
}

// NewGCS creates a Cloud Storage backed store
func NewGCS(ctx context.Context, bucket string, opts ...GCSOption) (*GCS, error) {
	if bucket == "" {
		return nil, goerr.New("bucket is required")
	}

	var cfg gcsConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	client, err := storage.NewClient(ctx, cfg.options...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create storage client", goerr.V("bucket", bucket))
	}

	return &GCS{client: client, bucket: bucket, prefix: cfg.prefix}, nil
}

func (s *GCS) object(key string) *storage.ObjectHandle {
	return s.client.Bucket(s.bucket).Object(s.prefix + key)
}

func (s *GCS) Put(ctx context.Context, key string, data []byte, contentType string) error {
	w := s.object(key).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := w.Write(data); err != nil {
		safe.Close(ctx, w)
		return goerr.Wrap(err, "failed to write object", goerr.V("key", key))
	}
	if err := w.Close(); err != nil {
		return goerr.Wrap(err, "failed to finalize object", goerr.V("key", key))
	}
	return nil
}

func (s *GCS) Get(ctx context.Context, key string) ([]byte, error) {
	r, err := s.object(key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, goerr.Wrap(ErrObjectNotFound, "object not found", goerr.V("key", key))
		}
		return nil, goerr.Wrap(err, "failed to open object", goerr.V("key", key))
	}
	defer safe.Close(ctx, r)

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read object", goerr.V("key", key))
	}
	return data, nil
}

func (s *GCS) Delete(ctx context.Context, key string) error {
	if err := s.object(key).Delete(ctx); err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil
		}
		return goerr.Wrap(err, "failed to delete object", goerr.V("key", key))
	}
	return nil
}

func (s *GCS) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	url, err := s.client.Bucket(s.bucket).SignedURL(s.prefix+key, &storage.SignedURLOptions{
		Scheme:  storage.SigningSchemeV4,
		Method:  "GET",
		Expires: time.Now().Add(ttl),
	})
	if err != nil {
		return "", goerr.Wrap(err, "failed to sign object url", goerr.V("key", key))
	}
	return url, nil
}

// Close releases the client
func (s *GCS) Close() error {
	return s.client.Close()
}
