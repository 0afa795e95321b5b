// Package storage resolves and stores lesson content in S3-compatible object storage.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

var ErrEmptyRef = errors.New("empty content reference")

// Content resolves stored references to URLs a browser can open.
type Content interface {
	Resolve(ctx context.Context, ref string) (string, error)
	Upload(ctx context.Context, name string, r io.Reader, size int64, contentType string) (string, error)
}

type Options struct {
	Endpoint   string
	AccessKey  string
	SecretKey  string
	Bucket     string
	Region     string
	UseSSL     bool
	PresignTTL time.Duration
}

type MinIO struct {
	client *minio.Client
	bucket string
	ttl    time.Duration
	log    *zap.Logger
}

func NewMinIO(opts Options, log *zap.Logger) (*MinIO, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
		Region: opts.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}
	ttl := opts.PresignTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &MinIO{
		client: client,
		bucket: opts.Bucket,
		ttl:    ttl,
		log:    log.With(zap.String("component", "storage"), zap.String("bucket", opts.Bucket)),
	}, nil
}

// EnsureBucket creates the content bucket when it does not exist yet.
func (m *MinIO) EnsureBucket(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return fmt.Errorf("check bucket: %w", err)
	}
	if exists {
		return nil
	}
	if err := m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("create bucket: %w", err)
	}
	m.log.Info("bucket created")
	return nil
}

// Resolve returns absolute http(s) references unchanged and presigns everything else.
func (m *MinIO) Resolve(ctx context.Context, ref string) (string, error) {
	if IsAbsolute(ref) {
		return ref, nil
	}
	bucket, key, err := m.split(ref)
	if err != nil {
		return "", err
	}
	u, err := m.client.PresignedGetObject(ctx, bucket, key, m.ttl, url.Values{})
	if err != nil {
		return "", fmt.Errorf("presign %s/%s: %w", bucket, key, err)
	}
	return u.String(), nil
}

// Upload stores r under a fresh key and returns its reference.
func (m *MinIO) Upload(ctx context.Context, name string, r io.Reader, size int64, contentType string) (string, error) {
	key := ObjectKey(name)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	info, err := m.client.PutObject(ctx, m.bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	m.log.Info("content uploaded", zap.String("key", info.Key), zap.Int64("size", info.Size))
	return "s3://" + m.bucket + "/" + info.Key, nil
}

// split accepts "s3://bucket/key" or a bare key in the default bucket.
func (m *MinIO) split(ref string) (string, string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", "", ErrEmptyRef
	}
	if rest, ok := strings.CutPrefix(ref, "s3://"); ok {
		bucket, key, found := strings.Cut(rest, "/")
		if !found || bucket == "" || key == "" {
			return "", "", fmt.Errorf("malformed content reference %q", ref)
		}
		return bucket, key, nil
	}
	return m.bucket, strings.TrimPrefix(ref, "/"), nil
}

func IsAbsolute(ref string) bool {
	u, err := url.Parse(ref)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// ObjectKey keeps the extension of name and prefixes a random id.
func ObjectKey(name string) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	ext := strings.ToLower(path.Ext(base))
	return "lessons/" + uuid.NewString() + ext
}

// Passthrough resolves references without object storage: absolute URLs are
// returned as-is, anything else is rejected.
type Passthrough struct{}

func (Passthrough) Resolve(_ context.Context, ref string) (string, error) {
	if ref == "" {
		return "", ErrEmptyRef
	}
	if !IsAbsolute(ref) {
		return "", fmt.Errorf("no object storage configured for %q", ref)
	}
	return ref, nil
}

func (Passthrough) Upload(context.Context, string, io.Reader, int64, string) (string, error) {
	return "", errors.New("no object storage configured")
}
