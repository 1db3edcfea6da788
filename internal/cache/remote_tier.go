package cache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"parsemill/internal/domain"
)

const RemoteTierName = "remote"

// RemoteTierConfig points the optional third tier at an S3-compatible object
// store. Host and Port form the endpoint (empty Host means real AWS);
// Namespace is the bucket holding cache objects.
type RemoteTierConfig struct {
	Host      string
	Port      int
	Namespace string
	Region    string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

// RemoteTier is the slowest cache level, shared across processes. It has no
// expiry or size bound of its own; the backing store owns retention.
type RemoteTier struct {
	bucket   string
	client   *s3.Client
	uploader *manager.Uploader
	hits     atomic.Uint64
	misses   atomic.Uint64
}

func NewRemoteTier(ctx context.Context, cfg RemoteTierConfig) (*RemoteTier, error) {
	if cfg.Namespace == "" {
		return nil, fmt.Errorf("remote tier: namespace is required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	var opts []func(*awsconfig.LoadOptions) error
	opts = append(opts, awsconfig.WithRegion(region))
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("remote tier: loading aws config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Host != "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		endpoint := fmt.Sprintf("%s://%s:%d", scheme, cfg.Host, cfg.Port)
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		})
	}

	client := s3.NewFromConfig(awsCfg, s3Opts...)
	return &RemoteTier{
		bucket:   cfg.Namespace,
		client:   client,
		uploader: manager.NewUploader(client),
	}, nil
}

func (t *RemoteTier) Name() string { return RemoteTierName }

func (t *RemoteTier) Get(ctx context.Context, key string) ([]byte, bool, error) {
	out, err := t.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(t.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			t.misses.Add(1)
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("remote tier get: %w", err)
	}
	defer out.Body.Close()

	value, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, false, fmt.Errorf("remote tier get read: %w", err)
	}
	t.hits.Add(1)
	return value, true, nil
}

// Set stores a value; ttl is ignored, retention belongs to the object store.
func (t *RemoteTier) Set(ctx context.Context, key string, value []byte, _ time.Duration) error {
	_, err := t.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(t.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(value),
		ContentType: aws.String("application/octet-stream"),
	})
	if err != nil {
		return fmt.Errorf("remote tier set: %w", err)
	}
	return nil
}

func (t *RemoteTier) Delete(ctx context.Context, key string) error {
	_, err := t.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(t.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("remote tier delete: %w", err)
	}
	return nil
}

func (t *RemoteTier) Clear(ctx context.Context) error {
	p := s3.NewListObjectsV2Paginator(t.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(t.bucket),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("remote tier clear list: %w", err)
		}
		for _, obj := range page.Contents {
			_, err := t.client.DeleteObject(ctx, &s3.DeleteObjectInput{
				Bucket: aws.String(t.bucket),
				Key:    obj.Key,
			})
			if err != nil {
				return fmt.Errorf("remote tier clear delete: %w", err)
			}
		}
	}
	return nil
}

// Stats reports request counters only; the object store does not expose
// entry counts cheaply.
func (t *RemoteTier) Stats() domain.TierStats {
	return domain.TierStats{
		Tier:   RemoteTierName,
		Hits:   t.hits.Load(),
		Misses: t.misses.Load(),
	}
}

func (t *RemoteTier) Close() error { return nil }
