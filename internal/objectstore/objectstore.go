package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/cenkalti/backoff/v4"

	"github.com/vidmeta/backend/internal/clients/awsx"
	"github.com/vidmeta/backend/internal/config"
	"github.com/vidmeta/backend/internal/platform/logger"
)

const (
	downloadTries       = 3
	downloadMinInterval = 500 * time.Millisecond
	downloadMaxInterval = 10 * time.Second
)

// Service wraps the object store. With S3_ENDPOINT_URL set it talks to MinIO
// in path style; otherwise it is plain S3.
type Service struct {
	client  *s3.Client
	presign *s3.PresignClient
	log     *logger.Logger
}

func New(ctx context.Context, settings config.Settings, log *logger.Logger) (*Service, error) {
	client, err := newClient(ctx, settings, settings.S3EndpointURL)
	if err != nil {
		return nil, err
	}
	// Presigned URLs must resolve from outside the cluster, so they are minted
	// against the public endpoint when one is configured.
	presignClient := client
	if settings.S3PublicEndpointURL != "" && settings.S3PublicEndpointURL != settings.S3EndpointURL {
		presignClient, err = newClient(ctx, settings, settings.S3PublicEndpointURL)
		if err != nil {
			return nil, err
		}
	}
	var slog *logger.Logger
	if log != nil {
		slog = log.With("component", "ObjectStore")
	}
	return &Service{
		client:  client,
		presign: s3.NewPresignClient(presignClient),
		log:     slog,
	}, nil
}

func newClient(ctx context.Context, settings config.Settings, endpoint string) (*s3.Client, error) {
	cfg, err := awsx.Load(ctx, settings)
	if err != nil {
		return nil, err
	}
	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// EnsureBucket creates the bucket when the head fails; already-owned races are
// tolerated.
func (s *Service) EnsureBucket(ctx context.Context, bucket string) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)})
	if err == nil {
		return nil
	}
	_, err = s.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(bucket)})
	if err != nil {
		var owned *s3types.BucketAlreadyOwnedByYou
		var exists *s3types.BucketAlreadyExists
		if errors.As(err, &owned) || errors.As(err, &exists) {
			return nil
		}
		return fmt.Errorf("create bucket %s: %w", bucket, err)
	}
	return nil
}

func (s *Service) PresignPut(ctx context.Context, bucket, key string, expiry time.Duration) (string, error) {
	req, err := s.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expiry))
	if err != nil {
		return "", fmt.Errorf("presign put %s/%s: %w", bucket, key, err)
	}
	return req.URL, nil
}

// Download fetches the object to dest, retrying transient failures with its
// own exponential backoff before surfacing to the worker's attempt loop.
func (s *Service) Download(ctx context.Context, bucket, key, dest string) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = downloadMinInterval
	bo.MaxInterval = downloadMaxInterval

	attempt := func() error {
		res, err := s.client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			return fmt.Errorf("get object s3://%s/%s: %w", bucket, key, err)
		}
		defer res.Body.Close()

		f, err := os.Create(dest)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("create %s: %w", dest, err))
		}
		defer f.Close()

		if _, err := io.Copy(f, res.Body); err != nil {
			return fmt.Errorf("write %s: %w", dest, err)
		}
		return nil
	}
	return backoff.Retry(attempt, backoff.WithContext(backoff.WithMaxRetries(bo, downloadTries-1), ctx))
}
