package eventbus

import (
	"context"
	"net/url"

	"github.com/vidmeta/backend/internal/platform/logger"
	"github.com/vidmeta/backend/internal/types"
)

// Publisher is the stream-facing side of the ingress; satisfied by
// stream.Stream.
type Publisher interface {
	Publish(ctx context.Context, event any) (string, error)
}

// Service normalizes provider-shaped notifications into stream events.
type Service struct {
	log    *logger.Logger
	stream Publisher
}

func NewService(log *logger.Logger, stream Publisher) *Service {
	return &Service{log: log.With("component", "EventIngress"), stream: stream}
}

// minioNotification is the provider envelope: a Records array with nested
// s3.bucket.name / s3.object.{key,eTag,size}.
type minioNotification struct {
	Records []struct {
		S3 struct {
			Bucket struct {
				Name string `json:"name"`
			} `json:"bucket"`
			Object struct {
				Key  string `json:"key"`
				ETag string `json:"eTag"`
				Size *int64 `json:"size"`
			} `json:"object"`
		} `json:"s3"`
	} `json:"Records"`
}

// normalize turns the envelope into ObjectCreated events, URL-decoding keys
// (+ as space) and dropping records missing bucket or key.
func (s *Service) normalize(payload minioNotification) []types.ObjectCreatedEvent {
	var out []types.ObjectCreatedEvent
	for _, r := range payload.Records {
		bucket := r.S3.Bucket.Name
		key := r.S3.Object.Key
		if bucket == "" || key == "" {
			continue
		}
		if decoded, err := url.QueryUnescape(key); err == nil {
			key = decoded
		}
		out = append(out, types.NewObjectCreatedEvent(bucket, key, r.S3.Object.Size, r.S3.Object.ETag))
	}
	return out
}

// PublishObjectCreated normalizes and publishes one event per valid record,
// returning how many were published.
func (s *Service) PublishObjectCreated(ctx context.Context, payload minioNotification) (int, error) {
	published := 0
	for _, event := range s.normalize(payload) {
		if _, err := s.stream.Publish(ctx, event); err != nil {
			return published, err
		}
		published++
	}
	s.log.Info("webhook_published", "count", published)
	return published, nil
}

// PublishJobCompleted forwards a worker-submitted event to the stream
// unchanged.
func (s *Service) PublishJobCompleted(ctx context.Context, event types.JobCompletedEvent) error {
	_, err := s.stream.Publish(ctx, event)
	return err
}
