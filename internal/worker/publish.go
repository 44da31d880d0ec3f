package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/vidmeta/backend/internal/clients/eventbridgex"
	"github.com/vidmeta/backend/internal/types"
)

// IngressPublisher posts JobCompleted events to the event ingress, which
// forwards them onto the stream. Used whenever an ingress URL is configured.
type IngressPublisher struct {
	baseURL string
	client  *http.Client
}

func NewIngressPublisher(baseURL string) *IngressPublisher {
	return &IngressPublisher{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 5 * time.Second},
	}
}

func (p *IngressPublisher) PublishJobCompleted(ctx context.Context, event types.JobCompletedEvent) error {
	raw, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal JobCompleted: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/events/job-completed", bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	res, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("post job-completed: %w", err)
	}
	defer res.Body.Close()
	_, _ = io.Copy(io.Discard, res.Body)
	if res.StatusCode >= 300 {
		return fmt.Errorf("post job-completed: status %d", res.StatusCode)
	}
	return nil
}

// BridgePublisher puts JobCompleted events on the managed event bus when no
// ingress URL is configured.
type BridgePublisher struct {
	bridge *eventbridgex.Publisher
}

func NewBridgePublisher(bridge *eventbridgex.Publisher) *BridgePublisher {
	return &BridgePublisher{bridge: bridge}
}

func (p *BridgePublisher) PublishJobCompleted(ctx context.Context, event types.JobCompletedEvent) error {
	return p.bridge.PutJobCompleted(ctx, event)
}

// NoopPublisher drops events; used when neither an ingress URL nor a managed
// bus is configured (pure-local single process runs).
type NoopPublisher struct{}

func (NoopPublisher) PublishJobCompleted(context.Context, types.JobCompletedEvent) error { return nil }
