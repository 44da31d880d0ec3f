package eventbridgex

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	ebtypes "github.com/aws/aws-sdk-go-v2/service/eventbridge/types"

	"github.com/vidmeta/backend/internal/clients/awsx"
	"github.com/vidmeta/backend/internal/config"
	"github.com/vidmeta/backend/internal/types"
)

const eventSource = "vidmeta.worker"

// Publisher puts pipeline events on the managed event bus.
type Publisher struct {
	client  *eventbridge.Client
	busName string
}

func New(ctx context.Context, settings config.Settings) (*Publisher, error) {
	cfg, err := awsx.Load(ctx, settings)
	if err != nil {
		return nil, err
	}
	return &Publisher{
		client:  eventbridge.NewFromConfig(cfg),
		busName: settings.EventBridgeBusName,
	}, nil
}

func (p *Publisher) PutJobCompleted(ctx context.Context, event types.JobCompletedEvent) error {
	detail, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal JobCompleted detail: %w", err)
	}
	_, err = p.client.PutEvents(ctx, &eventbridge.PutEventsInput{
		Entries: []ebtypes.PutEventsRequestEntry{{
			EventBusName: aws.String(p.busName),
			Source:       aws.String(eventSource),
			DetailType:   aws.String(types.EventTypeJobCompleted),
			Detail:       aws.String(string(detail)),
		}},
	})
	if err != nil {
		return fmt.Errorf("put events: %w", err)
	}
	return nil
}
