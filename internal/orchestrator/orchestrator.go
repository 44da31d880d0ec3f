package orchestrator

import (
	"context"
	"encoding/json"
	"time"

	"github.com/vidmeta/backend/internal/platform/logger"
	"github.com/vidmeta/backend/internal/store"
	"github.com/vidmeta/backend/internal/stream"
	"github.com/vidmeta/backend/internal/types"
)

const (
	GroupName = "orchestrator"

	readBlock = 5 * time.Second
	readCount = 10
)

// Orchestrator is the single writer turning stream events into durable job
// decisions and queue messages. One stream-read loop, no internal concurrency.
type Orchestrator struct {
	log      *logger.Logger
	stream   *stream.Stream
	store    store.Store
	queue    QueueWriter
	consumer string
}

func New(log *logger.Logger, s *stream.Stream, st store.Store, q QueueWriter, consumer string) *Orchestrator {
	return &Orchestrator{
		log:      log.With("component", "Orchestrator"),
		stream:   s,
		store:    st,
		queue:    q,
		consumer: consumer,
	}
}

// Run consumes until ctx is cancelled. Per-event failures are logged and left
// unacked so the stream redelivers them; the stream itself is the retry budget.
func (o *Orchestrator) Run(ctx context.Context) error {
	if err := o.stream.EnsureConsumerGroup(ctx, GroupName); err != nil {
		return err
	}
	o.log.Info("orchestrator_started", "group", GroupName, "consumer", o.consumer)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		entries, err := o.stream.ReadGroup(ctx, GroupName, o.consumer, readBlock, readCount)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			o.log.Error("orchestrator_read_failed", "error", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Second):
			}
			continue
		}

		for _, entry := range entries {
			if err := o.handleEntry(ctx, entry); err != nil {
				o.log.Error("orchestrator_event_failed", "message_id", entry.ID, "error", err)
				continue // no ack; redelivered on the next claim of pending entries
			}
			if err := o.stream.Ack(ctx, GroupName, entry.ID); err != nil {
				o.log.Error("orchestrator_ack_failed", "message_id", entry.ID, "error", err)
			}
		}
	}
}

func (o *Orchestrator) handleEntry(ctx context.Context, entry stream.Entry) error {
	var peek struct {
		EventType string `json:"event_type"`
	}
	if err := json.Unmarshal(entry.Event, &peek); err != nil {
		// Undecodable payloads can never succeed; log and ack rather than wedge
		// the group on a poison message.
		o.log.Warn("undecodable_event", "message_id", entry.ID, "error", err)
		return nil
	}

	switch peek.EventType {
	case types.EventTypeObjectCreated:
		var event types.ObjectCreatedEvent
		if err := json.Unmarshal(entry.Event, &event); err != nil {
			return err
		}
		decision, err := HandleObjectCreated(ctx, o.store, o.queue, event)
		if err != nil {
			return err
		}
		o.log.Info("object_created_handled",
			"action", decision.Action,
			"job_id", decision.JobID,
			"idempotency_key", decision.IdempotencyKey,
		)
		return nil

	case types.EventTypeJobCompleted:
		var event types.JobCompletedEvent
		if err := json.Unmarshal(entry.Event, &event); err != nil {
			return err
		}
		if err := HandleJobCompleted(ctx, o.store, event); err != nil {
			return err
		}
		o.log.Info("job_status_updated", "job_id", event.JobID, "status", event.Status)
		return nil

	default:
		o.log.Warn("unknown_event_type", "event_type", peek.EventType, "message_id", entry.ID)
		return nil
	}
}
