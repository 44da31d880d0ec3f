package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/vidmeta/backend/internal/types"
)

const (
	MessageTypeProcessVideo = "ProcessVideo"
	MessageTypeDLQ          = "DLQ"
)

// Message is the wire envelope for work-queue traffic, discriminated by
// MessageType. Unknown types are logged and dropped by consumers.
type Message struct {
	MessageType string          `json:"message_type"`
	Payload     json.RawMessage `json:"payload"`
}

type ProcessVideoPayload struct {
	JobID  string `json:"job_id"`
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
}

func NewProcessVideo(jobID, bucket, key string) (Message, error) {
	raw, err := json.Marshal(ProcessVideoPayload{JobID: jobID, Bucket: bucket, Key: key})
	if err != nil {
		return Message{}, fmt.Errorf("marshal ProcessVideo payload: %w", err)
	}
	return Message{MessageType: MessageTypeProcessVideo, Payload: raw}, nil
}

func (m Message) ProcessVideo() (ProcessVideoPayload, error) {
	var p ProcessVideoPayload
	if m.MessageType != MessageTypeProcessVideo {
		return p, fmt.Errorf("message_type %q is not %s", m.MessageType, MessageTypeProcessVideo)
	}
	if err := json.Unmarshal(m.Payload, &p); err != nil {
		return p, fmt.Errorf("decode ProcessVideo payload: %w", err)
	}
	return p, nil
}

// Delivery is one dequeued message plus its acknowledgment. For the Redis list
// backend the pop is destructive and Ack is a no-op; for SQS, Ack deletes the
// message and skipping it means redelivery after the visibility timeout.
type Delivery struct {
	Message Message
	Ack     func(ctx context.Context) error
}

type Queue interface {
	Enqueue(ctx context.Context, msg Message) error
	// Dequeue blocks up to wait and returns nil when nothing arrived.
	Dequeue(ctx context.Context, wait time.Duration) (*Delivery, error)
}

type DLQ interface {
	Push(ctx context.Context, msg types.DLQMessage) error
	Drain(ctx context.Context, max int) ([]types.DLQMessage, error)
}
