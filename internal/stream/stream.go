package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const maxStreamLen = 10_000

// Stream is the shared event log backed by a Redis stream. Events ride in a
// single JSON "event" field; the stream is trimmed to an approximate capacity.
type Stream struct {
	rdb  *goredis.Client
	name string
}

func New(rdb *goredis.Client, name string) *Stream {
	return &Stream{rdb: rdb, name: name}
}

// Entry is one delivered stream message. Event is the raw JSON document so
// consumers can peek at event_type before binding a concrete type.
type Entry struct {
	ID    string
	Event json.RawMessage
}

func (s *Stream) Publish(ctx context.Context, event any) (string, error) {
	raw, err := json.Marshal(event)
	if err != nil {
		return "", fmt.Errorf("marshal event: %w", err)
	}
	id, err := s.rdb.XAdd(ctx, &goredis.XAddArgs{
		Stream: s.name,
		MaxLen: maxStreamLen,
		Approx: true,
		Values: map[string]any{"event": string(raw)},
	}).Result()
	if err != nil {
		return "", fmt.Errorf("xadd %s: %w", s.name, err)
	}
	return id, nil
}

// EnsureConsumerGroup creates the group at the start of the stream, treating
// "already exists" as success.
func (s *Stream) EnsureConsumerGroup(ctx context.Context, group string) error {
	err := s.rdb.XGroupCreateMkStream(ctx, s.name, group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("xgroup create %s/%s: %w", s.name, group, err)
	}
	return nil
}

// ReadGroup blocks up to block and returns at most count entries not yet
// delivered to any consumer in the group. Entries stay pending until acked.
func (s *Stream) ReadGroup(ctx context.Context, group, consumer string, block time.Duration, count int64) ([]Entry, error) {
	res, err := s.rdb.XReadGroup(ctx, &goredis.XReadGroupArgs{
		Group:    group,
		Consumer: consumer,
		Streams:  []string{s.name, ">"},
		Count:    count,
		Block:    block,
	}).Result()
	if err == goredis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("xreadgroup %s/%s: %w", s.name, group, err)
	}
	var out []Entry
	for _, str := range res {
		for _, msg := range str.Messages {
			field, ok := msg.Values["event"].(string)
			if !ok {
				continue
			}
			out = append(out, Entry{ID: msg.ID, Event: json.RawMessage(field)})
		}
	}
	return out, nil
}

func (s *Stream) Ack(ctx context.Context, group, id string) error {
	return s.rdb.XAck(ctx, s.name, group, id).Err()
}
