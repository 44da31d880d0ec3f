package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/vidmeta/backend/internal/types"
)

// RedisQueue is a FIFO list: RPUSH to enqueue, BLPOP to consume. The pop is the
// ack, so a worker crash between pop and completion loses the delivery; the
// idempotent downstream effects make replays via re-upload safe.
type RedisQueue struct {
	rdb  *goredis.Client
	name string
}

func NewRedisQueue(rdb *goredis.Client, name string) *RedisQueue {
	return &RedisQueue{rdb: rdb, name: name}
}

func (q *RedisQueue) Enqueue(ctx context.Context, msg Message) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal queue message: %w", err)
	}
	return q.rdb.RPush(ctx, q.name, raw).Err()
}

func (q *RedisQueue) Dequeue(ctx context.Context, wait time.Duration) (*Delivery, error) {
	res, err := q.rdb.BLPop(ctx, wait, q.name).Result()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("blpop %s: %w", q.name, err)
	}
	// BLPOP returns [key, value].
	if len(res) < 2 {
		return nil, nil
	}
	var msg Message
	if err := json.Unmarshal([]byte(res[1]), &msg); err != nil {
		return nil, fmt.Errorf("decode queue message: %w", err)
	}
	return &Delivery{
		Message: msg,
		Ack:     func(context.Context) error { return nil },
	}, nil
}

// RedisDLQ holds classified failures on a separate list; the analyzer is its
// only consumer.
type RedisDLQ struct {
	rdb  *goredis.Client
	name string
}

func NewRedisDLQ(rdb *goredis.Client, name string) *RedisDLQ {
	return &RedisDLQ{rdb: rdb, name: name}
}

func (d *RedisDLQ) Push(ctx context.Context, msg types.DLQMessage) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal dlq message: %w", err)
	}
	return d.rdb.RPush(ctx, d.name, raw).Err()
}

func (d *RedisDLQ) Drain(ctx context.Context, max int) ([]types.DLQMessage, error) {
	var out []types.DLQMessage
	for i := 0; i < max; i++ {
		raw, err := d.rdb.LPop(ctx, d.name).Result()
		if errors.Is(err, goredis.Nil) {
			break
		}
		if err != nil {
			return out, fmt.Errorf("lpop %s: %w", d.name, err)
		}
		var msg types.DLQMessage
		if err := json.Unmarshal([]byte(raw), &msg); err != nil {
			return out, fmt.Errorf("decode dlq message: %w", err)
		}
		out = append(out, msg)
	}
	return out, nil
}
