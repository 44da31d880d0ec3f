package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/vidmeta/backend/internal/types"
)

type SQSAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// SQSQueue is the managed work queue. Ack maps to DeleteMessage by receipt
// handle, so an unacked delivery reappears after the visibility timeout.
type SQSQueue struct {
	client   SQSAPI
	queueURL string
}

func NewSQSQueue(client SQSAPI, queueURL string) *SQSQueue {
	return &SQSQueue{client: client, queueURL: queueURL}
}

func (q *SQSQueue) Enqueue(ctx context.Context, msg Message) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal queue message: %w", err)
	}
	_, err = q.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(q.queueURL),
		MessageBody: aws.String(string(raw)),
	})
	return err
}

func (q *SQSQueue) Dequeue(ctx context.Context, wait time.Duration) (*Delivery, error) {
	res, err := q.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(q.queueURL),
		MaxNumberOfMessages: 1,
		WaitTimeSeconds:     int32(wait / time.Second),
	})
	if err != nil {
		return nil, fmt.Errorf("receive message: %w", err)
	}
	if len(res.Messages) == 0 {
		return nil, nil
	}
	m := res.Messages[0]
	var msg Message
	if err := json.Unmarshal([]byte(aws.ToString(m.Body)), &msg); err != nil {
		return nil, fmt.Errorf("decode queue message: %w", err)
	}
	receipt := aws.ToString(m.ReceiptHandle)
	return &Delivery{
		Message: msg,
		Ack: func(ctx context.Context) error {
			_, err := q.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
				QueueUrl:      aws.String(q.queueURL),
				ReceiptHandle: aws.String(receipt),
			})
			return err
		},
	}, nil
}

// SQSDLQ wraps failures in the DLQ message envelope on a dedicated queue.
type SQSDLQ struct {
	inner *SQSQueue
}

func NewSQSDLQ(client SQSAPI, queueURL string) *SQSDLQ {
	return &SQSDLQ{inner: NewSQSQueue(client, queueURL)}
}

func (d *SQSDLQ) Push(ctx context.Context, msg types.DLQMessage) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal dlq message: %w", err)
	}
	return d.inner.Enqueue(ctx, Message{MessageType: MessageTypeDLQ, Payload: raw})
}

func (d *SQSDLQ) Drain(ctx context.Context, max int) ([]types.DLQMessage, error) {
	var out []types.DLQMessage
	for len(out) < max {
		delivery, err := d.inner.Dequeue(ctx, 2*time.Second)
		if err != nil {
			return out, err
		}
		if delivery == nil {
			break
		}
		var msg types.DLQMessage
		if err := json.Unmarshal(delivery.Message.Payload, &msg); err != nil {
			return out, fmt.Errorf("decode dlq payload: %w", err)
		}
		out = append(out, msg)
		if err := delivery.Ack(ctx); err != nil {
			return out, err
		}
	}
	return out, nil
}
