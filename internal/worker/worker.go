package worker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/vidmeta/backend/internal/observability"
	"github.com/vidmeta/backend/internal/platform/logger"
	"github.com/vidmeta/backend/internal/probe"
	"github.com/vidmeta/backend/internal/queue"
	"github.com/vidmeta/backend/internal/store"
	"github.com/vidmeta/backend/internal/summarize"
	"github.com/vidmeta/backend/internal/types"
)

const dequeueWait = 5 * time.Second

type Downloader interface {
	Download(ctx context.Context, bucket, key, dest string) error
}

type ProbeFunc func(ctx context.Context, path string) (map[string]any, error)

// Publisher closes the loop by emitting JobCompleted back to the event stream.
type Publisher interface {
	PublishJobCompleted(ctx context.Context, event types.JobCompletedEvent) error
}

// Worker consumes ProcessVideo messages and runs the download → probe →
// summarize pipeline per job, with a bounded attempt budget and exponential
// backoff between attempts.
type Worker struct {
	log         *logger.Logger
	store       store.Store
	queue       queue.Queue
	dlq         queue.DLQ
	downloader  Downloader
	probe       ProbeFunc
	summarizer  summarize.Summarizer
	publisher   Publisher
	metrics     *observability.Metrics
	maxAttempts int
	backoffBase time.Duration
}

func New(
	log *logger.Logger,
	st store.Store,
	q queue.Queue,
	dlq queue.DLQ,
	downloader Downloader,
	probeFn ProbeFunc,
	summarizer summarize.Summarizer,
	publisher Publisher,
	metrics *observability.Metrics,
	maxAttempts int,
	backoffBase time.Duration,
) *Worker {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Worker{
		log:         log.With("component", "Worker"),
		store:       st,
		queue:       q,
		dlq:         dlq,
		downloader:  downloader,
		probe:       probeFn,
		summarizer:  summarizer,
		publisher:   publisher,
		metrics:     metrics,
		maxAttempts: maxAttempts,
		backoffBase: backoffBase,
	}
}

// Run consumes until ctx is cancelled. The in-flight message finishes (ack or
// DLQ) before the loop exits.
func (w *Worker) Run(ctx context.Context) error {
	w.log.Info("worker_started", "max_attempts", w.maxAttempts, "backoff_base", w.backoffBase.String())
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		delivery, err := w.queue.Dequeue(ctx, dequeueWait)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			w.log.Error("dequeue_failed", "error", err)
			if err := sleepCtx(ctx, time.Second); err != nil {
				return err
			}
			continue
		}
		if delivery == nil {
			continue
		}
		if err := w.Process(ctx, delivery); err != nil {
			w.log.Error("message_processing_failed", "error", err)
		}
	}
}

// Process handles one delivery end to end. A returned error means the message
// was neither acked nor dead-lettered (e.g. the DLQ push itself failed) and the
// queue's own redelivery applies.
func (w *Worker) Process(ctx context.Context, delivery *queue.Delivery) error {
	msg := delivery.Message
	if msg.MessageType != queue.MessageTypeProcessVideo {
		w.log.Warn("unknown_message_type", "message_type", msg.MessageType)
		return delivery.Ack(ctx)
	}
	payload, err := msg.ProcessVideo()
	if err != nil {
		w.log.Warn("undecodable_message", "error", err)
		return delivery.Ack(ctx)
	}
	jlog := w.log.With("job_id", payload.JobID)

	// Idempotent; the orchestrator normally set this already.
	if err := w.store.UpdateJob(ctx, payload.JobID, types.JobStatusProcessing, "", ""); err != nil {
		return err
	}

	start := time.Now()
	var lastErr error
	for attempt := 0; attempt < w.maxAttempts; attempt++ {
		err := w.attempt(ctx, payload)
		if err == nil {
			lastErr = nil
			duration := time.Since(start)
			w.metrics.WorkerJobsTotal.WithLabelValues("succeeded").Inc()
			w.metrics.WorkerJobDuration.Observe(duration.Seconds())

			event := types.NewJobCompletedEvent(payload.JobID, types.JobStatusSucceeded, "", "")
			if err := w.publisher.PublishJobCompleted(ctx, event); err != nil {
				// DB is truth; the missed event only delays the status read path.
				jlog.Warn("job_completed_publish_failed", "error", err)
			}
			jlog.Info("job_succeeded", "duration_s", duration.Seconds())
			return delivery.Ack(ctx)
		}
		lastErr = err
		sleep := w.backoffBase * (1 << attempt)
		jlog.Warn("job_attempt_failed", "attempt", attempt+1, "sleep", sleep.String(), "error", err.Error())
		if attempt < w.maxAttempts-1 {
			if err := sleepCtx(ctx, sleep); err != nil {
				break
			}
		}
	}
	return w.handleFailure(ctx, delivery, payload, lastErr)
}

// attempt runs one full pass of the pipeline in a scoped temp dir.
func (w *Worker) attempt(ctx context.Context, payload queue.ProcessVideoPayload) error {
	dir, err := os.MkdirTemp("", "vidmeta-job-*")
	if err != nil {
		return fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	dest := filepath.Join(dir, "input")
	if err := w.downloader.Download(ctx, payload.Bucket, payload.Key, dest); err != nil {
		return err
	}
	metadata, err := w.probe(ctx, dest)
	if err != nil {
		return err
	}
	summary, err := w.summarizer.Summarize(ctx, metadata)
	if err != nil {
		return err
	}
	if err := w.store.StoreResult(ctx, payload.JobID, metadata, summary); err != nil {
		return err
	}
	return w.store.UpdateJob(ctx, payload.JobID, types.JobStatusSucceeded, "", "")
}

func (w *Worker) handleFailure(ctx context.Context, delivery *queue.Delivery, payload queue.ProcessVideoPayload, cause error) error {
	cls := Classify(cause)
	errorMessage := cause.Error()
	jlog := w.log.With("job_id", payload.JobID)

	w.metrics.WorkerJobsTotal.WithLabelValues("failed").Inc()

	if err := w.store.UpdateJob(ctx, payload.JobID, types.JobStatusFailed, cls.Category, errorMessage); err != nil {
		return err
	}

	if err := w.dlq.Push(ctx, types.DLQMessage{
		JobID:          payload.JobID,
		Bucket:         payload.Bucket,
		Key:            payload.Key,
		ErrorCode:      cls.Category,
		ErrorMessage:   errorMessage,
		Recommendation: cls.Recommendation,
	}); err != nil {
		// Fatal for the message: no ack, so the queue redelivers where it can.
		return fmt.Errorf("dlq push for job %s: %w", payload.JobID, err)
	}

	event := types.NewJobCompletedEvent(payload.JobID, types.JobStatusFailed, cls.Category, errorMessage)
	if err := w.publisher.PublishJobCompleted(ctx, event); err != nil {
		jlog.Warn("job_completed_publish_failed", "error", err)
	}

	var probeErr *probe.MediaProbeError
	if errors.As(cause, &probeErr) {
		jlog.Warn("job_failed_media", "error", errorMessage)
	} else {
		jlog.Error("job_failed", "error_code", cls.Category, "error", errorMessage)
	}
	return delivery.Ack(ctx)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
