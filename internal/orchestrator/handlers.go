package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/vidmeta/backend/internal/queue"
	"github.com/vidmeta/backend/internal/store"
	"github.com/vidmeta/backend/internal/types"
)

const (
	ActionEnqueued      = "enqueued"
	ActionSkipDuplicate = "skip_duplicate"
)

// Decision is the observable outcome of handling one ObjectCreated event; it
// is the unit the orchestrator logs and tests assert on.
type Decision struct {
	Action         string
	JobID          string
	IdempotencyKey string
}

type QueueWriter interface {
	Enqueue(ctx context.Context, msg queue.Message) error
}

// JobIDFromObjectKey extracts the job id from the canonical upload layout
// uploads/<job_id>/<filename>. Returns "" for any other key shape.
func JobIDFromObjectKey(key string) string {
	parts := strings.Split(key, "/")
	if len(parts) >= 3 && parts[0] == "uploads" {
		return parts[1]
	}
	return ""
}

// HandleObjectCreated claims the upload exactly once and dispatches work. The
// claim is the commit point: every later step is idempotent, so a crash after
// the claim converges on redelivery.
func HandleObjectCreated(ctx context.Context, st store.Store, q QueueWriter, event types.ObjectCreatedEvent) (Decision, error) {
	jobID := JobIDFromObjectKey(event.Key)
	if jobID == "" {
		jobID = "job-" + uuid.NewString()
	}
	idempotencyKey := fmt.Sprintf("s3://%s/%s", event.Bucket, event.Key)

	claimed, err := st.TryClaimIdempotency(ctx, idempotencyKey, jobID)
	if err != nil {
		return Decision{}, err
	}
	if !claimed {
		return Decision{Action: ActionSkipDuplicate, JobID: jobID, IdempotencyKey: idempotencyKey}, nil
	}

	if err := st.CreateJobIfMissing(ctx, jobID, event.Bucket, event.Key, types.JobStatusSubmitted); err != nil {
		return Decision{}, err
	}
	if err := st.UpdateJob(ctx, jobID, types.JobStatusProcessing, "", ""); err != nil {
		return Decision{}, err
	}

	msg, err := queue.NewProcessVideo(jobID, event.Bucket, event.Key)
	if err != nil {
		return Decision{}, err
	}
	if err := q.Enqueue(ctx, msg); err != nil {
		return Decision{}, err
	}
	return Decision{Action: ActionEnqueued, JobID: jobID, IdempotencyKey: idempotencyKey}, nil
}

// HandleJobCompleted is last-write-wins: the final status of a job is the
// latest JobCompleted observed.
func HandleJobCompleted(ctx context.Context, st store.Store, event types.JobCompletedEvent) error {
	return st.UpdateJob(ctx, event.JobID, event.Status, event.ErrorCode, event.ErrorMessage)
}
