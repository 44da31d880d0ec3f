package store

import (
	"context"
	"fmt"

	"github.com/vidmeta/backend/internal/config"
	"github.com/vidmeta/backend/internal/platform/logger"
	"github.com/vidmeta/backend/internal/types"
)

// Store is the single shared mutable resource of the pipeline. All
// concurrency-sensitive correctness rests on TryClaimIdempotency being an
// atomic conditional insert and job updates being row-atomic.
//
// Conditional-write conflicts are control flow, never errors: CreateJobIfMissing
// no-ops on an existing row and TryClaimIdempotency reports false.
type Store interface {
	CreateJobIfMissing(ctx context.Context, jobID, bucket, key string, status types.JobStatus) error
	// UpdateJob sets status, timestamps and error fields unconditionally.
	// A missing job is a no-op. Error fields are cleared on any non-FAILED status.
	UpdateJob(ctx context.Context, jobID string, status types.JobStatus, errorCode, errorMessage string) error
	GetJob(ctx context.Context, jobID string) (*types.JobRecord, error)
	// ListJobs returns the most recent jobs first (created_at DESC, job_id DESC
	// tie-break), with limit clamped to [1, 200].
	ListJobs(ctx context.Context, limit int) ([]types.JobRecord, error)
	StoreResult(ctx context.Context, jobID string, metadata map[string]any, summary string) error
	GetResult(ctx context.Context, jobID string) (*types.JobResult, error)
	// TryClaimIdempotency returns true iff the claim row was newly created.
	TryClaimIdempotency(ctx context.Context, idempotencyKey, jobID string) (bool, error)
}

func New(ctx context.Context, settings config.Settings, log *logger.Logger) (Store, error) {
	switch settings.StoreBackend {
	case "dynamodb":
		if settings.DDBJobsTable == "" || settings.DDBResultsTable == "" || settings.DDBIdempotencyTable == "" {
			return nil, fmt.Errorf("DDB_*_TABLE must be set when STORE_BACKEND=dynamodb")
		}
		return NewDynamoStore(ctx, settings, log)
	case "", "sqlite":
		return NewSqliteStore(settings.DBPath, log)
	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q", settings.StoreBackend)
	}
}

func clampLimit(limit int) int {
	if limit < 1 {
		return 1
	}
	if limit > 200 {
		return 200
	}
	return limit
}
