package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/vidmeta/backend/internal/types"
)

func newTestStore(t *testing.T) *SqliteStore {
	t.Helper()
	st, err := NewSqliteStore(filepath.Join(t.TempDir(), "test.db"), nil)
	if err != nil {
		t.Fatalf("NewSqliteStore: %v", err)
	}
	return st
}

func TestTryClaimIdempotency(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	claimed, err := st.TryClaimIdempotency(ctx, "s3://videos/uploads/j1/a.mp4", "j1")
	if err != nil {
		t.Fatalf("first claim: %v", err)
	}
	if !claimed {
		t.Fatalf("first claim should succeed")
	}

	claimed, err = st.TryClaimIdempotency(ctx, "s3://videos/uploads/j1/a.mp4", "j2")
	if err != nil {
		t.Fatalf("second claim: %v", err)
	}
	if claimed {
		t.Fatalf("duplicate claim should report false")
	}
}

func TestCreateJobIfMissingKeepsFirstWrite(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	if err := st.CreateJobIfMissing(ctx, "j1", "videos", "uploads/j1/a.mp4", types.JobStatusSubmitted); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if err := st.CreateJobIfMissing(ctx, "j1", "other", "other/key", types.JobStatusFailed); err != nil {
		t.Fatalf("second create: %v", err)
	}

	job, err := st.GetJob(ctx, "j1")
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if job == nil {
		t.Fatalf("job should exist")
	}
	if job.Status != types.JobStatusSubmitted {
		t.Fatalf("status = %s, want SUBMITTED", job.Status)
	}
	if job.S3Bucket != "videos" || job.S3Key != "uploads/j1/a.mp4" {
		t.Fatalf("second create overwrote location: %s/%s", job.S3Bucket, job.S3Key)
	}
}

func TestUpdateJobMissingIsNoop(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	if err := st.UpdateJob(ctx, "missing", types.JobStatusProcessing, "", ""); err != nil {
		t.Fatalf("UpdateJob on missing job: %v", err)
	}
	job, err := st.GetJob(ctx, "missing")
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if job != nil {
		t.Fatalf("update must not create a job")
	}
}

func TestUpdateJobErrorFieldLifecycle(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	if err := st.CreateJobIfMissing(ctx, "j1", "videos", "uploads/j1/a.mp4", types.JobStatusProcessing); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := st.UpdateJob(ctx, "j1", types.JobStatusFailed, "bad_media", "moov atom not found"); err != nil {
		t.Fatalf("fail update: %v", err)
	}

	job, err := st.GetJob(ctx, "j1")
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if job.Status != types.JobStatusFailed || job.ErrorCode != "bad_media" || job.ErrorMessage != "moov atom not found" {
		t.Fatalf("failed job = %+v", job)
	}

	// Re-processing to success clears the stale failure details.
	if err := st.UpdateJob(ctx, "j1", types.JobStatusSucceeded, "leftover", "leftover"); err != nil {
		t.Fatalf("success update: %v", err)
	}
	job, err = st.GetJob(ctx, "j1")
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if job.Status != types.JobStatusSucceeded {
		t.Fatalf("status = %s, want SUCCEEDED", job.Status)
	}
	if job.ErrorCode != "" || job.ErrorMessage != "" {
		t.Fatalf("error fields not cleared: %+v", job)
	}
}

func TestStoreResultUpsert(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	first := map[string]any{"format": map[string]any{"duration": "1.0"}}
	if err := st.StoreResult(ctx, "j1", first, "first summary"); err != nil {
		t.Fatalf("first StoreResult: %v", err)
	}
	second := map[string]any{"format": map[string]any{"duration": "2.0"}}
	if err := st.StoreResult(ctx, "j1", second, "second summary"); err != nil {
		t.Fatalf("second StoreResult: %v", err)
	}

	result, err := st.GetResult(ctx, "j1")
	if err != nil {
		t.Fatalf("GetResult: %v", err)
	}
	if result == nil {
		t.Fatalf("result should exist")
	}
	if result.Summary != "second summary" {
		t.Fatalf("summary = %q, want overwrite", result.Summary)
	}
	format, _ := result.Metadata["format"].(map[string]any)
	if format["duration"] != "2.0" {
		t.Fatalf("metadata not overwritten: %+v", result.Metadata)
	}
}

func TestGetResultMissing(t *testing.T) {
	st := newTestStore(t)

	result, err := st.GetResult(context.Background(), "nope")
	if err != nil {
		t.Fatalf("GetResult: %v", err)
	}
	if result != nil {
		t.Fatalf("missing result should be nil, got %+v", result)
	}
}

func TestListJobsOrderingAndClamp(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"j1", "j2", "j3"} {
		if err := st.CreateJobIfMissing(ctx, id, "videos", "uploads/"+id+"/a.mp4", types.JobStatusSubmitted); err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
		time.Sleep(2 * time.Millisecond)
	}

	jobs, err := st.ListJobs(ctx, 10)
	if err != nil {
		t.Fatalf("ListJobs: %v", err)
	}
	if len(jobs) != 3 {
		t.Fatalf("len = %d, want 3", len(jobs))
	}
	if jobs[0].JobID != "j3" || jobs[1].JobID != "j2" || jobs[2].JobID != "j1" {
		t.Fatalf("order = %s, %s, %s; want newest first", jobs[0].JobID, jobs[1].JobID, jobs[2].JobID)
	}

	jobs, err = st.ListJobs(ctx, 0)
	if err != nil {
		t.Fatalf("ListJobs clamp: %v", err)
	}
	if len(jobs) != 1 {
		t.Fatalf("limit 0 should clamp to 1, got %d", len(jobs))
	}
}
