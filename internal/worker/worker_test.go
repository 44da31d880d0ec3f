package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/vidmeta/backend/internal/observability"
	"github.com/vidmeta/backend/internal/platform/logger"
	"github.com/vidmeta/backend/internal/probe"
	"github.com/vidmeta/backend/internal/queue"
	"github.com/vidmeta/backend/internal/types"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	return &logger.Logger{SugaredLogger: zap.NewNop().Sugar()}
}

type fakeStore struct {
	statuses map[string]types.JobStatus
	codes    map[string]string
	results  map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		statuses: map[string]types.JobStatus{},
		codes:    map[string]string{},
		results:  map[string]string{},
	}
}

func (f *fakeStore) CreateJobIfMissing(_ context.Context, jobID, _, _ string, status types.JobStatus) error {
	if _, ok := f.statuses[jobID]; !ok {
		f.statuses[jobID] = status
	}
	return nil
}

func (f *fakeStore) UpdateJob(_ context.Context, jobID string, status types.JobStatus, errorCode, _ string) error {
	f.statuses[jobID] = status
	if status == types.JobStatusFailed {
		f.codes[jobID] = errorCode
	} else {
		f.codes[jobID] = ""
	}
	return nil
}

func (f *fakeStore) GetJob(context.Context, string) (*types.JobRecord, error) { return nil, nil }

func (f *fakeStore) ListJobs(context.Context, int) ([]types.JobRecord, error) { return nil, nil }

func (f *fakeStore) StoreResult(_ context.Context, jobID string, _ map[string]any, summary string) error {
	f.results[jobID] = summary
	return nil
}

func (f *fakeStore) GetResult(context.Context, string) (*types.JobResult, error) { return nil, nil }

func (f *fakeStore) TryClaimIdempotency(context.Context, string, string) (bool, error) {
	return true, nil
}

type fakeDownloader struct {
	failures int
	calls    int
	err      error
}

func (f *fakeDownloader) Download(_ context.Context, _, _, _ string) error {
	f.calls++
	if f.calls <= f.failures {
		return f.err
	}
	return nil
}

type fakePublisher struct {
	events []types.JobCompletedEvent
}

func (f *fakePublisher) PublishJobCompleted(_ context.Context, event types.JobCompletedEvent) error {
	f.events = append(f.events, event)
	return nil
}

func okProbe(context.Context, string) (map[string]any, error) {
	return map[string]any{
		"format":  map[string]any{"duration": "12.5"},
		"streams": []any{map[string]any{"codec_name": "h264", "width": 1920.0, "height": 1080.0}},
	}, nil
}

type fakeSummarizer struct{}

func (fakeSummarizer) Summarize(context.Context, map[string]any) (string, error) {
	return "test summary", nil
}

type testHarness struct {
	worker    *Worker
	store     *fakeStore
	dlq       *fakeDLQ
	publisher *fakePublisher
}

func newTestWorker(t *testing.T, downloader Downloader, probeFn ProbeFunc) *testHarness {
	t.Helper()
	st := newFakeStore()
	dlq := &fakeDLQ{}
	pub := &fakePublisher{}
	w := New(
		testLogger(t),
		st,
		nil, // Process is driven directly; the dequeue loop is not under test
		dlq,
		downloader,
		probeFn,
		fakeSummarizer{},
		pub,
		observability.Default(),
		3,
		time.Millisecond,
	)
	return &testHarness{worker: w, store: st, dlq: dlq, publisher: pub}
}

func delivery(t *testing.T, acked *bool) *queue.Delivery {
	t.Helper()
	msg, err := queue.NewProcessVideo("j1", "videos", "uploads/j1/a.mp4")
	if err != nil {
		t.Fatalf("NewProcessVideo: %v", err)
	}
	return &queue.Delivery{
		Message: msg,
		Ack: func(context.Context) error {
			*acked = true
			return nil
		},
	}
}

func TestProcessTransientFailuresThenSuccess(t *testing.T) {
	dl := &fakeDownloader{failures: 2, err: errors.New("connection reset by peer")}
	h := newTestWorker(t, dl, okProbe)

	var acked bool
	if err := h.worker.Process(context.Background(), delivery(t, &acked)); err != nil {
		t.Fatalf("Process: %v", err)
	}

	if h.store.statuses["j1"] != types.JobStatusSucceeded {
		t.Fatalf("status = %s, want SUCCEEDED", h.store.statuses["j1"])
	}
	if h.store.results["j1"] != "test summary" {
		t.Fatalf("result = %q", h.store.results["j1"])
	}
	if dl.calls != 3 {
		t.Fatalf("download calls = %d, want 3", dl.calls)
	}
	if len(h.dlq.messages) != 0 {
		t.Fatalf("no DLQ entries expected, got %d", len(h.dlq.messages))
	}
	if len(h.publisher.events) != 1 || h.publisher.events[0].Status != types.JobStatusSucceeded {
		t.Fatalf("published events = %+v", h.publisher.events)
	}
	if !acked {
		t.Fatalf("delivery must be acked on success")
	}
}

func TestProcessBadMediaExhaustsAttempts(t *testing.T) {
	probeCalls := 0
	badProbe := func(context.Context, string) (map[string]any, error) {
		probeCalls++
		return nil, &probe.MediaProbeError{Detail: "moov atom not found"}
	}
	h := newTestWorker(t, &fakeDownloader{}, badProbe)

	var acked bool
	if err := h.worker.Process(context.Background(), delivery(t, &acked)); err != nil {
		t.Fatalf("Process: %v", err)
	}

	if probeCalls != 3 {
		t.Fatalf("probe calls = %d, want full attempt budget", probeCalls)
	}
	if h.store.statuses["j1"] != types.JobStatusFailed {
		t.Fatalf("status = %s, want FAILED", h.store.statuses["j1"])
	}
	if h.store.codes["j1"] != CategoryBadMedia {
		t.Fatalf("error_code = %s, want bad_media", h.store.codes["j1"])
	}
	if len(h.dlq.messages) != 1 {
		t.Fatalf("dlq entries = %d, want 1", len(h.dlq.messages))
	}
	dead := h.dlq.messages[0]
	if dead.JobID != "j1" || dead.ErrorCode != CategoryBadMedia || dead.Recommendation == "" {
		t.Fatalf("dlq message = %+v", dead)
	}
	if len(h.publisher.events) != 1 || h.publisher.events[0].Status != types.JobStatusFailed {
		t.Fatalf("published events = %+v", h.publisher.events)
	}
	if !acked {
		t.Fatalf("exhausted delivery must still be acked after dead-lettering")
	}
}

func TestProcessUnknownMessageTypeDropped(t *testing.T) {
	h := newTestWorker(t, &fakeDownloader{}, okProbe)

	var acked bool
	d := &queue.Delivery{
		Message: queue.Message{MessageType: "Garbage", Payload: []byte(`{}`)},
		Ack: func(context.Context) error {
			acked = true
			return nil
		},
	}
	if err := h.worker.Process(context.Background(), d); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !acked {
		t.Fatalf("unknown message must be acked so it does not wedge the queue")
	}
	if len(h.store.statuses) != 0 {
		t.Fatalf("no job updates expected, got %+v", h.store.statuses)
	}
}

func TestProcessReplayConverges(t *testing.T) {
	h := newTestWorker(t, &fakeDownloader{}, okProbe)

	for i := 0; i < 2; i++ {
		var acked bool
		if err := h.worker.Process(context.Background(), delivery(t, &acked)); err != nil {
			t.Fatalf("Process replay %d: %v", i, err)
		}
	}

	if h.store.statuses["j1"] != types.JobStatusSucceeded {
		t.Fatalf("status = %s", h.store.statuses["j1"])
	}
	if len(h.store.results) != 1 {
		t.Fatalf("results = %+v, want single overwritten row", h.store.results)
	}
	if len(h.dlq.messages) != 0 {
		t.Fatalf("replay must not dead-letter")
	}
}
