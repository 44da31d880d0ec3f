package worker

import (
	"context"
	"encoding/json"
	"os"
	"testing"

	"github.com/vidmeta/backend/internal/types"
)

type fakeDLQ struct {
	messages []types.DLQMessage
}

func (f *fakeDLQ) Push(_ context.Context, msg types.DLQMessage) error {
	f.messages = append(f.messages, msg)
	return nil
}

func (f *fakeDLQ) Drain(_ context.Context, max int) ([]types.DLQMessage, error) {
	if len(f.messages) > max {
		out := f.messages[:max]
		f.messages = f.messages[max:]
		return out, nil
	}
	out := f.messages
	f.messages = nil
	return out, nil
}

func TestAnalyzeAggregatesByCategory(t *testing.T) {
	messages := []types.DLQMessage{
		{JobID: "j1", ErrorMessage: "ffprobe_failed: moov atom not found"},
		{JobID: "j2", ErrorMessage: "operation timed out after 30s"},
		{JobID: "j3", ErrorMessage: "ffprobe_failed: exit status 1"},
	}

	report := Analyze(messages, nil)

	if report.TotalMessages != 3 {
		t.Fatalf("total = %d, want 3", report.TotalMessages)
	}
	if report.Categories[CategoryBadMedia] != 2 {
		t.Fatalf("bad_media = %d, want 2", report.Categories[CategoryBadMedia])
	}
	if report.Categories[CategoryTimeout] != 1 {
		t.Fatalf("timeout = %d, want 1", report.Categories[CategoryTimeout])
	}

	sample, ok := report.Samples[CategoryBadMedia]
	if !ok {
		t.Fatalf("missing bad_media sample")
	}
	// First exemplar wins.
	if sample.ExampleJobID != "j1" {
		t.Fatalf("exemplar = %s, want j1", sample.ExampleJobID)
	}
	if sample.Recommendation == "" {
		t.Fatalf("sample recommendation must not be empty")
	}
}

func TestAnalyzeEmptyErrorMessage(t *testing.T) {
	report := Analyze([]types.DLQMessage{{JobID: "j1"}}, nil)
	if report.Categories[CategoryUnexpectedException] != 1 {
		t.Fatalf("categories = %+v, want one unexpected_exception", report.Categories)
	}
	if report.Samples[CategoryUnexpectedException].ExampleError != "unknown" {
		t.Fatalf("sample = %+v", report.Samples[CategoryUnexpectedException])
	}
}

func TestAnalyzerWritesIncidentReport(t *testing.T) {
	dlq := &fakeDLQ{messages: []types.DLQMessage{
		{JobID: "j1", ErrorMessage: "connection reset by peer"},
	}}
	outDir := t.TempDir()
	analyzer := NewAnalyzer(testLogger(t), dlq, nil, outDir)

	path, err := analyzer.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	var report Report
	if err := json.Unmarshal(raw, &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report.TotalMessages != 1 {
		t.Fatalf("total = %d, want 1", report.TotalMessages)
	}
	if report.Categories[CategoryDependencyUnavailable] != 1 {
		t.Fatalf("categories = %+v", report.Categories)
	}
	if len(dlq.messages) != 0 {
		t.Fatalf("dlq should be drained, %d left", len(dlq.messages))
	}
}
