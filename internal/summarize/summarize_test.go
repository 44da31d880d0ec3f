package summarize

import (
	"context"
	"strings"
	"testing"
)

func TestMockSummarizer(t *testing.T) {
	s := &mockSummarizer{}
	metadata := map[string]any{
		"format": map[string]any{"duration": "12.5"},
		"streams": []any{
			map[string]any{"codec_name": "h264", "width": 1920.0, "height": 1080.0},
		},
	}

	summary, err := s.Summarize(context.Background(), metadata)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if !strings.HasPrefix(summary, "Mock Bedrock Summary:") {
		t.Fatalf("summary = %q", summary)
	}
	for _, want := range []string{"h264", "1920x1080", "12.5"} {
		if !strings.Contains(summary, want) {
			t.Fatalf("summary %q missing %q", summary, want)
		}
	}
}

func TestMockSummarizerSparseMetadata(t *testing.T) {
	s := &mockSummarizer{}
	summary, err := s.Summarize(context.Background(), map[string]any{})
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if summary == "" {
		t.Fatalf("summary must not be empty for sparse metadata")
	}
}
