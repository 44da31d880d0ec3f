package worker

import (
	"errors"
	"fmt"
	"testing"

	"github.com/vidmeta/backend/internal/probe"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"probe error type", &probe.MediaProbeError{Detail: "unreadable container"}, CategoryBadMedia},
		{"wrapped probe error", fmt.Errorf("attempt 3: %w", &probe.MediaProbeError{Detail: "x"}), CategoryBadMedia},
		{"ffprobe text", errors.New("ffprobe_failed: exit status 1"), CategoryBadMedia},
		{"moov text", errors.New("moov atom not found"), CategoryBadMedia},
		{"codec text", errors.New("unsupported codec av99"), CategoryBadMedia},
		{"timeout", errors.New("Timeout while calling upstream"), CategoryTimeout},
		{"timed out", errors.New("operation timed out after 30s"), CategoryTimeout},
		{"bedrock", errors.New("bedrock invoke: access denied"), CategoryProviderError},
		{"throttled", errors.New("request throttled by provider"), CategoryProviderError},
		{"redis down", errors.New("dial tcp: redis refused"), CategoryDependencyUnavailable},
		{"s3 down", errors.New("get object s3://b/k: no such host"), CategoryDependencyUnavailable},
		{"connection", errors.New("connection reset by peer"), CategoryDependencyUnavailable},
		{"unknown", errors.New("something odd happened"), CategoryUnexpectedException},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Classify(tc.err)
			if got.Category != tc.want {
				t.Fatalf("Classify(%v).Category = %s, want %s", tc.err, got.Category, tc.want)
			}
			if got.Recommendation == "" {
				t.Fatalf("recommendation must not be empty")
			}
		})
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	err := errors.New("timed out reading body")
	first := Classify(err)
	for i := 0; i < 5; i++ {
		if got := Classify(err); got != first {
			t.Fatalf("Classify not stable: %+v vs %+v", got, first)
		}
	}
}
