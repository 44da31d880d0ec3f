package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/vidmeta/backend/internal/observability"
	"github.com/vidmeta/backend/internal/platform/logger"
	"github.com/vidmeta/backend/internal/queue"
	"github.com/vidmeta/backend/internal/types"
)

const drainMax = 1000

// ReportSample is one exemplar per failure category.
type ReportSample struct {
	ExampleJobID   string `json:"example_job_id"`
	ExampleError   string `json:"example_error"`
	Recommendation string `json:"recommendation"`
}

// Report is the incident summary the DLQ analyzer writes to disk.
type Report struct {
	GeneratedAt   string                  `json:"generated_at"`
	TotalMessages int                     `json:"total_messages"`
	Categories    map[string]int          `json:"categories"`
	Samples       map[string]ReportSample `json:"samples"`
}

// Analyze re-classifies drained DLQ messages and aggregates per category,
// keeping the first exemplar seen for each.
func Analyze(messages []types.DLQMessage, metrics *observability.Metrics) Report {
	categories := map[string]int{}
	samples := map[string]ReportSample{}
	for _, m := range messages {
		errMsg := m.ErrorMessage
		if errMsg == "" {
			errMsg = "unknown"
		}
		cls := Classify(errors.New(errMsg))
		categories[cls.Category]++
		if metrics != nil {
			metrics.DLQMessagesTotal.WithLabelValues(cls.Category).Inc()
		}
		if _, seen := samples[cls.Category]; !seen {
			samples[cls.Category] = ReportSample{
				ExampleJobID:   m.JobID,
				ExampleError:   errMsg,
				Recommendation: cls.Recommendation,
			}
		}
	}
	return Report{
		GeneratedAt:   time.Now().UTC().Format(time.RFC3339Nano),
		TotalMessages: len(messages),
		Categories:    categories,
		Samples:       samples,
	}
}

// Analyzer drains the DLQ and writes a timestamped incident report. It is the
// DLQ's only consumer.
type Analyzer struct {
	log     *logger.Logger
	dlq     queue.DLQ
	metrics *observability.Metrics
	outDir  string
}

func NewAnalyzer(log *logger.Logger, dlq queue.DLQ, metrics *observability.Metrics, outDir string) *Analyzer {
	return &Analyzer{
		log:     log.With("component", "DLQAnalyzer"),
		dlq:     dlq,
		metrics: metrics,
		outDir:  outDir,
	}
}

func (a *Analyzer) Run(ctx context.Context) (string, error) {
	messages, err := a.dlq.Drain(ctx, drainMax)
	if err != nil {
		return "", fmt.Errorf("drain dlq: %w", err)
	}
	report := Analyze(messages, a.metrics)

	if err := os.MkdirAll(a.outDir, 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}
	path := filepath.Join(a.outDir, fmt.Sprintf("incident-%d.json", time.Now().UTC().Unix()))
	raw, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal report: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	a.log.Info("dlq_incident_report_written", "path", path, "total_messages", report.TotalMessages)
	return path, nil
}
