package eventbus

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/vidmeta/backend/internal/observability"
	"github.com/vidmeta/backend/internal/platform/logger"
	"github.com/vidmeta/backend/internal/types"
)

type fakeStream struct {
	published []json.RawMessage
	err       error
}

func (f *fakeStream) Publish(_ context.Context, event any) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	raw, err := json.Marshal(event)
	if err != nil {
		return "", err
	}
	f.published = append(f.published, raw)
	return "1-0", nil
}

func newTestRouter(t *testing.T) (*gin.Engine, *fakeStream) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	stream := &fakeStream{}
	log := &logger.Logger{SugaredLogger: zap.NewNop().Sugar()}
	svc := NewService(log, stream)
	return NewRouter(svc, observability.Default()), stream
}

func postJSON(router *gin.Engine, path, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(rec, req)
	return rec
}

func TestWebhookPublishesNormalizedEvent(t *testing.T) {
	router, stream := newTestRouter(t)

	body := `{"Records":[{"s3":{"bucket":{"name":"videos"},"object":{"key":"uploads/abc/my+video.mp4","eTag":"e1","size":1024}}}]}`
	rec := postJSON(router, "/minio/webhook", body)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Published int `json:"published"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Published != 1 {
		t.Fatalf("published = %d, want 1", resp.Published)
	}
	if len(stream.published) != 1 {
		t.Fatalf("stream got %d events", len(stream.published))
	}

	var event types.ObjectCreatedEvent
	if err := json.Unmarshal(stream.published[0], &event); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	if event.EventType != types.EventTypeObjectCreated {
		t.Fatalf("event_type = %s", event.EventType)
	}
	if event.Bucket != "videos" {
		t.Fatalf("bucket = %s", event.Bucket)
	}
	// Provider keys arrive URL-encoded, + meaning space.
	if event.Key != "uploads/abc/my video.mp4" {
		t.Fatalf("key = %q, want decoded", event.Key)
	}
	if event.Size == nil || *event.Size != 1024 {
		t.Fatalf("size = %v", event.Size)
	}
}

func TestWebhookDropsIncompleteRecords(t *testing.T) {
	router, stream := newTestRouter(t)

	body := `{"Records":[{"s3":{"bucket":{"name":""},"object":{"key":"uploads/abc/a.mp4"}}},{"s3":{"bucket":{"name":"videos"},"object":{"key":""}}}]}`
	rec := postJSON(router, "/minio/webhook", body)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		Published int `json:"published"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Published != 0 {
		t.Fatalf("published = %d, want 0", resp.Published)
	}
	if len(stream.published) != 0 {
		t.Fatalf("stream got %d events, want 0", len(stream.published))
	}
}

func TestWebhookEmptyRecords(t *testing.T) {
	router, stream := newTestRouter(t)

	rec := postJSON(router, "/minio/webhook", `{"Records":[]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(stream.published) != 0 {
		t.Fatalf("stream got %d events, want 0", len(stream.published))
	}
}

func TestWebhookRejectsMalformedBody(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := postJSON(router, "/minio/webhook", `{"Records": "nope"`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestJobCompletedEndpoint(t *testing.T) {
	router, stream := newTestRouter(t)

	body := `{"event_type":"JobCompleted","job_id":"j1","status":"SUCCEEDED"}`
	rec := postJSON(router, "/events/job-completed", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if len(stream.published) != 1 {
		t.Fatalf("stream got %d events", len(stream.published))
	}

	var event types.JobCompletedEvent
	if err := json.Unmarshal(stream.published[0], &event); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	if event.JobID != "j1" || event.Status != types.JobStatusSucceeded {
		t.Fatalf("event = %+v", event)
	}
}

func TestJobCompletedValidation(t *testing.T) {
	router, stream := newTestRouter(t)

	cases := []string{
		`{"event_type":"SomethingElse","job_id":"j1","status":"SUCCEEDED"}`,
		`{"event_type":"JobCompleted","job_id":"","status":"SUCCEEDED"}`,
		`{"event_type":"JobCompleted","job_id":"j1","status":"PROCESSING"}`,
	}
	for _, body := range cases {
		rec := postJSON(router, "/events/job-completed", body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %s: status = %d, want 400", body, rec.Code)
		}
	}
	if len(stream.published) != 0 {
		t.Fatalf("invalid events must not be published, got %d", len(stream.published))
	}
}

func TestHealthz(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}
