package types

import "time"

const (
	EventTypeObjectCreated = "ObjectCreated"
	EventTypeJobCompleted  = "JobCompleted"
)

type ObjectCreatedEvent struct {
	EventType string    `json:"event_type"`
	Bucket    string    `json:"bucket"`
	Key       string    `json:"key"`
	Size      *int64    `json:"size,omitempty"`
	ETag      string    `json:"etag,omitempty"`
	EventTime time.Time `json:"event_time"`
}

func NewObjectCreatedEvent(bucket, key string, size *int64, etag string) ObjectCreatedEvent {
	return ObjectCreatedEvent{
		EventType: EventTypeObjectCreated,
		Bucket:    bucket,
		Key:       key,
		Size:      size,
		ETag:      etag,
		EventTime: time.Now().UTC(),
	}
}

type JobCompletedEvent struct {
	EventType    string    `json:"event_type"`
	JobID        string    `json:"job_id"`
	Status       JobStatus `json:"status"`
	EventTime    time.Time `json:"event_time"`
	ErrorCode    string    `json:"error_code,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
}

func NewJobCompletedEvent(jobID string, status JobStatus, errorCode, errorMessage string) JobCompletedEvent {
	return JobCompletedEvent{
		EventType:    EventTypeJobCompleted,
		JobID:        jobID,
		Status:       status,
		EventTime:    time.Now().UTC(),
		ErrorCode:    errorCode,
		ErrorMessage: errorMessage,
	}
}
