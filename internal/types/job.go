package types

import "time"

type JobStatus string

const (
	JobStatusAwaitingUpload JobStatus = "AWAITING_UPLOAD"
	JobStatusSubmitted      JobStatus = "SUBMITTED"
	JobStatusProcessing     JobStatus = "PROCESSING"
	JobStatusSucceeded      JobStatus = "SUCCEEDED"
	JobStatusFailed         JobStatus = "FAILED"
)

func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusAwaitingUpload, JobStatusSubmitted, JobStatusProcessing, JobStatusSucceeded, JobStatusFailed:
		return true
	}
	return false
}

// JobRecord is one row in the jobs table. ErrorCode/ErrorMessage are set iff the
// job is FAILED; both backends clear them on any other transition.
type JobRecord struct {
	JobID        string    `json:"job_id"`
	Status       JobStatus `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	S3Bucket     string    `json:"s3_bucket"`
	S3Key        string    `json:"s3_key"`
	ErrorCode    string    `json:"error_code,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
}

// JobResult exists only for jobs that reached SUCCEEDED at least once. It is an
// upsert target: re-processing overwrites it.
type JobResult struct {
	JobID    string         `json:"job_id"`
	Metadata map[string]any `json:"metadata"`
	Summary  string         `json:"summary"`
}
