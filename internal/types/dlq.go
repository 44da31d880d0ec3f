package types

// DLQMessage is the terminal record for a job whose processing failed after the
// full attempt budget. The recommendation is the fixed operator guidance for the
// classified category.
type DLQMessage struct {
	JobID          string `json:"job_id"`
	Bucket         string `json:"bucket"`
	Key            string `json:"key"`
	ErrorCode      string `json:"error_code"`
	ErrorMessage   string `json:"error_message"`
	Recommendation string `json:"recommendation"`
}
