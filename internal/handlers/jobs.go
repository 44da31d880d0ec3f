package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vidmeta/backend/internal/middleware"
	"github.com/vidmeta/backend/internal/platform/logger"
	"github.com/vidmeta/backend/internal/store"
	"github.com/vidmeta/backend/internal/types"
)

const uploadURLExpiry = 15 * time.Minute

// PresignPutter mints the short-lived upload URL; satisfied by the object
// store service.
type PresignPutter interface {
	PresignPut(ctx context.Context, bucket, key string, expiry time.Duration) (string, error)
}

type JobsHandler struct {
	log     *logger.Logger
	store   store.Store
	presign PresignPutter
	bucket  string
}

func NewJobsHandler(log *logger.Logger, st store.Store, presign PresignPutter, bucket string) *JobsHandler {
	return &JobsHandler{
		log:     log.With("component", "JobsHandler"),
		store:   st,
		presign: presign,
		bucket:  bucket,
	}
}

type createJobRequest struct {
	Filename    string `json:"filename" binding:"required"`
	ContentType string `json:"content_type"`
}

type createJobResponse struct {
	JobID     string `json:"job_id"`
	S3Bucket  string `json:"s3_bucket"`
	S3Key     string `json:"s3_key"`
	UploadURL string `json:"upload_url"`
	ExpiresIn int    `json:"expires_in"`
}

// POST /jobs
func (h *JobsHandler) CreateJob(c *gin.Context) {
	var req createJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", "filename is required")
		return
	}
	jobID := uuid.NewString()
	key := fmt.Sprintf("uploads/%s/%s", jobID, req.Filename)

	url, err := h.presign.PresignPut(c.Request.Context(), h.bucket, key, uploadURLExpiry)
	if err != nil {
		h.log.Error("presign_failed", "job_id", jobID, "error", err)
		RespondError(c, http.StatusInternalServerError, "presign_failed", "could not mint upload url")
		return
	}
	if err := h.store.CreateJobIfMissing(c.Request.Context(), jobID, h.bucket, key, types.JobStatusAwaitingUpload); err != nil {
		h.log.Error("job_create_failed", "job_id", jobID, "error", err)
		RespondError(c, http.StatusInternalServerError, "job_create_failed", "could not create job")
		return
	}
	h.log.Info("job_created", "job_id", jobID, "user", middleware.UserFrom(c), "s3_key", key)
	RespondOK(c, createJobResponse{
		JobID:     jobID,
		S3Bucket:  h.bucket,
		S3Key:     key,
		UploadURL: url,
		ExpiresIn: int(uploadURLExpiry.Seconds()),
	})
}

// GET /jobs/:id
func (h *JobsHandler) GetJob(c *gin.Context) {
	job, err := h.store.GetJob(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "job_read_failed", "could not read job")
		return
	}
	if job == nil {
		RespondError(c, http.StatusNotFound, "job_not_found", "Job not found")
		return
	}
	RespondOK(c, job)
}

// GET /jobs/:id/result
func (h *JobsHandler) GetResult(c *gin.Context) {
	result, err := h.store.GetResult(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "result_read_failed", "could not read result")
		return
	}
	if result == nil {
		RespondError(c, http.StatusNotFound, "result_not_found", "Result not found")
		return
	}
	RespondOK(c, result)
}

// GET /history?limit=
func (h *JobsHandler) History(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}
	jobs, err := h.store.ListJobs(c.Request.Context(), limit)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "history_read_failed", "could not list jobs")
		return
	}
	RespondOK(c, gin.H{"items": jobs})
}
