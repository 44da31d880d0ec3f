package eventbus

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vidmeta/backend/internal/observability"
	"github.com/vidmeta/backend/internal/types"
)

// NewRouter builds the ingress HTTP surface: the provider webhook, the
// worker-facing job-completed endpoint, health and metrics.
func NewRouter(svc *Service, metrics *observability.Metrics) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(metrics.GinMiddleware())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "ts": time.Now().UTC().Format(time.RFC3339)})
	})
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	router.POST("/minio/webhook", func(c *gin.Context) {
		var payload minioNotification
		if err := c.ShouldBindJSON(&payload); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid notification payload"})
			return
		}
		published, err := svc.PublishObjectCreated(c.Request.Context(), payload)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "publish failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"published": published})
	})

	router.POST("/events/job-completed", func(c *gin.Context) {
		var event types.JobCompletedEvent
		if err := c.ShouldBindJSON(&event); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid event body"})
			return
		}
		if err := validateJobCompleted(event); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
			return
		}
		if err := svc.PublishJobCompleted(c.Request.Context(), event); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "publish failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"published": 1})
	})

	return router
}

func validateJobCompleted(event types.JobCompletedEvent) error {
	if event.EventType != types.EventTypeJobCompleted {
		return fmt.Errorf("event_type must be %s", types.EventTypeJobCompleted)
	}
	if event.JobID == "" {
		return fmt.Errorf("job_id is required")
	}
	if event.Status != types.JobStatusSucceeded && event.Status != types.JobStatusFailed {
		return fmt.Errorf("status must be SUCCEEDED or FAILED")
	}
	return nil
}
