package config

import (
	"time"

	"github.com/vidmeta/backend/internal/platform/envutil"
)

// Settings is the full env-var surface shared by every process. Load it once at
// startup; processes read only the fields they need.
type Settings struct {
	AppEnv  string
	LogMode string

	// Auth (API only)
	AuthUsername string
	AuthPassword string
	JWTSecret    string
	JWTIssuer    string

	// API
	APIHost string
	APIPort int

	// Event ingress
	EventbusPort int

	// Object storage (S3 or MinIO)
	S3EndpointURL       string
	S3PublicEndpointURL string
	S3Region            string
	S3Bucket            string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string

	// Event stream + local queues (Redis)
	RedisURL          string
	RedisEventsStream string
	RedisJobsQueue    string
	RedisDLQ          string

	// Local persistence
	DBPath string

	// Backend switches
	StoreBackend string // sqlite|dynamodb
	QueueBackend string // redis|sqs

	// DynamoDB (managed mode)
	DDBJobsTable        string
	DDBResultsTable     string
	DDBIdempotencyTable string

	// SQS (managed mode)
	SQSJobsQueueURL string
	SQSDLQURL       string

	// EventBridge (managed mode)
	EventBridgeBusName string

	// Worker
	WorkerConcurrency    int
	WorkerMaxAttempts    int
	WorkerBackoffSeconds float64
	WorkerMetricsPort    int

	// Summarizer
	BedrockMode    string // mock|bedrock
	BedrockModelID string

	// Event ingress URL the worker posts JobCompleted events to (local mode)
	EventbusURL string

	// DLQ analyzer output
	ReportsDir string
}

func Load() Settings {
	return Settings{
		AppEnv:  envutil.Str("APP_ENV", "local"),
		LogMode: envutil.Str("LOG_MODE", "development"),

		AuthUsername: envutil.Str("AUTH_USERNAME", "demo"),
		AuthPassword: envutil.Str("AUTH_PASSWORD", "demo"),
		JWTSecret:    envutil.Str("JWT_SECRET", "change-me-in-prod"),
		JWTIssuer:    envutil.Str("JWT_ISSUER", "vidmeta"),

		APIHost: envutil.Str("API_HOST", "0.0.0.0"),
		APIPort: envutil.Int("API_PORT", 8000),

		EventbusPort: envutil.Int("EVENTBUS_PORT", 8080),

		S3EndpointURL:       envutil.Str("S3_ENDPOINT_URL", ""),
		S3PublicEndpointURL: envutil.Str("S3_PUBLIC_ENDPOINT_URL", ""),
		S3Region:            envutil.Str("S3_REGION", "us-east-1"),
		S3Bucket:            envutil.Str("S3_BUCKET", "videos"),
		AWSAccessKeyID:      envutil.Str("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  envutil.Str("AWS_SECRET_ACCESS_KEY", ""),

		RedisURL:          envutil.Str("REDIS_URL", "redis://localhost:6379/0"),
		RedisEventsStream: envutil.Str("REDIS_EVENTS_STREAM", "events"),
		RedisJobsQueue:    envutil.Str("REDIS_JOBS_QUEUE", "jobs"),
		RedisDLQ:          envutil.Str("REDIS_DLQ", "dlq"),

		DBPath: envutil.Str("DB_PATH", "data/app.db"),

		StoreBackend: envutil.Str("STORE_BACKEND", "sqlite"),
		QueueBackend: envutil.Str("QUEUE_BACKEND", "redis"),

		DDBJobsTable:        envutil.Str("DDB_JOBS_TABLE", ""),
		DDBResultsTable:     envutil.Str("DDB_RESULTS_TABLE", ""),
		DDBIdempotencyTable: envutil.Str("DDB_IDEMPOTENCY_TABLE", ""),

		SQSJobsQueueURL: envutil.Str("SQS_JOBS_QUEUE_URL", ""),
		SQSDLQURL:       envutil.Str("SQS_DLQ_URL", ""),

		EventBridgeBusName: envutil.Str("EVENTBRIDGE_BUS_NAME", "default"),

		WorkerConcurrency:    envutil.Int("WORKER_CONCURRENCY", 1),
		WorkerMaxAttempts:    envutil.Int("WORKER_MAX_ATTEMPTS", 3),
		WorkerBackoffSeconds: envutil.Float64("WORKER_BACKOFF_SECONDS", 1.0),
		WorkerMetricsPort:    envutil.Int("WORKER_METRICS_PORT", 9100),

		BedrockMode:    envutil.Str("BEDROCK_MODE", "mock"),
		BedrockModelID: envutil.Str("BEDROCK_MODEL_ID", "anthropic.claude-3-sonnet-20240229-v1:0"),

		EventbusURL: envutil.Str("EVENTBUS_URL", ""),

		ReportsDir: envutil.Str("REPORTS_DIR", "incidents"),
	}
}

func (s Settings) WorkerBackoff() time.Duration {
	return time.Duration(s.WorkerBackoffSeconds * float64(time.Second))
}
