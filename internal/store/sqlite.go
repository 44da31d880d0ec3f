package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/vidmeta/backend/internal/platform/logger"
	"github.com/vidmeta/backend/internal/types"
)

// Fixed-width so string comparison orders the same as time comparison.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type jobRow struct {
	JobID        string `gorm:"column:job_id;primaryKey"`
	Status       string `gorm:"column:status;not null"`
	CreatedAt    string `gorm:"column:created_at;not null;index:idx_jobs_created_at"`
	UpdatedAt    string `gorm:"column:updated_at;not null"`
	S3Bucket     string `gorm:"column:s3_bucket;not null"`
	S3Key        string `gorm:"column:s3_key;not null"`
	ErrorCode    string `gorm:"column:error_code"`
	ErrorMessage string `gorm:"column:error_message"`
}

func (jobRow) TableName() string { return "jobs" }

type resultRow struct {
	JobID        string `gorm:"column:job_id;primaryKey"`
	MetadataJSON string `gorm:"column:metadata_json;not null"`
	Summary      string `gorm:"column:summary;not null"`
}

func (resultRow) TableName() string { return "results" }

type idempotencyRow struct {
	IdempotencyKey string `gorm:"column:idempotency_key;primaryKey"`
	JobID          string `gorm:"column:job_id;not null"`
	CreatedAt      string `gorm:"column:created_at;not null"`
}

func (idempotencyRow) TableName() string { return "idempotency" }

// SqliteStore is the embedded single-node backend.
type SqliteStore struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSqliteStore(dbPath string, log *logger.Logger) (*SqliteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=30000", dbPath)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.AutoMigrate(&jobRow{}, &resultRow{}, &idempotencyRow{}); err != nil {
		return nil, fmt.Errorf("migrate sqlite schema: %w", err)
	}
	var slog *logger.Logger
	if log != nil {
		slog = log.With("component", "SqliteStore")
	}
	return &SqliteStore{db: db, log: slog}, nil
}

func nowStamp() string {
	return time.Now().UTC().Format(timeLayout)
}

func parseStamp(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func (s *SqliteStore) CreateJobIfMissing(ctx context.Context, jobID, bucket, key string, status types.JobStatus) error {
	now := nowStamp()
	row := jobRow{
		JobID:     jobID,
		Status:    string(status),
		CreatedAt: now,
		UpdatedAt: now,
		S3Bucket:  bucket,
		S3Key:     key,
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "job_id"}}, DoNothing: true}).
		Create(&row).Error
}

func (s *SqliteStore) UpdateJob(ctx context.Context, jobID string, status types.JobStatus, errorCode, errorMessage string) error {
	if status != types.JobStatusFailed {
		errorCode, errorMessage = "", ""
	}
	return s.db.WithContext(ctx).Model(&jobRow{}).Where("job_id = ?", jobID).Updates(map[string]any{
		"status":        string(status),
		"updated_at":    nowStamp(),
		"error_code":    errorCode,
		"error_message": errorMessage,
	}).Error
}

func (s *SqliteStore) GetJob(ctx context.Context, jobID string) (*types.JobRecord, error) {
	var row jobRow
	err := s.db.WithContext(ctx).Where("job_id = ?", jobID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job %s: %w", jobID, err)
	}
	rec := rowToRecord(row)
	return &rec, nil
}

func (s *SqliteStore) ListJobs(ctx context.Context, limit int) ([]types.JobRecord, error) {
	limit = clampLimit(limit)
	var rows []jobRow
	err := s.db.WithContext(ctx).
		Order("created_at DESC, job_id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	out := make([]types.JobRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, rowToRecord(row))
	}
	return out, nil
}

func (s *SqliteStore) StoreResult(ctx context.Context, jobID string, metadata map[string]any, summary string) error {
	raw, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("marshal result metadata: %w", err)
	}
	row := resultRow{JobID: jobID, MetadataJSON: string(raw), Summary: summary}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "job_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"metadata_json", "summary"}),
		}).
		Create(&row).Error
}

func (s *SqliteStore) GetResult(ctx context.Context, jobID string) (*types.JobResult, error) {
	var row resultRow
	err := s.db.WithContext(ctx).Where("job_id = ?", jobID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get result %s: %w", jobID, err)
	}
	var metadata map[string]any
	if err := json.Unmarshal([]byte(row.MetadataJSON), &metadata); err != nil {
		return nil, fmt.Errorf("decode result metadata %s: %w", jobID, err)
	}
	return &types.JobResult{JobID: row.JobID, Metadata: metadata, Summary: row.Summary}, nil
}

func (s *SqliteStore) TryClaimIdempotency(ctx context.Context, idempotencyKey, jobID string) (bool, error) {
	row := idempotencyRow{IdempotencyKey: idempotencyKey, JobID: jobID, CreatedAt: nowStamp()}
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "idempotency_key"}}, DoNothing: true}).
		Create(&row)
	if res.Error != nil {
		return false, fmt.Errorf("claim idempotency %s: %w", idempotencyKey, res.Error)
	}
	return res.RowsAffected == 1, nil
}

func rowToRecord(row jobRow) types.JobRecord {
	return types.JobRecord{
		JobID:        row.JobID,
		Status:       types.JobStatus(row.Status),
		CreatedAt:    parseStamp(row.CreatedAt),
		UpdatedAt:    parseStamp(row.UpdatedAt),
		S3Bucket:     row.S3Bucket,
		S3Key:        row.S3Key,
		ErrorCode:    row.ErrorCode,
		ErrorMessage: row.ErrorMessage,
	}
}
