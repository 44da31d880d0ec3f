package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/vidmeta/backend/internal/clients/awsx"
	"github.com/vidmeta/backend/internal/config"
	"github.com/vidmeta/backend/internal/platform/logger"
	"github.com/vidmeta/backend/internal/types"
)

const (
	historyIndex     = "gsi1"
	historyPartition = "HISTORY"
)

type DynamoAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// DynamoStore is the managed backend. Conditional puts carry the same
// semantics as the embedded backend: a ConditionalCheckFailedException is a
// no-op (create) or a false claim, never an error.
//
// The history scan rides a GSI with a constant partition and sort key
// "<created_at>#<job_id>", so list order matches the embedded backend down to
// the tie-break.
type DynamoStore struct {
	ddb          DynamoAPI
	jobsTable    string
	resultsTable string
	idemTable    string
	log          *logger.Logger
}

func NewDynamoStore(ctx context.Context, settings config.Settings, log *logger.Logger) (*DynamoStore, error) {
	cfg, err := awsx.Load(ctx, settings)
	if err != nil {
		return nil, err
	}
	var slog *logger.Logger
	if log != nil {
		slog = log.With("component", "DynamoStore")
	}
	return &DynamoStore{
		ddb:          dynamodb.NewFromConfig(cfg),
		jobsTable:    settings.DDBJobsTable,
		resultsTable: settings.DDBResultsTable,
		idemTable:    settings.DDBIdempotencyTable,
		log:          slog,
	}, nil
}

func isConditionalFail(err error) bool {
	var ccfe *ddbtypes.ConditionalCheckFailedException
	return errors.As(err, &ccfe)
}

func attrS(v string) ddbtypes.AttributeValue {
	return &ddbtypes.AttributeValueMemberS{Value: v}
}

func strAttr(item map[string]ddbtypes.AttributeValue, name string) string {
	if av, ok := item[name].(*ddbtypes.AttributeValueMemberS); ok {
		return av.Value
	}
	return ""
}

func (s *DynamoStore) CreateJobIfMissing(ctx context.Context, jobID, bucket, key string, status types.JobStatus) error {
	now := nowStamp()
	_, err := s.ddb.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.jobsTable),
		Item: map[string]ddbtypes.AttributeValue{
			"job_id":     attrS(jobID),
			"status":     attrS(string(status)),
			"created_at": attrS(now),
			"updated_at": attrS(now),
			"s3_bucket":  attrS(bucket),
			"s3_key":     attrS(key),
			"gsi1pk":     attrS(historyPartition),
			"gsi1sk":     attrS(now + "#" + jobID),
		},
		ConditionExpression: aws.String("attribute_not_exists(job_id)"),
	})
	if err != nil {
		if isConditionalFail(err) {
			return nil
		}
		return fmt.Errorf("put job %s: %w", jobID, err)
	}
	return nil
}

func (s *DynamoStore) UpdateJob(ctx context.Context, jobID string, status types.JobStatus, errorCode, errorMessage string) error {
	if status != types.JobStatusFailed {
		errorCode, errorMessage = "", ""
	}
	_, err := s.ddb.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                aws.String(s.jobsTable),
		Key:                      map[string]ddbtypes.AttributeValue{"job_id": attrS(jobID)},
		UpdateExpression:         aws.String("SET #s = :s, updated_at = :u, error_code = :ec, error_message = :em"),
		ConditionExpression:      aws.String("attribute_exists(job_id)"),
		ExpressionAttributeNames: map[string]string{"#s": "status"},
		ExpressionAttributeValues: map[string]ddbtypes.AttributeValue{
			":s":  attrS(string(status)),
			":u":  attrS(nowStamp()),
			":ec": attrS(errorCode),
			":em": attrS(errorMessage),
		},
	})
	if err != nil {
		// Missing job is a no-op, matching the embedded backend.
		if isConditionalFail(err) {
			return nil
		}
		return fmt.Errorf("update job %s: %w", jobID, err)
	}
	return nil
}

func (s *DynamoStore) GetJob(ctx context.Context, jobID string) (*types.JobRecord, error) {
	res, err := s.ddb.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.jobsTable),
		Key:       map[string]ddbtypes.AttributeValue{"job_id": attrS(jobID)},
	})
	if err != nil {
		return nil, fmt.Errorf("get job %s: %w", jobID, err)
	}
	if len(res.Item) == 0 {
		return nil, nil
	}
	rec := itemToRecord(res.Item)
	return &rec, nil
}

func (s *DynamoStore) ListJobs(ctx context.Context, limit int) ([]types.JobRecord, error) {
	limit = clampLimit(limit)
	res, err := s.ddb.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.jobsTable),
		IndexName:              aws.String(historyIndex),
		KeyConditionExpression: aws.String("gsi1pk = :pk"),
		ExpressionAttributeValues: map[string]ddbtypes.AttributeValue{
			":pk": attrS(historyPartition),
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(int32(limit)),
	})
	if err != nil {
		return nil, fmt.Errorf("query job history: %w", err)
	}
	out := make([]types.JobRecord, 0, len(res.Items))
	for _, item := range res.Items {
		out = append(out, itemToRecord(item))
	}
	return out, nil
}

func (s *DynamoStore) StoreResult(ctx context.Context, jobID string, metadata map[string]any, summary string) error {
	raw, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("marshal result metadata: %w", err)
	}
	_, err = s.ddb.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.resultsTable),
		Item: map[string]ddbtypes.AttributeValue{
			"job_id":        attrS(jobID),
			"metadata_json": attrS(string(raw)),
			"summary":       attrS(summary),
		},
	})
	if err != nil {
		return fmt.Errorf("put result %s: %w", jobID, err)
	}
	return nil
}

func (s *DynamoStore) GetResult(ctx context.Context, jobID string) (*types.JobResult, error) {
	res, err := s.ddb.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.resultsTable),
		Key:       map[string]ddbtypes.AttributeValue{"job_id": attrS(jobID)},
	})
	if err != nil {
		return nil, fmt.Errorf("get result %s: %w", jobID, err)
	}
	if len(res.Item) == 0 {
		return nil, nil
	}
	var metadata map[string]any
	if raw := strAttr(res.Item, "metadata_json"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &metadata); err != nil {
			return nil, fmt.Errorf("decode result metadata %s: %w", jobID, err)
		}
	}
	return &types.JobResult{
		JobID:    strAttr(res.Item, "job_id"),
		Metadata: metadata,
		Summary:  strAttr(res.Item, "summary"),
	}, nil
}

func (s *DynamoStore) TryClaimIdempotency(ctx context.Context, idempotencyKey, jobID string) (bool, error) {
	_, err := s.ddb.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.idemTable),
		Item: map[string]ddbtypes.AttributeValue{
			"idempotency_key": attrS(idempotencyKey),
			"job_id":          attrS(jobID),
			"created_at":      attrS(nowStamp()),
		},
		ConditionExpression: aws.String("attribute_not_exists(idempotency_key)"),
	})
	if err != nil {
		if isConditionalFail(err) {
			return false, nil
		}
		return false, fmt.Errorf("claim idempotency %s: %w", idempotencyKey, err)
	}
	return true, nil
}

func itemToRecord(item map[string]ddbtypes.AttributeValue) types.JobRecord {
	return types.JobRecord{
		JobID:     strAttr(item, "job_id"),
		Status:    types.JobStatus(strAttr(item, "status")),
		CreatedAt: parseStamp(strAttr(item, "created_at")),
		UpdatedAt: parseStamp(strAttr(item, "updated_at")),
		S3Bucket:  strAttr(item, "s3_bucket"),
		S3Key:     strAttr(item, "s3_key"),
		// Empty strings read back as unset, keeping the FAILED invariant
		// observable even though the update expression always writes them.
		ErrorCode:    strAttr(item, "error_code"),
		ErrorMessage: strAttr(item, "error_message"),
	}
}
