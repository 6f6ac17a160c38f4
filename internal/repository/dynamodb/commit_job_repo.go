package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"streakd/internal/domain"
	"streakd/internal/logger"
	repository "streakd/internal/repository"
	repositoryIface "streakd/internal/repository/iface"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const (
	CommitJobsTable = "commit_jobs"
	dueIndex        = "due_index"
	userIndex       = "user_index"

	// BatchGetItem accepts at most 100 keys per call.
	batchGetLimit = 100
)

type commitJobRepository struct {
	client    *dynamodb.Client
	tableName string
	logger    logger.Logger
}

// NewCommitJobRepository creates a DynamoDB commit job repository
func NewCommitJobRepository(client *dynamodb.Client, log logger.Logger) repositoryIface.CommitJobRepository {
	return &commitJobRepository{
		client:    client,
		tableName: CommitJobsTable,
		logger:    log.With(logger.String("component", "commit_job_repository")),
	}
}

func (r *commitJobRepository) Create(ctx context.Context, job *domain.CommitJob) error {
	r.logger.Debug("creating commit job",
		logger.String("job_id", job.ID))

	rec := newCommitJobRecord(job)
	rec.Version = 1
	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		r.logger.Error("failed to marshal commit job", logger.Error(err))
		return fmt.Errorf("failed to marshal commit job: %w", err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(job_id)"),
	})
	if err != nil {
		r.logger.Error("failed to create commit job", logger.Error(err))
		return fmt.Errorf("failed to create commit job: %w", err)
	}

	job.Version = 1
	return nil
}

func (r *commitJobRepository) Update(ctx context.Context, job *domain.CommitJob) error {
	rec := newCommitJobRecord(job)
	rec.Version = job.Version + 1
	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal commit job: %w", err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                item,
		ConditionExpression: aws.String("version = :expected_version"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":expected_version": &types.AttributeValueMemberN{Value: strconv.FormatInt(job.Version, 10)},
		},
	})
	if err != nil {
		var conditionalCheckErr *types.ConditionalCheckFailedException
		if errors.As(err, &conditionalCheckErr) {
			r.logger.Warn("optimistic lock failed - commit job was modified by another process",
				logger.String("job_id", job.ID),
				logger.Int64("expected_version", job.Version))
			return fmt.Errorf("%w: job_id=%s", repository.ErrOptimisticLockFailed, job.ID)
		}
		r.logger.Error("failed to update commit job", logger.Error(err))
		return fmt.Errorf("failed to update commit job: %w", err)
	}

	job.Version = rec.Version
	return nil
}

func (r *commitJobRepository) GetByID(ctx context.Context, jobID string) (*domain.CommitJob, error) {
	result, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            jobKey(jobID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		r.logger.Error("failed to get commit job", logger.Error(err))
		return nil, fmt.Errorf("failed to get commit job: %w", err)
	}
	if result.Item == nil {
		return nil, fmt.Errorf("%w: commit job %s", repository.ErrNotFound, jobID)
	}

	var rec commitJobRecord
	if err := attributevalue.UnmarshalMap(result.Item, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal commit job: %w", err)
	}
	return rec.toDomain()
}

func (r *commitJobRepository) ListDueCandidates(ctx context.Context, limit int) ([]*domain.CommitJob, error) {
	r.logger.Debug("querying due commit jobs",
		logger.Int("limit", limit))

	input := &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(dueIndex),
		KeyConditionExpression: aws.String("due_key = :due"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":due": &types.AttributeValueMemberS{Value: dueKeyPending},
		},
		ScanIndexForward: aws.Bool(true),
	}
	if limit > 0 {
		input.Limit = aws.Int32(int32(limit))
	}

	result, err := r.client.Query(ctx, input)
	if err != nil {
		r.logger.Error("failed to query due commit jobs", logger.Error(err))
		return nil, fmt.Errorf("failed to query due commit jobs: %w", err)
	}

	jobs := r.unmarshalJobs(result.Items)
	// The index is eventually consistent; drop anything that already left pending.
	due := jobs[:0]
	for _, job := range jobs {
		if job.IsPending() && job.IsScheduled() {
			due = append(due, job)
		}
	}
	return due, nil
}

func (r *commitJobRepository) ListByUser(ctx context.Context, userID string) ([]*domain.CommitJob, error) {
	paginator := dynamodb.NewQueryPaginator(r.client, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(userIndex),
		KeyConditionExpression: aws.String("user_id = :user_id"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":user_id": &types.AttributeValueMemberS{Value: userID},
		},
		ScanIndexForward: aws.Bool(false),
	})

	jobs := []*domain.CommitJob{}
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			r.logger.Error("failed to query user commit jobs", logger.Error(err))
			return nil, fmt.Errorf("failed to query user commit jobs: %w", err)
		}
		jobs = append(jobs, r.unmarshalJobs(page.Items)...)
	}
	return jobs, nil
}

func (r *commitJobRepository) CountPending(ctx context.Context, jobIDs []string) (int, error) {
	pending := 0
	for start := 0; start < len(jobIDs); start += batchGetLimit {
		end := min(start+batchGetLimit, len(jobIDs))
		keys := make([]map[string]types.AttributeValue, 0, end-start)
		seen := make(map[string]struct{}, end-start)
		for _, id := range jobIDs[start:end] {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			keys = append(keys, jobKey(id))
		}

		request := map[string]types.KeysAndAttributes{
			r.tableName: {
				Keys:                     keys,
				ProjectionExpression:     aws.String("job_id, #status"),
				ExpressionAttributeNames: map[string]string{"#status": "status"},
				ConsistentRead:           aws.Bool(true),
			},
		}
		for len(request) > 0 {
			result, err := r.client.BatchGetItem(ctx, &dynamodb.BatchGetItemInput{RequestItems: request})
			if err != nil {
				r.logger.Error("failed to batch get commit jobs", logger.Error(err))
				return 0, fmt.Errorf("failed to batch get commit jobs: %w", err)
			}
			for _, item := range result.Responses[r.tableName] {
				if status, ok := item["status"].(*types.AttributeValueMemberS); ok && status.Value == string(domain.JobStatusPending) {
					pending++
				}
			}
			request = result.UnprocessedKeys
		}
	}
	return pending, nil
}

func (r *commitJobRepository) DeletePendingByUser(ctx context.Context, userID string) (int, error) {
	jobs, err := r.ListByUser(ctx, userID)
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, job := range jobs {
		if !job.IsPending() {
			continue
		}
		_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
			TableName:                aws.String(r.tableName),
			Key:                      jobKey(job.ID),
			ConditionExpression:      aws.String("#status = :pending"),
			ExpressionAttributeNames: map[string]string{"#status": "status"},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pending": &types.AttributeValueMemberS{Value: string(domain.JobStatusPending)},
			},
		})
		if err != nil {
			var conditionalCheckErr *types.ConditionalCheckFailedException
			if errors.As(err, &conditionalCheckErr) {
				// finished between the read and the delete
				continue
			}
			r.logger.Error("failed to delete pending commit job",
				logger.String("job_id", job.ID),
				logger.Error(err))
			return deleted, fmt.Errorf("failed to delete commit job: %w", err)
		}
		deleted++
	}

	r.logger.Info("pending commit jobs deleted",
		logger.String("user_id", userID),
		logger.Int("count", deleted))
	return deleted, nil
}

func (r *commitJobRepository) Delete(ctx context.Context, jobID string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       jobKey(jobID),
	})
	if err != nil {
		r.logger.Error("failed to delete commit job", logger.Error(err))
		return fmt.Errorf("failed to delete commit job: %w", err)
	}
	return nil
}

func (r *commitJobRepository) unmarshalJobs(items []map[string]types.AttributeValue) []*domain.CommitJob {
	jobs := make([]*domain.CommitJob, 0, len(items))
	for _, item := range items {
		var rec commitJobRecord
		if err := attributevalue.UnmarshalMap(item, &rec); err != nil {
			r.logger.Warn("failed to unmarshal commit job", logger.Error(err))
			continue
		}
		job, err := rec.toDomain()
		if err != nil {
			r.logger.Warn("skipping commit job with invalid state",
				logger.String("job_id", rec.JobID),
				logger.Error(err))
			continue
		}
		jobs = append(jobs, job)
	}
	return jobs
}

func jobKey(jobID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"job_id": &types.AttributeValueMemberS{Value: jobID},
	}
}
