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
	BulkSchedulesTable = "bulk_schedules"
	statusIndex        = "status_index"
)

type bulkScheduleRepository struct {
	client    *dynamodb.Client
	tableName string
	logger    logger.Logger
}

// NewBulkScheduleRepository creates a DynamoDB bulk schedule repository
func NewBulkScheduleRepository(client *dynamodb.Client, log logger.Logger) repositoryIface.BulkScheduleRepository {
	return &bulkScheduleRepository{
		client:    client,
		tableName: BulkSchedulesTable,
		logger:    log.With(logger.String("component", "bulk_schedule_repository")),
	}
}

func (r *bulkScheduleRepository) Create(ctx context.Context, schedule *domain.BulkSchedule) error {
	rec := newBulkScheduleRecord(schedule)
	rec.Version = 1
	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		r.logger.Error("failed to marshal bulk schedule", logger.Error(err))
		return fmt.Errorf("failed to marshal bulk schedule: %w", err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(schedule_id)"),
	})
	if err != nil {
		r.logger.Error("failed to create bulk schedule", logger.Error(err))
		return fmt.Errorf("failed to create bulk schedule: %w", err)
	}

	schedule.Version = 1
	r.logger.Info("bulk schedule created",
		logger.String("schedule_id", schedule.ID))
	return nil
}

func (r *bulkScheduleRepository) Update(ctx context.Context, schedule *domain.BulkSchedule) error {
	rec := newBulkScheduleRecord(schedule)
	rec.Version = schedule.Version + 1
	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal bulk schedule: %w", err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                item,
		ConditionExpression: aws.String("version = :expected_version"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":expected_version": &types.AttributeValueMemberN{Value: strconv.FormatInt(schedule.Version, 10)},
		},
	})
	if err != nil {
		var conditionalCheckErr *types.ConditionalCheckFailedException
		if errors.As(err, &conditionalCheckErr) {
			r.logger.Warn("optimistic lock failed - bulk schedule was modified by another process",
				logger.String("schedule_id", schedule.ID),
				logger.Int64("expected_version", schedule.Version))
			return fmt.Errorf("%w: schedule_id=%s", repository.ErrOptimisticLockFailed, schedule.ID)
		}
		r.logger.Error("failed to update bulk schedule", logger.Error(err))
		return fmt.Errorf("failed to update bulk schedule: %w", err)
	}

	schedule.Version = rec.Version
	return nil
}

func (r *bulkScheduleRepository) GetByID(ctx context.Context, scheduleID string) (*domain.BulkSchedule, error) {
	result, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            scheduleKey(scheduleID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		r.logger.Error("failed to get bulk schedule", logger.Error(err))
		return nil, fmt.Errorf("failed to get bulk schedule: %w", err)
	}
	if result.Item == nil {
		return nil, fmt.Errorf("%w: bulk schedule %s", repository.ErrNotFound, scheduleID)
	}

	var rec bulkScheduleRecord
	if err := attributevalue.UnmarshalMap(result.Item, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal bulk schedule: %w", err)
	}
	return rec.toDomain(), nil
}

func (r *bulkScheduleRepository) ListByUser(ctx context.Context, userID string) ([]*domain.BulkSchedule, error) {
	return r.query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(userIndex),
		KeyConditionExpression: aws.String("user_id = :user_id"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":user_id": &types.AttributeValueMemberS{Value: userID},
		},
		ScanIndexForward: aws.Bool(false),
	})
}

func (r *bulkScheduleRepository) ListByStatus(ctx context.Context, status domain.ScheduleStatus) ([]*domain.BulkSchedule, error) {
	return r.query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(statusIndex),
		KeyConditionExpression: aws.String("#status = :status"),
		ExpressionAttributeNames: map[string]string{
			"#status": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":status": &types.AttributeValueMemberS{Value: string(status)},
		},
		ScanIndexForward: aws.Bool(false),
	})
}

func (r *bulkScheduleRepository) Delete(ctx context.Context, scheduleID string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       scheduleKey(scheduleID),
	})
	if err != nil {
		r.logger.Error("failed to delete bulk schedule", logger.Error(err))
		return fmt.Errorf("failed to delete bulk schedule: %w", err)
	}
	return nil
}

func (r *bulkScheduleRepository) query(ctx context.Context, input *dynamodb.QueryInput) ([]*domain.BulkSchedule, error) {
	paginator := dynamodb.NewQueryPaginator(r.client, input)

	schedules := []*domain.BulkSchedule{}
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			r.logger.Error("failed to query bulk schedules", logger.Error(err))
			return nil, fmt.Errorf("failed to query bulk schedules: %w", err)
		}
		for _, item := range page.Items {
			var rec bulkScheduleRecord
			if err := attributevalue.UnmarshalMap(item, &rec); err != nil {
				r.logger.Warn("failed to unmarshal bulk schedule", logger.Error(err))
				continue
			}
			schedules = append(schedules, rec.toDomain())
		}
	}
	return schedules, nil
}

func scheduleKey(scheduleID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"schedule_id": &types.AttributeValueMemberS{Value: scheduleID},
	}
}
