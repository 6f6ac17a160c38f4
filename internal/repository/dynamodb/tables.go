package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"streakd/internal/logger"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

func gsi(name, hash string, rangeKey string) types.GlobalSecondaryIndex {
	return types.GlobalSecondaryIndex{
		IndexName: aws.String(name),
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String(hash), KeyType: types.KeyTypeHash},
			{AttributeName: aws.String(rangeKey), KeyType: types.KeyTypeRange},
		},
		Projection: &types.Projection{ProjectionType: types.ProjectionTypeAll},
	}
}

func attr(name string, t types.ScalarAttributeType) types.AttributeDefinition {
	return types.AttributeDefinition{AttributeName: aws.String(name), AttributeType: t}
}

// TableDefinitions describes every table the service reads or writes.
func TableDefinitions() []*dynamodb.CreateTableInput {
	return []*dynamodb.CreateTableInput{
		{
			TableName: aws.String(CommitJobsTable),
			AttributeDefinitions: []types.AttributeDefinition{
				attr("job_id", types.ScalarAttributeTypeS),
				attr("user_id", types.ScalarAttributeTypeS),
				attr("target_time", types.ScalarAttributeTypeN),
				attr("due_key", types.ScalarAttributeTypeS),
				attr("scheduled_time", types.ScalarAttributeTypeN),
			},
			KeySchema: []types.KeySchemaElement{
				{AttributeName: aws.String("job_id"), KeyType: types.KeyTypeHash},
			},
			GlobalSecondaryIndexes: []types.GlobalSecondaryIndex{
				gsi(dueIndex, "due_key", "scheduled_time"),
				gsi(userIndex, "user_id", "target_time"),
			},
			BillingMode: types.BillingModePayPerRequest,
		},
		{
			TableName: aws.String(BulkSchedulesTable),
			AttributeDefinitions: []types.AttributeDefinition{
				attr("schedule_id", types.ScalarAttributeTypeS),
				attr("user_id", types.ScalarAttributeTypeS),
				attr("status", types.ScalarAttributeTypeS),
				attr("created_at", types.ScalarAttributeTypeN),
			},
			KeySchema: []types.KeySchemaElement{
				{AttributeName: aws.String("schedule_id"), KeyType: types.KeyTypeHash},
			},
			GlobalSecondaryIndexes: []types.GlobalSecondaryIndex{
				gsi(userIndex, "user_id", "created_at"),
				gsi(statusIndex, "status", "created_at"),
			},
			BillingMode: types.BillingModePayPerRequest,
		},
		{
			TableName: aws.String(UsersTable),
			AttributeDefinitions: []types.AttributeDefinition{
				attr("user_id", types.ScalarAttributeTypeS),
			},
			KeySchema: []types.KeySchemaElement{
				{AttributeName: aws.String("user_id"), KeyType: types.KeyTypeHash},
			},
			BillingMode: types.BillingModePayPerRequest,
		},
	}
}

// EnsureTables creates missing tables and waits for them to become active.
func EnsureTables(ctx context.Context, client *dynamodb.Client, log logger.Logger) error {
	waiter := dynamodb.NewTableExistsWaiter(client)
	for _, def := range TableDefinitions() {
		name := aws.ToString(def.TableName)
		_, err := client.CreateTable(ctx, def)
		if err != nil {
			var inUse *types.ResourceInUseException
			if !errors.As(err, &inUse) {
				return fmt.Errorf("failed to create table %s: %w", name, err)
			}
			log.Debug("table already exists", logger.String("table", name))
		} else {
			log.Info("table created", logger.String("table", name))
		}

		if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: def.TableName}, 2*time.Minute); err != nil {
			return fmt.Errorf("table %s not active: %w", name, err)
		}
	}
	return nil
}
