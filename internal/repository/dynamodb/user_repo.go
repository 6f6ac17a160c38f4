package dynamodb

import (
	"context"
	"fmt"

	"streakd/internal/domain"
	"streakd/internal/logger"
	repository "streakd/internal/repository"
	repositoryIface "streakd/internal/repository/iface"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const UsersTable = "users"

type userRepository struct {
	client    *dynamodb.Client
	tableName string
	logger    logger.Logger
}

// NewUserRepository reads the users table owned by the auth service
func NewUserRepository(client *dynamodb.Client, log logger.Logger) repositoryIface.UserRepository {
	return &userRepository{
		client:    client,
		tableName: UsersTable,
		logger:    log.With(logger.String("component", "user_repository")),
	}
}

func (r *userRepository) GetByID(ctx context.Context, userID string) (*domain.User, error) {
	result, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"user_id": &types.AttributeValueMemberS{Value: userID},
		},
	})
	if err != nil {
		r.logger.Error("failed to get user", logger.Error(err))
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if result.Item == nil {
		return nil, fmt.Errorf("%w: user %s", repository.ErrNotFound, userID)
	}

	var user domain.User
	if err := attributevalue.UnmarshalMap(result.Item, &user); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user: %w", err)
	}
	return &user, nil
}
