package config

import (
	"context"
	"fmt"

	"streakd/internal/logger"
	"streakd/internal/repository/dynamodb"
	"streakd/internal/repository/gormstore"
	repositoryIface "streakd/internal/repository/iface"
	"streakd/internal/repository/memory"

	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// Stores is the persistence selected by store.driver
type Stores struct {
	Jobs      repositoryIface.CommitJobRepository
	Schedules repositoryIface.BulkScheduleRepository
	Users     repositoryIface.UserRepository
	// Close releases the underlying connection, if any
	Close func() error
}

// OpenStores builds the repositories for cfg.Store.Driver. dynamoClient is only
// called for the dynamodb driver.
func OpenStores(
	ctx context.Context,
	cfg *Settings,
	dynamoClient func() *awsdynamodb.Client,
	log logger.Logger,
) (*Stores, error) {
	noop := func() error { return nil }

	switch cfg.Store.Driver {
	case StoreDynamoDB:
		client := dynamoClient()
		if cfg.Store.EnsureTables {
			if err := dynamodb.EnsureTables(ctx, client, log); err != nil {
				return nil, err
			}
		}
		return &Stores{
			Jobs:      dynamodb.NewCommitJobRepository(client, log),
			Schedules: dynamodb.NewBulkScheduleRepository(client, log),
			Users:     dynamodb.NewUserRepository(client, log),
			Close:     noop,
		}, nil

	case StoreSQL:
		dialector, err := gormstore.Dialector(cfg.Store.SQL.Dialect, cfg.Store.SQL.DSN)
		if err != nil {
			return nil, err
		}
		db, err := gormstore.Open(dialector, log)
		if err != nil {
			return nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get sql handle: %w", err)
		}
		return &Stores{
			Jobs:      gormstore.NewCommitJobRepository(db, log),
			Schedules: gormstore.NewBulkScheduleRepository(db, log),
			Users:     gormstore.NewUserRepository(db),
			Close:     sqlDB.Close,
		}, nil

	case StoreMemory:
		log.Warn("using in-memory store; jobs are lost on restart and no users exist")
		return &Stores{
			Jobs:      memory.NewCommitJobRepository(),
			Schedules: memory.NewBulkScheduleRepository(),
			Users:     memory.NewUserRepository(),
			Close:     noop,
		}, nil

	default:
		return nil, fmt.Errorf("unknown store.driver %q", cfg.Store.Driver)
	}
}
