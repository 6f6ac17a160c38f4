package config

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"streakd/internal/domain"
	"streakd/internal/logger"
	"streakd/internal/repository"

	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noDynamo(t *testing.T) func() *awsdynamodb.Client {
	return func() *awsdynamodb.Client {
		t.Fatal("dynamodb client requested for a non-dynamodb store")
		return nil
	}
}

func TestOpenStores(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	cases := map[string]*Settings{
		"memory": {Store: StoreSettings{Driver: StoreMemory}},
		"sqlite": {Store: StoreSettings{
			Driver: StoreSQL,
			SQL:    SQLSettings{Dialect: "sqlite", DSN: filepath.Join(t.TempDir(), "streakd.db")},
		}},
	}

	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			stores, err := OpenStores(ctx, cfg, noDynamo(t), logger.NewNopLogger())
			require.NoError(t, err)
			defer func() { assert.NoError(t, stores.Close()) }()

			job := domain.NewCommitJob(domain.NewCommitJobParams{
				UserID:        "u1",
				Repository:    "octo/repo",
				RepositoryURL: "octo/repo",
				FilePath:      "README.md",
				Message:       "docs",
				TargetTime:    now,
				ScheduledTime: &now,
			}, now)
			require.NoError(t, stores.Jobs.Create(ctx, job))

			got, err := stores.Jobs.GetByID(ctx, job.ID)
			require.NoError(t, err)
			assert.Equal(t, job.ID, got.ID)

			_, err = stores.Users.GetByID(ctx, "nobody")
			assert.True(t, repository.IsNotFoundError(err))
		})
	}
}

func TestOpenStoresRejectsUnknownDriver(t *testing.T) {
	_, err := OpenStores(context.Background(), &Settings{Store: StoreSettings{Driver: "etcd"}}, noDynamo(t), logger.NewNopLogger())
	assert.Error(t, err)
}
