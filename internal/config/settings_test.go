package config

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"streakd/internal/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "streakd.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	s, v, err := Load("")
	require.NoError(t, err)
	require.NotNil(t, v)

	assert.True(t, s.Scheduler.Enabled)
	assert.Equal(t, "0 * * * * *", s.Scheduler.Cron)
	assert.Equal(t, 20, s.Scheduler.BatchSize)
	assert.Equal(t, time.Duration(0), s.Scheduler.DueOffset())
	assert.Equal(t, 55*time.Second, s.Scheduler.TickLeaseTTL)
	assert.Equal(t, StoreDynamoDB, s.Store.Driver)
	assert.Equal(t, "sqlite", s.Store.SQL.Dialect)
	assert.Equal(t, "8091", s.HTTP.Port)
	assert.Equal(t, "https://api.github.com", s.GitHub.APIURL)
	assert.Equal(t, defaultTogglePath, s.Zookeeper.TogglePath)
	assert.Empty(t, s.Zookeeper.Servers)
	assert.Empty(t, s.Redis.Addr)
	assert.Equal(t, 1, s.Events.TriggerWorkers)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("STREAKD_SCHEDULER_BATCH_SIZE", "5")
	t.Setenv("STREAKD_SCHEDULER_DUE_OFFSET_MINUTES", "330")
	t.Setenv("STREAKD_STORE_DRIVER", "memory")
	t.Setenv("STREAKD_ZOOKEEPER_SERVERS", "zk1:2181,zk2:2181")
	t.Setenv("STREAKD_REDIS_ADDR", "localhost:6379")

	s, _, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 5, s.Scheduler.BatchSize)
	assert.Equal(t, 330*time.Minute, s.Scheduler.DueOffset())
	assert.Equal(t, StoreMemory, s.Store.Driver)
	assert.Equal(t, []string{"zk1:2181", "zk2:2181"}, s.Zookeeper.Servers)
	assert.Equal(t, "localhost:6379", s.Redis.Addr)
}

func TestLoadConfigFile(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `
scheduler:
  enabled: false
  cron: "*/30 * * * * *"
store:
  driver: sql
  sql:
    dialect: postgres
    dsn: host=localhost user=streakd
events:
  queue_url: http://localhost:4566/000000000000/commit-events
http:
  port: "9000"
`)

	s, v, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, path, v.ConfigFileUsed())
	assert.False(t, s.Scheduler.Enabled)
	assert.Equal(t, "*/30 * * * * *", s.Scheduler.Cron)
	assert.Equal(t, StoreSQL, s.Store.Driver)
	assert.Equal(t, "postgres", s.Store.SQL.Dialect)
	assert.Equal(t, "host=localhost user=streakd", s.Store.SQL.DSN)
	assert.Equal(t, "http://localhost:4566/000000000000/commit-events", s.Events.QueueURL)
	assert.Equal(t, "9000", s.HTTP.Port)
	// untouched keys keep their defaults
	assert.Equal(t, 20, s.Scheduler.BatchSize)
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	t.Run("missing explicit file", func(t *testing.T) {
		_, _, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("unknown store driver", func(t *testing.T) {
		t.Setenv("STREAKD_STORE_DRIVER", "cassandra")
		_, _, err := Load("")
		assert.ErrorContains(t, err, "store.driver")
	})

	t.Run("non-positive batch size", func(t *testing.T) {
		t.Setenv("STREAKD_SCHEDULER_BATCH_SIZE", "0")
		_, _, err := Load("")
		assert.ErrorContains(t, err, "batch_size")
	})
}

func TestWatchSchedulerFlag(t *testing.T) {
	t.Run("nothing to watch without a file", func(t *testing.T) {
		_, v, err := Load("")
		require.NoError(t, err)
		assert.False(t, WatchSchedulerFlag(v, func(bool) {}, logger.NewNopLogger()))
	})

	t.Run("applies changes of scheduler.enabled", func(t *testing.T) {
		dir := t.TempDir()
		path := writeConfig(t, dir, "scheduler:\n  enabled: true\n")
		_, v, err := Load(path)
		require.NoError(t, err)

		var disabled atomic.Bool
		require.True(t, WatchSchedulerFlag(v, func(enabled bool) {
			disabled.Store(!enabled)
		}, logger.NewNopLogger()))

		writeConfig(t, dir, "scheduler:\n  enabled: false\n")

		assert.Eventually(t, disabled.Load, 5*time.Second, 50*time.Millisecond)
	})
}
