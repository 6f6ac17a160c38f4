package service

import (
	"context"
	"strconv"
	"strings"

	coordinator "streakd/internal/coordinator/iface"
	"streakd/internal/logger"
)

// DefaultTogglePath is the coordination node holding "true" or "false"
const DefaultTogglePath = "/streakd/scheduler/enabled"

// Switchable is the part of the scheduler the toggle drives
type Switchable interface {
	Enable() error
	Disable()
	IsEnabled() bool
}

// ClusterToggle keeps the scheduler's enabled flag in step with a shared node so
// enable/disable applies to every instance
type ClusterToggle struct {
	coord     coordinator.Coordinator
	path      string
	scheduler Switchable
	logger    logger.Logger
}

func NewClusterToggle(coord coordinator.Coordinator, path string, scheduler Switchable, log logger.Logger) *ClusterToggle {
	if path == "" {
		path = DefaultTogglePath
	}
	return &ClusterToggle{
		coord:     coord,
		path:      path,
		scheduler: scheduler,
		logger:    log.With(logger.String("component", "cluster_toggle")),
	}
}

// Watch seeds the node with the local flag if it is missing and then follows it
// until ctx is cancelled
func (t *ClusterToggle) Watch(ctx context.Context) error {
	if err := t.coord.EnsureNode(t.path, encodeToggle(t.scheduler.IsEnabled())); err != nil {
		return err
	}
	return t.coord.WatchNode(ctx, t.path, t.apply)
}

// Set publishes a new value; every watching instance, this one included, applies it
func (t *ClusterToggle) Set(enabled bool) error {
	return t.coord.SetNode(t.path, encodeToggle(enabled))
}

func (t *ClusterToggle) apply(data []byte) {
	enabled, err := strconv.ParseBool(strings.TrimSpace(string(data)))
	if err != nil {
		t.logger.Warn("ignoring unparseable scheduler toggle",
			logger.String("path", t.path),
			logger.String("value", string(data)))
		return
	}
	if enabled == t.scheduler.IsEnabled() {
		return
	}

	t.logger.Info("scheduler toggle changed", logger.Bool("enabled", enabled))
	if enabled {
		if err := t.scheduler.Enable(); err != nil {
			t.logger.Error("failed to enable scheduler", logger.Error(err))
		}
		return
	}
	t.scheduler.Disable()
}

func encodeToggle(enabled bool) []byte {
	return []byte(strconv.FormatBool(enabled))
}
