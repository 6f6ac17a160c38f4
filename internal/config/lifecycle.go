package config

import (
	"context"

	"streakd/internal/logger"
	"streakd/internal/service"

	"github.com/spf13/viper"
	"go.uber.org/fx"
)

// LifecycleParams are the long-running pieces started with the application
type LifecycleParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Scheduler *service.Scheduler
	Toggle    *service.ClusterToggle
	Viper     *viper.Viper
	Logger    logger.Logger
}

// ManageSchedulerLifecycle starts the scheduler loop, follows the cluster toggle
// and the config file, and drains the loop on shutdown
func ManageSchedulerLifecycle(p LifecycleParams) {
	log := p.Logger.With(logger.String("component", "lifecycle"))
	watchCtx, cancelWatch := context.WithCancel(context.Background())

	setEnabled := func(enabled bool) {
		if p.Toggle != nil {
			if err := p.Toggle.Set(enabled); err != nil {
				log.Error("failed to publish scheduler toggle", logger.Error(err))
			}
			return
		}
		if !enabled {
			p.Scheduler.Disable()
			return
		}
		if err := p.Scheduler.Enable(); err != nil {
			log.Error("failed to enable scheduler", logger.Error(err))
		}
	}

	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := p.Scheduler.Start(ctx); err != nil {
				return err
			}
			if p.Toggle != nil {
				if err := p.Toggle.Watch(watchCtx); err != nil {
					return err
				}
			}
			WatchSchedulerFlag(p.Viper, setEnabled, log)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			cancelWatch()
			return p.Scheduler.Shutdown(ctx)
		},
	})
}
