package config

import (
	"sync"

	"streakd/internal/logger"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// WatchSchedulerFlag calls apply whenever scheduler.enabled changes in the config
// file. It reports false when no file was loaded and there is nothing to watch.
func WatchSchedulerFlag(v *viper.Viper, apply func(enabled bool), log logger.Logger) bool {
	if v.ConfigFileUsed() == "" {
		return false
	}

	var mu sync.Mutex
	last := v.GetBool("scheduler.enabled")

	v.OnConfigChange(func(e fsnotify.Event) {
		mu.Lock()
		defer mu.Unlock()

		enabled := v.GetBool("scheduler.enabled")
		if enabled == last {
			return
		}
		last = enabled

		log.Info("scheduler.enabled changed in config file",
			logger.String("file", e.Name),
			logger.String("op", e.Op.String()),
			logger.Bool("enabled", enabled))
		apply(enabled)
	})
	v.WatchConfig()

	log.Info("watching config file", logger.String("file", v.ConfigFileUsed()))
	return true
}
