package main

import (
	"streakd/commons/config"
	"streakd/commons/server"
	internalConfig "streakd/internal/config"
	trigger_init "streakd/internal/consumer/trigger_queue/init"

	"go.uber.org/fx"
)

func main() {
	fx.New(
		fx.WithLogger(config.ProvideFxLogger),
		fx.Provide(
			config.ProvideSettings,
			config.ProvideLogger,
			config.ProvideRouteDependencies,
			config.ProvideAWSConfig,
			config.ProvideSQSClient,
			config.ProvideDynamoDBClient,
			config.ProvideRedisCache,
			config.ProvideZooKeeperCoordinator,
			internalConfig.ProvideStores,
			internalConfig.ProvideGitHubClient,
			internalConfig.ProvideCommitExecutor,
			internalConfig.ProvideNotifier,
			internalConfig.ProvideTickLease,
			internalConfig.ProvideTicker,
			internalConfig.ProvideScheduler,
			internalConfig.ProvideCommitService,
			internalConfig.ProvideClusterToggle,
			internalConfig.ProvideHealthHandler,
			internalConfig.ProvideSchedulerHandler,
			internalConfig.ProvideCommitHandler,
			internalConfig.ProvideBulkScheduleHandler,
			internalConfig.ProvideRouterConfig,
			internalConfig.ProvideServerConfig,
			internalConfig.ProvideRouteInitializer,
			config.ProvideRouter,
			server.NewHTTPServer,
		),
		trigger_init.TriggerQueueModule(),
		fx.Invoke(internalConfig.ManageSchedulerLifecycle),
		fx.Invoke(func(*server.HTTPServer) {}),
	).Run()
}
