package config

import (
	"context"

	"streakd/commons/routes"
	"streakd/commons/server"
	cache "streakd/internal/cache/iface"
	coordinator "streakd/internal/coordinator/iface"
	"streakd/internal/executor"
	"streakd/internal/github"
	"streakd/internal/handler"
	"streakd/internal/logger"
	"streakd/internal/notify"
	"streakd/internal/queue/sqs"
	internalRoutes "streakd/internal/routes"
	"streakd/internal/service"

	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awssqs "github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

const serviceName = "scheduler"

// ProvideStores opens the configured store and closes it on shutdown
func ProvideStores(
	lc fx.Lifecycle,
	cfg *Settings,
	dynamoClient *awsdynamodb.Client,
	log logger.Logger,
) (*Stores, error) {
	stores, err := OpenStores(context.Background(), cfg, func() *awsdynamodb.Client { return dynamoClient }, log)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return stores.Close()
		},
	})
	return stores, nil
}

// ProvideGitHubClient provides the rate-limited provider API client
func ProvideGitHubClient(cfg *Settings, log logger.Logger) (*github.Client, error) {
	return github.NewClient(github.Config{
		APIURL:            cfg.GitHub.APIURL,
		RequestsPerSecond: cfg.GitHub.RequestsPerSecond,
		Timeout:           cfg.GitHub.Timeout,
	}, log)
}

// ProvideCommitExecutor provides the go-git backed executor
func ProvideCommitExecutor(cfg *Settings, client *github.Client, log logger.Logger) executor.CommitExecutor {
	return executor.NewGitExecutor(cfg.Executor.Workdir, client, log)
}

// ProvideNotifier publishes outcome events to SQS when events.queue_url is set
// and logs them otherwise
func ProvideNotifier(cfg *Settings, sqsClient *awssqs.Client, log logger.Logger) notify.Notifier {
	if cfg.Events.QueueURL == "" {
		return notify.NewLogNotifier(log)
	}
	return notify.NewSQSNotifier(sqs.NewSQSPublisher(sqsClient, cfg.Events.QueueURL, log), log)
}

// ProvideTickLease uses Redis when available so only one instance ticks at a time
func ProvideTickLease(cfg *Settings, c cache.Cache, log logger.Logger) service.TickLease {
	if c == nil {
		return service.NewLocalLease()
	}
	return service.NewRedisTickLease(c, service.DefaultTickLeaseKey, cfg.Scheduler.TickLeaseTTL, log)
}

func ProvideTicker(cfg *Settings, log logger.Logger) service.Ticker {
	return service.NewCronTicker(cfg.Scheduler.Cron, log)
}

// ProvideScheduler provides scheduler service
func ProvideScheduler(
	cfg *Settings,
	stores *Stores,
	exec executor.CommitExecutor,
	notifier notify.Notifier,
	ticker service.Ticker,
	lease service.TickLease,
	log logger.Logger,
) *service.Scheduler {
	return service.NewScheduler(service.SchedulerDeps{
		Jobs:      stores.Jobs,
		Schedules: stores.Schedules,
		Users:     stores.Users,
		Executor:  exec,
		Notifier:  notifier,
		Ticker:    ticker,
		Lease:     lease,
	}, service.SchedulerConfig{
		Enabled:   cfg.Scheduler.Enabled,
		BatchSize: cfg.Scheduler.BatchSize,
		DueOffset: cfg.Scheduler.DueOffset(),
	}, log)
}

// ProvideCommitService provides the job-control service
func ProvideCommitService(
	stores *Stores,
	exec executor.CommitExecutor,
	notifier notify.Notifier,
	log logger.Logger,
) *service.CommitService {
	return service.NewCommitService(service.CommitServiceDeps{
		Jobs:      stores.Jobs,
		Schedules: stores.Schedules,
		Users:     stores.Users,
		Executor:  exec,
		Notifier:  notifier,
	}, log)
}

// ProvideClusterToggle returns nil when no coordinator is configured
func ProvideClusterToggle(
	cfg *Settings,
	coord coordinator.Coordinator,
	scheduler *service.Scheduler,
	log logger.Logger,
) *service.ClusterToggle {
	if coord == nil {
		return nil
	}
	return service.NewClusterToggle(coord, cfg.Zookeeper.TogglePath, scheduler, log)
}

// ProvideSchedulerHandler provides scheduler handler
func ProvideSchedulerHandler(
	scheduler *service.Scheduler,
	toggle *service.ClusterToggle,
	log logger.Logger,
) *handler.SchedulerHandler {
	var cluster handler.ClusterSwitch
	if toggle != nil {
		cluster = toggle
	}
	return handler.NewSchedulerHandler(scheduler, cluster, log)
}

func ProvideCommitHandler(commits *service.CommitService, log logger.Logger) *handler.CommitHandler {
	return handler.NewCommitHandler(commits, log)
}

func ProvideBulkScheduleHandler(commits *service.CommitService, log logger.Logger) *handler.BulkScheduleHandler {
	return handler.NewBulkScheduleHandler(commits, log)
}

// ProvideHealthHandler creates the health handler for scheduler service
func ProvideHealthHandler(scheduler *service.Scheduler, log logger.Logger) *handler.HealthHandler {
	return handler.NewHealthHandler(log, serviceName, scheduler)
}

// ProvideRouterConfig creates router configuration for scheduler service
func ProvideRouterConfig(cfg *Settings) routes.RouterConfig {
	mode := gin.ReleaseMode
	if cfg.Log.Dev {
		mode = gin.DebugMode
	}
	return routes.RouterConfig{
		ServiceName: serviceName,
		Version:     "v1",
		Mode:        mode,
	}
}

// ProvideServerConfig creates server configuration for scheduler service
func ProvideServerConfig(cfg *Settings) server.ServerConfig {
	return server.ServerConfig{
		Port: cfg.HTTP.Port,
	}
}

// ProvideRouteInitializer creates route initializer for scheduler service
func ProvideRouteInitializer(
	config routes.RouterConfig,
	healthHandler *handler.HealthHandler,
	schedulerHandler *handler.SchedulerHandler,
	commitHandler *handler.CommitHandler,
	bulkHandler *handler.BulkScheduleHandler,
) func(*gin.Engine, routes.RouteDependencies) {
	return func(router *gin.Engine, deps routes.RouteDependencies) {
		apiV1 := routes.CreateAPIGroup(router, config.Version)
		internalRoutes.InitHealthRoutes(apiV1, healthHandler, deps)
		internalRoutes.InitCommitRoutes(apiV1, commitHandler, deps)
		internalRoutes.InitBulkScheduleRoutes(apiV1, bulkHandler, deps)
		internalRoutes.InitSchedulerRoutes(apiV1, schedulerHandler, deps)
	}
}
