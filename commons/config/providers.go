package config

import (
	"context"
	"os"

	"streakd/commons/routes"
	cache "streakd/internal/cache/iface"
	redisCache "streakd/internal/cache/redis"
	settings "streakd/internal/config"
	coordinator "streakd/internal/coordinator/iface"
	zkCoordinator "streakd/internal/coordinator/zk"
	"streakd/internal/logger"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
)

// ConfigFileEnv points at an explicit config file; unset means ./streakd.yaml if present
const ConfigFileEnv = "STREAKD_CONFIG"

// ProvideSettings loads configuration once for the whole application
func ProvideSettings() (*settings.Settings, *viper.Viper, error) {
	return settings.Load(os.Getenv(ConfigFileEnv))
}

// ProvideLogger creates and configures the logger for the application
func ProvideLogger(cfg *settings.Settings) (logger.Logger, error) {
	if cfg.Log.Dev {
		return logger.NewZapLoggerForDev()
	}
	return logger.NewZapLogger(cfg.Log.Level)
}

// ProvideFxLogger creates the FX event logger using the application logger
func ProvideFxLogger(log logger.Logger) fxevent.Logger {
	return &fxevent.ZapLogger{
		Logger: log.(*logger.ZapLogger).Logger(),
	}
}

// ProvideRouteDependencies creates route dependencies
func ProvideRouteDependencies(log logger.Logger) routes.RouteDependencies {
	return routes.RouteDependencies{
		Logger: log,
	}
}

// ProvideRouter creates and configures the Gin router with all routes
func ProvideRouter(
	config routes.RouterConfig,
	deps routes.RouteDependencies,
	routeInitializer func(*gin.Engine, routes.RouteDependencies),
) *gin.Engine {
	router := routes.NewRouter(config, deps)
	routeInitializer(router, deps)
	return router
}

// ProvideAWSConfig loads shared AWS configuration for the configured region
func ProvideAWSConfig(cfg *settings.Settings) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(cfg.AWS.Region),
	)
}

// ProvideSQSClient provides an SQS client (for LocalStack or AWS)
func ProvideSQSClient(awsCfg aws.Config, cfg *settings.Settings) *sqs.Client {
	endpoint := cfg.AWS.SQSEndpoint
	return sqs.NewFromConfig(awsCfg, func(o *sqs.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
}

// ProvideDynamoDBClient provides DynamoDB client
func ProvideDynamoDBClient(awsCfg aws.Config, cfg *settings.Settings) *awsdynamodb.Client {
	endpoint := cfg.AWS.DynamoDBEndpoint
	return awsdynamodb.NewFromConfig(awsCfg, func(o *awsdynamodb.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
}

// ProvideZooKeeperCoordinator connects to ZooKeeper when servers are configured.
// It returns a nil coordinator otherwise.
func ProvideZooKeeperCoordinator(
	lc fx.Lifecycle,
	cfg *settings.Settings,
	log logger.Logger,
) (coordinator.Coordinator, error) {
	if len(cfg.Zookeeper.Servers) == 0 {
		log.Info("zookeeper not configured, scheduler toggle stays local")
		return nil, nil
	}

	coord, err := zkCoordinator.NewZKCoordinator(cfg.Zookeeper.Servers, cfg.Zookeeper.SessionTimeout, log)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return coord.Close()
		},
	})
	return coord, nil
}

// ProvideRedisCache connects to Redis when an address is configured.
// It returns a nil cache otherwise.
func ProvideRedisCache(
	lc fx.Lifecycle,
	cfg *settings.Settings,
	log logger.Logger,
) (cache.Cache, error) {
	if cfg.Redis.Addr == "" {
		log.Info("redis not configured, tick lease is process-local")
		return nil, nil
	}

	c, err := redisCache.NewRedisCache(redisCache.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, log)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return c.Close()
		},
	})
	return c, nil
}
