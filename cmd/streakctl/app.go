package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	commonsConfig "streakd/commons/config"
	cache "streakd/internal/cache/iface"
	redisCache "streakd/internal/cache/redis"
	"streakd/internal/config"
	coordinator "streakd/internal/coordinator/iface"
	zkCoordinator "streakd/internal/coordinator/zk"
	"streakd/internal/logger"
	"streakd/internal/service"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awssqs "github.com/aws/aws-sdk-go-v2/service/sqs"
)

// app holds what every command shares; connections are opened on first use
type app struct {
	configFile string
	verbose    bool

	settings *config.Settings
	log      logger.Logger

	awsCfg  *aws.Config
	stores  *config.Stores
	cache   cache.Cache
	closers []func() error
}

var cli = &app{}

func (a *app) load() error {
	settings, _, err := config.Load(a.configFile)
	if err != nil {
		return err
	}
	a.settings = settings

	if !a.verbose {
		a.log = logger.NewNopLogger()
		return nil
	}
	a.log, err = logger.NewZapLoggerForDev()
	return err
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i]()
	}
	if a.log != nil {
		_ = a.log.Sync()
	}
}

func (a *app) aws() (aws.Config, error) {
	if a.awsCfg != nil {
		return *a.awsCfg, nil
	}
	cfg, err := commonsConfig.ProvideAWSConfig(a.settings)
	if err != nil {
		return aws.Config{}, err
	}
	a.awsCfg = &cfg
	return cfg, nil
}

func (a *app) sqsClient() (*awssqs.Client, error) {
	cfg, err := a.aws()
	if err != nil {
		return nil, err
	}
	return commonsConfig.ProvideSQSClient(cfg, a.settings), nil
}

func (a *app) openStores(ctx context.Context) (*config.Stores, error) {
	if a.stores != nil {
		return a.stores, nil
	}

	var awsErr error
	dynamo := func() *awsdynamodb.Client {
		cfg, err := a.aws()
		if err != nil {
			awsErr = err
			return nil
		}
		return commonsConfig.ProvideDynamoDBClient(cfg, a.settings)
	}
	stores, err := config.OpenStores(ctx, a.settings, dynamo, a.log)
	if awsErr != nil {
		return nil, awsErr
	}
	if err != nil {
		return nil, err
	}
	a.stores = stores
	a.closers = append(a.closers, stores.Close)
	return stores, nil
}

func (a *app) redis() (cache.Cache, error) {
	if a.cache != nil || a.settings.Redis.Addr == "" {
		return a.cache, nil
	}
	c, err := redisCache.NewRedisCache(redisCache.Options{
		Addr:     a.settings.Redis.Addr,
		Password: a.settings.Redis.Password,
		DB:       a.settings.Redis.DB,
	}, a.log)
	if err != nil {
		return nil, err
	}
	a.cache = c
	a.closers = append(a.closers, c.Close)
	return c, nil
}

func (a *app) coordinator() (coordinator.Coordinator, error) {
	if len(a.settings.Zookeeper.Servers) == 0 {
		return nil, fmt.Errorf("zookeeper.servers is not configured")
	}
	coord, err := zkCoordinator.NewZKCoordinator(a.settings.Zookeeper.Servers, a.settings.Zookeeper.SessionTimeout, a.log)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, coord.Close)
	return coord, nil
}

// scheduler builds a scheduler that is never started; commands drive it directly
func (a *app) scheduler(ctx context.Context) (*service.Scheduler, error) {
	stores, err := a.openStores(ctx)
	if err != nil {
		return nil, err
	}
	client, err := config.ProvideGitHubClient(a.settings, a.log)
	if err != nil {
		return nil, err
	}
	exec := config.ProvideCommitExecutor(a.settings, client, a.log)

	var sqsClient *awssqs.Client
	if a.settings.Events.QueueURL != "" {
		if sqsClient, err = a.sqsClient(); err != nil {
			return nil, err
		}
	}
	notifier := config.ProvideNotifier(a.settings, sqsClient, a.log)

	c, err := a.redis()
	if err != nil {
		return nil, err
	}
	lease := config.ProvideTickLease(a.settings, c, a.log)

	return config.ProvideScheduler(a.settings, stores, exec, notifier, nil, lease, a.log), nil
}

func (a *app) commitService(ctx context.Context) (*service.CommitService, error) {
	stores, err := a.openStores(ctx)
	if err != nil {
		return nil, err
	}
	return config.ProvideCommitService(stores, nil, nil, a.log), nil
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
