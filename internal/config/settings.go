package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvPrefix      = "STREAKD"
	ConfigName     = "streakd"
	StoreDynamoDB  = "dynamodb"
	StoreSQL       = "sql"
	StoreMemory    = "memory"
	defaultTogglePath = "/streakd/scheduler/enabled"
)

type Settings struct {
	Log       LogSettings       `mapstructure:"log"`
	Scheduler SchedulerSettings `mapstructure:"scheduler"`
	Store     StoreSettings     `mapstructure:"store"`
	AWS       AWSSettings       `mapstructure:"aws"`
	Events    EventsSettings    `mapstructure:"events"`
	Redis     RedisSettings     `mapstructure:"redis"`
	Zookeeper ZookeeperSettings `mapstructure:"zookeeper"`
	GitHub    GitHubSettings    `mapstructure:"github"`
	Executor  ExecutorSettings  `mapstructure:"executor"`
	HTTP      HTTPSettings      `mapstructure:"http"`
}

type LogSettings struct {
	Level string `mapstructure:"level"`
	Dev   bool   `mapstructure:"dev"`
}

type SchedulerSettings struct {
	Enabled          bool          `mapstructure:"enabled"`
	Cron             string        `mapstructure:"cron"`
	BatchSize        int           `mapstructure:"batch_size"`
	DueOffsetMinutes int           `mapstructure:"due_offset_minutes"`
	TickLeaseTTL     time.Duration `mapstructure:"tick_lease_ttl"`
}

func (s SchedulerSettings) DueOffset() time.Duration {
	return time.Duration(s.DueOffsetMinutes) * time.Minute
}

type StoreSettings struct {
	Driver string      `mapstructure:"driver"`
	SQL    SQLSettings `mapstructure:"sql"`
	// EnsureTables creates missing DynamoDB tables at startup
	EnsureTables bool `mapstructure:"ensure_tables"`
}

type SQLSettings struct {
	Dialect string `mapstructure:"dialect"`
	DSN     string `mapstructure:"dsn"`
}

type AWSSettings struct {
	Region           string `mapstructure:"region"`
	DynamoDBEndpoint string `mapstructure:"dynamodb_endpoint"`
	SQSEndpoint      string `mapstructure:"sqs_endpoint"`
}

type EventsSettings struct {
	// QueueURL receives one message per finished job; empty logs events instead
	QueueURL string `mapstructure:"queue_url"`
	// TriggerQueueURL is consumed for {"job_id": ...} run-now requests; empty disables it
	TriggerQueueURL string `mapstructure:"trigger_queue_url"`
	TriggerWorkers  int    `mapstructure:"trigger_workers"`
}

type RedisSettings struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type ZookeeperSettings struct {
	Servers        []string      `mapstructure:"servers"`
	SessionTimeout time.Duration `mapstructure:"session_timeout"`
	TogglePath     string        `mapstructure:"toggle_path"`
}

type GitHubSettings struct {
	APIURL            string        `mapstructure:"api_url"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Timeout           time.Duration `mapstructure:"timeout"`
}

type ExecutorSettings struct {
	Workdir string `mapstructure:"workdir"`
}

type HTTPSettings struct {
	Port string `mapstructure:"port"`
}

// SetDefaults registers every key so environment overrides work without a file
func SetDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.dev", false)

	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.cron", "0 * * * * *")
	v.SetDefault("scheduler.batch_size", 20)
	v.SetDefault("scheduler.due_offset_minutes", 0)
	v.SetDefault("scheduler.tick_lease_ttl", 55*time.Second)

	v.SetDefault("store.driver", StoreDynamoDB)
	v.SetDefault("store.ensure_tables", false)
	v.SetDefault("store.sql.dialect", "sqlite")
	v.SetDefault("store.sql.dsn", "streakd.db")

	v.SetDefault("aws.region", "us-east-1")
	v.SetDefault("aws.dynamodb_endpoint", "")
	v.SetDefault("aws.sqs_endpoint", "")

	v.SetDefault("events.queue_url", "")
	v.SetDefault("events.trigger_queue_url", "")
	v.SetDefault("events.trigger_workers", 1)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("zookeeper.servers", []string{})
	v.SetDefault("zookeeper.session_timeout", 30*time.Second)
	v.SetDefault("zookeeper.toggle_path", defaultTogglePath)

	v.SetDefault("github.api_url", "https://api.github.com")
	v.SetDefault("github.requests_per_second", 5.0)
	v.SetDefault("github.timeout", 30*time.Second)

	v.SetDefault("executor.workdir", "")

	v.SetDefault("http.port", "8091")
}

// NewViper builds the viper instance: defaults, then the optional config file,
// then STREAKD_* environment variables. A .env file in the working directory is
// loaded into the environment first when present.
func NewViper(configFile string) (*viper.Viper, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(ConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/streakd")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || configFile != "" {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}
	return v, nil
}

// Decode unmarshals and validates the current viper state
func Decode(v *viper.Viper) (*Settings, error) {
	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	// AutomaticEnv does not split lists
	if len(s.Zookeeper.Servers) == 1 && strings.Contains(s.Zookeeper.Servers[0], ",") {
		s.Zookeeper.Servers = strings.Split(s.Zookeeper.Servers[0], ",")
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Load is NewViper followed by Decode
func Load(configFile string) (*Settings, *viper.Viper, error) {
	v, err := NewViper(configFile)
	if err != nil {
		return nil, nil, err
	}
	s, err := Decode(v)
	if err != nil {
		return nil, nil, err
	}
	return s, v, nil
}

func (s *Settings) Validate() error {
	switch s.Store.Driver {
	case StoreDynamoDB, StoreSQL, StoreMemory:
	default:
		return fmt.Errorf("unknown store.driver %q", s.Store.Driver)
	}
	if s.Scheduler.BatchSize <= 0 {
		return fmt.Errorf("scheduler.batch_size must be positive")
	}
	if s.Scheduler.DueOffsetMinutes < 0 {
		return fmt.Errorf("scheduler.due_offset_minutes must not be negative")
	}
	if s.HTTP.Port == "" {
		return fmt.Errorf("http.port is required")
	}
	return nil
}
