package service

import (
	"context"
	"fmt"
	"sync"

	"streakd/internal/logger"

	"github.com/robfig/cron/v3"
)

// DefaultTickSpec fires at second zero of every minute
const DefaultTickSpec = "0 * * * * *"

// Ticker owns the periodic callback registration for the scheduler loop
type Ticker interface {
	// Start registers fn. It fails if a registration is already active.
	Start(fn func()) error
	// Stop cancels the registration. The returned context is done once any
	// in-flight callback has returned.
	Stop() context.Context
}

// CronTicker is a Ticker on robfig/cron. Overlapping ticks are skipped.
type CronTicker struct {
	spec   string
	logger logger.Logger

	mu   sync.Mutex
	cron *cron.Cron
}

func NewCronTicker(spec string, log logger.Logger) *CronTicker {
	if spec == "" {
		spec = DefaultTickSpec
	}
	return &CronTicker{
		spec:   spec,
		logger: log.With(logger.String("component", "cron_ticker")),
	}
}

func (t *CronTicker) Start(fn func()) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cron != nil {
		return fmt.Errorf("ticker already started")
	}

	cl := cronLogger{log: t.logger}
	c := cron.New(
		cron.WithSeconds(),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	if _, err := c.AddFunc(t.spec, fn); err != nil {
		return fmt.Errorf("invalid tick spec %q: %w", t.spec, err)
	}
	c.Start()
	t.cron = c

	t.logger.Info("ticker started", logger.String("spec", t.spec))
	return nil
}

func (t *CronTicker) Stop() context.Context {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cron == nil {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		return ctx
	}
	ctx := t.cron.Stop()
	t.cron = nil
	t.logger.Info("ticker stopped")
	return ctx
}

// cronLogger adapts logger.Logger to cron.Logger
type cronLogger struct {
	log logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug("cron: "+msg, kvFields(keysAndValues)...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	fields := append(kvFields(keysAndValues), logger.Error(err))
	l.log.Error("cron: "+msg, fields...)
}

func kvFields(kv []interface{}) []logger.Field {
	fields := make([]logger.Field, 0, len(kv)/2+1)
	for i := 0; i+1 < len(kv); i += 2 {
		fields = append(fields, logger.Any(fmt.Sprint(kv[i]), kv[i+1]))
	}
	return fields
}
