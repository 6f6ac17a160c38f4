package logger

import (
	"context"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type ZapLogger struct {
	logger *zap.Logger
}

// NewZapLogger builds a JSON production logger at the given level ("debug", "info", ...).
func NewZapLogger(level string) (Logger, error) {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.OutputPaths = []string{"stdout"}

	if level != "" {
		lvl, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, err
		}
		config.Level = zap.NewAtomicLevelAt(lvl)
	}

	log, err := config.Build()
	if err != nil {
		return nil, err
	}

	return &ZapLogger{logger: log}, nil
}

func NewZapLoggerForDev() (Logger, error) {
	log, err := zap.NewDevelopment()
	if err != nil {
		return nil, err
	}
	return &ZapLogger{logger: log}, nil
}

// NewNopLogger discards everything. Used by tests and the CLI's quiet mode.
func NewNopLogger() Logger {
	return &ZapLogger{logger: zap.NewNop()}
}

func (l *ZapLogger) Debug(msg string, fields ...Field) {
	l.logger.Debug(msg, convertFields(fields)...)
}

func (l *ZapLogger) Info(msg string, fields ...Field) {
	l.logger.Info(msg, convertFields(fields)...)
}

func (l *ZapLogger) Warn(msg string, fields ...Field) {
	l.logger.Warn(msg, convertFields(fields)...)
}

func (l *ZapLogger) Error(msg string, fields ...Field) {
	l.logger.Error(msg, convertFields(fields)...)
}

func (l *ZapLogger) Fatal(msg string, fields ...Field) {
	l.logger.Fatal(msg, convertFields(fields)...)
}

func (l *ZapLogger) With(fields ...Field) Logger {
	return &ZapLogger{
		logger: l.logger.With(convertFields(fields)...),
	}
}

func (l *ZapLogger) WithContext(ctx context.Context) Logger {
	if reqID, ok := requestIDFrom(ctx); ok {
		return &ZapLogger{
			logger: l.logger.With(zap.String("request_id", reqID)),
		}
	}
	return l
}

func (l *ZapLogger) Sync() error {
	return l.logger.Sync()
}

// Logger exposes the underlying zap logger for fx and gorm adapters.
func (l *ZapLogger) Logger() *zap.Logger {
	return l.logger
}

func convertFields(fields []Field) []zap.Field {
	zapFields := make([]zap.Field, len(fields))
	for i, f := range fields {
		zapFields[i] = toZapField(f)
	}
	return zapFields
}

func toZapField(f Field) zap.Field {
	switch f.kind {
	case kindString:
		return zap.String(f.Key, f.Value.(string))
	case kindInt:
		return zap.Int(f.Key, f.Value.(int))
	case kindInt64:
		return zap.Int64(f.Key, f.Value.(int64))
	case kindBool:
		return zap.Bool(f.Key, f.Value.(bool))
	case kindTime:
		return zap.Time(f.Key, f.Value.(time.Time))
	case kindDuration:
		return zap.Duration(f.Key, f.Value.(time.Duration))
	case kindError:
		if f.Value == nil {
			return zap.Skip()
		}
		return zap.NamedError(f.Key, f.Value.(error))
	default:
		return zap.Any(f.Key, f.Value)
	}
}
