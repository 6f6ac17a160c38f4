package logger

import (
	"context"
	"time"
)

// Logger is the structured logger used across the service.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	Fatal(msg string, fields ...Field)
	With(fields ...Field) Logger
	WithContext(ctx context.Context) Logger
	Sync() error
}

type fieldKind uint8

const (
	kindAny fieldKind = iota
	kindString
	kindInt
	kindInt64
	kindBool
	kindTime
	kindDuration
	kindError
)

// Field is a key/value pair attached to a log entry.
type Field struct {
	Key   string
	Value interface{}
	kind  fieldKind
}

func String(key, value string) Field {
	return Field{Key: key, Value: value, kind: kindString}
}

func Int(key string, value int) Field {
	return Field{Key: key, Value: value, kind: kindInt}
}

func Int64(key string, value int64) Field {
	return Field{Key: key, Value: value, kind: kindInt64}
}

func Bool(key string, value bool) Field {
	return Field{Key: key, Value: value, kind: kindBool}
}

func Time(key string, value time.Time) Field {
	return Field{Key: key, Value: value, kind: kindTime}
}

func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value, kind: kindDuration}
}

func Any(key string, value interface{}) Field {
	return Field{Key: key, Value: value, kind: kindAny}
}

// Error attaches err under the "error" key.
func Error(err error) Field {
	return Field{Key: "error", Value: err, kind: kindError}
}

type requestIDKey struct{}

// ContextWithRequestID stores a request id picked up by WithContext.
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

func requestIDFrom(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDKey{}).(string)
	return id, ok && id != ""
}
