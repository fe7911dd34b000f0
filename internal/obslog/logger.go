// Package obslog provides structured logging shared by every Artisan Platform daemon.
package obslog

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// ContextKey is the type for context keys carried on a request/connection context.
type ContextKey string

const (
	// ConnIDKey is the context key for a connection/request correlation id.
	ConnIDKey ContextKey = "conn_id"
	// AppKey is the context key for the AppName a log line concerns.
	AppKey ContextKey = "app"
)

// Logger wraps logrus.Logger with the platform's field conventions.
type Logger struct {
	*logrus.Logger
	service string
}

// New creates a new Logger instance for the given daemon name.
func New(service, level, format string) *Logger {
	logger := logrus.New()

	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	if format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{
			TimestampFormat: time.RFC3339,
			FullTimestamp:   true,
		})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		})
	}

	logger.SetOutput(os.Stdout)

	return &Logger{Logger: logger, service: service}
}

// NewFromEnv constructs a logger using LOG_LEVEL and LOG_FORMAT environment variables.
// Defaults to "info" and "json" when unset.
func NewFromEnv(service string) *Logger {
	level := strings.TrimSpace(os.Getenv("LOG_LEVEL"))
	if level == "" {
		level = "info"
	}
	format := strings.TrimSpace(os.Getenv("LOG_FORMAT"))
	if format == "" {
		format = "json"
	}
	return New(service, level, format)
}

// WithContext creates a new logger entry enriched with context values.
func (l *Logger) WithContext(ctx context.Context) *logrus.Entry {
	entry := l.Logger.WithField("service", l.service)
	if connID := ctx.Value(ConnIDKey); connID != nil {
		entry = entry.WithField("conn_id", connID)
	}
	if app := ctx.Value(AppKey); app != nil {
		entry = entry.WithField("app", app)
	}
	return entry
}

// WithApp creates a new logger entry tagged with the AppName it concerns.
func (l *Logger) WithApp(app fmt.Stringer) *logrus.Entry {
	return l.Logger.WithFields(logrus.Fields{
		"service": l.service,
		"app":     app.String(),
	})
}

// WithFields creates a new logger entry with custom fields merged in.
func (l *Logger) WithFields(fields logrus.Fields) *logrus.Entry {
	if fields == nil {
		fields = logrus.Fields{}
	}
	fields["service"] = l.service
	return l.Logger.WithFields(fields)
}

// WithError creates a new logger entry carrying an error field.
func (l *Logger) WithError(err error) *logrus.Entry {
	return l.Logger.WithFields(logrus.Fields{
		"service": l.service,
		"error":   err.Error(),
	})
}

// WithConnID returns a copy of ctx carrying a connection correlation id,
// which WithContext then adds to log entries as "conn_id".
func WithConnID(ctx context.Context, connID string) context.Context {
	return context.WithValue(ctx, ConnIDKey, connID)
}
