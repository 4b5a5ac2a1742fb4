package middleware

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/hedeqiang/rebound/policy"
	"github.com/hedeqiang/rebound/retry"
)

// Logger logs each attempt that passes through the pipeline.
type Logger struct {
	logger *zap.Logger
}

// NewLogger creates a logging middleware using the provided logger.
// If logger is nil, a no-op logger is used.
func NewLogger(l *zap.Logger) *Logger {
	if l == nil {
		l = zap.NewNop()
	}
	return &Logger{logger: l}
}

// Wrap decorates the handler with attempt logging. Failures are logged at
// warn level, successes at debug.
func (l *Logger) Wrap(next Handler) Handler {
	return func(ctx context.Context) error {
		start := time.Now()
		err := next(ctx)

		fields := []zap.Field{
			zap.String("policy", policy.NameFromContext(ctx)),
			zap.Int("attempt", retry.AttemptFromContext(ctx)),
			zap.Duration("elapsed", time.Since(start)),
		}
		if err != nil {
			l.logger.Warn("attempt failed", append(fields, zap.Error(err))...)
			return err
		}
		l.logger.Debug("attempt succeeded", fields...)
		return nil
	}
}
