// Package context carries request-scoped values from the delivery layer down
// to the use cases: the request ID, a logger tagged with it, and what
// triggered the work.
package context

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type contextKey string

const (
	keyRequestID contextKey = "request_id"
	keyLogger    contextKey = "logger"
	keyTrigger   contextKey = "trigger"

	// HeaderXRequestID is the HTTP header carrying the request ID.
	HeaderXRequestID = "X-Request-Id"
)

// Trigger names the source of a unit of work.
type Trigger string

const (
	TriggerUnknown   Trigger = "unknown"
	TriggerHTTP      Trigger = "http"
	TriggerScheduler Trigger = "scheduler"
)

// RequestID returns the ID the middleware stored on c, or a fresh one.
func RequestID(c echo.Context) string {
	if id, ok := c.Get(string(keyRequestID)).(string); ok && id != "" {
		return id
	}

	return uuid.New().String()
}

func SetRequestID(c echo.Context, requestID string) {
	c.Set(string(keyRequestID), requestID)
}

// RequestIDFrom returns the request ID stored in ctx or "".
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(keyRequestID).(string)

	return id
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, keyRequestID, requestID)
}

// LoggerFrom returns the request-scoped logger in ctx, or fallback.
func LoggerFrom(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if logger, ok := ctx.Value(keyLogger).(*slog.Logger); ok && logger != nil {
		return logger
	}

	return fallback
}

func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, keyLogger, logger)
}

// TriggerFrom returns the trigger stored in ctx, TriggerUnknown if none.
func TriggerFrom(ctx context.Context) Trigger {
	if trigger, ok := ctx.Value(keyTrigger).(Trigger); ok && trigger != "" {
		return trigger
	}

	return TriggerUnknown
}

func WithTrigger(ctx context.Context, trigger Trigger) context.Context {
	return context.WithValue(ctx, keyTrigger, trigger)
}

// NewJob derives the context of a background job. It has its own request ID,
// so events and log lines of one job can be correlated like those of a request.
func NewJob(ctx context.Context, logger *slog.Logger, trigger Trigger) context.Context {
	requestID := uuid.New().String()

	ctx = WithRequestID(ctx, requestID)
	ctx = WithTrigger(ctx, trigger)

	return WithLogger(ctx, logger.With(slog.String("request_id", requestID)))
}
