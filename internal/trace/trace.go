package trace

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"expensetracker/internal/amqp"
	applog "expensetracker/internal/log"
)

// ContextKey type for context keys
type ContextKey string

const (
	// TraceIDKey is the context key for the trace ID
	TraceIDKey ContextKey = "trace_id"
)

// Tracer wraps event handlers with tracing and logging
type Tracer struct {
	metrics *Metrics
}

// Metrics tracks event handling metrics
type Metrics struct {
	TotalEvents    int64
	FailedEvents   int64
	LastDurationUs int64 // in microseconds
}

// NewTracer creates a new tracer
func NewTracer() *Tracer {
	return &Tracer{metrics: &Metrics{}}
}

// Wrap returns a handler that tags ctx with a fresh trace ID and logs the
// start and outcome of every event.
func (t *Tracer) Wrap(next amqp.EventHandler) amqp.EventHandler {
	return func(ctx context.Context, ev amqp.TransactionEvent) error {
		start := time.Now()

		traceID := GenerateTraceID()
		ctx = context.WithValue(ctx, TraceIDKey, traceID)

		logger := applog.FromContext(ctx)
		logger.DebugContext(ctx, "Event handling started",
			applog.FieldTraceID, traceID,
			"kind", ev.Kind,
			"transaction_id", ev.TransactionID,
			"user_id", ev.UserID)

		atomic.AddInt64(&t.metrics.TotalEvents, 1)

		err := next(ctx, ev)

		duration := time.Since(start)
		atomic.StoreInt64(&t.metrics.LastDurationUs, duration.Microseconds())

		level := slog.LevelInfo
		if err != nil {
			level = slog.LevelWarn
			atomic.AddInt64(&t.metrics.FailedEvents, 1)
		}

		logger.Log(ctx, level, "Event handling completed",
			applog.FieldTraceID, traceID,
			"kind", ev.Kind,
			"transaction_id", ev.TransactionID,
			"duration_ms", duration.Milliseconds(),
			"duration_human", duration.String(),
			"success", err == nil)

		return err
	}
}

// GenerateTraceID creates a unique ID for one handled event
func GenerateTraceID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to timestamp if random fails
		return fmt.Sprintf("evt_%d", time.Now().UnixNano())
	}
	return "evt_" + hex.EncodeToString(bytes)
}

// GetTraceID extracts the trace ID from context
func GetTraceID(ctx context.Context) string {
	if id, ok := ctx.Value(TraceIDKey).(string); ok {
		return id
	}
	return ""
}

// GetMetrics returns current metrics
func (t *Tracer) GetMetrics() Metrics {
	return Metrics{
		TotalEvents:    atomic.LoadInt64(&t.metrics.TotalEvents),
		FailedEvents:   atomic.LoadInt64(&t.metrics.FailedEvents),
		LastDurationUs: atomic.LoadInt64(&t.metrics.LastDurationUs),
	}
}
