package worker

import (
	"context"
	"fmt"

	"expensetracker/internal/amqp"
	"expensetracker/internal/core"
	applog "expensetracker/internal/log"
	"expensetracker/internal/trace"
)

// SummaryService computes the monthly summary the worker refreshes.
type SummaryService interface {
	GetMonthlySummary(ctx context.Context, userID int64, year, month int) (core.MonthlySummary, error)
}

// SummaryWorker recomputes a user's monthly summary whenever a transaction in
// that month is created or deleted, and logs the result.
type SummaryWorker struct {
	summaries SummaryService
	logger    *applog.Logger
}

func NewSummaryWorker(summaries SummaryService, logger *applog.Logger) *SummaryWorker {
	return &SummaryWorker{
		summaries: summaries,
		logger:    logger,
	}
}

// HandleTransactionEvent is an amqp.EventHandler. A returned error requeues
// the event.
func (w *SummaryWorker) HandleTransactionEvent(ctx context.Context, ev amqp.TransactionEvent) error {
	year, month, err := ev.Month()
	if err != nil {
		return fmt.Errorf("event month: %w", err)
	}

	logger := w.logger.With(applog.FieldEventKind, string(ev.Kind))
	if id := trace.GetTraceID(ctx); id != "" {
		logger = logger.With(applog.FieldTraceID, id)
	}

	logger.DebugContext(ctx, "Processing transaction event",
		applog.FieldTransactionID, ev.TransactionID,
		applog.FieldUserID, ev.UserID)

	summary, err := w.summaries.GetMonthlySummary(ctx, ev.UserID, year, month)
	if err != nil {
		return fmt.Errorf("recompute summary for user %d %d-%02d: %w", ev.UserID, year, month, err)
	}

	applog.NewStructuredLogger(logger).LogSummary(ctx, ev.UserID, summary)
	return nil
}
