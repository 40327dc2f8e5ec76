package log

import (
	"context"
	"log/slog"

	"expensetracker/internal/core"
)

type contextKey string

const loggerContextKey contextKey = "logger"

// NewContext returns a copy of ctx carrying logger
func NewContext(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerContextKey, logger)
}

// FromContext extracts a logger from ctx, falling back to the default logger
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(loggerContextKey).(*Logger); ok {
		return logger
	}
	fallback := slog.Default()
	return &Logger{
		Logger: fallback,
		base:   fallback.Handler(),
	}
}

// StructuredLogger logs domain events with a consistent field set
type StructuredLogger struct {
	logger *Logger
}

// NewStructuredLogger creates a new structured logger
func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{
		logger: logger,
	}
}

// LogTransactionAdded logs a stored transaction
func (sl *StructuredLogger) LogTransactionAdded(ctx context.Context, tx core.Transaction) {
	fields := NewFields().
		WithUser(tx.UserID).
		WithTransaction(tx.ID.Value(), tx.CategoryID, string(tx.Type), core.FormatAmount(tx.Amount), tx.Date.String()).
		WithOperation(OpCreate)

	sl.logger.InfoContext(ctx, "Transaction added", fields.ToSlice()...)
}

// LogSummary logs a computed monthly summary
func (sl *StructuredLogger) LogSummary(ctx context.Context, userID int64, s core.MonthlySummary) {
	fields := NewFields().
		WithUser(userID).
		WithPeriod(s.Year, s.Month).
		WithOperation(OpSummary)
	fields[FieldIncome] = core.FormatAmount(s.TotalIncome)
	fields[FieldExpense] = core.FormatAmount(s.TotalExpense)
	fields[FieldNet] = core.FormatAmount(s.Net)

	sl.logger.InfoContext(ctx, "Monthly summary", fields.ToSlice()...)
}

// LogError logs an error with structured context
func (sl *StructuredLogger) LogError(ctx context.Context, msg string, err error, operation string, fields LogFields) {
	if fields == nil {
		fields = NewFields()
	}
	allFields := fields.
		WithError(err).
		WithOperation(operation)

	sl.logger.ErrorContext(ctx, msg, allFields.ToSlice()...)
}
