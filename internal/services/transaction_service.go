package services

import (
	"context"
	"fmt"

	"expensetracker/internal/amqp"
	"expensetracker/internal/core"
	applog "expensetracker/internal/log"
	"expensetracker/internal/repository"

	"github.com/shopspring/decimal"
)

// EventPublisher announces stored and removed transactions.
type EventPublisher interface {
	PublishTransactionEvent(ctx context.Context, ev amqp.TransactionEvent) error
}

// TransactionService orchestrates transaction storage, optional event
// publishing, and the monthly summary.
type TransactionService struct {
	transactions repository.TransactionRepository
	publisher    EventPublisher
}

// NewTransactionService creates the service. publisher may be nil, which
// disables events.
func NewTransactionService(transactions repository.TransactionRepository, publisher EventPublisher) *TransactionService {
	return &TransactionService{
		transactions: transactions,
		publisher:    publisher,
	}
}

// AddTransaction always inserts. It does not check that categoryID belongs
// to userID; callers do.
func (s *TransactionService) AddTransaction(ctx context.Context, userID, categoryID int64, typ core.TransactionType, amount decimal.Decimal, date core.Date, description string) (core.Transaction, error) {
	tx := core.Transaction{
		UserID:      userID,
		CategoryID:  categoryID,
		Type:        typ,
		Amount:      amount,
		Date:        date,
		Description: description,
	}
	if err := s.transactions.Save(ctx, &tx); err != nil {
		return core.Transaction{}, err
	}

	s.publish(ctx, amqp.TransactionCreated, tx)
	return tx, nil
}

func (s *TransactionService) GetTransaction(ctx context.Context, id int64) (core.Transaction, bool, error) {
	return s.transactions.FindByID(ctx, id)
}

func (s *TransactionService) GetTransactionsForUser(ctx context.Context, userID int64) ([]core.Transaction, error) {
	return s.transactions.FindByUserID(ctx, userID)
}

// GetTransactionsForUserInRange includes both from and to.
func (s *TransactionService) GetTransactionsForUserInRange(ctx context.Context, userID int64, from, to core.Date) ([]core.Transaction, error) {
	return s.transactions.FindByUserIDAndDateRange(ctx, userID, from, to)
}

// DeleteTransaction removes the transaction if it exists. With a publisher
// configured the row is read first so the event can name its user and date.
func (s *TransactionService) DeleteTransaction(ctx context.Context, id int64) error {
	if s.publisher == nil {
		return s.transactions.DeleteByID(ctx, id)
	}

	tx, found, err := s.transactions.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.transactions.DeleteByID(ctx, id); err != nil {
		return err
	}
	if found {
		s.publish(ctx, amqp.TransactionDeleted, tx)
	}
	return nil
}

// GetMonthlySummary totals a user's income and expenses for one calendar
// month, first to last day inclusive.
func (s *TransactionService) GetMonthlySummary(ctx context.Context, userID int64, year, month int) (core.MonthlySummary, error) {
	from, to, err := core.MonthBounds(year, month)
	if err != nil {
		return core.MonthlySummary{}, fmt.Errorf("monthly summary %d-%02d: %w", year, month, err)
	}

	txs, err := s.transactions.FindByUserIDAndDateRange(ctx, userID, from, to)
	if err != nil {
		return core.MonthlySummary{}, err
	}

	summary := core.Summarize(year, month, txs)
	applog.FromContext(ctx).WithComponent(applog.ComponentSummary).DebugContext(ctx, "Monthly summary computed",
		applog.NewFields().WithUser(userID).WithPeriod(year, month).WithOperation(applog.OpSummary).ToSlice()...)
	return summary, nil
}

// publish never fails the caller: the transaction is already stored.
func (s *TransactionService) publish(ctx context.Context, kind amqp.EventKind, tx core.Transaction) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishTransactionEvent(ctx, amqp.NewTransactionEvent(kind, tx)); err != nil {
		op := applog.OpCreate
		if kind == amqp.TransactionDeleted {
			op = applog.OpDelete
		}
		fields := applog.NewFields().WithUser(tx.UserID)
		fields[applog.FieldTransactionID] = tx.ID.Value()
		fields[applog.FieldEventKind] = string(kind)
		applog.NewStructuredLogger(applog.FromContext(ctx).WithComponent(applog.ComponentAMQP)).
			LogError(ctx, "Failed to publish transaction event", err, op, fields)
	}
}
