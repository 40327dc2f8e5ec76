package storage

import (
	"context"
	"database/sql"

	"expensetracker/internal/core"
	applog "expensetracker/internal/log"
	"expensetracker/internal/repository"
)

const transactionColumns = "id, user_id, category_id, type, amount, date, description, created_at, updated_at"

// TransactionRepository maps core.Transaction to the transactions table.
type TransactionRepository struct {
	gw Gateway
}

var _ repository.TransactionRepository = (*TransactionRepository)(nil)

func NewTransactionRepository(gw Gateway) *TransactionRepository {
	return &TransactionRepository{gw: gw}
}

func (r *TransactionRepository) Save(ctx context.Context, tx *core.Transaction) error {
	if tx.ID.IsPersisted() {
		return update(ctx, r.gw, "update transaction",
			`UPDATE transactions
			 SET user_id = ?, category_id = ?, type = ?, amount = ?, date = ?, description = ?, updated_at = CURRENT_TIMESTAMP
			 WHERE id = ?`,
			tx.UserID, tx.CategoryID, tx.Type.String(), tx.Amount, dateArg(tx.Date), description(tx.Description), tx.ID.Value())
	}

	id, err := insert(ctx, r.gw, "insert transaction",
		`INSERT INTO transactions (user_id, category_id, type, amount, date, description)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		tx.UserID, tx.CategoryID, tx.Type.String(), tx.Amount, dateArg(tx.Date), description(tx.Description))
	if err != nil {
		return err
	}
	tx.ID = core.PersistedID(id)

	fields := applog.NewFields().
		WithUser(tx.UserID).
		WithTransaction(id, tx.CategoryID, string(tx.Type), tx.Amount.String(), tx.Date.String()).
		WithOperation(applog.OpCreate)
	logger(ctx).InfoContext(ctx, "Transaction saved", fields.ToSlice()...)
	return nil
}

func (r *TransactionRepository) FindByID(ctx context.Context, id int64) (core.Transaction, bool, error) {
	return queryOne(ctx, r.gw, "select transaction by id", scanTransaction,
		"SELECT "+transactionColumns+" FROM transactions WHERE id = ?", id)
}

func (r *TransactionRepository) FindByUserID(ctx context.Context, userID int64) ([]core.Transaction, error) {
	return queryAll(ctx, r.gw, "select transactions by user", scanTransaction,
		"SELECT "+transactionColumns+" FROM transactions WHERE user_id = ? ORDER BY date, id", userID)
}

// FindByUserIDAndDateRange includes both bounds.
func (r *TransactionRepository) FindByUserIDAndDateRange(ctx context.Context, userID int64, from, to core.Date) ([]core.Transaction, error) {
	return queryAll(ctx, r.gw, "select transactions by user and date range", scanTransaction,
		"SELECT "+transactionColumns+" FROM transactions WHERE user_id = ? AND date BETWEEN ? AND ? ORDER BY date, id",
		userID, dateArg(from), dateArg(to))
}

func (r *TransactionRepository) DeleteByID(ctx context.Context, id int64) error {
	n, err := exec(ctx, r.gw, "delete transaction", "DELETE FROM transactions WHERE id = ?", id)
	if err != nil {
		return err
	}
	logger(ctx).DebugContext(ctx, "Transaction delete completed",
		applog.FieldOperation, applog.OpDelete,
		applog.FieldTransactionID, id,
		"rows_affected", n)
	return nil
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var (
		tx        core.Transaction
		id        int64
		typ       string
		date      timeValue
		desc      sql.NullString
		createdAt timeValue
		updatedAt timeValue
	)
	if err := row.Scan(&id, &tx.UserID, &tx.CategoryID, &typ, &tx.Amount, &date, &desc, &createdAt, &updatedAt); err != nil {
		return core.Transaction{}, err
	}
	tx.ID = core.PersistedID(id)
	// Unknown stored types are kept as-is; aggregation ignores them.
	tx.Type = core.TransactionType(typ)
	tx.Date = core.DateOf(date.Time)
	tx.Description = desc.String
	tx.CreatedAt = createdAt.Time
	tx.UpdatedAt = updatedAt.Time
	return tx, nil
}

// description stores an empty description as NULL.
func description(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
