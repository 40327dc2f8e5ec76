package core

import "github.com/shopspring/decimal"

// MonthlySummary aggregates a user's transactions for one calendar month.
// It is computed on demand and never stored.
type MonthlySummary struct {
	Year         int
	Month        int // 1-12
	TotalIncome  decimal.Decimal
	TotalExpense decimal.Decimal
	Net          decimal.Decimal
}

// Summarize totals income and expense amounts exactly. Transactions of any
// other type count toward neither side.
func Summarize(year, month int, txs []Transaction) MonthlySummary {
	income := decimal.Zero
	expense := decimal.Zero
	for _, tx := range txs {
		switch tx.Type {
		case Income:
			income = income.Add(tx.Amount)
		case Expense:
			expense = expense.Add(tx.Amount)
		}
	}
	return MonthlySummary{
		Year:         year,
		Month:        month,
		TotalIncome:  income,
		TotalExpense: expense,
		Net:          income.Sub(expense),
	}
}
