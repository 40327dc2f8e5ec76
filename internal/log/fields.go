package log

// Common field names for structured logging
const (
	FieldComponent     = "component"
	FieldError         = "error"
	FieldOperation     = "operation"
	FieldDriver        = "driver"
	FieldUserID        = "user_id"
	FieldCategoryID    = "category_id"
	FieldTransactionID = "transaction_id"
	FieldType          = "type"
	FieldAmount        = "amount"
	FieldDate          = "date"
	FieldYear          = "year"
	FieldMonth         = "month"
	FieldIncome        = "total_income"
	FieldExpense       = "total_expense"
	FieldNet           = "net"
	FieldEventKind     = "event_kind"
	FieldTraceID       = "trace_id"
)

// Components defines standard component names
const (
	ComponentApp     = "app"
	ComponentCLI     = "cli"
	ComponentStorage = "storage"
	ComponentAMQP    = "amqp"
	ComponentWorker  = "worker"
	ComponentSummary = "summary"
)

// Operations defines standard operation names
const (
	OpCreate   = "create"
	OpDelete   = "delete"
	OpMigrate  = "migrate"
	OpSummary  = "summary"
	OpShutdown = "shutdown"
	OpStartup  = "startup"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithOperation adds operation field
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithUser adds the user the operation acts for
func (f LogFields) WithUser(userID int64) LogFields {
	f[FieldUserID] = userID
	return f
}

// WithTransaction adds transaction fields. Amount is logged as its decimal
// string so no precision is lost.
func (f LogFields) WithTransaction(id, categoryID int64, typ, amount, date string) LogFields {
	f[FieldTransactionID] = id
	f[FieldCategoryID] = categoryID
	f[FieldType] = typ
	f[FieldAmount] = amount
	f[FieldDate] = date
	return f
}

// WithPeriod adds year and month fields
func (f LogFields) WithPeriod(year, month int) LogFields {
	f[FieldYear] = year
	f[FieldMonth] = month
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
