package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"expensetracker/internal/core"
)

// EventKind names what happened to a transaction.
type EventKind string

const (
	TransactionCreated EventKind = "transaction.created"
	TransactionDeleted EventKind = "transaction.deleted"
)

// TransactionEvent is a lightweight notification about a stored transaction.
// It carries just enough for consumers to know which user and month changed;
// consumers read the data itself from the store.
type TransactionEvent struct {
	Kind          EventKind `json:"kind"`
	TransactionID int64     `json:"transaction_id"`
	UserID        int64     `json:"user_id"`
	Date          string    `json:"date"` // YYYY-MM-DD
	Timestamp     time.Time `json:"timestamp"`
}

// NewTransactionEvent creates an event for tx
func NewTransactionEvent(kind EventKind, tx core.Transaction) TransactionEvent {
	return TransactionEvent{
		Kind:          kind,
		TransactionID: tx.ID.Value(),
		UserID:        tx.UserID,
		Date:          tx.Date.String(),
		Timestamp:     time.Now(),
	}
}

// ToJSON converts the event to JSON bytes
func (e TransactionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// TransactionEventFromJSON decodes and validates an event
func TransactionEventFromJSON(data []byte) (TransactionEvent, error) {
	var ev TransactionEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return TransactionEvent{}, err
	}
	if ev.Kind != TransactionCreated && ev.Kind != TransactionDeleted {
		return TransactionEvent{}, errors.New("unknown event kind")
	}
	if _, err := core.ParseDate(ev.Date); err != nil {
		return TransactionEvent{}, err
	}
	return ev, nil
}

// Month returns the year and month the event's transaction falls in.
func (e TransactionEvent) Month() (int, int, error) {
	d, err := core.ParseDate(e.Date)
	if err != nil {
		return 0, 0, err
	}
	return d.Year(), d.Month(), nil
}
