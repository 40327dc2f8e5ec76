package core

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Expense TransactionType = "EXPENSE"
	Income  TransactionType = "INCOME"
)

type (
	TransactionType string

	// ID identifies a stored entity. The zero value is an unsaved entity;
	// only PersistedID produces a persisted one, so a store-assigned 0 stays
	// distinguishable from "not yet stored".
	ID struct {
		value     int64
		persisted bool
	}

	User struct {
		ID        ID
		Name      string
		Email     string
		CreatedAt time.Time
	}

	Category struct {
		ID        ID
		UserID    int64 // owning user
		Name      string
		CreatedAt time.Time
	}

	Transaction struct {
		ID          ID
		UserID      int64
		CategoryID  int64 // must belong to UserID; checked by callers
		Type        TransactionType
		Amount      decimal.Decimal
		Date        Date
		Description string
		CreatedAt   time.Time
		UpdatedAt   time.Time
	}
)

var (
	ErrInvalidType   = errors.New("invalid transaction type")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidMonth  = errors.New("invalid month")
	ErrEmptyName     = errors.New("empty name")
	ErrEmptyEmail    = errors.New("empty email")
	ErrAmountScale   = errors.New("amount has too many digits")
)

// Unsaved is the ID of an entity that has not been stored yet.
var Unsaved = ID{}

// PersistedID returns the ID of a stored entity.
func PersistedID(v int64) ID {
	return ID{value: v, persisted: true}
}

func (id ID) IsPersisted() bool {
	return id.persisted
}

// Value returns the store key. It is meaningless for unsaved IDs.
func (id ID) Value() int64 {
	return id.value
}

func (id ID) String() string {
	if !id.persisted {
		return "unsaved"
	}
	return strconv.FormatInt(id.value, 10)
}

// ParseTransactionType accepts the type name in any case.
func ParseTransactionType(s string) (TransactionType, error) {
	t := TransactionType(strings.ToUpper(strings.TrimSpace(s)))
	if !t.IsValid() {
		return "", ErrInvalidType
	}
	return t, nil
}

func (t TransactionType) IsValid() bool {
	switch t {
	case Expense, Income:
		return true
	default:
		return false
	}
}

func (t TransactionType) String() string {
	return string(t)
}

func (u User) Validate() error {
	if strings.TrimSpace(u.Name) == "" {
		return ErrEmptyName
	}
	if strings.TrimSpace(u.Email) == "" {
		return ErrEmptyEmail
	}
	return nil
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	return nil
}

// Validate checks the fields a caller is expected to have parsed already.
// Amount sign is a convention only and is not checked here.
func (t Transaction) Validate() error {
	if !t.Type.IsValid() {
		return ErrInvalidType
	}
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if !FitsStorage(t.Amount) {
		return ErrAmountScale
	}
	if len(t.Description) > 255 {
		return errors.New("description too long (max 255 characters)")
	}
	return nil
}
