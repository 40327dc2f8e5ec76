// Package repository declares the data-access capabilities the services
// depend on. internal/storage provides the SQL implementation and
// internal/repository/memory an in-memory one for tests.
package repository

import (
	"context"
	"errors"

	"expensetracker/internal/core"
)

// Ports for outbound adapters.
//
// Save inserts entities whose ID is unsaved and assigns the generated ID in
// place; persisted entities are updated by ID. Find methods report a missing
// row with found == false and a nil error. DeleteByID succeeds whether or not
// the row existed.
type (
	UserRepository interface {
		Save(ctx context.Context, u *core.User) error
		FindByID(ctx context.Context, id int64) (u core.User, found bool, err error)
		FindByEmail(ctx context.Context, email string) (u core.User, found bool, err error)
		FindAll(ctx context.Context) ([]core.User, error)
		DeleteByID(ctx context.Context, id int64) error
	}

	CategoryRepository interface {
		Save(ctx context.Context, c *core.Category) error
		FindByID(ctx context.Context, id int64) (c core.Category, found bool, err error)
		FindByUserID(ctx context.Context, userID int64) ([]core.Category, error)
		FindByUserIDAndName(ctx context.Context, userID int64, name string) (c core.Category, found bool, err error)
		DeleteByID(ctx context.Context, id int64) error
	}

	TransactionRepository interface {
		Save(ctx context.Context, tx *core.Transaction) error
		FindByID(ctx context.Context, id int64) (tx core.Transaction, found bool, err error)
		FindByUserID(ctx context.Context, userID int64) ([]core.Transaction, error)
		// FindByUserIDAndDateRange includes transactions dated exactly on from or to.
		FindByUserIDAndDateRange(ctx context.Context, userID int64, from, to core.Date) ([]core.Transaction, error)
		DeleteByID(ctx context.Context, id int64) error
	}
)

// ErrNotFound reports that an update addressed a persisted ID with no row.
var ErrNotFound = errors.New("entity not found")
