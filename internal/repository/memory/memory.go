// Package memory keeps users, categories and transactions in process memory.
// It satisfies the repository ports and backs service tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"expensetracker/internal/core"
	"expensetracker/internal/repository"
)

// Store owns the rows of all three tables and the shared id sequence.
// Like the SQL repositories, Save assigns the ID on the caller's entity but
// timestamps only the stored row; read it back to see them.
type Store struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]core.User
	cats   map[int64]core.Category
	txs    map[int64]core.Transaction
	now    func() time.Time
}

func New() *Store {
	return &Store{
		users: map[int64]core.User{},
		cats:  map[int64]core.Category{},
		txs:   map[int64]core.Transaction{},
		now:   time.Now,
	}
}

// Users returns a UserRepository view of the store.
func (s *Store) Users() *UserRepository { return &UserRepository{s: s} }

// Categories returns a CategoryRepository view of the store.
func (s *Store) Categories() *CategoryRepository { return &CategoryRepository{s: s} }

// Transactions returns a TransactionRepository view of the store.
func (s *Store) Transactions() *TransactionRepository { return &TransactionRepository{s: s} }

// next must be called with mu held.
func (s *Store) next() int64 {
	s.nextID++
	return s.nextID
}

var (
	_ repository.UserRepository        = (*UserRepository)(nil)
	_ repository.CategoryRepository    = (*CategoryRepository)(nil)
	_ repository.TransactionRepository = (*TransactionRepository)(nil)
)

type UserRepository struct{ s *Store }

func (r *UserRepository) Save(_ context.Context, u *core.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if !u.ID.IsPersisted() {
		u.ID = core.PersistedID(r.s.next())
		row := *u
		row.CreatedAt = r.s.now()
		r.s.users[u.ID.Value()] = row
		return nil
	}
	old, ok := r.s.users[u.ID.Value()]
	if !ok {
		return fmt.Errorf("update user %d: %w", u.ID.Value(), repository.ErrNotFound)
	}
	row := *u
	row.CreatedAt = old.CreatedAt
	r.s.users[u.ID.Value()] = row
	return nil
}

func (r *UserRepository) FindByID(_ context.Context, id int64) (core.User, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	return u, ok, nil
}

func (r *UserRepository) FindByEmail(_ context.Context, email string) (core.User, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range sortedValues(r.s.users) {
		if u.Email == email {
			return u, true, nil
		}
	}
	return core.User{}, false, nil
}

func (r *UserRepository) FindAll(_ context.Context) ([]core.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return sortedValues(r.s.users), nil
}

func (r *UserRepository) DeleteByID(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.users, id)
	return nil
}

type CategoryRepository struct{ s *Store }

func (r *CategoryRepository) Save(_ context.Context, c *core.Category) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if !c.ID.IsPersisted() {
		c.ID = core.PersistedID(r.s.next())
		row := *c
		row.CreatedAt = r.s.now()
		r.s.cats[c.ID.Value()] = row
		return nil
	}
	old, ok := r.s.cats[c.ID.Value()]
	if !ok {
		return fmt.Errorf("update category %d: %w", c.ID.Value(), repository.ErrNotFound)
	}
	row := *c
	row.CreatedAt = old.CreatedAt
	r.s.cats[c.ID.Value()] = row
	return nil
}

func (r *CategoryRepository) FindByID(_ context.Context, id int64) (core.Category, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.cats[id]
	return c, ok, nil
}

func (r *CategoryRepository) FindByUserID(_ context.Context, userID int64) ([]core.Category, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []core.Category
	for _, c := range sortedValues(r.s.cats) {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *CategoryRepository) FindByUserIDAndName(_ context.Context, userID int64, name string) (core.Category, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, c := range sortedValues(r.s.cats) {
		if c.UserID == userID && strings.TrimSpace(c.Name) == strings.TrimSpace(name) {
			return c, true, nil
		}
	}
	return core.Category{}, false, nil
}

func (r *CategoryRepository) DeleteByID(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.cats, id)
	return nil
}

type TransactionRepository struct{ s *Store }

func (r *TransactionRepository) Save(_ context.Context, tx *core.Transaction) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := r.s.now()
	if !tx.ID.IsPersisted() {
		tx.ID = core.PersistedID(r.s.next())
		row := *tx
		row.CreatedAt = now
		row.UpdatedAt = now
		r.s.txs[tx.ID.Value()] = row
		return nil
	}
	old, ok := r.s.txs[tx.ID.Value()]
	if !ok {
		return fmt.Errorf("update transaction %d: %w", tx.ID.Value(), repository.ErrNotFound)
	}
	row := *tx
	row.CreatedAt = old.CreatedAt
	row.UpdatedAt = now
	r.s.txs[tx.ID.Value()] = row
	return nil
}

func (r *TransactionRepository) FindByID(_ context.Context, id int64) (core.Transaction, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	tx, ok := r.s.txs[id]
	return tx, ok, nil
}

func (r *TransactionRepository) FindByUserID(_ context.Context, userID int64) ([]core.Transaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []core.Transaction
	for _, tx := range sortedValues(r.s.txs) {
		if tx.UserID == userID {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (r *TransactionRepository) FindByUserIDAndDateRange(_ context.Context, userID int64, from, to core.Date) ([]core.Transaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []core.Transaction
	for _, tx := range sortedValues(r.s.txs) {
		if tx.UserID != userID {
			continue
		}
		if tx.Date.Before(from.Time) || tx.Date.After(to.Time) {
			continue
		}
		out = append(out, tx)
	}
	return out, nil
}

func (r *TransactionRepository) DeleteByID(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.txs, id)
	return nil
}

// sortedValues returns map values ordered by key, i.e. insertion order.
func sortedValues[T any](m map[int64]T) []T {
	keys := make([]int64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	out := make([]T, 0, len(keys))
	for _, k := range keys {
		out = append(out, m[k])
	}
	return out
}
