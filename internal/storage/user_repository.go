package storage

import (
	"context"

	"expensetracker/internal/core"
	applog "expensetracker/internal/log"
	"expensetracker/internal/repository"
)

const userColumns = "id, name, email, created_at"

// UserRepository maps core.User to the users table.
type UserRepository struct {
	gw Gateway
}

var _ repository.UserRepository = (*UserRepository)(nil)

func NewUserRepository(gw Gateway) *UserRepository {
	return &UserRepository{gw: gw}
}

// Save inserts an unsaved user and assigns its generated ID, or updates a
// persisted one by ID.
func (r *UserRepository) Save(ctx context.Context, u *core.User) error {
	if u.ID.IsPersisted() {
		return update(ctx, r.gw, "update user",
			"UPDATE users SET name = ?, email = ? WHERE id = ?",
			u.Name, u.Email, u.ID.Value())
	}

	id, err := insert(ctx, r.gw, "insert user",
		"INSERT INTO users (name, email) VALUES (?, ?)",
		u.Name, u.Email)
	if err != nil {
		return err
	}
	u.ID = core.PersistedID(id)

	logger(ctx).InfoContext(ctx, "User saved",
		applog.FieldOperation, applog.OpCreate,
		applog.FieldUserID, id,
		"email", u.Email)
	return nil
}

func (r *UserRepository) FindByID(ctx context.Context, id int64) (core.User, bool, error) {
	return queryOne(ctx, r.gw, "select user by id", scanUser,
		"SELECT "+userColumns+" FROM users WHERE id = ?", id)
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (core.User, bool, error) {
	return queryOne(ctx, r.gw, "select user by email", scanUser,
		"SELECT "+userColumns+" FROM users WHERE email = ?", email)
}

func (r *UserRepository) FindAll(ctx context.Context) ([]core.User, error) {
	return queryAll(ctx, r.gw, "select users", scanUser,
		"SELECT "+userColumns+" FROM users ORDER BY id")
}

func (r *UserRepository) DeleteByID(ctx context.Context, id int64) error {
	n, err := exec(ctx, r.gw, "delete user", "DELETE FROM users WHERE id = ?", id)
	if err != nil {
		return err
	}
	logger(ctx).DebugContext(ctx, "User delete completed",
		applog.FieldOperation, applog.OpDelete,
		applog.FieldUserID, id,
		"rows_affected", n)
	return nil
}

func scanUser(row rowScanner) (core.User, error) {
	var (
		u         core.User
		id        int64
		createdAt timeValue
	)
	if err := row.Scan(&id, &u.Name, &u.Email, &createdAt); err != nil {
		return core.User{}, err
	}
	u.ID = core.PersistedID(id)
	u.CreatedAt = createdAt.Time
	return u, nil
}
