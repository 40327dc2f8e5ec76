package storage

import (
	"context"

	"expensetracker/internal/core"
	applog "expensetracker/internal/log"
	"expensetracker/internal/repository"
)

const categoryColumns = "id, user_id, cat_name, created_at"

// CategoryRepository maps core.Category to the categories table. It does
// not check that the owning user is the caller's.
type CategoryRepository struct {
	gw Gateway
}

var _ repository.CategoryRepository = (*CategoryRepository)(nil)

func NewCategoryRepository(gw Gateway) *CategoryRepository {
	return &CategoryRepository{gw: gw}
}

func (r *CategoryRepository) Save(ctx context.Context, c *core.Category) error {
	if c.ID.IsPersisted() {
		return update(ctx, r.gw, "update category",
			"UPDATE categories SET user_id = ?, cat_name = ? WHERE id = ?",
			c.UserID, c.Name, c.ID.Value())
	}

	id, err := insert(ctx, r.gw, "insert category",
		"INSERT INTO categories (user_id, cat_name) VALUES (?, ?)",
		c.UserID, c.Name)
	if err != nil {
		return err
	}
	c.ID = core.PersistedID(id)

	logger(ctx).InfoContext(ctx, "Category saved",
		applog.FieldOperation, applog.OpCreate,
		applog.FieldCategoryID, id,
		applog.FieldUserID, c.UserID,
		"name", c.Name)
	return nil
}

func (r *CategoryRepository) FindByID(ctx context.Context, id int64) (core.Category, bool, error) {
	return queryOne(ctx, r.gw, "select category by id", scanCategory,
		"SELECT "+categoryColumns+" FROM categories WHERE id = ?", id)
}

func (r *CategoryRepository) FindByUserID(ctx context.Context, userID int64) ([]core.Category, error) {
	return queryAll(ctx, r.gw, "select categories by user", scanCategory,
		"SELECT "+categoryColumns+" FROM categories WHERE user_id = ? ORDER BY id", userID)
}

// FindByUserIDAndName returns the first of the user's categories with the
// exact name.
func (r *CategoryRepository) FindByUserIDAndName(ctx context.Context, userID int64, name string) (core.Category, bool, error) {
	return queryOne(ctx, r.gw, "select category by user and name", scanCategory,
		"SELECT "+categoryColumns+" FROM categories WHERE user_id = ? AND cat_name = ? ORDER BY id", userID, name)
}

func (r *CategoryRepository) DeleteByID(ctx context.Context, id int64) error {
	n, err := exec(ctx, r.gw, "delete category", "DELETE FROM categories WHERE id = ?", id)
	if err != nil {
		return err
	}
	logger(ctx).DebugContext(ctx, "Category delete completed",
		applog.FieldOperation, applog.OpDelete,
		applog.FieldCategoryID, id,
		"rows_affected", n)
	return nil
}

func scanCategory(row rowScanner) (core.Category, error) {
	var (
		c         core.Category
		id        int64
		createdAt timeValue
	)
	if err := row.Scan(&id, &c.UserID, &c.Name, &createdAt); err != nil {
		return core.Category{}, err
	}
	c.ID = core.PersistedID(id)
	c.CreatedAt = createdAt.Time
	return c, nil
}
