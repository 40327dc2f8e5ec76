package services

import (
	"context"

	"expensetracker/internal/core"
	"expensetracker/internal/repository"
)

type CategoryService struct {
	categories repository.CategoryRepository
}

func NewCategoryService(categories repository.CategoryRepository) *CategoryService {
	return &CategoryService{categories: categories}
}

// CreateCategory always inserts; two categories of a user may share a name.
func (s *CategoryService) CreateCategory(ctx context.Context, userID int64, name string) (core.Category, error) {
	c := core.Category{UserID: userID, Name: name}
	if err := s.categories.Save(ctx, &c); err != nil {
		return core.Category{}, err
	}
	return c, nil
}

func (s *CategoryService) GetCategoriesForUser(ctx context.Context, userID int64) ([]core.Category, error) {
	return s.categories.FindByUserID(ctx, userID)
}

func (s *CategoryService) GetCategoryByID(ctx context.Context, id int64) (core.Category, bool, error) {
	return s.categories.FindByID(ctx, id)
}

func (s *CategoryService) DeleteCategory(ctx context.Context, id int64) error {
	return s.categories.DeleteByID(ctx, id)
}
