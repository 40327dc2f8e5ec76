package services

import (
	"context"

	"expensetracker/internal/core"
	"expensetracker/internal/repository"
)

// UserService is a thin layer over the user repository.
type UserService struct {
	users repository.UserRepository
}

func NewUserService(users repository.UserRepository) *UserService {
	return &UserService{users: users}
}

// CreateUser always inserts. Duplicate emails are left to the store's
// unique constraint, whose error is returned unchanged.
func (s *UserService) CreateUser(ctx context.Context, name, email string) (core.User, error) {
	u := core.User{Name: name, Email: email}
	if err := s.users.Save(ctx, &u); err != nil {
		return core.User{}, err
	}
	return u, nil
}

func (s *UserService) GetAllUsers(ctx context.Context) ([]core.User, error) {
	return s.users.FindAll(ctx)
}

func (s *UserService) GetUserByID(ctx context.Context, id int64) (core.User, bool, error) {
	return s.users.FindByID(ctx, id)
}

func (s *UserService) FindUserByEmail(ctx context.Context, email string) (core.User, bool, error) {
	return s.users.FindByEmail(ctx, email)
}

func (s *UserService) DeleteUser(ctx context.Context, id int64) error {
	return s.users.DeleteByID(ctx, id)
}
