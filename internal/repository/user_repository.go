package repository

import (
	"context"
	"errors"

	"foodorder/internal/domain/model"
)

var ErrUserNotFound = errors.New("user not found")

type UserRepository interface {
	// ErrConflict when the email is taken
	Create(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, userID int64) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
}
