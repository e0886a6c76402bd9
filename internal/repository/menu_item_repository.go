package repository

import (
	"context"

	"foodorder/internal/domain/model"
)

type MenuItemRepository interface {
	FindByID(ctx context.Context, id int64) (model.MenuItem, error)
}
