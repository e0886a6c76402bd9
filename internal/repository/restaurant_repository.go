package repository

import (
	"context"

	"foodorder/internal/domain/model"
)

type RestaurantRepository interface {
	FindByID(ctx context.Context, id int64) (model.Restaurant, error)
	FindByManagerID(ctx context.Context, managerID int64) (model.Restaurant, error)
}
