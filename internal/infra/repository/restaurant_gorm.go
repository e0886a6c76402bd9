package repository

import (
	"context"

	"foodorder/internal/domain/model"
	repo "foodorder/internal/repository"

	"gorm.io/gorm"
)

type RestaurantGormRepository struct {
	db *gorm.DB
}

func NewRestaurantGormRepository(db *gorm.DB) *RestaurantGormRepository {
	return &RestaurantGormRepository{db: db}
}

var _ repo.RestaurantRepository = (*RestaurantGormRepository)(nil)

func (r *RestaurantGormRepository) FindByID(ctx context.Context, id int64) (model.Restaurant, error) {
	var rs model.Restaurant
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&rs).Error; err != nil {
		return model.Restaurant{}, translate(err)
	}
	return rs, nil
}

func (r *RestaurantGormRepository) FindByManagerID(ctx context.Context, managerID int64) (model.Restaurant, error) {
	var rs model.Restaurant
	if err := r.db.WithContext(ctx).Where("manager_id = ?", managerID).First(&rs).Error; err != nil {
		return model.Restaurant{}, translate(err)
	}
	return rs, nil
}
