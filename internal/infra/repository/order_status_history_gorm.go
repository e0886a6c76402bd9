package repository

import (
	"context"

	"foodorder/internal/domain/model"
	repo "foodorder/internal/repository"

	"gorm.io/gorm"
)

type OrderStatusHistoryGormRepository struct {
	db *gorm.DB
}

func NewOrderStatusHistoryGormRepository(db *gorm.DB) *OrderStatusHistoryGormRepository {
	return &OrderStatusHistoryGormRepository{db: db}
}

var _ repo.OrderStatusHistoryRepository = (*OrderStatusHistoryGormRepository)(nil)

func (r *OrderStatusHistoryGormRepository) Append(ctx context.Context, h *model.OrderStatusHistory) error {
	return r.db.WithContext(ctx).Create(h).Error
}

func (r *OrderStatusHistoryGormRepository) ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderStatusHistory, error) {
	var rows []model.OrderStatusHistory
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at asc").
		Order("id asc").
		Find(&rows).Error
	if err != nil {
		return []model.OrderStatusHistory{}, err
	}
	return rows, nil
}
