package repository

import (
	"context"

	"foodorder/internal/domain/model"
)

// append-only
type OrderStatusHistoryRepository interface {
	Append(ctx context.Context, h *model.OrderStatusHistory) error
	ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderStatusHistory, error)
}
