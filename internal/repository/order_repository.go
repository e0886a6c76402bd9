package repository

import (
	"context"

	"foodorder/internal/domain/model"
)

type OrderSort int

const (
	SortNewestFirst OrderSort = iota
	SortOldestFirst
)

// OrderQuery filters a joined order read. Zero values mean "no filter".
type OrderQuery struct {
	UserID       *int64
	RestaurantID *int64
	CourierID    *int64
	Unclaimed    bool
	Statuses     []model.OrderStatus
	Sort         OrderSort
	WithCustomer bool
}

// StatusUpdate is a guarded write: it applies only while the row still has
// status From and matches the courier expectation.
type StatusUpdate struct {
	OrderID         int64
	From            model.OrderStatus
	To              model.OrderStatus
	ExpectUnclaimed bool
	ExpectCourierID *int64
	SetCourierID    *int64
}

type OrderRepository interface {
	FindByID(ctx context.Context, orderID int64) (model.Order, error)
	// items with menu items, restaurant, customer
	FindJoinedByID(ctx context.Context, orderID int64) (model.Order, error)
	FindByIdempotencyKey(ctx context.Context, userID int64, key string) (model.Order, bool, error)
	Create(ctx context.Context, order *model.Order) error
	Query(ctx context.Context, q OrderQuery) ([]model.Order, error)
	// false when the guard did not match
	CompareAndSetStatus(ctx context.Context, u StatusUpdate) (bool, error)
}
