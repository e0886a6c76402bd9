package usecase

import (
	"context"
	"errors"
	"fmt"

	"foodorder/internal/domain/model"
	repo "foodorder/internal/repository"
)

var (
	kitchenStatuses = []model.OrderStatus{
		model.OrderStatusConfirmed,
		model.OrderStatusPreparing,
		model.OrderStatusReady,
	}
	deliveryStatuses = []model.OrderStatus{
		model.OrderStatusPickedUp,
		model.OrderStatusDelivering,
	}
)

// OrderQueryUsecase serves the read side, filtered per role.
type OrderQueryUsecase struct {
	orders      repo.OrderRepository
	history     repo.OrderStatusHistoryRepository
	restaurants repo.RestaurantRepository
}

func NewOrderQueryUsecase(
	orders repo.OrderRepository,
	history repo.OrderStatusHistoryRepository,
	restaurants repo.RestaurantRepository,
) *OrderQueryUsecase {
	return &OrderQueryUsecase{orders: orders, history: history, restaurants: restaurants}
}

// ListOrders: a customer sees their own orders, an admin sees everything.
func (u *OrderQueryUsecase) ListOrders(ctx context.Context, id model.Identity) ([]OrderOutput, error) {
	if id.IsZero() {
		return []OrderOutput{}, errNotAuthenticated
	}
	switch id.Role {
	case model.RoleCustomer:
		return u.query(ctx, repo.OrderQuery{UserID: &id.UserID, Sort: repo.SortNewestFirst})
	case model.RoleSuperAdmin:
		return u.AdminOrders(ctx, id)
	default:
		return []OrderOutput{}, errAccessDenied
	}
}

func (u *OrderQueryUsecase) GetOrder(ctx context.Context, id model.Identity, orderID int64) (OrderOutput, error) {
	o, err := u.visibleOrder(ctx, id, orderID)
	if err != nil {
		return OrderOutput{}, err
	}
	return toOrderOutput(o, true), nil
}

// GetOrderHistory returns the status path oldest first.
func (u *OrderQueryUsecase) GetOrderHistory(ctx context.Context, id model.Identity, orderID int64) ([]StatusHistoryOutput, error) {
	if _, err := u.visibleOrder(ctx, id, orderID); err != nil {
		return []StatusHistoryOutput{}, err
	}
	rows, err := u.history.ListByOrderID(ctx, orderID)
	if err != nil {
		return []StatusHistoryOutput{}, fmt.Errorf("list history: %w", err)
	}
	return toHistoryOutputs(rows), nil
}

// CookQueue is the kitchen FIFO across all restaurants.
func (u *OrderQueryUsecase) CookQueue(ctx context.Context, id model.Identity) ([]OrderOutput, error) {
	if err := requireRole(id, model.RoleCook); err != nil {
		return []OrderOutput{}, err
	}
	return u.query(ctx, repo.OrderQuery{Statuses: kitchenStatuses, Sort: repo.SortOldestFirst})
}

// CourierQueue is the claimable pool followed by the courier's own deliveries.
func (u *OrderQueryUsecase) CourierQueue(ctx context.Context, id model.Identity) ([]OrderOutput, error) {
	if err := requireRole(id, model.RoleCourier); err != nil {
		return []OrderOutput{}, err
	}

	pool, err := u.query(ctx, repo.OrderQuery{
		Statuses:  []model.OrderStatus{model.OrderStatusReady},
		Unclaimed: true,
		Sort:      repo.SortOldestFirst,
	})
	if err != nil {
		return []OrderOutput{}, err
	}

	mine, err := u.query(ctx, repo.OrderQuery{
		CourierID: &id.UserID,
		Statuses:  deliveryStatuses,
		Sort:      repo.SortOldestFirst,
	})
	if err != nil {
		return []OrderOutput{}, err
	}

	return append(pool, mine...), nil
}

func (u *OrderQueryUsecase) ManagerQueue(ctx context.Context, id model.Identity) ([]OrderOutput, error) {
	if err := requireRole(id, model.RoleManager); err != nil {
		return []OrderOutput{}, err
	}

	rs, err := u.restaurants.FindByManagerID(ctx, id.UserID)
	if errors.Is(err, repo.ErrNotFound) {
		return []OrderOutput{}, errRestaurantNotFound
	}
	if err != nil {
		return []OrderOutput{}, fmt.Errorf("find managed restaurant: %w", err)
	}

	return u.query(ctx, repo.OrderQuery{
		RestaurantID: &rs.ID,
		Sort:         repo.SortNewestFirst,
		WithCustomer: true,
	})
}

func (u *OrderQueryUsecase) AdminOrders(ctx context.Context, id model.Identity) ([]OrderOutput, error) {
	if err := requireRole(id, model.RoleSuperAdmin); err != nil {
		return []OrderOutput{}, err
	}
	return u.query(ctx, repo.OrderQuery{Sort: repo.SortNewestFirst, WithCustomer: true})
}

// visibleOrder loads an order the caller owns, or any order for an admin.
func (u *OrderQueryUsecase) visibleOrder(ctx context.Context, id model.Identity, orderID int64) (model.Order, error) {
	if id.IsZero() {
		return model.Order{}, errNotAuthenticated
	}
	if orderID <= 0 {
		return model.Order{}, ErrInvalidOrderID
	}

	o, err := u.orders.FindJoinedByID(ctx, orderID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Order{}, errOrderNotFound
	}
	if err != nil {
		return model.Order{}, fmt.Errorf("find order: %w", err)
	}
	if id.Role != model.RoleSuperAdmin && o.UserID != id.UserID {
		return model.Order{}, errAccessDenied
	}
	return o, nil
}

func (u *OrderQueryUsecase) query(ctx context.Context, q repo.OrderQuery) ([]OrderOutput, error) {
	orders, err := u.orders.Query(ctx, q)
	if err != nil {
		return []OrderOutput{}, fmt.Errorf("query orders: %w", err)
	}
	return toOrderOutputs(orders, q.WithCustomer), nil
}
