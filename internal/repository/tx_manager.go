package repository

import "context"

// Repos bound to one transaction.
type TxRepos interface {
	Orders() OrderRepository
	OrderItems() OrderItemRepository
	History() OrderStatusHistoryRepository
	MenuItems() MenuItemRepository
	Restaurants() RestaurantRepository
}

// TransactionManager hides begin/commit/rollback from the usecase layer.
// fn returning an error rolls back.
type TransactionManager interface {
	WithinTx(ctx context.Context, fn func(r TxRepos) error) error
}
