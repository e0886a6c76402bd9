package repository

import (
	"context"

	repo "foodorder/internal/repository"

	"gorm.io/gorm"
)

type txReposGorm struct {
	orders      repo.OrderRepository
	orderItems  repo.OrderItemRepository
	history     repo.OrderStatusHistoryRepository
	menuItems   repo.MenuItemRepository
	restaurants repo.RestaurantRepository
}

func (r *txReposGorm) Orders() repo.OrderRepository               { return r.orders }
func (r *txReposGorm) OrderItems() repo.OrderItemRepository       { return r.orderItems }
func (r *txReposGorm) History() repo.OrderStatusHistoryRepository { return r.history }
func (r *txReposGorm) MenuItems() repo.MenuItemRepository         { return r.menuItems }
func (r *txReposGorm) Restaurants() repo.RestaurantRepository     { return r.restaurants }

type TxManagerGorm struct {
	db *gorm.DB
}

func NewTxManagerGorm(db *gorm.DB) *TxManagerGorm {
	return &TxManagerGorm{db: db}
}

var _ repo.TransactionManager = (*TxManagerGorm)(nil)

func (tm *TxManagerGorm) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	return tm.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		//repoはtxを持ったDBで作り直す
		return fn(newTxRepos(tx))
	})
}

func newTxRepos(tx *gorm.DB) *txReposGorm {
	return &txReposGorm{
		orders:      NewOrderGormRepository(tx),
		orderItems:  NewOrderItemGormRepository(tx),
		history:     NewOrderStatusHistoryGormRepository(tx),
		menuItems:   NewMenuItemGormRepository(tx),
		restaurants: NewRestaurantGormRepository(tx),
	}
}
