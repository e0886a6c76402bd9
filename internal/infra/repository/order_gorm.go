package repository

import (
	"context"
	"errors"
	"time"

	"foodorder/internal/domain/model"
	repo "foodorder/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OrderGormRepository struct {
	db *gorm.DB
}

func NewOrderGormRepository(db *gorm.DB) *OrderGormRepository {
	return &OrderGormRepository{db: db}
}

var _ repo.OrderRepository = (*OrderGormRepository)(nil)

func (r *OrderGormRepository) FindByID(ctx context.Context, orderID int64) (model.Order, error) {
	var o model.Order
	if err := r.db.WithContext(ctx).Where("id = ?", orderID).First(&o).Error; err != nil {
		return model.Order{}, translate(err)
	}
	return o, nil
}

func (r *OrderGormRepository) FindJoinedByID(ctx context.Context, orderID int64) (model.Order, error) {
	var o model.Order
	err := joined(r.db.WithContext(ctx), true).
		Where("orders.id = ?", orderID).
		First(&o).Error
	if err != nil {
		return model.Order{}, translate(err)
	}
	return o, nil
}

func (r *OrderGormRepository) FindByIdempotencyKey(ctx context.Context, userID int64, key string) (model.Order, bool, error) {
	var o model.Order
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND idempotency_key = ?", userID, key).
		First(&o).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Order{}, false, nil
	}
	if err != nil {
		return model.Order{}, false, err
	}
	return o, true, nil
}

// Create は注文行のみ作成。明細はOrderItemRepositoryで入れる。
func (r *OrderGormRepository) Create(ctx context.Context, order *model.Order) error {
	return translate(r.db.WithContext(ctx).Omit(clause.Associations).Create(order).Error)
}

func (r *OrderGormRepository) Query(ctx context.Context, q repo.OrderQuery) ([]model.Order, error) {
	tx := joined(r.db.WithContext(ctx), q.WithCustomer).Model(&model.Order{})

	if q.UserID != nil {
		tx = tx.Where("orders.user_id = ?", *q.UserID)
	}
	if q.RestaurantID != nil {
		tx = tx.Where("orders.restaurant_id = ?", *q.RestaurantID)
	}
	if q.CourierID != nil {
		tx = tx.Where("orders.courier_id = ?", *q.CourierID)
	}
	if q.Unclaimed {
		tx = tx.Where("orders.courier_id IS NULL")
	}
	if len(q.Statuses) > 0 {
		tx = tx.Where("orders.status IN ?", q.Statuses)
	}

	switch q.Sort {
	case repo.SortOldestFirst:
		tx = tx.Order("orders.created_at asc").Order("orders.id asc")
	default:
		tx = tx.Order("orders.created_at desc").Order("orders.id desc")
	}

	var orders []model.Order
	if err := tx.Find(&orders).Error; err != nil {
		return []model.Order{}, err
	}
	return orders, nil
}

func (r *OrderGormRepository) CompareAndSetStatus(ctx context.Context, u repo.StatusUpdate) (bool, error) {
	tx := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ? AND status = ?", u.OrderID, u.From)

	if u.ExpectUnclaimed {
		tx = tx.Where("courier_id IS NULL")
	}
	if u.ExpectCourierID != nil {
		tx = tx.Where("courier_id = ?", *u.ExpectCourierID)
	}

	updates := map[string]interface{}{
		"status":     u.To,
		"updated_at": time.Now(),
	}
	if u.SetCourierID != nil {
		updates["courier_id"] = *u.SetCourierID
	}

	res := tx.Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// joined preloads the associations every order view carries.
func joined(db *gorm.DB, withCustomer bool) *gorm.DB {
	q := db.
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("order_items.id asc")
		}).
		Preload("Items.MenuItem").
		Preload("Restaurant")
	if withCustomer {
		q = q.Preload("Customer", func(db *gorm.DB) *gorm.DB {
			// 公開してよい項目だけ
			return db.Select("id", "name", "email")
		})
	}
	return q
}
