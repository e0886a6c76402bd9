package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Order struct {
	ID             int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID         int64           `gorm:"not null;index;uniqueIndex:idx_orders_user_idem" json:"userId"`
	RestaurantID   int64           `gorm:"not null;index" json:"restaurantId"`
	CourierID      *int64          `gorm:"index" json:"courierId"`
	Status         OrderStatus     `gorm:"type:varchar(20);not null;index" json:"status"`
	TotalPrice     decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"totalPrice"`
	Address        string          `gorm:"type:varchar(500);not null" json:"address"`
	Phone          string          `gorm:"type:varchar(50);not null" json:"phone"`
	Notes          string          `gorm:"type:text" json:"notes"`
	IdempotencyKey *string         `gorm:"type:varchar(255);uniqueIndex:idx_orders_user_idem" json:"-"`
	CreatedAt      time.Time       `gorm:"not null;autoCreateTime;index" json:"createdAt"`
	UpdatedAt      time.Time       `gorm:"not null;autoUpdateTime" json:"updatedAt"`

	Items      []OrderItem `gorm:"foreignKey:OrderID" json:"items,omitempty"`
	Restaurant *Restaurant `gorm:"foreignKey:RestaurantID" json:"restaurant,omitempty"`
	Customer   *User       `gorm:"foreignKey:UserID" json:"-"`
}

// IsClaimedBy reports whether courierID holds the order.
func (o Order) IsClaimedBy(courierID int64) bool {
	return o.CourierID != nil && *o.CourierID == courierID
}
