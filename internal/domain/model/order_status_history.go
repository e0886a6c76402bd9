package model

import "time"

// OrderStatusHistory is insert-only. One row per status an order has held.
type OrderStatusHistory struct {
	ID        int64       `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID   int64       `gorm:"not null;index" json:"orderId"`
	Status    OrderStatus `gorm:"type:varchar(20);not null" json:"status"`
	ChangedBy int64       `gorm:"not null;index" json:"changedBy"`
	CreatedAt time.Time   `gorm:"not null;autoCreateTime;index" json:"createdAt"`
}

func (OrderStatusHistory) TableName() string {
	return "order_status_history"
}
