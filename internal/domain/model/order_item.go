package model

import "github.com/shopspring/decimal"

// OrderItem.Price is the menu price captured when the order was placed.
type OrderItem struct {
	ID         int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID    int64           `gorm:"not null;index" json:"orderId"`
	MenuItemID int64           `gorm:"not null;index" json:"menuItemId"`
	Quantity   int64           `gorm:"not null" json:"quantity"`
	Price      decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"price"`

	MenuItem *MenuItem `gorm:"foreignKey:MenuItemID" json:"menuItem,omitempty"`
}

// Subtotal is price times quantity.
func (it OrderItem) Subtotal() decimal.Decimal {
	return it.Price.Mul(decimal.NewFromInt(it.Quantity))
}
