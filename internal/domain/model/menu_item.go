package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type MenuItem struct {
	ID           int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	RestaurantID int64           `gorm:"not null;index" json:"restaurantId"`
	Name         string          `gorm:"type:varchar(255);not null" json:"name"`
	Description  string          `gorm:"type:text" json:"description"`
	Price        decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"price"`
	Category     string          `gorm:"type:varchar(100);index" json:"category"`
	IsAvailable  bool            `gorm:"not null;default:true" json:"isAvailable"`
	CreatedAt    time.Time       `gorm:"not null;autoCreateTime" json:"createdAt"`
	UpdatedAt    time.Time       `gorm:"not null;autoUpdateTime" json:"updatedAt"`
}
