package usecase

import (
	"time"

	"foodorder/internal/domain/model"
)

// Money is rendered with two decimals, the currency minor unit.

type MenuItemOutput struct {
	ID           int64  `json:"id"`
	RestaurantID int64  `json:"restaurantId"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	Price        string `json:"price"`
	Category     string `json:"category"`
	IsAvailable  bool   `json:"isAvailable"`
}

type OrderItemOutput struct {
	ID         int64           `json:"id"`
	MenuItemID int64           `json:"menuItemId"`
	Quantity   int64           `json:"quantity"`
	Price      string          `json:"price"`
	MenuItem   *MenuItemOutput `json:"menuItem,omitempty"`
}

type RestaurantOutput struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Address  string `json:"address"`
	Phone    string `json:"phone"`
	IsActive bool   `json:"isActive"`
}

// CustomerOutput is the public identity of the ordering user.
type CustomerOutput struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type OrderOutput struct {
	ID           int64             `json:"id"`
	UserID       int64             `json:"userId"`
	RestaurantID int64             `json:"restaurantId"`
	CourierID    *int64            `json:"courierId"`
	Status       string            `json:"status"`
	TotalPrice   string            `json:"totalPrice"`
	Address      string            `json:"address"`
	Phone        string            `json:"phone"`
	Notes        string            `json:"notes"`
	CreatedAt    time.Time         `json:"createdAt"`
	UpdatedAt    time.Time         `json:"updatedAt"`
	Items        []OrderItemOutput `json:"items"`
	Restaurant   *RestaurantOutput `json:"restaurant,omitempty"`
	Customer     *CustomerOutput   `json:"customer,omitempty"`
}

type StatusHistoryOutput struct {
	ID        int64     `json:"id"`
	Status    string    `json:"status"`
	ChangedBy int64     `json:"changedBy"`
	CreatedAt time.Time `json:"createdAt"`
}

func toOrderOutput(o model.Order, withCustomer bool) OrderOutput {
	items := make([]OrderItemOutput, 0, len(o.Items))
	for _, it := range o.Items {
		out := OrderItemOutput{
			ID:         it.ID,
			MenuItemID: it.MenuItemID,
			Quantity:   it.Quantity,
			Price:      it.Price.StringFixed(2),
		}
		if it.MenuItem != nil {
			out.MenuItem = &MenuItemOutput{
				ID:           it.MenuItem.ID,
				RestaurantID: it.MenuItem.RestaurantID,
				Name:         it.MenuItem.Name,
				Description:  it.MenuItem.Description,
				Price:        it.MenuItem.Price.StringFixed(2),
				Category:     it.MenuItem.Category,
				IsAvailable:  it.MenuItem.IsAvailable,
			}
		}
		items = append(items, out)
	}

	out := OrderOutput{
		ID:           o.ID,
		UserID:       o.UserID,
		RestaurantID: o.RestaurantID,
		CourierID:    o.CourierID,
		Status:       string(o.Status),
		TotalPrice:   o.TotalPrice.StringFixed(2),
		Address:      o.Address,
		Phone:        o.Phone,
		Notes:        o.Notes,
		CreatedAt:    o.CreatedAt,
		UpdatedAt:    o.UpdatedAt,
		Items:        items,
	}
	if o.Restaurant != nil {
		out.Restaurant = &RestaurantOutput{
			ID:       o.Restaurant.ID,
			Name:     o.Restaurant.Name,
			Address:  o.Restaurant.Address,
			Phone:    o.Restaurant.Phone,
			IsActive: o.Restaurant.IsActive,
		}
	}
	if withCustomer && o.Customer != nil {
		out.Customer = &CustomerOutput{
			ID:    o.Customer.ID,
			Name:  o.Customer.Name,
			Email: o.Customer.Email,
		}
	}
	return out
}

func toOrderOutputs(orders []model.Order, withCustomer bool) []OrderOutput {
	outs := make([]OrderOutput, 0, len(orders))
	for _, o := range orders {
		outs = append(outs, toOrderOutput(o, withCustomer))
	}
	return outs
}

func toHistoryOutputs(rows []model.OrderStatusHistory) []StatusHistoryOutput {
	outs := make([]StatusHistoryOutput, 0, len(rows))
	for _, h := range rows {
		outs = append(outs, StatusHistoryOutput{
			ID:        h.ID,
			Status:    string(h.Status),
			ChangedBy: h.ChangedBy,
			CreatedAt: h.CreatedAt,
		})
	}
	return outs
}
