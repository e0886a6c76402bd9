package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"foodorder/internal/domain/model"
	repo "foodorder/internal/repository"

	"github.com/shopspring/decimal"
)

type OrderLine struct {
	MenuItemID int64
	Quantity   int64
}

// Quote is the priced, normalized form of an order request.
type Quote struct {
	Total decimal.Decimal
	Items []model.OrderItem
}

// QuoteOrder validates lines against the live menu and prices them.
// It only reads from menu.
func QuoteOrder(ctx context.Context, menu repo.MenuItemRepository, restaurantID int64, lines []OrderLine) (Quote, error) {
	if len(lines) == 0 {
		return Quote{}, NewHTTPError(http.StatusBadRequest, "Invalid order data")
	}

	total := decimal.Zero
	items := make([]model.OrderItem, 0, len(lines))

	for _, l := range lines {
		if l.Quantity <= 0 {
			return Quote{}, NewHTTPError(http.StatusBadRequest, fmt.Sprintf("Invalid quantity for item %d", l.MenuItemID))
		}

		mi, err := menu.FindByID(ctx, l.MenuItemID)
		if errors.Is(err, repo.ErrNotFound) || (err == nil && !mi.IsAvailable) {
			return Quote{}, NewHTTPError(http.StatusBadRequest, fmt.Sprintf("Item %d is not available", l.MenuItemID))
		}
		if err != nil {
			return Quote{}, fmt.Errorf("find menu item %d: %w", l.MenuItemID, err)
		}
		if mi.RestaurantID != restaurantID {
			return Quote{}, NewHTTPError(http.StatusBadRequest, "All items must be from the same restaurant")
		}

		item := model.OrderItem{
			MenuItemID: mi.ID,
			Quantity:   l.Quantity,
			Price:      mi.Price,
		}
		total = total.Add(item.Subtotal())
		items = append(items, item)
	}

	return Quote{Total: total.Round(2), Items: items}, nil
}
