package handler

import (
	"net/http"

	"foodorder/internal/domain/model"
	"foodorder/internal/middleware"
	"foodorder/internal/usecase"

	"github.com/labstack/echo/v4"
)

// OrderHandler serves /orders for customers, plus read access for admins.
type OrderHandler struct {
	lifecycle *usecase.LifecycleUsecase
	queries   *usecase.OrderQueryUsecase
}

func NewOrderHandler(lifecycle *usecase.LifecycleUsecase, queries *usecase.OrderQueryUsecase) *OrderHandler {
	return &OrderHandler{lifecycle: lifecycle, queries: queries}
}

type OrderItemRequest struct {
	MenuItemID int64 `json:"menuItemId"`
	Quantity   int64 `json:"quantity"`
}

type OrderCreateRequest struct {
	RestaurantID int64              `json:"restaurantId"`
	Items        []OrderItemRequest `json:"items"`
	Address      string             `json:"address"`
	Phone        string             `json:"phone"`
	Notes        string             `json:"notes"`
}

func (h *OrderHandler) RegisterRoutes(e *echo.Echo, authn ...echo.MiddlewareFunc) {
	g := e.Group("/orders", authn...)

	g.POST("", h.create, middleware.RequireRole(model.RoleCustomer))
	g.GET("", h.list, middleware.RequireRole(model.RoleCustomer, model.RoleSuperAdmin))
	g.GET("/:id", h.detail)
	g.GET("/:id/history", h.history)
}

func (h *OrderHandler) create(c echo.Context) error {
	id, _ := middleware.IdentityFrom(c)

	var req OrderCreateRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, errInvalidBody)
	}

	lines := make([]usecase.OrderLine, 0, len(req.Items))
	for _, it := range req.Items {
		lines = append(lines, usecase.OrderLine{MenuItemID: it.MenuItemID, Quantity: it.Quantity})
	}

	//冪等キーはヘッダで受け取る（bodyには入れない）
	res, err := h.lifecycle.CreateOrder(c.Request().Context(), id, usecase.CreateOrderInput{
		RestaurantID:   req.RestaurantID,
		Items:          lines,
		Address:        req.Address,
		Phone:          req.Phone,
		Notes:          req.Notes,
		IdempotencyKey: c.Request().Header.Get("X-Idempotency-Key"),
	})
	if err != nil {
		return writeError(c, err)
	}

	status := http.StatusCreated
	if !res.Created {
		status = http.StatusOK
	}
	return c.JSON(status, res.Order)
}

func (h *OrderHandler) list(c echo.Context) error {
	id, _ := middleware.IdentityFrom(c)

	out, err := h.queries.ListOrders(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) detail(c echo.Context) error {
	id, _ := middleware.IdentityFrom(c)

	orderID, err := orderIDParam(c)
	if err != nil {
		return writeError(c, err)
	}

	out, err := h.queries.GetOrder(c.Request().Context(), id, orderID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) history(c echo.Context) error {
	id, _ := middleware.IdentityFrom(c)

	orderID, err := orderIDParam(c)
	if err != nil {
		return writeError(c, err)
	}

	out, err := h.queries.GetOrderHistory(c.Request().Context(), id, orderID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
