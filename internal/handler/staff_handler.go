package handler

import (
	"context"
	"net/http"

	"foodorder/internal/domain/model"
	"foodorder/internal/middleware"
	"foodorder/internal/usecase"

	"github.com/labstack/echo/v4"
)

type OrderStatusUpdateRequest struct {
	Status string `json:"status"`
}

// StaffHandler serves the cook, courier, manager and admin queues.
type StaffHandler struct {
	lifecycle *usecase.LifecycleUsecase
	queries   *usecase.OrderQueryUsecase
}

func NewStaffHandler(lifecycle *usecase.LifecycleUsecase, queries *usecase.OrderQueryUsecase) *StaffHandler {
	return &StaffHandler{lifecycle: lifecycle, queries: queries}
}

func (h *StaffHandler) RegisterRoutes(e *echo.Echo, authn ...echo.MiddlewareFunc) {
	cook := e.Group("/cook", authn...)
	cook.Use(middleware.RequireRole(model.RoleCook))
	cook.GET("/orders", h.listWith(h.queries.CookQueue))
	cook.PUT("/orders/:id/status", h.updateWith(h.lifecycle.CookUpdateStatus))

	courier := e.Group("/courier", authn...)
	courier.Use(middleware.RequireRole(model.RoleCourier))
	courier.GET("/orders", h.listWith(h.queries.CourierQueue))
	courier.POST("/orders/:id/take", h.take)
	courier.PUT("/orders/:id/status", h.updateWith(h.lifecycle.CourierUpdateStatus))

	manager := e.Group("/manager", authn...)
	manager.Use(middleware.RequireRole(model.RoleManager))
	manager.GET("/orders", h.listWith(h.queries.ManagerQueue))
	manager.PUT("/orders/:id/status", h.updateWith(h.lifecycle.ManagerUpdateStatus))

	admin := e.Group("/admin", authn...)
	admin.Use(middleware.RequireRole(model.RoleSuperAdmin))
	admin.GET("/orders", h.listWith(h.queries.AdminOrders))
}

type listFunc func(ctx context.Context, id model.Identity) ([]usecase.OrderOutput, error)

type updateFunc func(ctx context.Context, id model.Identity, orderID int64, status model.OrderStatus) (usecase.OrderOutput, error)

func (h *StaffHandler) listWith(fn listFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, _ := middleware.IdentityFrom(c)

		out, err := fn(c.Request().Context(), id)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, out)
	}
}

func (h *StaffHandler) updateWith(fn updateFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, _ := middleware.IdentityFrom(c)

		orderID, err := orderIDParam(c)
		if err != nil {
			return writeError(c, err)
		}

		var req OrderStatusUpdateRequest
		if err := c.Bind(&req); err != nil {
			return writeError(c, errInvalidBody)
		}

		out, err := fn(c.Request().Context(), id, orderID, model.OrderStatus(req.Status))
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, out)
	}
}

func (h *StaffHandler) take(c echo.Context) error {
	id, _ := middleware.IdentityFrom(c)

	orderID, err := orderIDParam(c)
	if err != nil {
		return writeError(c, err)
	}

	out, err := h.lifecycle.CourierTake(c.Request().Context(), id, orderID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
