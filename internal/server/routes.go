package server

import (
	"foodorder/internal/handler"
	"foodorder/internal/middleware"
	"foodorder/internal/repository"

	"github.com/labstack/echo/v4"
)

type Handlers struct {
	Health *handler.HealthHandler
	Auth   *handler.AuthHandler
	WS     *handler.WSHandler
	Orders *handler.OrderHandler
	Staff  *handler.StaffHandler
}

func RegisterRoutes(e *echo.Echo, jwtSecret string, userRepo repository.UserRepository, h Handlers) {
	authn := []echo.MiddlewareFunc{
		middleware.AuthJWT(jwtSecret),
		middleware.TokenVersionGuard(userRepo),
	}

	h.Health.RegisterRoutes(e)
	h.Auth.RegisterRoutes(e)
	h.WS.RegisterRoutes(e)
	h.Orders.RegisterRoutes(e, authn...)
	h.Staff.RegisterRoutes(e, authn...)
}
