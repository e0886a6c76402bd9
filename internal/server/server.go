package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"foodorder/internal/config"
	"foodorder/internal/handler"
	"foodorder/internal/middleware"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
)

// New builds the echo engine with the shared middleware stack. Routes are
// added by RegisterRoutes.
func New(cfg config.Config, log *logrus.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadHeaderTimeout = 10 * time.Second
	e.HTTPErrorHandler = handler.NewHTTPErrorHandler(cfg.IsDev(), log)

	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(middleware.RequestLogger(log))
	e.Use(echomw.Recover())

	origins := []string{"*"}
	if cfg.WSAllowedOrigin != "" {
		origins = []string{cfg.WSAllowedOrigin}
	}
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: origins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowHeaders: []string{
			echo.HeaderAuthorization,
			echo.HeaderContentType,
			"X-Idempotency-Key",
		},
		ExposeHeaders: []string{echo.HeaderXRequestID},
	}))

	return e
}

// Start はctxがキャンセルされるまで待ち受け、処理中のリクエストを捌いてから止まる
func Start(ctx context.Context, e *echo.Echo, addr string, shutdownTimeout time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(sctx)
}
