package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"foodorder/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

var errInvalidBody = usecase.NewHTTPError(http.StatusBadRequest, "Invalid request body")

// writeError renders caller-facing rejections. Anything else is returned to
// echo and becomes a 500 in the HTTPErrorHandler.
func writeError(c echo.Context, err error) error {
	if err == nil {
		return nil
	}
	if he, ok := usecase.AsHTTPError(err); ok {
		return c.JSON(he.Status, ErrorResponse{Error: he.Message})
	}
	return err
}

func orderIDParam(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, usecase.ErrInvalidOrderID
	}
	return id, nil
}

// NewHTTPErrorHandler replaces echo's default so every failure renders as
// {"error": ...}. Error text is only exposed in dev.
func NewHTTPErrorHandler(dev bool, log logrus.FieldLogger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := http.StatusInternalServerError
		body := ErrorResponse{Error: "Internal server error"}

		var ehe *echo.HTTPError
		if he, ok := usecase.AsHTTPError(err); ok {
			status, body.Error = he.Status, he.Message
		} else if errors.As(err, &ehe) && ehe.Code < http.StatusInternalServerError {
			status, body.Error = ehe.Code, fmt.Sprint(ehe.Message)
		} else {
			log.WithError(err).WithFields(logrus.Fields{
				"request_id": c.Response().Header().Get(echo.HeaderXRequestID),
				"method":     c.Request().Method,
				"path":       c.Request().URL.Path,
			}).Error("internal error")
			if dev {
				body.Details = err.Error()
			}
		}

		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(status)
		} else {
			werr = c.JSON(status, body)
		}
		if werr != nil {
			log.WithError(werr).Warn("write error response")
		}
	}
}
