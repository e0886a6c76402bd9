package usecase

import (
	"errors"
	"fmt"
	"net/http"

	"foodorder/internal/domain/model"
)

// HTTPError is a rejection the caller can act on. Anything else is a 500.
type HTTPError struct {
	Status  int
	Message string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

func NewHTTPError(status int, message string) error {
	return &HTTPError{
		Status:  status,
		Message: message,
	}
}

func AsHTTPError(err error) (*HTTPError, bool) {
	var he *HTTPError
	ok := errors.As(err, &he)
	return he, ok
}

var (
	errNotAuthenticated   = NewHTTPError(http.StatusUnauthorized, "Not authenticated")
	errInsufficientRole   = NewHTTPError(http.StatusForbidden, "Insufficient permissions")
	errAccessDenied       = NewHTTPError(http.StatusForbidden, "Access denied")
	errOrderNotFound      = NewHTTPError(http.StatusNotFound, "Order not found")
	errRestaurantNotFound = NewHTTPError(http.StatusNotFound, "Restaurant not found")
	errInvalidStatus      = NewHTTPError(http.StatusBadRequest, "Invalid status")
	// shared with path id parsing in the handlers
	ErrInvalidOrderID     = NewHTTPError(http.StatusBadRequest, "Invalid order id")
)

func requireRole(id model.Identity, roles ...model.Role) error {
	if id.IsZero() {
		return errNotAuthenticated
	}
	for _, r := range roles {
		if id.Role == r {
			return nil
		}
	}
	return errInsufficientRole
}

// transitionError maps a rejected state change onto the response the caller sees.
func transitionError(err error) error {
	var te *model.TransitionError
	if !errors.As(err, &te) {
		return err
	}
	if errors.Is(err, model.ErrStatusNotAllowed) {
		return errInvalidStatus
	}
	return NewHTTPError(http.StatusBadRequest, fmt.Sprintf("Cannot change status from %s to %s", te.From, te.To))
}
