package model

import (
	"errors"
	"fmt"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "PENDING"
	OrderStatusConfirmed  OrderStatus = "CONFIRMED"
	OrderStatusPreparing  OrderStatus = "PREPARING"
	OrderStatusReady      OrderStatus = "READY"
	OrderStatusPickedUp   OrderStatus = "PICKED_UP"
	OrderStatusDelivering OrderStatus = "DELIVERING"
	OrderStatusDelivered  OrderStatus = "DELIVERED"
	// Reserved. No transition leads here.
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

var (
	// requested status is outside the actor's target set
	ErrStatusNotAllowed = errors.New("status not allowed for role")
	// requested status is not reachable from the current one
	ErrInvalidTransition = errors.New("invalid status transition")
)

// TransitionError carries the rejected edge.
type TransitionError struct {
	From OrderStatus
	To   OrderStatus
	Role Role
	Err  error
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: %s -> %s by %s", e.Err, e.From, e.To, e.Role)
}

func (e *TransitionError) Unwrap() error { return e.Err }

type transition struct {
	from OrderStatus
	to   OrderStatus
	role Role
}

var transitions = []transition{
	{from: OrderStatusPending, to: OrderStatusConfirmed, role: RoleManager},

	{from: OrderStatusPending, to: OrderStatusPreparing, role: RoleCook},
	{from: OrderStatusConfirmed, to: OrderStatusPreparing, role: RoleCook},
	{from: OrderStatusPreparing, to: OrderStatusReady, role: RoleCook},

	// claim
	{from: OrderStatusReady, to: OrderStatusPickedUp, role: RoleCourier},
	{from: OrderStatusPickedUp, to: OrderStatusDelivering, role: RoleCourier},
	{from: OrderStatusDelivering, to: OrderStatusDelivered, role: RoleCourier},
}

var (
	transitionSet = func() map[transition]struct{} {
		m := make(map[transition]struct{}, len(transitions))
		for _, t := range transitions {
			m[t] = struct{}{}
		}
		return m
	}()

	// statuses each role may ask for at all
	roleTargets = map[Role][]OrderStatus{
		RoleManager: {OrderStatusConfirmed},
		RoleCook:    {OrderStatusPreparing, OrderStatusReady},
		RoleCourier: {OrderStatusPickedUp, OrderStatusDelivering, OrderStatusDelivered},
	}
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusPreparing, OrderStatusReady,
		OrderStatusPickedUp, OrderStatusDelivering, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// CanRequest reports whether role may request status regardless of the order's current state.
func CanRequest(role Role, status OrderStatus) bool {
	for _, s := range roleTargets[role] {
		if s == status {
			return true
		}
	}
	return false
}

// Transition is the single place that decides whether role may move an order
// from current to requested. It returns the new status on success.
func Transition(current, requested OrderStatus, role Role) (OrderStatus, error) {
	if !CanRequest(role, requested) {
		return current, &TransitionError{From: current, To: requested, Role: role, Err: ErrStatusNotAllowed}
	}
	if _, ok := transitionSet[transition{from: current, to: requested, role: role}]; !ok {
		return current, &TransitionError{From: current, To: requested, Role: role, Err: ErrInvalidTransition}
	}
	return requested, nil
}
