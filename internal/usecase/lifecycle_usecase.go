package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"foodorder/internal/domain/model"
	"foodorder/internal/notifier"
	repo "foodorder/internal/repository"

	"github.com/sirupsen/logrus"
)

const maxIdempotencyKeyLen = 255

var errIdempotentRace = errors.New("idempotency key taken concurrently")

// LifecycleUsecase owns every write to an order: creation and status changes.
type LifecycleUsecase struct {
	tx        repo.TransactionManager
	orders    repo.OrderRepository
	publisher notifier.Publisher
	log       logrus.FieldLogger
}

func NewLifecycleUsecase(
	tx repo.TransactionManager,
	orders repo.OrderRepository,
	publisher notifier.Publisher,
	log logrus.FieldLogger,
) *LifecycleUsecase {
	return &LifecycleUsecase{
		tx:        tx,
		orders:    orders,
		publisher: publisher,
		log:       log,
	}
}

type CreateOrderInput struct {
	RestaurantID   int64
	Items          []OrderLine
	Address        string
	Phone          string
	Notes          string
	IdempotencyKey string
}

// CreateOrderResult.Created is false when an earlier order with the same
// idempotency key was returned instead.
type CreateOrderResult struct {
	Order   OrderOutput
	Created bool
}

func (u *LifecycleUsecase) CreateOrder(ctx context.Context, id model.Identity, in CreateOrderInput) (CreateOrderResult, error) {
	if err := requireRole(id, model.RoleCustomer); err != nil {
		return CreateOrderResult{}, err
	}
	if in.RestaurantID <= 0 || len(in.Items) == 0 {
		return CreateOrderResult{}, NewHTTPError(http.StatusBadRequest, "Invalid order data")
	}
	for _, it := range in.Items {
		if it.Quantity <= 0 {
			return CreateOrderResult{}, NewHTTPError(http.StatusBadRequest, fmt.Sprintf("Invalid quantity for item %d", it.MenuItemID))
		}
	}
	address := strings.TrimSpace(in.Address)
	phone := strings.TrimSpace(in.Phone)
	if address == "" || phone == "" {
		return CreateOrderResult{}, NewHTTPError(http.StatusBadRequest, "Address and phone are required")
	}

	var key *string
	if k := strings.TrimSpace(in.IdempotencyKey); k != "" {
		if len(k) > maxIdempotencyKeyLen {
			return CreateOrderResult{}, NewHTTPError(http.StatusBadRequest, "Invalid idempotency key")
		}
		key = &k
	}

	var orderID int64
	created := false

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if key != nil {
			existing, found, err := r.Orders().FindByIdempotencyKey(ctx, id.UserID, *key)
			if err != nil {
				return fmt.Errorf("find by idempotency key: %w", err)
			}
			if found {
				orderID = existing.ID
				return nil
			}
		}

		rs, err := r.Restaurants().FindByID(ctx, in.RestaurantID)
		if errors.Is(err, repo.ErrNotFound) {
			return errRestaurantNotFound
		}
		if err != nil {
			return fmt.Errorf("find restaurant: %w", err)
		}
		if !rs.IsActive {
			return NewHTTPError(http.StatusBadRequest, "Restaurant is not available")
		}

		quote, err := QuoteOrder(ctx, r.MenuItems(), in.RestaurantID, in.Items)
		if err != nil {
			return err
		}

		order := &model.Order{
			UserID:         id.UserID,
			RestaurantID:   in.RestaurantID,
			Status:         model.OrderStatusPending,
			TotalPrice:     quote.Total,
			Address:        address,
			Phone:          phone,
			Notes:          strings.TrimSpace(in.Notes),
			IdempotencyKey: key,
		}
		if err := r.Orders().Create(ctx, order); err != nil {
			if errors.Is(err, repo.ErrConflict) && key != nil {
				return errIdempotentRace
			}
			return fmt.Errorf("create order: %w", err)
		}

		if err := r.OrderItems().CreateBulk(ctx, order.ID, quote.Items); err != nil {
			return fmt.Errorf("create order items: %w", err)
		}

		if err := r.History().Append(ctx, &model.OrderStatusHistory{
			OrderID:   order.ID,
			Status:    model.OrderStatusPending,
			ChangedBy: id.UserID,
		}); err != nil {
			return fmt.Errorf("append history: %w", err)
		}

		orderID = order.ID
		created = true
		return nil
	})

	// another request with the same key committed first
	if errors.Is(err, errIdempotentRace) {
		existing, found, ferr := u.orders.FindByIdempotencyKey(ctx, id.UserID, *key)
		if ferr != nil {
			return CreateOrderResult{}, fmt.Errorf("find by idempotency key: %w", ferr)
		}
		if !found {
			return CreateOrderResult{}, NewHTTPError(http.StatusBadRequest, "Invalid idempotency key")
		}
		orderID, err = existing.ID, nil
	}
	if err != nil {
		return CreateOrderResult{}, err
	}

	// committed: a client hanging up must not cost the read-back or the event
	pctx := context.WithoutCancel(ctx)

	o, err := u.orders.FindJoinedByID(pctx, orderID)
	if err != nil {
		return CreateOrderResult{}, fmt.Errorf("read back order %d: %w", orderID, err)
	}

	if created {
		u.publish(pctx, notifier.EventNewOrder, o)
		u.log.WithFields(logrus.Fields{"order_id": o.ID, "user_id": id.UserID}).Info("order created")
	}
	return CreateOrderResult{Order: toOrderOutput(o, false), Created: created}, nil
}

// CookUpdateStatus moves any restaurant's order through the kitchen.
func (u *LifecycleUsecase) CookUpdateStatus(ctx context.Context, id model.Identity, orderID int64, status model.OrderStatus) (OrderOutput, error) {
	if err := requireRole(id, model.RoleCook); err != nil {
		return OrderOutput{}, err
	}
	return u.transition(ctx, transitionRequest{
		actor:   id,
		orderID: orderID,
		to:      status,
	})
}

// CourierTake claims a READY order nobody holds yet.
func (u *LifecycleUsecase) CourierTake(ctx context.Context, id model.Identity, orderID int64) (OrderOutput, error) {
	if err := requireRole(id, model.RoleCourier); err != nil {
		return OrderOutput{}, err
	}
	return u.transition(ctx, transitionRequest{
		actor:   id,
		orderID: orderID,
		to:      model.OrderStatusPickedUp,
		claim:   true,
		check: func(o model.Order) error {
			if o.CourierID != nil {
				return NewHTTPError(http.StatusBadRequest, "Order already taken")
			}
			if o.Status != model.OrderStatusReady {
				return NewHTTPError(http.StatusBadRequest, "Order is not ready")
			}
			return nil
		},
	})
}

// CourierUpdateStatus advances an order the courier already holds.
func (u *LifecycleUsecase) CourierUpdateStatus(ctx context.Context, id model.Identity, orderID int64, status model.OrderStatus) (OrderOutput, error) {
	if err := requireRole(id, model.RoleCourier); err != nil {
		return OrderOutput{}, err
	}
	return u.transition(ctx, transitionRequest{
		actor:      id,
		orderID:    orderID,
		to:         status,
		ownCourier: true,
		check: func(o model.Order) error {
			if !o.IsClaimedBy(id.UserID) {
				return NewHTTPError(http.StatusForbidden, "Not your order")
			}
			return nil
		},
	})
}

// ManagerUpdateStatus confirms orders of the manager's own restaurant.
func (u *LifecycleUsecase) ManagerUpdateStatus(ctx context.Context, id model.Identity, orderID int64, status model.OrderStatus) (OrderOutput, error) {
	if err := requireRole(id, model.RoleManager); err != nil {
		return OrderOutput{}, err
	}
	var restaurantID int64
	return u.transition(ctx, transitionRequest{
		actor:   id,
		orderID: orderID,
		to:      status,
		prepare: func(ctx context.Context, r repo.TxRepos) error {
			rs, err := r.Restaurants().FindByManagerID(ctx, id.UserID)
			if errors.Is(err, repo.ErrNotFound) {
				return errRestaurantNotFound
			}
			if err != nil {
				return fmt.Errorf("find managed restaurant: %w", err)
			}
			restaurantID = rs.ID
			return nil
		},
		check: func(o model.Order) error {
			// other restaurants' orders are invisible to a manager
			if o.RestaurantID != restaurantID {
				return errOrderNotFound
			}
			return nil
		},
	})
}

type transitionRequest struct {
	actor   model.Identity
	orderID int64
	to      model.OrderStatus

	// courier_id IS NULL guard, courier_id set to the actor
	claim bool
	// courier_id = actor guard
	ownCourier bool

	prepare func(ctx context.Context, r repo.TxRepos) error
	check   func(o model.Order) error
}

// transition runs one compare-and-set status change with its history row.
func (u *LifecycleUsecase) transition(ctx context.Context, req transitionRequest) (OrderOutput, error) {
	if req.orderID <= 0 {
		return OrderOutput{}, ErrInvalidOrderID
	}
	if !model.CanRequest(req.actor.Role, req.to) {
		return OrderOutput{}, errInvalidStatus
	}

	var from model.OrderStatus

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if req.prepare != nil {
			if err := req.prepare(ctx, r); err != nil {
				return err
			}
		}

		o, err := u.loadChecked(ctx, r, req)
		if err != nil {
			return err
		}

		next, err := model.Transition(o.Status, req.to, req.actor.Role)
		if err != nil {
			return transitionError(err)
		}

		upd := repo.StatusUpdate{OrderID: o.ID, From: o.Status, To: next}
		if req.claim {
			upd.ExpectUnclaimed = true
			upd.SetCourierID = &req.actor.UserID
		}
		if req.ownCourier {
			upd.ExpectCourierID = &req.actor.UserID
		}

		ok, err := r.Orders().CompareAndSetStatus(ctx, upd)
		if err != nil {
			return fmt.Errorf("update order status: %w", err)
		}
		if !ok {
			return u.explainLostRace(ctx, r, req)
		}

		if err := r.History().Append(ctx, &model.OrderStatusHistory{
			OrderID:   o.ID,
			Status:    next,
			ChangedBy: req.actor.UserID,
		}); err != nil {
			return fmt.Errorf("append history: %w", err)
		}

		from = o.Status
		return nil
	})
	if err != nil {
		return OrderOutput{}, err
	}

	pctx := context.WithoutCancel(ctx)

	o, err := u.orders.FindJoinedByID(pctx, req.orderID)
	if err != nil {
		return OrderOutput{}, fmt.Errorf("read back order %d: %w", req.orderID, err)
	}

	u.publish(pctx, notifier.EventOrderStatusUpdated, o)
	u.log.WithFields(logrus.Fields{
		"order_id": o.ID,
		"from":     from,
		"to":       o.Status,
		"actor":    req.actor.UserID,
		"role":     req.actor.Role,
	}).Info("order status changed")

	return toOrderOutput(o, false), nil
}

func (u *LifecycleUsecase) loadChecked(ctx context.Context, r repo.TxRepos, req transitionRequest) (model.Order, error) {
	o, err := r.Orders().FindByID(ctx, req.orderID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Order{}, errOrderNotFound
	}
	if err != nil {
		return model.Order{}, fmt.Errorf("find order: %w", err)
	}
	if req.check != nil {
		if err := req.check(o); err != nil {
			return model.Order{}, err
		}
	}
	return o, nil
}

// explainLostRace re-reads the row another writer changed and reports why
// this request no longer applies.
func (u *LifecycleUsecase) explainLostRace(ctx context.Context, r repo.TxRepos, req transitionRequest) error {
	o, err := u.loadChecked(ctx, r, req)
	if err != nil {
		return err
	}
	if _, err := model.Transition(o.Status, req.to, req.actor.Role); err != nil {
		return transitionError(err)
	}
	return NewHTTPError(http.StatusBadRequest, "Order status changed concurrently")
}

// publish never fails the request; the change is already committed.
func (u *LifecycleUsecase) publish(ctx context.Context, name string, o model.Order) {
	ev := notifier.Event{Name: name, Order: toOrderOutput(o, false)}
	if err := u.publisher.Publish(ctx, ev); err != nil {
		u.log.WithError(err).WithFields(logrus.Fields{"event": name, "order_id": o.ID}).Error("publish order event")
	}
}
