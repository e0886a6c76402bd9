package usecase

import (
	"context"
	"strings"
	"testing"

	"foodorder/internal/domain/model"
	"foodorder/internal/notifier"
	repo "foodorder/internal/repository"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/mock"
)

// =====================
// TxManager / TxRepos mocks
// =====================

// TxManagerMock runs fn against a fixed set of repos.
type TxManagerMock struct {
	mock.Mock
	Repos repo.TxRepos
}

func (m *TxManagerMock) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	m.Called(ctx)
	return fn(m.Repos)
}

type TxReposMock struct {
	orders      repo.OrderRepository
	orderItems  repo.OrderItemRepository
	history     repo.OrderStatusHistoryRepository
	menuItems   repo.MenuItemRepository
	restaurants repo.RestaurantRepository
}

func (r *TxReposMock) Orders() repo.OrderRepository               { return r.orders }
func (r *TxReposMock) OrderItems() repo.OrderItemRepository       { return r.orderItems }
func (r *TxReposMock) History() repo.OrderStatusHistoryRepository { return r.history }
func (r *TxReposMock) MenuItems() repo.MenuItemRepository         { return r.menuItems }
func (r *TxReposMock) Restaurants() repo.RestaurantRepository     { return r.restaurants }

// =====================
// Repository mocks
// =====================

type OrderRepoMock struct{ mock.Mock }

func (m *OrderRepoMock) FindByID(ctx context.Context, id int64) (model.Order, error) {
	args := m.Called(ctx, id)
	o, _ := args.Get(0).(model.Order)
	return o, args.Error(1)
}

func (m *OrderRepoMock) FindJoinedByID(ctx context.Context, id int64) (model.Order, error) {
	args := m.Called(ctx, id)
	o, _ := args.Get(0).(model.Order)
	return o, args.Error(1)
}

func (m *OrderRepoMock) FindByIdempotencyKey(ctx context.Context, userID int64, key string) (model.Order, bool, error) {
	args := m.Called(ctx, userID, key)
	o, _ := args.Get(0).(model.Order)
	return o, args.Bool(1), args.Error(2)
}

func (m *OrderRepoMock) Create(ctx context.Context, order *model.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *OrderRepoMock) Query(ctx context.Context, q repo.OrderQuery) ([]model.Order, error) {
	args := m.Called(ctx, q)
	out, _ := args.Get(0).([]model.Order)
	return out, args.Error(1)
}

func (m *OrderRepoMock) CompareAndSetStatus(ctx context.Context, u repo.StatusUpdate) (bool, error) {
	args := m.Called(ctx, u)
	return args.Bool(0), args.Error(1)
}

type OrderItemRepoMock struct{ mock.Mock }

func (m *OrderItemRepoMock) CreateBulk(ctx context.Context, orderID int64, items []model.OrderItem) error {
	args := m.Called(ctx, orderID, items)
	return args.Error(0)
}

type HistoryRepoMock struct{ mock.Mock }

func (m *HistoryRepoMock) Append(ctx context.Context, h *model.OrderStatusHistory) error {
	args := m.Called(ctx, h)
	return args.Error(0)
}

func (m *HistoryRepoMock) ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderStatusHistory, error) {
	args := m.Called(ctx, orderID)
	out, _ := args.Get(0).([]model.OrderStatusHistory)
	return out, args.Error(1)
}

type MenuItemRepoMock struct{ mock.Mock }

func (m *MenuItemRepoMock) FindByID(ctx context.Context, id int64) (model.MenuItem, error) {
	args := m.Called(ctx, id)
	mi, _ := args.Get(0).(model.MenuItem)
	return mi, args.Error(1)
}

type RestaurantRepoMock struct{ mock.Mock }

func (m *RestaurantRepoMock) FindByID(ctx context.Context, id int64) (model.Restaurant, error) {
	args := m.Called(ctx, id)
	rs, _ := args.Get(0).(model.Restaurant)
	return rs, args.Error(1)
}

func (m *RestaurantRepoMock) FindByManagerID(ctx context.Context, managerID int64) (model.Restaurant, error) {
	args := m.Called(ctx, managerID)
	rs, _ := args.Get(0).(model.Restaurant)
	return rs, args.Error(1)
}

type PublisherMock struct{ mock.Mock }

func (m *PublisherMock) Publish(ctx context.Context, ev notifier.Event) error {
	args := m.Called(ctx, ev)
	return args.Error(0)
}

// =====================
// helpers
// =====================

func nullLogger() (*logrus.Logger, *logtest.Hook) {
	return logtest.NewNullLogger()
}

func assertErrContains(t *testing.T, err error, sub string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error containing %q, got nil", sub)
	}
	if !strings.Contains(err.Error(), sub) {
		t.Fatalf("expected error containing %q, got %q", sub, err.Error())
	}
}

func assertHTTPError(t *testing.T, err error, status int, message string) {
	t.Helper()
	he, ok := AsHTTPError(err)
	if !ok {
		t.Fatalf("expected HTTPError %d %q, got %v", status, message, err)
	}
	if he.Status != status || he.Message != message {
		t.Fatalf("expected HTTPError %d %q, got %d %q", status, message, he.Status, he.Message)
	}
}

var (
	customer = model.Identity{UserID: 1, Role: model.RoleCustomer}
	cook     = model.Identity{UserID: 2, Role: model.RoleCook}
	courierA = model.Identity{UserID: 3, Role: model.RoleCourier}
	courierB = model.Identity{UserID: 4, Role: model.RoleCourier}
	manager  = model.Identity{UserID: 5, Role: model.RoleManager}
	admin    = model.Identity{UserID: 6, Role: model.RoleSuperAdmin}
)

func ptr[T any](v T) *T { return &v }
