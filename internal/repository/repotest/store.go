package repotest

import (
	"context"
	"sort"
	"sync"
	"time"

	"foodorder/internal/domain/model"
	"foodorder/internal/notifier"
	repo "foodorder/internal/repository"

	"github.com/shopspring/decimal"
)

// Store implements the repository interfaces in memory. It honours the
// single-row compare-and-set contract and rolls back a failed WithinTx.
type Store struct {
	mu          sync.Mutex
	nextID      int64
	orders      map[int64]model.Order
	items       map[int64][]model.OrderItem
	history     []model.OrderStatusHistory
	menu        map[int64]model.MenuItem
	restaurants map[int64]model.Restaurant
	users       map[int64]model.User
	clock       time.Time
}

func NewStore() *Store {
	return &Store{
		nextID:      1000,
		orders:      map[int64]model.Order{},
		items:       map[int64][]model.OrderItem{},
		menu:        map[int64]model.MenuItem{},
		restaurants: map[int64]model.Restaurant{},
		users:       map[int64]model.User{},
		clock:       time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
	}
}

// tick hands out strictly increasing timestamps. Caller holds mu.
func (s *Store) tick() time.Time {
	s.clock = s.clock.Add(time.Second)
	return s.clock
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

// reserve keeps generated ids clear of hand-seeded ones.
func (s *Store) reserve(id int64) {
	if id > s.nextID {
		s.nextID = id
	}
}

func (s *Store) AddUser(id int64, name string, role model.Role) {
	s.reserve(id)
	s.users[id] = model.User{ID: id, Name: name, Email: name + "@example.com", Role: role, IsActive: true, PasswordHash: "secret-hash"}
}

func (s *Store) AddRestaurant(id int64, managerID *int64, active bool) {
	s.reserve(id)
	s.restaurants[id] = model.Restaurant{ID: id, Name: "R", ManagerID: managerID, IsActive: active}
}

func (s *Store) AddMenuItem(id, restaurantID int64, price string, available bool) {
	s.reserve(id)
	s.menu[id] = model.MenuItem{ID: id, RestaurantID: restaurantID, Name: "dish", Price: decimal.RequireFromString(price), IsAvailable: available}
}

// AddOrder seeds an order directly in a given state.
func (s *Store) AddOrder(o model.Order) model.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o.ID == 0 {
		o.ID = s.id()
	}
	s.reserve(o.ID)
	o.CreatedAt = s.tick()
	o.UpdatedAt = o.CreatedAt
	s.orders[o.ID] = o
	return o
}

func (s *Store) Order(id int64) model.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orders[id]
}

func (s *Store) HistoryOf(orderID int64) []model.OrderStatusHistory {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.OrderStatusHistory
	for _, h := range s.history {
		if h.OrderID == orderID {
			out = append(out, h)
		}
	}
	return out
}

func (s *Store) OrderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders)
}

// ItemsOf returns the stored lines of an order.
func (s *Store) ItemsOf(orderID int64) []model.OrderItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.OrderItem, len(s.items[orderID]))
	copy(out, s.items[orderID])
	return out
}

func (s *Store) SetMenuPrice(id int64, price string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	mi := s.menu[id]
	mi.Price = decimal.RequireFromString(price)
	s.menu[id] = mi
}

// Repositories outside any transaction.

func (s *Store) Orders() repo.OrderRepository               { return memOrders{s: s} }
func (s *Store) History() repo.OrderStatusHistoryRepository { return memHistory{s: s} }
func (s *Store) Restaurants() repo.RestaurantRepository     { return memRestaurants{s: s} }
func (s *Store) MenuItems() repo.MenuItemRepository         { return memMenu{s: s} }
func (s *Store) Users() repo.UserRepository                 { return memUsers{s: s} }

var _ repo.TransactionManager = (*Store)(nil)

// ---- transaction ----

type memTx struct {
	s    *Store
	undo []func()
}

func (t *memTx) record(f func()) {
	if t != nil {
		t.undo = append(t.undo, f)
	}
}

func (s *Store) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	tx := &memTx{s: s}
	if err := fn(memTxRepos{s: s, tx: tx}); err != nil {
		s.mu.Lock()
		for i := len(tx.undo) - 1; i >= 0; i-- {
			tx.undo[i]()
		}
		s.mu.Unlock()
		return err
	}
	return nil
}

type memTxRepos struct {
	s  *Store
	tx *memTx
}

func (r memTxRepos) Orders() repo.OrderRepository               { return memOrders{s: r.s, tx: r.tx} }
func (r memTxRepos) OrderItems() repo.OrderItemRepository       { return memItems{s: r.s, tx: r.tx} }
func (r memTxRepos) History() repo.OrderStatusHistoryRepository { return memHistory{s: r.s, tx: r.tx} }
func (r memTxRepos) MenuItems() repo.MenuItemRepository         { return memMenu{s: r.s} }
func (r memTxRepos) Restaurants() repo.RestaurantRepository     { return memRestaurants{s: r.s} }

// ---- orders ----

type memOrders struct {
	s  *Store
	tx *memTx
}

func (m memOrders) FindByID(ctx context.Context, id int64) (model.Order, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	o, ok := m.s.orders[id]
	if !ok {
		return model.Order{}, repo.ErrNotFound
	}
	return o, nil
}

func (m memOrders) joined(o model.Order, withCustomer bool) model.Order {
	items := m.s.items[o.ID]
	o.Items = make([]model.OrderItem, len(items))
	for i, it := range items {
		mi := m.s.menu[it.MenuItemID]
		it.MenuItem = &mi
		o.Items[i] = it
	}
	if rs, ok := m.s.restaurants[o.RestaurantID]; ok {
		o.Restaurant = &rs
	}
	if u, ok := m.s.users[o.UserID]; ok && withCustomer {
		o.Customer = &model.User{ID: u.ID, Name: u.Name, Email: u.Email}
	}
	return o
}

func (m memOrders) FindJoinedByID(ctx context.Context, id int64) (model.Order, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	o, ok := m.s.orders[id]
	if !ok {
		return model.Order{}, repo.ErrNotFound
	}
	return m.joined(o, true), nil
}

func (m memOrders) FindByIdempotencyKey(ctx context.Context, userID int64, key string) (model.Order, bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, o := range m.s.orders {
		if o.UserID == userID && o.IdempotencyKey != nil && *o.IdempotencyKey == key {
			return o, true, nil
		}
	}
	return model.Order{}, false, nil
}

func (m memOrders) Create(ctx context.Context, order *model.Order) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if order.IdempotencyKey != nil {
		for _, o := range m.s.orders {
			if o.UserID == order.UserID && o.IdempotencyKey != nil && *o.IdempotencyKey == *order.IdempotencyKey {
				return repo.ErrConflict
			}
		}
	}
	order.ID = m.s.id()
	order.CreatedAt = m.s.tick()
	order.UpdatedAt = order.CreatedAt
	row := *order
	row.Items, row.Restaurant, row.Customer = nil, nil, nil
	m.s.orders[order.ID] = row

	id := order.ID
	m.tx.record(func() { delete(m.s.orders, id) })
	return nil
}

func (m memOrders) Query(ctx context.Context, q repo.OrderQuery) ([]model.Order, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	var out []model.Order
	for _, o := range m.s.orders {
		if q.UserID != nil && o.UserID != *q.UserID {
			continue
		}
		if q.RestaurantID != nil && o.RestaurantID != *q.RestaurantID {
			continue
		}
		if q.CourierID != nil && (o.CourierID == nil || *o.CourierID != *q.CourierID) {
			continue
		}
		if q.Unclaimed && o.CourierID != nil {
			continue
		}
		if len(q.Statuses) > 0 && !containsStatus(q.Statuses, o.Status) {
			continue
		}
		out = append(out, m.joined(o, q.WithCustomer))
	}

	sort.Slice(out, func(i, j int) bool {
		if q.Sort == repo.SortOldestFirst {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m memOrders) CompareAndSetStatus(ctx context.Context, u repo.StatusUpdate) (bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	o, ok := m.s.orders[u.OrderID]
	if !ok || o.Status != u.From {
		return false, nil
	}
	if u.ExpectUnclaimed && o.CourierID != nil {
		return false, nil
	}
	if u.ExpectCourierID != nil && !o.IsClaimedBy(*u.ExpectCourierID) {
		return false, nil
	}

	prev := o
	o.Status = u.To
	if u.SetCourierID != nil {
		c := *u.SetCourierID
		o.CourierID = &c
	}
	o.UpdatedAt = m.s.tick()
	m.s.orders[o.ID] = o
	m.tx.record(func() { m.s.orders[prev.ID] = prev })
	return true, nil
}

func containsStatus(list []model.OrderStatus, s model.OrderStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// ---- items / history / menu / restaurants ----

type memItems struct {
	s  *Store
	tx *memTx
}

func (m memItems) CreateBulk(ctx context.Context, orderID int64, items []model.OrderItem) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	rows := make([]model.OrderItem, len(items))
	for i, it := range items {
		it.ID = m.s.id()
		it.OrderID = orderID
		rows[i] = it
	}
	m.s.items[orderID] = rows
	m.tx.record(func() { delete(m.s.items, orderID) })
	return nil
}

type memHistory struct {
	s  *Store
	tx *memTx
}

func (m memHistory) Append(ctx context.Context, h *model.OrderStatusHistory) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	h.ID = m.s.id()
	h.CreatedAt = m.s.tick()
	m.s.history = append(m.s.history, *h)
	rowID := h.ID
	m.tx.record(func() { m.s.removeHistory(rowID) })
	return nil
}

// removeHistory drops one row, leaving rows of other transactions alone.
func (s *Store) removeHistory(id int64) {
	for i, h := range s.history {
		if h.ID == id {
			s.history = append(s.history[:i], s.history[i+1:]...)
			return
		}
	}
}

func (m memHistory) ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderStatusHistory, error) {
	return m.s.HistoryOf(orderID), nil
}

type memMenu struct{ s *Store }

func (m memMenu) FindByID(ctx context.Context, id int64) (model.MenuItem, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	mi, ok := m.s.menu[id]
	if !ok {
		return model.MenuItem{}, repo.ErrNotFound
	}
	return mi, nil
}

type memRestaurants struct{ s *Store }

func (m memRestaurants) FindByID(ctx context.Context, id int64) (model.Restaurant, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	rs, ok := m.s.restaurants[id]
	if !ok {
		return model.Restaurant{}, repo.ErrNotFound
	}
	return rs, nil
}

func (m memRestaurants) FindByManagerID(ctx context.Context, managerID int64) (model.Restaurant, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, rs := range m.s.restaurants {
		if rs.ManagerID != nil && *rs.ManagerID == managerID {
			return rs, nil
		}
	}
	return model.Restaurant{}, repo.ErrNotFound
}

type memUsers struct{ s *Store }

func (m memUsers) Create(ctx context.Context, user *model.User) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, u := range m.s.users {
		if u.Email == user.Email {
			return repo.ErrConflict
		}
	}
	user.ID = m.s.id()
	user.CreatedAt = m.s.tick()
	user.UpdatedAt = user.CreatedAt
	m.s.users[user.ID] = *user
	return nil
}

func (m memUsers) FindByID(ctx context.Context, id int64) (*model.User, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	u, ok := m.s.users[id]
	if !ok {
		return nil, repo.ErrUserNotFound
	}
	return &u, nil
}

func (m memUsers) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, u := range m.s.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, repo.ErrUserNotFound
}

// ---- publisher ----

// Recorder is a notifier.Publisher that keeps every event. Publish returns Err.
type Recorder struct {
	mu     sync.Mutex
	events []notifier.Event
	Err    error
}

func (p *Recorder) Publish(ctx context.Context, ev notifier.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.Err
}

func (p *Recorder) Events() []notifier.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]notifier.Event, len(p.events))
	copy(out, p.events)
	return out
}
