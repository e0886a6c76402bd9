package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"foodorder/internal/config"
	"foodorder/internal/domain/model"
	"foodorder/internal/handler"
	"foodorder/internal/notifier"
	"foodorder/internal/repository/repotest"
	"foodorder/internal/server"
	"foodorder/internal/usecase"
	auth "foodorder/internal/usecase/auth_usecase"

	"github.com/golang-jwt/jwt/v4"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "handler-test-secret"

const (
	customerID int64 = 1
	cookID     int64 = 2
	courierAID int64 = 3
	courierBID int64 = 4
	managerID  int64 = 5
	adminID    int64 = 6
)

type fixture struct {
	e     *echo.Echo
	store *repotest.Store
	hub   *notifier.Hub
	hook  *logtest.Hook
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	s := repotest.NewStore()
	s.AddUser(customerID, "carol", model.RoleCustomer)
	s.AddUser(cookID, "chef", model.RoleCook)
	s.AddUser(courierAID, "ann", model.RoleCourier)
	s.AddUser(courierBID, "bob", model.RoleCourier)
	s.AddUser(managerID, "max", model.RoleManager)
	s.AddUser(adminID, "root", model.RoleSuperAdmin)
	mgr := managerID
	s.AddRestaurant(1, &mgr, true)
	s.AddMenuItem(10, 1, "15.00", true)
	s.AddMenuItem(11, 1, "5.00", true)

	log, hook := logtest.NewNullLogger()
	hub := notifier.NewHub(16, log)
	t.Cleanup(hub.Close)

	lifecycle := usecase.NewLifecycleUsecase(s, s.Orders(), hub, log)
	queries := usecase.NewOrderQueryUsecase(s.Orders(), s.History(), s.Restaurants())
	registerUC := auth.NewRegisterUserUsecase(s.Users(), auth.NewBcryptPasswordHasher(bcrypt.MinCost))
	loginUC := auth.NewLoginUsecase(s.Users(), auth.NewBcryptPasswordVerifier(), auth.NewJWTIssuer(testSecret, time.Hour), auth.RealClock{})

	cfg := config.Config{GoEnv: "dev", JWTSecret: testSecret}
	e := server.New(cfg, log)
	server.RegisterRoutes(e, testSecret, s.Users(), server.Handlers{
		Health: handler.NewHealthHandler(nil),
		Auth:   handler.NewAuthHandler(registerUC, loginUC),
		WS:     handler.NewWSHandler(hub, "", log),
		Orders: handler.NewOrderHandler(lifecycle, queries),
		Staff:  handler.NewStaffHandler(lifecycle, queries),
	})

	return &fixture{e: e, store: s, hub: hub, hook: hook}
}

func token(t *testing.T, userID int64, role model.Role) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":  userID,
		"role": string(role),
		"tv":   0,
		"iat":  time.Now().Unix(),
		"exp":  time.Now().Add(time.Hour).Unix(),
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return s
}

func (f *fixture) do(t *testing.T, method, path, bearer string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if bearer != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+bearer)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func errorOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[handler.ErrorResponse](t, rec).Error
}

var orderBody = map[string]interface{}{
	"restaurantId": 1,
	"items":        []map[string]interface{}{{"menuItemId": 10, "quantity": 3}},
	"address":      "1 Main St",
	"phone":        "555-0100",
}

func (f *fixture) createOrder(t *testing.T) usecase.OrderOutput {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/orders", token(t, customerID, model.RoleCustomer), orderBody, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[usecase.OrderOutput](t, rec)
}

// =====================
// plumbing
// =====================

func TestHealth(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/health", "", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

type downDB struct{}

func (downDB) PingContext(ctx context.Context) error { return errors.New("connection refused") }

func TestHealth_DatabaseDown(t *testing.T) {
	e := echo.New()
	handler.NewHealthHandler(downDB{}).RegisterRoutes(e)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestUnknownRouteRendersErrorJSON(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/nope", "", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Not Found", errorOf(t, rec))
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
}

func TestHTTPErrorHandler_InternalErrors(t *testing.T) {
	tests := []struct {
		name        string
		dev         bool
		wantDetails string
	}{
		{"dev exposes details", true, "boom"},
		{"prod hides details", false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, hook := logtest.NewNullLogger()
			e := echo.New()
			e.HTTPErrorHandler = handler.NewHTTPErrorHandler(tt.dev, log)
			e.GET("/x", func(c echo.Context) error { return errors.New("boom") })

			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))

			assert.Equal(t, http.StatusInternalServerError, rec.Code)
			body := decode[handler.ErrorResponse](t, rec)
			assert.Equal(t, "Internal server error", body.Error)
			assert.Equal(t, tt.wantDetails, body.Details)
			require.NotNil(t, hook.LastEntry())
			assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
		})
	}
}

// =====================
// auth
// =====================

func TestRegisterLoginAndUseToken(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"email": "dana@example.com", "password": "long-enough-pw", "name": "Dana",
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"role":"CUSTOMER"`)
	assert.NotContains(t, rec.Body.String(), "password")

	rec = f.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"email": "dana@example.com", "password": "long-enough-pw", "name": "Dana",
	}, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = f.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"email": "dana@example.com", "password": "wrong-password",
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid credentials", errorOf(t, rec))

	rec = f.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"email": "dana@example.com", "password": "long-enough-pw",
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	login := decode[auth.LoginOutput](t, rec)
	require.NotEmpty(t, login.Token.AccessToken)

	rec = f.do(t, http.MethodGet, "/orders", login.Token.AccessToken, nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestRegister_Validation(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"email": "not-an-email", "password": "long-enough-pw", "name": "X",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid email", errorOf(t, rec))

	rec = f.do(t, http.MethodPost, "/auth/register", "", `{"email":`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid request body", errorOf(t, rec))
}

// =====================
// orders
// =====================

func TestCreateOrder(t *testing.T) {
	f := newFixture(t)

	out := f.createOrder(t)
	assert.Equal(t, "PENDING", out.Status)
	assert.Equal(t, "45.00", out.TotalPrice)
	require.Len(t, out.Items, 1)
	require.NotNil(t, out.Items[0].MenuItem)
	assert.Equal(t, int64(10), out.Items[0].MenuItem.ID)
}

func TestCreateOrder_IdempotencyKeyHeader(t *testing.T) {
	f := newFixture(t)
	tok := token(t, customerID, model.RoleCustomer)
	hdr := map[string]string{"X-Idempotency-Key": "cart-42"}

	first := f.do(t, http.MethodPost, "/orders", tok, orderBody, hdr)
	require.Equal(t, http.StatusCreated, first.Code)
	second := f.do(t, http.MethodPost, "/orders", tok, orderBody, hdr)
	require.Equal(t, http.StatusOK, second.Code)

	assert.Equal(t, decode[usecase.OrderOutput](t, first).ID, decode[usecase.OrderOutput](t, second).ID)
	assert.Equal(t, 1, f.store.OrderCount())
}

func TestCreateOrder_Rejections(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name       string
		bearer     string
		body       interface{}
		wantStatus int
		wantError  string
	}{
		{"no token", "", orderBody, http.StatusUnauthorized, "No token provided"},
		{"bad token", "garbage", orderBody, http.StatusUnauthorized, "Invalid token"},
		{"cook cannot order", token(t, cookID, model.RoleCook), orderBody, http.StatusForbidden, "Insufficient permissions"},
		{"malformed body", token(t, customerID, model.RoleCustomer), `{"restaurantId":`, http.StatusBadRequest, "Invalid request body"},
		{"missing phone", token(t, customerID, model.RoleCustomer), map[string]interface{}{
			"restaurantId": 1,
			"items":        []map[string]interface{}{{"menuItemId": 10, "quantity": 1}},
			"address":      "1 Main St",
		}, http.StatusBadRequest, "Address and phone are required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/orders", tt.bearer, tt.body, nil)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantError, errorOf(t, rec))
		})
	}
	assert.Equal(t, 0, f.store.OrderCount())
}

func TestStaleTokenVersionIsRejected(t *testing.T) {
	f := newFixture(t)

	claims := jwt.MapClaims{"sub": customerID, "role": "CUSTOMER", "tv": 5, "exp": time.Now().Add(time.Hour).Unix()}
	stale, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	rec := f.do(t, http.MethodGet, "/orders", stale, nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestOrderLifecycleOverHTTP(t *testing.T) {
	f := newFixture(t)
	o := f.createOrder(t)

	cookTok := token(t, cookID, model.RoleCook)
	courierA := token(t, courierAID, model.RoleCourier)
	courierB := token(t, courierBID, model.RoleCourier)
	statusPath := func(role string) string { return fmt.Sprintf("/%s/orders/%d/status", role, o.ID) }

	rec := f.do(t, http.MethodGet, "/cook/orders", cookTok, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]usecase.OrderOutput](t, rec), "PENDING is not in the kitchen queue")

	rec = f.do(t, http.MethodPut, statusPath("cook"), cookTok, map[string]string{"status": "DELIVERED"}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid status", errorOf(t, rec))

	for _, st := range []string{"PREPARING", "READY"} {
		rec = f.do(t, http.MethodPut, statusPath("cook"), cookTok, map[string]string{"status": st}, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, st, decode[usecase.OrderOutput](t, rec).Status)
	}

	rec = f.do(t, http.MethodGet, "/courier/orders", courierA, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, decode[[]usecase.OrderOutput](t, rec), 1)

	rec = f.do(t, http.MethodPost, fmt.Sprintf("/courier/orders/%d/take", o.ID), courierA, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	taken := decode[usecase.OrderOutput](t, rec)
	require.NotNil(t, taken.CourierID)
	assert.Equal(t, courierAID, *taken.CourierID)

	rec = f.do(t, http.MethodPost, fmt.Sprintf("/courier/orders/%d/take", o.ID), courierB, nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Order already taken", errorOf(t, rec))

	rec = f.do(t, http.MethodPut, statusPath("courier"), courierB, map[string]string{"status": "DELIVERING"}, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Not your order", errorOf(t, rec))

	for _, st := range []string{"DELIVERING", "DELIVERED"} {
		rec = f.do(t, http.MethodPut, statusPath("courier"), courierA, map[string]string{"status": st}, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}

	rec = f.do(t, http.MethodGet, fmt.Sprintf("/orders/%d/history", o.ID), token(t, customerID, model.RoleCustomer), nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var statuses []string
	for _, h := range decode[[]usecase.StatusHistoryOutput](t, rec) {
		statuses = append(statuses, h.Status)
	}
	assert.Equal(t, []string{"PENDING", "PREPARING", "READY", "PICKED_UP", "DELIVERING", "DELIVERED"}, statuses)

	rec = f.do(t, http.MethodGet, fmt.Sprintf("/orders/%d", o.ID), courierA, nil, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Access denied", errorOf(t, rec))
}

func TestManagerConfirmAndAdminView(t *testing.T) {
	f := newFixture(t)
	o := f.createOrder(t)

	rec := f.do(t, http.MethodPut, fmt.Sprintf("/manager/orders/%d/status", o.ID), token(t, managerID, model.RoleManager),
		map[string]string{"status": "CONFIRMED"}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "CONFIRMED", decode[usecase.OrderOutput](t, rec).Status)

	rec = f.do(t, http.MethodGet, "/manager/orders", token(t, managerID, model.RoleManager), nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]usecase.OrderOutput](t, rec)
	require.Len(t, list, 1)
	require.NotNil(t, list[0].Customer)
	assert.Equal(t, "carol", list[0].Customer.Name)

	rec = f.do(t, http.MethodGet, "/cook/orders", token(t, cookID, model.RoleCook), nil, nil)
	require.Len(t, decode[[]usecase.OrderOutput](t, rec), 1)

	rec = f.do(t, http.MethodGet, "/admin/orders", token(t, adminID, model.RoleSuperAdmin), nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]usecase.OrderOutput](t, rec), 1)

	rec = f.do(t, http.MethodGet, "/admin/orders", token(t, managerID, model.RoleManager), nil, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestInvalidOrderIDParam(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPut, "/cook/orders/abc/status", token(t, cookID, model.RoleCook), map[string]string{"status": "READY"}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid order id", errorOf(t, rec))

	rec = f.do(t, http.MethodGet, "/orders/0", token(t, customerID, model.RoleCustomer), nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid order id", errorOf(t, rec))

	// the handler and the usecases reject bad ids with the same error
	he, ok := usecase.AsHTTPError(usecase.ErrInvalidOrderID)
	require.True(t, ok)
	assert.Equal(t, he.Message, errorOf(t, rec))
	assert.Equal(t, he.Status, rec.Code)
}

// =====================
// websocket
// =====================

type wsFrame struct {
	Event string              `json:"event"`
	Order usecase.OrderOutput `json:"order"`
}

func dialWS(t *testing.T, srv *httptest.Server, header http.Header) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	return websocket.DefaultDialer.Dial(url, header)
}

func TestWebSocketReceivesOrderEvents(t *testing.T) {
	f := newFixture(t)
	srv := httptest.NewServer(f.e)
	defer srv.Close()

	conn, _, err := dialWS(t, srv, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return f.hub.Len() == 1 }, 2*time.Second, 10*time.Millisecond)

	o := f.createOrder(t)
	rec := f.do(t, http.MethodPut, fmt.Sprintf("/cook/orders/%d/status", o.ID), token(t, cookID, model.RoleCook),
		map[string]string{"status": "PREPARING"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var first wsFrame
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, notifier.EventNewOrder, first.Event)
	assert.Equal(t, o.ID, first.Order.ID)
	assert.Nil(t, first.Order.Customer)

	var second wsFrame
	require.NoError(t, conn.ReadJSON(&second))
	assert.Equal(t, notifier.EventOrderStatusUpdated, second.Event)
	assert.Equal(t, "PREPARING", second.Order.Status)

	// inbound chatter is ignored, the stream stays open
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("hello")))

	conn.Close()
	require.Eventually(t, func() bool { return f.hub.Len() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestWebSocketRejectsForeignOrigin(t *testing.T) {
	log, _ := logtest.NewNullLogger()
	hub := notifier.NewHub(4, log)
	defer hub.Close()

	e := echo.New()
	handler.NewWSHandler(hub, "https://app.example", log).RegisterRoutes(e)
	srv := httptest.NewServer(e)
	defer srv.Close()

	_, resp, err := dialWS(t, srv, http.Header{"Origin": []string{"https://evil.example"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, 0, hub.Len())

	conn, _, err := dialWS(t, srv, http.Header{"Origin": []string{"https://app.example"}})
	require.NoError(t, err)
	conn.Close()
}
