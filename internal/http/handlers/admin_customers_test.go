package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/pharmastic-ai-platform/internal/customers"
	"github.com/wolfman30/pharmastic-ai-platform/internal/http/middleware"
	"github.com/wolfman30/pharmastic-ai-platform/internal/orders"
	"github.com/wolfman30/pharmastic-ai-platform/internal/session"
	"github.com/wolfman30/pharmastic-ai-platform/pkg/logging"
)

func newAdminRouter(t *testing.T) (http.Handler, *customers.MemoryStore, *orders.MemoryStore, *session.MemoryStore) {
	t.Helper()
	profiles := customers.NewMemoryStore()
	orderStore := orders.NewMemoryStore()
	sessions := session.NewMemoryStore()
	h := NewAdminCustomersHandler(profiles, orderStore, sessions, nil)

	r := chi.NewRouter()
	r.Get("/admin/customers/{userID}", h.GetCustomer)
	r.Get("/admin/customers/{userID}/orders", h.ListCustomerOrders)
	r.Get("/admin/orders/{orderID}", h.GetOrder)
	r.Get("/admin/sessions/{userID}", h.GetSession)
	return r, profiles, orderStore, sessions
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestGetCustomer(t *testing.T) {
	h, profiles, _, _ := newAdminRouter(t)
	ctx := context.Background()
	require.NoError(t, profiles.Create(ctx, customers.Profile{
		UserID: "919876543210", Name: "Asha", Gender: "Female", Age: 34, PreferredLanguage: "english",
	}))

	rec := get(t, h, "/admin/customers/919876543210")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp CustomerResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Asha", resp.Name)
	assert.Equal(t, 34, resp.Age)
	assert.NotNil(t, resp.MedicationHistory)
}

func TestGetCustomerNotFound(t *testing.T) {
	h, _, _, _ := newAdminRouter(t)
	rec := get(t, h, "/admin/customers/911111111111")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetCustomerRejectsNonNumericID(t *testing.T) {
	h, _, _, _ := newAdminRouter(t)
	rec := get(t, h, "/admin/customers/asha")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListCustomerOrders(t *testing.T) {
	h, _, orderStore, _ := newAdminRouter(t)
	ctx := context.Background()
	for _, id := range []string{"ORD-1", "ORD-2", "ORD-3"} {
		_, err := orderStore.Append(ctx, orders.Order{
			ID:         id,
			CustomerID: "919876543210",
			Items:      []orders.LineItem{{Medicine: "Paracetamol", Quantity: 2, Unit: "strips", UnitPrice: 40}},
			Status:     orders.StatusConfirmed,
		})
		require.NoError(t, err)
		time.Sleep(time.Millisecond)
	}

	rec := get(t, h, "/admin/customers/919876543210/orders?limit=2")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp OrdersResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Orders, 2)
	assert.Equal(t, int64(80), resp.Orders[0].Total)

	rec = get(t, h, "/admin/customers/919876543210/orders?limit=zero")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListCustomerOrdersEmpty(t *testing.T) {
	h, _, _, _ := newAdminRouter(t)
	rec := get(t, h, "/admin/customers/919876543210/orders")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"user_id":"919876543210","orders":[]}`, rec.Body.String())
}

func TestGetOrder(t *testing.T) {
	h, _, orderStore, _ := newAdminRouter(t)
	_, err := orderStore.Append(context.Background(), orders.Order{
		ID:         "ORD-42",
		CustomerID: "919876543210",
		Items:      []orders.LineItem{{Medicine: "Cetirizine", Quantity: 1, Unit: "box", UnitPrice: 150}},
		Status:     orders.StatusConfirmed,
	})
	require.NoError(t, err)

	rec := get(t, h, "/admin/orders/ORD-42")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"total_price":150`)

	rec = get(t, h, "/admin/orders/ORD-missing")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetSession(t *testing.T) {
	h, _, _, sessions := newAdminRouter(t)
	require.NoError(t, sessions.Set(context.Background(), session.Session{
		UserID: "919876543210",
		State:  session.MainMenu{},
	}))

	rec := get(t, h, "/admin/sessions/919876543210")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp SessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, string(session.StepMainMenu), resp.Step)
}

func TestNewAdminCustomersHandlerPanicsWithoutStores(t *testing.T) {
	assert.Panics(t, func() { NewAdminCustomersHandler(nil, orders.NewMemoryStore(), nil, nil) })
}

func TestCustomerLookupIsAudited(t *testing.T) {
	var buf bytes.Buffer
	profiles := customers.NewMemoryStore()
	h := NewAdminCustomersHandler(profiles, orders.NewMemoryStore(), nil, logging.NewWithWriter(&buf, "info"))
	require.NoError(t, profiles.Create(context.Background(), customers.Profile{UserID: "919876543210", Name: "Asha"}))

	r := chi.NewRouter()
	r.Use(middleware.AdminJWT("secret"))
	r.Get("/admin/customers/{userID}", h.GetCustomer)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, middleware.AdminClaims{
		Role: middleware.RolePharmacist,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "asha@pharmastic.in",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	})
	signed, err := token.SignedString([]byte("secret"))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/admin/customers/919876543210", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	out := buf.String()
	assert.Contains(t, out, "customer data accessed")
	assert.Contains(t, out, "asha@pharmastic.in")
	assert.Contains(t, out, "view_customer")
}
