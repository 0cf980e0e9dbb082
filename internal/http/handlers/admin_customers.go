package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/pharmastic-ai-platform/internal/conversation"
	"github.com/wolfman30/pharmastic-ai-platform/internal/customers"
	"github.com/wolfman30/pharmastic-ai-platform/internal/http/middleware"
	"github.com/wolfman30/pharmastic-ai-platform/internal/orders"
	"github.com/wolfman30/pharmastic-ai-platform/internal/session"
	"github.com/wolfman30/pharmastic-ai-platform/pkg/logging"
)

const maxOrdersPageSize = 50

// AdminCustomersHandler exposes read-only lookups for pharmacy staff.
type AdminCustomersHandler struct {
	profiles customers.Store
	orders   orders.Store
	sessions session.Store
	logger   *logging.Logger
}

// NewAdminCustomersHandler builds the handler. sessions may be nil, in which
// case the session lookup responds 404.
func NewAdminCustomersHandler(profiles customers.Store, orderStore orders.Store, sessions session.Store, logger *logging.Logger) *AdminCustomersHandler {
	if profiles == nil || orderStore == nil {
		panic("handlers: admin customers handler requires profile and order stores")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &AdminCustomersHandler{
		profiles: profiles,
		orders:   orderStore,
		sessions: sessions,
		logger:   logger,
	}
}

// CustomerResponse is a profile as returned to admins.
type CustomerResponse struct {
	UserID            string                               `json:"user_id"`
	Name              string                               `json:"name"`
	Gender            string                               `json:"gender"`
	Age               int                                  `json:"age"`
	PreferredLanguage string                               `json:"preferred_language"`
	MedicationHistory map[string]customers.MedicationEntry `json:"medication_history"`
	RegisteredAt      string                               `json:"registered_at,omitempty"`
}

// OrdersResponse lists a customer's recent orders, newest first.
type OrdersResponse struct {
	UserID string         `json:"user_id"`
	Orders []orders.Order `json:"orders"`
}

// SessionResponse is the stored conversation state for a user.
type SessionResponse struct {
	UserID    string `json:"user_id"`
	Step      string `json:"step"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

// GetCustomer handles GET /admin/customers/{userID}.
func (h *AdminCustomersHandler) GetCustomer(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}
	profile, err := h.profiles.Find(r.Context(), userID)
	if err != nil {
		h.logger.Error("admin: find customer failed", "user_id", userID, "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	if profile == nil {
		jsonError(w, "customer not found", http.StatusNotFound)
		return
	}
	h.audit(r, "view_customer", userID)

	resp := CustomerResponse{
		UserID:            profile.UserID,
		Name:              profile.Name,
		Gender:            profile.Gender,
		Age:               profile.Age,
		PreferredLanguage: profile.PreferredLanguage,
		MedicationHistory: profile.MedicationHistory,
	}
	if resp.MedicationHistory == nil {
		resp.MedicationHistory = map[string]customers.MedicationEntry{}
	}
	if !profile.RegisteredAt.IsZero() {
		resp.RegisteredAt = profile.RegisteredAt.UTC().Format(time.RFC3339)
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListCustomerOrders handles GET /admin/customers/{userID}/orders?limit=N.
func (h *AdminCustomersHandler) ListCustomerOrders(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}
	h.audit(r, "list_orders", userID)
	limit := orders.DefaultRecentLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			jsonError(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = min(n, maxOrdersPageSize)
	}

	list, err := h.orders.RecentByCustomer(r.Context(), userID, limit)
	if err != nil {
		h.logger.Error("admin: list orders failed", "user_id", userID, "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []orders.Order{}
	}
	writeJSON(w, http.StatusOK, OrdersResponse{UserID: userID, Orders: list})
}

// GetOrder handles GET /admin/orders/{orderID}.
func (h *AdminCustomersHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")
	if orderID == "" {
		jsonError(w, "missing order id", http.StatusBadRequest)
		return
	}
	order, err := h.orders.Get(r.Context(), orderID)
	if errors.Is(err, orders.ErrNotFound) {
		jsonError(w, "order not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("admin: get order failed", "order_id", orderID, "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// audit records which staff member read a customer's data.
func (h *AdminCustomersHandler) audit(r *http.Request, action, userID string) {
	staff, role := "unknown", ""
	if claims, ok := middleware.AdminClaimsFromContext(r.Context()); ok {
		staff, role = claims.Subject, claims.Role
	}
	h.logger.Info("admin: customer data accessed", "action", action, "user_id", userID, "staff", staff, "role", role)
}

// GetSession handles GET /admin/sessions/{userID}.
func (h *AdminCustomersHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}
	if h.sessions == nil {
		jsonError(w, "session lookup unavailable", http.StatusNotFound)
		return
	}
	sess, err := h.sessions.Get(r.Context(), userID)
	if errors.Is(err, session.ErrCorruptRecord) {
		jsonError(w, "stored session is corrupt", http.StatusConflict)
		return
	}
	if err != nil {
		h.logger.Error("admin: get session failed", "user_id", userID, "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	resp := SessionResponse{UserID: userID, Step: string(sess.Step())}
	if !sess.UpdatedAt.IsZero() {
		resp.UpdatedAt = sess.UpdatedAt.UTC().Format(time.RFC3339)
	}
	writeJSON(w, http.StatusOK, resp)
}

func userIDParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := conversation.NormalizeUserID(chi.URLParam(r, "userID"))
	if userID == "" {
		jsonError(w, "invalid user id", http.StatusBadRequest)
		return "", false
	}
	return userID, true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func jsonError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}
