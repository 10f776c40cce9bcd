package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/sessions"

	"github.com/alextreichler/vendormarket/internal/auth"
	"github.com/alextreichler/vendormarket/internal/inventory"
	"github.com/alextreichler/vendormarket/internal/store"
)

const sessionName = "shopper-session"

// APIHandler serves the JSON cart, address, order and catalog service.
type APIHandler struct {
	Store        *store.Store
	Auth         *auth.Service
	SessionStore *sessions.CookieStore
}

// Register mounts every route under /api/. loginLimiter may be nil.
func (h *APIHandler) Register(mux *http.ServeMux, loginLimiter *RateLimiter) {
	login := h.Login
	if loginLimiter != nil {
		login = loginLimiter.Middleware(login)
	}

	// Public Routes
	mux.HandleFunc("POST /api/login", login)
	mux.HandleFunc("POST /api/logout", h.Logout)
	mux.HandleFunc("GET /api/csrf", h.CSRFToken)
	mux.HandleFunc("GET /api/products", h.ListProducts)
	mux.HandleFunc("GET /api/products/{id}", h.GetProduct)
	mux.HandleFunc("GET /api/sim-products/{id}", h.GetSimProduct)

	// Protected Routes
	mux.HandleFunc("GET /api/cart", h.RequireUser(h.GetCart))
	mux.HandleFunc("POST /api/cart", h.RequireUser(h.AddCartItem))
	mux.HandleFunc("PATCH /api/cart", h.RequireUser(h.UpdateCartItem))
	mux.HandleFunc("DELETE /api/cart", h.RequireUser(h.DeleteCartItems))

	mux.HandleFunc("GET /api/addresses", h.RequireUser(h.ListAddresses))
	mux.HandleFunc("POST /api/addresses", h.RequireUser(h.CreateAddress))
	mux.HandleFunc("GET /api/addresses/{id}", h.RequireUser(h.GetAddress))
	mux.HandleFunc("PATCH /api/addresses/{id}", h.RequireUser(h.UpdateAddress))
	mux.HandleFunc("DELETE /api/addresses/{id}", h.RequireUser(h.DeleteAddress))

	mux.HandleFunc("GET /api/orders", h.RequireUser(h.ListOrders))
	mux.HandleFunc("POST /api/orders", h.RequireUser(h.PlaceOrder))
	mux.HandleFunc("GET /api/orders/{id}", h.RequireUser(h.GetOrder))
	mux.HandleFunc("GET /api/order-items", h.RequireUser(h.ListOrderItems))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return false
	}
	return true
}

// writeStoreError maps store failures onto status codes. Unknown errors are
// logged and hidden.
func writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	var exceeded *inventory.ExceededError
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "Not found.")
	case errors.As(err, &exceeded):
		writeError(w, http.StatusConflict, exceeded.Error())
	case errors.Is(err, store.ErrEmptyCart):
		writeError(w, http.StatusBadRequest, "Your cart is empty.")
	default:
		slog.Error("Store operation failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal Server Error")
	}
}
