package handlers

import (
	"log/slog"
	"net/http"

	"github.com/alextreichler/vendormarket/internal/models"
)

func (h *APIHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.Store.ListOrders(UserID(r))
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

func (h *APIHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.Store.GetOrder(UserID(r), r.PathValue("id"))
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// ListOrderItems returns raw item rows; names are resolved by the client.
func (h *APIHandler) ListOrderItems(w http.ResponseWriter, r *http.Request) {
	orderID := r.URL.Query().Get("order_id")
	if orderID == "" {
		writeError(w, http.StatusBadRequest, "order_id is required.")
		return
	}
	items, err := h.Store.GetOrderItems(UserID(r), orderID)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// PlaceOrder checks out the caller's cart.
func (h *APIHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var in struct {
		ShippingAddressID string `json:"shipping_address_id"`
	}
	if !decodeJSON(w, r, &in) {
		return
	}
	if in.ShippingAddressID == "" {
		writeError(w, http.StatusBadRequest, "A shipping address is required.")
		return
	}
	order, err := h.Store.CreateOrderFromCart(UserID(r), in.ShippingAddressID)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	slog.Info("Order placed", "order_id", order.ID, "user_id", UserID(r), "total", order.Total)
	writeJSON(w, http.StatusCreated, order)
}

func (h *APIHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.Store.ListProducts(models.CatalogShop)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

func (h *APIHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	h.writeProduct(w, r, models.CatalogShop)
}

func (h *APIHandler) GetSimProduct(w http.ResponseWriter, r *http.Request) {
	h.writeProduct(w, r, models.CatalogSim)
}

func (h *APIHandler) writeProduct(w http.ResponseWriter, r *http.Request, c models.Catalog) {
	p, err := h.Store.GetProduct(c, r.PathValue("id"))
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
