package handlers

import (
	"net/http"
)

func (h *APIHandler) writeCart(w http.ResponseWriter, r *http.Request, status int) {
	lines, err := h.Store.GetCart(UserID(r))
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, status, lines)
}

func (h *APIHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	h.writeCart(w, r, http.StatusOK)
}

// AddCartItem merges into the existing line for the product and returns the
// whole cart.
func (h *APIHandler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	var in struct {
		ProductID string `json:"product_id"`
		Quantity  int    `json:"quantity"`
	}
	if !decodeJSON(w, r, &in) {
		return
	}
	if in.ProductID == "" || in.Quantity <= 0 {
		writeError(w, http.StatusBadRequest, "A product and a positive quantity are required.")
		return
	}
	if err := h.Store.AddCartItem(UserID(r), in.ProductID, in.Quantity); err != nil {
		writeStoreError(w, r, err)
		return
	}
	h.writeCart(w, r, http.StatusOK)
}

func (h *APIHandler) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	var in struct {
		ID       string `json:"id"`
		Quantity int    `json:"quantity"`
	}
	if !decodeJSON(w, r, &in) {
		return
	}
	if in.ID == "" {
		writeError(w, http.StatusBadRequest, "A cart item id is required.")
		return
	}
	if err := h.Store.UpdateCartItem(UserID(r), in.ID, in.Quantity); err != nil {
		writeStoreError(w, r, err)
		return
	}
	h.writeCart(w, r, http.StatusOK)
}

// DeleteCartItems removes one line (?id=) or empties the cart (?clear=true).
func (h *APIHandler) DeleteCartItems(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	userID := UserID(r)
	if q.Get("clear") == "true" {
		if err := h.Store.ClearCart(userID); err != nil {
			writeStoreError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}

	id := q.Get("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "A cart item id is required.")
		return
	}
	if err := h.Store.RemoveCartItem(userID, id); err != nil {
		writeStoreError(w, r, err)
		return
	}
	h.writeCart(w, r, http.StatusOK)
}
