package handlers

import (
	"net/http"
	"strings"

	"github.com/alextreichler/vendormarket/internal/models"
)

func validateAddress(a models.Address) string {
	switch {
	case strings.TrimSpace(a.Line1) == "":
		return "Address line 1 is required."
	case strings.TrimSpace(a.City) == "":
		return "City is required."
	case strings.TrimSpace(a.PostalCode) == "":
		return "Postal code is required."
	case strings.TrimSpace(a.Country) == "":
		return "Country is required."
	}
	return ""
}

func (h *APIHandler) ListAddresses(w http.ResponseWriter, r *http.Request) {
	addrs, err := h.Store.ListAddresses(UserID(r))
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, addrs)
}

func (h *APIHandler) GetAddress(w http.ResponseWriter, r *http.Request) {
	a, err := h.Store.GetAddress(UserID(r), r.PathValue("id"))
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// CreateAddress stores the address as sent. Clients keep the single-default
// rule themselves.
func (h *APIHandler) CreateAddress(w http.ResponseWriter, r *http.Request) {
	var a models.Address
	if !decodeJSON(w, r, &a) {
		return
	}
	if msg := validateAddress(a); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	if err := h.Store.CreateAddress(UserID(r), &a); err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (h *APIHandler) UpdateAddress(w http.ResponseWriter, r *http.Request) {
	var a models.Address
	if !decodeJSON(w, r, &a) {
		return
	}
	a.ID = r.PathValue("id")
	if msg := validateAddress(a); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	if err := h.Store.UpdateAddress(UserID(r), &a); err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *APIHandler) DeleteAddress(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteAddress(UserID(r), r.PathValue("id")); err != nil {
		writeStoreError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
