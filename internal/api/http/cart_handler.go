package http

import (
	"net/http"
)

type addToCartRequest struct {
	ItemID    string `json:"item_id"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

type updateCartRequest struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

func (h *Handler) ListCart(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.Cart.ListCart(r.Context(), callerID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *Handler) AddToCart(w http.ResponseWriter, r *http.Request) {
	var req addToCartRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	item, err := h.svc.Cart.AddToCart(r.Context(), callerID(r), req.ItemID, req.StartDate, req.EndDate)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (h *Handler) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req updateCartRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	item, err := h.svc.Cart.UpdateCartItem(r.Context(), callerID(r), id, req.StartDate, req.EndDate)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *Handler) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.svc.Cart.RemoveFromCart(r.Context(), callerID(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Checkout returns whatever rentals were created, even when a later group
// failed; the error is reported alongside them.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	rentals, err := h.svc.Cart.Checkout(r.Context(), callerID(r))
	if err != nil {
		if len(rentals) == 0 {
			writeError(w, r, err)
			return
		}
		writeJSON(w, statusFor(err), map[string]any{"rentals": rentals, "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"rentals": rentals})
}
