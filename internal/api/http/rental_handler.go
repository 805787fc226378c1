package http

import (
	"fmt"
	"net/http"

	"rentloop-backend/internal/domain"
)

type rejectRequest struct {
	Reason string `json:"reason"`
}

func parseStatus(r *http.Request) (domain.RentalStatus, error) {
	raw := r.URL.Query().Get("status")
	if raw == "" {
		return "", nil
	}
	status := domain.RentalStatus(raw)
	if !status.Valid() {
		return "", fmt.Errorf("%w: unknown status %q", domain.ErrInvalidInput, raw)
	}
	return status, nil
}

func (h *Handler) CreateRental(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateRentalInput
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	caller := callerID(r)
	if req.LendeeID != "" && req.LendeeID != caller {
		writeError(w, r, fmt.Errorf("%w: rentals can only be requested for yourself", domain.ErrForbidden))
		return
	}
	req.LendeeID = caller

	rental, err := h.svc.Rental.CreateRental(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rental)
}

// ListRentals serves the caller's own rentals. lenderId and lendeeId may
// only name the caller.
func (h *Handler) ListRentals(w http.ResponseWriter, r *http.Request) {
	page, pageSize, err := pagination(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	status, err := parseStatus(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	caller := callerID(r)
	q := r.URL.Query()
	filter := domain.RentalFilter{
		LenderID: q.Get("lenderId"),
		LendeeID: q.Get("lendeeId"),
		Status:   status,
		Page:     page,
		PageSize: pageSize,
	}
	if (filter.LenderID != "" && filter.LenderID != caller) || (filter.LendeeID != "" && filter.LendeeID != caller) {
		writeError(w, r, fmt.Errorf("%w: can only list your own rentals", domain.ErrForbidden))
		return
	}

	var (
		rentals []domain.Rental
		total   int32
	)
	switch {
	case filter.LenderID != "" && filter.LendeeID == "":
		rentals, total, err = h.svc.Rental.ListByLender(r.Context(), filter.LenderID, status, page, pageSize)
	case filter.LendeeID != "" && filter.LenderID == "":
		rentals, total, err = h.svc.Rental.ListByLendee(r.Context(), filter.LendeeID, status, page, pageSize)
	default:
		if filter.LenderID == "" {
			filter.UserID = caller
		}
		rentals, total, err = h.svc.Rental.ListRentals(r.Context(), filter)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pageResponse{Data: rentals, Total: total, Page: page, PageSize: pageSize})
}

func (h *Handler) ListUserRentals(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if userID != callerID(r) {
		writeError(w, r, fmt.Errorf("%w: can only list your own rentals", domain.ErrForbidden))
		return
	}
	page, pageSize, err := pagination(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	status, err := parseStatus(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	rentals, total, err := h.svc.Rental.ListByUser(r.Context(), userID, status, page, pageSize)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pageResponse{Data: rentals, Total: total, Page: page, PageSize: pageSize})
}

func (h *Handler) GetRental(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	rental, err := h.svc.Rental.GetRental(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	caller := callerID(r)
	if rental.LenderID != caller && rental.LendeeID != caller {
		writeError(w, r, fmt.Errorf("%w: not a party to rental %s", domain.ErrForbidden, rental.ID))
		return
	}
	writeJSON(w, http.StatusOK, rental)
}

// requireLender loads the rental and checks the caller owns its items.
func (h *Handler) requireLender(r *http.Request) (string, error) {
	id, err := pathID(r, "id")
	if err != nil {
		return "", err
	}
	rental, err := h.svc.Rental.GetRental(r.Context(), id)
	if err != nil {
		return "", err
	}
	if rental.LenderID != callerID(r) {
		return "", fmt.Errorf("%w: only the lender can decide on rental %s", domain.ErrForbidden, id)
	}
	return id, nil
}

func (h *Handler) ApproveRental(w http.ResponseWriter, r *http.Request) {
	id, err := h.requireLender(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	rental, err := h.svc.Rental.ApproveRental(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rental)
}

func (h *Handler) RejectRental(w http.ResponseWriter, r *http.Request) {
	id, err := h.requireLender(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req rejectRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}
	}
	rental, err := h.svc.Rental.RejectRental(r.Context(), id, req.Reason)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rental)
}

func (h *Handler) CompleteRental(w http.ResponseWriter, r *http.Request) {
	id, err := h.requireLender(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	rental, err := h.svc.Rental.CompleteRental(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rental)
}
