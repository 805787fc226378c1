package http

import (
	"fmt"
	"net/http"
	"strconv"

	"rentloop-backend/internal/domain"
)

// itemRequest is shared by create and patch; nil fields are left untouched
// on patch. Availability is not part of it.
type itemRequest struct {
	CategoryID      *string               `json:"category_id"`
	Title           *string               `json:"title"`
	Description     *string               `json:"description"`
	PricePerDay     *int64                `json:"price_per_day"`
	SecurityDeposit *int64                `json:"security_deposit"`
	Condition       *domain.ItemCondition `json:"condition"`
	Images          []string              `json:"images"`
}

func (req itemRequest) applyTo(item *domain.Item) {
	if req.CategoryID != nil {
		if *req.CategoryID == "" {
			item.CategoryID = nil
		} else {
			item.CategoryID = req.CategoryID
		}
	}
	if req.Title != nil {
		item.Title = *req.Title
	}
	if req.Description != nil {
		item.Description = *req.Description
	}
	if req.PricePerDay != nil {
		item.PricePerDay = *req.PricePerDay
	}
	if req.SecurityDeposit != nil {
		item.SecurityDeposit = *req.SecurityDeposit
	}
	if req.Condition != nil {
		item.Condition = *req.Condition
	}
	if req.Images != nil {
		item.Images = req.Images
	}
}

func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.svc.Item.ListCategories(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

type categoryResponse struct {
	Category *domain.Category `json:"category"`
	Items    pageResponse     `json:"items"`
}

// GetCategory returns the category with a page of its items.
func (h *Handler) GetCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	page, pageSize, err := pagination(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	category, err := h.svc.Item.GetCategory(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	items, total, err := h.svc.Item.ListItems(r.Context(), domain.ItemFilter{
		CategoryID: id,
		Page:       page,
		PageSize:   pageSize,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, categoryResponse{
		Category: category,
		Items:    pageResponse{Data: items, Total: total, Page: page, PageSize: pageSize},
	})
}

func (h *Handler) ListItems(w http.ResponseWriter, r *http.Request) {
	page, pageSize, err := pagination(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	q := r.URL.Query()
	filter := domain.ItemFilter{
		Query:      q.Get("q"),
		CategoryID: q.Get("category"),
		OwnerID:    q.Get("owner"),
		Page:       page,
		PageSize:   pageSize,
	}
	if raw := q.Get("available"); raw != "" {
		available, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, r, fmt.Errorf("%w: available must be a boolean", domain.ErrInvalidInput))
			return
		}
		filter.AvailableOnly = available
	}
	if raw := q.Get("max_price"); raw != "" {
		maxPrice, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || maxPrice < 0 {
			writeError(w, r, fmt.Errorf("%w: max_price must be a non-negative integer", domain.ErrInvalidInput))
			return
		}
		filter.MaxPrice = maxPrice
	}

	items, total, err := h.svc.Item.ListItems(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pageResponse{Data: items, Total: total, Page: page, PageSize: pageSize})
}

func (h *Handler) GetItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	item, err := h.svc.Item.GetItem(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *Handler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	item := &domain.Item{OwnerID: callerID(r)}
	req.applyTo(item)
	if err := h.svc.Item.CreateItem(r.Context(), item); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req itemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	item, err := h.svc.Item.GetItem(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	req.applyTo(item)
	updated, err := h.svc.Item.UpdateItem(r.Context(), callerID(r), item)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.svc.Item.DeleteItem(r.Context(), callerID(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
