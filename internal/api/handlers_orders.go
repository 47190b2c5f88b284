package api

import (
	"net/http"

	"github.com/safar/storefront/internal/store"
)

type createOrderRequest struct {
	ShippingAddress string `json:"shippingAddress"`
	ContactPhone    string `json:"contactPhone"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

// listOrders returns the caller's orders. With ?cursor= or ?limit= the
// result is a keyset page instead of the full list.
func (h *handler) listOrders(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFrom(r.Context())
	query := r.URL.Query()

	if !query.Has("cursor") && !query.Has("limit") {
		orders, err := h.svc.ListOrders(r.Context(), claims.UserID)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, orders)
		return
	}

	limit, err := intQuery(r, "limit", store.DefaultPageSize)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	page, err := h.svc.ListOrdersPage(r.Context(), claims.UserID, query.Get("cursor"), limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, page)
}

func (h *handler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	order, err := h.svc.Checkout(r.Context(), ClaimsFrom(r.Context()).UserID, req.ShippingAddress, req.ContactPhone)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, order)
}

func (h *handler) listAllOrders(w http.ResponseWriter, r *http.Request) {
	page, err := intQuery(r, "page", 1)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	pageSize, err := intQuery(r, "page_size", store.DefaultPageSize)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	result, err := h.svc.ListAllOrders(r.Context(), page, pageSize)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (h *handler) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var req updateStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	order, err := h.svc.UpdateOrderStatus(r.Context(), id, req.Status)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}
