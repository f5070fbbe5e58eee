package transport

import (
	"context"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"storefront/pkg/storefront/domain/model"
)

func (h *Handler) listMyOrders(w http.ResponseWriter, r *http.Request, caller model.Identity) {
	orders, err := h.services.Fulfillment.ListMyOrders(r.Context(), caller)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponses(orders))
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request, caller model.Identity) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	order, err := h.services.Fulfillment.GetMyOrder(r.Context(), caller, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

func (h *Handler) orderTimeline(w http.ResponseWriter, r *http.Request, caller model.Identity) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	timeline, err := h.services.Fulfillment.Timeline(r.Context(), caller, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, timeline)
}

func (h *Handler) cancelOrder(w http.ResponseWriter, r *http.Request, caller model.Identity) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var req struct {
		Reason string `json:"reason"`
	}
	if err := readOptionalJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	order, err := h.services.Fulfillment.CancelOrder(r.Context(), caller, id, req.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

func (h *Handler) confirmReceipt(w http.ResponseWriter, r *http.Request, caller model.Identity) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	order, err := h.services.Fulfillment.ConfirmReceipt(r.Context(), caller, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request, caller model.Identity) {
	var filter model.OrderFilter
	query := r.URL.Query()
	if raw := query.Get("status"); raw != "" {
		status := model.OrderStatus(raw)
		if !status.Valid() {
			writeError(w, errors.Wrapf(model.ErrInvalidInput, "unknown order status %q", raw))
			return
		}
		filter.Status = &status
	}
	if raw := query.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			writeError(w, errors.Wrap(model.ErrInvalidInput, "limit must be a non-negative number"))
			return
		}
		filter.Limit = limit
	}

	orders, err := h.services.Fulfillment.ListOrders(r.Context(), caller, filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponses(orders))
}

func (h *Handler) assignDelivery(w http.ResponseWriter, r *http.Request, caller model.Identity) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var req struct {
		DeliveryUserID uuid.UUID `json:"deliveryUserId"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	order, err := h.services.Fulfillment.AssignDelivery(r.Context(), caller, id, req.DeliveryUserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

func (h *Handler) listAssigned(w http.ResponseWriter, r *http.Request, caller model.Identity) {
	orders, err := h.services.Fulfillment.ListAssigned(r.Context(), caller)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponses(orders))
}

func (h *Handler) markShipped(w http.ResponseWriter, r *http.Request, caller model.Identity) {
	h.advanceDelivery(w, r, caller, h.services.Fulfillment.MarkShipped)
}

func (h *Handler) markDelivered(w http.ResponseWriter, r *http.Request, caller model.Identity) {
	h.advanceDelivery(w, r, caller, h.services.Fulfillment.MarkDelivered)
}

type deliveryStep func(ctx context.Context, caller model.Identity, orderID uuid.UUID, evidence *model.DeliveryEvidence) (*model.Order, error)

func (h *Handler) advanceDelivery(w http.ResponseWriter, r *http.Request, caller model.Identity, step deliveryStep) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var evidence *model.DeliveryEvidence
	if err := readOptionalJSON(r, &evidence); err != nil {
		writeError(w, err)
		return
	}
	order, err := step(r.Context(), caller, id, evidence)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(order))
}
