package transport

import (
	"net/http"

	"github.com/google/uuid"

	"storefront/pkg/storefront/application/service"
	"storefront/pkg/storefront/domain/model"
)

func (h *Handler) viewCart(w http.ResponseWriter, r *http.Request, caller model.Identity) {
	view, err := h.services.Cart.View(r.Context(), caller)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(view, language(r)))
}

func (h *Handler) addCartItem(w http.ResponseWriter, r *http.Request, caller model.Identity) {
	var req struct {
		ProductID uuid.UUID `json:"productId"`
		Quantity  int       `json:"quantity"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.services.Cart.AddItem(r.Context(), caller, req.ProductID, req.Quantity); err != nil {
		writeError(w, err)
		return
	}
	h.viewCart(w, r, caller)
}

func (h *Handler) setCartQuantity(w http.ResponseWriter, r *http.Request, caller model.Identity) {
	productID, err := pathID(r, "productId")
	if err != nil {
		writeError(w, err)
		return
	}
	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.services.Cart.SetQuantity(r.Context(), caller, productID, req.Quantity); err != nil {
		writeError(w, err)
		return
	}
	h.viewCart(w, r, caller)
}

func (h *Handler) removeCartItem(w http.ResponseWriter, r *http.Request, caller model.Identity) {
	productID, err := pathID(r, "productId")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.services.Cart.RemoveItem(r.Context(), caller, productID); err != nil {
		writeError(w, err)
		return
	}
	h.viewCart(w, r, caller)
}

func (h *Handler) clearCart(w http.ResponseWriter, r *http.Request, caller model.Identity) {
	if err := h.services.Cart.Clear(r.Context(), caller); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) checkout(w http.ResponseWriter, r *http.Request, caller model.Identity) {
	var req struct {
		Address model.ShippingAddress `json:"address"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	order, err := h.services.Checkout.Checkout(r.Context(), caller, service.CheckoutRequest{
		Address:        req.Address,
		IdempotencyKey: r.Header.Get("Idempotency-Key"),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toOrderResponse(order))
}
