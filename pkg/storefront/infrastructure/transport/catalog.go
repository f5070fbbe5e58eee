package transport

import (
	"net/http"

	"storefront/pkg/storefront/domain/model"
)

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	categoryID, err := optionalID(query.Get("category"), "category")
	if err != nil {
		writeError(w, err)
		return
	}
	vendorID, err := optionalID(query.Get("vendor"), "vendor")
	if err != nil {
		writeError(w, err)
		return
	}

	products, err := h.services.Catalog.ListProducts(r.Context(), model.ProductFilter{CategoryID: categoryID, VendorID: vendorID})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductResponses(products, language(r)))
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	product, err := h.services.Catalog.GetProduct(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if !product.IsActive {
		writeError(w, model.ErrProductNotFound)
		return
	}
	writeJSON(w, http.StatusOK, toProductResponse(*product, language(r)))
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request, caller model.Identity) {
	var req productRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	product, err := h.services.Catalog.CreateProduct(r.Context(), caller, req.input())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toProductResponse(*product, language(r)))
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request, caller model.Identity) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var req productRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	product, err := h.services.Catalog.UpdateProduct(r.Context(), caller, id, req.input())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductResponse(*product, language(r)))
}

func (h *Handler) setProductActive(w http.ResponseWriter, r *http.Request, caller model.Identity) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var req struct {
		Active bool `json:"active"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	product, err := h.services.Catalog.SetProductActive(r.Context(), caller, id, req.Active)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductResponse(*product, language(r)))
}

func (h *Handler) applyPromotion(w http.ResponseWriter, r *http.Request, caller model.Identity) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var req struct {
		OriginalPriceCents int64 `json:"originalPriceCents"`
		DiscountPercent    int   `json:"discountPercent"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	product, err := h.services.Catalog.ApplyPromotion(r.Context(), caller, id, req.OriginalPriceCents, req.DiscountPercent)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductResponse(*product, language(r)))
}

func (h *Handler) clearPromotion(w http.ResponseWriter, r *http.Request, caller model.Identity) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	product, err := h.services.Catalog.ClearPromotion(r.Context(), caller, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductResponse(*product, language(r)))
}

func (h *Handler) adjustStock(w http.ResponseWriter, r *http.Request, caller model.Identity) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var req struct {
		Delta int `json:"delta"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.services.Catalog.AdjustStock(r.Context(), caller, id, req.Delta); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
