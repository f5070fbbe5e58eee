package transport

import (
	"net/http"

	"storefront/pkg/storefront/domain/model"
)

func (h *Handler) listNotifications(w http.ResponseWriter, r *http.Request, caller model.Identity) {
	unreadOnly := r.URL.Query().Get("unread") == "true"
	notifications, err := h.services.Notifications.List(r.Context(), caller, unreadOnly)
	if err != nil {
		writeError(w, err)
		return
	}
	resp := make([]notificationResponse, 0, len(notifications))
	for _, n := range notifications {
		resp = append(resp, notificationResponse{
			ID:        n.ID,
			Type:      n.Type,
			Title:     n.Title,
			Message:   n.Message,
			Data:      n.Data,
			IsRead:    n.IsRead,
			CreatedAt: n.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) markNotificationRead(w http.ResponseWriter, r *http.Request, caller model.Identity) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.services.Notifications.MarkRead(r.Context(), caller, id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listWishlist(w http.ResponseWriter, r *http.Request, caller model.Identity) {
	products, err := h.services.Wishlist.List(r.Context(), caller)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductResponses(products, language(r)))
}

func (h *Handler) toggleWishlist(w http.ResponseWriter, r *http.Request, caller model.Identity) {
	productID, err := pathID(r, "productId")
	if err != nil {
		writeError(w, err)
		return
	}
	inWishlist, err := h.services.Wishlist.Toggle(r.Context(), caller, productID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"inWishlist": inWishlist})
}

func (h *Handler) myReferralCode(w http.ResponseWriter, r *http.Request, caller model.Identity) {
	code, err := h.services.Referrals.MyCode(r.Context(), caller)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"code": code})
}

func (h *Handler) redeemReferral(w http.ResponseWriter, r *http.Request, caller model.Identity) {
	var req struct {
		Code string `json:"code"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	referral, err := h.services.Referrals.Redeem(r.Context(), caller, req.Code)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toReferralResponse(*referral))
}

func (h *Handler) myReferrals(w http.ResponseWriter, r *http.Request, caller model.Identity) {
	referrals, err := h.services.Referrals.MyReferrals(r.Context(), caller)
	if err != nil {
		writeError(w, err)
		return
	}
	resp := make([]referralResponse, 0, len(referrals))
	for _, ref := range referrals {
		resp = append(resp, toReferralResponse(ref))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) loyaltyBalance(w http.ResponseWriter, r *http.Request, caller model.Identity) {
	summary, err := h.services.Loyalty.Balance(r.Context(), caller)
	if err != nil {
		writeError(w, err)
		return
	}
	resp := loyaltyResponse{Points: summary.Points, Entries: make([]loyaltyEntryResponse, 0, len(summary.Entries))}
	for _, e := range summary.Entries {
		resp.Entries = append(resp.Entries, loyaltyEntryResponse{
			Reason:    e.Reason,
			SourceID:  e.SourceID,
			Points:    e.Points,
			CreatedAt: e.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}
