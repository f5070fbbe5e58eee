package transport

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"storefront/pkg/storefront/application/service"
)

type Services struct {
	Catalog       service.CatalogService
	Cart          service.CartService
	Checkout      service.CheckoutService
	Payments      service.PaymentService
	Fulfillment   service.FulfillmentService
	Notifications service.NotificationService
	Wishlist      service.WishlistService
	Referrals     service.ReferralService
	Loyalty       service.LoyaltyService
	Content       service.ContentService
}

type Config struct {
	JWTSecret     []byte
	WebhookSecret []byte
	// AIRate and AIBurst bound content generation per caller.
	AIRate  rate.Limit
	AIBurst int
	// RequestTimeout caps the context handed to services. Zero means
	// defaultRequestTimeout.
	RequestTimeout time.Duration
}

const defaultRequestTimeout = 15 * time.Second

type Handler struct {
	services      Services
	auth          *Authenticator
	webhookSecret []byte
	aiLimiter     *callerLimiter
}

func Router(services Services, cfg Config) http.Handler {
	h := &Handler{
		services:      services,
		auth:          NewAuthenticator(cfg.JWTSecret),
		webhookSecret: cfg.WebhookSecret,
		aiLimiter:     newCallerLimiter(cfg.AIRate, cfg.AIBurst),
	}

	r := mux.NewRouter()
	s := r.PathPrefix("/api/v1").Subrouter()

	s.HandleFunc("/products", h.listProducts).Methods(http.MethodGet)
	s.HandleFunc("/products/{id}", h.getProduct).Methods(http.MethodGet)
	s.Handle("/products", h.private(h.createProduct)).Methods(http.MethodPost)
	s.Handle("/products/{id}", h.private(h.updateProduct)).Methods(http.MethodPut)
	s.Handle("/products/{id}/active", h.private(h.setProductActive)).Methods(http.MethodPost)
	s.Handle("/products/{id}/promotion", h.private(h.applyPromotion)).Methods(http.MethodPost)
	s.Handle("/products/{id}/promotion", h.private(h.clearPromotion)).Methods(http.MethodDelete)
	s.Handle("/products/{id}/stock", h.private(h.adjustStock)).Methods(http.MethodPost)

	s.Handle("/cart", h.private(h.viewCart)).Methods(http.MethodGet)
	s.Handle("/cart", h.private(h.clearCart)).Methods(http.MethodDelete)
	s.Handle("/cart/items", h.private(h.addCartItem)).Methods(http.MethodPost)
	s.Handle("/cart/items/{productId}", h.private(h.setCartQuantity)).Methods(http.MethodPut)
	s.Handle("/cart/items/{productId}", h.private(h.removeCartItem)).Methods(http.MethodDelete)
	s.Handle("/checkout", h.private(h.checkout)).Methods(http.MethodPost)

	s.Handle("/orders", h.private(h.listMyOrders)).Methods(http.MethodGet)
	s.Handle("/orders/{id}", h.private(h.getOrder)).Methods(http.MethodGet)
	s.Handle("/orders/{id}/timeline", h.private(h.orderTimeline)).Methods(http.MethodGet)
	s.Handle("/orders/{id}/payments", h.private(h.listOrderPayments)).Methods(http.MethodGet)
	s.Handle("/orders/{id}/cancel", h.private(h.cancelOrder)).Methods(http.MethodPost)
	s.Handle("/orders/{id}/receipt", h.private(h.confirmReceipt)).Methods(http.MethodPost)

	s.Handle("/admin/orders", h.private(h.listOrders)).Methods(http.MethodGet)
	s.Handle("/admin/orders/{id}/assign", h.private(h.assignDelivery)).Methods(http.MethodPost)
	s.Handle("/delivery/orders", h.private(h.listAssigned)).Methods(http.MethodGet)
	s.Handle("/delivery/orders/{id}/shipped", h.private(h.markShipped)).Methods(http.MethodPost)
	s.Handle("/delivery/orders/{id}/delivered", h.private(h.markDelivered)).Methods(http.MethodPost)

	s.HandleFunc("/payments/webhook", h.paymentWebhook).Methods(http.MethodPost)
	s.Handle("/payments", h.private(h.initiatePayment)).Methods(http.MethodPost)
	s.Handle("/payments/{id}/confirm", h.private(h.confirmPayment)).Methods(http.MethodPost)

	s.Handle("/notifications", h.private(h.listNotifications)).Methods(http.MethodGet)
	s.Handle("/notifications/{id}/read", h.private(h.markNotificationRead)).Methods(http.MethodPost)

	s.Handle("/wishlist", h.private(h.listWishlist)).Methods(http.MethodGet)
	s.Handle("/wishlist/{productId}", h.private(h.toggleWishlist)).Methods(http.MethodPost)
	s.Handle("/referrals", h.private(h.myReferrals)).Methods(http.MethodGet)
	s.Handle("/referrals/code", h.private(h.myReferralCode)).Methods(http.MethodGet)
	s.Handle("/referrals/redeem", h.private(h.redeemReferral)).Methods(http.MethodPost)
	s.Handle("/loyalty", h.private(h.loyaltyBalance)).Methods(http.MethodGet)

	s.Handle("/content/{kind}/generate", h.private(h.limited(h.generateContent))).Methods(http.MethodPost)
	s.Handle("/content/{kind}", h.private(h.acceptContent)).Methods(http.MethodPost)
	s.Handle("/content/{kind}", h.private(h.listContent)).Methods(http.MethodGet)

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return logMiddleware(timeoutMiddleware(timeout, r))
}

func timeoutMiddleware(timeout time.Duration, h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()
		h.ServeHTTP(w, r.WithContext(ctx))
	})
}

func logMiddleware(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.WithFields(log.Fields{
			"method":     r.Method,
			"url":        r.URL,
			"remoteAddr": r.RemoteAddr,
			"userAgent":  r.UserAgent(),
		}).Info("got a new request")
		h.ServeHTTP(w, r)
	})
}
