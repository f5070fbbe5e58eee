package transport

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"storefront/pkg/storefront/application/service"
	"storefront/pkg/storefront/domain/model"
)

const (
	signatureHeader     = "X-Signature"
	maxWebhookBodyBytes = 64 << 10
)

type confirmationRequest struct {
	PaymentID     uuid.UUID           `json:"paymentId"`
	TransactionID string              `json:"transactionId"`
	Status        model.PaymentStatus `json:"status"`
}

type confirmationResponse struct {
	Payment paymentResponse `json:"payment"`
	Applied bool            `json:"applied"`
}

func (h *Handler) initiatePayment(w http.ResponseWriter, r *http.Request, caller model.Identity) {
	var req struct {
		OrderID     uuid.UUID         `json:"orderId"`
		Method      string            `json:"method"`
		AmountCents int64             `json:"amountCents"`
		Metadata    map[string]string `json:"metadata"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	payment, err := h.services.Payments.InitiatePayment(r.Context(), caller, service.InitiatePaymentRequest{
		OrderID:     req.OrderID,
		Method:      req.Method,
		AmountCents: req.AmountCents,
		Metadata:    req.Metadata,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPaymentResponse(payment))
}

func (h *Handler) confirmPayment(w http.ResponseWriter, r *http.Request, caller model.Identity) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var req confirmationRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	result, err := h.services.Payments.ConfirmPayment(r.Context(), caller, service.ConfirmationRequest{
		PaymentID:     id,
		TransactionID: req.TransactionID,
		Status:        req.Status,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, confirmationResponse{Payment: toPaymentResponse(result.Payment), Applied: result.Applied})
}

func (h *Handler) listOrderPayments(w http.ResponseWriter, r *http.Request, caller model.Identity) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	payments, err := h.services.Payments.ListOrderPayments(r.Context(), caller, id)
	if err != nil {
		writeError(w, err)
		return
	}
	resp := make([]paymentResponse, 0, len(payments))
	for i := range payments {
		resp = append(resp, toPaymentResponse(&payments[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

// paymentWebhook accepts gateway callbacks signed with HMAC-SHA256 over the
// raw body. Unsigned or mis-signed callbacks are rejected before parsing.
func (h *Handler) paymentWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBodyBytes))
	if err != nil {
		writeError(w, errors.Wrap(model.ErrInvalidInput, "failed to read body"))
		return
	}
	if !validSignature(h.webhookSecret, body, r.Header.Get(signatureHeader)) {
		log.WithField("remoteAddr", r.RemoteAddr).Warn("rejected payment webhook with invalid signature")
		writeError(w, errors.Wrap(model.ErrUnauthorized, "invalid signature"))
		return
	}

	var req confirmationRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, errors.Wrap(model.ErrInvalidInput, "malformed webhook body"))
		return
	}
	result, err := h.services.Payments.ConfirmPaymentFromGateway(r.Context(), service.ConfirmationRequest{
		PaymentID:     req.PaymentID,
		TransactionID: req.TransactionID,
		Status:        req.Status,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, confirmationResponse{Payment: toPaymentResponse(result.Payment), Applied: result.Applied})
}

func validSignature(secret, body []byte, signature string) bool {
	if len(secret) == 0 || signature == "" {
		return false
	}
	given, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	return hmac.Equal(given, Sign(secret, body))
}

// Sign returns the HMAC-SHA256 of body. Gateways and tests use it to produce
// the X-Signature header value (hex encoded).
func Sign(secret, body []byte) []byte {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return mac.Sum(nil)
}
