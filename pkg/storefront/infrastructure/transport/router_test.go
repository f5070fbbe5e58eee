package transport

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"storefront/pkg/storefront/application/service"
	"storefront/pkg/storefront/domain/model"
)

var (
	testJWTSecret     = []byte("jwt-secret")
	testWebhookSecret = []byte("webhook-secret")
)

type stubCatalog struct {
	service.CatalogService
	products []model.Product
}

func (s *stubCatalog) ListProducts(context.Context, model.ProductFilter) ([]model.Product, error) {
	return s.products, nil
}

type stubCheckout struct {
	err      error
	caller   model.Identity
	req      service.CheckoutRequest
	deadline time.Time
	bounded  bool
}

func (s *stubCheckout) Checkout(ctx context.Context, caller model.Identity, req service.CheckoutRequest) (*model.Order, error) {
	s.deadline, s.bounded = ctx.Deadline()
	s.caller = caller
	s.req = req
	if s.err != nil {
		return nil, s.err
	}
	return &model.Order{ID: uuid.New(), UserID: caller.UserID, Status: model.OrderPending, TotalCents: 2500}, nil
}

type stubPayments struct {
	service.PaymentService
	gatewayCalls []service.ConfirmationRequest
}

func (s *stubPayments) ConfirmPaymentFromGateway(_ context.Context, req service.ConfirmationRequest) (*service.ConfirmationResult, error) {
	s.gatewayCalls = append(s.gatewayCalls, req)
	return &service.ConfirmationResult{
		Payment: &model.Payment{ID: req.PaymentID, Status: req.Status, TransactionID: req.TransactionID},
		Applied: len(s.gatewayCalls) == 1,
	}, nil
}

type stubContent struct {
	service.ContentService
	err error
}

func (s *stubContent) Generate(context.Context, model.Identity, model.ContentKind, string) (json.RawMessage, error) {
	if s.err != nil {
		return nil, s.err
	}
	return json.RawMessage(`{"text":"hello"}`), nil
}

type fixture struct {
	handler  http.Handler
	auth     *Authenticator
	checkout *stubCheckout
	payments *stubPayments
	content  *stubContent
}

func newFixture(aiRate rate.Limit, aiBurst int) *fixture {
	f := &fixture{
		auth:     NewAuthenticator(testJWTSecret),
		checkout: &stubCheckout{},
		payments: &stubPayments{},
		content:  &stubContent{},
	}
	f.handler = Router(Services{
		Catalog: &stubCatalog{products: []model.Product{{
			ID:         uuid.New(),
			Name:       model.LocalizedText{Fr: "Chaise", En: "Chair"},
			PriceCents: 1000,
			Stock:      3,
			IsActive:   true,
		}}},
		Checkout: f.checkout,
		Payments: f.payments,
		Content:  f.content,
	}, Config{
		JWTSecret:     testJWTSecret,
		WebhookSecret: testWebhookSecret,
		AIRate:        aiRate,
		AIBurst:       aiBurst,
	})
	return f
}

func (f *fixture) do(t *testing.T, method, path string, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) bearer(t *testing.T, userID uuid.UUID) map[string]string {
	t.Helper()
	token, err := f.auth.Issue(userID, time.Hour)
	require.NoError(t, err)
	return map[string]string{"Authorization": "Bearer " + token}
}

var checkoutBody = []byte(`{"address":{"fullName":"Amina","phone":"0550","line1":"1 rue","city":"Alger"}}`)

func TestAuthentication(t *testing.T) {
	f := newFixture(rate.Inf, 1)

	t.Run("Public catalog needs no token", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/v1/products?lang=en", nil, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var products []productResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &products))
		require.Len(t, products, 1)
		assert.Equal(t, "Chair", products[0].Name)
	})

	t.Run("Fail on missing token", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/api/v1/checkout", checkoutBody, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("Fail on token signed with another secret", func(t *testing.T) {
		token, err := NewAuthenticator([]byte("other")).Issue(uuid.New(), time.Hour)
		require.NoError(t, err)
		rec := f.do(t, http.MethodPost, "/api/v1/checkout", checkoutBody, map[string]string{"Authorization": "Bearer " + token})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("Fail on expired token", func(t *testing.T) {
		token, err := f.auth.Issue(uuid.New(), -time.Minute)
		require.NoError(t, err)
		rec := f.do(t, http.MethodPost, "/api/v1/checkout", checkoutBody, map[string]string{"Authorization": "Bearer " + token})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("Caller comes from the token", func(t *testing.T) {
		userID := uuid.New()
		headers := f.bearer(t, userID)
		headers["Idempotency-Key"] = "k-1"

		rec := f.do(t, http.MethodPost, "/api/v1/checkout", checkoutBody, headers)
		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, userID, f.checkout.caller.UserID)
		assert.Equal(t, "k-1", f.checkout.req.IdempotencyKey)
		assert.Equal(t, "Alger", f.checkout.req.Address.City)
	})
}

func TestCheckoutInsufficientStock(t *testing.T) {
	f := newFixture(rate.Inf, 1)
	productID := uuid.New()
	f.checkout.err = &model.InsufficientStockError{Lines: []model.StockShortage{
		{ProductID: productID, ProductName: "Chaise", Requested: 2, Available: 1},
	}}

	rec := f.do(t, http.MethodPost, "/api/v1/checkout", checkoutBody, f.bearer(t, uuid.New()))
	require.Equal(t, http.StatusConflict, rec.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Lines, 1)
	assert.Equal(t, productID, resp.Lines[0].ProductID)
	assert.Equal(t, 1, resp.Lines[0].Available)
}

func TestPaymentWebhook(t *testing.T) {
	paymentID := uuid.New()
	body := []byte(`{"paymentId":"` + paymentID.String() + `","transactionId":"tx-1","status":"completed"}`)

	t.Run("Fail on missing signature", func(t *testing.T) {
		f := newFixture(rate.Inf, 1)
		rec := f.do(t, http.MethodPost, "/api/v1/payments/webhook", body, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Empty(t, f.payments.gatewayCalls)
	})

	t.Run("Fail on wrong signature", func(t *testing.T) {
		f := newFixture(rate.Inf, 1)
		signature := hex.EncodeToString(Sign([]byte("guess"), body))
		rec := f.do(t, http.MethodPost, "/api/v1/payments/webhook", body, map[string]string{signatureHeader: signature})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Empty(t, f.payments.gatewayCalls)
	})

	t.Run("Success", func(t *testing.T) {
		f := newFixture(rate.Inf, 1)
		headers := map[string]string{signatureHeader: hex.EncodeToString(Sign(testWebhookSecret, body))}

		rec := f.do(t, http.MethodPost, "/api/v1/payments/webhook", body, headers)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Len(t, f.payments.gatewayCalls, 1)
		assert.Equal(t, paymentID, f.payments.gatewayCalls[0].PaymentID)
		assert.Equal(t, model.PaymentCompleted, f.payments.gatewayCalls[0].Status)

		var resp confirmationResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.True(t, resp.Applied)

		rec = f.do(t, http.MethodPost, "/api/v1/payments/webhook", body, headers)
		require.Equal(t, http.StatusOK, rec.Code)
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.False(t, resp.Applied)
	})
}

func TestContentGeneration(t *testing.T) {
	body := []byte(`{"brief":"summer sale"}`)

	t.Run("Rate limited per caller", func(t *testing.T) {
		f := newFixture(rate.Every(time.Hour), 1)
		first, second := uuid.New(), uuid.New()

		rec := f.do(t, http.MethodPost, "/api/v1/content/social_post/generate", body, f.bearer(t, first))
		require.Equal(t, http.StatusOK, rec.Code)

		rec = f.do(t, http.MethodPost, "/api/v1/content/social_post/generate", body, f.bearer(t, first))
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)

		rec = f.do(t, http.MethodPost, "/api/v1/content/social_post/generate", body, f.bearer(t, second))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("Upstream failures keep their status", func(t *testing.T) {
		cases := map[error]int{
			model.ErrRateLimited:         http.StatusTooManyRequests,
			model.ErrQuotaExceeded:       http.StatusPaymentRequired,
			model.ErrUpstreamUnavailable: http.StatusServiceUnavailable,
		}
		for gatewayErr, status := range cases {
			f := newFixture(rate.Inf, 1)
			f.content.err = errors.Wrap(gatewayErr, "gateway")
			rec := f.do(t, http.MethodPost, "/api/v1/content/article/generate", body, f.bearer(t, uuid.New()))
			assert.Equal(t, status, rec.Code, gatewayErr.Error())
		}
	})

	t.Run("Fail on unknown kind", func(t *testing.T) {
		f := newFixture(rate.Inf, 1)
		rec := f.do(t, http.MethodPost, "/api/v1/content/poem/generate", body, f.bearer(t, uuid.New()))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestRequestTimeout(t *testing.T) {
	t.Run("Default deadline", func(t *testing.T) {
		f := newFixture(rate.Inf, 1)
		started := time.Now()
		rec := f.do(t, http.MethodPost, "/api/v1/checkout", checkoutBody, f.bearer(t, uuid.New()))

		require.Equal(t, http.StatusCreated, rec.Code)
		require.True(t, f.checkout.bounded)
		assert.WithinDuration(t, started.Add(defaultRequestTimeout), f.checkout.deadline, 2*time.Second)
	})

	t.Run("Configured deadline", func(t *testing.T) {
		checkout := &stubCheckout{}
		handler := Router(Services{Checkout: checkout}, Config{
			JWTSecret:      testJWTSecret,
			RequestTimeout: 2 * time.Second,
		})
		token, err := NewAuthenticator(testJWTSecret).Issue(uuid.New(), time.Hour)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", bytes.NewReader(checkoutBody))
		req.Header.Set("Authorization", "Bearer "+token)
		started := time.Now()
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		require.Equal(t, http.StatusCreated, rec.Code)
		require.True(t, checkout.bounded)
		assert.WithinDuration(t, started.Add(2*time.Second), checkout.deadline, time.Second)
	})
}

func TestCallerLimiterEviction(t *testing.T) {
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	limiter := newCallerLimiter(rate.Every(time.Minute), 1)
	limiter.now = func() time.Time { return clock }
	require.Equal(t, time.Minute, limiter.idleTTL)

	first, second, third := uuid.New(), uuid.New(), uuid.New()
	assert.True(t, limiter.allow(first))
	assert.False(t, limiter.allow(first))

	clock = clock.Add(30 * time.Second)
	assert.True(t, limiter.allow(second))
	assert.Equal(t, 2, limiter.size())

	clock = clock.Add(45 * time.Second)
	assert.True(t, limiter.allow(third))
	assert.Equal(t, 2, limiter.size(), "only the caller idle past the ttl is dropped")

	clock = clock.Add(2 * time.Minute)
	assert.True(t, limiter.allow(first))
	assert.Equal(t, 1, limiter.size())
	assert.False(t, limiter.allow(first))
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, http.StatusUnauthorized, statusOf(model.ErrUnauthorized))
	assert.Equal(t, http.StatusNotFound, statusOf(model.ErrForbidden))
	assert.Equal(t, http.StatusNotFound, statusOf(model.ErrOrderNotFound))
	assert.Equal(t, http.StatusBadRequest, statusOf(errors.Wrap(model.ErrInvalidInput, "bad")))
	assert.Equal(t, http.StatusConflict, statusOf(model.ErrOrderStatusTransition))
	assert.Equal(t, http.StatusConflict, statusOf(model.ErrOrderAlreadyPaid))
	assert.Equal(t, http.StatusConflict, statusOf(&model.InsufficientStockError{}))
	assert.Equal(t, http.StatusInternalServerError, statusOf(errors.New("boom")))
}

func TestLanguage(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
	assert.Equal(t, model.French, language(req))

	req.Header.Set("Accept-Language", "de-DE,ar;q=0.8")
	assert.Equal(t, model.Arabic, language(req))

	req = httptest.NewRequest(http.MethodGet, "/api/v1/products?lang=en", nil)
	req.Header.Set("Accept-Language", "ar")
	assert.Equal(t, model.English, language(req))
}
