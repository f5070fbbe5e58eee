package transport

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"storefront/pkg/storefront/application/service"
	"storefront/pkg/storefront/domain/model"
)

type productResponse struct {
	ID                 uuid.UUID           `json:"id"`
	VendorID           *uuid.UUID          `json:"vendorId,omitempty"`
	CategoryID         *uuid.UUID          `json:"categoryId,omitempty"`
	Name               string              `json:"name"`
	Description        string              `json:"description"`
	Translations       productTranslations `json:"translations"`
	PriceCents         int64               `json:"priceCents"`
	OriginalPriceCents *int64              `json:"originalPriceCents,omitempty"`
	DiscountPercent    int                 `json:"discountPercent,omitempty"`
	Stock              int                 `json:"stock"`
	IsActive           bool                `json:"isActive"`
	UpdatedAt          time.Time           `json:"updatedAt"`
}

type productTranslations struct {
	Name        model.LocalizedText `json:"name"`
	Description model.LocalizedText `json:"description"`
}

func toProductResponse(p model.Product, lang model.Language) productResponse {
	return productResponse{
		ID:                 p.ID,
		VendorID:           p.VendorID,
		CategoryID:         p.CategoryID,
		Name:               p.Name.In(lang),
		Description:        p.Description.In(lang),
		Translations:       productTranslations{Name: p.Name, Description: p.Description},
		PriceCents:         p.PriceCents,
		OriginalPriceCents: p.OriginalPriceCents,
		DiscountPercent:    p.DiscountPercent,
		Stock:              p.Stock,
		IsActive:           p.IsActive,
		UpdatedAt:          p.UpdatedAt,
	}
}

func toProductResponses(products []model.Product, lang model.Language) []productResponse {
	resp := make([]productResponse, 0, len(products))
	for _, p := range products {
		resp = append(resp, toProductResponse(p, lang))
	}
	return resp
}

type productRequest struct {
	CategoryID  *uuid.UUID          `json:"categoryId"`
	Name        model.LocalizedText `json:"name"`
	Description model.LocalizedText `json:"description"`
	PriceCents  int64               `json:"priceCents"`
	Stock       int                 `json:"stock"`
}

func (r productRequest) input() service.ProductInput {
	return service.ProductInput{
		CategoryID:  r.CategoryID,
		Name:        r.Name,
		Description: r.Description,
		PriceCents:  r.PriceCents,
		Stock:       r.Stock,
	}
}

type cartLineResponse struct {
	ProductID      uuid.UUID `json:"productId"`
	Name           string    `json:"name"`
	UnitPriceCents int64     `json:"unitPriceCents"`
	Quantity       int       `json:"quantity"`
	LineTotalCents int64     `json:"lineTotalCents"`
	Available      bool      `json:"available"`
}

type cartResponse struct {
	Lines      []cartLineResponse `json:"lines"`
	TotalCents int64              `json:"totalCents"`
}

func toCartResponse(view *service.CartView, lang model.Language) cartResponse {
	resp := cartResponse{Lines: make([]cartLineResponse, 0, len(view.Lines)), TotalCents: view.TotalCents}
	for _, l := range view.Lines {
		resp.Lines = append(resp.Lines, cartLineResponse{
			ProductID:      l.ProductID,
			Name:           l.Name.In(lang),
			UnitPriceCents: l.UnitPriceCents,
			Quantity:       l.Quantity,
			LineTotalCents: l.LineTotalCents,
			Available:      l.Available,
		})
	}
	return resp
}

type orderItemResponse struct {
	ProductID      uuid.UUID `json:"productId"`
	ProductName    string    `json:"productName"`
	Quantity       int       `json:"quantity"`
	UnitPriceCents int64     `json:"unitPriceCents"`
	LineTotalCents int64     `json:"lineTotalCents"`
}

type orderResponse struct {
	ID                  uuid.UUID               `json:"id"`
	UserID              uuid.UUID               `json:"userId"`
	Status              model.OrderStatus       `json:"status"`
	TotalCents          int64                   `json:"totalCents"`
	DiscountCents       int64                   `json:"discountCents"`
	ShippingAddress     model.ShippingAddress   `json:"shippingAddress"`
	DeliveryUserID      *uuid.UUID              `json:"deliveryUserId,omitempty"`
	Items               []orderItemResponse     `json:"items"`
	ShippedEvidence     *model.DeliveryEvidence `json:"shippedEvidence,omitempty"`
	DeliveredEvidence   *model.DeliveryEvidence `json:"deliveredEvidence,omitempty"`
	CancelReason        string                  `json:"cancelReason,omitempty"`
	CreatedAt           time.Time               `json:"createdAt"`
	UpdatedAt           time.Time               `json:"updatedAt"`
	ConfirmedAt         *time.Time              `json:"confirmedAt,omitempty"`
	ShippedAt           *time.Time              `json:"shippedAt,omitempty"`
	DeliveredAt         *time.Time              `json:"deliveredAt,omitempty"`
	CancelledAt         *time.Time              `json:"cancelledAt,omitempty"`
	CustomerConfirmedAt *time.Time              `json:"customerConfirmedAt,omitempty"`
}

func toOrderResponse(o *model.Order) orderResponse {
	resp := orderResponse{
		ID:                  o.ID,
		UserID:              o.UserID,
		Status:              o.Status,
		TotalCents:          o.TotalCents,
		DiscountCents:       o.DiscountCents,
		ShippingAddress:     o.ShippingAddress,
		DeliveryUserID:      o.DeliveryUserID,
		Items:               make([]orderItemResponse, 0, len(o.Items)),
		ShippedEvidence:     o.ShippedEvidence,
		DeliveredEvidence:   o.DeliveredEvidence,
		CancelReason:        o.CancelReason,
		CreatedAt:           o.CreatedAt,
		UpdatedAt:           o.UpdatedAt,
		ConfirmedAt:         o.ConfirmedAt,
		ShippedAt:           o.ShippedAt,
		DeliveredAt:         o.DeliveredAt,
		CancelledAt:         o.CancelledAt,
		CustomerConfirmedAt: o.CustomerConfirmedAt,
	}
	for _, item := range o.Items {
		resp.Items = append(resp.Items, orderItemResponse{
			ProductID:      item.ProductID,
			ProductName:    item.ProductName,
			Quantity:       item.Quantity,
			UnitPriceCents: item.UnitPriceCents,
			LineTotalCents: item.LineTotalCents,
		})
	}
	return resp
}

func toOrderResponses(orders []model.Order) []orderResponse {
	resp := make([]orderResponse, 0, len(orders))
	for i := range orders {
		resp = append(resp, toOrderResponse(&orders[i]))
	}
	return resp
}

type paymentResponse struct {
	ID            uuid.UUID           `json:"id"`
	OrderID       uuid.UUID           `json:"orderId"`
	AmountCents   int64               `json:"amountCents"`
	Method        string              `json:"method"`
	Status        model.PaymentStatus `json:"status"`
	TransactionID string              `json:"transactionId,omitempty"`
	Metadata      map[string]string   `json:"metadata,omitempty"`
	CompletedAt   *time.Time          `json:"completedAt,omitempty"`
	CreatedAt     time.Time           `json:"createdAt"`
}

func toPaymentResponse(p *model.Payment) paymentResponse {
	return paymentResponse{
		ID:            p.ID,
		OrderID:       p.OrderID,
		AmountCents:   p.AmountCents,
		Method:        p.Method,
		Status:        p.Status,
		TransactionID: p.TransactionID,
		Metadata:      p.Metadata,
		CompletedAt:   p.CompletedAt,
		CreatedAt:     p.CreatedAt,
	}
}

type notificationResponse struct {
	ID        uuid.UUID              `json:"id"`
	Type      model.NotificationType `json:"type"`
	Title     string                 `json:"title"`
	Message   string                 `json:"message"`
	Data      map[string]string      `json:"data,omitempty"`
	IsRead    bool                   `json:"isRead"`
	CreatedAt time.Time              `json:"createdAt"`
}

type referralResponse struct {
	ID           uuid.UUID            `json:"id"`
	Code         string               `json:"code"`
	Status       model.ReferralStatus `json:"status"`
	RewardPoints int64                `json:"rewardPoints"`
	CreatedAt    time.Time            `json:"createdAt"`
	CompletedAt  *time.Time           `json:"completedAt,omitempty"`
}

func toReferralResponse(r model.Referral) referralResponse {
	return referralResponse{
		ID:           r.ID,
		Code:         r.Code,
		Status:       r.Status,
		RewardPoints: r.RewardPoints,
		CreatedAt:    r.CreatedAt,
		CompletedAt:  r.CompletedAt,
	}
}

type loyaltyEntryResponse struct {
	Reason    model.LoyaltyReason `json:"reason"`
	SourceID  uuid.UUID           `json:"sourceId"`
	Points    int64               `json:"points"`
	CreatedAt time.Time           `json:"createdAt"`
}

type loyaltyResponse struct {
	Points  int64                  `json:"points"`
	Entries []loyaltyEntryResponse `json:"entries"`
}

type contentResponse struct {
	ID        uuid.UUID         `json:"id"`
	Kind      model.ContentKind `json:"kind"`
	Title     string            `json:"title"`
	Body      json.RawMessage   `json:"body"`
	CreatedAt time.Time         `json:"createdAt"`
}

func toContentResponse(c model.GeneratedContent) contentResponse {
	return contentResponse{ID: c.ID, Kind: c.Kind, Title: c.Title, Body: c.Body, CreatedAt: c.CreatedAt}
}
