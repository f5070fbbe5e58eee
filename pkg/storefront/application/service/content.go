package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"storefront/pkg/storefront/domain/model"
)

var contentSchemas = map[model.ContentKind]string{
	model.ContentPromotion: `{
  "type": "object",
  "required": ["productId", "discountPercent", "headline", "description"],
  "properties": {
    "productId": {"type": "string", "format": "uuid"},
    "discountPercent": {"type": "integer", "minimum": 1, "maximum": 100},
    "headline": {"$ref": "#/$defs/localized"},
    "description": {"$ref": "#/$defs/localized"}
  },
  "$defs": {"localized": {"type": "object", "required": ["fr"], "properties": {"fr": {"type": "string"}, "ar": {"type": "string"}, "en": {"type": "string"}}}}
}`,
	model.ContentArticle: `{
  "type": "object",
  "required": ["title", "summary", "sections"],
  "properties": {
    "title": {"type": "object", "required": ["fr"], "properties": {"fr": {"type": "string"}, "ar": {"type": "string"}, "en": {"type": "string"}}},
    "summary": {"type": "string"},
    "sections": {"type": "array", "minItems": 1, "items": {"type": "object", "required": ["heading", "body"], "properties": {"heading": {"type": "string"}, "body": {"type": "string"}}}}
  }
}`,
	model.ContentSocialPost: `{
  "type": "object",
  "required": ["platform", "text"],
  "properties": {
    "platform": {"type": "string"},
    "text": {"type": "string"},
    "hashtags": {"type": "array", "items": {"type": "string"}}
  }
}`,
}

var contentInstructions = map[model.ContentKind]string{
	model.ContentPromotion:  "Write a short promotional offer for an online store product. Pick a sensible discount.",
	model.ContentArticle:    "Write a blog article for an online store. Use clear sections.",
	model.ContentSocialPost: "Write a social media post for an online store. Keep it short and add relevant hashtags.",
}

type ContentService interface {
	// Generate asks the content gateway for a draft. Nothing is stored.
	Generate(ctx context.Context, caller model.Identity, kind model.ContentKind, brief string) (json.RawMessage, error)
	// Accept stores a reviewed draft. Accepting a promotion applies its
	// discount to the product.
	Accept(ctx context.Context, caller model.Identity, kind model.ContentKind, draft json.RawMessage) (*model.GeneratedContent, error)
	List(ctx context.Context, caller model.Identity, kind model.ContentKind) ([]model.GeneratedContent, error)
}

func NewContentService(gateway model.ContentGateway, repo model.ContentRepository, catalog CatalogService, users model.UserDirectory) ContentService {
	return &contentService{gateway: gateway, repo: repo, catalog: catalog, users: users}
}

type contentService struct {
	gateway model.ContentGateway
	repo    model.ContentRepository
	catalog CatalogService
	users   model.UserDirectory
}

func (s *contentService) Generate(ctx context.Context, caller model.Identity, kind model.ContentKind, brief string) (json.RawMessage, error) {
	if err := requireRole(ctx, s.users, caller, model.RoleAdmin, model.RoleVendor); err != nil {
		return nil, err
	}
	if !kind.Valid() {
		return nil, errors.Wrapf(model.ErrInvalidInput, "unknown content kind %q", kind)
	}
	brief = strings.TrimSpace(brief)
	if brief == "" {
		return nil, errors.Wrap(model.ErrInvalidInput, "brief is required")
	}

	raw, err := s.gateway.Generate(ctx, model.GenerationRequest{
		Kind:   kind,
		Prompt: fmt.Sprintf("%s\nAnswer in French, Arabic and English where the schema allows it.\n\nBrief: %s", contentInstructions[kind], brief),
		Schema: json.RawMessage(contentSchemas[kind]),
	})
	if err != nil {
		return nil, err
	}

	draft, _, err := decodeDraft(kind, raw)
	if err != nil {
		return nil, errors.Wrapf(model.ErrUpstreamUnavailable, "gateway returned an unusable draft: %v", err)
	}
	return json.Marshal(draft)
}

func (s *contentService) Accept(ctx context.Context, caller model.Identity, kind model.ContentKind, raw json.RawMessage) (*model.GeneratedContent, error) {
	if err := requireRole(ctx, s.users, caller, model.RoleAdmin, model.RoleVendor); err != nil {
		return nil, err
	}
	if !kind.Valid() {
		return nil, errors.Wrapf(model.ErrInvalidInput, "unknown content kind %q", kind)
	}
	draft, title, err := decodeDraft(kind, raw)
	if err != nil {
		return nil, err
	}

	if promo, ok := draft.(*model.PromotionDraft); ok {
		if err := s.applyPromotion(ctx, caller, promo); err != nil {
			return nil, err
		}
	}

	body, err := json.Marshal(draft)
	if err != nil {
		return nil, err
	}
	id, err := s.repo.NextID()
	if err != nil {
		return nil, err
	}
	content := &model.GeneratedContent{
		ID:        id,
		AuthorID:  caller.UserID,
		Kind:      kind,
		Title:     title,
		Body:      body,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, content); err != nil {
		return nil, err
	}
	return content, nil
}

func (s *contentService) List(ctx context.Context, caller model.Identity, kind model.ContentKind) ([]model.GeneratedContent, error) {
	if err := requireRole(ctx, s.users, caller, model.RoleAdmin, model.RoleVendor); err != nil {
		return nil, err
	}
	if kind != "" && !kind.Valid() {
		return nil, errors.Wrapf(model.ErrInvalidInput, "unknown content kind %q", kind)
	}
	return s.repo.List(ctx, kind)
}

// applyPromotion discounts from the pre-promotion price when the product is
// already on promotion.
func (s *contentService) applyPromotion(ctx context.Context, caller model.Identity, promo *model.PromotionDraft) error {
	product, err := s.catalog.GetProduct(ctx, promo.ProductID)
	if err != nil {
		return err
	}
	original := product.PriceCents
	if product.OriginalPriceCents != nil {
		original = *product.OriginalPriceCents
	}
	_, err = s.catalog.ApplyPromotion(ctx, caller, product.ID, original, promo.DiscountPercent)
	return err
}

// decodeDraft parses and validates a draft of the given kind, returning it
// with a display title.
func decodeDraft(kind model.ContentKind, raw json.RawMessage) (interface{}, string, error) {
	if len(raw) == 0 {
		return nil, "", errors.Wrap(model.ErrInvalidInput, "draft is empty")
	}
	switch kind {
	case model.ContentPromotion:
		var d model.PromotionDraft
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, "", errors.Wrap(model.ErrInvalidInput, err.Error())
		}
		if err := validatePromotionDraft(d); err != nil {
			return nil, "", err
		}
		return &d, d.Headline.Fr, nil
	case model.ContentArticle:
		var d model.ArticleDraft
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, "", errors.Wrap(model.ErrInvalidInput, err.Error())
		}
		if err := d.Title.Validate("title"); err != nil {
			return nil, "", err
		}
		if len(d.Sections) == 0 {
			return nil, "", errors.Wrap(model.ErrInvalidInput, "article needs at least one section")
		}
		return &d, d.Title.Fr, nil
	case model.ContentSocialPost:
		var d model.SocialPostDraft
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, "", errors.Wrap(model.ErrInvalidInput, err.Error())
		}
		if strings.TrimSpace(d.Text) == "" || strings.TrimSpace(d.Platform) == "" {
			return nil, "", errors.Wrap(model.ErrInvalidInput, "social post needs a platform and text")
		}
		return &d, d.Platform + " post", nil
	}
	return nil, "", errors.Wrapf(model.ErrInvalidInput, "unknown content kind %q", kind)
}

func validatePromotionDraft(d model.PromotionDraft) error {
	if d.ProductID == uuid.Nil {
		return errors.Wrap(model.ErrInvalidInput, "promotion needs a product")
	}
	if d.DiscountPercent <= 0 || d.DiscountPercent > 100 {
		return errors.Wrap(model.ErrInvalidInput, "discount percent must be between 1 and 100")
	}
	if err := d.Headline.Validate("headline"); err != nil {
		return err
	}
	return d.Description.Validate("description")
}
