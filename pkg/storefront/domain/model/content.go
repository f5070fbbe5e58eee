package model

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type ContentKind string

const (
	ContentPromotion  ContentKind = "promotion"
	ContentArticle    ContentKind = "article"
	ContentSocialPost ContentKind = "social_post"
)

func (k ContentKind) Valid() bool {
	switch k {
	case ContentPromotion, ContentArticle, ContentSocialPost:
		return true
	}
	return false
}

type PromotionDraft struct {
	ProductID       uuid.UUID     `json:"productId"`
	DiscountPercent int           `json:"discountPercent"`
	Headline        LocalizedText `json:"headline"`
	Description     LocalizedText `json:"description"`
}

type ArticleSection struct {
	Heading string `json:"heading"`
	Body    string `json:"body"`
}

type ArticleDraft struct {
	Title    LocalizedText    `json:"title"`
	Summary  string           `json:"summary"`
	Sections []ArticleSection `json:"sections"`
}

type SocialPostDraft struct {
	Platform string   `json:"platform"`
	Text     string   `json:"text"`
	Hashtags []string `json:"hashtags"`
}

type GenerationRequest struct {
	Kind   ContentKind
	Prompt string
	Schema json.RawMessage
}

// ContentGateway is the generative-AI collaborator. It returns the
// structured JSON produced for the request schema.
type ContentGateway interface {
	Generate(ctx context.Context, req GenerationRequest) (json.RawMessage, error)
}

type GeneratedContent struct {
	ID        uuid.UUID
	AuthorID  uuid.UUID
	Kind      ContentKind
	Title     string
	Body      json.RawMessage
	CreatedAt time.Time
}

type ContentRepository interface {
	NextID() (uuid.UUID, error)
	Create(ctx context.Context, content *GeneratedContent) error
	List(ctx context.Context, kind ContentKind) ([]GeneratedContent, error)
}
