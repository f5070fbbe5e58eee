package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"storefront/pkg/storefront/domain/model"
	domainservice "storefront/pkg/storefront/domain/service"
)

type ProductInput struct {
	CategoryID  *uuid.UUID
	Name        model.LocalizedText
	Description model.LocalizedText
	PriceCents  int64
	Stock       int
}

func (in ProductInput) validate() error {
	if err := in.Name.Validate("name"); err != nil {
		return err
	}
	if err := in.Description.Validate("description"); err != nil {
		return err
	}
	if in.PriceCents < 0 {
		return errors.Wrap(model.ErrInvalidInput, "price cannot be negative")
	}
	if in.Stock < 0 {
		return errors.Wrap(model.ErrInvalidInput, "stock cannot be negative")
	}
	return nil
}

type CatalogService interface {
	ListProducts(ctx context.Context, filter model.ProductFilter) ([]model.Product, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*model.Product, error)
	CreateProduct(ctx context.Context, caller model.Identity, input ProductInput) (*model.Product, error)
	UpdateProduct(ctx context.Context, caller model.Identity, id uuid.UUID, input ProductInput) (*model.Product, error)
	SetProductActive(ctx context.Context, caller model.Identity, id uuid.UUID, active bool) (*model.Product, error)
	ApplyPromotion(ctx context.Context, caller model.Identity, id uuid.UUID, originalPriceCents int64, discountPercent int) (*model.Product, error)
	ClearPromotion(ctx context.Context, caller model.Identity, id uuid.UUID) (*model.Product, error)
	AdjustStock(ctx context.Context, caller model.Identity, id uuid.UUID, delta int) error
}

func NewCatalogService(repo model.ProductRepository, users model.UserDirectory) CatalogService {
	return &catalogService{repo: repo, users: users}
}

type catalogService struct {
	repo  model.ProductRepository
	users model.UserDirectory
}

func (s *catalogService) ListProducts(ctx context.Context, filter model.ProductFilter) ([]model.Product, error) {
	return s.repo.List(ctx, filter)
}

func (s *catalogService) GetProduct(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	return s.repo.Find(ctx, id)
}

func (s *catalogService) CreateProduct(ctx context.Context, caller model.Identity, input ProductInput) (*model.Product, error) {
	if err := requireRole(ctx, s.users, caller, model.RoleAdmin, model.RoleVendor); err != nil {
		return nil, err
	}
	if err := input.validate(); err != nil {
		return nil, err
	}

	isAdmin, err := s.users.HasRole(ctx, caller.UserID, model.RoleAdmin)
	if err != nil {
		return nil, err
	}

	productID, err := s.repo.NextID()
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	product := &model.Product{
		ID:          productID,
		CategoryID:  input.CategoryID,
		Name:        input.Name,
		Description: input.Description,
		PriceCents:  input.PriceCents,
		Stock:       input.Stock,
		IsActive:    true,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if !isAdmin {
		vendorID := caller.UserID
		product.VendorID = &vendorID
	}

	if err := s.repo.Create(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

func (s *catalogService) UpdateProduct(ctx context.Context, caller model.Identity, id uuid.UUID, input ProductInput) (*model.Product, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	return s.executeOnProduct(ctx, caller, id, func(p *model.Product) error {
		p.CategoryID = input.CategoryID
		p.Name = input.Name
		p.Description = input.Description
		p.PriceCents = input.PriceCents
		p.OriginalPriceCents = nil
		p.DiscountPercent = 0
		return nil
	})
}

func (s *catalogService) SetProductActive(ctx context.Context, caller model.Identity, id uuid.UUID, active bool) (*model.Product, error) {
	return s.executeOnProduct(ctx, caller, id, func(p *model.Product) error {
		p.IsActive = active
		return nil
	})
}

func (s *catalogService) ApplyPromotion(ctx context.Context, caller model.Identity, id uuid.UUID, originalPriceCents int64, discountPercent int) (*model.Product, error) {
	price, err := domainservice.PromotionPrice(originalPriceCents, discountPercent)
	if err != nil {
		return nil, err
	}
	return s.executeOnProduct(ctx, caller, id, func(p *model.Product) error {
		original := originalPriceCents
		p.OriginalPriceCents = &original
		p.DiscountPercent = discountPercent
		p.PriceCents = price
		return nil
	})
}

func (s *catalogService) ClearPromotion(ctx context.Context, caller model.Identity, id uuid.UUID) (*model.Product, error) {
	return s.executeOnProduct(ctx, caller, id, func(p *model.Product) error {
		if p.OriginalPriceCents != nil {
			p.PriceCents = *p.OriginalPriceCents
		}
		p.OriginalPriceCents = nil
		p.DiscountPercent = 0
		return nil
	})
}

func (s *catalogService) AdjustStock(ctx context.Context, caller model.Identity, id uuid.UUID, delta int) error {
	if delta == 0 {
		return errors.Wrap(model.ErrInvalidInput, "stock delta cannot be zero")
	}
	if _, err := s.authorizedProduct(ctx, caller, id); err != nil {
		return err
	}
	return s.repo.AdjustStock(ctx, id, delta)
}

func (s *catalogService) executeOnProduct(ctx context.Context, caller model.Identity, id uuid.UUID, action func(p *model.Product) error) (*model.Product, error) {
	product, err := s.authorizedProduct(ctx, caller, id)
	if err != nil {
		return nil, err
	}

	if err := action(product); err != nil {
		return nil, err
	}

	product.Version++
	product.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

// authorizedProduct loads a product the caller may manage: admins manage
// every product, vendors only their own.
func (s *catalogService) authorizedProduct(ctx context.Context, caller model.Identity, id uuid.UUID) (*model.Product, error) {
	if err := requireIdentity(caller); err != nil {
		return nil, err
	}
	roles, err := s.users.Roles(ctx, caller.UserID)
	if err != nil {
		return nil, err
	}
	var isAdmin, isVendor bool
	for _, r := range roles {
		isAdmin = isAdmin || r == model.RoleAdmin
		isVendor = isVendor || r == model.RoleVendor
	}
	if !isAdmin && !isVendor {
		return nil, model.ErrForbidden
	}

	product, err := s.repo.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !isAdmin && !product.OwnedBy(caller.UserID) {
		return nil, model.ErrProductNotFound
	}
	return product, nil
}
