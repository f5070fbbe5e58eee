package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"storefront/pkg/storefront/domain/model"
)

type WishlistService interface {
	Toggle(ctx context.Context, caller model.Identity, productID uuid.UUID) (bool, error)
	List(ctx context.Context, caller model.Identity) ([]model.Product, error)
}

func NewWishlistService(wishlist model.WishlistRepository, products model.ProductRepository) WishlistService {
	return &wishlistService{wishlist: wishlist, products: products}
}

type wishlistService struct {
	wishlist model.WishlistRepository
	products model.ProductRepository
}

func (s *wishlistService) Toggle(ctx context.Context, caller model.Identity, productID uuid.UUID) (bool, error) {
	if err := requireIdentity(caller); err != nil {
		return false, err
	}
	if productID == uuid.Nil {
		return false, errors.Wrap(model.ErrInvalidInput, "product id is required")
	}
	if _, err := s.products.Find(ctx, productID); err != nil {
		return false, err
	}
	return s.wishlist.Toggle(ctx, caller.UserID, productID, time.Now().UTC())
}

// List returns wished products in the order they were added. Products that
// were disabled since are left out.
func (s *wishlistService) List(ctx context.Context, caller model.Identity) ([]model.Product, error) {
	if err := requireIdentity(caller); err != nil {
		return nil, err
	}
	items, err := s.wishlist.List(ctx, caller.UserID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}

	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}
	products, err := s.products.FindMany(ctx, ids)
	if err != nil {
		return nil, err
	}

	result := make([]model.Product, 0, len(items))
	for _, item := range items {
		if p, ok := products[item.ProductID]; ok && p.IsActive {
			result = append(result, p)
		}
	}
	return result, nil
}
