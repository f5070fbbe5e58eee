package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"storefront/pkg/storefront/domain/model"
	domainservice "storefront/pkg/storefront/domain/service"
)

type CartLine struct {
	ProductID      uuid.UUID
	Name           model.LocalizedText
	UnitPriceCents int64
	Quantity       int
	LineTotalCents int64
	Available      bool
}

type CartView struct {
	Lines      []CartLine
	TotalCents int64
}

type CartService interface {
	View(ctx context.Context, caller model.Identity) (*CartView, error)
	AddItem(ctx context.Context, caller model.Identity, productID uuid.UUID, quantity int) error
	SetQuantity(ctx context.Context, caller model.Identity, productID uuid.UUID, quantity int) error
	RemoveItem(ctx context.Context, caller model.Identity, productID uuid.UUID) error
	Clear(ctx context.Context, caller model.Identity) error
}

func NewCartService(carts model.CartRepository, products model.ProductRepository) CartService {
	return &cartService{carts: carts, products: products}
}

type cartService struct {
	carts    model.CartRepository
	products model.ProductRepository
}

// View prices every line from the catalog; the cart itself stores no price.
func (s *cartService) View(ctx context.Context, caller model.Identity) (*CartView, error) {
	if err := requireIdentity(caller); err != nil {
		return nil, err
	}
	items, err := s.carts.Items(ctx, caller.UserID)
	if err != nil {
		return nil, err
	}
	products, err := s.products.FindMany(ctx, productIDs(items))
	if err != nil {
		return nil, err
	}

	view := &CartView{Lines: make([]CartLine, 0, len(items))}
	for _, item := range items {
		line := CartLine{ProductID: item.ProductID, Quantity: item.Quantity}
		if p, ok := products[item.ProductID]; ok {
			line.Name = p.Name
			line.UnitPriceCents = p.PriceCents
			line.Available = p.IsActive && p.Stock >= item.Quantity
			if p.IsActive {
				line.LineTotalCents = domainservice.LineTotal(p.PriceCents, item.Quantity)
				view.TotalCents += line.LineTotalCents
			}
		}
		view.Lines = append(view.Lines, line)
	}
	return view, nil
}

func (s *cartService) AddItem(ctx context.Context, caller model.Identity, productID uuid.UUID, quantity int) error {
	if err := requireIdentity(caller); err != nil {
		return err
	}
	if quantity <= 0 {
		return errors.Wrap(model.ErrInvalidInput, "quantity must be positive")
	}
	product, err := s.products.Find(ctx, productID)
	if err != nil {
		return err
	}
	if !product.IsActive {
		return model.ErrProductNotFound
	}
	return s.carts.Add(ctx, caller.UserID, productID, quantity)
}

func (s *cartService) SetQuantity(ctx context.Context, caller model.Identity, productID uuid.UUID, quantity int) error {
	if err := requireIdentity(caller); err != nil {
		return err
	}
	if quantity <= 0 {
		return s.carts.Remove(ctx, caller.UserID, productID)
	}
	return s.carts.SetQuantity(ctx, caller.UserID, productID, quantity)
}

func (s *cartService) RemoveItem(ctx context.Context, caller model.Identity, productID uuid.UUID) error {
	if err := requireIdentity(caller); err != nil {
		return err
	}
	return s.carts.Remove(ctx, caller.UserID, productID)
}

func (s *cartService) Clear(ctx context.Context, caller model.Identity) error {
	if err := requireIdentity(caller); err != nil {
		return err
	}
	return s.carts.Clear(ctx, caller.UserID)
}

func productIDs(items []model.CartItem) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}
	return ids
}
