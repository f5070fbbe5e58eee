package service

import (
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"storefront/pkg/storefront/domain/model"
)

var hundred = decimal.NewFromInt(100)

// PromotionPrice computes round(original * (1 - discount/100)), rounding half
// away from zero.
func PromotionPrice(originalCents int64, discountPercent int) (int64, error) {
	if originalCents < 0 {
		return 0, errors.Wrap(model.ErrInvalidInput, "original price cannot be negative")
	}
	if discountPercent < 0 || discountPercent > 100 {
		return 0, errors.Wrap(model.ErrInvalidInput, "discount percent must be between 0 and 100")
	}

	price := decimal.NewFromInt(originalCents).
		Mul(hundred.Sub(decimal.NewFromInt(int64(discountPercent)))).
		Div(hundred).
		Round(0)
	return price.IntPart(), nil
}

func LineTotal(unitPriceCents int64, quantity int) int64 {
	return unitPriceCents * int64(quantity)
}

const loyaltyCentsPerPoint = 100

func LoyaltyPointsFor(totalCents int64) int64 {
	if totalCents <= 0 {
		return 0
	}
	return totalCents / loyaltyCentsPerPoint
}
