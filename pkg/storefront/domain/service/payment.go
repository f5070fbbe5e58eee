package service

import (
	"github.com/pkg/errors"

	"storefront/pkg/storefront/domain/model"
)

func ValidateConfirmationTarget(status model.PaymentStatus) error {
	if !status.IsTerminal() {
		return errors.Wrapf(model.ErrInvalidInput, "payment status %q cannot be confirmed", status)
	}
	return nil
}

// ResolveMissedConfirmation explains a confirmation that did not settle a
// pending payment. Re-confirming with the settled status is a silent no-op,
// a different status is rejected.
func ResolveMissedConfirmation(current, target model.PaymentStatus) error {
	if current == target {
		return nil
	}
	return model.ErrPaymentAlreadySettled
}
