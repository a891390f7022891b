package service

import "errors"

// Validation errors raised before any datastore work. Handlers translate
// them into HTTP 400 with the message text.
var (
	ErrInvalidPaymentMethod = errors.New("payment_method must be bank_transfer or pay_on_arrival")
	ErrInvalidAmount        = errors.New("payment_amount_cents is required")
)
