package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by a service wraps exactly one of them.
var (
	ErrValidation  = errors.New("validation error")
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrTamper      = errors.New("tamper detected")
	ErrAuth        = errors.New("authentication failed")
	ErrUpstream    = errors.New("upstream failure")
	ErrPersistence = errors.New("persistence failure")
)

var (
	ErrOrderNotFound    = fmt.Errorf("%w: order", ErrNotFound)
	ErrItemUnavailable  = fmt.Errorf("%w: catalog item unavailable", ErrNotFound)
	ErrPriceChanged     = fmt.Errorf("%w: price changed", ErrTamper)
	ErrTotalMismatch    = fmt.Errorf("%w: total mismatch", ErrTamper)
	ErrOrderNotPayable  = fmt.Errorf("%w: order already paid or cancelled", ErrConflict)
	ErrDuplicateIntent  = fmt.Errorf("%w: active payment intent exists", ErrConflict)
	ErrInvalidSignature = fmt.Errorf("%w: invalid webhook signature", ErrAuth)
	ErrMissingSignature = fmt.Errorf("%w: missing webhook signature", ErrAuth)
	ErrMissingPaymentID = fmt.Errorf("%w: missing payment id", ErrValidation)
	ErrInvalidAccess    = fmt.Errorf("%w: invalid or expired access token", ErrAuth)
	ErrLessonNotFound   = fmt.Errorf("%w: lesson", ErrNotFound)
)

// publicMessages is ordered: specific errors before their kinds.
var publicMessages = []struct {
	err error
	msg string
}{
	{ErrPriceChanged, "Prices changed since the order was created, please reload your cart"},
	{ErrTotalMismatch, "The order total does not match current prices, please reload your cart"},
	{ErrItemUnavailable, "One or more items are no longer available, please reload your cart"},
	{ErrOrderNotFound, "Order not found"},
	{ErrOrderNotPayable, "This order was already paid or cancelled"},
	{ErrDuplicateIntent, "A payment for this order is already in progress"},
	{ErrMissingPaymentID, "No payment id provided"},
	{ErrInvalidAccess, "Invalid or expired access token"},
	{ErrLessonNotFound, "Lesson not found"},
	{ErrValidation, "Invalid request"},
	{ErrNotFound, "Not found"},
	{ErrConflict, "Request conflicts with the current state"},
	{ErrTamper, "Request rejected, please reload your cart"},
	{ErrAuth, "Unauthorized"},
	{ErrUpstream, "Payment provider unavailable, please try again"},
}

// PublicMessage returns a user-safe message for err. It never includes wrapped details.
func PublicMessage(err error) string {
	for _, pm := range publicMessages {
		if errors.Is(err, pm.err) {
			return pm.msg
		}
	}
	return "Internal error"
}

// Validationf returns an ErrValidation-kind error.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
