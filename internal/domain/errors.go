package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Every *Error unwraps to exactly one of these, and the HTTP layer
// picks the status code from the kind.
var (
	ErrValidation      = errors.New("validation failed")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrState           = errors.New("invalid state")
	ErrPaymentDeclined = errors.New("payment declined")
)

// Error is a domain error carrying a kind and a human readable message.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func newError(kind error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Invalid(format string, args ...any) error {
	return newError(ErrValidation, format, args...)
}

func NotFound(entity, id string) error {
	return newError(ErrNotFound, "%s not found: %s", entity, id)
}

func Conflict(format string, args ...any) error {
	return newError(ErrConflict, format, args...)
}

func StateError(format string, args ...any) error {
	return newError(ErrState, format, args...)
}

// Common errors returned by the workflows
var (
	ErrInsufficientStock     = newError(ErrState, "insufficient stock")
	ErrInvalidTransition     = newError(ErrState, "invalid status transition")
	ErrOrderNotCancellable   = newError(ErrState, "order cannot be cancelled in its current status")
	ErrOrderNotModifiable    = newError(ErrState, "order can only be modified while pending or confirmed")
	ErrOrderAlreadyPaid      = newError(ErrConflict, "order has already been paid")
	ErrEmptyCart             = newError(ErrValidation, "cart is empty, nothing to checkout")
	ErrPaymentNotRefundable  = newError(ErrState, "only completed payments can be refunded")
	ErrRefundWindowExpired   = newError(ErrState, "refund window of 30 days has expired")
	ErrRefundExceedsAmount   = newError(ErrValidation, "refund amount exceeds payment amount")
	ErrShipmentDelivered     = newError(ErrState, "shipment has already been delivered")
	ErrInvalidCredentials    = newError(ErrUnauthorized, "invalid email or password")
	ErrEmailTaken            = newError(ErrConflict, "email is already registered")
	ErrDuplicateReview       = newError(ErrConflict, "user has already reviewed this product")
	ErrShipmentExists        = newError(ErrConflict, "order already has a shipment")
	ErrCategoryInUse         = newError(ErrConflict, "category has subcategories or products")
	ErrDeclinedByGateway     = newError(ErrPaymentDeclined, "payment was declined by the gateway")
	ErrPaymentOrderCancelled = newError(ErrState, "cannot pay for a cancelled order")
)
