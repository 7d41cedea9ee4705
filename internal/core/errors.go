package core

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingLineItemID means the request did not identify a line item at all.
	ErrMissingLineItemID = errors.New("line item id is required")
	ErrLineItemNotFound  = errors.New("line item not found")
	ErrOrderNotFound     = errors.New("order not found")

	// ErrForbidden is matched by every *DeniedError.
	ErrForbidden = errors.New("forbidden")

	ErrInvalidTaxRate    = errors.New("invalid tax rate")
	ErrInvalidCalculator = errors.New("invalid calculator")
	ErrUnsupportedTarget = errors.New("calculator target is neither a line item nor an order")
)

// DeniedError is returned when the deletion policy refuses a request.
type DeniedError struct {
	Reason DenyReason
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("forbidden: %s", e.Reason)
}

// Is lets errors.Is(err, ErrForbidden) match any denial.
func (e *DeniedError) Is(target error) bool {
	return target == ErrForbidden
}
