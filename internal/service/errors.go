package service

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrNotFound covers a missing product, location, sale, or till record.
var ErrNotFound = errors.New("not found")

// InsufficientStockError is returned before any write when a consuming
// operation would drive available quantity negative. Carries enough
// context for a user-facing message.
type InsufficientStockError struct {
	ProductID  uuid.UUID
	LocationID uuid.UUID
	Requested  int
	Available  int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s at location %s: requested %d, available %d",
		e.ProductID, e.LocationID, e.Requested, e.Available)
}

// InvalidOperationError marks a malformed request: zero/negative quantity,
// same source and destination, refund exceeding what was sold, double
// void, double close.
type InvalidOperationError struct {
	Reason string
}

func (e *InvalidOperationError) Error() string { return e.Reason }

func invalidOp(format string, args ...interface{}) error {
	return &InvalidOperationError{Reason: fmt.Sprintf(format, args...)}
}

// ConsistencyError should be unreachable in correct code — for example a
// movement whose new quantity disagrees with previous + delta. It aborts
// the operation and is logged for investigation; never auto-corrected.
type ConsistencyError struct {
	Detail string
}

func (e *ConsistencyError) Error() string { return "consistency violation: " + e.Detail }
