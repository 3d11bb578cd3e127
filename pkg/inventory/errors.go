package inventory

import "fmt"

// ValidationError indicates rejected input. Nothing was mutated.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// NotFoundError indicates an unknown product or order id.
type NotFoundError struct {
	Kind string // "product" or "order"
	ID   int
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Kind, e.ID)
}

// OutOfStockError indicates the product has zero units available.
type OutOfStockError struct {
	Product string
}

func (e *OutOfStockError) Error() string {
	return fmt.Sprintf("product %q is out of stock", e.Product)
}

// InsufficientStockError indicates the requested quantity exceeds the
// available stock. Both quantities are reported.
type InsufficientStockError struct {
	Product   string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("requested %d of %q but only %d available", e.Requested, e.Product, e.Available)
}

// AlreadyCancelledError indicates a second cancellation of the same order.
type AlreadyCancelledError struct {
	OrderID int
}

func (e *AlreadyCancelledError) Error() string {
	return fmt.Sprintf("order %d is already cancelled", e.OrderID)
}
