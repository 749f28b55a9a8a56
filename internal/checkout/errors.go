package checkout

import (
	"errors"
	"fmt"
)

// Validation-class errors never reach persistence; ErrStockConflict is the one
// rejection that leaves a durable FAILED order behind.
var (
	ErrEmptyCart     = errors.New("items required")
	ErrStockConflict = errors.New("stock conflict detected")
)

type ItemNotFoundError struct{ SKU string }

func (e *ItemNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.SKU)
}

type InsufficientStockError struct{ SKU string }

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s", e.SKU)
}

type InvalidQuantityError struct{ SKU string }

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("invalid quantity for %s", e.SKU)
}
