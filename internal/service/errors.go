package service

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tavola-pos/api/internal/enum"
)

// Errors returned by the order and stock services.
var (
	ErrEmptyItems                = errors.New("items are required")
	ErrInvalidQuantity           = errors.New("quantity must be > 0")
	ErrInvalidMenuItemID         = errors.New("invalid menu_item_id")
	ErrInvalidTableID            = errors.New("invalid table_id")
	ErrInvalidPaymentMethodID    = errors.New("invalid payment_method_id")
	ErrInvalidAmountReceived     = errors.New("invalid amount_received")
	ErrInvalidStockAction        = errors.New("action must be CONSUME or RESTORE")
	ErrMenuItemNotFound          = errors.New("menu item not found")
	ErrMenuItemUnavailable       = errors.New("menu item is not available")
	ErrTableNotFound             = errors.New("table not found")
	ErrOrderNotFound             = errors.New("order not found")
	ErrOrderItemNotFound         = errors.New("order item not found")
	ErrOrderClosed               = errors.New("order is delivered or cancelled; items can no longer change")
	ErrMissingCancellationReason = errors.New("cancellation reason is required")
	ErrLastItemRemoval           = errors.New("an order must keep at least one item; cancel the order instead")
	ErrPaymentMethodNotFound     = errors.New("payment method not found")
	ErrPaymentMethodInactive     = errors.New("payment method is not active")
	ErrExactAmountRequired       = errors.New("amount_received must equal the order total for non-cash payments")
	ErrOrderNotPaid              = errors.New("order must be paid before it can be marked delivered")
	ErrStockNotTracked           = errors.New("menu item does not track stock")
	ErrAmountReceivedRequired    = errors.New("amount_received is required")
)

// InsufficientStockError reports the exact shortfall so the UI can show it.
type InsufficientStockError struct {
	MenuItemID uuid.UUID
	Available  int32
	Requested  int32
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for menu item %s: available %d, requested %d",
		e.MenuItemID, e.Available, e.Requested)
}

// InvalidTransitionError is returned when the lifecycle state machine
// rejects a status change.
type InvalidTransitionError struct {
	From enum.OrderStatus
	To   enum.OrderStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot transition order from %s to %s", e.From, e.To)
}

// InsufficientPaymentError carries the exact remaining amount due.
type InsufficientPaymentError struct {
	Missing decimal.Decimal
}

func (e *InsufficientPaymentError) Error() string {
	return fmt.Sprintf("insufficient payment: %s still due", e.Missing.StringFixed(2))
}
