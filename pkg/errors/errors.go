package errors

import (
	"fmt"
)

// ErrNotFound is returned when a resource is not found
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrUnauthorized is returned when authentication fails
type ErrUnauthorized struct {
	Message string
}

func (e *ErrUnauthorized) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "unauthorized"
}

// ErrConflict is returned when there's a conflict (e.g., idempotency, in-flight mutation)
type ErrConflict struct {
	Message string
}

func (e *ErrConflict) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "conflict"
}

// ErrValidation is returned when validation fails before any network call
type ErrValidation struct {
	Message string
	Fields  map[string]string
}

func (e *ErrValidation) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "validation failed"
}

// ErrInvalidStateTransition is returned when an invalid state transition is attempted
type ErrInvalidStateTransition struct {
	From string
	To   string
}

func (e *ErrInvalidStateTransition) Error() string {
	return fmt.Sprintf("invalid state transition from %s to %s", e.From, e.To)
}

// ErrStockConflict is returned when a quantity change would leave the allowed range.
// It is raised locally and never reaches the network.
type ErrStockConflict struct {
	LineID   string
	Op       string
	Quantity int
	Stock    int
}

func (e *ErrStockConflict) Error() string {
	if e.Op == "decrement" {
		return fmt.Sprintf("line %s: quantity cannot go below 1, delete the line instead", e.LineID)
	}
	return fmt.Sprintf("line %s: quantity %d would exceed stock %d", e.LineID, e.Quantity+1, e.Stock)
}

// ErrTransport is returned when a remote service could not be reached
type ErrTransport struct {
	Op  string
	Err error
}

func (e *ErrTransport) Error() string {
	return fmt.Sprintf("%s: service unreachable: %v", e.Op, e.Err)
}

func (e *ErrTransport) Unwrap() error { return e.Err }

// ErrTimeout is returned when a remote call exceeded its deadline
type ErrTimeout struct {
	Op  string
	Err error
}

func (e *ErrTimeout) Error() string {
	return fmt.Sprintf("%s: timed out", e.Op)
}

func (e *ErrTimeout) Unwrap() error { return e.Err }

// ErrBlocked is returned when a call was refused before reaching the remote side
// (open circuit breaker, rejected credentials).
type ErrBlocked struct {
	Op  string
	Err error
}

func (e *ErrBlocked) Error() string {
	return fmt.Sprintf("%s: request blocked: %v", e.Op, e.Err)
}

func (e *ErrBlocked) Unwrap() error { return e.Err }

// ErrGateway is returned when the payment gateway declines or rejects a card.
// Message is the gateway's text, reported verbatim.
type ErrGateway struct {
	Code    string
	Message string
}

func (e *ErrGateway) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("payment gateway: %s (%s)", e.Message, e.Code)
	}
	return "payment gateway: " + e.Message
}

// ErrReconciliation is returned when the gateway charged the card but the
// order service failed to record it. Money has moved; this is not a failed payment.
type ErrReconciliation struct {
	OrderID         string
	PaymentIntentID string
	Err             error
}

func (e *ErrReconciliation) Error() string {
	return fmt.Sprintf("payment %s for order %s succeeded but could not be recorded: %v", e.PaymentIntentID, e.OrderID, e.Err)
}

func (e *ErrReconciliation) Unwrap() error { return e.Err }

// ErrPlacement is returned when the order service rejects order creation.
// No partial order exists.
type ErrPlacement struct {
	Status  int
	Message string
	Err     error
}

func (e *ErrPlacement) Error() string {
	if e.Message != "" {
		return "order placement failed: " + e.Message
	}
	if e.Err != nil {
		return fmt.Sprintf("order placement failed: %v", e.Err)
	}
	return "order placement failed"
}

func (e *ErrPlacement) Unwrap() error { return e.Err }

// ErrRemote is returned when a remote service answered with a non-2xx status
type ErrRemote struct {
	Op     string
	Status int
	Body   string
}

func (e *ErrRemote) Error() string {
	return fmt.Sprintf("%s returned %d: %s", e.Op, e.Status, e.Body)
}
