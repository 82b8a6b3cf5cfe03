// Package continuation persists the data a checkout needs to resume after
// the browser leaves for the payment gateway and comes back.
package continuation

import (
	"context"
	"strings"

	"github.com/jafarshop/storefront-checkout/pkg/errors"
)

// Field names of the stored token
const (
	KeyOrderID         = "orderId"
	KeyPaymentIntentID = "paymentIntentId"
)

// Token is the continuation of a card checkout
type Token struct {
	OrderID         string `json:"orderId"`
	PaymentIntentID string `json:"paymentIntentId"`
}

// Store is durable, externally keyed storage for tokens. Access follows
// write, then read, then clear, for one active checkout per session.
type Store interface {
	Save(ctx context.Context, sessionID string, token Token) error
	Load(ctx context.Context, sessionID string) (Token, error)
	Clear(ctx context.Context, sessionID string) error
}

func notFound(sessionID string) error {
	return &errors.ErrNotFound{Resource: "checkout continuation", ID: sessionID}
}

func validate(token Token) error {
	if strings.TrimSpace(token.OrderID) == "" {
		return &errors.ErrValidation{Message: "continuation requires an order id", Fields: map[string]string{KeyOrderID: "required"}}
	}
	return nil
}
