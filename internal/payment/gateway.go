package payment

import (
	"context"

	"github.com/jafarshop/storefront-checkout/internal/domain"
)

// IntentRequest asks the gateway for a payment intent
type IntentRequest struct {
	OrderID          string
	AmountMinorUnits int64
	Currency         string
	IdempotencyKey   string
}

// Gateway is the card payment gateway. The card itself is collected by the
// gateway's own widget in the browser.
type Gateway interface {
	CreateIntent(ctx context.Context, req IntentRequest) (domain.PaymentIntent, error)
	// RetrieveIntent looks an intent up by the client secret handed back on redirect
	RetrieveIntent(ctx context.Context, clientSecret string) (domain.PaymentIntent, error)
	GetIntent(ctx context.Context, intentID string) (domain.PaymentIntent, error)
}
