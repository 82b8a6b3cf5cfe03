package payment

import (
	"context"
	stderrors "errors"
	"net/http"
	"strings"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"
	"go.uber.org/zap"

	"github.com/jafarshop/storefront-checkout/internal/domain"
	"github.com/jafarshop/storefront-checkout/pkg/errors"
)

const orderIDMetadataKey = "order_id"

type stripePaymentIntentAPI interface {
	New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
	Get(id string, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

// StripeGateway implements Gateway with Stripe payment intents
type StripeGateway struct {
	intents stripePaymentIntentAPI
	logger  *zap.Logger
}

// NewStripeGateway creates a gateway from a secret key. backends may be nil.
func NewStripeGateway(secretKey string, backends *stripe.Backends, logger *zap.Logger) (*StripeGateway, error) {
	secretKey = strings.TrimSpace(secretKey)
	if secretKey == "" {
		return nil, stderrors.New("stripe: secret key is required")
	}
	sc := client.New(secretKey, backends)
	return newStripeGateway(sc.PaymentIntents, logger), nil
}

func newStripeGateway(intents stripePaymentIntentAPI, logger *zap.Logger) *StripeGateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StripeGateway{intents: intents, logger: logger}
}

func (g *StripeGateway) CreateIntent(ctx context.Context, req IntentRequest) (domain.PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(req.AmountMinorUnits),
		Currency: stripe.String(req.Currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}
	params.AddMetadata(orderIDMetadataKey, req.OrderID)

	intent, err := g.intents.New(params)
	if err != nil {
		return domain.PaymentIntent{}, classifyStripeError("create payment intent", req.OrderID, err)
	}
	g.logger.Info("Payment intent created",
		zap.String("order_id", req.OrderID),
		zap.String("payment_intent_id", intent.ID),
		zap.Int64("amount", req.AmountMinorUnits),
		zap.String("currency", req.Currency),
	)
	return toDomainIntent(intent), nil
}

func (g *StripeGateway) RetrieveIntent(ctx context.Context, clientSecret string) (domain.PaymentIntent, error) {
	intentID, err := intentIDFromSecret(clientSecret)
	if err != nil {
		return domain.PaymentIntent{}, err
	}
	intent, err := g.get(ctx, intentID)
	if err != nil {
		return domain.PaymentIntent{}, err
	}
	if intent.ClientSecret != "" && intent.ClientSecret != clientSecret {
		return domain.PaymentIntent{}, &errors.ErrValidation{Message: "client secret does not match payment intent"}
	}
	return intent, nil
}

func (g *StripeGateway) GetIntent(ctx context.Context, intentID string) (domain.PaymentIntent, error) {
	return g.get(ctx, intentID)
}

func (g *StripeGateway) get(ctx context.Context, intentID string) (domain.PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	intent, err := g.intents.Get(intentID, params)
	if err != nil {
		return domain.PaymentIntent{}, classifyStripeError("retrieve payment intent", intentID, err)
	}
	return toDomainIntent(intent), nil
}

// intentIDFromSecret extracts pi_123 from pi_123_secret_abc
func intentIDFromSecret(clientSecret string) (string, error) {
	idx := strings.Index(clientSecret, "_secret_")
	if idx <= 0 {
		return "", &errors.ErrValidation{Message: "malformed client secret", Fields: map[string]string{"clientSecret": "invalid"}}
	}
	return clientSecret[:idx], nil
}

func toDomainIntent(intent *stripe.PaymentIntent) domain.PaymentIntent {
	out := domain.PaymentIntent{
		ID:               intent.ID,
		ClientSecret:     intent.ClientSecret,
		AmountMinorUnits: intent.Amount,
		Currency:         string(intent.Currency),
		Status:           string(intent.Status),
	}
	if intent.Metadata != nil {
		out.OrderID = intent.Metadata[orderIDMetadataKey]
	}
	return out
}

// classifyStripeError sorts Stripe failures into the checkout error classes:
// card problems are reported verbatim, rejected credentials mean the call was
// blocked, anything without a Stripe error body never reached the gateway.
func classifyStripeError(op, intentID string, err error) error {
	if stderrors.Is(err, context.DeadlineExceeded) {
		return &errors.ErrTimeout{Op: op, Err: err}
	}
	var stripeErr *stripe.Error
	if !stderrors.As(err, &stripeErr) {
		return &errors.ErrTransport{Op: op, Err: err}
	}
	switch {
	case stripeErr.Type == stripe.ErrorTypeCard:
		return &errors.ErrGateway{Code: string(stripeErr.Code), Message: stripeErr.Msg}
	case stripeErr.HTTPStatusCode == http.StatusUnauthorized || stripeErr.HTTPStatusCode == http.StatusForbidden:
		return &errors.ErrBlocked{Op: op, Err: err}
	case stripeErr.HTTPStatusCode == http.StatusNotFound:
		return &errors.ErrNotFound{Resource: "payment intent", ID: intentID}
	case stripeErr.HTTPStatusCode >= http.StatusInternalServerError:
		return &errors.ErrTransport{Op: op, Err: err}
	default:
		return &errors.ErrGateway{Code: string(stripeErr.Code), Message: stripeErr.Msg}
	}
}
