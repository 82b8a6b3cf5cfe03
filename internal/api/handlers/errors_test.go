package handlers

import (
	stderrors "errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jafarshop/storefront-checkout/internal/address"
	"github.com/jafarshop/storefront-checkout/pkg/errors"
)

func TestErrorResponse_StatusPerClass(t *testing.T) {
	transport := &errors.ErrTransport{Op: "place order", Err: stderrors.New("refused")}

	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", &errors.ErrValidation{Message: "bad"}, http.StatusUnprocessableEntity, "validation"},
		{"stock", &errors.ErrStockConflict{LineID: "l1", Op: "increment", Quantity: 3, Stock: 3}, http.StatusConflict, "stock_conflict"},
		{"conflict", &errors.ErrConflict{}, http.StatusConflict, "conflict"},
		{"invalid state", &errors.ErrInvalidStateTransition{From: "succeeded", To: "retry_card"}, http.StatusConflict, "invalid_state"},
		{"stale", address.ErrStaleResponse, http.StatusConflict, "stale"},
		{"not found", &errors.ErrNotFound{Resource: "order", ID: "o1"}, http.StatusNotFound, "not_found"},
		{"gateway", &errors.ErrGateway{Code: "card_declined", Message: "Your card was declined."}, http.StatusPaymentRequired, "gateway"},
		{"blocked", &errors.ErrBlocked{Op: "x", Err: stderrors.New("open")}, http.StatusServiceUnavailable, "blocked"},
		{"timeout", &errors.ErrTimeout{Op: "x"}, http.StatusGatewayTimeout, "timeout"},
		{"transport", transport, http.StatusBadGateway, "transport"},
		{"placement wraps transport", &errors.ErrPlacement{Err: transport}, http.StatusBadGateway, "placement"},
		{"placement wraps timeout", &errors.ErrPlacement{Err: &errors.ErrTimeout{Op: "place order"}}, http.StatusGatewayTimeout, "placement"},
		{"placement wraps blocked", &errors.ErrPlacement{Err: &errors.ErrBlocked{Op: "place order", Err: stderrors.New("open")}}, http.StatusServiceUnavailable, "placement"},
		{"reconciliation", &errors.ErrReconciliation{OrderID: "o1", PaymentIntentID: "pi_1", Err: transport}, http.StatusInternalServerError, "reconciliation"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := errorResponse(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, body["code"])
		})
	}
}

func TestErrorResponse_PlacementReportsCause(t *testing.T) {
	_, body := errorResponse(&errors.ErrPlacement{Err: &errors.ErrTimeout{Op: "place order", Err: stderrors.New("deadline exceeded")}})
	assert.Equal(t, "timeout", body["cause"])

	_, body = errorResponse(&errors.ErrPlacement{Status: 400, Message: "bad order", Err: &errors.ErrRemote{Op: "place order", Status: 400, Body: "bad order"}})
	assert.Nil(t, body["cause"])
	assert.Equal(t, 400, body["upstream_status"])
}

func TestErrorResponse_ReconciliationAsksForSupport(t *testing.T) {
	_, body := errorResponse(&errors.ErrReconciliation{OrderID: "o1", PaymentIntentID: "pi_1", Err: stderrors.New("500")})
	assert.Equal(t, true, body["contact_support"])
	assert.Equal(t, "o1", body["orderId"])
}

func TestErrorResponse_GatewayMessageIsVerbatim(t *testing.T) {
	_, body := errorResponse(&errors.ErrGateway{Code: "insufficient_funds", Message: "Your card has insufficient funds."})
	assert.Equal(t, "Your card has insufficient funds.", body["error"])
}

func TestErrorResponse_UnknownIsInternal(t *testing.T) {
	status, body := errorResponse(stderrors.New("boom"))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "internal error", body["error"])
}
