package handlers

import (
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jafarshop/storefront-checkout/internal/address"
	"github.com/jafarshop/storefront-checkout/internal/payment"
	"github.com/jafarshop/storefront-checkout/pkg/errors"
)

// respondError writes the JSON body for a checkout error class. out carries
// the payment state for payment endpoints and may be nil.
func respondError(c *gin.Context, logger *zap.Logger, err error, out *payment.Outcome) {
	status, body := errorResponse(err)
	if out != nil && out.State != "" {
		body["state"] = out.State
		if out.OrderID != "" {
			body["orderId"] = out.OrderID
		}
	}
	if status >= http.StatusInternalServerError {
		logger.Error("Request failed",
			zap.String("path", c.FullPath()),
			zap.Int("status", status),
			zap.Error(err),
		)
	}
	c.JSON(status, body)
}

func errorResponse(err error) (int, gin.H) {
	var (
		validation   *errors.ErrValidation
		stock        *errors.ErrStockConflict
		conflict     *errors.ErrConflict
		notFound     *errors.ErrNotFound
		unauthorized *errors.ErrUnauthorized
		gateway      *errors.ErrGateway
		blocked      *errors.ErrBlocked
		transport    *errors.ErrTransport
		timeout      *errors.ErrTimeout
		reconcile    *errors.ErrReconciliation
		placement    *errors.ErrPlacement
		invalidState *errors.ErrInvalidStateTransition
	)

	switch {
	case stderrors.As(err, &reconcile):
		return http.StatusInternalServerError, gin.H{
			"error":           "payment received but the order could not be updated",
			"code":            "reconciliation",
			"contact_support": true,
			"orderId":         reconcile.OrderID,
			"paymentIntentId": reconcile.PaymentIntentID,
		}
	case stderrors.As(err, &placement):
		body := gin.H{"error": placement.Error(), "code": "placement"}
		if placement.Status != 0 {
			body["upstream_status"] = placement.Status
		}
		// a timed-out placement may still have created the order
		switch {
		case stderrors.As(placement.Err, &timeout):
			body["cause"] = "timeout"
			return http.StatusGatewayTimeout, body
		case stderrors.As(placement.Err, &blocked):
			body["cause"] = "blocked"
			return http.StatusServiceUnavailable, body
		case stderrors.As(placement.Err, &transport):
			body["cause"] = "transport"
		}
		return http.StatusBadGateway, body
	case stderrors.As(err, &validation):
		body := gin.H{"error": validation.Error(), "code": "validation"}
		if len(validation.Fields) > 0 {
			body["fields"] = validation.Fields
		}
		return http.StatusUnprocessableEntity, body
	case stderrors.As(err, &stock):
		return http.StatusConflict, gin.H{"error": stock.Error(), "code": "stock_conflict", "lineId": stock.LineID}
	case stderrors.As(err, &conflict):
		return http.StatusConflict, gin.H{"error": conflict.Error(), "code": "conflict"}
	case stderrors.As(err, &invalidState):
		return http.StatusConflict, gin.H{"error": invalidState.Error(), "code": "invalid_state"}
	case stderrors.Is(err, address.ErrStaleResponse):
		return http.StatusConflict, gin.H{"error": err.Error(), "code": "stale"}
	case stderrors.As(err, &notFound):
		return http.StatusNotFound, gin.H{"error": notFound.Error(), "code": "not_found"}
	case stderrors.As(err, &unauthorized):
		return http.StatusUnauthorized, gin.H{"error": unauthorized.Error(), "code": "unauthorized"}
	case stderrors.As(err, &gateway):
		return http.StatusPaymentRequired, gin.H{"error": gateway.Message, "code": "gateway", "decline_code": gateway.Code}
	case stderrors.As(err, &blocked):
		return http.StatusServiceUnavailable, gin.H{"error": "service temporarily unavailable", "code": "blocked"}
	case stderrors.As(err, &timeout):
		return http.StatusGatewayTimeout, gin.H{"error": timeout.Error(), "code": "timeout"}
	case stderrors.As(err, &transport):
		return http.StatusBadGateway, gin.H{"error": "upstream service unreachable", "code": "transport"}
	default:
		return http.StatusInternalServerError, gin.H{"error": "internal error"}
	}
}

// bindError answers a request whose body failed binding
func bindError(c *gin.Context, err error) {
	c.JSON(http.StatusUnprocessableEntity, gin.H{
		"error":   "validation failed",
		"code":    "validation",
		"details": err.Error(),
	})
}
