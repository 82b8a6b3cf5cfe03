package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jafarshop/storefront-checkout/internal/api/middleware"
	"github.com/jafarshop/storefront-checkout/internal/payment"
	"github.com/jafarshop/storefront-checkout/internal/service"
)

// Gateways append the client secret to the return URL under this name
const returnSecretParam = "payment_intent_client_secret"

// HandlePlaceOrder handles POST /v1/checkout/orders
func HandlePlaceOrder(checkout *service.CheckoutService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		customerID, ok := middleware.GetCustomerID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		var req service.PlaceOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}

		idem := middleware.GetIdempotencyInfo(c)
		result, err := checkout.PlaceOrder(c.Request.Context(), customerID, req, service.IdempotencyInfo{
			Key:             idem.Key,
			RequestHash:     idem.RequestHash,
			ExistingOrderID: idem.ExistingOrderID,
		})
		if err != nil {
			respondError(c, logger, err, nil)
			return
		}

		status := http.StatusCreated
		if idem.Replay() {
			status = http.StatusOK
		}
		c.JSON(status, result)
	}
}

// HandleStartCardPayment handles POST /v1/payments/card
func HandleStartCardPayment(checkout *service.CheckoutService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		customerID, ok := middleware.GetCustomerID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		var req service.OrderRefRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}

		out, err := checkout.StartCardPayment(c.Request.Context(), customerID, req.OrderID)
		respondOutcome(c, logger, out, err)
	}
}

// HandleVerifyCardPayment handles POST /v1/payments/card/verify and the
// gateway redirect GET /v1/payments/card/return
func HandleVerifyCardPayment(checkout *service.CheckoutService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		customerID, ok := middleware.GetCustomerID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		var secret string
		if c.Request.Method == http.MethodGet {
			secret = c.Query(returnSecretParam)
		} else {
			var req service.VerifyPaymentRequest
			if err := c.ShouldBindJSON(&req); err != nil {
				bindError(c, err)
				return
			}
			secret = req.ClientSecret
		}

		out, err := checkout.VerifyCardPayment(c.Request.Context(), customerID, secret)
		respondOutcome(c, logger, out, err)
	}
}

// HandleReconcileCardPayment handles POST /v1/payments/card/reconcile
func HandleReconcileCardPayment(checkout *service.CheckoutService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		customerID, ok := middleware.GetCustomerID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		out, err := checkout.ReconcileCardPayment(c.Request.Context(), customerID)
		respondOutcome(c, logger, out, err)
	}
}

// HandleRetryCard handles POST /v1/payments/card/retry
func HandleRetryCard(checkout *service.CheckoutService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		customerID, ok := middleware.GetCustomerID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		out, err := checkout.RetryCard(customerID)
		respondOutcome(c, logger, out, err)
	}
}

// HandleConfirmCOD handles POST /v1/payments/cod
func HandleConfirmCOD(checkout *service.CheckoutService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		customerID, ok := middleware.GetCustomerID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		var req service.OrderRefRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}

		out, err := checkout.ConfirmCOD(c.Request.Context(), customerID, req.OrderID)
		respondOutcome(c, logger, out, err)
	}
}

// HandlePaymentState handles GET /v1/payments/state
func HandlePaymentState(checkout *service.CheckoutService) gin.HandlerFunc {
	return func(c *gin.Context) {
		customerID, ok := middleware.GetCustomerID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.JSON(http.StatusOK, checkout.PaymentState(customerID))
	}
}

func respondOutcome(c *gin.Context, logger *zap.Logger, out payment.Outcome, err error) {
	if err != nil {
		respondError(c, logger, err, &out)
		return
	}
	c.JSON(http.StatusOK, out)
}
