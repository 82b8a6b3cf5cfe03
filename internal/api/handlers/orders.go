package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jafarshop/storefront-checkout/internal/api/middleware"
	"github.com/jafarshop/storefront-checkout/internal/service"
)

// HandleListOrders handles GET /v1/orders
// Query: status (optional delivery status filter)
func HandleListOrders(orders *service.OrderQueryService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		customerID, ok := middleware.GetCustomerID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		views, err := orders.ListOrders(c.Request.Context(), customerID, c.Query("status"))
		if err != nil {
			respondError(c, logger, err, nil)
			return
		}
		c.JSON(http.StatusOK, gin.H{"orders": views, "count": len(views)})
	}
}

// HandleGetOrder handles GET /v1/orders/:id
func HandleGetOrder(orders *service.OrderQueryService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		customerID, ok := middleware.GetCustomerID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		view, err := orders.GetOrder(c.Request.Context(), customerID, c.Param("id"))
		if err != nil {
			respondError(c, logger, err, nil)
			return
		}
		c.JSON(http.StatusOK, view)
	}
}

// HandleStatusVocabulary handles GET /v1/orders/statuses
func HandleStatusVocabulary(orders *service.OrderQueryService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		vocab, err := orders.Vocabulary(c.Request.Context())
		if err != nil {
			respondError(c, logger, err, nil)
			return
		}
		c.JSON(http.StatusOK, vocab)
	}
}
