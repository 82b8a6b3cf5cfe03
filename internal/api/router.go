package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jafarshop/storefront-checkout/internal/address"
	"github.com/jafarshop/storefront-checkout/internal/api/handlers"
	"github.com/jafarshop/storefront-checkout/internal/api/middleware"
	"github.com/jafarshop/storefront-checkout/internal/config"
	"github.com/jafarshop/storefront-checkout/internal/metrics"
	"github.com/jafarshop/storefront-checkout/internal/repository"
	"github.com/jafarshop/storefront-checkout/internal/service"
)

// Dependencies are the services the router exposes
type Dependencies struct {
	Sessions  *service.Sessions
	Checkout  *service.CheckoutService
	Orders    *service.OrderQueryService
	Addresses handlers.AddressBook
	Validator *address.Validator
	Repos     *repository.Repositories
	Metrics   *metrics.CheckoutMetrics
}

// NewRouter creates and configures the Gin router
func NewRouter(cfg *config.Config, deps Dependencies, logger *zap.Logger) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	if err := handlers.RegisterBindingValidators(deps.Validator); err != nil {
		logger.Error("Failed to register binding validators", zap.Error(err))
	}

	router := gin.New()

	// Middleware
	router.Use(customRecovery(logger))
	router.Use(loggingMiddleware(logger))
	if deps.Metrics != nil {
		router.Use(deps.Metrics.Middleware())
		router.GET("/metrics", gin.WrapH(metrics.Handler()))
	}

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "sessions": deps.Sessions.Len()})
	})

	v1 := router.Group("/v1")
	v1.Use(middleware.AuthMiddleware(cfg.API.EdgeKeyHash, logger))
	{
		v1.GET("/cart", handlers.HandleGetCart(deps.Sessions, logger))
		v1.GET("/cart/stream", handlers.HandleCartStream(deps.Sessions, logger))
		v1.PATCH("/cart/lines/:lineId", handlers.HandleMutateCartLine(deps.Sessions, logger))
		v1.DELETE("/cart/lines/:lineId", handlers.HandleDeleteCartLine(deps.Sessions, logger))

		v1.GET("/address/provinces", handlers.HandleListProvinces(deps.Sessions, logger))
		v1.POST("/address/province", handlers.HandleSelectRegion(address.LevelProvince, deps.Sessions, logger))
		v1.POST("/address/district", handlers.HandleSelectRegion(address.LevelDistrict, deps.Sessions, logger))
		v1.POST("/address/ward", handlers.HandleSelectRegion(address.LevelWard, deps.Sessions, logger))
		v1.GET("/address/state", handlers.HandleAddressState(deps.Sessions))

		v1.GET("/addresses", handlers.HandleListSavedAddresses(deps.Addresses, logger))
		v1.POST("/addresses", handlers.HandleSaveAddress(deps.Addresses, deps.Validator, logger))
		v1.PUT("/addresses/:id", handlers.HandleUpdateAddress(deps.Addresses, deps.Validator, logger))
		v1.DELETE("/addresses/:id", handlers.HandleDeleteAddress(deps.Addresses, logger))
		v1.POST("/addresses/:id/default", handlers.HandleSetDefaultAddress(deps.Addresses, logger))

		v1.POST("/checkout/orders",
			middleware.IdempotencyMiddleware(deps.Repos, logger),
			handlers.HandlePlaceOrder(deps.Checkout, logger),
		)

		v1.POST("/payments/card", handlers.HandleStartCardPayment(deps.Checkout, logger))
		v1.POST("/payments/card/verify", handlers.HandleVerifyCardPayment(deps.Checkout, logger))
		v1.GET("/payments/card/return", handlers.HandleVerifyCardPayment(deps.Checkout, logger))
		v1.POST("/payments/card/reconcile", handlers.HandleReconcileCardPayment(deps.Checkout, logger))
		v1.POST("/payments/card/retry", handlers.HandleRetryCard(deps.Checkout, logger))
		v1.POST("/payments/cod", handlers.HandleConfirmCOD(deps.Checkout, logger))
		v1.GET("/payments/state", handlers.HandlePaymentState(deps.Checkout))

		v1.GET("/orders", handlers.HandleListOrders(deps.Orders, logger))
		v1.GET("/orders/statuses", handlers.HandleStatusVocabulary(deps.Orders, logger))
		v1.GET("/orders/:id", handlers.HandleGetOrder(deps.Orders, logger))
	}

	return router
}

// customRecovery is a custom recovery middleware that logs panics
func customRecovery(logger *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logger.Error("Panic recovered",
			zap.Any("error", recovered),
			zap.String("path", c.Request.URL.Path),
			zap.String("method", c.Request.Method),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	})
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		status := c.Writer.Status()
		logger.Info("HTTP request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", status),
		)
	}
}
