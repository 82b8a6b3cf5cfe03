package handlers

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jafarshop/storefront-checkout/internal/api/middleware"
	"github.com/jafarshop/storefront-checkout/internal/cart"
	"github.com/jafarshop/storefront-checkout/internal/domain"
	"github.com/jafarshop/storefront-checkout/internal/service"
)

const streamKeepAlive = 25 * time.Second

// CartResponse is the grouped cart with the line a mutation touched
type CartResponse struct {
	Line *domain.CartLine `json:"line,omitempty"`
	Cart cart.View        `json:"cart"`
}

// HandleGetCart handles GET /v1/cart. The cart is reloaded from the Order Service.
func HandleGetCart(sessions *service.Sessions, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		customerID, ok := middleware.GetCustomerID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		view, err := sessions.Get(customerID).Cart.Load(c.Request.Context())
		if err != nil {
			respondError(c, logger, err, nil)
			return
		}
		c.JSON(http.StatusOK, CartResponse{Cart: view})
	}
}

// HandleMutateCartLine handles PATCH /v1/cart/lines/:lineId
func HandleMutateCartLine(sessions *service.Sessions, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		customerID, ok := middleware.GetCustomerID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		var req service.CartMutationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}

		mutator := sessions.Get(customerID).Cart
		lineID := c.Param("lineId")

		var (
			line domain.CartLine
			err  error
		)
		if req.Op == "increment" {
			line, err = mutator.Increment(c.Request.Context(), lineID)
		} else {
			line, err = mutator.Decrement(c.Request.Context(), lineID)
		}
		if err != nil {
			respondError(c, logger, err, nil)
			return
		}
		c.JSON(http.StatusOK, CartResponse{Line: &line, Cart: mutator.Store().Snapshot().View()})
	}
}

// HandleDeleteCartLine handles DELETE /v1/cart/lines/:lineId
func HandleDeleteCartLine(sessions *service.Sessions, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		customerID, ok := middleware.GetCustomerID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		mutator := sessions.Get(customerID).Cart
		if err := mutator.Remove(c.Request.Context(), c.Param("lineId")); err != nil {
			respondError(c, logger, err, nil)
			return
		}
		c.JSON(http.StatusOK, CartResponse{Cart: mutator.Store().Snapshot().View()})
	}
}

// HandleCartStream handles GET /v1/cart/stream. Every store change is sent as
// a server-sent "cart" event until the client disconnects.
func HandleCartStream(sessions *service.Sessions, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		customerID, ok := middleware.GetCustomerID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		store := sessions.Get(customerID).Cart.Store()
		updates := make(chan cart.View, 8)
		unsubscribe := store.Subscribe(func(s cart.State) {
			select {
			case updates <- s.View():
			default:
				// slow reader; it gets the next change
			}
		})
		defer unsubscribe()

		keepAlive := time.NewTicker(streamKeepAlive)
		defer keepAlive.Stop()

		c.SSEvent("cart", store.Snapshot().View())
		c.Writer.Flush()

		c.Stream(func(w io.Writer) bool {
			select {
			case <-c.Request.Context().Done():
				return false
			case view := <-updates:
				c.SSEvent("cart", view)
				return true
			case <-keepAlive.C:
				c.SSEvent("ping", gin.H{})
				return true
			}
		})
		logger.Debug("Cart stream closed", zap.String("customer_id", customerID))
	}
}
