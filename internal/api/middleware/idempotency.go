package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jafarshop/storefront-checkout/internal/repository"
)

const IdempotencyKeyHeader = "Idempotency-Key"

// IdempotencyInfo describes the idempotency key of the current request
type IdempotencyInfo struct {
	Key             string
	RequestHash     string
	ExistingOrderID string
}

// Replay reports whether the key was already used for the same request
func (i IdempotencyInfo) Replay() bool {
	return i.ExistingOrderID != ""
}

// IdempotencyMiddleware handles idempotency key validation for order placement
func IdempotencyMiddleware(repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Only apply to POST/PUT/PATCH requests
		if c.Request.Method != http.MethodPost && c.Request.Method != http.MethodPut && c.Request.Method != http.MethodPatch {
			c.Next()
			return
		}

		idempotencyKey := c.GetHeader(IdempotencyKeyHeader)
		if idempotencyKey == "" {
			c.Next()
			return
		}

		// Read request body
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			logger.Error("Failed to read request body for idempotency", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process request"})
			c.Abort()
			return
		}

		// Restore body for handler
		c.Request.Body = io.NopCloser(bytes.NewBuffer(body))

		hash := sha256.Sum256(body)
		requestHash := hex.EncodeToString(hash[:])
		c.Set("idempotency_key", idempotencyKey)
		c.Set("idempotency_request_hash", requestHash)

		if repos == nil || repos.IdempotencyKey == nil {
			c.Next()
			return
		}

		existingKey, err := repos.IdempotencyKey.GetByKey(c.Request.Context(), idempotencyKey)
		if err != nil {
			// the Order Service still sees the key, so a duplicate cannot slip through
			logger.Error("Failed to check idempotency key", zap.Error(err))
			c.Next()
			return
		}

		if existingKey != nil {
			customerID, _ := GetCustomerID(c)
			if existingKey.RequestHash != requestHash || existingKey.CustomerID != customerID {
				c.JSON(http.StatusConflict, gin.H{
					"error": "idempotency key conflict: same key used with different payload",
				})
				c.Abort()
				return
			}
			c.Set("idempotency_existing_order_id", existingKey.OrderID)
		}

		c.Next()
	}
}

// GetIdempotencyInfo retrieves idempotency information from context
func GetIdempotencyInfo(c *gin.Context) IdempotencyInfo {
	var info IdempotencyInfo
	info.Key = c.GetString("idempotency_key")
	info.RequestHash = c.GetString("idempotency_request_hash")
	info.ExistingOrderID = c.GetString("idempotency_existing_order_id")
	return info
}
