package middleware

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	CustomerIDHeader     = "X-Customer-ID"
	CustomerIDContextKey = "customer_id"
)

// AuthMiddleware trusts the storefront edge, which authenticates customers
// and forwards the customer id. The edge itself presents a bearer key that is
// checked against a bcrypt hash. An empty hash disables the key check.
func AuthMiddleware(edgeKeyHash string, logger *zap.Logger) gin.HandlerFunc {
	// fingerprints of keys that already passed bcrypt
	var verified sync.Map

	return func(c *gin.Context) {
		if edgeKeyHash != "" {
			authHeader := c.GetHeader("Authorization")
			if authHeader == "" {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
				c.Abort()
				return
			}

			// Extract Bearer token
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header format"})
				c.Abort()
				return
			}

			apiKey := strings.TrimSpace(parts[1])
			if apiKey == "" {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "missing API key"})
				c.Abort()
				return
			}

			fingerprint := sha256.Sum256([]byte(apiKey))
			cacheKey := hex.EncodeToString(fingerprint[:])
			if _, ok := verified.Load(cacheKey); !ok {
				if !VerifyAPIKey(apiKey, edgeKeyHash) {
					logger.Warn("Rejected edge API key", zap.String("client_ip", c.ClientIP()))
					c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid API key"})
					c.Abort()
					return
				}
				verified.Store(cacheKey, struct{}{})
			}
		}

		customerID := strings.TrimSpace(c.GetHeader(CustomerIDHeader))
		if customerID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing customer id"})
			c.Abort()
			return
		}

		c.Set(CustomerIDContextKey, customerID)
		c.Next()
	}
}

// GetCustomerID retrieves the authenticated customer id from the Gin context
func GetCustomerID(c *gin.Context) (string, bool) {
	v, exists := c.Get(CustomerIDContextKey)
	if !exists {
		return "", false
	}
	id, ok := v.(string)
	return id, ok && id != ""
}

// HashAPIKey hashes an API key using bcrypt
func HashAPIKey(apiKey string) (string, error) {
	// Use a cost of 10 for API keys (faster than passwords)
	hash, err := bcrypt.GenerateFromPassword([]byte(apiKey), 10)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyAPIKey verifies an API key against a hash
func VerifyAPIKey(apiKey, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(apiKey))
	return err == nil
}
