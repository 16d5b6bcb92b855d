package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AmitJPatil13/ESahayak-Task/internal/buyer"
	"github.com/AmitJPatil13/ESahayak-Task/internal/ratelimit"
)

const identityKey = "identity"

// IdentityMiddleware resolves the acting user from the X-User-ID and
// X-User-Admin headers. When required is true, requests without a user id
// are rejected with 401.
func IdentityMiddleware(required bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader("X-User-ID")
		if userID == "" && required {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "X-User-ID header is required",
			})
			return
		}

		c.Set(identityKey, buyer.Identity{
			UserID: userID,
			Admin:  c.GetHeader("X-User-Admin") == "true",
		})
		c.Next()
	}
}

// identityFrom returns the identity stored by IdentityMiddleware.
func identityFrom(c *gin.Context) buyer.Identity {
	if v, ok := c.Get(identityKey); ok {
		if id, ok := v.(buyer.Identity); ok {
			return id
		}
	}
	return buyer.Identity{}
}

// RateLimitMiddleware rejects requests with 429 once the limiter's
// minute or hour window is exhausted.
func RateLimitMiddleware(limiter *ratelimit.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.AllowRequest() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "Rate limit exceeded, please try again later",
			})
			return
		}
		c.Next()
	}
}
