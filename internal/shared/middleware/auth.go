package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"cashfree-gateway/pkg/jwt"
)

// Context keys populated by OptionalAuth
const (
	ContextKeyUserID    = "user_id"
	ContextKeyUserName  = "user_name"
	ContextKeyUserEmail = "user_email"
)

// OptionalAuth parses a Bearer token when one is presented and puts the
// caller identity into the context. Anonymous requests pass through; the
// payment flow works without a login, identity only enriches the customer
// details sent to the provider.
//
// Only a malformed token is rejected: a client that claims an identity and
// fails to prove it should not silently continue as anonymous.
func OptionalAuth(manager *jwt.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Next()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(401, gin.H{"error": "invalid authorization header format"})
			c.Abort()
			return
		}

		claims, err := manager.ValidateToken(parts[1])
		if err != nil {
			c.JSON(401, gin.H{"error": "invalid token"})
			c.Abort()
			return
		}

		c.Set(ContextKeyUserID, claims.UserID)
		c.Set(ContextKeyUserName, claims.Name)
		c.Set(ContextKeyUserEmail, claims.Email)

		c.Next()
	}
}
