package middleware

import (
	"net/http"
	"strings"

	"warehouse-sync-agent/internal/auth"

	"github.com/gin-gonic/gin"
)

// Context keys set for authenticated operators.
const (
	OperatorIDKey = "operator_id"
	UsernameKey   = "username"
)

// bearerToken returns the operator token from "Authorization: Bearer <token>", falling back
// to the token query parameter used by websocket upgrades.
func bearerToken(c *gin.Context) string {
	if scheme, token, ok := strings.Cut(c.GetHeader("Authorization"), " "); ok && scheme == "Bearer" && token != "" {
		return token
	}
	return c.Query("token")
}

// JWTAuthMiddleware rejects requests without a valid operator token.
func JWTAuthMiddleware(tokens *auth.Tokens) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c)
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization token is required"})
			return
		}
		claims, err := tokens.ValidateToken(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		c.Set(OperatorIDKey, claims.OperatorID)
		c.Set(UsernameKey, claims.Username)
		c.Next()
	}
}
