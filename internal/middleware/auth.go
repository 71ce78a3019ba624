package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"
)

// Context keys set by the auth middleware
const (
	ContextUserID    = "userID"
	ContextIsPremium = "isPremium"
)

// CodePremiumRequired is the stable denial code for non-premium callers
// requesting premium features, distinguishable from transport errors.
const CodePremiumRequired = "PREMIUM_REQUIRED"

// AuthMiddleware verifies the caller's JWT and places the verified identity
// and premium entitlement in the request context. The core trusts only
// these gate decisions and never re-derives entitlement itself.
func AuthMiddleware(jwtSecret string, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			c.Abort()
			return
		}

		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenStr == authHeader {
			// No prefix was removed, invalid format
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization format"})
			c.Abort()
			return
		}

		token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(jwtSecret), nil
		})
		if err != nil || !token.Valid {
			logger.Debug("Invalid token", zap.Error(err))
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			c.Abort()
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token claims"})
			c.Abort()
			return
		}

		userIDClaim, ok := claims["user_id"].(float64)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token claims"})
			c.Abort()
			return
		}

		premium, _ := claims["premium"].(bool)

		c.Set(ContextUserID, int(userIDClaim))
		c.Set(ContextIsPremium, premium)
		c.Next()
	}
}

// RequirePremium rejects callers without the premium entitlement. The
// denial carries a fixed code and an upgrade message so clients can tell it
// apart from generic failures.
func RequirePremium(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		premium, exists := c.Get(ContextIsPremium)
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			c.Abort()
			return
		}

		if isPremium, _ := premium.(bool); !isPremium {
			userID, _ := c.Get(ContextUserID)
			logger.Debug("Premium feature denied", zap.Any("userID", userID))
			c.JSON(http.StatusForbidden, gin.H{
				"code":  CodePremiumRequired,
				"error": "Backtesting requires a premium subscription. Upgrade your plan to run strategy simulations.",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
