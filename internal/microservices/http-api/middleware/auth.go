package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"reviewhub/internal/microservices/http-api/permission"
	"reviewhub/internal/microservices/http-api/service"

	"github.com/gin-gonic/gin"
)

const callerKey = "caller"

// Authenticator resolves a bearer token to the caller it was issued to.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (permission.Caller, error)
}

// Authenticate resolves the Authorization header into a permission.Caller.
// No header means an anonymous caller; a malformed or invalid one is a 401
// even on read routes.
func Authenticate(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Set(callerKey, permission.Anonymous)
			c.Next()
			return
		}

		// format: "Bearer <token>"
		parts := strings.Fields(authHeader)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header format"})
			return
		}

		caller, err := auth.Authenticate(c.Request.Context(), parts[1])
		if err != nil {
			if errors.Is(err, service.ErrUnauthenticated) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
				return
			}
			_ = c.Error(err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			return
		}

		c.Set(callerKey, caller)
		c.Set("userID", caller.UserID)
		c.Next()
	}
}

// CallerFrom returns the caller set by Authenticate, or Anonymous.
func CallerFrom(c *gin.Context) permission.Caller {
	if v, ok := c.Get(callerKey); ok {
		if caller, ok := v.(permission.Caller); ok {
			return caller
		}
	}
	return permission.Anonymous
}

// Require gates a route group with a collection-level rule. The operation
// is derived from the HTTP method.
func Require(rule permission.Rule) gin.HandlerFunc {
	return func(c *gin.Context) {
		switch rule(CallerFrom(c), permission.OperationFromMethod(c.Request.Method)) {
		case permission.Allow:
			c.Next()
		case permission.DenyUnauthenticated:
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": service.ErrUnauthenticated.Error()})
		default:
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": service.ErrForbidden.Error()})
		}
	}
}
