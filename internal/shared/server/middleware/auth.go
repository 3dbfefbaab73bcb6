package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"quotation-backend/internal/shared/auth"
	"quotation-backend/internal/shared/server/respond"
)

const (
	identityKey  = "identity"
	userIDKey    = "userId"
	userRoleKey  = "userRole"
	bearerPrefix = "Bearer "
)

// TokenVerifier resolves a bearer token into an identity.
type TokenVerifier interface {
	Verify(raw string) (auth.Identity, error)
}

// Auth validates bearer tokens and stores the identity in context.
func Auth(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			return
		}

		header := strings.TrimSpace(c.GetHeader("Authorization"))
		if !strings.HasPrefix(header, bearerPrefix) {
			respond.Error(c, http.StatusUnauthorized, "unauthenticated", "missing or invalid token", nil)
			return
		}
		token := strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix))
		if token == "" {
			respond.Error(c, http.StatusUnauthorized, "unauthenticated", "missing or invalid token", nil)
			return
		}

		id, err := verifier.Verify(token)
		if err != nil {
			respond.Error(c, http.StatusUnauthorized, "unauthenticated", "missing or invalid token", nil)
			return
		}

		c.Set(identityKey, id)
		c.Set(userIDKey, id.UserID)
		c.Set(userRoleKey, string(id.Role))
		c.Next()
	}
}

// RequireRole rejects identities whose role is not one of roles.
func RequireRole(roles ...auth.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := IdentityFromContext(c)
		if !ok {
			respond.Error(c, http.StatusUnauthorized, "unauthenticated", "authentication required", nil)
			return
		}
		for _, r := range roles {
			if id.Role == r {
				c.Next()
				return
			}
		}
		respond.Error(c, http.StatusForbidden, "forbidden", "insufficient role", nil)
	}
}

// IdentityFromContext fetches the identity set by the auth middleware.
func IdentityFromContext(c *gin.Context) (auth.Identity, bool) {
	if c == nil {
		return auth.Identity{}, false
	}
	val, ok := c.Get(identityKey)
	if !ok {
		return auth.Identity{}, false
	}
	id, ok := val.(auth.Identity)
	return id, ok
}

// UserIDFromContext fetches the user ID set by the auth middleware.
func UserIDFromContext(c *gin.Context) int64 {
	id, _ := IdentityFromContext(c)
	return id.UserID
}

// SetIdentity stores id in the request context. Tests and internal routes use it
// to bypass token parsing.
func SetIdentity(c *gin.Context, id auth.Identity) {
	c.Set(identityKey, id)
	c.Set(userIDKey, id.UserID)
	c.Set(userRoleKey, string(id.Role))
}
