package handler

import (
	"net/http"
	"strings"

	"github.com/backoffice/internal/auth"
	"github.com/backoffice/internal/db"
	"github.com/gin-gonic/gin"
)

const currentUserKey = "__current_user"

// AuthRequired validates the bearer access token and loads the acting user
// into the request context.
func (a *API) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw, found := strings.CutPrefix(header, "Bearer ")
		if !found || strings.TrimSpace(raw) == "" {
			respondError(c, http.StatusUnauthorized, "authentication credentials were not provided")
			c.Abort()
			return
		}

		claims, err := auth.ParseToken(strings.TrimSpace(raw), a.jwtSecret)
		if err != nil || claims.TokenType != auth.TokenTypeAccess {
			respondError(c, http.StatusUnauthorized, "token is invalid or expired")
			c.Abort()
			return
		}

		user, err := a.users.Get(claims.Subject)
		if err != nil {
			respondError(c, http.StatusUnauthorized, "token is invalid or expired")
			c.Abort()
			return
		}

		// Tokens minted before the last password change carry a stale
		// version and are no longer honored.
		if !user.IsActive || user.TokenVersion != claims.TokenVersion {
			respondError(c, http.StatusUnauthorized, "token is invalid or expired")
			c.Abort()
			return
		}

		c.Set(currentUserKey, user)
		c.Next()
	}
}

// AdminRequired rejects requests from actors outside the superadmin tier.
// It must run after AuthRequired.
func (a *API) AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := currentUser(c)
		if user == nil || !user.IsUnrestricted() {
			respondError(c, http.StatusForbidden, "you do not have permission to perform this action")
			c.Abort()
			return
		}
		c.Next()
	}
}

// currentUser returns the authenticated actor stored by AuthRequired.
func currentUser(c *gin.Context) *db.User {
	value, exists := c.Get(currentUserKey)
	if !exists {
		return nil
	}
	user, ok := value.(*db.User)
	if !ok {
		return nil
	}
	return user
}
