package middleware

import (
	"net/http" // HTTP status codes

	"github.com/gin-gonic/gin" // Gin web framework

	"wallet_ledger/internal/directory" // User lookups
)

// ContextIsAdmin is set to true for requests that passed AdminOnlyMiddleware
const ContextIsAdmin = "isAdmin"

// AdminOnlyMiddleware checks the user's role in the directory on each request
func AdminOnlyMiddleware(users directory.UserReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := UserID(c) // Get userID from context
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		user, err := users.GetUser(c.Request.Context(), userID) // Fetch user from the directory
		if err != nil || !user.IsAdmin() {
			// Unknown users and non-admins are treated the same
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			return
		}
		c.Set(ContextIsAdmin, true) // Remember the role for handlers
		c.Next()                    // If admin, proceed to the next handler
	}
}

// IsAdmin resolves whether the caller is an admin, consulting the directory when
// AdminOnlyMiddleware did not run for this route
func IsAdmin(c *gin.Context, users directory.UserReader) bool {
	if v, ok := c.Get(ContextIsAdmin); ok {
		return v == true
	}
	userID, ok := UserID(c)
	if !ok {
		return false
	}
	user, err := users.GetUser(c.Request.Context(), userID)
	return err == nil && user.IsAdmin()
}
