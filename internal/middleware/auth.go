package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/hnakamura/project-management-api/internal/auth"
	"github.com/hnakamura/project-management-api/internal/constants"
	apierrors "github.com/hnakamura/project-management-api/internal/errors"
	"github.com/hnakamura/project-management-api/internal/models"
	"github.com/hnakamura/project-management-api/internal/services"
)

// RequireAuth validates the bearer token and loads the current user into
// the context. Tokens of deleted users fail the lookup and are rejected.
func RequireAuth(tokens *auth.TokenManager, authService *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			apierrors.Unauthorized(c, "Authorization header required")
			c.Abort()
			return
		}

		tokenString, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			apierrors.Unauthorized(c, "Authorization header must be a bearer token")
			c.Abort()
			return
		}

		userID, err := tokens.Verify(tokenString)
		if err != nil {
			apierrors.Unauthorized(c, "Invalid or expired token")
			c.Abort()
			return
		}

		user, err := authService.GetUser(userID)
		if err != nil {
			apierrors.Unauthorized(c, "Invalid or expired token")
			c.Abort()
			return
		}

		c.Set(constants.ContextKeyUser, user)
		c.Next()
	}
}

// GetCurrentUser returns the authenticated user set by RequireAuth.
func GetCurrentUser(c *gin.Context) (*models.User, bool) {
	value, exists := c.Get(constants.ContextKeyUser)
	if !exists {
		return nil, false
	}
	user, ok := value.(*models.User)
	return user, ok
}
