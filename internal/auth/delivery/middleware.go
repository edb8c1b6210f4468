package delivery

import (
	"net/http"
	"strings"

	authdomain "medreminder-backend/internal/auth/domain"
	"medreminder-backend/internal/auth/usecase"

	"github.com/gin-gonic/gin"
)

// OperatorMiddleware requires a Bearer token with the admin role.
// With no secret configured every request passes.
func OperatorMiddleware(authUsecase usecase.AuthUsecase) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !authUsecase.Enabled() {
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "authorization header required"})
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "invalid authorization header format"})
			c.Abort()
			return
		}

		operator, err := authUsecase.ValidateToken(parts[1])
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": err.Error()})
			c.Abort()
			return
		}
		if operator.Role != authdomain.RoleAdmin {
			c.JSON(http.StatusForbidden, gin.H{"success": false, "message": authdomain.ErrForbidden.Error()})
			c.Abort()
			return
		}

		c.Set("operator", operator)
		c.Next()
	}
}
