package api

import (
	"net/http"

	"medreminder-backend/internal/auth/delivery"
	authUsecase "medreminder-backend/internal/auth/usecase"
	reminderDelivery "medreminder-backend/internal/reminder/delivery"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(r *gin.Engine, authUsecase authUsecase.AuthUsecase, reminderHandler *reminderDelivery.ReminderHandler) {
	api := r.Group("/api")
	{
		// Health check (no auth required)
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		// Reminder routes; cancel and debug triggers need an operator token when a secret is set
		reminderHandler.RegisterRoutes(api, delivery.OperatorMiddleware(authUsecase))
	}
}
