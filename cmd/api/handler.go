package api

import (
	"net/http"
	"time"

	authUsecase "medreminder-backend/internal/auth/usecase"
	reminderDelivery "medreminder-backend/internal/reminder/delivery"
	reminderUsecase "medreminder-backend/internal/reminder/usecase"
	"medreminder-backend/pkg/config"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type Handler struct {
	authUsecase     authUsecase.AuthUsecase
	reminderHandler *reminderDelivery.ReminderHandler
	config          *config.Config
	log             logrus.FieldLogger
}

func NewHandler(authUc authUsecase.AuthUsecase, reminderUc reminderUsecase.ReminderUsecase, trigger reminderDelivery.Trigger, cfg *config.Config, log logrus.FieldLogger) *Handler {
	return &Handler{
		authUsecase:     authUc,
		reminderHandler: reminderDelivery.NewReminderHandler(reminderUc, trigger, log),
		config:          cfg,
		log:             log,
	}
}

// Router builds the gin engine with middleware and routes
func (h *Handler) Router() *gin.Engine {
	if h.config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(h.log))

	// CORS middleware
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		} else {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	SetupRoutes(r, h.authUsecase, h.reminderHandler)
	return r
}

// NewServer wraps the router in an http.Server listening on addr
func (h *Handler) NewServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func requestLogger(log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := log.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
		})
		if c.Writer.Status() >= http.StatusInternalServerError {
			entry.Warn("HTTP request")
			return
		}
		entry.Debug("HTTP request")
	}
}
