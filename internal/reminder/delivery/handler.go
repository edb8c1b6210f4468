package delivery

import (
	"context"
	"errors"
	"net/http"
	"time"

	"medreminder-backend/internal/reminder/domain"
	"medreminder-backend/internal/reminder/scheduler"
	"medreminder-backend/internal/reminder/usecase"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Trigger runs scheduler work on demand
type Trigger interface {
	RunOnce(ctx context.Context) (scheduler.TickReport, error)
	SendNow(ctx context.Context, id string) (*domain.Reminder, error)
}

// ReminderHandler handles reminder HTTP requests
type ReminderHandler struct {
	reminderUsecase usecase.ReminderUsecase
	trigger         Trigger
	log             logrus.FieldLogger
}

// NewReminderHandler creates a new ReminderHandler
func NewReminderHandler(reminderUsecase usecase.ReminderUsecase, trigger Trigger, log logrus.FieldLogger) *ReminderHandler {
	return &ReminderHandler{
		reminderUsecase: reminderUsecase,
		trigger:         trigger,
		log:             log.WithField("component", "http"),
	}
}

// MedicationRequest is one medication line in a create request
type MedicationRequest struct {
	Name     string `json:"name" binding:"required"`
	Quantity int    `json:"quantity"`
}

// CreateReminderRequest represents the request body for creating a reminder.
// Date and time are validated by the use case.
type CreateReminderRequest struct {
	OrderID             string              `json:"orderId" binding:"required"`
	UserID              string              `json:"userId" binding:"required"`
	CustomerName        string              `json:"customerName"`
	ReminderDate        string              `json:"reminderDate"`
	ReminderTime        string              `json:"reminderTime"`
	Notes               string              `json:"notes"`
	Medications         []MedicationRequest `json:"medications" binding:"dive"`
	ReminderMedications []MedicationRequest `json:"reminderMedications" binding:"dive"`
}

// RegisterRoutes mounts the reminder routes on rg. guard protects the
// operator-only routes.
func (h *ReminderHandler) RegisterRoutes(rg *gin.RouterGroup, guard gin.HandlerFunc) {
	reminders := rg.Group("/reminders")
	{
		reminders.GET("/health", h.Health)
		reminders.POST("", h.CreateReminder)
		reminders.GET("/user/:userId", h.GetUserReminders)
		reminders.GET("/:id", h.GetReminder)
		reminders.POST("/:id/cancel", guard, h.CancelReminder)
		reminders.POST("/debug/run", guard, h.RunScheduler)
		reminders.POST("/test/:id", guard, h.SendTestReminder)
	}
}

// CreateReminder creates a new reminder
// POST /api/reminders
func (h *ReminderHandler) CreateReminder(c *gin.Context) {
	var req CreateReminderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}

	input := domain.CreateReminderInput{
		OrderID:      req.OrderID,
		UserID:       req.UserID,
		CustomerName: req.CustomerName,
		ReminderDate: req.ReminderDate,
		ReminderTime: req.ReminderTime,
		Notes:        req.Notes,
	}
	for _, m := range append(req.Medications, req.ReminderMedications...) {
		input.Medications = append(input.Medications, domain.Medication{Name: m.Name, Quantity: m.Quantity})
	}

	reminder, err := h.reminderUsecase.CreateReminder(c.Request.Context(), input)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "reminder": reminder})
}

// GetUserReminders lists a recipient's reminders, newest first
// GET /api/reminders/user/:userId
func (h *ReminderHandler) GetUserReminders(c *gin.Context) {
	reminders, err := h.reminderUsecase.ListByUser(c.Request.Context(), c.Param("userId"))
	if err != nil {
		h.log.WithError(err).Error("Failed to fetch reminders")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to fetch reminders"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": reminders})
}

// GetReminder returns a specific reminder
// GET /api/reminders/:id
func (h *ReminderHandler) GetReminder(c *gin.Context) {
	reminder, err := h.reminderUsecase.GetReminder(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "reminder": reminder})
}

// CancelReminder cancels an active reminder
// POST /api/reminders/:id/cancel
func (h *ReminderHandler) CancelReminder(c *gin.Context) {
	reminder, err := h.reminderUsecase.CancelReminder(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "reminder": reminder})
}

// RunScheduler runs one delivery cycle
// POST /api/reminders/debug/run
func (h *ReminderHandler) RunScheduler(c *gin.Context) {
	report, err := h.trigger.RunOnce(c.Request.Context())
	if err != nil {
		h.log.WithError(err).Error("debug/run failed")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "report": report})
}

// SendTestReminder delivers one reminder immediately
// POST /api/reminders/test/:id
func (h *ReminderHandler) SendTestReminder(c *gin.Context) {
	reminder, err := h.trigger.SendNow(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Reminder not found"})
			return
		}
		h.log.WithError(err).Error("Failed to send test reminder")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to send test reminder"})
		return
	}

	message := "Test reminder sent successfully"
	if reminder.LastError != nil {
		message = "Test reminder attempted: " + *reminder.LastError
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": message, "reminder": reminder})
}

// Health reports the server clock
// GET /api/reminders/health
func (h *ReminderHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Reminders API is working",
		"now":     time.Now().UTC().Format(time.RFC3339Nano),
	})
}

func (h *ReminderHandler) respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrInvalidTimeFormat):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidTransition):
		status = http.StatusConflict
	default:
		h.log.WithError(err).Error("Request failed")
	}
	c.JSON(status, gin.H{"success": false, "message": err.Error()})
}
