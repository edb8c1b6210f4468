package usecase

import (
	"context"

	"medreminder-backend/internal/reminder/domain"
)

// ReminderUsecase defines the reminder operations exposed to the HTTP layer
type ReminderUsecase interface {
	// CreateReminder validates input, converts the local date/time and stores an active reminder
	CreateReminder(ctx context.Context, input domain.CreateReminderInput) (*domain.Reminder, error)

	// GetReminder retrieves one reminder by ID
	GetReminder(ctx context.Context, id string) (*domain.Reminder, error)

	// ListByUser returns every reminder for a recipient, newest first
	ListByUser(ctx context.Context, userID string) ([]*domain.Reminder, error)

	// CancelReminder moves an active reminder to cancelled
	CancelReminder(ctx context.Context, id string) (*domain.Reminder, error)
}
