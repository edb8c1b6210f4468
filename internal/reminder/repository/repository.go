package repository

import (
	"context"
	"time"

	"medreminder-backend/internal/reminder/domain"
)

// ReminderRepository defines the interface for reminder data access
type ReminderRepository interface {
	// Create persists a new reminder, assigning an ID when empty
	Create(ctx context.Context, reminder *domain.Reminder) error

	// FindByID finds a reminder by its ID; returns domain.ErrNotFound when missing
	FindByID(ctx context.Context, id string) (*domain.Reminder, error)

	// FindByUserID lists all reminders of a recipient, most recent first
	FindByUserID(ctx context.Context, userID string) ([]*domain.Reminder, error)

	// FindDue returns active, unsent, under-limit reminders scheduled within
	// [q.From, q.To], earliest first
	FindDue(ctx context.Context, q domain.DueQuery) ([]*domain.Reminder, error)

	// RecordAttemptOutcome increments attempts, stamps the attempt time and
	// completes the reminder in a single update
	RecordAttemptOutcome(ctx context.Context, id string, outcome domain.AttemptOutcome) (*domain.Reminder, error)

	// SweepStale completes every active reminder scheduled before staleBefore
	SweepStale(ctx context.Context, staleBefore time.Time) (int64, error)

	// Cancel moves an active reminder to cancelled
	Cancel(ctx context.Context, id string) (*domain.Reminder, error)

	// Close releases the underlying connection
	Close() error
}
