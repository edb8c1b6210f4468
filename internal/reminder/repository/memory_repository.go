package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"medreminder-backend/internal/reminder/domain"

	"github.com/google/uuid"
)

// memoryReminderRepository keeps reminders in process memory.
// Records handed out are copies, so callers never alias stored state.
type memoryReminderRepository struct {
	mu        sync.Mutex
	reminders map[string]*domain.Reminder
	seq       int64
}

// NewMemoryReminderRepository creates an empty in-memory ReminderRepository
func NewMemoryReminderRepository() ReminderRepository {
	return &memoryReminderRepository{reminders: map[string]*domain.Reminder{}}
}

func (r *memoryReminderRepository) Create(_ context.Context, reminder *domain.Reminder) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if reminder.ID == "" {
		reminder.ID = uuid.New().String()
	}
	if _, exists := r.reminders[reminder.ID]; exists {
		return fmt.Errorf("failed to insert reminder: duplicate id %s", reminder.ID)
	}
	if reminder.Status == "" {
		reminder.Status = domain.StatusActive
	}
	now := time.Now()
	reminder.CreatedAt = now
	reminder.UpdatedAt = now
	r.seq++
	reminder.Seq = r.seq

	r.reminders[reminder.ID] = cloneReminder(reminder)
	return nil
}

func (r *memoryReminderRepository) FindByID(_ context.Context, id string) (*domain.Reminder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rem, ok := r.reminders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneReminder(rem), nil
}

func (r *memoryReminderRepository) FindByUserID(_ context.Context, userID string) ([]*domain.Reminder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*domain.Reminder
	for _, rem := range r.reminders {
		if rem.UserID == userID {
			out = append(out, cloneReminder(rem))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].Seq > out[j].Seq
	})
	return out, nil
}

func (r *memoryReminderRepository) FindDue(_ context.Context, q domain.DueQuery) ([]*domain.Reminder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*domain.Reminder
	for _, rem := range r.reminders {
		if !rem.Eligible(q.MaxAttempts) {
			continue
		}
		if rem.ScheduledAt.Before(q.From) || rem.ScheduledAt.After(q.To) {
			continue
		}
		out = append(out, cloneReminder(rem))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ScheduledAt.Equal(out[j].ScheduledAt) {
			return out[i].ScheduledAt.Before(out[j].ScheduledAt)
		}
		return out[i].Seq < out[j].Seq
	})
	return out, nil
}

func (r *memoryReminderRepository) RecordAttemptOutcome(_ context.Context, id string, outcome domain.AttemptOutcome) (*domain.Reminder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rem, ok := r.reminders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}

	at := outcome.At
	rem.Attempts++
	rem.LastAttemptAt = &at
	rem.Status = domain.StatusCompleted
	if outcome.Success {
		rem.Sent = true
		rem.SentAt = &at
		rem.LastError = nil
	} else {
		reason := outcome.Error
		rem.LastError = &reason
	}
	rem.UpdatedAt = time.Now()
	return cloneReminder(rem), nil
}

func (r *memoryReminderRepository) SweepStale(_ context.Context, staleBefore time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	now := time.Now()
	for _, rem := range r.reminders {
		if rem.Status == domain.StatusActive && rem.ScheduledAt.Before(staleBefore) {
			rem.Status = domain.StatusCompleted
			rem.UpdatedAt = now
			n++
		}
	}
	return n, nil
}

func (r *memoryReminderRepository) Cancel(_ context.Context, id string) (*domain.Reminder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rem, ok := r.reminders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if rem.Status != domain.StatusActive {
		return nil, fmt.Errorf("%w: reminder is %s", domain.ErrInvalidTransition, rem.Status)
	}
	rem.Status = domain.StatusCancelled
	rem.UpdatedAt = time.Now()
	return cloneReminder(rem), nil
}

func (r *memoryReminderRepository) Close() error { return nil }

func cloneReminder(src *domain.Reminder) *domain.Reminder {
	cp := *src
	if src.Medications != nil {
		cp.Medications = append([]domain.Medication(nil), src.Medications...)
	}
	if src.LastAttemptAt != nil {
		t := *src.LastAttemptAt
		cp.LastAttemptAt = &t
	}
	if src.SentAt != nil {
		t := *src.SentAt
		cp.SentAt = &t
	}
	if src.LastError != nil {
		s := *src.LastError
		cp.LastError = &s
	}
	return &cp
}
