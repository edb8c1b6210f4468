package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"medreminder-backend/internal/reminder/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// gormReminderRepository implements ReminderRepository using GORM
type gormReminderRepository struct {
	db *gorm.DB
}

// NewGormReminderRepository creates a new GORM-based ReminderRepository
func NewGormReminderRepository(db *gorm.DB) (ReminderRepository, error) {
	if err := db.AutoMigrate(&domain.Reminder{}); err != nil {
		return nil, fmt.Errorf("failed to migrate reminders: %w", err)
	}
	return &gormReminderRepository{db: db}, nil
}

func (r *gormReminderRepository) Create(ctx context.Context, reminder *domain.Reminder) error {
	if reminder.ID == "" {
		reminder.ID = uuid.New().String()
	}
	now := time.Now()
	reminder.CreatedAt = now
	reminder.UpdatedAt = now
	if err := r.db.WithContext(ctx).Create(reminder).Error; err != nil {
		return fmt.Errorf("failed to insert reminder: %w", err)
	}
	return nil
}

func (r *gormReminderRepository) FindByID(ctx context.Context, id string) (*domain.Reminder, error) {
	var reminder domain.Reminder
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&reminder).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get reminder: %w", err)
	}
	return &reminder, nil
}

func (r *gormReminderRepository) FindByUserID(ctx context.Context, userID string) ([]*domain.Reminder, error) {
	var reminders []*domain.Reminder
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, seq DESC").
		Find(&reminders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list reminders: %w", err)
	}
	return reminders, nil
}

func (r *gormReminderRepository) FindDue(ctx context.Context, q domain.DueQuery) ([]*domain.Reminder, error) {
	var reminders []*domain.Reminder
	err := r.db.WithContext(ctx).
		Where("status = ? AND sent = ? AND attempts < ?", domain.StatusActive, false, q.MaxAttempts).
		Where("scheduled_at >= ? AND scheduled_at <= ?", q.From, q.To).
		Order("scheduled_at ASC, seq ASC").
		Find(&reminders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get due reminders: %w", err)
	}
	return reminders, nil
}

func (r *gormReminderRepository) RecordAttemptOutcome(ctx context.Context, id string, outcome domain.AttemptOutcome) (*domain.Reminder, error) {
	updates := map[string]interface{}{
		"attempts":        gorm.Expr("attempts + ?", 1),
		"last_attempt_at": outcome.At,
		"status":          domain.StatusCompleted,
		"updated_at":      time.Now(),
	}
	if outcome.Success {
		updates["sent"] = true
		updates["sent_at"] = outcome.At
		updates["last_error"] = nil
	} else {
		updates["last_error"] = outcome.Error
	}

	var saved domain.Reminder
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.Reminder{}).Where("id = ?", id).Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrNotFound
		}
		return tx.Where("id = ?", id).First(&saved).Error
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to record attempt: %w", err)
	}
	return &saved, nil
}

func (r *gormReminderRepository) SweepStale(ctx context.Context, staleBefore time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&domain.Reminder{}).
		Where("status = ? AND scheduled_at < ?", domain.StatusActive, staleBefore).
		Updates(map[string]interface{}{
			"status":     domain.StatusCompleted,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to sweep reminders: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (r *gormReminderRepository) Cancel(ctx context.Context, id string) (*domain.Reminder, error) {
	res := r.db.WithContext(ctx).Model(&domain.Reminder{}).
		Where("id = ? AND status = ?", id, domain.StatusActive).
		Updates(map[string]interface{}{
			"status":     domain.StatusCancelled,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return nil, fmt.Errorf("failed to cancel reminder: %w", res.Error)
	}

	reminder, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("%w: reminder is %s", domain.ErrInvalidTransition, reminder.Status)
	}
	return reminder, nil
}

func (r *gormReminderRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
