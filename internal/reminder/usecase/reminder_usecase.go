package usecase

import (
	"context"
	"fmt"
	"strings"

	"medreminder-backend/internal/reminder/domain"
	"medreminder-backend/internal/reminder/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// reminderUsecase implements ReminderUsecase
type reminderUsecase struct {
	repo repository.ReminderRepository
	log  logrus.FieldLogger
}

func NewReminderUsecase(repo repository.ReminderRepository, log logrus.FieldLogger) ReminderUsecase {
	return &reminderUsecase{
		repo: repo,
		log:  log.WithField("component", "reminders"),
	}
}

func (u *reminderUsecase) CreateReminder(ctx context.Context, input domain.CreateReminderInput) (*domain.Reminder, error) {
	date := strings.TrimSpace(input.ReminderDate)
	clock := strings.TrimSpace(input.ReminderTime)
	if date == "" || clock == "" {
		return nil, fmt.Errorf("%w: reminderDate and reminderTime are required", domain.ErrValidation)
	}
	if strings.TrimSpace(input.UserID) == "" {
		return nil, fmt.Errorf("%w: userId is required", domain.ErrValidation)
	}

	scheduledAt, err := domain.ToAbsoluteInstant(date, clock)
	if err != nil {
		return nil, err
	}

	for _, m := range input.Medications {
		if strings.TrimSpace(m.Name) == "" {
			return nil, fmt.Errorf("%w: medication name is required", domain.ErrValidation)
		}
	}

	reminder := &domain.Reminder{
		ID:           uuid.New().String(),
		OrderID:      input.OrderID,
		UserID:       strings.TrimSpace(input.UserID),
		CustomerName: input.CustomerName,
		ReminderDate: date,
		ReminderTime: clock,
		ScheduledAt:  scheduledAt,
		Notes:        input.Notes,
		Medications:  input.Medications,
		Status:       domain.StatusActive,
		Sent:         false,
		Attempts:     0,
	}
	if err := u.repo.Create(ctx, reminder); err != nil {
		return nil, err
	}

	u.log.WithFields(logrus.Fields{
		"reminder_id":  reminder.ID,
		"user_id":      reminder.UserID,
		"scheduled_at": reminder.ScheduledAt.Format("2006-01-02T15:04:05Z07:00"),
	}).Info("Reminder created")
	return reminder, nil
}

func (u *reminderUsecase) GetReminder(ctx context.Context, id string) (*domain.Reminder, error) {
	return u.repo.FindByID(ctx, id)
}

func (u *reminderUsecase) ListByUser(ctx context.Context, userID string) ([]*domain.Reminder, error) {
	reminders, err := u.repo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if reminders == nil {
		reminders = []*domain.Reminder{}
	}
	return reminders, nil
}

func (u *reminderUsecase) CancelReminder(ctx context.Context, id string) (*domain.Reminder, error) {
	reminder, err := u.repo.Cancel(ctx, id)
	if err != nil {
		return nil, err
	}
	u.log.WithField("reminder_id", id).Info("Reminder cancelled")
	return reminder, nil
}
