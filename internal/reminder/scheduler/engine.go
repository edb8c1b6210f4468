package scheduler

import (
	"context"
	"fmt"
	"time"

	"medreminder-backend/internal/reminder/channel"
	"medreminder-backend/internal/reminder/domain"
	"medreminder-backend/internal/reminder/repository"

	"github.com/sirupsen/logrus"
)

// EngineConfig holds the timing parameters of a delivery cycle
type EngineConfig struct {
	PollInterval    time.Duration
	ToleranceMargin time.Duration
	SweepGrace      time.Duration
	MaxAttempts     int
}

// DefaultEngineConfig polls every 30s, tolerates 5s of timer drift and
// sweeps active reminders older than 5 minutes.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		PollInterval:    30 * time.Second,
		ToleranceMargin: 5 * time.Second,
		SweepGrace:      5 * time.Minute,
		MaxAttempts:     5,
	}
}

// persistTimeout bounds bookkeeping writes, which outlive the cycle context
// so a delivered reminder is always finalized.
const persistTimeout = 10 * time.Second

// TickReport summarises one delivery cycle
type TickReport struct {
	Due    int   `json:"due"`
	Sent   int   `json:"sent"`
	Failed int   `json:"failed"`
	Swept  int64 `json:"swept"`
}

// Engine runs delivery cycles against a repository and a channel.
// It holds no state between cycles.
type Engine struct {
	repo    repository.ReminderRepository
	channel channel.Channel
	cfg     EngineConfig
	log     logrus.FieldLogger
	now     func() time.Time
}

func NewEngine(repo repository.ReminderRepository, ch channel.Channel, cfg EngineConfig, log logrus.FieldLogger) *Engine {
	return &Engine{
		repo:    repo,
		channel: ch,
		cfg:     cfg,
		log:     log.WithField("component", "scheduler"),
		now:     time.Now,
	}
}

// RunOnce performs one cycle: deliver every reminder due in
// [now-(poll+tolerance), now], then sweep stale active reminders.
// Only a failed due query is returned as an error.
func (e *Engine) RunOnce(ctx context.Context) (TickReport, error) {
	var report TickReport

	now := e.now()
	windowStart := now.Add(-(e.cfg.PollInterval + e.cfg.ToleranceMargin))
	e.log.WithFields(logrus.Fields{
		"now":          now.UTC().Format(time.RFC3339),
		"window_start": windowStart.UTC().Format(time.RFC3339),
	}).Debug("Tick")

	due, err := e.repo.FindDue(ctx, domain.DueQuery{
		From:        windowStart,
		To:          now,
		MaxAttempts: e.cfg.MaxAttempts,
	})
	if err != nil {
		e.log.WithError(err).Error("Due reminder query failed")
		return report, fmt.Errorf("failed to query due reminders: %w", err)
	}
	report.Due = len(due)
	if len(due) > 0 {
		e.log.Infof("Found %d due reminder(s)", len(due))
	}

	for _, r := range due {
		saved, err := e.attempt(ctx, r)
		if err != nil {
			report.Failed++
			continue
		}
		if saved.Sent && saved.LastError == nil {
			report.Sent++
		} else {
			report.Failed++
		}
	}

	sweepCtx, cancel := persistContext(ctx)
	defer cancel()
	swept, err := e.repo.SweepStale(sweepCtx, now.Add(-e.cfg.SweepGrace))
	if err != nil {
		e.log.WithError(err).Error("Sweep failed")
	} else if swept > 0 {
		e.log.Infof("Sweep completed %d stale reminder(s)", swept)
	}
	report.Swept = swept

	return report, nil
}

// SendNow delivers one reminder immediately, ignoring its status,
// schedule and attempt count. Delivery failures are recorded on the
// reminder; only lookup and persistence failures are returned.
func (e *Engine) SendNow(ctx context.Context, id string) (*domain.Reminder, error) {
	r, err := e.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	e.logReminder(r).Info("Manual send")
	return e.attempt(ctx, r)
}

// attempt delivers r once and writes the outcome back
func (e *Engine) attempt(ctx context.Context, r *domain.Reminder) (*domain.Reminder, error) {
	e.logReminder(r).Debug("Sending")

	messageID, err := e.deliver(ctx, r)
	at := e.now()

	outcome := domain.Succeeded(at)
	if err != nil {
		outcome = domain.Failed(at, err.Error())
		e.log.WithField("reminder_id", r.ID).WithError(err).Warn("Delivery failed")
	} else {
		e.log.WithFields(logrus.Fields{
			"reminder_id": r.ID,
			"message_id":  messageID,
		}).Info("Reminder delivered")
	}

	recordCtx, cancel := persistContext(ctx)
	defer cancel()
	saved, err := e.repo.RecordAttemptOutcome(recordCtx, r.ID, outcome)
	if err != nil {
		e.log.WithField("reminder_id", r.ID).WithError(err).Error("Failed to record delivery attempt")
		return nil, err
	}
	e.logReminder(saved).Debug("Attempt recorded")
	return saved, nil
}

func persistContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
}

func (e *Engine) deliver(ctx context.Context, r *domain.Reminder) (messageID string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("delivery panicked: %v", rec)
		}
	}()
	return e.channel.Deliver(ctx, r.UserID, r)
}

func (e *Engine) logReminder(r *domain.Reminder) logrus.FieldLogger {
	fields := logrus.Fields{
		"reminder_id":  r.ID,
		"user_id":      r.UserID,
		"status":       r.Status,
		"sent":         r.Sent,
		"attempts":     r.Attempts,
		"scheduled_at": r.ScheduledAt.UTC().Format(time.RFC3339),
	}
	if r.LastError != nil {
		fields["last_error"] = *r.LastError
	}
	return e.log.WithFields(fields)
}
