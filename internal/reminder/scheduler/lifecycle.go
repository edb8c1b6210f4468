package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"medreminder-backend/internal/reminder/channel"
	"medreminder-backend/internal/reminder/domain"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// LifecycleConfig controls when cycles run
type LifecycleConfig struct {
	PollInterval time.Duration
	StartDelay   time.Duration
	TickTimeout  time.Duration
}

// Lifecycle drives an Engine on a fixed cadence. Timer-driven cycles never
// overlap: a cycle still running when the next one is due delays it.
// RunOnce and SendNow are not serialized with the timer.
type Lifecycle struct {
	engine  *Engine
	channel channel.Channel
	cfg     LifecycleConfig
	log     logrus.FieldLogger

	mu      sync.Mutex
	cron    *cron.Cron
	timer   *time.Timer
	cancel  context.CancelFunc
	running sync.WaitGroup
	started bool
	stopped bool
}

func NewLifecycle(engine *Engine, ch channel.Channel, cfg LifecycleConfig, log logrus.FieldLogger) *Lifecycle {
	if cfg.TickTimeout <= 0 {
		cfg.TickTimeout = 2 * time.Minute
	}
	return &Lifecycle{
		engine:  engine,
		channel: ch,
		cfg:     cfg,
		log:     log.WithField("component", "scheduler"),
	}
}

// Start verifies the channel in the background, schedules a cycle every
// PollInterval and fires the first one after StartDelay.
func (l *Lifecycle) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.started {
		return errors.New("scheduler already started")
	}
	if l.cfg.PollInterval <= 0 {
		return errors.New("poll interval must be positive")
	}
	l.started = true

	base, cancel := context.WithCancel(ctx)
	l.cancel = cancel

	l.log.WithFields(logrus.Fields{
		"poll_interval": l.cfg.PollInterval.String(),
		"start_delay":   l.cfg.StartDelay.String(),
	}).Info("Starting reminder scheduler")

	go l.verify(base)

	cronLogger := cron.PrintfLogger(l.log)
	job := cron.NewChain(
		cron.Recover(cronLogger),
		cron.DelayIfStillRunning(cronLogger),
	).Then(cron.FuncJob(func() { l.tick(base) }))

	l.cron = cron.New(cron.WithLogger(cronLogger))
	l.cron.Schedule(cron.Every(l.cfg.PollInterval), job)
	l.cron.Start()

	l.timer = time.AfterFunc(l.cfg.StartDelay, func() {
		l.mu.Lock()
		if l.stopped {
			l.mu.Unlock()
			return
		}
		l.running.Add(1)
		l.mu.Unlock()
		defer l.running.Done()
		job.Run()
	})
	return nil
}

// Stop prevents new cycles, waits for a running cycle to finish and then
// cancels the scheduler context. It is safe to call more than once.
func (l *Lifecycle) Stop() {
	l.mu.Lock()
	if !l.started || l.stopped {
		l.mu.Unlock()
		return
	}
	l.stopped = true
	l.timer.Stop()
	c := l.cron
	l.mu.Unlock()

	l.log.Info("Stopping reminder scheduler")
	<-c.Stop().Done()
	l.running.Wait()
	l.cancel()
	l.log.Info("Reminder scheduler stopped")
}

func (l *Lifecycle) isStopped() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stopped
}

// RunOnce runs one cycle on demand
func (l *Lifecycle) RunOnce(ctx context.Context) (TickReport, error) {
	return l.engine.RunOnce(ctx)
}

// SendNow delivers one reminder on demand
func (l *Lifecycle) SendNow(ctx context.Context, id string) (*domain.Reminder, error) {
	return l.engine.SendNow(ctx, id)
}

func (l *Lifecycle) tick(base context.Context) {
	// cycles queued behind a slow one must not start once Stop is called
	if base.Err() != nil || l.isStopped() {
		return
	}
	ctx, cancel := context.WithTimeout(base, l.cfg.TickTimeout)
	defer cancel()

	report, err := l.engine.RunOnce(ctx)
	if err != nil {
		l.log.WithError(err).Warn("Cycle aborted, retrying next tick")
		return
	}
	if report.Due > 0 || report.Swept > 0 {
		l.log.WithFields(logrus.Fields{
			"due":    report.Due,
			"sent":   report.Sent,
			"failed": report.Failed,
			"swept":  report.Swept,
		}).Info("Cycle finished")
	}
}

func (l *Lifecycle) verify(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := channel.Verify(ctx, l.channel); err != nil {
		l.log.WithError(err).Error("Delivery transport verification failed")
		return
	}
	l.log.Info("Delivery transport ready")
}
