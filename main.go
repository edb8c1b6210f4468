package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	api "medreminder-backend/cmd/api"
	authdomain "medreminder-backend/internal/auth/domain"
	authUsecase "medreminder-backend/internal/auth/usecase"
	"medreminder-backend/internal/reminder/channel"
	reminderRepo "medreminder-backend/internal/reminder/repository"
	"medreminder-backend/internal/reminder/scheduler"
	reminderUsecase "medreminder-backend/internal/reminder/usecase"
	"medreminder-backend/pkg/config"
	"medreminder-backend/pkg/database"
	"medreminder-backend/pkg/gmail"
	"medreminder-backend/pkg/logger"
	"medreminder-backend/pkg/smtpmail"

	"github.com/sirupsen/logrus"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (defaults to $CONFIG_FILE)")
	issueToken := flag.String("issue-operator-token", "", "print an operator token for the given id and exit")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to load configuration:", err)
		os.Exit(1)
	}
	log := logger.New(cfg)

	authUsecaseInstance := authUsecase.NewAuthUsecase(cfg)
	if *issueToken != "" {
		token, err := authUsecaseInstance.IssueToken(*issueToken, authdomain.RoleAdmin)
		if err != nil {
			log.Fatalf("Failed to issue operator token: %v", err)
		}
		fmt.Println(token)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize storage
	repo, err := openRepository(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open %s storage: %v", cfg.Storage.Driver, err)
	}
	defer repo.Close()
	log.WithField("driver", cfg.Storage.Driver).Info("Storage ready")

	// Initialize delivery channel
	ch, err := buildChannel(ctx, cfg, log)
	if err != nil {
		log.Fatalf("Failed to initialize delivery channel: %v", err)
	}

	engine := scheduler.NewEngine(repo, ch, scheduler.EngineConfig{
		PollInterval:    cfg.Scheduler.PollInterval,
		ToleranceMargin: cfg.Scheduler.ToleranceMargin,
		SweepGrace:      cfg.Scheduler.SweepGrace,
		MaxAttempts:     cfg.Scheduler.MaxAttempts,
	}, log)
	lifecycle := scheduler.NewLifecycle(engine, ch, scheduler.LifecycleConfig{
		PollInterval: cfg.Scheduler.PollInterval,
		StartDelay:   cfg.Scheduler.StartDelay,
		TickTimeout:  cfg.Scheduler.TickTimeout,
	}, log)

	if cfg.Scheduler.Enabled {
		if err := lifecycle.Start(ctx); err != nil {
			log.Fatalf("Failed to start reminder scheduler: %v", err)
		}
	} else {
		log.Warn("Reminder scheduler disabled by configuration")
	}

	// Initialize HTTP handler
	handler := api.NewHandler(authUsecaseInstance, reminderUsecase.NewReminderUsecase(repo, log), lifecycle, cfg, log)
	server := handler.NewServer(":" + cfg.Port)

	serverErr := make(chan error, 1)
	go func() {
		log.Infof("Server starting on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			log.Errorf("HTTP server failed: %v", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("HTTP server shutdown incomplete")
	}
	lifecycle.Stop()
	log.Info("Server stopped")
}

func openRepository(ctx context.Context, cfg *config.Config) (reminderRepo.ReminderRepository, error) {
	switch cfg.Storage.Driver {
	case "postgres":
		db, err := database.NewPostgresConnection(cfg)
		if err != nil {
			return nil, err
		}
		return reminderRepo.NewGormReminderRepository(db)
	case "sqlite":
		db, err := database.NewSQLiteConnection(cfg.Storage.SQLitePath, cfg.Storage.BusyTimeout)
		if err != nil {
			return nil, err
		}
		return reminderRepo.NewSQLiteReminderRepository(ctx, db)
	case "memory":
		return reminderRepo.NewMemoryReminderRepository(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver: %s", cfg.Storage.Driver)
	}
}

func buildChannel(ctx context.Context, cfg *config.Config, log *logrus.Logger) (channel.Channel, error) {
	if !cfg.Email.Enabled {
		log.Warn("Email delivery disabled, due reminders will be completed without sending")
		return channel.Disabled(), nil
	}

	var transport channel.Transport
	switch cfg.Email.Transport {
	case "gmail":
		svc, err := gmail.NewService(ctx, gmail.Config{
			ClientID:     cfg.Email.GmailClientID,
			ClientSecret: cfg.Email.GmailClientSecret,
			RefreshToken: cfg.Email.GmailRefreshToken,
		}, log)
		if err != nil {
			return nil, err
		}
		transport = svc
	case "smtp":
		transport = smtpmail.NewSender(smtpmail.Config{
			Host:     cfg.Email.SMTPHost,
			Port:     cfg.Email.SMTPPort,
			Username: cfg.Email.SMTPUsername,
			Password: cfg.Email.SMTPPassword,
			Timeout:  cfg.Email.Timeout,
		}, log)
	default:
		return nil, fmt.Errorf("unknown email transport: %s", cfg.Email.Transport)
	}

	log.WithFields(logrus.Fields{
		"transport": cfg.Email.Transport,
		"from":      cfg.Email.FromAddress,
	}).Info("Email delivery enabled")

	ch := channel.NewEmailChannel(transport, cfg.Email.FromName, cfg.Email.FromAddress)
	return channel.Throttle(ch, cfg.Email.RatePerSecond, cfg.Email.RateBurst), nil
}
