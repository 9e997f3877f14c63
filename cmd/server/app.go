package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/phrazzld/taskr-api/internal/config"
	"github.com/phrazzld/taskr-api/internal/filestore"
	"github.com/phrazzld/taskr-api/internal/notify"
	"github.com/phrazzld/taskr-api/internal/platform/postgres"
	"github.com/phrazzld/taskr-api/internal/reminder"
	"github.com/phrazzld/taskr-api/internal/service"
	"github.com/phrazzld/taskr-api/internal/store"
)

// application holds all the shared application dependencies to simplify management
// and ensure proper cleanup on shutdown.
type application struct {
	// Configuration
	config *config.Config

	// Core services
	logger *slog.Logger
	db     *sql.DB

	// Stores
	taskStore     store.TaskStore
	reminderStore store.ReminderStore

	// Collaborators
	storage  filestore.Storage
	notifier notify.Notifier

	// Reminder scheduling and delivery
	scheduler *reminder.StoreScheduler
	runner    *reminder.Runner

	// Service interfaces
	taskService service.TaskService
}

// bootstrap loads configuration, connects to the database and builds the
// application. migrate applies pending migrations before anything else runs.
func bootstrap(ctx context.Context, configFile string, migrate bool) (*application, error) {
	cfg, log, err := loadAppConfig(configFile)
	if err != nil {
		return nil, err
	}

	db, err := setupAppDatabase(ctx, cfg.Database, log)
	if err != nil {
		return nil, err
	}

	if migrate {
		if err := postgres.Migrate(ctx, db, "up", log); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to apply migrations: %w", err)
		}
	}

	app, err := newApplication(ctx, cfg, log, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return app, nil
}

// newApplication creates a new application instance with all dependencies initialized.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	app.taskStore = postgres.NewPostgresTaskStore(db, logger)
	app.reminderStore = postgres.NewPostgresReminderStore(db, logger)

	var err error
	app.storage, err = filestore.New(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize file storage: %w", err)
	}
	logger.Info("File storage initialized", "backend", cfg.Storage.Backend)

	app.notifier = newNotifier(cfg.Mail, logger)

	app.scheduler = reminder.NewStoreScheduler(app.reminderStore, logger)
	app.runner = reminder.NewRunner(
		app.reminderStore,
		app.notifier,
		reminder.RunnerConfigFromConfig(cfg.Reminder),
		logger,
	)

	app.taskService, err = service.NewTaskService(
		app.taskStore,
		app.reminderStore,
		app.storage,
		app.scheduler,
		cfg.Reminder.Lead,
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create task service: %w", err)
	}

	logger.Info("Application initialized successfully")
	return app, nil
}

// newNotifier selects SendGrid when an API key is configured and the
// log-only notifier otherwise.
func newNotifier(cfg config.MailConfig, logger *slog.Logger) notify.Notifier {
	if cfg.SendGridAPIKey == "" {
		logger.Warn("No SendGrid API key configured, reminders will only be logged")
		return notify.NewLogNotifier(logger)
	}
	return notify.NewSendGridNotifier(cfg, logger)
}

// Run serves the HTTP API until ctx is canceled. With an embedded worker the
// reminder runner runs alongside it and is woken by newly due reminders.
func (app *application) Run(ctx context.Context) error {
	defer app.cleanup()

	if app.config.Server.EmbeddedWorker {
		if err := app.runner.Start(); err != nil {
			return fmt.Errorf("failed to start reminder runner: %w", err)
		}
		app.scheduler.SetWaker(app.runner)
	}

	if err := app.startHTTPServer(ctx, app.setupRouter()); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// RunWorker delivers reminders until ctx is canceled.
func (app *application) RunWorker(ctx context.Context) error {
	defer app.cleanup()

	if err := app.runner.Start(); err != nil {
		return fmt.Errorf("failed to start reminder runner: %w", err)
	}

	<-ctx.Done()
	app.logger.Info("Shutting down reminder worker...")
	return nil
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup() {
	if app.runner != nil {
		app.runner.Stop()
	}

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("Error closing database connection", "error", err)
		}
	}

	app.logger.Info("Application shutdown completed")
}
