package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sitewire_backend/internal/action"
	"sitewire_backend/internal/comms"
	"sitewire_backend/internal/correlate"
	"sitewire_backend/internal/decision"
	"sitewire_backend/internal/email"
	"sitewire_backend/internal/events"
	"sitewire_backend/internal/integration"
	"sitewire_backend/internal/integration/crm"
	"sitewire_backend/internal/notify"
	"sitewire_backend/internal/pipeline"
	"sitewire_backend/internal/project"
	"sitewire_backend/internal/scheduler"
	"sitewire_backend/internal/session"
	"sitewire_backend/platform/config"
	"sitewire_backend/platform/db"
	"sitewire_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting worker", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	eventBus := events.NewInMemoryBus(log)

	notifier := notify.New(email.NewSender(cfg), cfg, log)
	notifier.RegisterHandlers(eventBus)

	// Worker-side pipeline wiring (no HTTP handlers required).
	commsRepo := comms.NewRepository(pool)
	projectRepo := project.NewRepository(pool)
	correlateRepo := correlate.NewRepository(pool)
	correlator := correlate.NewService(correlateRepo, log)
	sessions := session.NewService(session.NewRepository(pool))

	decisionClient := decision.NewClient(cfg)
	engine := decision.NewEngine(decisionClient, projectRepo, cfg.GetDecisionSkipWindow(), log)

	jobsRepo := integration.NewRepository(pool)
	crmClient := crm.NewClient(cfg, log)
	processor := integration.NewProcessor(jobsRepo, crmClient, eventBus, cfg, log)

	actionRepo := action.NewRepository(pool)
	manager := action.NewManager(actionRepo, projectRepo, cfg.GetReminderDefaultDays(), log)

	pipelineSvc := pipeline.NewService(correlator, sessions, commsRepo, projectRepo, engine, manager, eventBus, log)

	schedClient, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize scheduler client", "error", err)
		panic("failed to initialize scheduler client: " + err.Error())
	}
	defer func() { _ = schedClient.Close() }()

	dispatcher, err := scheduler.NewDispatcher(cfg, log)
	if err != nil {
		log.Error("failed to initialize dispatcher", "error", err)
		panic("failed to initialize dispatcher: " + err.Error())
	}
	defer func() { _ = dispatcher.Close() }()
	go dispatcher.Run(ctx)

	worker, err := scheduler.NewWorker(cfg, scheduler.WorkerDeps{
		Jobs:      processor,
		Reminders: pipelineSvc,
		Due:       projectRepo,
		Comms:     commsRepo,
		Pipeline:  pipelineSvc,
		Enqueue:   schedClient,
		Log:       log,
	})
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	worker.Run(ctx)
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
