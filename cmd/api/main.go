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
	apphttp "sitewire_backend/internal/http"
	"sitewire_backend/internal/http/router"
	"sitewire_backend/internal/intake"
	"sitewire_backend/internal/integration"
	"sitewire_backend/internal/integration/crm"
	"sitewire_backend/internal/knowledge"
	"sitewire_backend/internal/notify"
	"sitewire_backend/internal/pipeline"
	"sitewire_backend/internal/project"
	"sitewire_backend/internal/scheduler"
	"sitewire_backend/internal/session"
	"sitewire_backend/internal/sms"
	"sitewire_backend/platform/config"
	"sitewire_backend/platform/db"
	"sitewire_backend/platform/logger"
	"sitewire_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, "migrations")
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

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
	log.Info("database connection established")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	// Shared validator instance for dependency injection
	val := validator.New()

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	commsRepo := comms.NewRepository(pool)
	projectRepo := project.NewRepository(pool)
	correlateRepo := correlate.NewRepository(pool)
	correlator := correlate.NewService(correlateRepo, log)
	sessions := session.NewService(session.NewRepository(pool))

	decisionClient := decision.NewClient(cfg)
	engine := decision.NewEngine(decisionClient, projectRepo, cfg.GetDecisionSkipWindow(), log)
	if !cfg.IsDecisionEnabled() {
		log.Warn("DECISION_API_KEY not configured; decision calls will fail until set")
	}

	jobsRepo := integration.NewRepository(pool)
	crmClient := crm.NewClient(cfg, log)
	if crmClient == nil {
		log.Warn("CRM_BASE_URL not configured; integration jobs will fail until set")
	}
	processor := integration.NewProcessor(jobsRepo, crmClient, eventBus, cfg, log)

	smsClient := sms.NewClient(cfg, log)
	emailSender := email.NewSender(cfg)
	knowledgeSvc := knowledge.NewServiceFromConfig(cfg, log)

	// Operator notification hook subscribes to domain events (not HTTP-facing)
	notifier := notify.New(emailSender, cfg, log)
	notifier.RegisterHandlers(eventBus)

	actionRepo := action.NewRepository(pool)
	manager := action.NewManager(actionRepo, projectRepo, cfg.GetReminderDefaultDays(), log)

	pipelineSvc := pipeline.NewService(correlator, sessions, commsRepo, projectRepo, engine, manager, eventBus, log)

	executor := action.NewExecutor(action.ExecutorDeps{
		Records:     actionRepo,
		Projects:    projectRepo,
		Contacts:    correlateRepo,
		Escalations: actionRepo,
		SMS:         smsClient,
		Email:       emailSender,
		Knowledge:   knowledgeSvc,
		Jobs:        jobsRepo,
		Outbound:    pipelineSvc,
		Bus:         eventBus,
		Log:         log,
	})

	schedClient, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Warn("REDIS_URL not configured; failed communications will not be queued for retry", "error", err)
	}
	defer func() { _ = schedClient.Close() }()

	intakeModule := intake.NewModule(pool, commsRepo, pipelineSvc, schedClient, eventBus, val, log)
	actionModule := action.NewModule(actionRepo, manager, executor)
	integrationModule := integration.NewModule(jobsRepo, processor)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:     cfg,
		Logger:     log,
		Health:     db.NewPoolAdapter(pool),
		EventBus:   eventBus,
		APIKeyAuth: intakeModule.AuthMiddleware(),
		Modules: []apphttp.Module{
			intakeModule,
			actionModule,
			integrationModule,
		},
	}

	httpEngine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- httpEngine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = shutdownCtx
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
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
