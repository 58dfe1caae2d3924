package scheduler

import (
	"context"
	"fmt"
	"time"

	"sitewire_backend/internal/comms"
	"sitewire_backend/platform/config"
	"sitewire_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"
)

const dueProjectsBatch = 50

// JobProcessor drains a batch of due integration jobs and reports how many ran.
type JobProcessor interface {
	ProcessDue(ctx context.Context) (int, error)
}

// ReminderRunner runs the decision engine for one project whose check date passed.
type ReminderRunner interface {
	RunReminderCheck(ctx context.Context, projectID uuid.UUID) error
}

// DueProjectSource lists projects whose nextCheckDate is in the past.
type DueProjectSource interface {
	ListDueForCheckIDs(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error)
}

// CommSource loads stored communications for deferred processing.
type CommSource interface {
	GetByID(ctx context.Context, id uuid.UUID) (comms.Communication, error)
}

// CommProcessor re-runs the pipeline for a stored communication.
type CommProcessor interface {
	ProcessCommunication(ctx context.Context, comm comms.Communication) error
}

type WorkerDeps struct {
	Jobs      JobProcessor
	Reminders ReminderRunner
	Due       DueProjectSource
	Comms     CommSource
	Pipeline  CommProcessor
	Enqueue   ReminderCheckScheduler
	Log       *logger.Logger
}

type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	deps   WorkerDeps
	log    *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, deps WorkerDeps) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server: server,
		mux:    mux,
		deps:   deps,
		log:    deps.Log,
	}

	mux.HandleFunc(TaskIntegrationJobsPoll, w.handleIntegrationJobsPoll)
	mux.HandleFunc(TaskProjectRemindersDue, w.handleProjectRemindersDue)
	mux.HandleFunc(TaskProjectReminderCheck, w.handleProjectReminderCheck)
	mux.HandleFunc(TaskCommunicationProcess, w.handleCommunicationProcess)

	return w, nil
}

func (w *Worker) handleIntegrationJobsPoll(ctx context.Context, _ *asynq.Task) error {
	if w.deps.Jobs == nil {
		return nil
	}

	processed, err := w.deps.Jobs.ProcessDue(ctx)
	if err != nil {
		return err
	}
	if processed > 0 {
		w.log.Info("integration jobs processed", "count", processed)
	}
	return nil
}

// handleProjectRemindersDue fans out one task per due project so a slow
// decision run on one project never delays the rest.
func (w *Worker) handleProjectRemindersDue(ctx context.Context, _ *asynq.Task) error {
	if w.deps.Due == nil || w.deps.Enqueue == nil {
		return nil
	}

	ids, err := w.deps.Due.ListDueForCheckIDs(ctx, time.Now().UTC(), dueProjectsBatch)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(5)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			payload := ProjectReminderCheckPayload{ProjectID: id.String()}
			if err := w.deps.Enqueue.ScheduleReminderCheck(gctx, payload); err != nil {
				w.log.Error("failed to enqueue reminder check", "project_id", id, "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()

	return nil
}

func (w *Worker) handleProjectReminderCheck(ctx context.Context, task *asynq.Task) error {
	if w.deps.Reminders == nil {
		return nil
	}

	payload, err := ParseProjectReminderCheckPayload(task)
	if err != nil {
		return err
	}

	projectID, err := uuid.Parse(payload.ProjectID)
	if err != nil {
		return err
	}

	return w.deps.Reminders.RunReminderCheck(ctx, projectID)
}

func (w *Worker) handleCommunicationProcess(ctx context.Context, task *asynq.Task) error {
	if w.deps.Comms == nil || w.deps.Pipeline == nil {
		return nil
	}

	payload, err := ParseCommunicationProcessPayload(task)
	if err != nil {
		return err
	}

	commID, err := uuid.Parse(payload.CommunicationID)
	if err != nil {
		return err
	}

	comm, err := w.deps.Comms.GetByID(ctx, commID)
	if err != nil {
		return err
	}

	return w.deps.Pipeline.ProcessCommunication(ctx, comm)
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
