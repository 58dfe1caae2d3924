package integration

import (
	"context"
	"time"

	"github.com/google/uuid"

	"sitewire_backend/internal/events"
	"sitewire_backend/platform/config"
	"sitewire_backend/platform/logger"
)

// Pusher mirrors one resource operation into the external CRM. Read jobs
// go through Fetch, everything else through Push.
type Pusher interface {
	Push(ctx context.Context, resourceType, operationType string, resourceID *string, payload map[string]any) (map[string]any, error)
	Fetch(ctx context.Context, resourceType string, resourceID *string) (map[string]any, error)
}

// Store is the queue persistence the processor needs.
type Store interface {
	ClaimDue(ctx context.Context, now time.Time, limit int) ([]Job, error)
	MarkCompleted(ctx context.Context, id uuid.UUID, result map[string]any) error
	MarkRetry(ctx context.Context, id uuid.UUID, retryCount int, nextRetryAt time.Time, errMsg string) error
	MarkFailed(ctx context.Context, id uuid.UUID, retryCount int, errMsg string) error
}

// Processor drains due jobs in batches and applies the retry policy.
type Processor struct {
	store      Store
	pusher     Pusher
	bus        events.Bus
	log        *logger.Logger
	maxRetries int
	backoffCap time.Duration
	batchSize  int
	now        func() time.Time
}

func NewProcessor(store Store, pusher Pusher, bus events.Bus, cfg config.IntegrationConfig, log *logger.Logger) *Processor {
	return &Processor{
		store:      store,
		pusher:     pusher,
		bus:        bus,
		log:        log,
		maxRetries: cfg.GetJobMaxRetries(),
		backoffCap: cfg.GetJobBackoffCap(),
		batchSize:  cfg.GetJobBatchSize(),
		now:        time.Now,
	}
}

// ProcessDue claims and runs one batch of due jobs. Returns how many jobs
// were attempted. Job failures never fail the batch.
func (p *Processor) ProcessDue(ctx context.Context) (int, error) {
	jobs, err := p.store.ClaimDue(ctx, p.now(), p.batchSize)
	if err != nil {
		return 0, err
	}

	for _, job := range jobs {
		p.runJob(ctx, job)
	}
	return len(jobs), nil
}

func (p *Processor) runJob(ctx context.Context, job Job) {
	var result map[string]any
	var err error
	if job.OperationType == "read" {
		result, err = p.pusher.Fetch(ctx, job.ResourceType, job.ResourceID)
	} else {
		result, err = p.pusher.Push(ctx, job.ResourceType, job.OperationType, job.ResourceID, job.Payload)
	}
	if err == nil {
		if err := p.store.MarkCompleted(ctx, job.ID, result); err != nil {
			p.log.DatabaseError("mark job completed", err)
		}
		return
	}

	// retry_count counts prior failures; maxRetries bounds how many retries
	// get scheduled, so failure maxRetries+1 is terminal.
	attempt := job.RetryCount + 1
	if attempt > p.maxRetries {
		p.log.JobFailure(job.ID.String(), attempt, true, err)
		if dbErr := p.store.MarkFailed(ctx, job.ID, attempt, err.Error()); dbErr != nil {
			p.log.DatabaseError("mark job failed", dbErr)
			return
		}
		if p.bus != nil {
			p.bus.Publish(ctx, events.IntegrationJobFailed{
				BaseEvent:    events.NewBaseEvent(),
				JobID:        job.ID,
				CompanyID:    job.CompanyID,
				ResourceType: job.ResourceType,
				ErrorMessage: err.Error(),
			})
		}
		return
	}

	nextRetryAt := p.now().Add(Backoff(attempt, p.backoffCap))
	p.log.JobFailure(job.ID.String(), attempt, false, err)
	if dbErr := p.store.MarkRetry(ctx, job.ID, attempt, nextRetryAt, err.Error()); dbErr != nil {
		p.log.DatabaseError("mark job retry", dbErr)
	}
}
