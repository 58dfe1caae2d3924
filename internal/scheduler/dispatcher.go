package scheduler

import (
	"context"
	"fmt"
	"time"

	"sitewire_backend/platform/config"
	"sitewire_backend/platform/logger"

	"github.com/hibiken/asynq"
)

const dispatchInterval = 30 * time.Second

// Dispatcher periodically enqueues the integration poll and reminder
// fan-out tasks so the worker picks them up even with no inbound traffic.
type Dispatcher struct {
	client *asynq.Client
	queue  string
	log    *logger.Logger
}

func NewDispatcher(cfg config.SchedulerConfig, log *logger.Logger) (*Dispatcher, error) {
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

	return &Dispatcher{
		client: asynq.NewClient(opt),
		queue:  queue,
		log:    log,
	}, nil
}

func (d *Dispatcher) Close() error {
	if d == nil || d.client == nil {
		return nil
	}
	return d.client.Close()
}

func (d *Dispatcher) Run(ctx context.Context) {
	if d == nil || d.client == nil {
		return
	}

	ticker := time.NewTicker(dispatchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		for _, name := range []string{TaskIntegrationJobsPoll, TaskProjectRemindersDue} {
			task := asynq.NewTask(name, nil)
			_, err := d.client.EnqueueContext(ctx, task, asynq.Queue(d.queue))
			if err != nil {
				d.log.Warn("failed to enqueue periodic task", "task", name, "error", err)
			}
		}
	}
}
