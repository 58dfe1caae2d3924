// Package integration implements the durable job queue that mirrors local
// changes into the external CRM: enqueue, batched claiming, exponential
// retry backoff, and terminal failure handling.
package integration

import (
	"time"

	"github.com/google/uuid"
)

// JobStatus is the lifecycle state of an integration job.
type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobInProgress JobStatus = "in_progress"
	JobCompleted  JobStatus = "completed"
	JobRetry      JobStatus = "retry"
	JobFailed     JobStatus = "failed"
)

// Job is one unit of CRM synchronization work.
type Job struct {
	ID            uuid.UUID
	CompanyID     uuid.UUID
	ResourceType  string
	OperationType string
	ResourceID    *string
	Payload       map[string]any
	Status        JobStatus
	RetryCount    int
	NextRetryAt   *time.Time
	ErrorMessage  *string
	Result        map[string]any
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Backoff returns the delay before retry attempt n (1-based), doubling per
// attempt and clamped to cap.
func Backoff(attempt int, cap time.Duration) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	// Shift overflow guard: past 2^6 minutes every realistic cap is hit.
	if attempt > 7 {
		return cap
	}
	d := time.Duration(1<<(attempt-1)) * time.Minute
	if d > cap {
		return cap
	}
	return d
}
