package integration

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"sitewire_backend/platform/apperr"
)

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Enqueue adds a pending job to the queue.
func (r *Repository) Enqueue(ctx context.Context, companyID uuid.UUID, resourceType, operationType string, resourceID *string, payload map[string]any) (uuid.UUID, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return uuid.Nil, apperr.Wrap(apperr.KindInternal, "failed to encode job payload", err)
	}

	var id uuid.UUID
	err = r.db.QueryRow(ctx, `
		INSERT INTO integration_jobs (company_id, resource_type, operation_type, resource_id, payload)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		companyID, resourceType, operationType, resourceID, encoded,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, apperr.Wrap(apperr.KindInternal, "failed to enqueue integration job", err)
	}
	return id, nil
}

const jobColumns = `id, company_id, resource_type, operation_type, resource_id, payload,
	status, retry_count, next_retry_at, error_message, result, created_at, updated_at`

// ClaimDue atomically claims up to limit due jobs, oldest first, marking them
// in_progress. SKIP LOCKED lets concurrent pollers claim disjoint batches.
// A job is due when pending, or in retry with its backoff elapsed.
func (r *Repository) ClaimDue(ctx context.Context, now time.Time, limit int) ([]Job, error) {
	rows, err := r.db.Query(ctx, `
		UPDATE integration_jobs
		SET status = 'in_progress', updated_at = $1
		WHERE id IN (
			SELECT id FROM integration_jobs
			WHERE status = 'pending'
			   OR (status = 'retry' AND next_retry_at <= $1)
			ORDER BY created_at
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
		RETURNING `+jobColumns,
		now, limit,
	)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to claim integration jobs", err)
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "failed to scan integration job", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// MarkCompleted records a successful job with its result payload.
func (r *Repository) MarkCompleted(ctx context.Context, id uuid.UUID, result map[string]any) error {
	encoded, err := json.Marshal(result)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to encode job result", err)
	}
	_, err = r.db.Exec(ctx, `
		UPDATE integration_jobs
		SET status = 'completed', result = $1, error_message = NULL, updated_at = now()
		WHERE id = $2`,
		encoded, id,
	)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to complete integration job", err)
	}
	return nil
}

// MarkRetry schedules the next attempt after a transient failure.
func (r *Repository) MarkRetry(ctx context.Context, id uuid.UUID, retryCount int, nextRetryAt time.Time, errMsg string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE integration_jobs
		SET status = 'retry', retry_count = $1, next_retry_at = $2, error_message = $3, updated_at = now()
		WHERE id = $4`,
		retryCount, nextRetryAt, errMsg, id,
	)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to schedule job retry", err)
	}
	return nil
}

// MarkFailed records a terminal failure. The job will not be claimed again.
func (r *Repository) MarkFailed(ctx context.Context, id uuid.UUID, retryCount int, errMsg string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE integration_jobs
		SET status = 'failed', retry_count = $1, next_retry_at = NULL, error_message = $2, updated_at = now()
		WHERE id = $3`,
		retryCount, errMsg, id,
	)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to mark job failed", err)
	}
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Job, error) {
	job, err := scanJob(r.db.QueryRow(ctx, `SELECT `+jobColumns+` FROM integration_jobs WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Job{}, apperr.Wrap(apperr.KindNotFound, "integration job not found", err)
		}
		return Job{}, apperr.Wrap(apperr.KindInternal, "failed to get integration job", err)
	}
	return job, nil
}

// ListRecent returns the newest jobs, optionally filtered by status.
func (r *Repository) ListRecent(ctx context.Context, status JobStatus, limit int) ([]Job, error) {
	query := `SELECT ` + jobColumns + ` FROM integration_jobs`
	args := []any{}
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC LIMIT $` + strconv.Itoa(len(args)+1)
	args = append(args, limit)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to list integration jobs", err)
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "failed to scan integration job", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (Job, error) {
	var (
		job     Job
		payload []byte
		result  []byte
	)
	err := row.Scan(&job.ID, &job.CompanyID, &job.ResourceType, &job.OperationType, &job.ResourceID,
		&payload, &job.Status, &job.RetryCount, &job.NextRetryAt, &job.ErrorMessage, &result,
		&job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		return Job{}, err
	}
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &job.Payload); err != nil {
			return Job{}, err
		}
	}
	if len(result) > 0 {
		if err := json.Unmarshal(result, &job.Result); err != nil {
			return Job{}, err
		}
	}
	return job, nil
}
