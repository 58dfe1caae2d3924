package action

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"sitewire_backend/platform/apperr"
)

// ErrInvalidTransition is returned when a status change would violate the
// action record state machine, including the lost-update case where another
// writer moved the record first.
var ErrInvalidTransition = errors.New("invalid action status transition")

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Insert(ctx context.Context, rec Record) (Record, error) {
	payload, err := json.Marshal(rec.ActionPayload)
	if err != nil {
		return Record{}, apperr.Wrap(apperr.KindInternal, "failed to encode action payload", err)
	}
	var result []byte
	if rec.ExecutionResult != nil {
		result, err = json.Marshal(rec.ExecutionResult)
		if err != nil {
			return Record{}, apperr.Wrap(apperr.KindInternal, "failed to encode execution result", err)
		}
	}

	query := `
		INSERT INTO action_records (project_id, prompt_run_id, action_type, action_payload, requires_approval, status, execution_result, executed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`

	err = r.db.QueryRow(ctx, query,
		rec.ProjectID, rec.PromptRunID, rec.ActionType, payload,
		rec.RequiresApproval, rec.Status, result, rec.ExecutedAt,
	).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		return Record{}, apperr.Wrap(apperr.KindInternal, "failed to insert action record", err)
	}
	return rec, nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Record, error) {
	query := `
		SELECT id, project_id, prompt_run_id, action_type, action_payload, requires_approval, status, execution_result, created_at, executed_at
		FROM action_records
		WHERE id = $1`

	rec, err := scanRecord(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, apperr.Wrap(apperr.KindNotFound, "action record not found", err)
		}
		return Record{}, apperr.Wrap(apperr.KindInternal, "failed to get action record", err)
	}
	return rec, nil
}

func (r *Repository) ListByStatus(ctx context.Context, status Status, limit int) ([]Record, error) {
	query := `
		SELECT id, project_id, prompt_run_id, action_type, action_payload, requires_approval, status, execution_result, created_at, executed_at
		FROM action_records
		WHERE status = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := r.db.Query(ctx, query, status, limit)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to list action records", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "failed to scan action record", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *Repository) ListByProject(ctx context.Context, projectID uuid.UUID, limit int) ([]Record, error) {
	query := `
		SELECT id, project_id, prompt_run_id, action_type, action_payload, requires_approval, status, execution_result, created_at, executed_at
		FROM action_records
		WHERE project_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := r.db.Query(ctx, query, projectID, limit)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to list project action records", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "failed to scan action record", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Transition moves a record between statuses with an optimistic guard on the
// current status, so concurrent approvals cannot double-fire.
func (r *Repository) Transition(ctx context.Context, id uuid.UUID, from, to Status) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}

	tag, err := r.db.Exec(ctx,
		`UPDATE action_records SET status = $1 WHERE id = $2 AND status = $3`,
		to, id, from,
	)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to transition action record", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: record %s is no longer %s", ErrInvalidTransition, id, from)
	}
	return nil
}

// Finish records the execution outcome and stamps the terminal status. The
// guard only permits finishing records that are pending or approved.
func (r *Repository) Finish(ctx context.Context, id uuid.UUID, result ExecutionResult, executedAt time.Time) error {
	status := StatusExecuted
	if !result.Success {
		status = StatusFailed
	}

	encoded, err := json.Marshal(result)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to encode execution result", err)
	}

	tag, err := r.db.Exec(ctx, `
		UPDATE action_records
		SET status = $1, execution_result = $2, executed_at = $3
		WHERE id = $4 AND status IN ('pending', 'approved')`,
		status, encoded, executedAt, id,
	)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to finish action record", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: record %s cannot be finished", ErrInvalidTransition, id)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (Record, error) {
	var (
		rec     Record
		payload []byte
		result  []byte
	)
	err := row.Scan(&rec.ID, &rec.ProjectID, &rec.PromptRunID, &rec.ActionType,
		&payload, &rec.RequiresApproval, &rec.Status, &result, &rec.CreatedAt, &rec.ExecutedAt)
	if err != nil {
		return Record{}, err
	}
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &rec.ActionPayload); err != nil {
			return Record{}, err
		}
	}
	if len(result) > 0 {
		var er ExecutionResult
		if err := json.Unmarshal(result, &er); err != nil {
			return Record{}, err
		}
		rec.ExecutionResult = &er
	}
	return rec, nil
}
