// Package project provides the managed-project model and its data access.
// Projects carry the scheduling state (last decision check, next reminder
// check) the decision engine and reminder loop coordinate through.
package project

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("project not found")

// Project is a managed construction project tracked by the automation layer.
type Project struct {
	ID                    uuid.UUID
	CompanyID             uuid.UUID
	Name                  string
	Summary               string
	NextStep              string
	TrackName             string
	TrackRoles            []string
	MilestoneInstructions string
	CustomFields          map[string]any
	LastActionCheck       *time.Time
	NextCheckDate         *time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// Repository provides data access for projects.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new project repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const projectColumns = `id, company_id, name, summary, next_step, track_name, track_roles,
	milestone_instructions, custom_fields, last_action_check, next_check_date, created_at, updated_at`

func scanProject(row pgx.Row) (Project, error) {
	var p Project
	err := row.Scan(
		&p.ID, &p.CompanyID, &p.Name, &p.Summary, &p.NextStep, &p.TrackName, &p.TrackRoles,
		&p.MilestoneInstructions, &p.CustomFields, &p.LastActionCheck, &p.NextCheckDate,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Project{}, ErrNotFound
	}
	return p, err
}

// GetByID fetches a single project.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Project, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = $1`, id)
	return scanProject(row)
}

// TouchLastActionCheck stamps the project's last decision check time.
func (r *Repository) TouchLastActionCheck(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE projects SET last_action_check = $2, updated_at = now() WHERE id = $1
	`, id, at)
	return err
}

// SetNextCheckDate schedules the next reminder re-check for a project.
func (r *Repository) SetNextCheckDate(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE projects SET next_check_date = $2, updated_at = now() WHERE id = $1
	`, id, at)
	return err
}

// ClearNextCheckDate removes a project's pending reminder check.
func (r *Repository) ClearNextCheckDate(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE projects SET next_check_date = NULL, updated_at = now() WHERE id = $1
	`, id)
	return err
}

// knownFields maps data_update field names onto real project columns.
// Anything else lands in the custom_fields document; per the store contract,
// field existence is not validated at this layer.
var knownFields = map[string]string{
	"summary":                "summary",
	"next_step":              "next_step",
	"track_name":             "track_name",
	"milestone_instructions": "milestone_instructions",
	"name":                   "name",
}

// UpdateField writes a single (field, value) pair onto the project.
func (r *Repository) UpdateField(ctx context.Context, id uuid.UUID, field string, value any) error {
	if column, ok := knownFields[field]; ok {
		_, err := r.pool.Exec(ctx,
			`UPDATE projects SET `+column+` = $2, updated_at = now() WHERE id = $1`,
			id, value)
		return err
	}

	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal field value: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		UPDATE projects
		SET custom_fields = custom_fields || jsonb_build_object($2::text, $3::jsonb),
		    updated_at = now()
		WHERE id = $1
	`, id, field, encoded)
	return err
}

// ListDueForCheckIDs returns the IDs of projects whose next_check_date has
// passed, oldest first, bounded by limit. The reminder fan-out loads each
// project separately so a single bad row cannot stall the batch.
func (r *Repository) ListDueForCheckIDs(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	if limit < 1 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id
		FROM projects
		WHERE next_check_date IS NOT NULL AND next_check_date <= $1
		ORDER BY next_check_date ASC
		LIMIT $2
	`, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
