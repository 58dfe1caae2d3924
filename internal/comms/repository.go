package comms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("communication not found")

// Repository provides data access for communications.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new communications repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert stores a newly normalized communication and returns it with its
// generated ID.
func (r *Repository) Insert(ctx context.Context, c Communication) (Communication, error) {
	participants, err := json.Marshal(c.Participants)
	if err != nil {
		return Communication{}, fmt.Errorf("marshal participants: %w", err)
	}

	err = r.pool.QueryRow(ctx, `
		INSERT INTO communications (company_id, comm_type, direction, participants, content, occurred_at, raw_webhook_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`, c.CompanyID, string(c.Type), string(c.Direction), participants, c.Content, c.OccurredAt, c.RawWebhookID).
		Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return Communication{}, err
	}
	return c, nil
}

// GetByID fetches a single communication.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Communication, error) {
	var c Communication
	var commType, direction string
	var participants []byte
	err := r.pool.QueryRow(ctx, `
		SELECT id, company_id, comm_type, direction, participants, content, occurred_at,
		       project_id, session_id, processed_by_agent, raw_webhook_id, created_at
		FROM communications
		WHERE id = $1
	`, id).Scan(
		&c.ID, &c.CompanyID, &commType, &direction, &participants, &c.Content, &c.OccurredAt,
		&c.ProjectID, &c.SessionID, &c.ProcessedByAgent, &c.RawWebhookID, &c.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Communication{}, ErrNotFound
	}
	if err != nil {
		return Communication{}, err
	}
	c.Type = Type(commType)
	c.Direction = Direction(direction)
	if err := json.Unmarshal(participants, &c.Participants); err != nil {
		return Communication{}, fmt.Errorf("unmarshal participants: %w", err)
	}
	return c, nil
}

// Link sets the one-shot session/project linkage on a communication.
// Nil arguments leave the corresponding column untouched.
func (r *Repository) Link(ctx context.Context, id uuid.UUID, projectID, sessionID *uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE communications
		SET project_id = COALESCE($2, project_id),
		    session_id = COALESCE($3, session_id)
		WHERE id = $1
	`, id, projectID, sessionID)
	return err
}

// MarkProcessed flags a communication as handled by the decision pipeline.
func (r *Repository) MarkProcessed(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE communications SET processed_by_agent = true WHERE id = $1
	`, id)
	return err
}
