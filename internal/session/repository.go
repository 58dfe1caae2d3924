// Package session manages chat sessions and their ordered conversation
// history. Sessions are keyed by (channel type, channel identifier, company)
// and found-or-created atomically at the store level.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("chat session not found")

// ChannelType identifies the transport a session lives on.
type ChannelType string

const (
	ChannelWeb   ChannelType = "web"
	ChannelSMS   ChannelType = "sms"
	ChannelEmail ChannelType = "email"
)

// Role identifies the author of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatSession is one conversation thread on a channel.
type ChatSession struct {
	ID                uuid.UUID
	ChannelType       ChannelType
	ChannelIdentifier string
	CompanyID         uuid.UUID
	ContactID         *uuid.UUID
	ProjectID         *uuid.UUID
	LastActivity      time.Time
	CreatedAt         time.Time
}

// Message is a single conversation history entry.
type Message struct {
	Seq       int64
	SessionID uuid.UUID
	Role      Role
	Content   string
	CreatedAt time.Time
}

// Repository provides data access for chat sessions.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new session repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetOrCreate finds or creates the session for a channel key. The upsert is a
// single atomic statement, so concurrent callers with the same key converge
// on the same row. Contact and project linkage is filled in on first create
// and backfilled later if it was unknown at create time.
func (r *Repository) GetOrCreate(ctx context.Context, channelType ChannelType, channelIdentifier string, companyID uuid.UUID, contactID, projectID *uuid.UUID) (ChatSession, error) {
	var s ChatSession
	var ct string
	err := r.pool.QueryRow(ctx, `
		INSERT INTO chat_sessions (channel_type, channel_identifier, company_id, contact_id, project_id)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (channel_type, channel_identifier, company_id)
		DO UPDATE SET
			last_activity = now(),
			contact_id = COALESCE(chat_sessions.contact_id, EXCLUDED.contact_id),
			project_id = COALESCE(chat_sessions.project_id, EXCLUDED.project_id)
		RETURNING id, channel_type, channel_identifier, company_id, contact_id, project_id, last_activity, created_at
	`, string(channelType), channelIdentifier, companyID, contactID, projectID).Scan(
		&s.ID, &ct, &s.ChannelIdentifier, &s.CompanyID, &s.ContactID, &s.ProjectID, &s.LastActivity, &s.CreatedAt,
	)
	if err != nil {
		return ChatSession{}, err
	}
	s.ChannelType = ChannelType(ct)
	return s, nil
}

// AppendMessage appends one history entry. The entry is a single-row insert
// with a store-assigned sequence number, so concurrent appends to the same
// session never lose updates; ordering across concurrent appenders follows
// sequence assignment.
func (r *Repository) AppendMessage(ctx context.Context, sessionID uuid.UUID, role Role, content string) (Message, error) {
	var m Message
	err := r.pool.QueryRow(ctx, `
		WITH touched AS (
			UPDATE chat_sessions SET last_activity = now() WHERE id = $1
		)
		INSERT INTO session_messages (session_id, role, content)
		VALUES ($1, $2, $3)
		RETURNING seq, session_id, role, content, created_at
	`, sessionID, string(role), content).Scan(&m.Seq, &m.SessionID, (*string)(&m.Role), &m.Content, &m.CreatedAt)
	return m, err
}

// History returns a session's conversation history in append order.
func (r *Repository) History(ctx context.Context, sessionID uuid.UUID, limit int) ([]Message, error) {
	if limit < 1 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT seq, session_id, role, content, created_at
		FROM session_messages
		WHERE session_id = $1
		ORDER BY seq ASC
		LIMIT $2
	`, sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.Seq, &m.SessionID, (*string)(&m.Role), &m.Content, &m.CreatedAt); err != nil {
			return nil, err
		}
		history = append(history, m)
	}
	return history, rows.Err()
}

// GetByID fetches a single session.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (ChatSession, error) {
	var s ChatSession
	var ct string
	err := r.pool.QueryRow(ctx, `
		SELECT id, channel_type, channel_identifier, company_id, contact_id, project_id, last_activity, created_at
		FROM chat_sessions
		WHERE id = $1
	`, id).Scan(&s.ID, &ct, &s.ChannelIdentifier, &s.CompanyID, &s.ContactID, &s.ProjectID, &s.LastActivity, &s.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ChatSession{}, ErrNotFound
	}
	if err != nil {
		return ChatSession{}, err
	}
	s.ChannelType = ChannelType(ct)
	return s, nil
}
