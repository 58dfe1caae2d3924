// Package pipeline orchestrates the communication lifecycle: correlation,
// session tracking, the decision step, and action record handling. Each
// stage owns its own failures; a stage failure stops the pipeline for that
// communication but never surfaces to the webhook caller.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"sitewire_backend/internal/action"
	"sitewire_backend/internal/comms"
	"sitewire_backend/internal/correlate"
	"sitewire_backend/internal/decision"
	"sitewire_backend/internal/events"
	"sitewire_backend/internal/project"
	"sitewire_backend/internal/session"
	"sitewire_backend/platform/logger"
)

// Correlator resolves a communication to its project associations.
type Correlator interface {
	Correlate(ctx context.Context, c comms.Communication) (correlate.Result, error)
}

// Sessions tracks per-channel conversation state.
type Sessions interface {
	ForCommunication(ctx context.Context, c comms.Communication, contactID, projectID *uuid.UUID) (session.ChatSession, error)
	ForOutbound(ctx context.Context, c comms.Communication, contactID, projectID *uuid.UUID) (session.ChatSession, error)
}

// CommStore persists outbound communications and updates the linkage and
// processed flag on stored ones.
type CommStore interface {
	Insert(ctx context.Context, c comms.Communication) (comms.Communication, error)
	Link(ctx context.Context, id uuid.UUID, projectID, sessionID *uuid.UUID) error
	MarkProcessed(ctx context.Context, id uuid.UUID) error
}

// ProjectStore loads projects and lists those due for a reminder check.
type ProjectStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (project.Project, error)
	ClearNextCheckDate(ctx context.Context, id uuid.UUID) error
}

// Engine runs the decision step.
type Engine interface {
	Decide(ctx context.Context, p project.Project, newData string, isReminderCheck bool) (decision.Outcome, error)
}

// Manager turns decisions into action records.
type Manager interface {
	ApplyDecision(ctx context.Context, projectID uuid.UUID, promptRunID *uuid.UUID, p decision.Payload) (*action.Record, error)
}

// Service wires the stages together.
type Service struct {
	correlator Correlator
	sessions   Sessions
	comms      CommStore
	projects   ProjectStore
	engine     Engine
	manager    Manager
	bus        events.Bus
	log        *logger.Logger
}

func NewService(correlator Correlator, sessions Sessions, commStore CommStore, projects ProjectStore, engine Engine, manager Manager, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		correlator: correlator,
		sessions:   sessions,
		comms:      commStore,
		projects:   projects,
		engine:     engine,
		manager:    manager,
		bus:        bus,
		log:        log,
	}
}

// ProcessCommunication advances one stored communication through the
// pipeline. Stages run sequentially to preserve per-communication ordering.
func (s *Service) ProcessCommunication(ctx context.Context, comm comms.Communication) error {
	result, err := s.correlator.Correlate(ctx, comm)
	if err != nil {
		return fmt.Errorf("correlate communication %s: %w", comm.ID, err)
	}

	if !result.Routed() {
		s.publishUnrouted(ctx, comm, "no contact match")
		return nil
	}

	var contactID *uuid.UUID
	if len(result.Contacts) > 0 {
		contactID = &result.Contacts[0].ID
	}

	sess, err := s.sessions.ForCommunication(ctx, comm, contactID, result.ProjectID)
	if err != nil {
		return fmt.Errorf("session for communication %s: %w", comm.ID, err)
	}

	if err := s.comms.Link(ctx, comm.ID, result.ProjectID, &sess.ID); err != nil {
		return fmt.Errorf("link communication %s: %w", comm.ID, err)
	}

	// Multi-project threads are stored with full session history but never
	// drive a project-scoped decision: picking one project would silently
	// drop the rest.
	if result.IsMultiProject {
		s.log.Info("multi-project communication held for review",
			"communication_id", comm.ID.String())
		s.publishUnrouted(ctx, comm, "spans multiple projects")
		return nil
	}

	if result.ProjectID == nil {
		return nil
	}

	if err := s.runDecision(ctx, *result.ProjectID, comm.Content, false); err != nil {
		return err
	}

	if err := s.comms.MarkProcessed(ctx, comm.ID); err != nil {
		s.log.DatabaseError("mark communication processed", err)
	}
	return nil
}

// RecordOutbound stores a delivered agent message as an OUTBOUND
// communication and appends it to the channel's session history, so later
// decisions see both sides of the conversation.
func (s *Service) RecordOutbound(ctx context.Context, proj project.Project, contact correlate.Contact, commType comms.Type, content string) error {
	comm := comms.Communication{
		CompanyID:  proj.CompanyID,
		Type:       commType,
		Direction:  comms.DirectionOutbound,
		Content:    content,
		OccurredAt: time.Now().UTC(),
	}
	if contact.PhoneNumber != "" {
		comm.Participants = append(comm.Participants, comms.Participant{
			Type: comms.ParticipantPhone, Value: contact.PhoneNumber, ContactID: &contact.ID,
		})
	}
	if contact.Email != "" {
		comm.Participants = append(comm.Participants, comms.Participant{
			Type: comms.ParticipantEmail, Value: contact.Email, ContactID: &contact.ID,
		})
	}

	stored, err := s.comms.Insert(ctx, comm)
	if err != nil {
		return fmt.Errorf("insert outbound communication: %w", err)
	}

	sess, err := s.sessions.ForOutbound(ctx, stored, &contact.ID, &proj.ID)
	if err != nil {
		return fmt.Errorf("session for outbound communication %s: %w", stored.ID, err)
	}

	if err := s.comms.Link(ctx, stored.ID, &proj.ID, &sess.ID); err != nil {
		return fmt.Errorf("link outbound communication %s: %w", stored.ID, err)
	}
	return nil
}

// RunReminderCheck re-evaluates a project whose scheduled check date is due.
// The check date is cleared before deciding, so a decision that wants
// another follow-up must set a fresh one.
func (s *Service) RunReminderCheck(ctx context.Context, projectID uuid.UUID) error {
	if err := s.projects.ClearNextCheckDate(ctx, projectID); err != nil {
		return fmt.Errorf("clear next check date for project %s: %w", projectID, err)
	}
	return s.runDecision(ctx, projectID, "", true)
}

func (s *Service) runDecision(ctx context.Context, projectID uuid.UUID, newData string, isReminderCheck bool) error {
	proj, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return fmt.Errorf("load project %s: %w", projectID, err)
	}

	outcome, err := s.engine.Decide(ctx, proj, newData, isReminderCheck)
	if err != nil {
		// Unparsable responses are a modeled outcome, not a pipeline
		// failure: the check timestamp is already stamped and there is
		// nothing to act on.
		if errors.Is(err, decision.ErrUnparsable) {
			s.log.Warn("decision response unparsable", "project_id", projectID.String())
			return nil
		}
		return fmt.Errorf("decision for project %s: %w", projectID, err)
	}
	if outcome.Skipped {
		return nil
	}

	rec, err := s.manager.ApplyDecision(ctx, projectID, nil, outcome.Payload)
	if err != nil {
		return fmt.Errorf("apply decision for project %s: %w", projectID, err)
	}

	if rec != nil && rec.Status == action.StatusPending && s.bus != nil {
		s.bus.Publish(ctx, events.ActionPendingApproval{
			BaseEvent:  events.NewBaseEvent(),
			ActionID:   rec.ID,
			ProjectID:  projectID,
			ActionType: string(rec.ActionType),
			Reason:     outcome.Payload.Reason,
		})
	}
	return nil
}

func (s *Service) publishUnrouted(ctx context.Context, comm comms.Communication, reason string) {
	s.log.Info("communication unrouted",
		"communication_id", comm.ID.String(),
		"reason", reason)
	if s.bus != nil {
		s.bus.Publish(ctx, events.CommunicationUnrouted{
			BaseEvent:       events.NewBaseEvent(),
			CommunicationID: comm.ID,
			CompanyID:       comm.CompanyID,
			Reason:          reason,
		})
	}
}
