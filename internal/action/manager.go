package action

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"sitewire_backend/internal/decision"
	"sitewire_backend/internal/project"
	"sitewire_backend/platform/logger"
)

// DefaultReminderDays is the follow-up interval used when a
// SET_FUTURE_REMINDER decision omits or mangles days_until_check.
const DefaultReminderDays = 7

// Store is the persistence surface the manager needs.
type Store interface {
	Insert(ctx context.Context, rec Record) (Record, error)
}

// ProjectScheduler sets a project's reminder check date.
type ProjectScheduler interface {
	SetNextCheckDate(ctx context.Context, projectID uuid.UUID, at time.Time) error
}

// Manager turns decision payloads into action records. Creation rules, not
// execution: everything the manager produces either waits for approval or is
// a reminder bookkeeping record that executed on the spot.
type Manager struct {
	store        Store
	projects     ProjectScheduler
	reminderDays int
	log          *logger.Logger
	now          func() time.Time
}

func NewManager(store Store, projects ProjectScheduler, reminderDays int, log *logger.Logger) *Manager {
	if reminderDays <= 0 {
		reminderDays = DefaultReminderDays
	}
	return &Manager{
		store:        store,
		projects:     projects,
		reminderDays: reminderDays,
		log:          log,
		now:          time.Now,
	}
}

// ApplyDecision creates the action record (if any) a decision calls for.
// NO_ACTION and unparsable decisions produce no record and no error; a nil
// record with nil error means nothing was created.
func (m *Manager) ApplyDecision(ctx context.Context, projectID uuid.UUID, promptRunID *uuid.UUID, p decision.Payload) (*Record, error) {
	switch p.Decision {
	case decision.DecisionActionNeeded:
		return m.createActionNeeded(ctx, projectID, promptRunID, p)
	case decision.DecisionSetFutureReminder:
		return m.createReminder(ctx, projectID, promptRunID, p)
	case decision.DecisionRequestHumanReview:
		return m.createPending(ctx, projectID, promptRunID, TypeHumanInLoop, map[string]any{
			decision.FieldReason: p.Reason,
		})
	case decision.DecisionQueryKnowledgeBase:
		payload := decision.NormalizeActionPayload(p.ActionPayload)
		if payload == nil {
			payload = map[string]any{}
		}
		if payload[decision.FieldReason] == nil && p.Reason != "" {
			payload[decision.FieldReason] = p.Reason
		}
		return m.createPending(ctx, projectID, promptRunID, TypeKnowledgeQuery, payload)
	case decision.DecisionNoAction, decision.DecisionUnparsable:
		return nil, nil
	default:
		m.log.Warn("unrecognized decision treated as no action",
			slog.String("decision", string(p.Decision)),
			slog.String("project_id", projectID.String()))
		return nil, nil
	}
}

func (m *Manager) createActionNeeded(ctx context.Context, projectID uuid.UUID, promptRunID *uuid.UUID, p decision.Payload) (*Record, error) {
	actionType := Type(p.ActionType)
	if actionType == "" || !KnownType(actionType) {
		if actionType != "" {
			m.log.Warn("unknown action type defaulted to message",
				slog.String("action_type", string(actionType)),
				slog.String("project_id", projectID.String()))
		}
		actionType = TypeMessage
	}

	payload := decision.NormalizeActionPayload(p.ActionPayload)
	if payload == nil {
		payload = map[string]any{}
	}
	if actionType == TypeMessage {
		fillMessageDefaults(payload, p.Reason)
	}

	return m.createPending(ctx, projectID, promptRunID, actionType, payload)
}

// createReminder handles the one decision that bypasses approval: it moves
// the project's check date and records an already-executed bookkeeping entry.
func (m *Manager) createReminder(ctx context.Context, projectID uuid.UUID, promptRunID *uuid.UUID, p decision.Payload) (*Record, error) {
	days := m.reminderDays
	if p.DaysUntilCheck != nil && *p.DaysUntilCheck > 0 {
		days = *p.DaysUntilCheck
	}

	now := m.now()
	nextCheck := now.AddDate(0, 0, days)
	if err := m.projects.SetNextCheckDate(ctx, projectID, nextCheck); err != nil {
		return nil, err
	}

	executedAt := now
	rec := Record{
		ProjectID:   projectID,
		PromptRunID: promptRunID,
		ActionType:  TypeSetFutureReminder,
		ActionPayload: map[string]any{
			"days_until_check": days,
			"check_reason":     p.CheckReason,
		},
		RequiresApproval: false,
		Status:           StatusExecuted,
		ExecutionResult: &ExecutionResult{
			Success: true,
			Message: "follow-up reminder scheduled",
			Details: map[string]any{
				"next_check_date":  nextCheck.Format(time.RFC3339),
				"days_until_check": days,
			},
		},
		ExecutedAt: &executedAt,
	}

	created, err := m.store.Insert(ctx, rec)
	if err != nil {
		return nil, err
	}
	return &created, nil
}

func (m *Manager) createPending(ctx context.Context, projectID uuid.UUID, promptRunID *uuid.UUID, actionType Type, payload map[string]any) (*Record, error) {
	rec := Record{
		ProjectID:        projectID,
		PromptRunID:      promptRunID,
		ActionType:       actionType,
		ActionPayload:    payload,
		RequiresApproval: true,
		Status:           StatusPending,
	}
	created, err := m.store.Insert(ctx, rec)
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// fillMessageDefaults backfills missing message payload fields with a
// generic follow-up, so a thin decision never fails record creation.
func fillMessageDefaults(payload map[string]any, reason string) {
	if str(payload[decision.FieldMessage]) == "" {
		if reason != "" {
			payload[decision.FieldMessage] = reason
		} else {
			payload[decision.FieldMessage] = "Just checking in for an update on this project."
		}
	}
	if str(payload[decision.FieldRecipient]) == "" {
		payload[decision.FieldRecipient] = "customer"
	}
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

var _ ProjectScheduler = (*project.Repository)(nil)
