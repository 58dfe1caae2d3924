package action

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"sitewire_backend/internal/comms"
	"sitewire_backend/internal/correlate"
	"sitewire_backend/internal/decision"
	"sitewire_backend/internal/events"
	"sitewire_backend/internal/project"
	"sitewire_backend/platform/logger"
)

// escalationBodyLimit keeps escalation notices inside a single SMS segment
// budget used by the gateway.
const escalationBodyLimit = 300

// SMSSender delivers a text message and returns the gateway delivery id.
type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) (string, error)
}

// EmailSender delivers an email.
type EmailSender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// ContactSource provides the contacts the message handler resolves
// recipients against.
type ContactSource interface {
	ContactsForProject(ctx context.Context, projectID uuid.UUID) ([]correlate.Contact, error)
}

// ProjectStore is the project access the executor needs.
type ProjectStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (project.Project, error)
	UpdateField(ctx context.Context, id uuid.UUID, field string, value any) error
	SetNextCheckDate(ctx context.Context, id uuid.UUID, at time.Time) error
}

// EscalationSource lists the recipients escalation notices go to.
type EscalationSource interface {
	ActiveEscalationRecipients(ctx context.Context, companyID uuid.UUID) ([]EscalationRecipient, error)
}

// KnowledgeSearcher runs a knowledge-base query and returns matching snippets.
type KnowledgeSearcher interface {
	Search(ctx context.Context, companyID uuid.UUID, query string, limit int) ([]string, error)
}

// JobEnqueuer queues an integration sync job for the external CRM.
type JobEnqueuer interface {
	Enqueue(ctx context.Context, companyID uuid.UUID, resourceType, operationType string, resourceID *string, payload map[string]any) (uuid.UUID, error)
}

// RecordFinisher persists execution outcomes.
type RecordFinisher interface {
	Finish(ctx context.Context, id uuid.UUID, result ExecutionResult, executedAt time.Time) error
}

// OutboundRecorder writes a delivered message back into the communication
// history so later decisions see what was already said.
type OutboundRecorder interface {
	RecordOutbound(ctx context.Context, proj project.Project, contact correlate.Contact, commType comms.Type, content string) error
}

// Executor runs approved action records. Each action type has a handler
// returning the uniform ExecutionResult; handler errors become failed
// results, never panics or partial state.
type Executor struct {
	records     RecordFinisher
	projects    ProjectStore
	contacts    ContactSource
	escalations EscalationSource
	sms         SMSSender
	email       EmailSender
	knowledge   KnowledgeSearcher
	jobs        JobEnqueuer
	outbound    OutboundRecorder
	bus         events.Bus
	log         *logger.Logger
	now         func() time.Time
}

type ExecutorDeps struct {
	Records     RecordFinisher
	Projects    ProjectStore
	Contacts    ContactSource
	Escalations EscalationSource
	SMS         SMSSender
	Email       EmailSender
	Knowledge   KnowledgeSearcher
	Jobs        JobEnqueuer
	Outbound    OutboundRecorder
	Bus         events.Bus
	Log         *logger.Logger
}

func NewExecutor(d ExecutorDeps) *Executor {
	return &Executor{
		records:     d.Records,
		projects:    d.Projects,
		contacts:    d.Contacts,
		escalations: d.Escalations,
		sms:         d.SMS,
		email:       d.Email,
		knowledge:   d.Knowledge,
		jobs:        d.Jobs,
		outbound:    d.Outbound,
		bus:         d.Bus,
		log:         d.Log,
		now:         time.Now,
	}
}

// Execute runs a record's handler and persists the outcome. The record must
// already be approved (or be a non-approval record still pending). The
// returned error covers persistence only; handler failures are recorded in
// the execution result.
func (e *Executor) Execute(ctx context.Context, rec Record) (ExecutionResult, error) {
	proj, err := e.projects.GetByID(ctx, rec.ProjectID)
	if err != nil {
		return ExecutionResult{}, fmt.Errorf("load project for action %s: %w", rec.ID, err)
	}

	result := e.dispatch(ctx, rec, proj)

	executedAt := e.now()
	if err := e.records.Finish(ctx, rec.ID, result, executedAt); err != nil {
		return result, err
	}

	status := StatusExecuted
	if !result.Success {
		status = StatusFailed
	}
	e.log.ActionTransition(rec.ID.String(), string(rec.ActionType), string(rec.Status), string(status))

	if e.bus != nil {
		e.bus.Publish(ctx, events.ActionExecuted{
			BaseEvent:  events.NewBaseEvent(),
			ActionID:   rec.ID,
			ProjectID:  rec.ProjectID,
			ActionType: string(rec.ActionType),
			Success:    result.Success,
		})
	}
	return result, nil
}

func (e *Executor) dispatch(ctx context.Context, rec Record, proj project.Project) ExecutionResult {
	switch rec.ActionType {
	case TypeMessage:
		return e.executeMessage(ctx, rec, proj)
	case TypeDataUpdate:
		return e.executeDataUpdate(ctx, rec, proj)
	case TypeSetFutureReminder:
		return e.executeSetFutureReminder(ctx, rec, proj)
	case TypeEscalation:
		return e.executeEscalation(ctx, rec, proj)
	case TypeHumanInLoop:
		return e.executeHumanInLoop(rec)
	case TypeKnowledgeQuery:
		return e.executeKnowledgeQuery(ctx, rec, proj)
	default:
		return ExecutionResult{
			Success: false,
			Message: fmt.Sprintf("no handler for action type %q", rec.ActionType),
		}
	}
}

func (e *Executor) executeMessage(ctx context.Context, rec Record, proj project.Project) ExecutionResult {
	body := str(rec.ActionPayload[decision.FieldMessage])
	if body == "" {
		return ExecutionResult{Success: false, Message: "message payload has no message text"}
	}
	recipient := str(rec.ActionPayload[decision.FieldRecipient])

	contacts, err := e.contacts.ContactsForProject(ctx, rec.ProjectID)
	if err != nil {
		return ExecutionResult{Success: false, Message: "failed to load project contacts: " + err.Error()}
	}

	target := resolveRecipient(recipient, contacts)
	if target == nil {
		return ExecutionResult{
			Success: false,
			Message: fmt.Sprintf("no project contact matches recipient %q", recipient),
		}
	}

	details := map[string]any{
		"recipient_contact_id": target.ID.String(),
		"recipient_name":       target.Name,
	}

	var commType comms.Type
	switch {
	case target.PhoneNumber != "":
		deliveryID, err := e.sms.SendSMS(ctx, target.PhoneNumber, body)
		if err != nil {
			return ExecutionResult{Success: false, Message: "sms delivery failed: " + err.Error(), Details: details}
		}
		commType = comms.TypeSMS
		details["channel"] = "sms"
		details["delivery_id"] = deliveryID
	case target.Email != "":
		subject := "Update on " + proj.Name
		if err := e.email.Send(ctx, target.Email, subject, body); err != nil {
			return ExecutionResult{Success: false, Message: "email delivery failed: " + err.Error(), Details: details}
		}
		commType = comms.TypeEmail
		details["channel"] = "email"
	default:
		return ExecutionResult{
			Success: false,
			Message: fmt.Sprintf("contact %s has no phone or email", target.Name),
			Details: details,
		}
	}

	// The message went out; a write-back failure must not flip a delivered
	// action to failed.
	if e.outbound != nil {
		if err := e.outbound.RecordOutbound(ctx, proj, *target, commType, body); err != nil {
			e.log.Error("failed to record outbound message",
				slog.String("action_id", rec.ID.String()),
				slog.String("error", err.Error()))
		}
	}

	return ExecutionResult{Success: true, Message: "message delivered", Details: details}
}

func (e *Executor) executeDataUpdate(ctx context.Context, rec Record, proj project.Project) ExecutionResult {
	field := str(rec.ActionPayload[decision.FieldField])
	if field == "" {
		return ExecutionResult{Success: false, Message: "data update payload has no field"}
	}
	value := rec.ActionPayload[decision.FieldValue]

	if err := e.projects.UpdateField(ctx, rec.ProjectID, field, value); err != nil {
		return ExecutionResult{Success: false, Message: "project field update failed: " + err.Error()}
	}

	details := map[string]any{"field": field}
	resourceID := rec.ProjectID.String()
	jobID, err := e.jobs.Enqueue(ctx, proj.CompanyID, "project", "update", &resourceID, map[string]any{
		"field": field,
		"value": value,
	})
	if err != nil {
		// The local update stuck; the CRM mirror will catch up on the
		// next full sync, so record the gap instead of failing.
		e.log.Error("failed to enqueue crm sync for data update",
			slog.String("project_id", rec.ProjectID.String()),
			slog.String("error", err.Error()))
		details["crm_sync_queued"] = false
	} else {
		details["crm_sync_queued"] = true
		details["crm_job_id"] = jobID.String()
	}

	return ExecutionResult{Success: true, Message: "project field updated", Details: details}
}

// executeSetFutureReminder recomputes the check date at execution time, so a
// record approved days after creation still schedules relative to now.
func (e *Executor) executeSetFutureReminder(ctx context.Context, rec Record, _ project.Project) ExecutionResult {
	days := coerceDays(rec.ActionPayload["days_until_check"])
	if days <= 0 {
		days = DefaultReminderDays
	}

	nextCheck := e.now().AddDate(0, 0, days)
	if err := e.projects.SetNextCheckDate(ctx, rec.ProjectID, nextCheck); err != nil {
		return ExecutionResult{Success: false, Message: "failed to set next check date: " + err.Error()}
	}

	return ExecutionResult{
		Success: true,
		Message: "follow-up reminder scheduled",
		Details: map[string]any{
			"next_check_date":  nextCheck.Format(time.RFC3339),
			"days_until_check": days,
		},
	}
}

func (e *Executor) executeEscalation(ctx context.Context, rec Record, proj project.Project) ExecutionResult {
	recipients, err := e.escalations.ActiveEscalationRecipients(ctx, proj.CompanyID)
	if err != nil {
		return ExecutionResult{Success: false, Message: "failed to load escalation recipients: " + err.Error()}
	}
	if len(recipients) == 0 {
		return ExecutionResult{Success: false, Message: "no active escalation recipients configured"}
	}

	reason := str(rec.ActionPayload[decision.FieldReason])
	if reason == "" {
		reason = str(rec.ActionPayload[decision.FieldMessage])
	}
	body := escalationBody(proj.Name, reason)

	var sent, failed int
	var failures []string
	for _, rcpt := range recipients {
		if _, err := e.sms.SendSMS(ctx, rcpt.PhoneNumber, body); err != nil {
			failed++
			failures = append(failures, rcpt.Name)
			e.log.Error("escalation notification failed",
				slog.String("recipient", rcpt.Name),
				slog.String("project_id", rec.ProjectID.String()),
				slog.String("error", err.Error()))
			continue
		}
		sent++
	}

	details := map[string]any{
		"notifications_sent":   sent,
		"notifications_failed": failed,
	}
	if len(failures) > 0 {
		details["failed_recipients"] = failures
	}

	// Partial delivery still counts: someone was alerted.
	if sent == 0 {
		return ExecutionResult{Success: false, Message: "all escalation notifications failed", Details: details}
	}

	if e.bus != nil {
		e.bus.Publish(ctx, events.EscalationTriggered{
			BaseEvent:         events.NewBaseEvent(),
			ActionID:          rec.ID,
			ProjectID:         rec.ProjectID,
			NotificationsSent: sent,
		})
	}
	return ExecutionResult{
		Success: true,
		Message: fmt.Sprintf("escalation sent to %d of %d recipients", sent, len(recipients)),
		Details: details,
	}
}

func (e *Executor) executeHumanInLoop(rec Record) ExecutionResult {
	return ExecutionResult{
		Success: true,
		Message: "flagged for human review",
		Details: map[string]any{"reason": str(rec.ActionPayload[decision.FieldReason])},
	}
}

func (e *Executor) executeKnowledgeQuery(ctx context.Context, rec Record, proj project.Project) ExecutionResult {
	query := str(rec.ActionPayload[decision.FieldQuery])
	if query == "" {
		return ExecutionResult{Success: false, Message: "knowledge query payload has no query"}
	}

	results, err := e.knowledge.Search(ctx, proj.CompanyID, query, 5)
	if err != nil {
		return ExecutionResult{Success: false, Message: "knowledge search failed: " + err.Error()}
	}

	return ExecutionResult{
		Success: true,
		Message: fmt.Sprintf("knowledge search returned %d results", len(results)),
		Details: map[string]any{
			"query":        query,
			"result_count": len(results),
			"results":      results,
		},
	}
}

// genericRecipients are payload values that mean "whoever the customer is",
// not a name to match against.
var genericRecipients = map[string]bool{
	"team":     true,
	"customer": true,
	"client":   true,
	"crew":     true,
	"everyone": true,
	"all":      true,
}

// resolveRecipient fuzzy-matches a recipient label against project contacts.
// A name fragment must be at least four characters and not a generic token
// to match by name; otherwise the first contact with a phone number wins,
// falling back to the first contact at all.
func resolveRecipient(recipient string, contacts []correlate.Contact) *correlate.Contact {
	if len(contacts) == 0 {
		return nil
	}

	needle := strings.ToLower(strings.TrimSpace(recipient))
	if len(needle) >= 4 && !genericRecipients[needle] {
		for i := range contacts {
			if strings.Contains(strings.ToLower(contacts[i].Name), needle) {
				return &contacts[i]
			}
		}
	}

	for i := range contacts {
		if contacts[i].PhoneNumber != "" {
			return &contacts[i]
		}
	}
	return &contacts[0]
}

// escalationBody builds the SMS notice, falling back to a shorter template
// when the reason blows the segment budget.
func escalationBody(projectName, reason string) string {
	body := fmt.Sprintf("ESCALATION [%s]: %s", projectName, reason)
	if len(body) <= escalationBodyLimit {
		return body
	}

	short := fmt.Sprintf("ESCALATION [%s]: needs immediate attention, see project for details", projectName)
	if len(short) <= escalationBodyLimit {
		return short
	}
	return short[:escalationBodyLimit]
}

func coerceDays(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case float64:
		return int(n)
	case string:
		var days int
		if _, err := fmt.Sscanf(strings.TrimSpace(n), "%d", &days); err == nil {
			return days
		}
	}
	return 0
}
