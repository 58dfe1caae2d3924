package decision

import (
	"context"
	"time"

	"sitewire_backend/internal/project"
	"sitewire_backend/platform/logger"

	"github.com/google/uuid"
)

// ProjectToucher is the minimal project store surface the engine needs.
type ProjectToucher interface {
	TouchLastActionCheck(ctx context.Context, id uuid.UUID, at time.Time) error
}

// Outcome is the result of one engine run for a project.
type Outcome struct {
	// Skipped is true when the project was decision-checked within the
	// skip window and the decision service was not invoked.
	Skipped bool
	Payload Payload
}

// Engine drives the decision step: it enforces the per-project skip window,
// builds the context bag, invokes the decision service, and stamps the
// project's last check time.
type Engine struct {
	decider    Decider
	projects   ProjectToucher
	skipWindow time.Duration
	log        *logger.Logger
	now        func() time.Time
}

// NewEngine creates a decision engine. A skipWindow of zero disables
// skipping entirely.
func NewEngine(decider Decider, projects ProjectToucher, skipWindow time.Duration, log *logger.Logger) *Engine {
	return &Engine{
		decider:    decider,
		projects:   projects,
		skipWindow: skipWindow,
		log:        log,
		now:        time.Now,
	}
}

// Decide runs the decision step for a project. newData carries the content
// of the communication that triggered the check, empty for scheduled
// reminder re-checks.
//
// The skip window caps decision service call volume against bursty webhook
// traffic: a project checked within the window short-circuits to a skipped
// outcome. After every non-skipped call the project's lastActionCheck is
// stamped regardless of the result, so downstream failures cannot cause a
// storm of repeated decision calls.
func (e *Engine) Decide(ctx context.Context, p project.Project, newData string, isReminderCheck bool) (Outcome, error) {
	now := e.now()

	if e.skipWindow > 0 && p.LastActionCheck != nil && now.Sub(*p.LastActionCheck) < e.skipWindow {
		return Outcome{Skipped: true}, nil
	}

	defer func() {
		if err := e.projects.TouchLastActionCheck(ctx, p.ID, e.now()); err != nil && e.log != nil {
			e.log.DatabaseError("touch last_action_check", err)
		}
	}()

	dc := Context{
		Summary:               p.Summary,
		NextStep:              p.NextStep,
		TrackName:             p.TrackName,
		TrackRoles:            p.TrackRoles,
		CurrentDate:           now.Format("2006-01-02"),
		MilestoneInstructions: p.MilestoneInstructions,
		IsReminderCheck:       isReminderCheck,
		NewData:               newData,
	}

	payload, err := e.decider.Decide(ctx, dc)
	if err != nil {
		return Outcome{Payload: payload}, err
	}

	if e.log != nil {
		e.log.DecisionEvent(p.ID.String(), string(payload.Decision), payload.Reason)
	}

	return Outcome{Payload: payload}, nil
}
