package decision

import (
	"context"
	"testing"
	"time"

	"sitewire_backend/internal/project"

	"github.com/google/uuid"
)

type fakeDecider struct {
	calls    int
	lastCtx  Context
	response Payload
	err      error
}

func (f *fakeDecider) Decide(_ context.Context, dc Context) (Payload, error) {
	f.calls++
	f.lastCtx = dc
	return f.response, f.err
}

type fakeToucher struct {
	touched []time.Time
}

func (f *fakeToucher) TouchLastActionCheck(_ context.Context, _ uuid.UUID, at time.Time) error {
	f.touched = append(f.touched, at)
	return nil
}

func newEngine(decider *fakeDecider, toucher *fakeToucher, now time.Time) *Engine {
	e := NewEngine(decider, toucher, 30*time.Minute, nil)
	e.now = func() time.Time { return now }
	return e
}

func TestDecideNoActionStillTouchesLastCheck(t *testing.T) {
	decider := &fakeDecider{response: Payload{Decision: DecisionNoAction, Reason: "quiet"}}
	toucher := &fakeToucher{}
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	engine := newEngine(decider, toucher, now)

	outcome, err := engine.Decide(context.Background(), project.Project{ID: uuid.New()}, "new sms", false)
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	if outcome.Skipped {
		t.Fatal("first check must not be skipped")
	}
	if outcome.Payload.Decision != DecisionNoAction {
		t.Fatalf("decision = %s", outcome.Payload.Decision)
	}
	if len(toucher.touched) != 1 {
		t.Fatalf("last_action_check must be stamped exactly once, got %d", len(toucher.touched))
	}
}

func TestDecideSkipsWithinWindow(t *testing.T) {
	decider := &fakeDecider{response: Payload{Decision: DecisionNoAction}}
	toucher := &fakeToucher{}
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	engine := newEngine(decider, toucher, now)

	recentCheck := now.Add(-10 * time.Minute)
	p := project.Project{ID: uuid.New(), LastActionCheck: &recentCheck}

	outcome, err := engine.Decide(context.Background(), p, "burst sms", false)
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	if !outcome.Skipped {
		t.Fatal("check within the 30-minute window must be skipped")
	}
	if decider.calls != 0 {
		t.Fatalf("decision service must not be invoked on skip, got %d calls", decider.calls)
	}
	if len(toucher.touched) != 0 {
		t.Fatal("skipped checks must not re-stamp last_action_check")
	}
}

func TestDecideRunsAfterWindowElapses(t *testing.T) {
	decider := &fakeDecider{response: Payload{Decision: DecisionNoAction}}
	toucher := &fakeToucher{}
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	engine := newEngine(decider, toucher, now)

	staleCheck := now.Add(-31 * time.Minute)
	p := project.Project{ID: uuid.New(), LastActionCheck: &staleCheck}

	outcome, err := engine.Decide(context.Background(), p, "", true)
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	if outcome.Skipped {
		t.Fatal("check outside the window must run")
	}
	if decider.calls != 1 {
		t.Fatalf("decider calls = %d", decider.calls)
	}
	if !decider.lastCtx.IsReminderCheck {
		t.Fatal("reminder re-checks must set is_reminder_check in the context bag")
	}
}

func TestDecideTouchesEvenWhenDeciderFails(t *testing.T) {
	decider := &fakeDecider{response: Payload{Decision: DecisionUnparsable}, err: ErrUnparsable}
	toucher := &fakeToucher{}
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	engine := newEngine(decider, toucher, now)

	_, err := engine.Decide(context.Background(), project.Project{ID: uuid.New()}, "x", false)
	if err == nil {
		t.Fatal("expected decider error to propagate")
	}
	if len(toucher.touched) != 1 {
		t.Fatal("failed decision calls must still stamp last_action_check")
	}
}

func TestDecideContextCarriesProjectState(t *testing.T) {
	decider := &fakeDecider{response: Payload{Decision: DecisionNoAction}}
	toucher := &fakeToucher{}
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	engine := newEngine(decider, toucher, now)

	p := project.Project{
		ID:                    uuid.New(),
		Summary:               "Re-roof at 12 Oak St",
		NextStep:              "Schedule tear-off",
		TrackName:             "standard",
		TrackRoles:            []string{"PM", "roofer"},
		MilestoneInstructions: "Confirm material delivery before tear-off",
	}

	if _, err := engine.Decide(context.Background(), p, "customer texted", false); err != nil {
		t.Fatalf("decide: %v", err)
	}

	got := decider.lastCtx
	if got.Summary != p.Summary || got.NextStep != p.NextStep {
		t.Fatal("context bag must carry project summary and next step")
	}
	if got.CurrentDate != "2026-03-10" {
		t.Fatalf("current_date = %s", got.CurrentDate)
	}
	if got.NewData != "customer texted" {
		t.Fatalf("new_data = %s", got.NewData)
	}
}
