package action

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"sitewire_backend/internal/decision"
	"sitewire_backend/platform/logger"
)

type fakeRecordStore struct {
	inserted []Record
}

func (f *fakeRecordStore) Insert(_ context.Context, rec Record) (Record, error) {
	rec.ID = uuid.New()
	rec.CreatedAt = time.Now()
	f.inserted = append(f.inserted, rec)
	return rec, nil
}

type fakeScheduler struct {
	projectID uuid.UUID
	at        time.Time
	calls     int
}

func (f *fakeScheduler) SetNextCheckDate(_ context.Context, projectID uuid.UUID, at time.Time) error {
	f.projectID = projectID
	f.at = at
	f.calls++
	return nil
}

func newTestManager(store *fakeRecordStore, sched *fakeScheduler) *Manager {
	m := NewManager(store, sched, 0, logger.New("development"))
	m.now = func() time.Time {
		return time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	}
	return m
}

func TestApplyDecisionNoAction(t *testing.T) {
	store := &fakeRecordStore{}
	m := newTestManager(store, &fakeScheduler{})

	rec, err := m.ApplyDecision(context.Background(), uuid.New(), nil, decision.Payload{
		Decision: decision.DecisionNoAction,
		Reason:   "waiting on permit office",
	})
	if err != nil {
		t.Fatalf("ApplyDecision: %v", err)
	}
	if rec != nil {
		t.Fatalf("expected no record for NO_ACTION, got %+v", rec)
	}
	if len(store.inserted) != 0 {
		t.Fatalf("expected no inserts, got %d", len(store.inserted))
	}
}

func TestApplyDecisionActionNeededDefaultsToMessage(t *testing.T) {
	store := &fakeRecordStore{}
	m := newTestManager(store, &fakeScheduler{})
	projectID := uuid.New()

	rec, err := m.ApplyDecision(context.Background(), projectID, nil, decision.Payload{
		Decision: decision.DecisionActionNeeded,
		Reason:   "customer asked for schedule update",
	})
	if err != nil {
		t.Fatalf("ApplyDecision: %v", err)
	}
	if rec == nil {
		t.Fatal("expected a record")
	}
	if rec.ActionType != TypeMessage {
		t.Fatalf("expected default type message, got %s", rec.ActionType)
	}
	if rec.Status != StatusPending || !rec.RequiresApproval {
		t.Fatalf("expected pending record requiring approval, got status=%s approval=%v", rec.Status, rec.RequiresApproval)
	}
	if rec.ActionPayload[decision.FieldMessage] != "customer asked for schedule update" {
		t.Fatalf("expected reason backfilled as message, got %v", rec.ActionPayload[decision.FieldMessage])
	}
	if rec.ActionPayload[decision.FieldRecipient] != "customer" {
		t.Fatalf("expected default recipient, got %v", rec.ActionPayload[decision.FieldRecipient])
	}
}

func TestApplyDecisionUnknownActionTypeDefaultsToMessage(t *testing.T) {
	store := &fakeRecordStore{}
	m := newTestManager(store, &fakeScheduler{})

	rec, err := m.ApplyDecision(context.Background(), uuid.New(), nil, decision.Payload{
		Decision:   decision.DecisionActionNeeded,
		ActionType: "send_carrier_pigeon",
		ActionPayload: map[string]any{
			decision.FieldMessage: "roof inspection passed",
		},
	})
	if err != nil {
		t.Fatalf("ApplyDecision: %v", err)
	}
	if rec.ActionType != TypeMessage {
		t.Fatalf("expected unknown type coerced to message, got %s", rec.ActionType)
	}
	if rec.ActionPayload[decision.FieldMessage] != "roof inspection passed" {
		t.Fatalf("existing message should be preserved, got %v", rec.ActionPayload[decision.FieldMessage])
	}
}

func TestApplyDecisionSetFutureReminderBypassesApproval(t *testing.T) {
	store := &fakeRecordStore{}
	sched := &fakeScheduler{}
	m := newTestManager(store, sched)
	projectID := uuid.New()
	days := 14

	rec, err := m.ApplyDecision(context.Background(), projectID, nil, decision.Payload{
		Decision:       decision.DecisionSetFutureReminder,
		DaysUntilCheck: &days,
		CheckReason:    "inspection scheduled in two weeks",
	})
	if err != nil {
		t.Fatalf("ApplyDecision: %v", err)
	}
	if rec.Status != StatusExecuted {
		t.Fatalf("expected executed status, got %s", rec.Status)
	}
	if rec.RequiresApproval {
		t.Fatal("reminder records must not require approval")
	}
	if rec.ExecutionResult == nil || !rec.ExecutionResult.Success {
		t.Fatalf("expected successful execution result, got %+v", rec.ExecutionResult)
	}
	if sched.calls != 1 {
		t.Fatalf("expected one SetNextCheckDate call, got %d", sched.calls)
	}
	want := time.Date(2026, 3, 24, 12, 0, 0, 0, time.UTC)
	if !sched.at.Equal(want) {
		t.Fatalf("expected next check %v, got %v", want, sched.at)
	}
}

func TestApplyDecisionReminderDefaultDays(t *testing.T) {
	store := &fakeRecordStore{}
	sched := &fakeScheduler{}
	m := newTestManager(store, sched)

	invalid := -3
	_, err := m.ApplyDecision(context.Background(), uuid.New(), nil, decision.Payload{
		Decision:       decision.DecisionSetFutureReminder,
		DaysUntilCheck: &invalid,
	})
	if err != nil {
		t.Fatalf("ApplyDecision: %v", err)
	}
	want := time.Date(2026, 3, 17, 12, 0, 0, 0, time.UTC)
	if !sched.at.Equal(want) {
		t.Fatalf("expected default 7-day reminder at %v, got %v", want, sched.at)
	}
}

func TestApplyDecisionHumanReview(t *testing.T) {
	store := &fakeRecordStore{}
	m := newTestManager(store, &fakeScheduler{})

	rec, err := m.ApplyDecision(context.Background(), uuid.New(), nil, decision.Payload{
		Decision: decision.DecisionRequestHumanReview,
		Reason:   "contract dispute mentioned",
	})
	if err != nil {
		t.Fatalf("ApplyDecision: %v", err)
	}
	if rec.ActionType != TypeHumanInLoop {
		t.Fatalf("expected human_in_loop, got %s", rec.ActionType)
	}
	if rec.Status != StatusPending {
		t.Fatalf("expected pending, got %s", rec.Status)
	}
	if rec.ActionPayload[decision.FieldReason] != "contract dispute mentioned" {
		t.Fatalf("expected reason in payload, got %v", rec.ActionPayload)
	}
}

func TestApplyDecisionKnowledgeQuery(t *testing.T) {
	store := &fakeRecordStore{}
	m := newTestManager(store, &fakeScheduler{})

	rec, err := m.ApplyDecision(context.Background(), uuid.New(), nil, decision.Payload{
		Decision: decision.DecisionQueryKnowledgeBase,
		ActionPayload: map[string]any{
			decision.FieldQuery: "warranty terms for shingle roofs",
		},
	})
	if err != nil {
		t.Fatalf("ApplyDecision: %v", err)
	}
	if rec.ActionType != TypeKnowledgeQuery {
		t.Fatalf("expected knowledge_query, got %s", rec.ActionType)
	}
	if rec.Status != StatusPending {
		t.Fatalf("knowledge queries still go through approval, got %s", rec.Status)
	}
}

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusApproved, true},
		{StatusPending, StatusRejected, true},
		{StatusApproved, StatusExecuted, true},
		{StatusApproved, StatusFailed, true},
		{StatusRejected, StatusExecuted, false},
		{StatusExecuted, StatusApproved, false},
		{StatusFailed, StatusPending, false},
		{StatusApproved, StatusRejected, false},
	}
	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}
