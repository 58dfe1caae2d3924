package correlate

import (
	"context"
	"testing"

	"sitewire_backend/internal/comms"

	"github.com/google/uuid"
)

type fakeFinder struct {
	contactsByPhone map[string][]Contact
	projects        []uuid.UUID
}

func (f *fakeFinder) FindContactsByPhone(_ context.Context, _ uuid.UUID, phoneNumber string) ([]Contact, error) {
	return f.contactsByPhone[phoneNumber], nil
}

func (f *fakeFinder) ProjectsForContacts(_ context.Context, _ []uuid.UUID) ([]uuid.UUID, error) {
	return f.projects, nil
}

func smsFrom(numbers ...string) comms.Communication {
	c := comms.Communication{
		CompanyID: uuid.New(),
		Type:      comms.TypeSMS,
		Direction: comms.DirectionInbound,
	}
	for _, n := range numbers {
		c.Participants = append(c.Participants, comms.Participant{Type: comms.ParticipantPhone, Value: n})
	}
	return c
}

func TestCorrelateSingleProject(t *testing.T) {
	contact := Contact{ID: uuid.New(), Name: "Dana Ruiz", Role: "customer"}
	projectID := uuid.New()
	finder := &fakeFinder{
		contactsByPhone: map[string][]Contact{"13035550142": {contact}},
		projects:        []uuid.UUID{projectID},
	}
	svc := NewService(finder, nil)

	result, err := svc.Correlate(context.Background(), smsFrom("13035550142"))
	if err != nil {
		t.Fatalf("correlate: %v", err)
	}
	if result.ProjectID == nil || *result.ProjectID != projectID {
		t.Fatalf("expected project %s, got %v", projectID, result.ProjectID)
	}
	if result.IsMultiProject {
		t.Fatal("single customer thread should not be multi-project")
	}
}

func TestCorrelateNoMatchIsUnrouted(t *testing.T) {
	svc := NewService(&fakeFinder{contactsByPhone: map[string][]Contact{}}, nil)

	result, err := svc.Correlate(context.Background(), smsFrom("13035550199"))
	if err != nil {
		t.Fatalf("correlate: %v", err)
	}
	if result.Routed() {
		t.Fatal("unknown number should be unrouted")
	}
}

func TestCorrelateManagerContractorThreadIsMultiProject(t *testing.T) {
	pm := Contact{ID: uuid.New(), Name: "Sam Okafor", Role: "PM"}
	roofer := Contact{ID: uuid.New(), Name: "Lee Tran", Role: "roofer"}
	projectID := uuid.New()
	finder := &fakeFinder{
		contactsByPhone: map[string][]Contact{
			"13035550142": {pm},
			"13035550177": {roofer},
		},
		// A single shared project association exists, but the role pairing
		// must still force multi-project classification.
		projects: []uuid.UUID{projectID},
	}
	svc := NewService(finder, nil)

	result, err := svc.Correlate(context.Background(), smsFrom("13035550142", "13035550177"))
	if err != nil {
		t.Fatalf("correlate: %v", err)
	}
	if !result.IsMultiProject {
		t.Fatal("PM + roofer thread must be classified multi-project")
	}
	if result.ProjectID == nil {
		t.Fatal("single project association should still be reported")
	}
}

func TestCorrelateMultipleProjectsIsMultiProject(t *testing.T) {
	contact := Contact{ID: uuid.New(), Name: "Dana Ruiz", Role: "customer"}
	finder := &fakeFinder{
		contactsByPhone: map[string][]Contact{"13035550142": {contact}},
		projects:        []uuid.UUID{uuid.New(), uuid.New()},
	}
	svc := NewService(finder, nil)

	result, err := svc.Correlate(context.Background(), smsFrom("13035550142"))
	if err != nil {
		t.Fatalf("correlate: %v", err)
	}
	if !result.IsMultiProject {
		t.Fatal("two project associations should be multi-project")
	}
	if result.ProjectID != nil {
		t.Fatal("no single project should be reported for multi-project threads")
	}
}

func TestCorrelateUnknownRoleDoesNotTriggerHeuristic(t *testing.T) {
	pm := Contact{ID: uuid.New(), Name: "Sam Okafor", Role: "PM"}
	mystery := Contact{ID: uuid.New(), Name: "Alex Kim", Role: "site-liaison"}
	projectID := uuid.New()
	finder := &fakeFinder{
		contactsByPhone: map[string][]Contact{
			"13035550142": {pm},
			"13035550177": {mystery},
		},
		projects: []uuid.UUID{projectID},
	}
	svc := NewService(finder, nil)

	result, err := svc.Correlate(context.Background(), smsFrom("13035550142", "13035550177"))
	if err != nil {
		t.Fatalf("correlate: %v", err)
	}
	if result.IsMultiProject {
		t.Fatal("unlisted role strings belong to neither class")
	}
}
