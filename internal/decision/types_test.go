package decision

import (
	"errors"
	"testing"
)

func TestParseStrictJSON(t *testing.T) {
	raw := `{"decision":"ACTION_NEEDED","reason":"customer asked for schedule","action_type":"message","action_payload":{"message_text":"Crew arrives Tuesday 8am","recipient_name":"Dana"}}`

	p, err := Parse(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if p.Decision != DecisionActionNeeded {
		t.Fatalf("decision = %s", p.Decision)
	}
	if p.ActionType != "message" {
		t.Fatalf("action_type = %s", p.ActionType)
	}
}

func TestParseFencedCodeBlock(t *testing.T) {
	raw := "Here is my decision:\n```json\n{\"decision\":\"SET_FUTURE_REMINDER\",\"reason\":\"waiting on permit\",\"days_until_check\":3}\n```\nLet me know."

	p, err := Parse(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if p.Decision != DecisionSetFutureReminder {
		t.Fatalf("decision = %s", p.Decision)
	}
	if p.DaysUntilCheck == nil || *p.DaysUntilCheck != 3 {
		t.Fatalf("days_until_check = %v", p.DaysUntilCheck)
	}
}

func TestParseDaysAsString(t *testing.T) {
	p, err := Parse(`{"decision":"SET_FUTURE_REMINDER","reason":"r","days_until_check":"14"}`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if p.DaysUntilCheck == nil || *p.DaysUntilCheck != 14 {
		t.Fatalf("days_until_check = %v", p.DaysUntilCheck)
	}
}

func TestParseUnparsableIsExplicitVariant(t *testing.T) {
	for _, raw := range []string{
		"I think we should probably text the customer back.",
		`{"decision":"MAYBE","reason":"?"}`,
		"",
	} {
		p, err := Parse(raw)
		if !errors.Is(err, ErrUnparsable) {
			t.Fatalf("Parse(%q) err = %v, want ErrUnparsable", raw, err)
		}
		if p.Decision != DecisionUnparsable {
			t.Fatalf("Parse(%q) decision = %s, want UNPARSABLE", raw, p.Decision)
		}
	}
}

func TestParseLowercaseDecisionAccepted(t *testing.T) {
	p, err := Parse(`{"decision":"no_action","reason":"all quiet"}`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if p.Decision != DecisionNoAction {
		t.Fatalf("decision = %s", p.Decision)
	}
}

func TestNormalizeActionPayloadAliases(t *testing.T) {
	payload := map[string]any{
		"message_content": "Crew arrives Tuesday",
		"recipient_name":  "Dana",
		"from":            "Sam",
		"job_site":        "12 Oak St",
	}

	normalized := NormalizeActionPayload(payload)

	if normalized[FieldMessage] != "Crew arrives Tuesday" {
		t.Fatalf("message = %v", normalized[FieldMessage])
	}
	if normalized[FieldRecipient] != "Dana" {
		t.Fatalf("recipient = %v", normalized[FieldRecipient])
	}
	if normalized[FieldSender] != "Sam" {
		t.Fatalf("sender = %v", normalized[FieldSender])
	}
	if normalized["job_site"] != "12 Oak St" {
		t.Fatal("unknown keys must be carried through")
	}
}

func TestNormalizeActionPayloadCanonicalWins(t *testing.T) {
	payload := map[string]any{
		"message":      "canonical text",
		"message_text": "alias text",
	}

	normalized := NormalizeActionPayload(payload)
	if normalized[FieldMessage] != "canonical text" {
		t.Fatalf("canonical key must win over alias, got %v", normalized[FieldMessage])
	}
}
