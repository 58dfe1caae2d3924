// Package decision implements the AI-driven action decision step: building
// a decision context from project and communication state, invoking the
// decision service, and parsing its response into a validated payload.
package decision

import (
	"encoding/json"
	"errors"
	"regexp"
	"strconv"
	"strings"
)

// Decision classifies what, if anything, should happen next for a project.
type Decision string

const (
	DecisionActionNeeded       Decision = "ACTION_NEEDED"
	DecisionNoAction           Decision = "NO_ACTION"
	DecisionSetFutureReminder  Decision = "SET_FUTURE_REMINDER"
	DecisionRequestHumanReview Decision = "REQUEST_HUMAN_REVIEW"
	DecisionQueryKnowledgeBase Decision = "QUERY_KNOWLEDGE_BASE"

	// DecisionUnparsable is the explicit variant for responses that could
	// not be parsed into the contract. It is modeled rather than silently
	// coerced into a best-effort partial payload.
	DecisionUnparsable Decision = "UNPARSABLE"
)

// ErrUnparsable marks a decision service response that failed schema parsing.
var ErrUnparsable = errors.New("decision response is not a valid decision payload")

// Payload is the structured output of the decision service.
type Payload struct {
	Decision       Decision       `json:"decision"`
	Reason         string         `json:"reason"`
	ActionType     string         `json:"action_type,omitempty"`
	ActionPayload  map[string]any `json:"action_payload,omitempty"`
	DaysUntilCheck *int           `json:"days_until_check,omitempty"`
	CheckReason    string         `json:"check_reason,omitempty"`
}

// Context is the bag of state handed to the decision service.
type Context struct {
	Summary               string   `json:"summary"`
	NextStep              string   `json:"next_step"`
	TrackName             string   `json:"track_name"`
	TrackRoles            []string `json:"track_roles"`
	CurrentDate           string   `json:"current_date"`
	MilestoneInstructions string   `json:"milestone_instructions"`
	IsReminderCheck       bool     `json:"is_reminder_check"`
	NewData               string   `json:"new_data,omitempty"`
}

var knownDecisions = map[Decision]bool{
	DecisionActionNeeded:       true,
	DecisionNoAction:           true,
	DecisionSetFutureReminder:  true,
	DecisionRequestHumanReview: true,
	DecisionQueryKnowledgeBase: true,
}

var fencedBlockRe = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// rawPayload tolerates number-or-string days values before coercion.
type rawPayload struct {
	Decision      string         `json:"decision"`
	Reason        string         `json:"reason"`
	ActionType    string         `json:"action_type"`
	ActionPayload map[string]any `json:"action_payload"`
	DaysUntil     any            `json:"days_until_check"`
	CheckReason   string         `json:"check_reason"`
}

// Parse converts a raw decision service response into a Payload. It first
// attempts a strict JSON parse; if the response wraps its object in a fenced
// code block, the block is extracted and parsed. Anything else yields the
// Unparsable variant together with ErrUnparsable.
func Parse(raw string) (Payload, error) {
	trimmed := strings.TrimSpace(raw)

	if p, ok := tryParse(trimmed); ok {
		return p, nil
	}

	if m := fencedBlockRe.FindStringSubmatch(trimmed); m != nil {
		if p, ok := tryParse(m[1]); ok {
			return p, nil
		}
	}

	return Payload{Decision: DecisionUnparsable, Reason: snippet(trimmed)}, ErrUnparsable
}

func tryParse(s string) (Payload, bool) {
	var rp rawPayload
	if err := json.Unmarshal([]byte(s), &rp); err != nil {
		return Payload{}, false
	}

	decision := Decision(strings.ToUpper(strings.TrimSpace(rp.Decision)))
	if !knownDecisions[decision] {
		return Payload{}, false
	}

	p := Payload{
		Decision:      decision,
		Reason:        rp.Reason,
		ActionType:    strings.TrimSpace(rp.ActionType),
		ActionPayload: rp.ActionPayload,
		CheckReason:   rp.CheckReason,
	}
	if days, ok := coerceInt(rp.DaysUntil); ok {
		p.DaysUntilCheck = &days
	}
	return p, true
}

func coerceInt(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}

func snippet(s string) string {
	const max = 200
	if len(s) > max {
		return s[:max]
	}
	return s
}

// Canonical action payload fields. The decision service emits many aliased
// and nested field shapes; NormalizeActionPayload maps every known alias
// into this one canonical set so variant handling lives in one place.
const (
	FieldMessage   = "message"
	FieldRecipient = "recipient"
	FieldSender    = "sender"
	FieldField     = "field"
	FieldValue     = "value"
	FieldQuery     = "query"
	FieldReason    = "reason"
)

var payloadAliases = map[string]string{
	"message":         FieldMessage,
	"message_content": FieldMessage,
	"message_text":    FieldMessage,
	"content":         FieldMessage,
	"body":            FieldMessage,
	"text":            FieldMessage,

	"recipient":      FieldRecipient,
	"recipient_name": FieldRecipient,
	"to":             FieldRecipient,

	"sender":      FieldSender,
	"sender_name": FieldSender,
	"from":        FieldSender,

	"field":      FieldField,
	"field_name": FieldField,
	"column":     FieldField,

	"value":     FieldValue,
	"new_value": FieldValue,

	"query":    FieldQuery,
	"question": FieldQuery,
	"search":   FieldQuery,

	"reason": FieldReason,
}

// NormalizeActionPayload maps aliased payload keys onto the canonical field
// set. The first alias seen for a canonical field wins; canonical keys
// already present are never overwritten. Unknown keys are carried through
// untouched so no information is dropped.
func NormalizeActionPayload(payload map[string]any) map[string]any {
	out := make(map[string]any, len(payload))

	// Canonical names first so aliases never clobber them.
	for key, value := range payload {
		if canonical, ok := payloadAliases[key]; ok && canonical == key {
			out[canonical] = value
		}
	}
	for key, value := range payload {
		canonical, ok := payloadAliases[key]
		if !ok {
			if _, exists := out[key]; !exists {
				out[key] = value
			}
			continue
		}
		if _, exists := out[canonical]; !exists {
			out[canonical] = value
		}
	}

	return out
}
