// Package action implements the action record lifecycle: creating durable,
// approvable units of work from decisions, enforcing the approval gate, and
// executing approved records with type-specific handlers.
package action

import (
	"time"

	"github.com/google/uuid"
)

// Type classifies what an action record does when executed.
type Type string

const (
	TypeMessage           Type = "message"
	TypeDataUpdate        Type = "data_update"
	TypeSetFutureReminder Type = "set_future_reminder"
	TypeEscalation        Type = "escalation"
	TypeHumanInLoop       Type = "human_in_loop"
	TypeKnowledgeQuery    Type = "knowledge_query"
)

var knownTypes = map[Type]bool{
	TypeMessage:           true,
	TypeDataUpdate:        true,
	TypeSetFutureReminder: true,
	TypeEscalation:        true,
	TypeHumanInLoop:       true,
	TypeKnowledgeQuery:    true,
}

// KnownType reports whether t is a recognized action type.
func KnownType(t Type) bool { return knownTypes[t] }

// Status is the lifecycle state of an action record.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
	StatusExecuted Status = "executed"
	StatusFailed   Status = "failed"
)

// legalTransitions encodes the one-directional state machine:
// pending -> approved/rejected, approved -> executed/failed, and the direct
// pending -> executed/failed path used only for system-internal bookkeeping
// records that never touch anything externally visible.
var legalTransitions = map[Status]map[Status]bool{
	StatusPending: {
		StatusApproved: true,
		StatusRejected: true,
		StatusExecuted: true,
		StatusFailed:   true,
	},
	StatusApproved: {
		StatusExecuted: true,
		StatusFailed:   true,
	},
}

// CanTransition reports whether moving from one status to another is legal.
// Rejected, executed, and failed are terminal.
func CanTransition(from, to Status) bool {
	return legalTransitions[from][to]
}

// Terminal reports whether a status permits no further transitions.
func Terminal(s Status) bool {
	return len(legalTransitions[s]) == 0
}

// ExecutionResult is the uniform handler result contract. Every type-specific
// handler returns this shape and the executor persists it unchanged; adding a
// new action type only requires a handler with this signature.
type ExecutionResult struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// Record is a durable, approvable unit of work derived from a decision.
type Record struct {
	ID               uuid.UUID
	ProjectID        uuid.UUID
	PromptRunID      *uuid.UUID
	ActionType       Type
	ActionPayload    map[string]any
	RequiresApproval bool
	Status           Status
	ExecutionResult  *ExecutionResult
	CreatedAt        time.Time
	ExecutedAt       *time.Time
}
