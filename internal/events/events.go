// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"sitewire_backend/platform/events"
	"sitewire_backend/platform/logger"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
	InMemoryBus = events.InMemoryBus
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// NewInMemoryBus creates a new in-memory event bus.
func NewInMemoryBus(log *logger.Logger) *InMemoryBus {
	return events.NewInMemoryBus(log)
}

// =============================================================================
// Communication Domain Events
// =============================================================================

// CommunicationReceived is published when an inbound communication has been
// normalized and stored.
type CommunicationReceived struct {
	BaseEvent
	CommunicationID uuid.UUID `json:"communicationId"`
	CompanyID       uuid.UUID `json:"companyId"`
	Type            string    `json:"type"`
	Provider        string    `json:"provider"`
}

func (e CommunicationReceived) EventName() string { return "comms.communication.received" }

// CommunicationUnrouted is published when no project correlation was found.
// The communication is stored but advances no further; a human must link it.
type CommunicationUnrouted struct {
	BaseEvent
	CommunicationID uuid.UUID `json:"communicationId"`
	CompanyID       uuid.UUID `json:"companyId"`
	Reason          string    `json:"reason"`
}

func (e CommunicationUnrouted) EventName() string { return "comms.communication.unrouted" }

// =============================================================================
// Action Domain Events
// =============================================================================

// ActionPendingApproval is published when a new action record is created that
// requires a human to approve it before execution.
type ActionPendingApproval struct {
	BaseEvent
	ActionID   uuid.UUID `json:"actionId"`
	ProjectID  uuid.UUID `json:"projectId"`
	ActionType string    `json:"actionType"`
	Reason     string    `json:"reason"`
}

func (e ActionPendingApproval) EventName() string { return "actions.record.pending_approval" }

// ActionExecuted is published after an action record reaches a terminal state.
type ActionExecuted struct {
	BaseEvent
	ActionID   uuid.UUID `json:"actionId"`
	ProjectID  uuid.UUID `json:"projectId"`
	ActionType string    `json:"actionType"`
	Success    bool      `json:"success"`
}

func (e ActionExecuted) EventName() string { return "actions.record.executed" }

// EscalationTriggered is published when an escalation action has notified
// at least one configured recipient.
type EscalationTriggered struct {
	BaseEvent
	ActionID          uuid.UUID `json:"actionId"`
	ProjectID         uuid.UUID `json:"projectId"`
	NotificationsSent int       `json:"notificationsSent"`
}

func (e EscalationTriggered) EventName() string { return "actions.escalation.triggered" }

// =============================================================================
// Integration Domain Events
// =============================================================================

// IntegrationJobFailed is published when a job exhausts its retries.
type IntegrationJobFailed struct {
	BaseEvent
	JobID        uuid.UUID `json:"jobId"`
	CompanyID    uuid.UUID `json:"companyId"`
	ResourceType string    `json:"resourceType"`
	ErrorMessage string    `json:"errorMessage"`
}

func (e IntegrationJobFailed) EventName() string { return "integration.job.failed" }
