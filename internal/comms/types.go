// Package comms defines the canonical communication model shared by the
// intake, correlation, and decision pipeline.
package comms

import (
	"time"

	"github.com/google/uuid"
)

// Type classifies the channel a communication arrived on.
type Type string

const (
	TypeSMS   Type = "SMS"
	TypeEmail Type = "EMAIL"
	TypeCall  Type = "CALL"
)

// Direction marks whether a communication was inbound or outbound.
type Direction string

const (
	DirectionInbound  Direction = "INBOUND"
	DirectionOutbound Direction = "OUTBOUND"
)

// ParticipantType classifies a participant identifier.
type ParticipantType string

const (
	ParticipantPhone ParticipantType = "phone"
	ParticipantEmail ParticipantType = "email"
	ParticipantName  ParticipantType = "name"
)

// Participant is one party on a communication. ContactID is filled in by the
// correlator when the identifier matches a known contact.
type Participant struct {
	Type      ParticipantType `json:"type"`
	Value     string          `json:"value"`
	ContactID *uuid.UUID      `json:"contactId,omitempty"`
}

// Communication is a single inbound/outbound message normalized to a
// canonical shape. Immutable once stored, except for the session/project
// linkage fields and the processed flag which are set exactly once by the
// pipeline.
type Communication struct {
	ID               uuid.UUID     `json:"id"`
	CompanyID        uuid.UUID     `json:"companyId"`
	Type             Type          `json:"type"`
	Direction        Direction     `json:"direction"`
	Participants     []Participant `json:"participants"`
	Content          string        `json:"content"`
	OccurredAt       time.Time     `json:"occurredAt"`
	ProjectID        *uuid.UUID    `json:"projectId,omitempty"`
	SessionID        *uuid.UUID    `json:"sessionId,omitempty"`
	ProcessedByAgent bool          `json:"processedByAgent"`
	RawWebhookID     *uuid.UUID    `json:"rawWebhookId,omitempty"`
	CreatedAt        time.Time     `json:"createdAt"`
}

// PhoneParticipants returns the phone-typed participants of a communication.
func (c Communication) PhoneParticipants() []Participant {
	var out []Participant
	for _, p := range c.Participants {
		if p.Type == ParticipantPhone {
			out = append(out, p)
		}
	}
	return out
}

// PrimaryIdentifier returns the channel identifier used for session keying:
// the first phone value for SMS/calls, the first email value for emails.
func (c Communication) PrimaryIdentifier() string {
	want := ParticipantPhone
	if c.Type == TypeEmail {
		want = ParticipantEmail
	}
	for _, p := range c.Participants {
		if p.Type == want {
			return p.Value
		}
	}
	if len(c.Participants) > 0 {
		return c.Participants[0].Value
	}
	return ""
}
