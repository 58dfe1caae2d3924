package session

import (
	"context"
	"strings"

	"sitewire_backend/internal/comms"
	"sitewire_backend/platform/phone"

	"github.com/google/uuid"
)

// Store is the repository surface the service depends on.
type Store interface {
	GetOrCreate(ctx context.Context, channelType ChannelType, channelIdentifier string, companyID uuid.UUID, contactID, projectID *uuid.UUID) (ChatSession, error)
	AppendMessage(ctx context.Context, sessionID uuid.UUID, role Role, content string) (Message, error)
	History(ctx context.Context, sessionID uuid.UUID, limit int) ([]Message, error)
}

// Service is the session manager: it derives channel keys from
// communications and maintains conversation history.
type Service struct {
	store Store
}

// NewService creates a session service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// ChannelKey derives the (channelType, channelIdentifier) session key for a
// communication. Phone identifiers are normalized so that format drift
// between providers maps to one session; emails are lowercased.
func ChannelKey(c comms.Communication) (ChannelType, string) {
	identifier := c.PrimaryIdentifier()
	switch c.Type {
	case comms.TypeEmail:
		return ChannelEmail, strings.ToLower(strings.TrimSpace(identifier))
	case comms.TypeSMS, comms.TypeCall:
		return ChannelSMS, phone.Normalize(identifier)
	default:
		return ChannelWeb, strings.TrimSpace(identifier)
	}
}

// ForCommunication finds or creates the session a communication belongs to
// and appends its content as a user message.
func (s *Service) ForCommunication(ctx context.Context, c comms.Communication, contactID, projectID *uuid.UUID) (ChatSession, error) {
	channelType, identifier := ChannelKey(c)
	if identifier == "" {
		identifier = "unknown"
	}

	sess, err := s.store.GetOrCreate(ctx, channelType, identifier, c.CompanyID, contactID, projectID)
	if err != nil {
		return ChatSession{}, err
	}

	if strings.TrimSpace(c.Content) != "" {
		if _, err := s.store.AppendMessage(ctx, sess.ID, RoleUser, c.Content); err != nil {
			return ChatSession{}, err
		}
	}

	return sess, nil
}

// ForOutbound finds or creates the session an agent-sent communication
// belongs to and appends its content as an assistant message, so both sides
// of the conversation land in one history.
func (s *Service) ForOutbound(ctx context.Context, c comms.Communication, contactID, projectID *uuid.UUID) (ChatSession, error) {
	channelType, identifier := ChannelKey(c)
	if identifier == "" {
		identifier = "unknown"
	}

	sess, err := s.store.GetOrCreate(ctx, channelType, identifier, c.CompanyID, contactID, projectID)
	if err != nil {
		return ChatSession{}, err
	}

	if strings.TrimSpace(c.Content) != "" {
		if err := s.RecordReply(ctx, sess.ID, c.Content); err != nil {
			return ChatSession{}, err
		}
	}

	return sess, nil
}

// RecordReply appends an assistant message to a session's history.
func (s *Service) RecordReply(ctx context.Context, sessionID uuid.UUID, content string) error {
	_, err := s.store.AppendMessage(ctx, sessionID, RoleAssistant, content)
	return err
}

// History returns the ordered conversation history for a session.
func (s *Service) History(ctx context.Context, sessionID uuid.UUID, limit int) ([]Message, error) {
	return s.store.History(ctx, sessionID, limit)
}
