package session

import (
	"context"
	"testing"

	"sitewire_backend/internal/comms"

	"github.com/google/uuid"
)

type fakeStore struct {
	sessions map[string]ChatSession
	appended []Message
}

func newFakeStore() *fakeStore {
	return &fakeStore{sessions: make(map[string]ChatSession)}
}

func (f *fakeStore) GetOrCreate(_ context.Context, channelType ChannelType, channelIdentifier string, companyID uuid.UUID, contactID, projectID *uuid.UUID) (ChatSession, error) {
	key := string(channelType) + "|" + channelIdentifier + "|" + companyID.String()
	if existing, ok := f.sessions[key]; ok {
		return existing, nil
	}
	s := ChatSession{
		ID:                uuid.New(),
		ChannelType:       channelType,
		ChannelIdentifier: channelIdentifier,
		CompanyID:         companyID,
		ContactID:         contactID,
		ProjectID:         projectID,
	}
	f.sessions[key] = s
	return s, nil
}

func (f *fakeStore) AppendMessage(_ context.Context, sessionID uuid.UUID, role Role, content string) (Message, error) {
	m := Message{Seq: int64(len(f.appended) + 1), SessionID: sessionID, Role: role, Content: content}
	f.appended = append(f.appended, m)
	return m, nil
}

func (f *fakeStore) History(_ context.Context, sessionID uuid.UUID, _ int) ([]Message, error) {
	var out []Message
	for _, m := range f.appended {
		if m.SessionID == sessionID {
			out = append(out, m)
		}
	}
	return out, nil
}

func TestChannelKeyNormalizesPhoneVariants(t *testing.T) {
	companyID := uuid.New()
	base := comms.Communication{
		CompanyID: companyID,
		Type:      comms.TypeSMS,
		Participants: []comms.Participant{
			{Type: comms.ParticipantPhone, Value: "(303) 555-0142"},
		},
	}
	variant := base
	variant.Participants = []comms.Participant{
		{Type: comms.ParticipantPhone, Value: "+1 303 555 0142"},
	}

	ct1, id1 := ChannelKey(base)
	ct2, id2 := ChannelKey(variant)
	if ct1 != ChannelSMS || ct2 != ChannelSMS {
		t.Fatalf("expected sms channel, got %s / %s", ct1, ct2)
	}
	if id1 != id2 {
		t.Fatalf("formatting drift should map to one session key: %q vs %q", id1, id2)
	}
}

func TestForCommunicationConvergesOnOneSession(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store)
	companyID := uuid.New()

	first := comms.Communication{
		CompanyID: companyID,
		Type:      comms.TypeSMS,
		Content:   "roof inspection done",
		Participants: []comms.Participant{
			{Type: comms.ParticipantPhone, Value: "3035550142"},
		},
	}
	second := first
	second.Content = "sending photos now"
	second.Participants = []comms.Participant{
		{Type: comms.ParticipantPhone, Value: "+13035550142"},
	}

	s1, err := svc.ForCommunication(context.Background(), first, nil, nil)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	s2, err := svc.ForCommunication(context.Background(), second, nil, nil)
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if s1.ID != s2.ID {
		t.Fatal("same number in different formats must share a session")
	}

	history, err := svc.History(context.Background(), s1.ID, 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 history entries, got %d", len(history))
	}
	if history[0].Content != "roof inspection done" || history[1].Content != "sending photos now" {
		t.Fatal("history must preserve append order")
	}
}

func TestForOutboundSharesSessionWithInbound(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store)
	companyID := uuid.New()

	inbound := comms.Communication{
		CompanyID: companyID,
		Type:      comms.TypeSMS,
		Direction: comms.DirectionInbound,
		Content:   "when does the crew arrive?",
		Participants: []comms.Participant{
			{Type: comms.ParticipantPhone, Value: "3035550142"},
		},
	}
	outbound := comms.Communication{
		CompanyID: companyID,
		Type:      comms.TypeSMS,
		Direction: comms.DirectionOutbound,
		Content:   "Crew arrives tomorrow at 8am.",
		Participants: []comms.Participant{
			{Type: comms.ParticipantPhone, Value: "+13035550142"},
		},
	}

	s1, err := svc.ForCommunication(context.Background(), inbound, nil, nil)
	if err != nil {
		t.Fatalf("inbound: %v", err)
	}
	s2, err := svc.ForOutbound(context.Background(), outbound, nil, nil)
	if err != nil {
		t.Fatalf("outbound: %v", err)
	}
	if s1.ID != s2.ID {
		t.Fatal("replies to a number must land in the same session as its inbound messages")
	}

	history, err := svc.History(context.Background(), s1.ID, 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 history entries, got %d", len(history))
	}
	if history[0].Role != RoleUser || history[1].Role != RoleAssistant {
		t.Fatalf("expected user then assistant roles, got %s / %s", history[0].Role, history[1].Role)
	}
	if history[1].Content != "Crew arrives tomorrow at 8am." {
		t.Fatalf("assistant message content mismatch: %q", history[1].Content)
	}
}

func TestForCommunicationSkipsEmptyContent(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store)

	c := comms.Communication{
		CompanyID: uuid.New(),
		Type:      comms.TypeSMS,
		Content:   "   ",
		Participants: []comms.Participant{
			{Type: comms.ParticipantPhone, Value: "3035550142"},
		},
	}
	if _, err := svc.ForCommunication(context.Background(), c, nil, nil); err != nil {
		t.Fatalf("for communication: %v", err)
	}
	if len(store.appended) != 0 {
		t.Fatal("blank content should not be appended to history")
	}
}
