package intake

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"sitewire_backend/internal/comms"
)

func normalize(t *testing.T, provider, contentType string, payload []byte) comms.Communication {
	t.Helper()
	n := NewNormalizer()
	return n.Normalize(uuid.New(), uuid.New(), provider, contentType, payload)
}

func TestNormalizeTwilioFormSMS(t *testing.T) {
	payload := []byte("From=%2B13035550142&To=%2B13035550100&Body=Roof+is+done")
	comm := normalize(t, "twilio", "application/x-www-form-urlencoded", payload)

	if comm.Type != comms.TypeSMS {
		t.Fatalf("expected SMS, got %s", comm.Type)
	}
	if comm.Content != "Roof is done" {
		t.Fatalf("expected body content, got %q", comm.Content)
	}
	if len(comm.Participants) != 2 {
		t.Fatalf("expected 2 participants, got %d", len(comm.Participants))
	}
	if comm.Participants[0].Value != "+13035550142" || comm.Participants[0].Type != comms.ParticipantPhone {
		t.Fatalf("unexpected from participant: %+v", comm.Participants[0])
	}
}

func TestNormalizeJSONEmail(t *testing.T) {
	payload := []byte(`{
		"from": "sarah@example.com",
		"to": "office@sitewire.example",
		"subject": "Change order",
		"body": "Can we add gutters to the scope?"
	}`)
	comm := normalize(t, "sendgrid", "application/json", payload)

	if comm.Type != comms.TypeEmail {
		t.Fatalf("expected EMAIL, got %s", comm.Type)
	}
	if comm.Content != "Change order\n\nCan we add gutters to the scope?" {
		t.Fatalf("expected subject prepended, got %q", comm.Content)
	}
	if comm.PrimaryIdentifier() != "sarah@example.com" {
		t.Fatalf("expected sender email identifier, got %q", comm.PrimaryIdentifier())
	}
}

func TestNormalizeCallWithTranscript(t *testing.T) {
	payload := []byte(`{
		"caller": "+13035550142",
		"called": "+13035550100",
		"transcript": "Hi, just confirming the crew for Monday.",
		"CallSid": "CA123"
	}`)
	comm := normalize(t, "twilio-voice", "application/json", payload)

	if comm.Type != comms.TypeCall {
		t.Fatalf("expected CALL, got %s", comm.Type)
	}
	if comm.Content != "Hi, just confirming the crew for Monday." {
		t.Fatalf("expected transcript content, got %q", comm.Content)
	}
}

func TestNormalizeAliasFields(t *testing.T) {
	payload := []byte(`{"sender": "+13035550142", "message": "updated estimate attached"}`)
	comm := normalize(t, "custom-crm", "application/json", payload)

	if comm.Content != "updated estimate attached" {
		t.Fatalf("expected message alias honored, got %q", comm.Content)
	}
	if comm.PrimaryIdentifier() != "+13035550142" {
		t.Fatalf("expected sender alias honored, got %q", comm.PrimaryIdentifier())
	}
}

func TestNormalizeExplicitType(t *testing.T) {
	payload := []byte(`{"type": "voicemail", "from": "+13035550142", "text": "call me back"}`)
	comm := normalize(t, "generic", "application/json", payload)

	if comm.Type != comms.TypeCall {
		t.Fatalf("expected CALL from explicit type, got %s", comm.Type)
	}
}

func TestNormalizeTimestamp(t *testing.T) {
	payload := []byte(`{"from": "+13035550142", "body": "hi", "timestamp": "2026-03-10T08:30:00Z"}`)
	comm := normalize(t, "twilio", "application/json", payload)

	want := time.Date(2026, 3, 10, 8, 30, 0, 0, time.UTC)
	if !comm.OccurredAt.Equal(want) {
		t.Fatalf("expected occurred at %v, got %v", want, comm.OccurredAt)
	}
}

func TestNormalizeUnstructuredPayload(t *testing.T) {
	payload := []byte("plain text nobody can parse")
	comm := normalize(t, "mystery", "text/plain", payload)

	if comm.Content == "" {
		t.Fatal("unparsable payloads must keep the body as content")
	}
	if comm.Type != comms.TypeSMS {
		t.Fatalf("expected SMS fallback, got %s", comm.Type)
	}
}

func TestNormalizeEmptyPayload(t *testing.T) {
	comm := normalize(t, "twilio", "application/json", nil)

	if comm.Content != "" || len(comm.Participants) != 0 {
		t.Fatalf("expected sparse communication, got %+v", comm)
	}
	if comm.Direction != comms.DirectionInbound {
		t.Fatalf("expected inbound default, got %s", comm.Direction)
	}
	if comm.RawWebhookID == nil {
		t.Fatal("raw webhook linkage must always be set")
	}
}
