package intake

import (
	"encoding/json"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"sitewire_backend/internal/comms"
)

// Normalizer converts raw provider payloads into canonical communications.
// Any payload produces a communication, however sparse: the raw payload is
// already stored verbatim and a parse failure must never lose the message.
type Normalizer struct{}

func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// Field aliases seen across providers. First canonical hit wins.
var (
	fromKeys      = []string{"from", "sender", "caller", "from_number", "fromNumber", "source"}
	toKeys        = []string{"to", "recipient", "called", "to_number", "toNumber", "destination"}
	contentKeys   = []string{"body", "message", "content", "text", "transcript", "transcription"}
	subjectKeys   = []string{"subject"}
	fromNameKeys  = []string{"from_name", "fromName", "caller_name", "callerName", "name"}
	typeKeys      = []string{"type", "comm_type", "commType", "channel", "event_type", "eventType"}
	timestampKeys = []string{"timestamp", "occurred_at", "occurredAt", "date", "received_at"}
)

// Normalize builds a communication from a raw webhook. companyID and the raw
// webhook linkage come from intake; everything else is best-effort extraction.
func (n *Normalizer) Normalize(companyID uuid.UUID, rawID uuid.UUID, provider, contentType string, payload []byte) comms.Communication {
	fields := extractFields(contentType, payload)

	comm := comms.Communication{
		CompanyID:    companyID,
		Direction:    comms.DirectionInbound,
		OccurredAt:   time.Now(),
		RawWebhookID: &rawID,
	}

	from := firstValue(fields, fromKeys)
	to := firstValue(fields, toKeys)
	comm.Content = firstValue(fields, contentKeys)
	if subject := firstValue(fields, subjectKeys); subject != "" {
		if comm.Content != "" {
			comm.Content = subject + "\n\n" + comm.Content
		} else {
			comm.Content = subject
		}
	}

	comm.Type = inferType(provider, fields, from)

	if ts := firstValue(fields, timestampKeys); ts != "" {
		if parsed, err := parseTimestamp(ts); err == nil {
			comm.OccurredAt = parsed
		}
	}

	comm.Participants = buildParticipants(from, to, firstValue(fields, fromNameKeys))

	// Nothing structured at all: keep the whole body as content so a human
	// can still read it.
	if comm.Content == "" && len(fields) == 0 && len(payload) > 0 {
		comm.Content = string(payload)
	}

	return comm
}

// extractFields flattens a payload into string fields. JSON objects and form
// encodings are understood; anything else yields no fields.
func extractFields(contentType string, payload []byte) map[string]string {
	fields := map[string]string{}
	if len(payload) == 0 {
		return fields
	}

	trimmed := strings.TrimSpace(string(payload))
	isForm := strings.Contains(contentType, "application/x-www-form-urlencoded")

	if !isForm {
		var parsed map[string]any
		if err := json.Unmarshal([]byte(trimmed), &parsed); err == nil {
			for k, v := range parsed {
				switch val := v.(type) {
				case string:
					fields[strings.ToLower(k)] = val
				case float64, bool:
					raw, _ := json.Marshal(val)
					fields[strings.ToLower(k)] = string(raw)
				}
			}
			return fields
		}
	}

	if values, err := url.ParseQuery(trimmed); err == nil && len(values) > 0 {
		for k, v := range values {
			if len(v) > 0 && v[0] != "" {
				fields[strings.ToLower(k)] = v[0]
			}
		}
	}
	return fields
}

func firstValue(fields map[string]string, keys []string) string {
	for _, k := range keys {
		if v, ok := fields[strings.ToLower(k)]; ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func inferType(provider string, fields map[string]string, from string) comms.Type {
	if explicit := firstValue(fields, typeKeys); explicit != "" {
		switch strings.ToLower(explicit) {
		case "sms", "mms", "text":
			return comms.TypeSMS
		case "email", "mail":
			return comms.TypeEmail
		case "call", "voice", "voicemail":
			return comms.TypeCall
		}
	}

	lower := strings.ToLower(provider)
	switch {
	case strings.Contains(lower, "call") || strings.Contains(lower, "voice"):
		return comms.TypeCall
	case strings.Contains(lower, "mail"):
		return comms.TypeEmail
	}

	// Call providers send call identifiers and transcripts.
	if _, ok := fields["callsid"]; ok {
		return comms.TypeCall
	}
	if _, ok := fields["call_duration"]; ok {
		return comms.TypeCall
	}

	if strings.Contains(from, "@") {
		return comms.TypeEmail
	}
	return comms.TypeSMS
}

func buildParticipants(from, to, fromName string) []comms.Participant {
	var out []comms.Participant
	if from != "" {
		out = append(out, comms.Participant{Type: participantType(from), Value: from})
	}
	if to != "" && to != from {
		out = append(out, comms.Participant{Type: participantType(to), Value: to})
	}
	if fromName != "" {
		out = append(out, comms.Participant{Type: comms.ParticipantName, Value: fromName})
	}
	return out
}

func participantType(value string) comms.ParticipantType {
	if strings.Contains(value, "@") {
		return comms.ParticipantEmail
	}
	return comms.ParticipantPhone
}

func parseTimestamp(raw string) (time.Time, error) {
	formats := []string{
		time.RFC3339,
		time.RFC1123Z,
		time.RFC1123,
		"2006-01-02 15:04:05",
		"2006-01-02",
	}
	var lastErr error
	for _, f := range formats {
		t, err := time.Parse(f, raw)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
