package outbox

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CurrentVersion is the envelope layout written by Emit. Rows written before
// versioning carry 0 and are read as CurrentVersion.
const CurrentVersion = 1

var (
	ErrEnvelopeVersion = errors.New("unsupported envelope version")
	ErrEmptyPayload    = errors.New("envelope carries no data")
)

// ActorRef names the user whose request produced an event.
type ActorRef struct {
	UserID uuid.UUID  `json:"userId"`
	TripID *uuid.UUID `json:"tripId,omitempty"`
	Role   string     `json:"role,omitempty"`
}

// PayloadEnvelope is the JSON document stored in outbox_events.payload and
// published verbatim to subscribers.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}

// ParseEnvelope decodes a stored payload, normalising a missing version and
// rejecting envelopes this build cannot read or that carry no data.
func ParseEnvelope(raw []byte) (PayloadEnvelope, error) {
	var env PayloadEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return env, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Version == 0 {
		env.Version = CurrentVersion
	}
	if env.Version != CurrentVersion {
		return env, fmt.Errorf("%w %d", ErrEnvelopeVersion, env.Version)
	}
	data := bytes.TrimSpace(env.Data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return env, ErrEmptyPayload
	}
	env.Data = data
	return env, nil
}

func seal(event DomainEvent, eventID string) ([]byte, error) {
	data, err := json.Marshal(event.Data)
	if err != nil {
		return nil, fmt.Errorf("encode %s data: %w", event.EventType, err)
	}
	return json.Marshal(PayloadEnvelope{
		Version:    event.Version,
		EventID:    eventID,
		OccurredAt: event.OccurredAt,
		Actor:      event.Actor,
		Data:       data,
	})
}
