package registry

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/tripcrew-backend/pkg/db/models"
	dbtypes "github.com/angelmondragon/tripcrew-backend/pkg/db/types"
	"github.com/angelmondragon/tripcrew-backend/pkg/enums"
	"github.com/angelmondragon/tripcrew-backend/pkg/outbox"
	"github.com/angelmondragon/tripcrew-backend/pkg/outbox/payloads"
)

const testChannel = "tripcrew:trip-events"

func TestEventRegistryResolveSuccess(t *testing.T) {
	reg := newTestEventRegistry(t)

	pollID := uuid.New()
	payloadBytes := mustMarshal(t, payloads.VoteCastEvent{
		TripID:    uuid.New(),
		PollID:    pollID,
		UserID:    uuid.New(),
		VoteValue: enums.VoteYes,
	})

	event := models.OutboxEvent{
		EventType:     enums.EventVoteCast,
		AggregateType: enums.AggregatePoll,
		AggregateID:   pollID,
		Payload:       mustEnvelope(t, payloadBytes),
	}

	resolved, err := reg.Resolve(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved.Descriptor.Channel != testChannel {
		t.Fatalf("unexpected channel %q", resolved.Descriptor.Channel)
	}
	payload, ok := resolved.Payload.(*payloads.VoteCastEvent)
	if !ok {
		t.Fatalf("unexpected payload type %T", resolved.Payload)
	}
	if payload.PollID != pollID || payload.VoteValue != enums.VoteYes {
		t.Fatalf("payload mismatch %+v", payload)
	}
	if resolved.Envelope.EventID == "" {
		t.Fatalf("envelope missing event id")
	}
	if resolved.Envelope.OccurredAt.IsZero() {
		t.Fatalf("envelope missing occurredAt")
	}
}

func TestEventRegistryCoversEveryEventType(t *testing.T) {
	reg := newTestEventRegistry(t)
	for _, eventType := range []enums.OutboxEventType{
		enums.EventTripCreated,
		enums.EventMemberJoined,
		enums.EventMemberRemoved,
		enums.EventTripLocked,
		enums.EventTripUnlocked,
		enums.EventTripDeleted,
		enums.EventExpenseAdded,
		enums.EventPollCreated,
		enums.EventPollDeleted,
		enums.EventVoteCast,
	} {
		if _, ok := reg.Descriptor(eventType); !ok {
			t.Fatalf("event type %s not registered", eventType)
		}
	}
}

func TestEventRegistryResolveUnknownEvent(t *testing.T) {
	reg := newTestEventRegistry(t)

	event := models.OutboxEvent{
		EventType:     enums.OutboxEventType("order_created"),
		AggregateType: enums.AggregateTrip,
		AggregateID:   uuid.New(),
		Payload:       mustEnvelope(t, []byte(`{"reason":"none"}`)),
	}

	_, err := reg.Resolve(event)
	assertNonRetryable(t, err)
}

func TestEventRegistryResolveAggregateMismatch(t *testing.T) {
	reg := newTestEventRegistry(t)

	event := models.OutboxEvent{
		EventType:     enums.EventTripLocked,
		AggregateType: enums.AggregatePoll,
		AggregateID:   uuid.New(),
		Payload:       mustEnvelope(t, []byte(`{"trip_id":"00000000-0000-0000-0000-000000000000","status":"locked"}`)),
	}

	_, err := reg.Resolve(event)
	assertNonRetryable(t, err)
}

func TestEventRegistryResolveMissingPayload(t *testing.T) {
	reg := newTestEventRegistry(t)

	event := models.OutboxEvent{
		EventType:     enums.EventTripDeleted,
		AggregateType: enums.AggregateTrip,
		AggregateID:   uuid.New(),
		Payload:       mustEnvelope(t, []byte("null")),
	}

	_, err := reg.Resolve(event)
	assertNonRetryable(t, err)
}

func TestEventRegistryResolveBadEnvelope(t *testing.T) {
	reg := newTestEventRegistry(t)

	event := models.OutboxEvent{
		EventType:     enums.EventTripDeleted,
		AggregateType: enums.AggregateTrip,
		AggregateID:   uuid.New(),
		Payload:       dbtypes.JSONText(`not-json`),
	}

	_, err := reg.Resolve(event)
	assertNonRetryable(t, err)
}

func TestNewEventRegistryRequiresChannel(t *testing.T) {
	if _, err := NewEventRegistry(""); err == nil {
		t.Fatal("expected error for empty channel")
	}
}

func assertNonRetryable(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error")
	}
	var nonRetry NonRetryableError
	if !errors.As(err, &nonRetry) {
		t.Fatalf("expected non-retryable error, got %T", err)
	}
}

func newTestEventRegistry(t *testing.T) *EventRegistry {
	t.Helper()
	reg, err := NewEventRegistry(testChannel)
	if err != nil {
		t.Fatalf("build registry: %v", err)
	}
	return reg
}

func mustMarshal(t *testing.T, v interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return data
}

func mustEnvelope(t *testing.T, payload []byte) dbtypes.JSONText {
	t.Helper()
	envelope := outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Data:       payload,
	}
	data, err := json.Marshal(envelope)
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return dbtypes.JSONText(data)
}

func TestEventRegistryResolveUnknownVersion(t *testing.T) {
	reg := newTestEventRegistry(t)

	envelope := outbox.PayloadEnvelope{
		Version:    99,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Data:       json.RawMessage(`{"trip_id":"00000000-0000-0000-0000-000000000000"}`),
	}
	raw, err := json.Marshal(envelope)
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}

	_, err = reg.Resolve(models.OutboxEvent{
		EventType:     enums.EventTripDeleted,
		AggregateType: enums.AggregateTrip,
		AggregateID:   uuid.New(),
		Payload:       dbtypes.JSONText(raw),
	})
	assertNonRetryable(t, err)
}

func TestEventRegistryResolveBadPayload(t *testing.T) {
	reg := newTestEventRegistry(t)

	_, err := reg.Resolve(models.OutboxEvent{
		EventType:     enums.EventExpenseAdded,
		AggregateType: enums.AggregateTrip,
		AggregateID:   uuid.New(),
		Payload:       mustEnvelope(t, []byte(`{"trip_id":42}`)),
	})
	assertNonRetryable(t, err)
}

func TestEventRegistrySharesStatusPayload(t *testing.T) {
	reg := newTestEventRegistry(t)
	tripID := uuid.New()

	for _, eventType := range []enums.OutboxEventType{enums.EventTripLocked, enums.EventTripUnlocked} {
		resolved, err := reg.Resolve(models.OutboxEvent{
			EventType:     eventType,
			AggregateType: enums.AggregateTrip,
			AggregateID:   tripID,
			Payload: mustEnvelope(t, mustMarshal(t, payloads.TripStatusChangedEvent{
				TripID: tripID,
				Status: enums.TripStatusLocked,
			})),
		})
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", eventType, err)
		}
		if _, ok := resolved.Payload.(*payloads.TripStatusChangedEvent); !ok {
			t.Fatalf("%s: unexpected payload type %T", eventType, resolved.Payload)
		}
	}
}
