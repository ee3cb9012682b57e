package registry

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/tripcrew-backend/pkg/db/models"
	"github.com/angelmondragon/tripcrew-backend/pkg/enums"
	"github.com/angelmondragon/tripcrew-backend/pkg/outbox"
	"github.com/angelmondragon/tripcrew-backend/pkg/outbox/payloads"
)

// EventDescriptor describes where an event type is published and which
// aggregate it belongs to.
type EventDescriptor struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	Channel       string

	decode func(json.RawMessage) (any, error)
}

// ResolvedEvent is an outbox row with its envelope and typed payload decoded.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    any
}

// EventRegistry knows every trip event the publisher may deliver.
type EventRegistry struct {
	entries map[enums.OutboxEventType]EventDescriptor
}

// NonRetryableError marks a row that will never publish successfully.
type NonRetryableError struct {
	Err error
}

func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

func (e NonRetryableError) Unwrap() error {
	return e.Err
}

// NewNonRetryableError wraps err so the publisher dead-letters the row.
func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}

func nonRetryablef(format string, args ...any) error {
	return NonRetryableError{Err: fmt.Errorf(format, args...)}
}

// decoderFor returns a decoder producing *T.
func decoderFor[T any]() func(json.RawMessage) (any, error) {
	return func(data json.RawMessage) (any, error) {
		out := new(T)
		if err := json.Unmarshal(data, out); err != nil {
			return nil, err
		}
		return out, nil
	}
}

// NewEventRegistry routes every trip event to channel.
func NewEventRegistry(channel string) (*EventRegistry, error) {
	if channel == "" {
		return nil, errors.New("outbox channel is required")
	}

	trip, poll := enums.AggregateTrip, enums.AggregatePoll
	statusChanged := decoderFor[payloads.TripStatusChangedEvent]()
	descriptors := []EventDescriptor{
		{EventType: enums.EventTripCreated, AggregateType: trip, decode: decoderFor[payloads.TripCreatedEvent]()},
		{EventType: enums.EventMemberJoined, AggregateType: trip, decode: decoderFor[payloads.MemberJoinedEvent]()},
		{EventType: enums.EventMemberRemoved, AggregateType: trip, decode: decoderFor[payloads.MemberRemovedEvent]()},
		{EventType: enums.EventTripLocked, AggregateType: trip, decode: statusChanged},
		{EventType: enums.EventTripUnlocked, AggregateType: trip, decode: statusChanged},
		{EventType: enums.EventTripDeleted, AggregateType: trip, decode: decoderFor[payloads.TripDeletedEvent]()},
		{EventType: enums.EventExpenseAdded, AggregateType: trip, decode: decoderFor[payloads.ExpenseAddedEvent]()},
		{EventType: enums.EventPollCreated, AggregateType: poll, decode: decoderFor[payloads.PollCreatedEvent]()},
		{EventType: enums.EventPollDeleted, AggregateType: poll, decode: decoderFor[payloads.PollDeletedEvent]()},
		{EventType: enums.EventVoteCast, AggregateType: poll, decode: decoderFor[payloads.VoteCastEvent]()},
	}

	reg := &EventRegistry{entries: make(map[enums.OutboxEventType]EventDescriptor, len(descriptors))}
	for _, desc := range descriptors {
		desc.Channel = channel
		reg.entries[desc.EventType] = desc
	}
	return reg, nil
}

// Descriptor returns the descriptor registered for eventType.
func (r *EventRegistry) Descriptor(eventType enums.OutboxEventType) (EventDescriptor, bool) {
	desc, ok := r.entries[eventType]
	return desc, ok
}

// Resolve checks the row against its descriptor and decodes the payload.
// Every failure is non-retryable: a malformed row stays malformed.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	desc, ok := r.entries[event.EventType]
	switch {
	case !ok:
		return nil, nonRetryablef("unsupported event type %s", event.EventType)
	case desc.AggregateType != event.AggregateType:
		return nil, nonRetryablef("aggregate mismatch: expected %s got %s", desc.AggregateType, event.AggregateType)
	case event.AggregateID == uuid.Nil:
		return nil, nonRetryablef("missing aggregate_id")
	}

	envelope, err := outbox.ParseEnvelope(event.Payload)
	if err != nil {
		return nil, nonRetryablef("%s: %w", event.EventType, err)
	}
	payload, err := desc.decode(envelope.Data)
	if err != nil {
		return nil, nonRetryablef("decode %s payload: %w", event.EventType, err)
	}

	return &ResolvedEvent{Descriptor: desc, Envelope: envelope, Payload: payload}, nil
}
