package enums

import "fmt"

// OutboxAggregateType names the aggregate an outbox event belongs to.
type OutboxAggregateType string

const (
	AggregateTrip OutboxAggregateType = "trip"
	AggregatePoll OutboxAggregateType = "poll"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateTrip,
	AggregatePoll,
}

// IsValid reports whether the value matches a known aggregate type.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType names the domain event stored in outbox_events.event_type.
type OutboxEventType string

const (
	EventTripCreated   OutboxEventType = "trip_created"
	EventMemberJoined  OutboxEventType = "member_joined"
	EventMemberRemoved OutboxEventType = "member_removed"
	EventTripLocked    OutboxEventType = "trip_locked"
	EventTripUnlocked  OutboxEventType = "trip_unlocked"
	EventTripDeleted   OutboxEventType = "trip_deleted"
	EventExpenseAdded  OutboxEventType = "expense_added"
	EventPollCreated   OutboxEventType = "poll_created"
	EventPollDeleted   OutboxEventType = "poll_deleted"
	EventVoteCast      OutboxEventType = "vote_cast"
)

var validOutboxEventTypes = []OutboxEventType{
	EventTripCreated,
	EventMemberJoined,
	EventMemberRemoved,
	EventTripLocked,
	EventTripUnlocked,
	EventTripDeleted,
	EventExpenseAdded,
	EventPollCreated,
	EventPollDeleted,
	EventVoteCast,
}

// IsValid reports whether the value matches a known event type.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
