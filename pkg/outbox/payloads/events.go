package payloads

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/tripcrew-backend/pkg/enums"
)

// TripCreatedEvent is emitted when a leader creates a trip.
type TripCreatedEvent struct {
	TripID      uuid.UUID `json:"trip_id"`
	Name        string    `json:"name"`
	Destination string    `json:"destination"`
	StartDate   string    `json:"start_date,omitempty"`
	EndDate     string    `json:"end_date,omitempty"`
	LeaderID    uuid.UUID `json:"leader_id"`
}

// MemberJoinedEvent is emitted when a user joins through an invite code.
type MemberJoinedEvent struct {
	TripID uuid.UUID      `json:"trip_id"`
	UserID uuid.UUID      `json:"user_id"`
	Role   enums.TripRole `json:"role"`
}

// MemberRemovedEvent is emitted when the leader removes a member.
type MemberRemovedEvent struct {
	TripID       uuid.UUID `json:"trip_id"`
	UserID       uuid.UUID `json:"user_id"`
	RemovedBy    uuid.UUID `json:"removed_by"`
	VotesRemoved int64     `json:"votes_removed"`
}

// TripStatusChangedEvent covers trip_locked and trip_unlocked.
type TripStatusChangedEvent struct {
	TripID    uuid.UUID        `json:"trip_id"`
	Status    enums.TripStatus `json:"status"`
	ChangedBy uuid.UUID        `json:"changed_by"`
}

// TripDeletedEvent is emitted after the cascading delete commits.
type TripDeletedEvent struct {
	TripID    uuid.UUID `json:"trip_id"`
	DeletedBy uuid.UUID `json:"deleted_by"`
}

// ExpenseAddedEvent is emitted for every new ledger entry.
type ExpenseAddedEvent struct {
	TripID      uuid.UUID       `json:"trip_id"`
	ExpenseID   uuid.UUID       `json:"expense_id"`
	PaidBy      uuid.UUID       `json:"paid_by"`
	Amount      string          `json:"amount"`
	Description string          `json:"description,omitempty"`
	SplitType   enums.SplitType `json:"split_type"`
}

// PollCreatedEvent is emitted when a member proposes a poll.
type PollCreatedEvent struct {
	TripID    uuid.UUID `json:"trip_id"`
	PollID    uuid.UUID `json:"poll_id"`
	Title     string    `json:"title"`
	CreatedBy uuid.UUID `json:"created_by"`
}

// PollDeletedEvent is emitted when a poll and its votes are removed.
type PollDeletedEvent struct {
	TripID    uuid.UUID `json:"trip_id"`
	PollID    uuid.UUID `json:"poll_id"`
	DeletedBy uuid.UUID `json:"deleted_by"`
}

// VoteCastEvent is emitted for every insert or change of a vote.
type VoteCastEvent struct {
	TripID    uuid.UUID       `json:"trip_id"`
	PollID    uuid.UUID       `json:"poll_id"`
	UserID    uuid.UUID       `json:"user_id"`
	VoteValue enums.VoteValue `json:"vote_value"`
}
