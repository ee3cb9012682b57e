package trips

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/tripcrew-backend/internal/expenses"
	"github.com/angelmondragon/tripcrew-backend/internal/memberships"
	"github.com/angelmondragon/tripcrew-backend/internal/polls"
	"github.com/angelmondragon/tripcrew-backend/pkg/db/models"
	"github.com/angelmondragon/tripcrew-backend/pkg/enums"
)

// CreateTripInput carries the fields a user supplies when starting a trip.
// Dates are optional YYYY-MM-DD strings.
type CreateTripInput struct {
	Name        string
	Destination string
	StartDate   string
	EndDate     string
}

// CreateTripResult is returned to the creator so they can share the code.
type CreateTripResult struct {
	TripID     uuid.UUID `json:"tripId"`
	InviteCode string    `json:"inviteCode"`
}

// JoinTripResult identifies the trip the caller just joined.
type JoinTripResult struct {
	TripID uuid.UUID `json:"tripId"`
}

// AddExpenseInput describes a new ledger entry paid by the caller. An empty
// SplitType means an equal split.
type AddExpenseInput struct {
	Amount      decimal.Decimal
	Description string
	SplitType   string
}

// VoteInput is the caller's vote on one of the trip's polls.
type VoteInput struct {
	PollID uuid.UUID
	Value  enums.VoteValue
}

// TripDTO is the transport shape for a trip row.
type TripDTO struct {
	ID          uuid.UUID        `json:"id"`
	Name        string           `json:"name"`
	Destination string           `json:"destination"`
	StartDate   string           `json:"start_date"`
	EndDate     string           `json:"end_date"`
	CreatedBy   uuid.UUID        `json:"created_by"`
	InviteCode  string           `json:"invite_code"`
	Status      enums.TripStatus `json:"status"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// UserTripDTO is a my-trips entry.
type UserTripDTO struct {
	TripDTO
	Role        enums.TripRole `json:"role"`
	MemberCount int64          `json:"member_count"`
}

// TripView is the consolidated trip page.
type TripView struct {
	Trip            TripDTO                 `json:"trip"`
	CurrentUserRole enums.TripRole          `json:"currentUserRole"`
	Members         []memberships.MemberDTO `json:"members"`
	Expenses        []expenses.ExpenseDTO   `json:"expenses"`
	Polls           []polls.PollDTO         `json:"polls"`
}

type userTripRow struct {
	models.Trip
	Role        enums.TripRole `gorm:"column:role"`
	MemberCount int64          `gorm:"column:member_count"`
}

func ToTripDTO(t *models.Trip) *TripDTO {
	if t == nil {
		return nil
	}
	return &TripDTO{
		ID:          t.ID,
		Name:        t.Name,
		Destination: t.Destination,
		StartDate:   t.StartDate,
		EndDate:     t.EndDate,
		CreatedBy:   t.CreatedBy,
		InviteCode:  t.InviteCode,
		Status:      t.Status,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}
