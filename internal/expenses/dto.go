package expenses

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/tripcrew-backend/pkg/db/models"
	"github.com/angelmondragon/tripcrew-backend/pkg/enums"
)

// ExpenseDTO is the transport shape for a ledger entry. Amount is a
// two-decimal string.
type ExpenseDTO struct {
	ID          uuid.UUID       `json:"id"`
	TripID      uuid.UUID       `json:"trip_id"`
	PaidBy      uuid.UUID       `json:"paid_by"`
	Amount      string          `json:"amount"`
	Description string          `json:"description"`
	SplitType   enums.SplitType `json:"splitType"`
	CreatedAt   time.Time       `json:"created_at"`
}

func ToDTO(e *models.TripExpense) *ExpenseDTO {
	if e == nil {
		return nil
	}
	return &ExpenseDTO{
		ID:          e.ID,
		TripID:      e.TripID,
		PaidBy:      e.PaidBy,
		Amount:      e.Amount.StringFixed(2),
		Description: e.Description,
		SplitType:   e.SplitType,
		CreatedAt:   e.CreatedAt,
	}
}

func ToDTOs(rows []models.TripExpense) []ExpenseDTO {
	out := make([]ExpenseDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *ToDTO(&rows[i]))
	}
	return out
}
