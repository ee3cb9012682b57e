package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/tripcrew-backend/pkg/enums"
)

// TripExpense is an append-only ledger entry.
type TripExpense struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	TripID      uuid.UUID       `gorm:"column:trip_id;type:uuid;not null"`
	PaidBy      uuid.UUID       `gorm:"column:paid_by;type:uuid;not null"`
	Amount      decimal.Decimal `gorm:"column:amount;type:numeric(12,2);not null"`
	Description string          `gorm:"column:description"`
	SplitType   enums.SplitType `gorm:"column:split_type;not null;default:equal"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (TripExpense) TableName() string { return "trip_expenses" }

func (e *TripExpense) BeforeCreate(*gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
