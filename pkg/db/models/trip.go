package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/tripcrew-backend/pkg/enums"
)

// Trip is the shared planning aggregate.
type Trip struct {
	ID          uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	Name        string           `gorm:"column:name;not null"`
	Destination string           `gorm:"column:destination;not null"`
	StartDate   string           `gorm:"column:start_date"`
	EndDate     string           `gorm:"column:end_date"`
	CreatedBy   uuid.UUID        `gorm:"column:created_by;type:uuid;not null"`
	InviteCode  string           `gorm:"column:invite_code;not null;uniqueIndex"`
	Status      enums.TripStatus `gorm:"column:status;not null;default:planning"`
	CreatedAt   time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

func (Trip) TableName() string { return "trips" }

// BeforeCreate assigns an ID when the caller did not.
func (t *Trip) BeforeCreate(*gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// IsLocked reports whether the trip rejects new expenses and polls.
func (t Trip) IsLocked() bool {
	return t.Status == enums.TripStatusLocked
}
