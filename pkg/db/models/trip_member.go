package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/tripcrew-backend/pkg/enums"
)

// TripMember links a user to a trip with a role.
type TripMember struct {
	ID       uuid.UUID      `gorm:"column:id;type:uuid;primaryKey"`
	TripID   uuid.UUID      `gorm:"column:trip_id;type:uuid;not null"`
	UserID   uuid.UUID      `gorm:"column:user_id;type:uuid;not null"`
	Role     enums.TripRole `gorm:"column:role;not null"`
	JoinedAt time.Time      `gorm:"column:joined_at;autoCreateTime"`
}

func (TripMember) TableName() string { return "trip_members" }

func (m *TripMember) BeforeCreate(*gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// IsLeader reports whether the membership carries the leader role.
func (m TripMember) IsLeader() bool {
	return m.Role == enums.TripRoleLeader
}
