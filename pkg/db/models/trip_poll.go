package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TripPoll is a yes/no question proposed to the trip.
type TripPoll struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	TripID    uuid.UUID `gorm:"column:trip_id;type:uuid;not null"`
	Title     string    `gorm:"column:title;not null"`
	CreatedBy uuid.UUID `gorm:"column:created_by;type:uuid;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (TripPoll) TableName() string { return "trip_polls" }

func (p *TripPoll) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// TripPollVote is one user's current vote on a poll.
type TripPollVote struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	PollID    uuid.UUID `gorm:"column:poll_id;type:uuid;not null"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null"`
	VoteValue int       `gorm:"column:vote_value;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (TripPollVote) TableName() string { return "trip_poll_votes" }

func (v *TripPollVote) BeforeCreate(*gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}
