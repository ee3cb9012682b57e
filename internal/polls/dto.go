package polls

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/tripcrew-backend/pkg/db/models"
)

// PollDTO is a poll with its current tally and the viewer's own vote
// (0 when the viewer has not voted).
type PollDTO struct {
	ID        uuid.UUID `json:"id"`
	TripID    uuid.UUID `json:"trip_id"`
	Title     string    `json:"title"`
	CreatedBy uuid.UUID `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	YesCount  int64     `json:"yesCount"`
	NoCount   int64     `json:"noCount"`
	UserVote  int       `json:"userVote"`
}

type pollTallyRow struct {
	models.TripPoll
	YesCount int64 `gorm:"column:yes_count"`
	NoCount  int64 `gorm:"column:no_count"`
	UserVote int   `gorm:"column:user_vote"`
}

// ToDTO converts a freshly created poll; its tally is empty.
func ToDTO(p *models.TripPoll) *PollDTO {
	if p == nil {
		return nil
	}
	return &PollDTO{
		ID:        p.ID,
		TripID:    p.TripID,
		Title:     p.Title,
		CreatedBy: p.CreatedBy,
		CreatedAt: p.CreatedAt,
	}
}

func pollRowsToDTO(rows []pollTallyRow) []PollDTO {
	out := make([]PollDTO, 0, len(rows))
	for _, row := range rows {
		dto := *ToDTO(&row.TripPoll)
		dto.YesCount = row.YesCount
		dto.NoCount = row.NoCount
		dto.UserVote = row.UserVote
		out = append(out, dto)
	}
	return out
}
