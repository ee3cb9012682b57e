package memberships

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/tripcrew-backend/pkg/db/models"
	"github.com/angelmondragon/tripcrew-backend/pkg/enums"
)

// MemberDTO mixes membership metadata with the member's user profile.
type MemberDTO struct {
	ID       uuid.UUID      `json:"id"`
	TripID   uuid.UUID      `json:"trip_id"`
	UserID   uuid.UUID      `json:"user_id"`
	Role     enums.TripRole `json:"role"`
	JoinedAt time.Time      `json:"joined_at"`
	Name     string         `json:"name"`
	Email    string         `json:"email"`
}

type memberRow struct {
	models.TripMember
	UserName  *string `gorm:"column:user_name"`
	UserEmail *string `gorm:"column:user_email"`
}

// ToDTO converts a bare membership into the transport shape.
func ToDTO(m *models.TripMember) *MemberDTO {
	if m == nil {
		return nil
	}
	return &MemberDTO{
		ID:       m.ID,
		TripID:   m.TripID,
		UserID:   m.UserID,
		Role:     m.Role,
		JoinedAt: m.JoinedAt,
	}
}

func memberFromRow(row memberRow) MemberDTO {
	dto := *ToDTO(&row.TripMember)
	if row.UserName != nil {
		dto.Name = *row.UserName
	}
	if row.UserEmail != nil {
		dto.Email = *row.UserEmail
	}
	return dto
}

func memberRowsToDTO(rows []memberRow) []MemberDTO {
	out := make([]MemberDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, memberFromRow(row))
	}
	return out
}
