package trips

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/tripcrew-backend/internal/repo"
	"github.com/angelmondragon/tripcrew-backend/pkg/db/models"
	"github.com/angelmondragon/tripcrew-backend/pkg/enums"
)

// Repository defines persistence operations for the trips table.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, trip *models.Trip) (*models.Trip, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Trip, error)
	FindByInviteCode(ctx context.Context, code string) (*models.Trip, error)
	InviteCodeExists(ctx context.Context, code string) (bool, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.TripStatus) error
	Delete(ctx context.Context, id uuid.UUID) (int64, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]UserTripDTO, error)
}

type repository struct {
	repo.Base
}

// NewRepository builds a trips repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{Base: r.Rebind(tx)}
}

func (r *repository) Create(ctx context.Context, trip *models.Trip) (*models.Trip, error) {
	if err := r.DB(ctx).Create(trip).Error; err != nil {
		return nil, err
	}
	return trip, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Trip, error) {
	return repo.First[models.Trip](ctx, r.Base, "id = ?", id)
}

func (r *repository) FindByInviteCode(ctx context.Context, code string) (*models.Trip, error) {
	return repo.First[models.Trip](ctx, r.Base, "invite_code = ?", code)
}

func (r *repository) InviteCodeExists(ctx context.Context, code string) (bool, error) {
	n, err := repo.Count[models.Trip](ctx, r.Base, "invite_code = ?", code)
	return n > 0, err
}

func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.TripStatus) error {
	res := r.DB(ctx).
		Model(&models.Trip{}).
		Where("id = ?", id).
		Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) (int64, error) {
	res := r.DB(ctx).
		Where("id = ?", id).
		Delete(&models.Trip{})
	return res.RowsAffected, res.Error
}

// ListForUser returns every trip the user belongs to, newest first, with the
// user's role and the trip's head count.
func (r *repository) ListForUser(ctx context.Context, userID uuid.UUID) ([]UserTripDTO, error) {
	var rows []userTripRow
	err := r.DB(ctx).
		Model(&models.Trip{}).
		Select(`trips.*, trip_members.role AS role,
			(SELECT COUNT(*) FROM trip_members AS m WHERE m.trip_id = trips.id) AS member_count`).
		Joins("JOIN trip_members ON trip_members.trip_id = trips.id").
		Where("trip_members.user_id = ?", userID).
		Order("trips.created_at DESC, trips.id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]UserTripDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, UserTripDTO{
			TripDTO:     *ToTripDTO(&row.Trip),
			Role:        row.Role,
			MemberCount: row.MemberCount,
		})
	}
	return out, nil
}
