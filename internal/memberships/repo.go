package memberships

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/tripcrew-backend/internal/repo"
	"github.com/angelmondragon/tripcrew-backend/pkg/db/models"
	"github.com/angelmondragon/tripcrew-backend/pkg/enums"
)

// Repository defines persistence operations for trip memberships.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, tripID, userID uuid.UUID, role enums.TripRole) (*models.TripMember, error)
	Get(ctx context.Context, tripID, userID uuid.UUID) (*models.TripMember, error)
	ListByTrip(ctx context.Context, tripID uuid.UUID) ([]MemberDTO, error)
	ListUserIDs(ctx context.Context, tripID uuid.UUID) ([]uuid.UUID, error)
	Count(ctx context.Context, tripID uuid.UUID) (int64, error)
	Delete(ctx context.Context, tripID, userID uuid.UUID) (int64, error)
	DeleteByTrip(ctx context.Context, tripID uuid.UUID) (int64, error)
}

type repository struct {
	repo.Base
}

// NewRepository binds the repo to the provided GORM connection.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{Base: r.Rebind(tx)}
}

// Create persists a membership. A duplicate (trip, user) pair surfaces the
// store's unique violation to the caller.
func (r *repository) Create(ctx context.Context, tripID, userID uuid.UUID, role enums.TripRole) (*models.TripMember, error) {
	if !role.IsValid() {
		return nil, fmt.Errorf("invalid trip role %q", role)
	}
	member := &models.TripMember{
		TripID: tripID,
		UserID: userID,
		Role:   role,
	}
	if err := r.DB(ctx).Create(member).Error; err != nil {
		return nil, err
	}
	return member, nil
}

// Get returns gorm.ErrRecordNotFound when the user is not a member.
func (r *repository) Get(ctx context.Context, tripID, userID uuid.UUID) (*models.TripMember, error) {
	return repo.First[models.TripMember](ctx, r.Base, "trip_id = ? AND user_id = ?", tripID, userID)
}

// ListByTrip returns members in join order decorated with the user profile.
// Members without a users row keep empty name and email.
func (r *repository) ListByTrip(ctx context.Context, tripID uuid.UUID) ([]MemberDTO, error) {
	var rows []memberRow
	err := r.DB(ctx).
		Model(&models.TripMember{}).
		Select("trip_members.*, users.name AS user_name, users.email AS user_email").
		Joins("LEFT JOIN users ON users.id = trip_members.user_id").
		Where("trip_members.trip_id = ?", tripID).
		Order("trip_members.joined_at, trip_members.id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return memberRowsToDTO(rows), nil
}

// ListUserIDs returns member user ids in join order.
func (r *repository) ListUserIDs(ctx context.Context, tripID uuid.UUID) ([]uuid.UUID, error) {
	var members []models.TripMember
	err := r.DB(ctx).
		Select("user_id").
		Where("trip_id = ?", tripID).
		Order("joined_at, id").
		Find(&members).Error
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.UserID)
	}
	return ids, nil
}

func (r *repository) Count(ctx context.Context, tripID uuid.UUID) (int64, error) {
	return repo.Count[models.TripMember](ctx, r.Base, "trip_id = ?", tripID)
}

func (r *repository) Delete(ctx context.Context, tripID, userID uuid.UUID) (int64, error) {
	res := r.DB(ctx).
		Where("trip_id = ? AND user_id = ?", tripID, userID).
		Delete(&models.TripMember{})
	return res.RowsAffected, res.Error
}

func (r *repository) DeleteByTrip(ctx context.Context, tripID uuid.UUID) (int64, error) {
	res := r.DB(ctx).
		Where("trip_id = ?", tripID).
		Delete(&models.TripMember{})
	return res.RowsAffected, res.Error
}
