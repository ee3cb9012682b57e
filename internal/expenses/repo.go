package expenses

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/tripcrew-backend/internal/repo"
	"github.com/angelmondragon/tripcrew-backend/pkg/db/models"
)

// Repository is the append-only ledger store. Rows are only ever removed
// together with their trip.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, expense *models.TripExpense) (*models.TripExpense, error)
	ListByTrip(ctx context.Context, tripID uuid.UUID) ([]models.TripExpense, error)
	DeleteByTrip(ctx context.Context, tripID uuid.UUID) (int64, error)
}

type repository struct {
	repo.Base
}

// NewRepository builds an expenses repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{Base: r.Rebind(tx)}
}

func (r *repository) Create(ctx context.Context, expense *models.TripExpense) (*models.TripExpense, error) {
	if err := r.DB(ctx).Create(expense).Error; err != nil {
		return nil, err
	}
	return expense, nil
}

// ListByTrip returns the ledger oldest first.
func (r *repository) ListByTrip(ctx context.Context, tripID uuid.UUID) ([]models.TripExpense, error) {
	var rows []models.TripExpense
	err := r.DB(ctx).
		Where("trip_id = ?", tripID).
		Order("created_at, id").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) DeleteByTrip(ctx context.Context, tripID uuid.UUID) (int64, error) {
	res := r.DB(ctx).
		Where("trip_id = ?", tripID).
		Delete(&models.TripExpense{})
	return res.RowsAffected, res.Error
}
