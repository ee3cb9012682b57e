package polls

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/tripcrew-backend/internal/repo"
	"github.com/angelmondragon/tripcrew-backend/pkg/db/models"
	"github.com/angelmondragon/tripcrew-backend/pkg/enums"
)

// Repository defines persistence operations for polls and their votes.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, poll *models.TripPoll) (*models.TripPoll, error)
	FindInTrip(ctx context.Context, tripID, pollID uuid.UUID) (*models.TripPoll, error)
	ListWithTallies(ctx context.Context, tripID, viewerID uuid.UUID) ([]PollDTO, error)
	UpsertVote(ctx context.Context, pollID, userID uuid.UUID, value enums.VoteValue) error
	DeleteVotesForPoll(ctx context.Context, pollID uuid.UUID) (int64, error)
	DeleteUserVotesInTrip(ctx context.Context, tripID, userID uuid.UUID) (int64, error)
	DeletePoll(ctx context.Context, pollID uuid.UUID) (int64, error)
	DeleteVotesByTrip(ctx context.Context, tripID uuid.UUID) (int64, error)
	DeleteByTrip(ctx context.Context, tripID uuid.UUID) (int64, error)
}

type repository struct {
	repo.Base
}

// NewRepository builds a polls repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{Base: r.Rebind(tx)}
}

func (r *repository) Create(ctx context.Context, poll *models.TripPoll) (*models.TripPoll, error) {
	if err := r.DB(ctx).Create(poll).Error; err != nil {
		return nil, err
	}
	return poll, nil
}

// FindInTrip returns gorm.ErrRecordNotFound when the poll does not exist or
// belongs to another trip.
func (r *repository) FindInTrip(ctx context.Context, tripID, pollID uuid.UUID) (*models.TripPoll, error) {
	return repo.First[models.TripPoll](ctx, r.Base, "id = ? AND trip_id = ?", pollID, tripID)
}

// ListWithTallies counts votes on every read; nothing is cached.
func (r *repository) ListWithTallies(ctx context.Context, tripID, viewerID uuid.UUID) ([]PollDTO, error) {
	var rows []pollTallyRow
	err := r.DB(ctx).
		Model(&models.TripPoll{}).
		Select(`trip_polls.*,
			COALESCE(SUM(CASE WHEN trip_poll_votes.vote_value = 1 THEN 1 ELSE 0 END), 0) AS yes_count,
			COALESCE(SUM(CASE WHEN trip_poll_votes.vote_value = -1 THEN 1 ELSE 0 END), 0) AS no_count,
			COALESCE(SUM(CASE WHEN trip_poll_votes.user_id = ? THEN trip_poll_votes.vote_value ELSE 0 END), 0) AS user_vote`, viewerID).
		Joins("LEFT JOIN trip_poll_votes ON trip_poll_votes.poll_id = trip_polls.id").
		Where("trip_polls.trip_id = ?", tripID).
		Group("trip_polls.id, trip_polls.trip_id, trip_polls.title, trip_polls.created_by, trip_polls.created_at").
		Order("trip_polls.created_at, trip_polls.id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return pollRowsToDTO(rows), nil
}

// UpsertVote inserts or overwrites the user's vote in a single statement.
func (r *repository) UpsertVote(ctx context.Context, pollID, userID uuid.UUID, value enums.VoteValue) error {
	vote := &models.TripPollVote{
		PollID:    pollID,
		UserID:    userID,
		VoteValue: value.Int(),
	}
	return r.DB(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "poll_id"}, {Name: "user_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"vote_value": value.Int(),
				"updated_at": time.Now().UTC(),
			}),
		}).
		Create(vote).Error
}

func (r *repository) DeleteVotesForPoll(ctx context.Context, pollID uuid.UUID) (int64, error) {
	res := r.DB(ctx).
		Where("poll_id = ?", pollID).
		Delete(&models.TripPollVote{})
	return res.RowsAffected, res.Error
}

// DeleteUserVotesInTrip removes the user's votes on the trip's polls only.
func (r *repository) DeleteUserVotesInTrip(ctx context.Context, tripID, userID uuid.UUID) (int64, error) {
	res := r.DB(ctx).
		Where("user_id = ? AND poll_id IN (?)", userID, r.tripPollIDs(ctx, tripID)).
		Delete(&models.TripPollVote{})
	return res.RowsAffected, res.Error
}

func (r *repository) DeletePoll(ctx context.Context, pollID uuid.UUID) (int64, error) {
	res := r.DB(ctx).
		Where("id = ?", pollID).
		Delete(&models.TripPoll{})
	return res.RowsAffected, res.Error
}

func (r *repository) DeleteVotesByTrip(ctx context.Context, tripID uuid.UUID) (int64, error) {
	res := r.DB(ctx).
		Where("poll_id IN (?)", r.tripPollIDs(ctx, tripID)).
		Delete(&models.TripPollVote{})
	return res.RowsAffected, res.Error
}

func (r *repository) DeleteByTrip(ctx context.Context, tripID uuid.UUID) (int64, error) {
	res := r.DB(ctx).
		Where("trip_id = ?", tripID).
		Delete(&models.TripPoll{})
	return res.RowsAffected, res.Error
}

func (r *repository) tripPollIDs(ctx context.Context, tripID uuid.UUID) *gorm.DB {
	return r.DB(ctx).
		Model(&models.TripPoll{}).
		Select("id").
		Where("trip_id = ?", tripID)
}
