package trips

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/tripcrew-backend/internal/expenses"
	"github.com/angelmondragon/tripcrew-backend/internal/memberships"
	"github.com/angelmondragon/tripcrew-backend/internal/polls"
	"github.com/angelmondragon/tripcrew-backend/pkg/config"
	"github.com/angelmondragon/tripcrew-backend/pkg/db"
	"github.com/angelmondragon/tripcrew-backend/pkg/db/models"
	"github.com/angelmondragon/tripcrew-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tripcrew-backend/pkg/errors"
	"github.com/angelmondragon/tripcrew-backend/pkg/outbox"
	"github.com/angelmondragon/tripcrew-backend/pkg/outbox/payloads"
)

const dateLayout = "2006-01-02"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes every trip-scoped operation. Each one resolves the caller's
// membership before touching sub-resources.
type Service interface {
	Create(ctx context.Context, callerID uuid.UUID, input CreateTripInput) (*CreateTripResult, error)
	Join(ctx context.Context, callerID uuid.UUID, inviteCode string) (*JoinTripResult, error)
	ListMyTrips(ctx context.Context, callerID uuid.UUID) ([]UserTripDTO, error)
	GetTripView(ctx context.Context, tripID, callerID uuid.UUID) (*TripView, error)
	Lock(ctx context.Context, tripID, callerID uuid.UUID) error
	Unlock(ctx context.Context, tripID, callerID uuid.UUID) error
	Delete(ctx context.Context, tripID, callerID uuid.UUID) error
	AddExpense(ctx context.Context, tripID, callerID uuid.UUID, input AddExpenseInput) (*expenses.ExpenseDTO, error)
	Balances(ctx context.Context, tripID, callerID uuid.UUID) (*expenses.Balances, error)
	CreatePoll(ctx context.Context, tripID, callerID uuid.UUID, title string) (*polls.PollDTO, error)
	Vote(ctx context.Context, tripID, callerID uuid.UUID, input VoteInput) error
	DeletePoll(ctx context.Context, tripID, callerID, pollID uuid.UUID) error
	RemoveMember(ctx context.Context, tripID, callerID, targetUserID uuid.UUID) error
}

// ServiceParams packages the dependencies for the trips service.
// InviteCodes defaults to the crypto/rand generator.
type ServiceParams struct {
	Tx          txRunner
	Trips       Repository
	Members     memberships.Repository
	Polls       polls.Repository
	Expenses    expenses.Repository
	Outbox      outbox.Emitter
	Config      config.TripsConfig
	InviteCodes InviteCodeGenerator
}

type service struct {
	tx          txRunner
	trips       Repository
	members     memberships.Repository
	polls       polls.Repository
	expenses    expenses.Repository
	outbox      outbox.Emitter
	cfg         config.TripsConfig
	inviteCodes InviteCodeGenerator
}

// NewService builds the trips service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Trips == nil {
		return nil, fmt.Errorf("trips repository required")
	}
	if params.Members == nil {
		return nil, fmt.Errorf("memberships repository required")
	}
	if params.Polls == nil {
		return nil, fmt.Errorf("polls repository required")
	}
	if params.Expenses == nil {
		return nil, fmt.Errorf("expenses repository required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if params.Config.InviteCodeAttempts <= 0 {
		return nil, fmt.Errorf("invite code attempts must be positive")
	}
	inviteCodes := params.InviteCodes
	if inviteCodes == nil {
		inviteCodes = NewInviteCodeGenerator(params.Config.InviteCodeLength)
	}
	return &service{
		tx:          params.Tx,
		trips:       params.Trips,
		members:     params.Members,
		polls:       params.Polls,
		expenses:    params.Expenses,
		outbox:      params.Outbox,
		cfg:         params.Config,
		inviteCodes: inviteCodes,
	}, nil
}

func (s *service) Create(ctx context.Context, callerID uuid.UUID, input CreateTripInput) (*CreateTripResult, error) {
	if callerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	name := strings.TrimSpace(input.Name)
	destination := strings.TrimSpace(input.Destination)
	if name == "" || destination == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name and destination are required")
	}
	startDate, endDate, err := validateDates(input.StartDate, input.EndDate)
	if err != nil {
		return nil, err
	}

	for attempt := 0; attempt < s.cfg.InviteCodeAttempts; attempt++ {
		code, err := s.inviteCodes.Generate()
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate invite code")
		}
		exists, err := s.trips.InviteCodeExists(ctx, code)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check invite code")
		}
		if exists {
			continue
		}

		trip := &models.Trip{
			Name:        name,
			Destination: destination,
			StartDate:   startDate,
			EndDate:     endDate,
			CreatedBy:   callerID,
			InviteCode:  code,
			Status:      enums.TripStatusPlanning,
		}
		err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			if _, err := s.trips.WithTx(tx).Create(ctx, trip); err != nil {
				return err
			}
			if _, err := s.members.WithTx(tx).Create(ctx, trip.ID, callerID, enums.TripRoleLeader); err != nil {
				return err
			}
			return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventTripCreated,
				AggregateType: enums.AggregateTrip,
				AggregateID:   trip.ID,
				Actor:         actor(callerID, trip.ID, enums.TripRoleLeader),
				Data: payloads.TripCreatedEvent{
					TripID:      trip.ID,
					Name:        trip.Name,
					Destination: trip.Destination,
					StartDate:   trip.StartDate,
					EndDate:     trip.EndDate,
					LeaderID:    callerID,
				},
			})
		})
		if err == nil {
			return &CreateTripResult{TripID: trip.ID, InviteCode: trip.InviteCode}, nil
		}
		if isInviteCodeCollision(err) {
			continue
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create trip")
	}
	return nil, pkgerrors.Newf(pkgerrors.CodeInternal, "no unique invite code after %d attempts", s.cfg.InviteCodeAttempts)
}

func (s *service) Join(ctx context.Context, callerID uuid.UUID, inviteCode string) (*JoinTripResult, error) {
	if callerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	code := NormalizeInviteCode(inviteCode)
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "invalid invite code")
	}

	var tripID uuid.UUID
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		trip, err := s.trips.WithTx(tx).FindByInviteCode(ctx, code)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "invalid invite code")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load trip by invite code")
		}
		if trip.IsLocked() {
			return pkgerrors.New(pkgerrors.CodeTripConflict, "trip locked")
		}

		members := s.members.WithTx(tx)
		if _, err := members.Get(ctx, trip.ID, callerID); err == nil {
			return pkgerrors.New(pkgerrors.CodeTripConflict, "already a member")
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load membership")
		}

		if _, err := members.Create(ctx, trip.ID, callerID, enums.TripRoleMember); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeTripConflict, "already a member")
			}
			if db.IsForeignKeyViolation(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "trip not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create membership")
		}
		tripID = trip.ID
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventMemberJoined,
			AggregateType: enums.AggregateTrip,
			AggregateID:   trip.ID,
			Actor:         actor(callerID, trip.ID, enums.TripRoleMember),
			Data: payloads.MemberJoinedEvent{
				TripID: trip.ID,
				UserID: callerID,
				Role:   enums.TripRoleMember,
			},
		})
	})
	if err != nil {
		return nil, asServiceError(err, "join trip")
	}
	return &JoinTripResult{TripID: tripID}, nil
}

func (s *service) ListMyTrips(ctx context.Context, callerID uuid.UUID) ([]UserTripDTO, error) {
	if callerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	list, err := s.trips.ListForUser(ctx, callerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list trips")
	}
	return list, nil
}

func (s *service) GetTripView(ctx context.Context, tripID, callerID uuid.UUID) (*TripView, error) {
	member, err := requireMembership(ctx, s.members, tripID, callerID)
	if err != nil {
		return nil, err
	}
	trip, err := loadTrip(ctx, s.trips, tripID)
	if err != nil {
		return nil, err
	}
	members, err := s.members.ListByTrip(ctx, tripID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list members")
	}
	ledger, err := s.expenses.ListByTrip(ctx, tripID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list expenses")
	}
	pollList, err := s.polls.ListWithTallies(ctx, tripID, callerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list polls")
	}

	return &TripView{
		Trip:            *ToTripDTO(trip),
		CurrentUserRole: member.Role,
		Members:         members,
		Expenses:        expenses.ToDTOs(ledger),
		Polls:           pollList,
	}, nil
}

func (s *service) Lock(ctx context.Context, tripID, callerID uuid.UUID) error {
	return s.setStatus(ctx, tripID, callerID, enums.TripStatusLocked, enums.EventTripLocked)
}

func (s *service) Unlock(ctx context.Context, tripID, callerID uuid.UUID) error {
	return s.setStatus(ctx, tripID, callerID, enums.TripStatusPlanning, enums.EventTripUnlocked)
}

// setStatus is a no-op without an event when the trip already has the
// target status.
func (s *service) setStatus(ctx context.Context, tripID, callerID uuid.UUID, target enums.TripStatus, event enums.OutboxEventType) error {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := requireLeader(ctx, s.members.WithTx(tx), tripID, callerID); err != nil {
			return err
		}
		tripsRepo := s.trips.WithTx(tx)
		trip, err := loadTrip(ctx, tripsRepo, tripID)
		if err != nil {
			return err
		}
		if trip.Status == target {
			return nil
		}
		if err := tripsRepo.UpdateStatus(ctx, tripID, target); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update trip status")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     event,
			AggregateType: enums.AggregateTrip,
			AggregateID:   tripID,
			Actor:         actor(callerID, tripID, enums.TripRoleLeader),
			Data: payloads.TripStatusChangedEvent{
				TripID:    tripID,
				Status:    target,
				ChangedBy: callerID,
			},
		})
	})
	return asServiceError(err, "change trip status")
}

// Delete removes the trip and everything under it in one transaction.
func (s *service) Delete(ctx context.Context, tripID, callerID uuid.UUID) error {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		members := s.members.WithTx(tx)
		if _, err := requireLeader(ctx, members, tripID, callerID); err != nil {
			return err
		}
		pollsRepo := s.polls.WithTx(tx)

		if _, err := s.expenses.WithTx(tx).DeleteByTrip(ctx, tripID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete expenses")
		}
		if _, err := pollsRepo.DeleteVotesByTrip(ctx, tripID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete votes")
		}
		if _, err := pollsRepo.DeleteByTrip(ctx, tripID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete polls")
		}
		if _, err := members.DeleteByTrip(ctx, tripID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete memberships")
		}
		if _, err := s.trips.WithTx(tx).Delete(ctx, tripID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete trip")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventTripDeleted,
			AggregateType: enums.AggregateTrip,
			AggregateID:   tripID,
			Actor:         actor(callerID, tripID, enums.TripRoleLeader),
			Data: payloads.TripDeletedEvent{
				TripID:    tripID,
				DeletedBy: callerID,
			},
		})
	})
	return asServiceError(err, "delete trip")
}

func (s *service) AddExpense(ctx context.Context, tripID, callerID uuid.UUID, input AddExpenseInput) (*expenses.ExpenseDTO, error) {
	if !input.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be greater than zero")
	}
	if !input.Amount.Equal(input.Amount.Round(2)) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount supports at most two decimal places")
	}
	splitType, err := enums.ParseSplitType(input.SplitType)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid split type")
	}

	var created *models.TripExpense
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		member, err := s.requireUnlocked(ctx, tx, tripID, callerID)
		if err != nil {
			return err
		}
		created, err = s.expenses.WithTx(tx).Create(ctx, &models.TripExpense{
			TripID:      tripID,
			PaidBy:      callerID,
			Amount:      input.Amount,
			Description: strings.TrimSpace(input.Description),
			SplitType:   splitType,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create expense")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventExpenseAdded,
			AggregateType: enums.AggregateTrip,
			AggregateID:   tripID,
			Actor:         actor(callerID, tripID, member.Role),
			Data: payloads.ExpenseAddedEvent{
				TripID:      tripID,
				ExpenseID:   created.ID,
				PaidBy:      callerID,
				Amount:      created.Amount.StringFixed(2),
				Description: created.Description,
				SplitType:   created.SplitType,
			},
		})
	})
	if err != nil {
		return nil, asServiceError(err, "add expense")
	}
	return expenses.ToDTO(created), nil
}

func (s *service) Balances(ctx context.Context, tripID, callerID uuid.UUID) (*expenses.Balances, error) {
	if _, err := requireMembership(ctx, s.members, tripID, callerID); err != nil {
		return nil, err
	}
	memberIDs, err := s.members.ListUserIDs(ctx, tripID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list members")
	}
	ledger, err := s.expenses.ListByTrip(ctx, tripID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list expenses")
	}
	balances := expenses.ComputeBalances(memberIDs, ledger)
	return &balances, nil
}

func (s *service) CreatePoll(ctx context.Context, tripID, callerID uuid.UUID, title string) (*polls.PollDTO, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title is required")
	}

	var created *models.TripPoll
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		member, err := s.requireUnlocked(ctx, tx, tripID, callerID)
		if err != nil {
			return err
		}
		created, err = s.polls.WithTx(tx).Create(ctx, &models.TripPoll{
			TripID:    tripID,
			Title:     title,
			CreatedBy: callerID,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create poll")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPollCreated,
			AggregateType: enums.AggregatePoll,
			AggregateID:   created.ID,
			Actor:         actor(callerID, tripID, member.Role),
			Data: payloads.PollCreatedEvent{
				TripID:    tripID,
				PollID:    created.ID,
				Title:     created.Title,
				CreatedBy: callerID,
			},
		})
	})
	if err != nil {
		return nil, asServiceError(err, "create poll")
	}
	return polls.ToDTO(created), nil
}

// Vote is allowed on locked trips. The membership check can be switched off
// with Config.EnforceVoteMembership.
func (s *service) Vote(ctx context.Context, tripID, callerID uuid.UUID, input VoteInput) error {
	if !input.Value.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "vote value must be 1 or -1")
	}
	if input.PollID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "poll id is required")
	}
	if callerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var role enums.TripRole
		if s.cfg.EnforceVoteMembership {
			member, err := requireMembership(ctx, s.members.WithTx(tx), tripID, callerID)
			if err != nil {
				return err
			}
			role = member.Role
		}
		pollsRepo := s.polls.WithTx(tx)
		if _, err := pollsRepo.FindInTrip(ctx, tripID, input.PollID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "poll not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load poll")
		}
		if err := pollsRepo.UpsertVote(ctx, input.PollID, callerID, input.Value); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record vote")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventVoteCast,
			AggregateType: enums.AggregatePoll,
			AggregateID:   input.PollID,
			Actor:         actor(callerID, tripID, role),
			Data: payloads.VoteCastEvent{
				TripID:    tripID,
				PollID:    input.PollID,
				UserID:    callerID,
				VoteValue: input.Value,
			},
		})
	})
	return asServiceError(err, "vote")
}

// DeletePoll is open to the poll's proposer and the trip leader.
func (s *service) DeletePoll(ctx context.Context, tripID, callerID, pollID uuid.UUID) error {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		member, err := requireMembership(ctx, s.members.WithTx(tx), tripID, callerID)
		if err != nil {
			return err
		}
		pollsRepo := s.polls.WithTx(tx)
		poll, err := pollsRepo.FindInTrip(ctx, tripID, pollID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "poll not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load poll")
		}
		if poll.CreatedBy != callerID && !member.IsLeader() {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the proposer or the trip leader can delete this poll")
		}
		if _, err := pollsRepo.DeleteVotesForPoll(ctx, pollID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete votes")
		}
		if _, err := pollsRepo.DeletePoll(ctx, pollID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete poll")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPollDeleted,
			AggregateType: enums.AggregatePoll,
			AggregateID:   pollID,
			Actor:         actor(callerID, tripID, member.Role),
			Data: payloads.PollDeletedEvent{
				TripID:    tripID,
				PollID:    pollID,
				DeletedBy: callerID,
			},
		})
	})
	return asServiceError(err, "delete poll")
}

// RemoveMember drops the target's votes on this trip's polls along with the
// membership. The leader has to delete the trip instead of removing themself.
func (s *service) RemoveMember(ctx context.Context, tripID, callerID, targetUserID uuid.UUID) error {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		members := s.members.WithTx(tx)
		if _, err := requireLeader(ctx, members, tripID, callerID); err != nil {
			return err
		}
		if targetUserID == callerID {
			return pkgerrors.New(pkgerrors.CodeValidation, "leader cannot remove themself; delete the trip instead")
		}
		if _, err := members.Get(ctx, tripID, targetUserID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "member not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load member")
		}
		votes, err := s.polls.WithTx(tx).DeleteUserVotesInTrip(ctx, tripID, targetUserID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete member votes")
		}
		if _, err := members.Delete(ctx, tripID, targetUserID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete membership")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventMemberRemoved,
			AggregateType: enums.AggregateTrip,
			AggregateID:   tripID,
			Actor:         actor(callerID, tripID, enums.TripRoleLeader),
			Data: payloads.MemberRemovedEvent{
				TripID:       tripID,
				UserID:       targetUserID,
				RemovedBy:    callerID,
				VotesRemoved: votes,
			},
		})
	})
	return asServiceError(err, "remove member")
}

// requireUnlocked resolves the caller's membership and rejects locked trips.
func (s *service) requireUnlocked(ctx context.Context, tx *gorm.DB, tripID, callerID uuid.UUID) (*models.TripMember, error) {
	member, err := requireMembership(ctx, s.members.WithTx(tx), tripID, callerID)
	if err != nil {
		return nil, err
	}
	trip, err := loadTrip(ctx, s.trips.WithTx(tx), tripID)
	if err != nil {
		return nil, err
	}
	if trip.IsLocked() {
		return nil, pkgerrors.New(pkgerrors.CodeTripConflict, "trip locked")
	}
	return member, nil
}

func requireMembership(ctx context.Context, members memberships.Repository, tripID, userID uuid.UUID) (*models.TripMember, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	member, err := members.Get(ctx, tripID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not a member of this trip")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load membership")
	}
	return member, nil
}

func requireLeader(ctx context.Context, members memberships.Repository, tripID, userID uuid.UUID) (*models.TripMember, error) {
	member, err := requireMembership(ctx, members, tripID, userID)
	if err != nil {
		return nil, err
	}
	if !member.IsLeader() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the trip leader can do this")
	}
	return member, nil
}

func loadTrip(ctx context.Context, repo Repository, tripID uuid.UUID) (*models.Trip, error) {
	trip, err := repo.FindByID(ctx, tripID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "trip not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load trip")
	}
	return trip, nil
}

func validateDates(start, end string) (string, string, error) {
	start = strings.TrimSpace(start)
	end = strings.TrimSpace(end)
	var startAt, endAt time.Time
	var err error
	if start != "" {
		if startAt, err = time.Parse(dateLayout, start); err != nil {
			return "", "", pkgerrors.New(pkgerrors.CodeValidation, "startDate must be YYYY-MM-DD")
		}
	}
	if end != "" {
		if endAt, err = time.Parse(dateLayout, end); err != nil {
			return "", "", pkgerrors.New(pkgerrors.CodeValidation, "endDate must be YYYY-MM-DD")
		}
	}
	if !startAt.IsZero() && !endAt.IsZero() && endAt.Before(startAt) {
		return "", "", pkgerrors.New(pkgerrors.CodeValidation, "endDate must not be before startDate")
	}
	return start, end, nil
}

func isInviteCodeCollision(err error) bool {
	return db.IsUniqueViolation(err, "ux_trips_invite_code") || db.IsUniqueViolation(err, "trips.invite_code")
}

func actor(userID, tripID uuid.UUID, role enums.TripRole) *outbox.ActorRef {
	id := tripID
	return &outbox.ActorRef{UserID: userID, TripID: &id, Role: string(role)}
}

// asServiceError keeps typed errors and wraps anything else as internal.
func asServiceError(err error, message string) error {
	if err == nil {
		return nil
	}
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, message)
}
