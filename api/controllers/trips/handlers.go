package trips

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/tripcrew-backend/api/middleware"
	"github.com/angelmondragon/tripcrew-backend/api/responses"
	"github.com/angelmondragon/tripcrew-backend/api/validators"
	internaltrips "github.com/angelmondragon/tripcrew-backend/internal/trips"
	"github.com/angelmondragon/tripcrew-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tripcrew-backend/pkg/errors"
	"github.com/angelmondragon/tripcrew-backend/pkg/logger"
)

// Create starts a trip owned by the caller and returns its invite code.
func Create(svc internaltrips.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "trips service unavailable"))
			return
		}
		callerID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body createTripRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Create(r.Context(), callerID, internaltrips.CreateTripInput{
			Name:        body.Name,
			Destination: body.Destination,
			StartDate:   body.StartDate,
			EndDate:     body.EndDate,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// Join adds the caller to the trip behind an invite code.
func Join(svc internaltrips.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "trips service unavailable"))
			return
		}
		callerID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body joinTripRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Join(r.Context(), callerID, body.InviteCode)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// MyTrips lists every trip the caller belongs to, newest first.
func MyTrips(svc internaltrips.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "trips service unavailable"))
			return
		}
		callerID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListMyTrips(r.Context(), callerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// Detail returns the consolidated trip page for a member.
func Detail(svc internaltrips.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r, tripID, callerID, ok := tripScope(w, r, svc, logg)
		if !ok {
			return
		}

		view, err := svc.GetTripView(r.Context(), tripID, callerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// Lock freezes expenses and polls on the trip. Leader only.
func Lock(svc internaltrips.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r, tripID, callerID, ok := tripScope(w, r, svc, logg)
		if !ok {
			return
		}

		if err := svc.Lock(r.Context(), tripID, callerID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, statusResponse{Status: enums.TripStatusLocked})
	}
}

// Unlock returns the trip to planning. Leader only.
func Unlock(svc internaltrips.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r, tripID, callerID, ok := tripScope(w, r, svc, logg)
		if !ok {
			return
		}

		if err := svc.Unlock(r.Context(), tripID, callerID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, statusResponse{Status: enums.TripStatusPlanning})
	}
}

// Delete removes the trip and everything attached to it. Leader only.
func Delete(svc internaltrips.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r, tripID, callerID, ok := tripScope(w, r, svc, logg)
		if !ok {
			return
		}

		if err := svc.Delete(r.Context(), tripID, callerID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"deleted": true})
	}
}

// AddExpense appends a ledger entry paid by the caller.
func AddExpense(svc internaltrips.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r, tripID, callerID, ok := tripScope(w, r, svc, logg)
		if !ok {
			return
		}

		var body addExpenseRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		expense, err := svc.AddExpense(r.Context(), tripID, callerID, internaltrips.AddExpenseInput{
			Amount:      *body.Amount,
			Description: body.Description,
			SplitType:   body.SplitType,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, expense)
	}
}

// Balances reports what each member paid, owes and is owed.
func Balances(svc internaltrips.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r, tripID, callerID, ok := tripScope(w, r, svc, logg)
		if !ok {
			return
		}

		balances, err := svc.Balances(r.Context(), tripID, callerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, balances)
	}
}

// CreatePoll proposes a place or activity for the group to vote on.
func CreatePoll(svc internaltrips.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r, tripID, callerID, ok := tripScope(w, r, svc, logg)
		if !ok {
			return
		}

		var body createPollRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		poll, err := svc.CreatePoll(r.Context(), tripID, callerID, body.Title)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, poll)
	}
}

// Vote records or overwrites the caller's vote on a poll.
func Vote(svc internaltrips.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r, tripID, callerID, ok := tripScope(w, r, svc, logg)
		if !ok {
			return
		}

		var body voteRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		value, err := body.value()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		pollID, err := uuid.Parse(body.PollID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid poll id"))
			return
		}

		if err := svc.Vote(r.Context(), tripID, callerID, internaltrips.VoteInput{PollID: pollID, Value: value}); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, voteResponse{PollID: pollID.String(), VoteValue: value})
	}
}

// DeletePoll removes a poll and its votes. Proposer or leader only.
func DeletePoll(svc internaltrips.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r, tripID, callerID, ok := tripScope(w, r, svc, logg)
		if !ok {
			return
		}
		pollID, err := parseUUIDParam(r, "pollId", "poll id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeletePoll(r.Context(), tripID, callerID, pollID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"deleted": true})
	}
}

// RemoveMember drops another member and their votes. Leader only.
func RemoveMember(svc internaltrips.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r, tripID, callerID, ok := tripScope(w, r, svc, logg)
		if !ok {
			return
		}
		memberID, err := parseUUIDParam(r, "memberId", "member id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.RemoveMember(r.Context(), tripID, callerID, memberID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"removed": true})
	}
}

// tripScope resolves the caller and the {tripId} path param, writing the error
// response itself when either is unusable. The returned request carries the
// trip id in its log context.
func tripScope(w http.ResponseWriter, r *http.Request, svc internaltrips.Service, logg *logger.Logger) (*http.Request, uuid.UUID, uuid.UUID, bool) {
	if svc == nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "trips service unavailable"))
		return r, uuid.Nil, uuid.Nil, false
	}
	caller, err := callerID(r)
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return r, uuid.Nil, uuid.Nil, false
	}
	tripID, err := parseUUIDParam(r, "tripId", "trip id")
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return r, uuid.Nil, uuid.Nil, false
	}
	if logg != nil {
		r = r.WithContext(logg.WithTripID(r.Context(), tripID.String()))
	}
	return r, tripID, caller, true
}

func callerID(r *http.Request) (uuid.UUID, error) {
	id, ok := middleware.UserUUIDFromContext(r.Context())
	if !ok {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing user context")
	}
	return id, nil
}

func parseUUIDParam(r *http.Request, param, label string) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, param))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, label+" is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+label)
	}
	return id, nil
}
