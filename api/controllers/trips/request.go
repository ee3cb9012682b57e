package trips

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/tripcrew-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tripcrew-backend/pkg/errors"
)

type createTripRequest struct {
	Name        string `json:"name" validate:"required,notblank,max=200"`
	Destination string `json:"destination" validate:"required,notblank,max=200"`
	StartDate   string `json:"startDate" validate:"omitempty,datetime=2006-01-02"`
	EndDate     string `json:"endDate" validate:"omitempty,datetime=2006-01-02"`
}

type joinTripRequest struct {
	InviteCode string `json:"inviteCode" validate:"required,notblank,max=32"`
}

type addExpenseRequest struct {
	Amount      *decimal.Decimal `json:"amount" validate:"required"`
	Description string           `json:"description" validate:"max=500"`
	SplitType   string           `json:"splitType" validate:"max=32"`
}

type createPollRequest struct {
	Title string `json:"title" validate:"required,notblank,max=200"`
}

// voteRequest keeps voteValue raw so both 1 and "1" are accepted.
type voteRequest struct {
	PollID    string          `json:"pollId" validate:"required,uuid"`
	VoteValue json.RawMessage `json:"voteValue" validate:"required"`
}

func (v voteRequest) value() (enums.VoteValue, error) {
	raw := strings.TrimSpace(string(v.VoteValue))
	raw = strings.Trim(raw, `"`)
	value, err := enums.ParseVoteValue(raw)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "vote value must be 1 or -1").
			WithDetails(map[string]string{"voteValue": "must be 1 or -1"})
	}
	return value, nil
}

type voteResponse struct {
	PollID    string          `json:"pollId"`
	VoteValue enums.VoteValue `json:"voteValue"`
}

type statusResponse struct {
	Status enums.TripStatus `json:"status"`
}
