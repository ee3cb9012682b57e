package expenses

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/tripcrew-backend/pkg/db/models"
	"github.com/angelmondragon/tripcrew-backend/pkg/enums"
)

// Balances summarizes who paid what and who owes what on a trip.
type Balances struct {
	Total     string          `json:"total"`
	PerPerson []MemberBalance `json:"perPerson"`
}

// MemberBalance is one person's position. A positive Net means the others
// owe this person.
type MemberBalance struct {
	UserID uuid.UUID `json:"userId"`
	Paid   string    `json:"paid"`
	Share  string    `json:"share"`
	Net    string    `json:"net"`
}

type position struct {
	paid  int64
	share int64
}

// ComputeBalances splits every equal expense across members in cents. The
// leftover cents go one each to members in join order. Individual expenses
// are carried by their payer alone. Payers who are no longer members are
// listed after the members so the nets still sum to zero.
func ComputeBalances(memberIDs []uuid.UUID, ledger []models.TripExpense) Balances {
	order := append([]uuid.UUID(nil), memberIDs...)
	positions := make(map[uuid.UUID]*position, len(order))
	for _, id := range order {
		positions[id] = &position{}
	}
	lookup := func(id uuid.UUID) *position {
		p, ok := positions[id]
		if !ok {
			p = &position{}
			positions[id] = p
			order = append(order, id)
		}
		return p
	}

	var total int64
	for _, expense := range ledger {
		cents := toCents(expense.Amount)
		total += cents
		lookup(expense.PaidBy).paid += cents

		if expense.SplitType == enums.SplitTypeIndividual || len(memberIDs) == 0 {
			lookup(expense.PaidBy).share += cents
			continue
		}
		each := cents / int64(len(memberIDs))
		remainder := cents % int64(len(memberIDs))
		for i, id := range memberIDs {
			portion := each
			if int64(i) < remainder {
				portion++
			}
			positions[id].share += portion
		}
	}

	out := Balances{
		Total:     fromCents(total),
		PerPerson: make([]MemberBalance, 0, len(order)),
	}
	for _, id := range order {
		p := positions[id]
		out.PerPerson = append(out.PerPerson, MemberBalance{
			UserID: id,
			Paid:   fromCents(p.paid),
			Share:  fromCents(p.share),
			Net:    fromCents(p.paid - p.share),
		})
	}
	return out
}

func toCents(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

func fromCents(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}
