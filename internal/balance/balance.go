// Package balance derives per-user net balances from a set of expenses and
// their splits. The computation is pure; scoping to a group or a user is a
// filter on the input set, applied by the caller.
package balance

import (
	"sort"

	"github.com/splitfair/splitfair/internal/models"
)

// Compute aggregates paid and owed totals per user. For each expense the
// payer's paid total grows by the expense amount, and every split owner's
// owed total grows by their share, the payer's own share included. Over a
// closed set of expenses the nets sum to zero.
func Compute(expenses []models.ExpenseWithSplits) map[string]models.Balance {
	balances := make(map[string]models.Balance)

	for _, e := range expenses {
		payer := balances[e.PaidBy]
		payer.UserID = e.PaidBy
		payer.TotalPaid = payer.TotalPaid.Add(e.Amount)
		balances[e.PaidBy] = payer

		for _, s := range e.Splits {
			b := balances[s.UserID]
			b.UserID = s.UserID
			b.TotalOwed = b.TotalOwed.Add(s.Amount)
			balances[s.UserID] = b
		}
	}

	for id, b := range balances {
		b.Net = b.TotalPaid.Sub(b.TotalOwed)
		balances[id] = b
	}
	return balances
}

// Sorted flattens a balance map into a slice ordered by user id, for
// stable JSON responses.
func Sorted(balances map[string]models.Balance) []models.Balance {
	out := make([]models.Balance, 0, len(balances))
	for _, b := range balances {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}
