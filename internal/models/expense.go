package models

import (
	"time"

	"github.com/splitfair/splitfair/internal/money"
	"github.com/splitfair/splitfair/internal/split"
)

// Expense is one shared cost inside a group. Its splits always sum to
// Amount; that invariant is enforced at creation and on every edit that
// touches the amount or strategy.
type Expense struct {
	ID          string      `json:"id"`
	GroupID     string      `json:"group_id"`
	Description string      `json:"description"`
	Amount      money.Money `json:"amount"`
	PaidBy      string      `json:"paid_by"`
	SplitType   split.Type  `json:"split_type"`
	CreatedBy   string      `json:"created_by"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// Split is one participant's owed portion of an expense. Amount and
// Position are fixed at creation; only the settlement fields ever change.
// Position is the zero-based request order, which decides who carries
// rounding remainders and keeps listings stable.
type Split struct {
	ID        string      `json:"id"`
	ExpenseID string      `json:"expense_id"`
	UserID    string      `json:"user_id"`
	Amount    money.Money `json:"amount"`
	Position  int         `json:"position"`
	IsSettled bool        `json:"is_settled"`
	SettledAt *time.Time  `json:"settled_at,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

type ExpenseWithSplits struct {
	Expense
	Splits []Split `json:"splits"`
}
