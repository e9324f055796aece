package models

import "github.com/splitfair/splitfair/internal/money"

// Balance is a derived view, never persisted. Net is positive when the
// user is owed money and negative when the user owes money.
type Balance struct {
	UserID    string      `json:"user_id"`
	TotalPaid money.Money `json:"total_paid"`
	TotalOwed money.Money `json:"total_owed"`
	Net       money.Money `json:"net"`
}
