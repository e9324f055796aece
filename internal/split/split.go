// Package split computes per-participant shares of an expense total.
// Compute is pure and deterministic: the same inputs always yield the same
// shares, and the shares always sum exactly to the total.
package split

import (
	"errors"
	"fmt"

	"github.com/splitfair/splitfair/internal/money"
)

// Type identifies the split strategy for an expense.
type Type string

const (
	TypeEqual      Type = "equal"
	TypePercentage Type = "percentage"
	TypeFixed      Type = "fixed"
)

// ParseType validates a wire-level split type string.
func ParseType(s string) (Type, error) {
	switch Type(s) {
	case TypeEqual, TypePercentage, TypeFixed:
		return Type(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownType, s)
}

// Entry is one participant's input to the strategy. PercentBP is in
// hundredths of a percent (3333 = 33.33%) and is read only for percentage
// splits; Amount is read only for fixed splits.
type Entry struct {
	UserID    string
	PercentBP int64
	Amount    money.Money
}

// Share is one participant's computed owed portion.
type Share struct {
	UserID string
	Amount money.Money
}

const totalBP = 10000 // 100.00%

var (
	ErrUnknownType          = errors.New("split: unknown split type")
	ErrNoParticipants       = errors.New("split: at least one participant is required")
	ErrInvalidAmount        = errors.New("split: total must be positive")
	ErrDuplicateParticipant = errors.New("split: duplicate participant")
	ErrInvalidPercent       = errors.New("split: percentage must not be negative")
	ErrPercentSum           = errors.New("split: percentages must sum to exactly 100.00")
	ErrFixedMismatch        = errors.New("split: fixed amounts do not sum to total")
	ErrAmountTooLarge       = errors.New("split: total too large")
	ErrRoundingResidual     = errors.New("split: rounding residual cannot be distributed")
)

// Compute returns one share per entry, in entry order. Entry order is
// significant: when rounding leaves spare minor units, they go to the
// earliest entries, so the caller's ordering decides who carries the extra
// cent.
func Compute(total money.Money, typ Type, entries []Entry) ([]Share, error) {
	if len(entries) == 0 {
		return nil, ErrNoParticipants
	}
	if total.IsNegative() || total.IsZero() {
		return nil, fmt.Errorf("%w, got %s", ErrInvalidAmount, total)
	}
	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if _, dup := seen[e.UserID]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateParticipant, e.UserID)
		}
		seen[e.UserID] = struct{}{}
	}

	switch typ {
	case TypeEqual:
		return computeEqual(total, entries), nil
	case TypePercentage:
		return computePercentage(total, entries)
	case TypeFixed:
		return computeFixed(total, entries)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownType, typ)
}

func computeEqual(total money.Money, entries []Entry) []Share {
	n := int64(len(entries))
	base := total.MinorUnits() / n
	rem := total.MinorUnits() % n

	shares := make([]Share, len(entries))
	for i, e := range entries {
		amt := base
		if int64(i) < rem {
			amt++
		}
		shares[i] = Share{UserID: e.UserID, Amount: money.FromMinorUnits(amt)}
	}
	return shares
}

func computePercentage(total money.Money, entries []Entry) ([]Share, error) {
	var sumBP int64
	for _, e := range entries {
		if e.PercentBP < 0 {
			return nil, fmt.Errorf("%w: %s", ErrInvalidPercent, e.UserID)
		}
		sumBP += e.PercentBP
	}
	// Percentages are carried at two decimal places, so the 0.01 epsilon
	// means exact equality in basis points.
	if sumBP != totalBP {
		return nil, fmt.Errorf("%w, got %d.%02d", ErrPercentSum, sumBP/100, sumBP%100)
	}

	shares := make([]Share, len(entries))
	var sum money.Money
	for i, e := range entries {
		amt, err := total.MulRat(e.PercentBP, totalBP)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrAmountTooLarge, total)
		}
		shares[i] = Share{UserID: e.UserID, Amount: amt}
		sum = sum.Add(amt)
	}
	// Per-share rounding can drift at most one minor unit per entry off the
	// total; push the difference back one unit at a time, earliest entries
	// first. A pass that cannot place a unit (every share already zero)
	// means the inputs are inconsistent, so bail instead of spinning.
	diff := total.Sub(sum).MinorUnits()
	for diff != 0 {
		moved := false
		for i := range shares {
			if diff == 0 {
				break
			}
			if diff > 0 {
				shares[i].Amount = shares[i].Amount.Add(money.FromMinorUnits(1))
				diff--
				moved = true
			} else if !shares[i].Amount.IsZero() { // never drive a share negative
				shares[i].Amount = shares[i].Amount.Sub(money.FromMinorUnits(1))
				diff++
				moved = true
			}
		}
		if !moved {
			return nil, fmt.Errorf("%w: residual %d", ErrRoundingResidual, diff)
		}
	}
	return shares, nil
}

func computeFixed(total money.Money, entries []Entry) ([]Share, error) {
	var sum money.Money
	for _, e := range entries {
		if e.Amount.IsNegative() {
			return nil, fmt.Errorf("%w, got %s for %s", ErrInvalidAmount, e.Amount, e.UserID)
		}
		sum = sum.Add(e.Amount)
	}
	if sum != total {
		return nil, fmt.Errorf("%w: delta %s", ErrFixedMismatch, total.Sub(sum))
	}
	shares := make([]Share, len(entries))
	for i, e := range entries {
		shares[i] = Share{UserID: e.UserID, Amount: e.Amount}
	}
	return shares, nil
}
