// Package money implements fixed-point currency amounts as integer counts
// of minor units (cents). All arithmetic stays on integers; binary floats
// never touch an amount, so splits and sums are exact.
package money

import (
	"bytes"
	"fmt"
	"math"
	"math/bits"
	"strconv"
	"strings"

	"github.com/splitfair/splitfair/internal/apperr"
)

// Scale is the number of decimal places carried by every amount.
const Scale = 2

const unitsPerMajor = 100 // 10^Scale

// Money is an amount in minor units at Scale decimal places.
// Money(1234) renders as "12.34".
type Money int64

// FromMinorUnits wraps a raw minor-unit count.
func FromMinorUnits(v int64) Money { return Money(v) }

// FromDecimal parses a decimal string such as "12.34" or "7". It rejects
// negative values and values with more than Scale fractional digits.
func FromDecimal(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, apperr.Validation("amount is required")
	}
	if strings.HasPrefix(s, "-") {
		return 0, apperr.Validation("amount must not be negative")
	}
	intPart, fracPart, _ := strings.Cut(s, ".")
	if intPart == "" {
		intPart = "0"
	}
	if len(fracPart) > Scale {
		return 0, apperr.Newf(apperr.KindValidation, "amount %q has more than %d decimal places", s, Scale)
	}
	major, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, apperr.Newf(apperr.KindValidation, "invalid amount %q", s)
	}
	var minor int64
	if fracPart != "" {
		minor, err = strconv.ParseInt(fracPart, 10, 64)
		if err != nil || minor < 0 {
			return 0, apperr.Newf(apperr.KindValidation, "invalid amount %q", s)
		}
		for i := len(fracPart); i < Scale; i++ {
			minor *= 10
		}
	}
	if major > (1<<62)/unitsPerMajor {
		return 0, apperr.Newf(apperr.KindValidation, "amount %q out of range", s)
	}
	return Money(major*unitsPerMajor + minor), nil
}

// MinorUnits returns the raw minor-unit count.
func (m Money) MinorUnits() int64 { return int64(m) }

func (m Money) Add(o Money) Money { return m + o }
func (m Money) Sub(o Money) Money { return m - o }

// MulRat multiplies m by num/den, rounding half-up to the nearest minor
// unit (negatives round half away from zero). This is the single rounding
// policy used everywhere; den must be positive. The product is carried in
// 128 bits, so the only failure is a result that does not fit in Money.
func (m Money) MulRat(num, den int64) (Money, error) {
	if den <= 0 {
		panic(fmt.Sprintf("money: non-positive denominator %d", den))
	}
	neg := false
	a := uint64(m)
	if m < 0 {
		neg = true
		a = -uint64(m) // two's complement magnitude, exact even for MinInt64
	}
	b := uint64(num)
	if num < 0 {
		neg = !neg
		b = -uint64(num)
	}

	hi, lo := bits.Mul64(a, b)
	lo, carry := bits.Add64(lo, uint64(den)/2, 0)
	hi += carry
	if hi >= uint64(den) {
		return 0, apperr.Newf(apperr.KindValidation, "amount %s out of range", m)
	}
	q, _ := bits.Div64(hi, lo, uint64(den))
	if q > math.MaxInt64 {
		return 0, apperr.Newf(apperr.KindValidation, "amount %s out of range", m)
	}
	if neg {
		return Money(-int64(q)), nil
	}
	return Money(int64(q)), nil
}

func (m Money) IsZero() bool     { return m == 0 }
func (m Money) IsNegative() bool { return m < 0 }

// Cmp returns -1, 0, or +1 comparing m to o.
func (m Money) Cmp(o Money) int {
	switch {
	case m < o:
		return -1
	case m > o:
		return 1
	default:
		return 0
	}
}

// String renders the amount as a decimal with exactly Scale places.
func (m Money) String() string {
	v := int64(m)
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/unitsPerMajor, v%unitsPerMajor)
}

// MarshalJSON encodes the amount as a decimal string, e.g. "12.34".
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

// UnmarshalJSON accepts either a decimal string ("12.34") or a bare JSON
// number literal (12.34). Number literals are parsed from their textual
// form, never through a float.
func (m *Money) UnmarshalJSON(data []byte) error {
	s := string(bytes.Trim(bytes.TrimSpace(data), `"`))
	if s == "null" {
		return nil
	}
	v, err := FromDecimal(s)
	if err != nil {
		return err
	}
	*m = v
	return nil
}
