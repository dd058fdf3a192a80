// Package money holds an exact fixed-point amount of whole units and cents.
package money

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

const centsPerUnit = 100

// Amounts are bounded so that the whole value fits in int64 cents.
const (
	MaxUnits int64 = (math.MaxInt64 - (centsPerUnit - 1)) / centsPerUnit
	MaxCents int64 = MaxUnits*centsPerUnit + centsPerUnit - 1
)

// Money is units + cents/100. The zero value is 0.00 and doubles as the
// "not found" result of catalog lookups.
type Money struct {
	units int64
	cents int64
}

var Zero = Money{}

// New panics if cents is outside [0, 99] or |units| exceeds MaxUnits.
func New(units int64, cents int) Money {
	if cents < 0 || cents >= centsPerUnit {
		panic(fmt.Sprintf("money: cents out of range: %d", cents))
	}
	if units > MaxUnits || units < -MaxUnits {
		panic(fmt.Sprintf("money: units out of range: %d", units))
	}
	return Money{units: units, cents: int64(cents)}
}

// FromCents splits a sub-unit count, truncating toward zero. Counts beyond
// ±MaxCents saturate.
func FromCents(c int64) Money {
	c = clamp(c)
	return Money{units: c / centsPerUnit, cents: c % centsPerUnit}
}

func clamp(c int64) int64 {
	switch {
	case c > MaxCents:
		return MaxCents
	case c < -MaxCents:
		return -MaxCents
	}
	return c
}

// Parse accepts "D" or "D.C" where C has one or two digits. The digits of C
// are taken as an integer cent count, so "3.5" is 3 units and 5 cents.
func Parse(s string) (Money, error) {
	whole, frac, hasFrac := strings.Cut(s, ".")
	if whole == "" {
		return Money{}, &ParseError{Literal: s, Reason: "missing whole part"}
	}

	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return Money{}, &ParseError{Literal: s, Reason: "invalid whole part"}
	}
	if units > MaxUnits || units < -MaxUnits {
		return Money{}, &ParseError{Literal: s, Reason: "whole part out of range"}
	}
	if !hasFrac {
		return Money{units: units}, nil
	}

	if len(frac) < 1 || len(frac) > 2 || !allDigits(frac) {
		return Money{}, &ParseError{Literal: s, Reason: "cents must be 1 or 2 digits"}
	}
	cents, _ := strconv.ParseInt(frac, 10, 64)

	if strings.HasPrefix(whole, "-") {
		return Money{units: units, cents: -cents}, nil
	}
	return Money{units: units, cents: cents}, nil
}

func MustParse(s string) Money {
	m, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return m
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func (m Money) Units() int64 { return m.units }

func (m Money) SubUnits() int { return int(m.cents) }

// Cents is the whole amount expressed in sub-units.
func (m Money) Cents() int64 { return m.units*centsPerUnit + m.cents }

func (m Money) IsZero() bool { return m.units == 0 && m.cents == 0 }

func (m Money) Cmp(o Money) int {
	if c := cmpInt(m.units, o.units); c != 0 {
		return c
	}
	return cmpInt(m.cents, o.cents)
}

func cmpInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func (m Money) Less(o Money) bool { return m.Cmp(o) < 0 }

// Add saturates at ±MaxCents.
func (m Money) Add(o Money) Money {
	a, b := m.Cents(), o.Cents()
	switch {
	case b > 0 && a > MaxCents-b:
		return FromCents(MaxCents)
	case b < 0 && a < -MaxCents-b:
		return FromCents(-MaxCents)
	}
	return FromCents(a + b)
}

var (
	maxDecimal = decimal.NewFromInt(MaxCents)
	minDecimal = decimal.NewFromInt(-MaxCents)
)

// Increase returns the raise of m by ratePercent, truncated toward zero at the
// cent boundary and saturated at ±MaxCents. A NaN or infinite rate raises
// nothing.
func (m Money) Increase(ratePercent float64) Money {
	if math.IsNaN(ratePercent) || math.IsInf(ratePercent, 0) {
		return Zero
	}
	inc := decimal.NewFromInt(m.Cents()).
		Mul(decimal.NewFromFloat(ratePercent)).
		Shift(-2).
		Truncate(0)
	switch {
	case inc.GreaterThan(maxDecimal):
		inc = maxDecimal
	case inc.LessThan(minDecimal):
		inc = minDecimal
	}
	return FromCents(inc.IntPart())
}

func (m Money) String() string {
	c := m.cents
	sign := ""
	if c < 0 {
		c = -c
		if m.units == 0 {
			sign = "-"
		}
	}
	return fmt.Sprintf("%s%d.%02d", sign, m.units, c)
}

func (m Money) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

func (m *Money) UnmarshalText(b []byte) error {
	v, err := Parse(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// MarshalJSON renders a string so that "10.05" survives JSON round trips.
func (m Money) MarshalJSON() ([]byte, error) { return json.Marshal(m.String()) }

// UnmarshalJSON accepts a string literal or a bare JSON number.
func (m *Money) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return &ParseError{Literal: string(b), Reason: "not a string or number"}
		}
		s = n.String()
	}
	return m.UnmarshalText([]byte(s))
}
