package model

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrInvalidAmount is returned when a monetary amount cannot be parsed or is out of range.
var ErrInvalidAmount = errors.New("invalid amount")

// MinorUnits is the number of minor units in one major unit.
const MinorUnits = 100

// Amount is a monetary value in minor units (hundredths).
type Amount int64

// FromMajor converts a whole number of major units to an Amount.
func FromMajor(major int64) Amount {
	return Amount(major * MinorUnits)
}

// ParseAmount parses a decimal string such as "12", "12.5" or "-0.05".
// At most two fractional digits are accepted.
func ParseAmount(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}

	negative := false
	switch s[0] {
	case '-':
		negative = true
		s = s[1:]
	case '+':
		s = s[1:]
	}

	whole, frac, hasDot := strings.Cut(s, ".")
	if whole == "" && (!hasDot || frac == "") {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if hasDot && (frac == "" || len(frac) > 2) {
		return 0, fmt.Errorf("%w: %q has too many decimal places", ErrInvalidAmount, s)
	}
	if !digitsOnly(whole) || !digitsOnly(frac) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}

	var major int64
	if whole != "" {
		v, err := strconv.ParseInt(whole, 10, 64)
		if err != nil || v > math.MaxInt64/MinorUnits-1 {
			return 0, fmt.Errorf("%w: %q out of range", ErrInvalidAmount, s)
		}
		major = v
	}

	var minor int64
	if frac != "" {
		if len(frac) == 1 {
			frac += "0"
		}
		v, _ := strconv.ParseInt(frac, 10, 64)
		minor = v
	}

	total := major*MinorUnits + minor
	if negative {
		total = -total
	}
	return Amount(total), nil
}

func digitsOnly(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// String renders the amount with exactly two decimal places.
func (a Amount) String() string {
	v := int64(a)
	sign := ""
	if v < 0 {
		sign = "-"
	}
	u := uint64(v)
	if v < 0 {
		u = uint64(-(v + 1)) + 1
	}
	return fmt.Sprintf("%s%d.%02d", sign, u/MinorUnits, u%MinorUnits)
}

// Format renders the amount prefixed with a currency symbol, e.g. "$12.50".
func (a Amount) Format(symbol string) string {
	if a < 0 {
		return "-" + symbol + (-a).String()
	}
	return symbol + a.String()
}

// Add returns a+b, reporting false if the sum overflows.
func (a Amount) Add(b Amount) (Amount, bool) {
	sum := a + b
	if (b > 0 && sum < a) || (b < 0 && sum > a) {
		return 0, false
	}
	return sum, true
}
