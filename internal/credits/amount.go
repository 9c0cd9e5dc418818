package credits

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Amount is a credit quantity expressed in thousandths of a credit.
type Amount int64

const milliPerCredit = 1000

// ErrInvalidAmount reports an unparsable or out-of-range credit value.
var ErrInvalidAmount = errors.New("invalid credit amount")

// FromCredits converts a whole-or-fractional credit value, rounding to the
// nearest milli-credit.
func FromCredits(value float64) Amount {
	return Amount(math.Round(value * milliPerCredit))
}

// Parse reads a decimal credit value such as "2", "0.5" or "1.250".
func Parse(value string) (Amount, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0, fmt.Errorf("%w: empty value", ErrInvalidAmount)
	}
	f, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, value)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, value)
	}
	if math.Abs(f) > math.MaxInt64/milliPerCredit {
		return 0, fmt.Errorf("%w: %q out of range", ErrInvalidAmount, value)
	}
	return FromCredits(f), nil
}

// Milli returns the raw milli-credit count.
func (a Amount) Milli() int64 { return int64(a) }

// Credits returns the amount as a float for display and JSON payloads.
func (a Amount) Credits() float64 {
	return float64(a) / milliPerCredit
}

// String renders the amount with up to three decimals and no trailing zeros.
func (a Amount) String() string {
	sign := ""
	v := int64(a)
	if v < 0 {
		sign = "-"
		v = -v
	}
	whole := v / milliPerCredit
	frac := v % milliPerCredit
	if frac == 0 {
		return sign + strconv.FormatInt(whole, 10)
	}
	fracStr := strings.TrimRight(fmt.Sprintf("%03d", frac), "0")
	return sign + strconv.FormatInt(whole, 10) + "." + fracStr
}

// MarshalText lets amounts appear as plain decimals in TOML and JSON keys.
func (a Amount) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText accepts decimal credit strings.
func (a *Amount) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
