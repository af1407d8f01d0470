// Package money provides the exact decimal amount type used for every value that
// affects money owed. Amounts are never stored or computed as binary floating point.
package money

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// Storage precision of amount columns: NUMERIC(20,8).
const (
	// MaxScale is the maximum number of fractional digits an amount may carry.
	MaxScale = 8

	// MaxIntegerDigits is the maximum number of digits left of the decimal point.
	MaxIntegerDigits = 12
)

// ErrInvalidAmount is returned when a value cannot be represented exactly as an amount.
var ErrInvalidAmount = errors.New("money: invalid amount")

// Amount is an exact base-10 monetary value.
// The zero value is a valid amount of 0.
type Amount struct {
	d decimal.Decimal
}

// Zero returns an amount of 0.
func Zero() Amount {
	return Amount{}
}

// FromFloat converts a boundary float64 into an amount.
//
// The shortest decimal rendering of f is used, so 19.99 becomes exactly 19.99 rather
// than its binary expansion. Non-finite, negative, and out-of-precision values fail
// with ErrInvalidAmount.
func FromFloat(f float64) (Amount, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Amount{}, fmt.Errorf("%w: non-finite value", ErrInvalidAmount)
	}
	return fromDecimal(decimal.NewFromFloat(f))
}

// Parse converts a decimal string such as "19.99" into an amount.
func Parse(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return fromDecimal(d)
}

// ParseNumber converts a JSON number literal into an amount without passing
// through float64.
func ParseNumber(n json.Number) (Amount, error) {
	if n == "" {
		return Amount{}, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}
	return Parse(n.String())
}

// MustParse is like Parse but panics on error. Intended for constants and tests.
func MustParse(s string) Amount {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

func fromDecimal(d decimal.Decimal) (Amount, error) {
	if d.IsNegative() {
		return Amount{}, fmt.Errorf("%w: negative value %s", ErrInvalidAmount, d.String())
	}
	if scale := fractionalDigits(d); scale > MaxScale {
		return Amount{}, fmt.Errorf("%w: %d fractional digits (max %d)", ErrInvalidAmount, scale, MaxScale)
	}
	if len(d.Truncate(0).String()) > MaxIntegerDigits {
		return Amount{}, fmt.Errorf("%w: more than %d integer digits", ErrInvalidAmount, MaxIntegerDigits)
	}
	return Amount{d: d}, nil
}

// fractionalDigits returns the number of significant digits after the decimal point.
func fractionalDigits(d decimal.Decimal) int {
	exp := d.Exponent()
	if exp >= 0 {
		return 0
	}
	// 19.990 carries exponent -3 but only two significant fractional digits.
	scale := int(-exp)
	for scale > 0 && d.Equal(d.Truncate(int32(scale-1))) {
		scale--
	}
	return scale
}

// Decimal returns the underlying decimal value.
func (a Amount) Decimal() decimal.Decimal {
	return a.d
}

// Sub returns a - b. The result may be negative; callers that need a
// non-negative amount clamp it with Max.
func (a Amount) Sub(b Amount) Amount {
	return Amount{d: a.d.Sub(b.d)}
}

// Add returns a + b.
func (a Amount) Add(b Amount) Amount {
	return Amount{d: a.d.Add(b.d)}
}

// Cmp compares a and b and returns -1, 0 or +1.
func (a Amount) Cmp(b Amount) int {
	return a.d.Cmp(b.d)
}

// Equal reports whether a and b have the same value, ignoring trailing zeros.
func (a Amount) Equal(b Amount) bool {
	return a.d.Equal(b.d)
}

// Max returns the larger of a and b.
func Max(a, b Amount) Amount {
	if a.Cmp(b) >= 0 {
		return a
	}
	return b
}

// IsZero reports whether the amount is 0.
func (a Amount) IsZero() bool {
	return a.d.IsZero()
}

// IsNegative reports whether the amount is below 0.
func (a Amount) IsNegative() bool {
	return a.d.IsNegative()
}

// String renders the amount as a plain decimal string ("19.99").
func (a Amount) String() string {
	return a.d.String()
}

// MarshalJSON renders the amount as a quoted decimal string.
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.d.String())
}

// UnmarshalJSON accepts a quoted decimal string or a bare number literal,
// under the same bounds as Parse.
func (a *Amount) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}
	parsed, err := fromDecimal(d)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Scan implements sql.Scanner for NUMERIC columns.
func (a *Amount) Scan(value interface{}) error {
	if value == nil {
		a.d = decimal.Zero
		return nil
	}
	return a.d.Scan(value)
}

// Value implements driver.Valuer. Amounts are sent as decimal text so the
// database parses them exactly.
func (a Amount) Value() (driver.Value, error) {
	return a.d.String(), nil
}
