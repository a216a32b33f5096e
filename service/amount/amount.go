// Package amount converts between human decimal amounts and raw integer
// token units at a mint's declared precision.
package amount

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrInvalidAmount is returned for negative, non-finite, malformed or
// out-of-range amounts.
var ErrInvalidAmount = errors.New("invalid amount")

// NativeDecimals is the precision of SOL (1 SOL = 10^9 lamports).
const NativeDecimals uint8 = 9

var maxRaw = decimal.NewFromUint64(math.MaxUint64)

// maxRawDigits is the digit count of math.MaxUint64.
const maxRawDigits = 20

// Parse reads a user supplied decimal amount.
// decimal.Decimal cannot represent NaN or infinities, so they are rejected here.
func Parse(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}
	switch strings.ToLower(strings.TrimLeft(s, "+-")) {
	case "nan", "inf", "infinity":
		return decimal.Zero, fmt.Errorf("%w: %q is not finite", ErrInvalidAmount, s)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q: %v", ErrInvalidAmount, s, err)
	}
	return d, nil
}

// ToRaw multiplies amount by 10^decimals and truncates toward zero.
// Excess fractional digits are dropped, never rounded up.
func ToRaw(decimals uint8, amount decimal.Decimal) (uint64, error) {
	if amount.IsNegative() {
		return 0, fmt.Errorf("%w: %s is negative", ErrInvalidAmount, compact(amount))
	}
	if amount.IsZero() {
		return 0, nil
	}

	// Count the integer digits of the shifted value before shifting, so huge
	// exponents never reach Shift or Truncate.
	digits := int64(amount.NumDigits()) + int64(amount.Exponent()) + int64(decimals)
	switch {
	case digits > maxRawDigits:
		return 0, rangeError(amount, decimals)
	case digits <= 0:
		return 0, nil
	}

	raw := amount.Shift(int32(decimals)).Truncate(0)
	if raw.GreaterThan(maxRaw) {
		return 0, rangeError(amount, decimals)
	}
	return raw.BigInt().Uint64(), nil
}

func rangeError(amount decimal.Decimal, decimals uint8) error {
	return fmt.Errorf("%w: %s exceeds the range of a %d-decimal token", ErrInvalidAmount, compact(amount), decimals)
}

// compact renders amounts with large exponents in scientific form.
func compact(d decimal.Decimal) string {
	if exp := d.Exponent(); exp > 30 || exp < -30 {
		return fmt.Sprintf("%se%d", d.Coefficient(), exp)
	}
	return d.String()
}

// FromRaw is the inverse of ToRaw, used for display.
func FromRaw(decimals uint8, raw uint64) decimal.Decimal {
	return decimal.NewFromUint64(raw).Shift(-int32(decimals))
}
