package units

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// ErrInvalidAmount indicates a raw on-chain amount that could not be
// interpreted as an integer. Amount conversion is financial-critical, so
// callers must surface this error rather than substitute a zero value.
var ErrInvalidAmount = errors.New("invalid amount")

// FromUnit converts an integer raw on-chain amount (lamports, satoshis,
// wei, token base units) into the human decimal amount at the given
// precision. The division is exact; no floating point is involved.
func FromUnit(raw int64, precision int32) decimal.Decimal {
	return decimal.New(raw, -precision)
}

// FromUnitBig is FromUnit for amounts that may exceed the int64 range
// (wei amounts on EVM chains routinely do). A nil raw amount converts to
// zero; callers parse the raw quantity first and surface that failure.
func FromUnitBig(raw *big.Int, precision int32) decimal.Decimal {
	if raw == nil {
		return decimal.Decimal{}
	}
	return decimal.NewFromBigInt(raw, -precision)
}

// FromUnitString parses a provider-reported integer string (e.g. an SPL
// token amount, which the RPC returns as a decimal string) and converts it
// at the given precision. Non-integer input fails with ErrInvalidAmount.
func FromUnitString(raw string, precision int32) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Decimal{}, fmt.Errorf("%w: empty raw amount", ErrInvalidAmount)
	}
	n, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("%w: %q is not an integer", ErrInvalidAmount, raw)
	}
	return decimal.NewFromBigInt(n, -precision), nil
}

// ToUnit converts a human decimal amount back to the raw integer amount at
// the given precision. It is the exact inverse of FromUnit; an amount with
// more fractional digits than the precision allows fails with
// ErrInvalidAmount instead of being rounded.
func ToUnit(v decimal.Decimal, precision int32) (*big.Int, error) {
	shifted := v.Shift(precision)
	if !shifted.IsInteger() {
		return nil, fmt.Errorf("%w: %s has more than %d fractional digits", ErrInvalidAmount, v.String(), precision)
	}
	return shifted.BigInt(), nil
}
