package units

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromUnit(t *testing.T) {
	// Lamports to SOL at precision 9
	got := FromUnit(1_500_000_000, 9)
	assert.Equal(t, "1.5", got.String())

	// Trailing zeros implied by the source data are preserved on formatting
	// with a fixed exponent.
	got = FromUnit(220_000_001_134, 8)
	assert.Equal(t, "2200.00001134", got.String())

	// Zero precision is a no-op division.
	got = FromUnit(42, 0)
	assert.True(t, got.Equal(decimal.NewFromInt(42)))
}

func TestFromUnitString(t *testing.T) {
	// Act: SPL token amounts arrive as integer strings.
	got, err := FromUnitString("60", 6)
	require.NoError(t, err)
	assert.Equal(t, "0.00006", got.String())

	// Values beyond 64-bit range must convert without loss.
	got, err = FromUnitString("340282366920938463463374607431768211455", 18)
	require.NoError(t, err)
	assert.Equal(t, "340282366920938463463.374607431768211455", got.String())

	// Non-integer input is an InvalidAmount error, never a silent zero.
	_, err = FromUnitString("12.5", 6)
	require.ErrorIs(t, err, ErrInvalidAmount)

	_, err = FromUnitString("", 6)
	require.ErrorIs(t, err, ErrInvalidAmount)

	_, err = FromUnitString("abc", 6)
	require.ErrorIs(t, err, ErrInvalidAmount)
}

func TestToUnitRoundTrip(t *testing.T) {
	// to_unit(from_unit(r, p), p) == r for a spread of raw values and
	// precisions.
	cases := []struct {
		raw       int64
		precision int32
	}{
		{0, 0},
		{1, 9},
		{1134, 8},
		{220_000_001_134, 8},
		{1_000_000_000_000_000_000, 18},
	}
	for _, tc := range cases {
		v := FromUnit(tc.raw, tc.precision)
		back, err := ToUnit(v, tc.precision)
		require.NoError(t, err)
		assert.Equal(t, big.NewInt(tc.raw), back, "raw=%d precision=%d", tc.raw, tc.precision)
	}
}

func TestToUnitRejectsSubPrecisionAmounts(t *testing.T) {
	v := decimal.RequireFromString("0.0000000001")
	_, err := ToUnit(v, 8)
	require.ErrorIs(t, err, ErrInvalidAmount)
}

func TestFromUnitBig(t *testing.T) {
	wei, ok := new(big.Int).SetString("1000000000000000001", 10)
	require.True(t, ok)

	got := FromUnitBig(wei, 18)
	assert.Equal(t, "1.000000000000000001", got.String())

	assert.True(t, FromUnitBig(nil, 18).IsZero())
}
