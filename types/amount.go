package types

import (
	"errors"
	"math"
	"math/big"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// Amounts are unsigned 64-bit integers in an asset's smallest unit.
// Arithmetic on them is either checked (returns ErrOverflow) or explicitly
// saturating; nothing wraps silently.

// ErrOverflow is returned when checked arithmetic would leave the uint64 range.
var ErrOverflow = errors.New("types: arithmetic overflow")

// CheckedAdd returns a+b or ErrOverflow.
func CheckedAdd(a, b uint64) (uint64, error) {
	sum := a + b
	if sum < a {
		return 0, ErrOverflow
	}
	return sum, nil
}

// CheckedSub returns a-b or ErrOverflow when b > a.
func CheckedSub(a, b uint64) (uint64, error) {
	if b > a {
		return 0, ErrOverflow
	}
	return a - b, nil
}

// SaturatingMul returns a*b clamped to math.MaxUint64.
func SaturatingMul(a, b uint64) uint64 {
	p := Wide(a)
	p.Mul(p, Wide(b))
	if !p.IsUint64() {
		return math.MaxUint64
	}
	return p.Uint64()
}

// SaturatingSub returns a-b clamped to zero.
func SaturatingSub(a, b uint64) uint64 {
	if b > a {
		return 0
	}
	return a - b
}

// Wide lifts a uint64 into a 256-bit integer for overflow-free
// multiply-before-divide.
func Wide(v uint64) *uint256.Int {
	return uint256.NewInt(v)
}

// FormatUnits renders a base-unit amount as a fixed-point decimal string
// with the given number of decimals, e.g. FormatUnits(12345, 2) = "123.45".
func FormatUnits(amount uint64, decimals int32) string {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(amount), -decimals).StringFixed(decimals)
}
