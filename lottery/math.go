package lottery

import (
	"github.com/xraph/settlement/types"
)

const (
	// BasisPoints is 100% in basis points.
	BasisPoints = 10_000

	MaxHouseEdgeBps      = 1_000
	MaxPoolReserveBps    = 5_000
	MaxWinPctBps         = 1_000
	MaxWinProbabilityBps = 9_500
)

// AvailablePool returns balance * (10000 - reserve) / 10000. The product
// saturates instead of wrapping.
func AvailablePool(totalBalance uint64, minReserveBps uint16) uint64 {
	if minReserveBps >= BasisPoints {
		return 0
	}
	return types.SaturatingMul(totalBalance, uint64(BasisPoints-uint64(minReserveBps))) / BasisPoints
}

// MaxWin returns available * maxWinPct / 10000, saturating.
func MaxWin(available uint64, maxWinPctBps uint16) uint64 {
	return types.SaturatingMul(available, uint64(maxWinPctBps)) / BasisPoints
}

// WinProbability returns the chance, in basis points, that a premium wins an
// invoice of the given amount:
//
//	effective = amount * (10000 + houseEdge) / 10000
//	prob      = min(9500, premium * 10000 / effective)
//
// Intermediates are 256-bit. A zero effective amount yields zero.
func WinProbability(amount, premium uint64, houseEdgeBps uint16) uint16 {
	effective := types.Wide(amount)
	effective.Mul(effective, types.Wide(BasisPoints+uint64(houseEdgeBps)))
	effective.Div(effective, types.Wide(BasisPoints))
	if effective.IsZero() {
		return 0
	}

	prob := types.Wide(premium)
	prob.Mul(prob, types.Wide(BasisPoints))
	prob.Div(prob, effective)

	if prob.GtUint64(MaxWinProbabilityBps) {
		return MaxWinProbabilityBps
	}
	return uint16(prob.Uint64())
}

// Draw reduces a random value to [0, 10000) using its first two bytes read
// little-endian.
func Draw(random [32]byte) uint16 {
	v := uint16(random[0]) | uint16(random[1])<<8
	return v % BasisPoints
}

// Wins reports whether random beats a probability in basis points.
func Wins(random [32]byte, probabilityBps uint16) bool {
	return Draw(random) < probabilityBps
}
