package hubmath

import (
	"math/big"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

const (
	// MaxTiers is the number of tiers a pool can hold.
	MaxTiers = 6
	// distributionBits is the width of one tier's slice in a packed amount distribution.
	distributionBits = 256 / MaxTiers
)

var (
	// BaseLiquidity is the liquidity seeded on the MinTick/MaxTick sentinels of a new tier.
	BaseLiquidity = DecodeLiquidityD8(big.NewInt(100))

	distributionDenominator = decimal.NewFromBigInt(new(big.Int).Lsh(big.NewInt(1), distributionBits-1), 0)
)

// DecodeLiquidityD8 scales a D8-encoded liquidity value to its true value.
func DecodeLiquidityD8(liquidityD8 *big.Int) *big.Int {
	if liquidityD8 == nil {
		return new(big.Int)
	}
	return new(big.Int).Lsh(liquidityD8, 8)
}

// SliceBits returns len bits of word starting at bit start.
func SliceBits(word *uint256.Int, start, length uint) *uint256.Int {
	out := new(uint256.Int).Rsh(word, start)
	return out.And(out, LowBitsMask(length))
}

// DecodeTierData unpacks a swap tier result: liquidity in the low 128 bits and
// the UQ56.72 sqrt price in the next 128 bits.
func DecodeTierData(tierData *uint256.Int) (liquidity *uint256.Int, sqrtPrice *uint256.Int) {
	return SliceBits(tierData, 0, 128), SliceBits(tierData, 128, 128)
}

// AmountDistributionAt returns the fraction of a swap amount routed through the
// tier at index, decoded from a packed distribution word.
func AmountDistributionAt(distribution *uint256.Int, index int) decimal.Decimal {
	if distribution == nil || index < 0 || index >= MaxTiers {
		return decimal.Zero
	}
	slice := SliceBits(distribution, uint(index*distributionBits), distributionBits)
	return decimal.NewFromBigInt(slice.ToBig(), 0).Div(distributionDenominator)
}

// SqrtGammaToFeeTier converts a tier's sqrt gamma (1e5 scale) to its fee rate
// in units of 1e-5, rounded to nearest.
func SqrtGammaToFeeTier(sqrtGamma uint32) uint32 {
	g := int64(sqrtGamma)
	return uint32((10_000_000_000 - g*g + 50_000) / 100_000)
}
