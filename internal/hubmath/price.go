package hubmath

import (
	"math/big"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// PricePrecision is the number of fractional digits kept for derived prices.
const PricePrecision int32 = 36

var q144 = new(big.Int).Lsh(big.NewInt(1), 144)

// ConvertTokenToDecimal scales a raw token amount by its decimals.
func ConvertTokenToDecimal(amount *big.Int, decimals uint8) decimal.Decimal {
	if amount == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(amount, -int32(decimals))
}

// SafeDiv returns a/b, or zero when b is zero.
func SafeDiv(a, b decimal.Decimal) decimal.Decimal {
	if b.IsZero() {
		return decimal.Zero
	}
	return a.DivRound(b, PricePrecision)
}

// CeilDiv returns x/y rounded up. y must be positive.
func CeilDiv(x, y *big.Int) *big.Int {
	q, m := new(big.Int).QuoRem(x, y, new(big.Int))
	if m.Sign() > 0 {
		q.Add(q, big.NewInt(1))
	}
	return q
}

// SqrtPriceX72ToTokenPrices returns (price0, price1) for a tier, where price1 is
// token1 per token0 adjusted for token decimals and price0 is its inverse.
func SqrtPriceX72ToTokenPrices(sqrtPrice *uint256.Int, decimals0, decimals1 uint8) (decimal.Decimal, decimal.Decimal) {
	if sqrtPrice == nil || sqrtPrice.IsZero() {
		return decimal.Zero, decimal.Zero
	}
	sp := sqrtPrice.ToBig()
	num := new(big.Int).Mul(sp, sp)
	num.Mul(num, pow10(decimals0))
	den := new(big.Int).Mul(q144, pow10(decimals1))

	price1 := decimal.NewFromBigRat(new(big.Rat).SetFrac(num, den), PricePrecision)
	price0 := SafeDiv(decimal.NewFromInt(1), price1)
	return price0, price1
}

// TickPrices returns (price0, price1) at a tick without decimal adjustment:
// price0 is 1.0001^tick and price1 its inverse. Both keep PricePrecision
// significant digits, so prices near MinTick do not collapse to a few digits.
func TickPrices(tick int32) (decimal.Decimal, decimal.Decimal, error) {
	if tick < MinTick || tick > MaxTick {
		return decimal.Zero, decimal.Zero, ErrTickOutOfBounds
	}
	abs := tick
	if tick < 0 {
		abs = -tick
	}
	up := tickPower(uint32(abs))
	// up >= 1; its inverse needs one extra fractional digit per integer digit.
	places := PricePrecision + int32(up.NumDigits()) + up.Exponent()
	down := decimal.NewFromInt(1).DivRound(up, places)
	up = up.Round(PricePrecision)
	if tick < 0 {
		return down, up, nil
	}
	return up, down, nil
}

// tickPowerPlaces bounds intermediate products of tickPower. Every
// intermediate is >= 1, so this is also a floor on significant digits.
const tickPowerPlaces int32 = 80

var tickBase = decimal.New(10001, -4)

// tickPower returns 1.0001^n by square-and-multiply.
func tickPower(n uint32) decimal.Decimal {
	result := decimal.NewFromInt(1)
	base := tickBase
	for n > 0 {
		if n&1 == 1 {
			result = result.Mul(base).Truncate(tickPowerPlaces)
		}
		n >>= 1
		if n > 0 {
			base = base.Mul(base).Truncate(tickPowerPlaces)
		}
	}
	return result
}

func pow10(n uint8) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}
