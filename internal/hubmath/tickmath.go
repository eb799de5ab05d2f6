package hubmath

import (
	"errors"
	"math/big"

	"github.com/holiman/uint256"
)

const (
	// MinTick is the lowest tick of every tier; it is always initialized.
	MinTick int32 = -776363
	// MaxTick is the highest tick of every tier; it is always initialized.
	MaxTick int32 = 776363
)

var (
	// MinSqrtPrice is the UQ56.72 sqrt price at MinTick.
	MinSqrtPrice = uint256.MustFromDecimal("65539")
	// MaxSqrtPrice is the UQ56.72 sqrt price at MaxTick.
	MaxSqrtPrice = uint256.MustFromDecimal("340271175397327323250730767849398346765")

	ErrTickOutOfBounds      = errors.New("tick out of bounds")
	ErrSqrtPriceOutOfBounds = errors.New("sqrt price out of bounds")

	q128       = new(uint256.Int).Lsh(uint256.NewInt(1), 128)
	q56Mask    = LowBitsMask(56)
	maxUint256 = new(uint256.Int).SetAllOne()

	bigQ128 = new(big.Int).Lsh(big.NewInt(1), 128)

	// Scales a Q64.64 log2 to a Q128.128 log base sqrt(1.0001).
	logSqrt10001Factor = mustBig("255738958999603826347141")
	// Error bounds of the log2 estimate in Q128.128.
	tickUpperErr       = mustBig("17996007701288367970265332090599899137")
	tickLowerFarBound  = mustBig("-230154402537746701963478439606373042805014528")
	tickLowerFarErr    = mustBig("98577143636729737466164032634120830977")
	tickLowerNearBound = mustBig("-162097929153559009270803518120019400513814528")
	tickLowerNearErr   = mustBig("527810000259722480933883300202676225")

	// sqrt(1.0001^-(2^i)) in UQ128.128, for i in 0..19.
	sqrtRatioFactors = [20]*uint256.Int{
		uint256.MustFromDecimal("340265354078544963557816517032075149313"),
		uint256.MustFromDecimal("340248342086729790484326174814286782778"),
		uint256.MustFromDecimal("340214320654664324051920982716015181260"),
		uint256.MustFromDecimal("340146287995602323631171512101879684304"),
		uint256.MustFromDecimal("340010263488231146823593991679159461444"),
		uint256.MustFromDecimal("339738377640345403697157401104375502016"),
		uint256.MustFromDecimal("339195258003219555707034227454543997025"),
		uint256.MustFromDecimal("338111622100601834656805679988414885971"),
		uint256.MustFromDecimal("335954724994790223023589805789778977700"),
		uint256.MustFromDecimal("331682121138379247127172139078559817300"),
		uint256.MustFromDecimal("323299236684853023288211250268160618739"),
		uint256.MustFromDecimal("307163716377032989948697243942600083929"),
		uint256.MustFromDecimal("277268403626896220162999269216087595045"),
		uint256.MustFromDecimal("225923453940442621947126027127485391333"),
		uint256.MustFromDecimal("149997214084966997727330242082538205943"),
		uint256.MustFromDecimal("66119101136024775622716233608466517926"),
		uint256.MustFromDecimal("12847376061809297530290974190478138313"),
		uint256.MustFromDecimal("485053260817066172746253684029974020"),
		uint256.MustFromDecimal("691415978906521570653435304214168"),
		uint256.MustFromDecimal("1404880482679654955896180642"),
	}
)

// TickToSqrtPriceX72 returns sqrt(1.0001^tick) as a UQ56.72 fixed-point value,
// rounded up.
func TickToSqrtPriceX72(tick int32) (*uint256.Int, error) {
	if tick < MinTick || tick > MaxTick {
		return nil, ErrTickOutOfBounds
	}

	absTick := tick
	if tick < 0 {
		absTick = -tick
	}

	ratio := new(uint256.Int).Set(q128)
	for i, factor := range sqrtRatioFactors {
		if absTick&(1<<i) != 0 {
			ratio.Mul(ratio, factor).Rsh(ratio, 128)
		}
	}

	if tick >= 0 {
		ratio.Div(maxUint256, ratio)
	}

	rem := new(uint256.Int).And(ratio, q56Mask)
	ratio.Rsh(ratio, 56)
	if !rem.IsZero() {
		ratio.AddUint64(ratio, 1)
	}
	return ratio, nil
}

// SqrtPriceX72ToTick returns the greatest tick whose sqrt price is less than or
// equal to sqrtPrice. It estimates log_sqrt(1.0001) of the price in Q128 fixed
// point and settles the two candidate ticks with one exact comparison.
func SqrtPriceX72ToTick(sqrtPrice *uint256.Int) (int32, error) {
	if sqrtPrice == nil {
		return 0, ErrInputIsNil
	}
	if sqrtPrice.Lt(MinSqrtPrice) || sqrtPrice.Gt(MaxSqrtPrice) {
		return 0, ErrSqrtPriceOutOfBounds
	}

	// log2 in Q64.64, signed.
	msb := sqrtPrice.BitLen() - 1
	log2 := new(big.Int).Lsh(big.NewInt(int64(msb-72)), 64)
	z := new(big.Int).Lsh(sqrtPrice.ToBig(), uint(127-msb))
	for i := 0; i < 18; i++ {
		z.Mul(z, z).Rsh(z, 127)
		if z.Cmp(bigQ128) >= 0 {
			z.Rsh(z, 1)
			log2.Add(log2, new(big.Int).Lsh(big.NewInt(1), uint(63-i)))
		}
	}

	logSqrt10001 := new(big.Int).Mul(log2, logSqrt10001Factor)
	upper := new(big.Int).Add(logSqrt10001, tickUpperErr)
	tickUpper := int32(upper.Rsh(upper, 128).Int64())

	lower := new(big.Int).Set(logSqrt10001)
	switch {
	case logSqrt10001.Cmp(tickLowerFarBound) < 0:
		lower.Sub(lower, tickLowerFarErr)
	case logSqrt10001.Cmp(tickLowerNearBound) < 0:
		lower.Sub(lower, tickLowerNearErr)
	}
	tickLower := int32(lower.Rsh(lower, 128).Int64())

	if tickLower == tickUpper {
		return tickUpper, nil
	}
	// An upper candidate past MaxTick is always above sqrtPrice.
	upperPrice, err := TickToSqrtPriceX72(tickUpper)
	if err == nil && !sqrtPrice.Lt(upperPrice) {
		return tickUpper, nil
	}
	return tickLower, nil
}

func mustBig(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("hubmath: invalid constant " + s)
	}
	return v
}
