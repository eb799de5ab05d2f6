package hubmath

import (
	"errors"

	"github.com/holiman/uint256"
)

var (
	// ErrInputIsZero is returned when a bit search receives zero.
	ErrInputIsZero = errors.New("input must be greater than zero")
	// ErrInputIsNil is returned when a bit search receives a nil pointer.
	ErrInputIsNil = errors.New("input cannot be nil")
)

var msbSteps = [...]uint{128, 64, 32, 16, 8, 4, 2, 1}

// MostSignificantBit returns the index of the highest set bit of x, where the
// least significant bit is index 0.
//
// The search halves the candidate width at each step, so a 256-bit word takes
// eight comparisons regardless of its value.
func MostSignificantBit(x *uint256.Int) (uint8, error) {
	if x == nil {
		return 0, ErrInputIsNil
	}
	if x.IsZero() {
		return 0, ErrInputIsZero
	}

	v := x.Clone()
	var msb uint
	var shifted uint256.Int
	for _, n := range msbSteps {
		shifted.Rsh(v, n)
		if !shifted.IsZero() {
			v.Set(&shifted)
			msb += n
		}
	}
	return uint8(msb), nil
}

// LowBitsMask returns a mask with bits [0, n) set. n may range over [0, 256].
func LowBitsMask(n uint) *uint256.Int {
	if n >= 256 {
		return new(uint256.Int).SetAllOne()
	}
	mask := new(uint256.Int).Lsh(uint256.NewInt(1), n)
	return mask.Sub(mask, uint256.NewInt(1))
}

// Bit returns a word with only bit n set.
func Bit(n uint) *uint256.Int {
	return new(uint256.Int).Lsh(uint256.NewInt(1), n)
}
