package consensus

import (
	"github.com/holiman/uint256"
)

// Compact ("nBits") encoding: the high byte is a base-256 exponent, the low
// 23 bits the mantissa and bit 23 a sign flag.
//
//	target = mantissa * 256^(exponent-3)

// CompactToTarget expands bits into a 256-bit target.
func CompactToTarget(bits uint32) (*uint256.Int, error) {
	mantissa := bits & 0x007fffff
	negative := bits&0x00800000 != 0
	exponent := uint(bits >> 24)

	if mantissa != 0 {
		if exponent > 34 || (mantissa > 0xff && exponent > 33) || (mantissa > 0xffff && exponent > 32) {
			return nil, ErrTargetOverflow
		}
		if negative {
			return nil, ErrTargetNegative
		}
	}

	target := new(uint256.Int)
	if exponent <= 3 {
		target.SetUint64(uint64(mantissa >> (8 * (3 - exponent))))
		return target, nil
	}
	target.SetUint64(uint64(mantissa))
	target.Lsh(target, 8*(exponent-3))
	return target, nil
}

// TargetToCompact is the inverse of CompactToTarget for non-negative targets.
func TargetToCompact(target *uint256.Int) uint32 {
	if target.IsZero() {
		return 0
	}
	size := uint((target.BitLen() + 7) / 8)
	var mantissa uint32
	if size <= 3 {
		mantissa = uint32(target.Uint64() << (8 * (3 - size)))
	} else {
		shifted := new(uint256.Int).Rsh(target, 8*(size-3))
		mantissa = uint32(shifted.Uint64())
	}
	// Keep the sign bit clear by moving one byte into the exponent.
	if mantissa&0x00800000 != 0 {
		mantissa >>= 8
		size++
	}
	return uint32(size)<<24 | mantissa
}

// PowLimitFromShift returns ^uint256(0) >> shift.
func PowLimitFromShift(shift uint) *uint256.Int {
	limit := new(uint256.Int).Not(new(uint256.Int))
	return limit.Rsh(limit, shift)
}
