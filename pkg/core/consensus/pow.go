package consensus

import (
	"errors"
	"fmt"

	"github.com/anchorcoin/anchord/pkg/core/types"
	"github.com/holiman/uint256"
)

var (
	ErrTargetOverflow   = errors.New("compact target overflows 256 bits")
	ErrTargetNegative   = errors.New("compact target is negative")
	ErrTargetZero       = errors.New("compact target is zero")
	ErrTargetAboveLimit = errors.New("compact target is above the proof-of-work limit")
	ErrHashAboveTarget  = errors.New("block hash does not meet its target")
)

// Hasher computes block identity hashes over serialized headers.
// Implementations include X11Hasher (production) and SHA256Hasher (tests).
type Hasher interface {
	// Hash computes the hash of the given block header bytes.
	Hash(headerBytes []byte) (types.Hash, error)

	// Close releases any resources held by the hasher.
	Close()
}

// HashToUint256 interprets h (internal little-endian order) as a 256-bit number.
func HashToUint256(h types.Hash) *uint256.Int {
	var be [types.HashSize]byte
	for i := range h {
		be[types.HashSize-1-i] = h[i]
	}
	return new(uint256.Int).SetBytes32(be[:])
}

// CheckProofOfWork verifies that hash satisfies the compact target bits and
// that the target does not exceed powLimit.
func CheckProofOfWork(hash types.Hash, bits uint32, powLimit *uint256.Int) error {
	target, err := CompactToTarget(bits)
	if err != nil {
		return err
	}
	if target.IsZero() {
		return ErrTargetZero
	}
	if powLimit != nil && target.Gt(powLimit) {
		return fmt.Errorf("%w: bits %08x", ErrTargetAboveLimit, bits)
	}
	if HashToUint256(hash).Gt(target) {
		return fmt.Errorf("%w: hash %s, bits %08x", ErrHashAboveTarget, hash, bits)
	}
	return nil
}
