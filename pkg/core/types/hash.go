package types

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// HashSize is the length of all hashes in bytes.
const HashSize = 32

// Hash is a 32-byte hash stored in internal (little-endian) byte order.
// String and NewHashFromStr use the conventional reversed display order.
type Hash [HashSize]byte

// ZeroHash is the all-zeroes hash, used as the PrevBlock of the genesis block.
var ZeroHash Hash

// HashFromBytes creates a Hash from a byte slice in internal order.
func HashFromBytes(b []byte) (Hash, error) {
	if len(b) != HashSize {
		return Hash{}, fmt.Errorf("hash must be %d bytes, got %d", HashSize, len(b))
	}
	var h Hash
	copy(h[:], b)
	return h, nil
}

// NewHashFromStr parses a display-order hex string, with or without a 0x prefix.
func NewHashFromStr(s string) (Hash, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(s) != HashSize*2 {
		return Hash{}, fmt.Errorf("hash string must be %d hex chars, got %d", HashSize*2, len(s))
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return Hash{}, fmt.Errorf("invalid hex: %w", err)
	}
	var h Hash
	for i := range b {
		h[HashSize-1-i] = b[i]
	}
	return h, nil
}

// MustHash is NewHashFromStr for compile-time tables. It panics on bad input.
func MustHash(s string) Hash {
	h, err := NewHashFromStr(s)
	if err != nil {
		panic(err)
	}
	return h
}

// Bytes returns the hash as a byte slice in internal order.
func (h Hash) Bytes() []byte {
	return h[:]
}

// Hex returns the display-order hex encoding.
func (h Hash) Hex() string {
	var r Hash
	for i := range h {
		r[HashSize-1-i] = h[i]
	}
	return hex.EncodeToString(r[:])
}

// String implements fmt.Stringer.
func (h Hash) String() string {
	return h.Hex()
}

// IsZero returns true if every byte is 0x00.
func (h Hash) IsZero() bool {
	return h == ZeroHash
}

// MarshalText encodes the hash in display order.
func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.Hex()), nil
}

// UnmarshalText decodes a display-order hash.
func (h *Hash) UnmarshalText(text []byte) error {
	v, err := NewHashFromStr(string(text))
	if err != nil {
		return err
	}
	*h = v
	return nil
}

// ComputeSHA256 computes SHA-256 of arbitrary data and returns it as a Hash.
func ComputeSHA256(data []byte) Hash {
	return sha256.Sum256(data)
}

// DoubleSHA256 computes SHA256(SHA256(data)).
func DoubleSHA256(data []byte) Hash {
	first := sha256.Sum256(data)
	return sha256.Sum256(first[:])
}
