package consensus

import (
	"github.com/anchorcoin/anchord/pkg/core/types"
)

// SHA256Hasher implements Hasher using double-SHA256.
// Used in tests and by operators who select "sha256d" in the node config.
type SHA256Hasher struct{}

var _ Hasher = (*SHA256Hasher)(nil)

// NewSHA256Hasher returns a new SHA256Hasher.
func NewSHA256Hasher() *SHA256Hasher {
	return &SHA256Hasher{}
}

// Hash computes SHA256(SHA256(headerBytes)).
func (h *SHA256Hasher) Hash(headerBytes []byte) (types.Hash, error) {
	return types.DoubleSHA256(headerBytes), nil
}

// Close is a no-op for SHA256Hasher.
func (h *SHA256Hasher) Close() {}
