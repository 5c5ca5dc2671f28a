package consensus

import (
	"sync"

	"github.com/anchorcoin/anchord/pkg/core/types"
	"github.com/bitbandi/go-x11"
)

// X11Hasher implements Hasher with the eleven-round X11 chain
// (blake, bmw, groestl, jh, keccak, skein, luffa, cubehash, shavite, simd, echo).
type X11Hasher struct {
	mu sync.Mutex
	hs *x11.Hash
}

var _ Hasher = (*X11Hasher)(nil)

// NewX11Hasher returns a ready X11Hasher.
func NewX11Hasher() *X11Hasher {
	return &X11Hasher{hs: x11.New()}
}

// Hash computes X11(headerBytes). The underlying state is reused, so calls
// are serialized.
func (h *X11Hasher) Hash(headerBytes []byte) (types.Hash, error) {
	var out types.Hash
	h.mu.Lock()
	h.hs.Hash(headerBytes, out[:])
	h.mu.Unlock()
	return out, nil
}

// Close is a no-op; the hasher holds no external resources.
func (h *X11Hasher) Close() {}
