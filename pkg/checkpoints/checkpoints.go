// Package checkpoints decides whether a block is consistent with the
// hard-coded checkpoint table of the active network and where the rolling
// sync checkpoint (the rewrite floor) currently sits.
package checkpoints

import (
	"errors"

	"github.com/anchorcoin/anchord/pkg/chaincfg"
	"github.com/anchorcoin/anchord/pkg/core/types"
)

// CheckpointSpan is how many blocks behind the tip the sync checkpoint sits.
const CheckpointSpan = 5000

var ErrChainNotReady = errors.New("best chain has no tip")

// ChainView is a read-only view of the best chain.
type ChainView interface {
	// BlockBelowTip returns the height and hash of the best-chain block
	// depth blocks below the tip, or genesis when the chain is shorter.
	// Both come from one consistent snapshot. ok is false while the chain
	// is empty.
	BlockBelowTip(depth int64) (height int64, hash types.Hash, ok bool)
}

// BlockIndex reports whether a block is known locally, on any branch.
type BlockIndex interface {
	HaveBlock(hash types.Hash) bool
}

// Recorder receives checkpoint events. All methods must be safe for
// concurrent use.
type Recorder interface {
	CheckpointViolation(height int64)
	SyncFloor(height int64)
	EstimatedTotal(height int64)
}

// SyncCheckpoint is a best-chain block below which history is final.
type SyncCheckpoint struct {
	Height int64      `json:"height" yaml:"height"`
	Hash   types.Hash `json:"hash" yaml:"hash"`
}

// Authority answers checkpoint queries for one network profile against one
// best chain. It holds no mutable state and may be shared between goroutines.
type Authority struct {
	table    map[int64]types.Hash
	ordered  []chaincfg.Checkpoint
	estimate int64
	view     ChainView
	rec      Recorder
}

// Option configures an Authority.
type Option func(*Authority)

// WithRecorder reports checkpoint events to r.
func WithRecorder(r Recorder) Option {
	return func(a *Authority) { a.rec = r }
}

// New builds an Authority over the checkpoint table of params and the best
// chain exposed by view. view may be nil when only table queries are needed.
func New(params *chaincfg.Params, view ChainView, opts ...Option) *Authority {
	a := &Authority{
		table: make(map[int64]types.Hash, len(params.Checkpoints)),
		view:  view,
	}
	a.ordered = make([]chaincfg.Checkpoint, len(params.Checkpoints))
	copy(a.ordered, params.Checkpoints)
	for _, cp := range a.ordered {
		a.table[cp.Height] = cp.Hash
		if cp.Height > a.estimate {
			a.estimate = cp.Height
		}
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.rec != nil {
		a.rec.EstimatedTotal(a.estimate)
	}
	return a
}

// IsHardened reports whether hash is acceptable at height. Heights without
// a table entry are unconstrained.
func (a *Authority) IsHardened(height int64, hash types.Hash) bool {
	want, ok := a.table[height]
	if !ok {
		return true
	}
	if want != hash {
		if a.rec != nil {
			a.rec.CheckpointViolation(height)
		}
		return false
	}
	return true
}

// EstimatedTotalBlocks returns the height of the newest table entry, or 0
// for an empty table.
func (a *Authority) EstimatedTotalBlocks() int64 {
	return a.estimate
}

// Checkpoints returns a copy of the table ordered from oldest to newest.
func (a *Authority) Checkpoints() []chaincfg.Checkpoint {
	out := make([]chaincfg.Checkpoint, len(a.ordered))
	copy(out, a.ordered)
	return out
}

// LastCheckpoint returns the newest table entry whose block index already
// knows about.
func (a *Authority) LastCheckpoint(index BlockIndex) (chaincfg.Checkpoint, bool) {
	for i := len(a.ordered) - 1; i >= 0; i-- {
		if index.HaveBlock(a.ordered[i].Hash) {
			return a.ordered[i], true
		}
	}
	return chaincfg.Checkpoint{}, false
}

// AutoSelectSyncCheckpoint returns the best-chain block CheckpointSpan
// blocks below the tip, or genesis while the chain is shorter than that.
func (a *Authority) AutoSelectSyncCheckpoint() (SyncCheckpoint, error) {
	if a.view == nil {
		return SyncCheckpoint{}, ErrChainNotReady
	}
	height, hash, ok := a.view.BlockBelowTip(CheckpointSpan)
	if !ok {
		return SyncCheckpoint{}, ErrChainNotReady
	}
	if a.rec != nil {
		a.rec.SyncFloor(height)
	}
	return SyncCheckpoint{Height: height, Hash: hash}, nil
}

// IsBelowSyncCheckpoint reports whether a block at height would rewrite
// history at or below the sync checkpoint.
func (a *Authority) IsBelowSyncCheckpoint(height int64) (bool, error) {
	floor, err := a.AutoSelectSyncCheckpoint()
	if err != nil {
		return false, err
	}
	return height <= floor.Height, nil
}
