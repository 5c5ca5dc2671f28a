package blockchain

import (
	"errors"
	"fmt"
	"time"

	"github.com/anchorcoin/anchord/pkg/chaincfg"
	"github.com/anchorcoin/anchord/pkg/core/consensus"
	"github.com/anchorcoin/anchord/pkg/core/types"
)

var (
	ErrOrphanBlock         = errors.New("block parent is unknown")
	ErrDuplicateBlock      = errors.New("block is already known")
	ErrTimestampTooOld     = errors.New("block timestamp is before parent timestamp")
	ErrTimestampTooFar     = errors.New("block timestamp is too far in the future")
	ErrInvalidPoW          = errors.New("block PoW hash does not meet difficulty target")
	ErrCheckpointMismatch  = errors.New("block contradicts a hardened checkpoint")
	ErrBelowSyncCheckpoint = errors.New("block would rewrite history below the sync checkpoint")
	ErrInvalidGenesis      = errors.New("genesis block does not match the network profile")
)

// MaxFutureBlockTime is how far ahead of local time a block's timestamp can be.
const MaxFutureBlockTime = 2 * time.Hour

// ValidateHeader checks a header against its parent. height is the height
// the header would occupy and hash its identity hash.
func ValidateHeader(params *chaincfg.Params, header, parent *types.BlockHeader, height int64, hash types.Hash, now time.Time) error {
	// 1. Timestamp must not precede the parent.
	if header.Timestamp.Before(parent.Timestamp) {
		return ErrTimestampTooOld
	}

	// 2. Timestamp must not be too far in the future.
	if header.Timestamp.After(now.Add(MaxFutureBlockTime)) {
		return ErrTimestampTooFar
	}

	// 3. Proof of work, for heights that cannot be staked.
	if RequiresProofOfWork(params, height) {
		if err := consensus.CheckProofOfWork(hash, header.Bits, params.PowLimit); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidPoW, err)
		}
	}
	return nil
}
