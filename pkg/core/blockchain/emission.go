package blockchain

import "github.com/anchorcoin/anchord/pkg/chaincfg"

// RequiresProofOfWork reports whether a block at height must carry valid
// proof of work. Heights from POSStartBlock on may be staked instead, and
// scoring stake is outside this package.
func RequiresProofOfWork(params *chaincfg.Params, height int64) bool {
	return height > 0 && !ProofOfStakeAllowed(params, height)
}

// PoWRewardAllowed reports whether a proof-of-work block at height may
// still claim a mining reward.
func PoWRewardAllowed(params *chaincfg.Params, height int64) bool {
	return height <= params.LastPOWBlock
}

// ProofOfStakeAllowed reports whether a block at height may be staked.
func ProofOfStakeAllowed(params *chaincfg.Params, height int64) bool {
	return height >= params.POSStartBlock
}
