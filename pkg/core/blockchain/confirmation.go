package blockchain

import "github.com/anchorcoin/anchord/pkg/core/types"

// Confirmations returns how many best-chain blocks bury hash, counting the
// block itself. Blocks off the best chain have zero confirmations.
func (c *Chain) Confirmations(hash types.Hash) int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	n, ok := c.index[hash]
	if !ok || !c.onMainChain(n) {
		return 0
	}
	return c.tipHeight() - n.height + 1
}

// IsFinal reports whether hash is on the best chain at or below the sync
// checkpoint, where no reorganization can reach it.
func (c *Chain) IsFinal(hash types.Hash) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	n, ok := c.index[hash]
	if !ok || !c.onMainChain(n) {
		return false
	}
	below, err := c.inner.IsBelowSyncCheckpoint(n.height)
	return err == nil && below
}
