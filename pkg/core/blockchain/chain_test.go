package blockchain

import (
	"context"
	"testing"
	"time"

	"github.com/anchorcoin/anchord/pkg/chaincfg"
	"github.com/anchorcoin/anchord/pkg/checkpoints"
	"github.com/anchorcoin/anchord/pkg/core/consensus"
	"github.com/anchorcoin/anchord/pkg/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testParams is the main profile with proof of work waived after genesis
// and only the genesis checkpoint left in the table.
func testParams() *chaincfg.Params {
	p := *chaincfg.FromContext(context.Background())
	p.POSStartBlock = 1
	p.Checkpoints = []chaincfg.Checkpoint{{Height: 0, Hash: p.GenesisHash()}}
	return &p
}

type fakeEvents struct {
	height     int64
	reorgs     int
	violations []int64
}

func (e *fakeEvents) CheckpointViolation(h int64) { e.violations = append(e.violations, h) }
func (e *fakeEvents) SyncFloor(int64)             {}
func (e *fakeEvents) EstimatedTotal(int64)        {}
func (e *fakeEvents) SetBlockHeight(h int64)      { e.height = h }
func (e *fakeEvents) IncreaseReorgCount()         { e.reorgs++ }

func newTestChain(t *testing.T, p *chaincfg.Params, opts ...Option) *Chain {
	t.Helper()
	hasher := consensus.NewSHA256Hasher()
	t.Cleanup(hasher.Close)

	c := NewChain(p, hasher, opts...)
	require.NoError(t, c.InitGenesis())
	return c
}

func nextHeader(t *testing.T, c *Chain, prev types.Hash, salt uint32) types.BlockHeader {
	t.Helper()
	parent, _, err := c.GetHeaderByHash(prev)
	require.NoError(t, err)
	return types.BlockHeader{
		Version:    1,
		PrevBlock:  prev,
		MerkleRoot: types.Hash{0x42, byte(salt), byte(salt >> 8)},
		Timestamp:  parent.Timestamp.Add(time.Minute),
		Bits:       parent.Bits,
		Nonce:      salt,
	}
}

// extend connects n headers on top of from and returns their hashes.
func extend(t *testing.T, c *Chain, from types.Hash, n int, salt uint32) []types.Hash {
	t.Helper()
	hashes := make([]types.Hash, 0, n)
	prev := from
	for i := 0; i < n; i++ {
		hash, err := c.AddBlock(nextHeader(t, c, prev, salt))
		require.NoError(t, err)
		hashes = append(hashes, hash)
		prev = hash
	}
	return hashes
}

func tipHash(t *testing.T, c *Chain) types.Hash {
	t.Helper()
	_, hash, _, ok := c.Tip()
	require.True(t, ok)
	return hash
}

func TestGenesisInit(t *testing.T) {
	p := testParams()
	c := newTestChain(t, p)

	header, hash, height, ok := c.Tip()
	require.True(t, ok)
	assert.Equal(t, int64(0), height)
	assert.Equal(t, p.GenesisHash(), hash)
	assert.Equal(t, p.GenesisBlock().Header, header)
	assert.True(t, c.HaveBlock(p.GenesisHash()))
	assert.Equal(t, int64(1), c.Confirmations(p.GenesisHash()))
}

func TestGenesisDoubleInit(t *testing.T) {
	c := newTestChain(t, testParams())
	assert.ErrorIs(t, c.InitGenesis(), ErrChainAlreadyInitialized)
}

func TestGenesisMustBeHardened(t *testing.T) {
	p := testParams()
	p.Checkpoints = []chaincfg.Checkpoint{{Height: 0, Hash: types.Hash{0x01}}}

	c := NewChain(p, consensus.NewSHA256Hasher())
	assert.ErrorIs(t, c.InitGenesis(), ErrCheckpointMismatch)
}

func TestAddBlock_NotInitialized(t *testing.T) {
	c := NewChain(testParams(), consensus.NewSHA256Hasher())
	_, err := c.AddBlock(types.BlockHeader{})
	assert.ErrorIs(t, err, ErrChainNotInitialized)

	_, ok := c.TipHeight()
	assert.False(t, ok)
	assert.Equal(t, int64(0), c.Height())
}

func TestAddBlock_ExtendsBestChain(t *testing.T) {
	ev := &fakeEvents{}
	c := newTestChain(t, testParams(), WithEvents(ev))
	genesis := tipHash(t, c)

	hashes := extend(t, c, genesis, 5, 1)

	assert.Equal(t, int64(5), c.Height())
	assert.Equal(t, int64(5), ev.height)
	for i, h := range hashes {
		got, ok := c.HashAtHeight(int64(i + 1))
		require.True(t, ok)
		assert.Equal(t, h, got)

		header, err := c.GetHeaderByHeight(int64(i + 1))
		require.NoError(t, err)
		_, height, err := c.GetHeaderByHash(h)
		require.NoError(t, err)
		assert.Equal(t, int64(i+1), height)
		if i > 0 {
			assert.Equal(t, hashes[i-1], header.PrevBlock)
		}
	}
	assert.Equal(t, int64(5), c.Confirmations(hashes[0]))
	assert.Equal(t, int64(1), c.Confirmations(hashes[4]))

	_, err := c.GetHeaderByHeight(6)
	assert.ErrorIs(t, err, ErrBlockNotFound)
}

func TestAddBlock_OrphanAndDuplicate(t *testing.T) {
	c := newTestChain(t, testParams())
	genesis := tipHash(t, c)

	header := nextHeader(t, c, genesis, 1)
	_, err := c.AddBlock(header)
	require.NoError(t, err)

	_, err = c.AddBlock(header)
	assert.ErrorIs(t, err, ErrDuplicateBlock)

	orphan := header
	orphan.PrevBlock = types.Hash{0xde, 0xad}
	_, err = c.AddBlock(orphan)
	assert.ErrorIs(t, err, ErrOrphanBlock)
}

func TestValidateBlock_TimestampBeforeParent(t *testing.T) {
	c := newTestChain(t, testParams())
	genesis := tipHash(t, c)

	header := nextHeader(t, c, genesis, 1)
	header.Timestamp = header.Timestamp.Add(-time.Hour)
	_, err := c.AddBlock(header)
	assert.ErrorIs(t, err, ErrTimestampTooOld)
}

func TestValidateBlock_TimestampTooFar(t *testing.T) {
	c := newTestChain(t, testParams())
	genesis := tipHash(t, c)
	c.now = func() time.Time { return time.Unix(1520409600, 0) }

	header := nextHeader(t, c, genesis, 1)
	header.Timestamp = time.Unix(1520409600, 0).Add(MaxFutureBlockTime + time.Second)
	_, err := c.AddBlock(header)
	assert.ErrorIs(t, err, ErrTimestampTooFar)
}

func TestValidateBlock_ProofOfWorkRequired(t *testing.T) {
	p := testParams()
	p.POSStartBlock = 100
	c := newTestChain(t, p)
	genesis := tipHash(t, c)

	header := nextHeader(t, c, genesis, 1)
	header.Bits = 0x2100ffff // above the proof-of-work limit
	_, err := c.AddBlock(header)
	assert.ErrorIs(t, err, ErrInvalidPoW)
}

func TestAddBlock_CheckpointMismatch(t *testing.T) {
	p := *chaincfg.FromContext(context.Background())
	p.POSStartBlock = 1
	ev := &fakeEvents{}
	c := newTestChain(t, &p, WithEvents(ev))
	genesis := tipHash(t, c)

	// Height 1 is pinned on main; an arbitrary header contradicts it.
	_, err := c.AddBlock(nextHeader(t, c, genesis, 1))
	assert.ErrorIs(t, err, ErrCheckpointMismatch)
	assert.Equal(t, int64(0), c.Height())
	assert.Equal(t, []int64{1}, ev.violations)
}

func TestReorganize(t *testing.T) {
	ev := &fakeEvents{}
	c := newTestChain(t, testParams(), WithEvents(ev))
	genesis := tipHash(t, c)

	main := extend(t, c, genesis, 5, 1)
	side := extend(t, c, main[2], 4, 2) // heights 4..7

	assert.Equal(t, int64(5), c.Height(), "side branch must not move the tip")
	assert.True(t, c.HaveBlock(side[3]))
	assert.Equal(t, int64(0), c.Confirmations(side[0]))

	require.NoError(t, c.Reorganize(side[3]))
	assert.Equal(t, int64(7), c.Height())
	assert.Equal(t, 1, ev.reorgs)

	got, ok := c.HashAtHeight(4)
	require.True(t, ok)
	assert.Equal(t, side[0], got)
	got, _ = c.HashAtHeight(3)
	assert.Equal(t, main[2], got)

	assert.Equal(t, int64(0), c.Confirmations(main[4]))
	assert.Equal(t, int64(4), c.Confirmations(side[0]))

	// Already on the best chain: nothing to do.
	require.NoError(t, c.Reorganize(side[1]))
	assert.Equal(t, int64(7), c.Height())

	assert.ErrorIs(t, c.Reorganize(types.Hash{0x99}), ErrBlockNotFound)
}

func TestReorganizeIfLonger(t *testing.T) {
	ev := &fakeEvents{}
	c := newTestChain(t, testParams(), WithEvents(ev))
	genesis := tipHash(t, c)

	main := extend(t, c, genesis, 4, 1)
	side := extend(t, c, main[0], 3, 2) // heights 2..4

	// Equal height keeps the current branch.
	switched, err := c.ReorganizeIfLonger(side[2])
	require.NoError(t, err)
	assert.False(t, switched)
	assert.Equal(t, main[3], tipHash(t, c))

	side = append(side, extend(t, c, side[2], 1, 2)...)
	switched, err = c.ReorganizeIfLonger(side[3])
	require.NoError(t, err)
	assert.True(t, switched)
	assert.Equal(t, side[3], tipHash(t, c))
	assert.Equal(t, int64(5), c.Height())
	assert.Equal(t, 1, ev.reorgs)

	// Already the best chain.
	switched, err = c.ReorganizeIfLonger(side[3])
	require.NoError(t, err)
	assert.False(t, switched)

	_, err = c.ReorganizeIfLonger(types.Hash{0x99})
	assert.ErrorIs(t, err, ErrBlockNotFound)
}

func TestBlockBelowTip(t *testing.T) {
	c := NewChain(testParams(), consensus.NewSHA256Hasher())
	_, _, ok := c.BlockBelowTip(0)
	assert.False(t, ok)

	require.NoError(t, c.InitGenesis())
	genesis := tipHash(t, c)
	main := extend(t, c, genesis, 8, 1)

	height, hash, ok := c.BlockBelowTip(3)
	require.True(t, ok)
	assert.Equal(t, int64(5), height)
	assert.Equal(t, main[4], hash)

	height, hash, ok = c.BlockBelowTip(checkpoints.CheckpointSpan)
	require.True(t, ok)
	assert.Equal(t, int64(0), height)
	assert.Equal(t, genesis, hash)

	// Switch to a shorter branch; the snapshot follows it.
	side := extend(t, c, main[1], 1, 2) // height 3
	require.NoError(t, c.Reorganize(side[0]))
	height, hash, ok = c.BlockBelowTip(0)
	require.True(t, ok)
	assert.Equal(t, int64(3), height)
	assert.Equal(t, side[0], hash)
}

func TestSyncCheckpointFloor(t *testing.T) {
	c := newTestChain(t, testParams())
	genesis := tipHash(t, c)

	main := extend(t, c, genesis, checkpoints.CheckpointSpan+10, 1)
	// Tip 5010, floor 10. main[i] sits at height i+1.

	floor, err := c.Checkpoints().AutoSelectSyncCheckpoint()
	require.NoError(t, err)
	assert.Equal(t, int64(10), floor.Height)
	assert.Equal(t, main[9], floor.Hash)
	assert.True(t, c.IsFinal(main[9]))
	assert.False(t, c.IsFinal(main[10]))

	// A fork landing at the floor height is rejected.
	_, err = c.AddBlock(nextHeader(t, c, main[8], 2))
	assert.ErrorIs(t, err, ErrBelowSyncCheckpoint)

	// One above the floor is accepted as a side branch.
	side := extend(t, c, main[9], 1, 3) // height 11
	assert.True(t, c.HaveBlock(side[0]))

	late := extend(t, c, main[18], 1, 4) // height 20

	// Move the floor to 20; a reorg to the branch forking at 19 is now
	// below it.
	extend(t, c, main[len(main)-1], 10, 5)
	floor, err = c.Checkpoints().AutoSelectSyncCheckpoint()
	require.NoError(t, err)
	assert.Equal(t, int64(20), floor.Height)

	err = c.Reorganize(late[0])
	assert.ErrorIs(t, err, ErrBelowSyncCheckpoint)
	assert.Equal(t, int64(5020), c.Height())
}

func TestLocatorAndHeadersAfter(t *testing.T) {
	c := newTestChain(t, testParams())
	genesis := tipHash(t, c)
	hashes := extend(t, c, genesis, 30, 1)

	loc := c.Locator()
	require.NotEmpty(t, loc)
	assert.Equal(t, hashes[29], loc[0])
	assert.Equal(t, genesis, loc[len(loc)-1])
	assert.Less(t, len(loc), 31)

	headers := c.HeadersAfter([]types.Hash{hashes[9]}, 5)
	require.Len(t, headers, 5)
	assert.Equal(t, hashes[9], headers[0].PrevBlock)

	// Unknown locator falls back to genesis.
	headers = c.HeadersAfter([]types.Hash{{0x77}}, 100)
	assert.Len(t, headers, 30)
	assert.Equal(t, genesis, headers[0].PrevBlock)
}

func TestLastCheckpointFromChain(t *testing.T) {
	p := testParams()
	c := newTestChain(t, p)

	cp, ok := c.Checkpoints().LastCheckpoint(c)
	require.True(t, ok)
	assert.Equal(t, int64(0), cp.Height)
	assert.Equal(t, int64(0), c.Checkpoints().EstimatedTotalBlocks())
}

func TestConsensusHeights(t *testing.T) {
	p := chaincfg.FromContext(context.Background())

	assert.False(t, RequiresProofOfWork(p, 0))
	assert.True(t, RequiresProofOfWork(p, 350))
	assert.False(t, RequiresProofOfWork(p, 351))
	assert.True(t, ProofOfStakeAllowed(p, 351))
	assert.False(t, ProofOfStakeAllowed(p, 350))
	assert.True(t, PoWRewardAllowed(p, 500000))
	assert.False(t, PoWRewardAllowed(p, 500001))
}
