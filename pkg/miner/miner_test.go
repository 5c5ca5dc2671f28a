package miner

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/anchorcoin/anchord/pkg/chaincfg"
	"github.com/anchorcoin/anchord/pkg/core/blockchain"
	"github.com/anchorcoin/anchord/pkg/core/consensus"
	"github.com/anchorcoin/anchord/pkg/core/types"
	"github.com/anchorcoin/anchord/pkg/p2p"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// easyBits is about half of the hash space.
const easyBits = 0x207fffff

type recordingBroadcaster struct {
	mu   sync.Mutex
	msgs []p2p.Message
}

func (b *recordingBroadcaster) Broadcast(msg p2p.Message, _ *p2p.Peer) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.msgs = append(b.msgs, msg)
}

func testChain(t *testing.T, posStart int64) (*blockchain.Chain, consensus.Hasher) {
	t.Helper()
	p := *chaincfg.FromContext(context.Background())
	p.Checkpoints = []chaincfg.Checkpoint{{Height: 0, Hash: p.GenesisHash()}}
	return chainFor(t, &p, posStart)
}

func chainFor(t *testing.T, params *chaincfg.Params, posStart int64) (*blockchain.Chain, consensus.Hasher) {
	t.Helper()
	p := *params
	p.PowLimit = consensus.PowLimitFromShift(1)
	p.POSStartBlock = posStart

	hasher := consensus.NewSHA256Hasher()
	t.Cleanup(hasher.Close)
	c := blockchain.NewChain(&p, hasher)
	require.NoError(t, c.InitGenesis())
	return c, hasher
}

func TestMineBlock(t *testing.T) {
	chain, hasher := testChain(t, 100)
	bcast := &recordingBroadcaster{}
	m := New(chain, hasher, bcast, Config{Bits: easyBits})

	for want := int64(1); want <= 3; want++ {
		hash, height, err := m.MineBlock(context.Background())
		require.NoError(t, err)
		assert.Equal(t, want, height)

		_, tipHash, tipHeight, ok := chain.Tip()
		require.True(t, ok)
		assert.Equal(t, hash, tipHash)
		assert.Equal(t, want, tipHeight)

		header, _, err := chain.GetHeaderByHash(hash)
		require.NoError(t, err)
		assert.Equal(t, uint32(easyBits), header.Bits)
		assert.NoError(t, consensus.CheckProofOfWork(hash, header.Bits, chain.Params().PowLimit))
	}
	require.Len(t, bcast.msgs, 3)
	headers, ok := bcast.msgs[2].(*p2p.MsgHeaders)
	require.True(t, ok)
	require.Len(t, headers.Headers, 1)
	want, _ := chain.HashAtHeight(2)
	assert.Equal(t, want, headers.Headers[0].PrevBlock)
}

func TestMineBlock_StopsAtProofOfStake(t *testing.T) {
	chain, hasher := testChain(t, 3)
	m := New(chain, hasher, nil, Config{Bits: easyBits})

	for i := 0; i < 2; i++ {
		_, _, err := m.MineBlock(context.Background())
		require.NoError(t, err)
	}
	_, height, err := m.MineBlock(context.Background())
	assert.ErrorIs(t, err, ErrPoWPhaseOver)
	assert.Equal(t, int64(3), height)
	assert.Equal(t, int64(2), chain.Height())
}

func TestTemplate(t *testing.T) {
	chain, hasher := testChain(t, 100)
	m := New(chain, hasher, nil, Config{})

	header, height, err := m.Template()
	require.NoError(t, err)
	assert.Equal(t, int64(1), height)
	assert.Equal(t, chain.Params().GenesisHash(), header.PrevBlock)
	// Zero bits falls back to the tip's target.
	assert.Equal(t, chain.Params().GenesisBlock().Header.Bits, header.Bits)
	assert.True(t, header.Timestamp.After(chain.Params().GenesisBlock().Header.Timestamp))
	assert.False(t, header.MerkleRoot.IsZero())

	_, _, err = New(blockchain.NewChain(chain.Params(), hasher), hasher, nil, Config{}).Template()
	assert.ErrorIs(t, err, ErrNoTip)
}

func TestSolve(t *testing.T) {
	hasher := consensus.NewSHA256Hasher()
	defer hasher.Close()
	limit := consensus.PowLimitFromShift(1)

	header := types.BlockHeader{Version: 1, Timestamp: time.Unix(1520409600, 0).UTC(), Bits: easyBits}
	hash, err := Solve(context.Background(), hasher, &header, limit)
	require.NoError(t, err)
	again, err := hasher.Hash(header.Serialize())
	require.NoError(t, err)
	assert.Equal(t, again, hash)

	above := types.BlockHeader{Bits: 0x2100ffff}
	_, err = Solve(context.Background(), hasher, &above, limit)
	assert.ErrorIs(t, err, consensus.ErrTargetAboveLimit)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	hard := types.BlockHeader{Bits: 0x03000001}
	_, err = Solve(ctx, hasher, &hard, limit)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStartStop(t *testing.T) {
	chain, hasher := testChain(t, 4)
	m := New(chain, hasher, nil, Config{Bits: easyBits})
	m.Start(context.Background())
	defer m.Stop()

	require.Eventually(t, func() bool {
		return chain.Height() == 3
	}, 5*time.Second, 10*time.Millisecond)
}

func TestCoinbaseReward(t *testing.T) {
	chain, hasher := testChain(t, 100)
	payTo := []byte{0x76, 0xa9}
	m := New(chain, hasher, nil, Config{PayTo: payTo, Reward: types.NewAmountFromCoins(50)})
	ts := time.Unix(1520409600, 0)

	last := chain.Params().LastPOWBlock
	cb := m.coinbase(last, ts)
	require.True(t, cb.IsCoinbase())
	require.Len(t, cb.TxOut, 1)
	assert.Equal(t, types.Amount(50*types.AtomsPerCoin), cb.TxOut[0].Value)
	assert.Equal(t, payTo, cb.TxOut[0].PkScript)

	assert.Equal(t, types.Amount(0), m.coinbase(last+1, ts).TxOut[0].Value)
}

func TestMinerStopsOnCheckpointedHeight(t *testing.T) {
	// Main pins height 1, which no locally mined header can match.
	chain, hasher := chainFor(t, chaincfg.FromContext(context.Background()), 100)
	m := New(chain, hasher, nil, Config{Bits: easyBits})

	_, _, err := m.MineBlock(context.Background())
	require.ErrorIs(t, err, blockchain.ErrCheckpointMismatch)

	m.Start(context.Background())
	defer m.Stop()
	select {
	case <-m.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("miner kept running on a checkpointed height")
	}
	assert.Equal(t, int64(0), chain.Height())
}
