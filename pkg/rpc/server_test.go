package rpc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/anchorcoin/anchord/pkg/chaincfg"
	"github.com/anchorcoin/anchord/pkg/core/blockchain"
	"github.com/anchorcoin/anchord/pkg/core/consensus"
	"github.com/anchorcoin/anchord/pkg/core/types"
	"github.com/anchorcoin/anchord/pkg/monitoring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedPeers int

func (f fixedPeers) PeerCount() int { return int(f) }

func newTestChain(t *testing.T, blocks int) *blockchain.Chain {
	t.Helper()
	p := *chaincfg.FromContext(context.Background())
	p.POSStartBlock = 1
	p.Checkpoints = p.Checkpoints[:1]

	c := blockchain.NewChain(&p, consensus.NewSHA256Hasher())
	require.NoError(t, c.InitGenesis())
	prev, ts := p.GenesisHash(), p.GenesisBlock().Header.Timestamp
	for i := 0; i < blocks; i++ {
		ts = ts.Add(time.Minute)
		hash, err := c.AddBlock(types.BlockHeader{Version: 1, PrevBlock: prev, Timestamp: ts, Nonce: uint32(i)})
		require.NoError(t, err)
		prev = hash
	}
	return c
}

func get(t *testing.T, h http.Handler, path string, v any) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	if v != nil {
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
	}
	return rec
}

func TestStatus(t *testing.T) {
	chain := newTestChain(t, 12)
	h := NewServer(chain, fixedPeers(3), nil).Handler()

	var resp StatusResponse
	get(t, h, "/status", &resp)

	_, tip, _, _ := chain.Tip()
	assert.Equal(t, "main", resp.Network)
	assert.Equal(t, int64(12), resp.Height)
	assert.Equal(t, tip, resp.Tip)
	assert.Equal(t, 3, resp.Peers)
	assert.Equal(t, int64(0), resp.EstimatedTotalBlocks)
	require.NotNil(t, resp.SyncCheckpoint)
	assert.Equal(t, int64(0), resp.SyncCheckpoint.Height)
	assert.Equal(t, chain.Params().GenesisHash(), resp.SyncCheckpoint.Hash)
}

func TestStatusNotInitialized(t *testing.T) {
	chain := blockchain.NewChain(chaincfg.FromContext(context.Background()), consensus.NewSHA256Hasher())
	rec := get(t, NewServer(chain, nil, nil).Handler(), "/status", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestCheckpoints(t *testing.T) {
	chain := newTestChain(t, 0)
	var resp CheckpointsResponse
	get(t, NewServer(chain, nil, nil).Handler(), "/checkpoints", &resp)

	require.Len(t, resp.Checkpoints, 1)
	require.NotNil(t, resp.LastKnown)
	assert.Equal(t, chain.Params().GenesisHash(), resp.LastKnown.Hash)
}

func TestParams(t *testing.T) {
	chain := blockchain.NewChain(chaincfg.FromContext(context.Background()), consensus.NewSHA256Hasher())
	require.NoError(t, chain.InitGenesis())
	var resp chaincfg.Summary
	get(t, NewServer(chain, nil, nil).Handler(), "/params", &resp)

	assert.Equal(t, "main", resp.Name)
	assert.Equal(t, "2af7d5e6", resp.Magic)
	assert.Equal(t, uint16(28218), resp.DefaultPort)
	assert.Equal(t, "3c", resp.Prefixes["pubkey"])
	assert.Equal(t, int64(351), resp.POSStartBlock)
	assert.Equal(t, "1f00ffff", resp.PowLimitBits)
	assert.Len(t, resp.FixedSeeds, 6)
}

func TestBlock(t *testing.T) {
	chain := newTestChain(t, 12)
	h := NewServer(chain, nil, nil).Handler()
	genesis := chain.Params().GenesisHash()

	var resp BlockResponse
	get(t, h, "/block/"+genesis.String(), &resp)
	assert.Equal(t, genesis, resp.Hash)
	assert.Equal(t, int64(0), resp.Height)
	assert.True(t, resp.MainChain)
	assert.Equal(t, int64(13), resp.Confirmations)
	assert.True(t, resp.Final, "genesis sits at the sync checkpoint")

	fifth, _ := chain.HashAtHeight(5)
	resp = BlockResponse{}
	get(t, h, "/block/"+fifth.String(), &resp)
	assert.Equal(t, int64(5), resp.Height)
	assert.Equal(t, int64(8), resp.Confirmations)
	assert.False(t, resp.Final)
	prev, _ := chain.HashAtHeight(4)
	assert.Equal(t, prev, resp.PrevBlock)

	rec := get(t, h, "/block/"+types.Hash{0x42}.String(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = get(t, h, "/block/xyz", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMetricsRoute(t *testing.T) {
	m := monitoring.NewNodeMetrics(nil)
	m.SetBlockHeight(9)
	rec := get(t, NewServer(newTestChain(t, 0), nil, m.Handler()).Handler(), "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "anchord_node_block_height 9")

	rec = get(t, NewServer(newTestChain(t, 0), nil, nil).Handler(), "/metrics", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
