// Package miner extends the best chain with proof-of-work headers during the
// window before proof of stake takes over.
package miner

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/anchorcoin/anchord/pkg/core/blockchain"
	"github.com/anchorcoin/anchord/pkg/core/consensus"
	"github.com/anchorcoin/anchord/pkg/core/types"
	"github.com/anchorcoin/anchord/pkg/logx"
	"github.com/anchorcoin/anchord/pkg/p2p"
	"github.com/holiman/uint256"
)

var (
	ErrPoWPhaseOver = errors.New("next height is past the proof-of-work window")
	ErrNoTip        = errors.New("chain has no tip to build on")
)

// ctx is polled once per this many nonces.
const checkInterval = 1 << 12

// Broadcaster announces freshly mined headers to peers.
type Broadcaster interface {
	Broadcast(msg p2p.Message, skip *p2p.Peer)
}

type Config struct {
	// Bits is the compact target of mined headers. Zero reuses the tip's bits.
	Bits  uint32
	// PayTo is the coinbase output script. Empty pays nobody.
	PayTo []byte
	// Reward is the coinbase value up to the last proof-of-work reward height.
	Reward types.Amount
}

type Miner struct {
	chain  *blockchain.Chain
	hasher consensus.Hasher
	bcast  Broadcaster
	cfg    Config

	cancel context.CancelFunc
	wg     sync.WaitGroup
	done   chan struct{}
}

// New returns a miner over chain. bcast may be nil.
func New(chain *blockchain.Chain, hasher consensus.Hasher, bcast Broadcaster, cfg Config) *Miner {
	return &Miner{
		chain:  chain,
		hasher: hasher,
		bcast:  bcast,
		cfg:    cfg,
		done:   make(chan struct{}),
	}
}

// Start mines in the background until Stop is called, ctx is cancelled or
// the proof-of-work window closes.
func (m *Miner) Start(ctx context.Context) {
	ctx, m.cancel = context.WithCancel(ctx)
	logx.Info("MINER", "started, target bits ", m.cfg.Bits, ", reward ", m.cfg.Reward.ToCoins())
	m.wg.Add(1)
	go m.loop(ctx)
}

// Done is closed once the mining loop has exited.
func (m *Miner) Done() <-chan struct{} {
	return m.done
}

func (m *Miner) Stop() {
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
	logx.Info("MINER", "stopped")
}

func (m *Miner) loop(ctx context.Context) {
	defer m.wg.Done()
	defer close(m.done)
	for ctx.Err() == nil {
		hash, height, err := m.MineBlock(ctx)
		switch {
		case err == nil:
			logx.Info("MINER", "mined block", height, hash)
		case errors.Is(err, ErrPoWPhaseOver):
			logx.Info("MINER", "proof-of-work window closed at height", height)
			return
		case errors.Is(err, blockchain.ErrCheckpointMismatch):
			// Our own template can never match a pinned hash.
			logx.Error("MINER", "height ", height, " is checkpointed, stopping: ", err)
			return
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return
		case errors.Is(err, blockchain.ErrOrphanBlock), errors.Is(err, blockchain.ErrDuplicateBlock):
			// The tip moved under us.
			logx.Debug("MINER", "stale template:", err)
		default:
			logx.Error("MINER", "mining failed:", err)
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
		}
	}
}

// MineBlock builds a header on the current tip, solves it and connects it.
// It returns the new block hash and height.
func (m *Miner) MineBlock(ctx context.Context) (types.Hash, int64, error) {
	header, height, err := m.Template()
	if err != nil {
		return types.Hash{}, height, err
	}
	if _, err := Solve(ctx, m.hasher, &header, m.chain.Params().PowLimit); err != nil {
		return types.Hash{}, height, err
	}
	hash, err := m.chain.AddBlock(header)
	if err != nil {
		return types.Hash{}, height, err
	}
	if m.bcast != nil {
		m.bcast.Broadcast(&p2p.MsgHeaders{Headers: []types.BlockHeader{header}}, nil)
	}
	return hash, height, nil
}

// Template returns an unsolved header extending the tip and the height it
// would occupy.
func (m *Miner) Template() (types.BlockHeader, int64, error) {
	parent, parentHash, parentHeight, ok := m.chain.Tip()
	if !ok {
		return types.BlockHeader{}, 0, ErrNoTip
	}
	height := parentHeight + 1
	if !blockchain.RequiresProofOfWork(m.chain.Params(), height) {
		return types.BlockHeader{}, height, ErrPoWPhaseOver
	}

	ts := time.Now().UTC().Truncate(time.Second)
	if !ts.After(parent.Timestamp) {
		ts = parent.Timestamp.Add(time.Second)
	}
	bits := m.cfg.Bits
	if bits == 0 {
		bits = parent.Bits
	}

	return types.BlockHeader{
		Version:    1,
		PrevBlock:  parentHash,
		MerkleRoot: types.ComputeMerkleRoot([]*types.Transaction{m.coinbase(height, ts)}),
		Timestamp:  ts,
		Bits:       bits,
	}, height, nil
}

// coinbase pays the configured reward to PayTo while proof-of-work blocks
// still earn one.
func (m *Miner) coinbase(height int64, ts time.Time) *types.Transaction {
	var value types.Amount
	if blockchain.PoWRewardAllowed(m.chain.Params(), height) {
		value = m.cfg.Reward
	}
	return &types.Transaction{
		Version: 1,
		Time:    uint32(ts.Unix()),
		TxIn: []*types.TxIn{{
			PreviousOutPoint: types.OutPoint{Index: types.NullOutIndex},
			SignatureScript:  types.NewScriptBuilder().AddInt64(height).Script(),
			Sequence:         types.MaxSequence,
		}},
		TxOut: []*types.TxOut{{Value: value, PkScript: m.cfg.PayTo}},
	}
}

// Solve searches nonces until header meets its own target, bumping the
// timestamp whenever the nonce space is exhausted. header is updated in
// place and its hash returned.
func Solve(ctx context.Context, hasher consensus.Hasher, header *types.BlockHeader, powLimit *uint256.Int) (types.Hash, error) {
	target, err := consensus.CompactToTarget(header.Bits)
	if err != nil {
		return types.Hash{}, err
	}
	if target.IsZero() {
		return types.Hash{}, consensus.ErrTargetZero
	}
	if powLimit != nil && target.Gt(powLimit) {
		return types.Hash{}, consensus.ErrTargetAboveLimit
	}

	for i := uint64(0); ; i++ {
		if i%checkInterval == 0 {
			if err := ctx.Err(); err != nil {
				return types.Hash{}, err
			}
		}
		hash, err := hasher.Hash(header.Serialize())
		if err != nil {
			return types.Hash{}, err
		}
		if !consensus.HashToUint256(hash).Gt(target) {
			return hash, nil
		}
		if header.Nonce == math.MaxUint32 {
			header.Nonce = 0
			header.Timestamp = header.Timestamp.Add(time.Second)
			continue
		}
		header.Nonce++
	}
}
