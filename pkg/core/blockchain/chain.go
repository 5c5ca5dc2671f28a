package blockchain

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/anchorcoin/anchord/pkg/chaincfg"
	"github.com/anchorcoin/anchord/pkg/checkpoints"
	"github.com/anchorcoin/anchord/pkg/core/consensus"
	"github.com/anchorcoin/anchord/pkg/core/types"
	"github.com/anchorcoin/anchord/pkg/logx"
)

var (
	ErrChainAlreadyInitialized = errors.New("chain is already initialized with genesis")
	ErrChainNotInitialized     = errors.New("chain not initialized: no genesis block")
	ErrBlockNotFound           = errors.New("block not found")
	ErrEmptyStore              = errors.New("block store holds no chain")
)

// blockNode is one indexed header. Nodes are never mutated once published.
type blockNode struct {
	hash   types.Hash
	height int64
	header types.BlockHeader
	parent *blockNode
}

// Events receives chain events; monitoring.NodeMetrics satisfies it.
type Events interface {
	checkpoints.Recorder
	SetBlockHeight(height int64)
	IncreaseReorgCount()
}

// Option configures a Chain.
type Option func(*Chain)

// WithStore persists connected headers to store.
func WithStore(store BlockStore) Option {
	return func(c *Chain) { c.store = store }
}

// WithEvents reports chain and checkpoint events to ev.
func WithEvents(ev Events) Option {
	return func(c *Chain) { c.events = ev }
}

// Chain is the header index plus the best chain, addressable by height.
type Chain struct {
	mu     sync.RWMutex
	params *chaincfg.Params
	hasher consensus.Hasher
	store  BlockStore
	events Events
	now    func() time.Time

	index map[types.Hash]*blockNode
	main  []*blockNode

	// auth locks the chain for its queries and is handed to callers;
	// inner reads state directly and is only used with c.mu held.
	auth  *checkpoints.Authority
	inner *checkpoints.Authority
}

// NewChain creates an empty chain for params. hasher computes the identity
// hash of every header except genesis, whose hash is pinned by params.
func NewChain(params *chaincfg.Params, hasher consensus.Hasher, opts ...Option) *Chain {
	c := &Chain{
		params: params,
		hasher: hasher,
		now:    time.Now,
		index:  make(map[types.Hash]*blockNode),
	}
	for _, opt := range opts {
		opt(c)
	}
	var authOpts []checkpoints.Option
	if c.events != nil {
		authOpts = append(authOpts, checkpoints.WithRecorder(c.events))
	}
	c.auth = checkpoints.New(params, c, authOpts...)
	c.inner = checkpoints.New(params, (*lockedChain)(c), authOpts...)
	return c
}

// Params returns the network profile the chain was built for.
func (c *Chain) Params() *chaincfg.Params {
	return c.params
}

// Checkpoints returns the checkpoint authority over this chain.
func (c *Chain) Checkpoints() *checkpoints.Authority {
	return c.auth
}

// InitGenesis connects the profile's genesis block to an empty chain.
func (c *Chain) InitGenesis() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.main) > 0 {
		return ErrChainAlreadyInitialized
	}
	genesis := c.params.GenesisBlock()
	if genesis == nil {
		return ErrInvalidGenesis
	}
	node := &blockNode{
		hash:   c.params.GenesisHash(),
		height: 0,
		header: genesis.Header,
	}
	if !c.inner.IsHardened(0, node.hash) {
		return ErrCheckpointMismatch
	}
	if err := c.persist(node); err != nil {
		return err
	}
	if err := c.persistMain(0, []*blockNode{node}, -1); err != nil {
		return err
	}
	c.index[node.hash] = node
	c.main = append(c.main, node)
	c.publishHeight()
	logx.Info("CHAIN", "initialized ", c.params.Name, " genesis ", node.hash)
	return nil
}

// Load rebuilds the chain from the block store. It returns ErrEmptyStore
// when there is nothing to load.
func (c *Chain) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.store == nil {
		return ErrEmptyStore
	}
	if len(c.main) > 0 {
		return ErrChainAlreadyInitialized
	}
	head, err := c.store.GetHead()
	if errors.Is(err, ErrHeaderNotFoundInStore) {
		return ErrEmptyStore
	}
	if err != nil {
		return err
	}

	var recs []StoredHeader
	if err := c.store.ForEachHeader(func(rec StoredHeader) error {
		recs = append(recs, rec)
		return nil
	}); err != nil {
		return err
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].Height < recs[j].Height })

	index := make(map[types.Hash]*blockNode, len(recs))
	for _, rec := range recs {
		node := &blockNode{hash: rec.Hash, height: rec.Height, header: rec.Header}
		if rec.Height > 0 {
			// Skip headers whose branch did not survive.
			parent, ok := index[rec.Header.PrevBlock]
			if !ok || parent.height != rec.Height-1 {
				continue
			}
			node.parent = parent
		}
		index[rec.Hash] = node
	}

	tip, ok := index[head]
	if !ok {
		return fmt.Errorf("%w: head %s missing from index", ErrCorruptRecord, head)
	}
	main := make([]*blockNode, tip.height+1)
	for n := tip; n != nil; n = n.parent {
		main[n.height] = n
	}
	if main[0] == nil || main[0].hash != c.params.GenesisHash() {
		return ErrInvalidGenesis
	}

	c.index = index
	c.main = main
	c.publishHeight()
	logx.Info("CHAIN", "loaded ", len(index), " headers, tip ", tip.hash, " at height ", tip.height)
	return nil
}

// AddBlock validates header and connects it to the index. A header
// extending the tip extends the best chain; any other header is kept as a
// side branch for Reorganize. It returns the header's hash.
func (c *Chain) AddBlock(header types.BlockHeader) (types.Hash, error) {
	hash, err := c.hasher.Hash(header.Serialize())
	if err != nil {
		return types.Hash{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.main) == 0 {
		return hash, ErrChainNotInitialized
	}
	if _, ok := c.index[hash]; ok {
		return hash, ErrDuplicateBlock
	}
	parent, ok := c.index[header.PrevBlock]
	if !ok {
		return hash, ErrOrphanBlock
	}
	height := parent.height + 1

	if err := ValidateHeader(c.params, &header, &parent.header, height, hash, c.now()); err != nil {
		return hash, err
	}
	if !c.inner.IsHardened(height, hash) {
		return hash, fmt.Errorf("%w: height %d hash %s", ErrCheckpointMismatch, height, hash)
	}

	extendsTip := parent == c.tip()
	if !extendsTip {
		below, err := c.inner.IsBelowSyncCheckpoint(height)
		if err != nil {
			return hash, err
		}
		if below {
			return hash, fmt.Errorf("%w: fork at height %d", ErrBelowSyncCheckpoint, height)
		}
	}

	node := &blockNode{hash: hash, height: height, header: header, parent: parent}
	if err := c.persist(node); err != nil {
		return hash, err
	}
	if extendsTip {
		if err := c.persistMain(height, []*blockNode{node}, height-1); err != nil {
			return hash, err
		}
		c.main = append(c.main, node)
		c.publishHeight()
	}
	c.index[hash] = node
	logx.Debug("CHAIN", "connected ", hash, " at height ", height, " main=", extendsTip)
	return hash, nil
}

// Reorganize makes the branch ending at tipHash the best chain. The fork
// point must lie above the sync checkpoint and every branch block must
// agree with the hardened checkpoints.
func (c *Chain) Reorganize(tipHash types.Hash) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	target, ok := c.index[tipHash]
	if !ok {
		return ErrBlockNotFound
	}
	return c.reorganize(target)
}

// ReorganizeIfLonger switches to the branch ending at tipHash when that
// branch is strictly higher than the best chain, and reports whether it did.
func (c *Chain) ReorganizeIfLonger(tipHash types.Hash) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	target, ok := c.index[tipHash]
	if !ok {
		return false, ErrBlockNotFound
	}
	if target.height <= c.tipHeight() || c.onMainChain(target) {
		return false, nil
	}
	if err := c.reorganize(target); err != nil {
		return false, err
	}
	return true, nil
}

func (c *Chain) reorganize(target *blockNode) error {
	if c.onMainChain(target) {
		return nil
	}

	var branch []*blockNode
	fork := target
	for ; fork != nil && !c.onMainChain(fork); fork = fork.parent {
		branch = append(branch, fork)
	}
	if fork == nil {
		return ErrInvalidGenesis
	}

	below, err := c.inner.IsBelowSyncCheckpoint(fork.height + 1)
	if err != nil {
		return err
	}
	if below {
		return fmt.Errorf("%w: fork point %d", ErrBelowSyncCheckpoint, fork.height)
	}

	// branch is newest first.
	connect := make([]*blockNode, len(branch))
	for i, n := range branch {
		if !c.inner.IsHardened(n.height, n.hash) {
			return fmt.Errorf("%w: height %d hash %s", ErrCheckpointMismatch, n.height, n.hash)
		}
		connect[len(branch)-1-i] = n
	}

	oldTip := c.tipHeight()
	if err := c.persistMain(fork.height+1, connect, oldTip); err != nil {
		return err
	}
	c.main = append(c.main[:fork.height+1:fork.height+1], connect...)
	c.publishHeight()
	if c.events != nil {
		c.events.IncreaseReorgCount()
	}
	logx.Info("CHAIN", "reorganized at fork ", fork.height, ": old tip ", oldTip, ", new tip ", target.height, " ", target.hash)
	return nil
}

// Tip returns the best chain tip header, hash and height.
func (c *Chain) Tip() (types.BlockHeader, types.Hash, int64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	tip := c.tip()
	if tip == nil {
		return types.BlockHeader{}, types.Hash{}, 0, false
	}
	return tip.header, tip.hash, tip.height, true
}

// Height returns the height of the current chain tip. Returns 0 for empty chains.
func (c *Chain) Height() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return max(c.tipHeight(), 0)
}

// TipHeight returns the best chain height, or false while the chain is empty.
func (c *Chain) TipHeight() (int64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return (*lockedChain)(c).TipHeight()
}

// HashAtHeight returns the hash of the best-chain block at height.
func (c *Chain) HashAtHeight(height int64) (types.Hash, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return (*lockedChain)(c).HashAtHeight(height)
}

// BlockBelowTip implements checkpoints.ChainView.
func (c *Chain) BlockBelowTip(depth int64) (int64, types.Hash, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return (*lockedChain)(c).BlockBelowTip(depth)
}

// HaveBlock implements checkpoints.BlockIndex.
func (c *Chain) HaveBlock(hash types.Hash) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.index[hash]
	return ok
}

// GetHeaderByHeight returns the best-chain header at height.
func (c *Chain) GetHeaderByHeight(height int64) (types.BlockHeader, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if height < 0 || height >= int64(len(c.main)) {
		return types.BlockHeader{}, ErrBlockNotFound
	}
	return c.main[height].header, nil
}

// GetHeaderByHash returns any indexed header and its height.
func (c *Chain) GetHeaderByHash(hash types.Hash) (types.BlockHeader, int64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	n, ok := c.index[hash]
	if !ok {
		return types.BlockHeader{}, 0, ErrBlockNotFound
	}
	return n.header, n.height, nil
}

// Locator returns best-chain hashes from the tip backwards, stepping
// exponentially after the first ten, always ending with genesis.
func (c *Chain) Locator() []types.Hash {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(c.main) == 0 {
		return nil
	}
	var out []types.Hash
	step := int64(1)
	for h := c.tipHeight(); h > 0; h -= step {
		out = append(out, c.main[h].hash)
		if len(out) >= 10 {
			step *= 2
		}
	}
	return append(out, c.main[0].hash)
}

// HeadersAfter returns up to limit best-chain headers following the newest
// locator hash found on the best chain, or following genesis when none is.
func (c *Chain) HeadersAfter(locator []types.Hash, limit int) []types.BlockHeader {
	c.mu.RLock()
	defer c.mu.RUnlock()

	start := int64(0)
	for _, h := range locator {
		if n, ok := c.index[h]; ok && c.onMainChain(n) {
			start = n.height
			break
		}
	}
	var out []types.BlockHeader
	for h := start + 1; h < int64(len(c.main)) && len(out) < limit; h++ {
		out = append(out, c.main[h].header)
	}
	return out
}

func (c *Chain) tip() *blockNode {
	if len(c.main) == 0 {
		return nil
	}
	return c.main[len(c.main)-1]
}

func (c *Chain) tipHeight() int64 {
	return int64(len(c.main)) - 1
}

func (c *Chain) onMainChain(n *blockNode) bool {
	return n.height < int64(len(c.main)) && c.main[n.height] == n
}

func (c *Chain) publishHeight() {
	if c.events != nil {
		c.events.SetBlockHeight(c.tipHeight())
	}
}

func (c *Chain) persist(n *blockNode) error {
	if c.store == nil {
		return nil
	}
	return c.store.SaveHeader(StoredHeader{Hash: n.hash, Height: n.height, Header: n.header})
}

func (c *Chain) persistMain(start int64, nodes []*blockNode, oldTip int64) error {
	if c.store == nil {
		return nil
	}
	hashes := make([]types.Hash, len(nodes))
	for i, n := range nodes {
		hashes[i] = n.hash
	}
	return c.store.UpdateMainChain(start, hashes, oldTip)
}

// lockedChain reads chain state without taking c.mu; callers hold it.
type lockedChain Chain

func (l *lockedChain) TipHeight() (int64, bool) {
	if len(l.main) == 0 {
		return 0, false
	}
	return int64(len(l.main)) - 1, true
}

func (l *lockedChain) HashAtHeight(height int64) (types.Hash, bool) {
	if height < 0 || height >= int64(len(l.main)) {
		return types.Hash{}, false
	}
	return l.main[height].hash, true
}

func (l *lockedChain) BlockBelowTip(depth int64) (int64, types.Hash, bool) {
	if len(l.main) == 0 {
		return 0, types.Hash{}, false
	}
	n := l.main[max(int64(len(l.main))-1-depth, 0)]
	return n.height, n.hash, true
}
