package chaincfg

import (
	"time"

	"github.com/anchorcoin/anchord/pkg/core/consensus"
	"github.com/anchorcoin/anchord/pkg/core/types"
	"github.com/pkg/errors"
)

// genesisProvenance is embedded in the genesis coinbase script.
const genesisProvenance = "Taiwanese Airline to Accept Cryptocurrency Payments for Flight Tickets"

const (
	genesisTime  = 1520409600
	genesisBits  = 0x1f00ffff // 520159231
	genesisNonce = 110059
)

var (
	// genesisHash is the pinned identity hash of the genesis block.
	genesisHash = types.MustHash("000032661a7011e49ee28d45efce8208a9820a96ba9daf74d9a36451a740043d")

	// genesisMerkleRoot is the pinned Merkle root of the genesis transactions.
	genesisMerkleRoot = types.MustHash("4d7b4762724fb2efb635ec2a71750dec07ec7c852d1ac64671237421902ccf0b")
)

// newGenesisBlock assembles the genesis block from its constants. Each call
// returns a fresh block so profiles never share mutable state.
func newGenesisBlock(bits, nonce uint32) *types.Block {
	coinbase := &types.Transaction{
		Version: 1,
		Time:    genesisTime,
		TxIn: []*types.TxIn{{
			PreviousOutPoint: types.OutPoint{Index: types.NullOutIndex},
			SignatureScript: types.NewScriptBuilder().
				AddInt64(0).
				AddInt64(42).
				AddData([]byte(genesisProvenance)).
				Script(),
			Sequence: types.MaxSequence,
		}},
		TxOut:    []*types.TxOut{{}},
		LockTime: 0,
	}

	block := &types.Block{
		Header: types.BlockHeader{
			Version:   1,
			PrevBlock: types.ZeroHash,
			Timestamp: time.Unix(genesisTime, 0).UTC(),
			Bits:      bits,
			Nonce:     nonce,
		},
		Transactions: []*types.Transaction{coinbase},
	}
	block.Header.MerkleRoot = block.BuildMerkleRoot()
	return block
}

// verifyGenesis recomputes the genesis Merkle root and identity hash and
// compares them against the pinned constants.
func (p *Params) verifyGenesis(hasher consensus.Hasher) error {
	if p.genesis == nil {
		return errors.Wrap(ErrGenesisMismatch, "no genesis block")
	}

	merkle := p.genesis.BuildMerkleRoot()
	if merkle != genesisMerkleRoot || p.genesis.Header.MerkleRoot != merkle {
		return errors.Wrapf(ErrGenesisMismatch, "merkle root %s, want %s", merkle, genesisMerkleRoot)
	}

	hash, err := hasher.Hash(p.genesis.Header.Serialize())
	if err != nil {
		return errors.Wrap(err, "hash genesis header")
	}
	if hash != p.genesisHash {
		return errors.Wrapf(ErrGenesisMismatch, "block hash %s, want %s", hash, p.genesisHash)
	}

	if err := consensus.CheckProofOfWork(hash, p.genesis.Header.Bits, p.PowLimit); err != nil {
		return errors.Wrapf(ErrGenesisMismatch, "proof of work: %v", err)
	}
	return nil
}
