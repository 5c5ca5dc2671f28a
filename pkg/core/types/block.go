package types

import (
	"encoding/binary"
	"errors"
	"time"
)

// BlockHeaderSize is the serialized header length in bytes.
const BlockHeaderSize = 80

// ErrShortHeader is returned when decoding fewer than BlockHeaderSize bytes.
var ErrShortHeader = errors.New("block header must be 80 bytes")

// BlockHeader contains all metadata for a block.
type BlockHeader struct {
	Version    int32
	PrevBlock  Hash
	MerkleRoot Hash
	Timestamp  time.Time
	Bits       uint32
	Nonce      uint32
}

// Serialize returns the deterministic 80-byte little-endian encoding.
// Field order: Version(4) || PrevBlock(32) || MerkleRoot(32) || Timestamp(4) ||
//
//	Bits(4) || Nonce(4)
func (h *BlockHeader) Serialize() []byte {
	buf := make([]byte, BlockHeaderSize)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(h.Version))
	copy(buf[4:36], h.PrevBlock[:])
	copy(buf[36:68], h.MerkleRoot[:])
	binary.LittleEndian.PutUint32(buf[68:72], uint32(h.Timestamp.Unix()))
	binary.LittleEndian.PutUint32(buf[72:76], h.Bits)
	binary.LittleEndian.PutUint32(buf[76:80], h.Nonce)
	return buf
}

// DeserializeHeader decodes a header produced by Serialize.
func DeserializeHeader(b []byte) (BlockHeader, error) {
	if len(b) < BlockHeaderSize {
		return BlockHeader{}, ErrShortHeader
	}
	var h BlockHeader
	h.Version = int32(binary.LittleEndian.Uint32(b[0:4]))
	copy(h.PrevBlock[:], b[4:36])
	copy(h.MerkleRoot[:], b[36:68])
	h.Timestamp = time.Unix(int64(binary.LittleEndian.Uint32(b[68:72])), 0).UTC()
	h.Bits = binary.LittleEndian.Uint32(b[72:76])
	h.Nonce = binary.LittleEndian.Uint32(b[76:80])
	return h, nil
}

// Block is a complete block: header + body (transactions).
type Block struct {
	Header       BlockHeader
	Transactions []*Transaction
}

// BuildMerkleRoot computes the Merkle root of the block's transactions.
func (b *Block) BuildMerkleRoot() Hash {
	return ComputeMerkleRoot(b.Transactions)
}

// ComputeMerkleRoot computes the double-SHA256 Merkle tree root of the
// transaction hashes. An odd element on a level is paired with itself.
func ComputeMerkleRoot(txs []*Transaction) Hash {
	if len(txs) == 0 {
		return ZeroHash
	}

	hashes := make([]Hash, len(txs))
	for i, tx := range txs {
		hashes[i] = tx.TxHash()
	}

	for len(hashes) > 1 {
		var next []Hash
		for i := 0; i < len(hashes); i += 2 {
			right := hashes[i]
			if i+1 < len(hashes) {
				right = hashes[i+1]
			}
			combined := make([]byte, 0, HashSize*2)
			combined = append(combined, hashes[i][:]...)
			combined = append(combined, right[:]...)
			next = append(next, DoubleSHA256(combined))
		}
		hashes = next
	}

	return hashes[0]
}
