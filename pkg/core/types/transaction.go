package types

import (
	"bytes"
	"encoding/binary"
)

// NullOutIndex marks the outpoint of a coinbase input.
const NullOutIndex uint32 = 0xffffffff

// MaxSequence is the final sequence number of an input.
const MaxSequence uint32 = 0xffffffff

// OutPoint references a previous transaction output.
type OutPoint struct {
	Hash  Hash
	Index uint32
}

// TxIn is a transaction input.
type TxIn struct {
	PreviousOutPoint OutPoint
	SignatureScript  []byte
	Sequence         uint32
}

// TxOut is a transaction output. An output with zero value and an empty
// script is "empty" and pays nobody.
type TxOut struct {
	Value    Amount
	PkScript []byte
}

// IsEmpty reports whether the output carries neither value nor script.
func (o *TxOut) IsEmpty() bool {
	return o.Value == 0 && len(o.PkScript) == 0
}

// Transaction is a timestamped transaction: the time field sits between
// version and inputs in the serialized form.
type Transaction struct {
	Version  int32
	Time     uint32
	TxIn     []*TxIn
	TxOut    []*TxOut
	LockTime uint32
}

// IsCoinbase reports whether tx has exactly one input spending the null outpoint.
func (tx *Transaction) IsCoinbase() bool {
	if len(tx.TxIn) != 1 {
		return false
	}
	prev := tx.TxIn[0].PreviousOutPoint
	return prev.Index == NullOutIndex && prev.Hash.IsZero()
}

// Serialize returns the canonical little-endian encoding:
// Version(4) || Time(4) || varint(len in) || inputs || varint(len out) || outputs || LockTime(4)
func (tx *Transaction) Serialize() []byte {
	var buf bytes.Buffer
	var scratch [8]byte

	binary.LittleEndian.PutUint32(scratch[:4], uint32(tx.Version))
	buf.Write(scratch[:4])
	binary.LittleEndian.PutUint32(scratch[:4], tx.Time)
	buf.Write(scratch[:4])

	writeVarInt(&buf, uint64(len(tx.TxIn)))
	for _, in := range tx.TxIn {
		buf.Write(in.PreviousOutPoint.Hash[:])
		binary.LittleEndian.PutUint32(scratch[:4], in.PreviousOutPoint.Index)
		buf.Write(scratch[:4])
		writeVarBytes(&buf, in.SignatureScript)
		binary.LittleEndian.PutUint32(scratch[:4], in.Sequence)
		buf.Write(scratch[:4])
	}

	writeVarInt(&buf, uint64(len(tx.TxOut)))
	for _, out := range tx.TxOut {
		binary.LittleEndian.PutUint64(scratch[:], uint64(out.Value))
		buf.Write(scratch[:])
		writeVarBytes(&buf, out.PkScript)
	}

	binary.LittleEndian.PutUint32(scratch[:4], tx.LockTime)
	buf.Write(scratch[:4])
	return buf.Bytes()
}

// TxHash returns the double-SHA256 of the serialized transaction.
func (tx *Transaction) TxHash() Hash {
	return DoubleSHA256(tx.Serialize())
}

func writeVarInt(buf *bytes.Buffer, n uint64) {
	var scratch [8]byte
	switch {
	case n < 0xfd:
		buf.WriteByte(byte(n))
	case n <= 0xffff:
		buf.WriteByte(0xfd)
		binary.LittleEndian.PutUint16(scratch[:2], uint16(n))
		buf.Write(scratch[:2])
	case n <= 0xffffffff:
		buf.WriteByte(0xfe)
		binary.LittleEndian.PutUint32(scratch[:4], uint32(n))
		buf.Write(scratch[:4])
	default:
		buf.WriteByte(0xff)
		binary.LittleEndian.PutUint64(scratch[:], n)
		buf.Write(scratch[:])
	}
}

func writeVarBytes(buf *bytes.Buffer, b []byte) {
	writeVarInt(buf, uint64(len(b)))
	buf.Write(b)
}
