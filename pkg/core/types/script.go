package types

// Opcodes used when assembling coinbase and payout scripts.
const (
	OP_0           byte = 0x00
	OP_PUSHDATA1   byte = 0x4c
	OP_PUSHDATA2   byte = 0x4d
	OP_1NEGATE     byte = 0x4f
	OP_1           byte = 0x51
	OP_DUP         byte = 0x76
	OP_EQUAL       byte = 0x87
	OP_EQUALVERIFY byte = 0x88
	OP_HASH160     byte = 0xa9
	OP_CHECKSIG    byte = 0xac
)

// ScriptBuilder assembles a script from opcodes and canonical data pushes.
type ScriptBuilder struct {
	script []byte
}

// NewScriptBuilder returns an empty builder.
func NewScriptBuilder() *ScriptBuilder {
	return &ScriptBuilder{}
}

// AddOp appends a raw opcode.
func (b *ScriptBuilder) AddOp(op byte) *ScriptBuilder {
	b.script = append(b.script, op)
	return b
}

// AddData appends data with the shortest push prefix for its length.
func (b *ScriptBuilder) AddData(data []byte) *ScriptBuilder {
	n := len(data)
	switch {
	case n < int(OP_PUSHDATA1):
		b.script = append(b.script, byte(n))
	case n <= 0xff:
		b.script = append(b.script, OP_PUSHDATA1, byte(n))
	default:
		b.script = append(b.script, OP_PUSHDATA2, byte(n), byte(n>>8))
	}
	b.script = append(b.script, data...)
	return b
}

// AddInt64 pushes n as a small-int opcode when possible, otherwise as a
// minimally encoded script number.
func (b *ScriptBuilder) AddInt64(n int64) *ScriptBuilder {
	switch {
	case n == 0:
		return b.AddOp(OP_0)
	case n == -1:
		return b.AddOp(OP_1NEGATE)
	case n >= 1 && n <= 16:
		return b.AddOp(OP_1 + byte(n-1))
	}
	return b.AddData(scriptNum(n))
}

// Script returns the assembled script.
func (b *ScriptBuilder) Script() []byte {
	out := make([]byte, len(b.script))
	copy(out, b.script)
	return out
}

// scriptNum encodes n as little-endian magnitude with the sign in the top bit.
func scriptNum(n int64) []byte {
	if n == 0 {
		return nil
	}
	negative := n < 0
	m := uint64(n)
	if negative {
		m = uint64(-n)
	}
	var out []byte
	for m > 0 {
		out = append(out, byte(m&0xff))
		m >>= 8
	}
	if out[len(out)-1]&0x80 != 0 {
		extra := byte(0x00)
		if negative {
			extra = 0x80
		}
		out = append(out, extra)
	} else if negative {
		out[len(out)-1] |= 0x80
	}
	return out
}
