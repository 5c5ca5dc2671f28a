package p2p

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"errors"
	"fmt"
	"io"

	"github.com/anchorcoin/anchord/pkg/core/types"
)

// ProtocolVersion is the version advertised in the handshake.
const ProtocolVersion uint32 = 1

const (
	// frameHeaderSize is magic(4) | type(1) | length(4, LE).
	frameHeaderSize = 9

	// MaxPayloadSize bounds a single message payload.
	MaxPayloadSize = 4 << 20

	// MaxHeadersPerMsg bounds the headers answered to one getheaders.
	MaxHeadersPerMsg = 2000
)

var (
	ErrBadMagic        = errors.New("message magic does not match the network")
	ErrPayloadTooLarge = errors.New("message payload too large")
	ErrUnknownMessage  = errors.New("unknown message type")
)

// MessageType identifies the type of P2P message.
type MessageType byte

const (
	MsgTypeVersion    MessageType = 0x01
	MsgTypeGetHeaders MessageType = 0x02
	MsgTypeHeaders    MessageType = 0x03
	MsgTypeAddr       MessageType = 0x04
)

// Message is the generic interface for all P2P messages.
type Message interface {
	Type() MessageType
}

// MsgVersion is the initial handshake message.
type MsgVersion struct {
	Version     uint32
	Network     string
	BlockHeight int64
	From        string
}

func (m *MsgVersion) Type() MessageType { return MsgTypeVersion }

// MsgGetHeaders asks for best-chain headers after the locator.
type MsgGetHeaders struct {
	Locator []types.Hash
}

func (m *MsgGetHeaders) Type() MessageType { return MsgTypeGetHeaders }

// MsgHeaders carries consecutive headers, oldest first. A single header is
// a new block announcement.
type MsgHeaders struct {
	Headers []types.BlockHeader
}

func (m *MsgHeaders) Type() MessageType { return MsgTypeHeaders }

// MsgAddr shares known peer addresses.
type MsgAddr struct {
	Addrs []string
}

func (m *MsgAddr) Type() MessageType { return MsgTypeAddr }

// EncodeMessage writes msg framed for the network identified by magic.
// Format: [Magic(4)][Type(1)][Length(4, LE)][Payload(Gob)]
func EncodeMessage(w io.Writer, magic [4]byte, msg Message) error {
	var payload bytes.Buffer
	if err := gob.NewEncoder(&payload).Encode(msg); err != nil {
		return err
	}
	if payload.Len() > MaxPayloadSize {
		return fmt.Errorf("%w: %d bytes", ErrPayloadTooLarge, payload.Len())
	}

	frame := make([]byte, frameHeaderSize, frameHeaderSize+payload.Len())
	copy(frame[0:4], magic[:])
	frame[4] = byte(msg.Type())
	binary.LittleEndian.PutUint32(frame[5:9], uint32(payload.Len()))
	frame = append(frame, payload.Bytes()...)

	_, err := w.Write(frame)
	return err
}

// DecodeMessage reads one framed message. A frame carrying another
// network's magic yields ErrBadMagic and its payload is left unread; the
// stream cannot be trusted afterwards.
func DecodeMessage(r io.Reader, magic [4]byte) (Message, error) {
	var header [frameHeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, err
	}
	if !bytes.Equal(header[0:4], magic[:]) {
		return nil, fmt.Errorf("%w: got %x", ErrBadMagic, header[0:4])
	}

	length := binary.LittleEndian.Uint32(header[5:9])
	if length > MaxPayloadSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrPayloadTooLarge, length)
	}

	var msg Message
	switch MessageType(header[4]) {
	case MsgTypeVersion:
		msg = &MsgVersion{}
	case MsgTypeGetHeaders:
		msg = &MsgGetHeaders{}
	case MsgTypeHeaders:
		msg = &MsgHeaders{}
	case MsgTypeAddr:
		msg = &MsgAddr{}
	default:
		return nil, fmt.Errorf("%w: 0x%x", ErrUnknownMessage, header[4])
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}
	if err := gob.NewDecoder(bytes.NewReader(payload)).Decode(msg); err != nil {
		return nil, err
	}
	return msg, nil
}
