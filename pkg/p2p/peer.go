package p2p

import (
	"errors"
	"io"
	"net"
	"sync"

	"github.com/anchorcoin/anchord/pkg/core/blockchain"
	"github.com/anchorcoin/anchord/pkg/core/types"
	"github.com/anchorcoin/anchord/pkg/logx"
	"github.com/anchorcoin/anchord/pkg/monitoring"
)

// Peer represents a connected remote node.
type Peer struct {
	Conn     net.Conn
	Server   *Server
	Outbound bool // True if we initiated the connection

	sendMu    sync.Mutex
	closeOnce sync.Once
	done      chan struct{}
}

// NewPeer creates a new peer instance.
func NewPeer(conn net.Conn, server *Server, outbound bool) *Peer {
	return &Peer{
		Conn:     conn,
		Server:   server,
		Outbound: outbound,
		done:     make(chan struct{}),
	}
}

// Addr returns the remote address.
func (p *Peer) Addr() string {
	return p.Conn.RemoteAddr().String()
}

// Start begins the peer's read loop.
func (p *Peer) Start() {
	p.Server.wg.Add(1)
	go p.readLoop()
}

// Stop closes the peer connection. It is safe to call more than once.
func (p *Peer) Stop() {
	p.closeOnce.Do(func() {
		close(p.done)
		_ = p.Conn.Close()
	})
}

// Done is closed once the peer is stopped.
func (p *Peer) Done() <-chan struct{} {
	return p.done
}

// readLoop continuously reads messages from the connection.
func (p *Peer) readLoop() {
	defer p.Server.wg.Done()
	defer p.Server.RemovePeer(p)

	magic := p.Server.Chain.Params().NetMagic
	for {
		msg, err := DecodeMessage(p.Conn, magic)
		if err != nil {
			switch {
			case errors.Is(err, ErrBadMagic):
				p.Server.metrics.IncreaseBadMagicCount()
				logx.Warn("P2P", "dropping ", p.Addr(), ": ", err)
			case errors.Is(err, io.EOF), errors.Is(err, net.ErrClosed):
			default:
				logx.Warn("P2P", "read error from ", p.Addr(), ": ", err)
			}
			return
		}
		if !p.handleMessage(msg) {
			return
		}
	}
}

// handleMessage processes one message and reports whether to keep the peer.
func (p *Peer) handleMessage(msg Message) bool {
	chain := p.Server.Chain
	switch m := msg.(type) {
	case *MsgVersion:
		logx.Info("P2P", "version from ", p.Addr(), ": v", m.Version, " network=", m.Network, " height=", m.BlockHeight)
		if m.Network != chain.Params().Name {
			logx.Warn("P2P", "peer ", p.Addr(), " is on network ", m.Network)
			return false
		}
		if localHeight := chain.Height(); m.BlockHeight > localHeight {
			logx.Info("P2P", "behind peer ", p.Addr(), " (local=", localHeight, ", peer=", m.BlockHeight, "), requesting headers")
			p.Send(&MsgGetHeaders{Locator: chain.Locator()})
		}

	case *MsgGetHeaders:
		headers := chain.HeadersAfter(m.Locator, MaxHeadersPerMsg)
		logx.Debug("P2P", "getheaders from ", p.Addr(), ", answering ", len(headers))
		if len(headers) > 0 {
			p.Send(&MsgHeaders{Headers: headers})
		}

	case *MsgHeaders:
		return p.handleHeaders(m)

	case *MsgAddr:
		logx.Debug("P2P", "received ", len(m.Addrs), " addresses from ", p.Addr())
	}
	return true
}

func (p *Peer) handleHeaders(m *MsgHeaders) bool {
	chain := p.Server.Chain
	var (
		connected []types.BlockHeader
		last      types.Hash
	)
	for _, header := range m.Headers {
		hash, err := chain.AddBlock(header)
		if errors.Is(err, blockchain.ErrDuplicateBlock) {
			continue
		}
		if err != nil {
			p.Server.metrics.RecordRejectedBlock(rejectReason(err))
			logx.Warn("P2P", "rejected header ", hash, " from ", p.Addr(), ": ", err)
			if isFatal(err) {
				return false
			}
			break
		}
		connected = append(connected, header)
		last = hash
	}
	if len(connected) == 0 {
		return true
	}

	// A side branch that outgrew the best chain becomes the best chain.
	switched, err := chain.ReorganizeIfLonger(last)
	if err != nil {
		p.Server.metrics.RecordRejectedBlock(rejectReason(err))
		logx.Warn("P2P", "cannot adopt branch ", last, " from ", p.Addr(), ": ", err)
		if isFatal(err) {
			return false
		}
	} else if switched {
		logx.Info("P2P", "switched to branch ", last, " from ", p.Addr())
	}
	logx.Info("P2P", "connected ", len(connected), "/", len(m.Headers), " headers from ", p.Addr(), ", height ", chain.Height())

	if len(m.Headers) == MaxHeadersPerMsg {
		p.Send(&MsgGetHeaders{Locator: chain.Locator()})
	} else {
		p.Server.Broadcast(&MsgHeaders{Headers: connected}, p)
	}
	return true
}

// Send sends a message to the peer. Failures stop the peer.
func (p *Peer) Send(msg Message) error {
	p.sendMu.Lock()
	defer p.sendMu.Unlock()

	err := EncodeMessage(p.Conn, p.Server.Chain.Params().NetMagic, msg)
	if err != nil {
		logx.Warn("P2P", "send to ", p.Addr(), " failed: ", err)
		p.Stop()
	}
	return err
}

// isFatal reports whether err means the peer follows a chain that
// contradicts our checkpoints.
func isFatal(err error) bool {
	return errors.Is(err, blockchain.ErrCheckpointMismatch) || errors.Is(err, blockchain.ErrBelowSyncCheckpoint)
}

func rejectReason(err error) monitoring.BlockRejectedReason {
	switch {
	case errors.Is(err, blockchain.ErrOrphanBlock):
		return monitoring.BlockOrphan
	case errors.Is(err, blockchain.ErrCheckpointMismatch):
		return monitoring.BlockCheckpoint
	case errors.Is(err, blockchain.ErrBelowSyncCheckpoint):
		return monitoring.BlockBelowSync
	case errors.Is(err, blockchain.ErrInvalidPoW):
		return monitoring.BlockInvalidPoW
	case errors.Is(err, blockchain.ErrTimestampTooOld), errors.Is(err, blockchain.ErrTimestampTooFar):
		return monitoring.BlockInvalidTimestamp
	default:
		return monitoring.BlockRejectedUnknown
	}
}
