package p2p

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/anchorcoin/anchord/pkg/core/blockchain"
	"github.com/anchorcoin/anchord/pkg/logx"
	"github.com/anchorcoin/anchord/pkg/monitoring"
)

// Metrics receives peer-to-peer events; monitoring.NodeMetrics satisfies it.
type Metrics interface {
	SetPeerCount(peers int)
	IncreaseBadMagicCount()
	RecordRejectedBlock(reason monitoring.BlockRejectedReason)
}

type noopMetrics struct{}

func (noopMetrics) SetPeerCount(int)                                   {}
func (noopMetrics) IncreaseBadMagicCount()                             {}
func (noopMetrics) RecordRejectedBlock(monitoring.BlockRejectedReason) {}

// Server manages the P2P network.
type Server struct {
	Config   ServerConfig
	Chain    *blockchain.Chain
	metrics  Metrics
	peers    map[string]*Peer
	peerMu   sync.RWMutex
	listener net.Listener
	quit     chan struct{}
	wg       sync.WaitGroup
}

type ServerConfig struct {
	ListenAddr string
	// Connect lists peers dialed before the profile's fixed seeds.
	Connect     []string
	DialTimeout time.Duration
	// NoFixedSeeds skips the profile's fixed seeds.
	NoFixedSeeds bool
}

func NewServer(config ServerConfig, chain *blockchain.Chain, metrics Metrics) *Server {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	if config.DialTimeout == 0 {
		config.DialTimeout = 10 * time.Second
	}
	return &Server{
		Config:  config,
		Chain:   chain,
		metrics: metrics,
		peers:   make(map[string]*Peer),
		quit:    make(chan struct{}),
	}
}

// Start listens for inbound peers and dials the configured and fixed seeds.
func (s *Server) Start(ctx context.Context) error {
	var lc net.ListenConfig
	l, err := lc.Listen(ctx, "tcp", s.Config.ListenAddr)
	if err != nil {
		return err
	}
	s.listener = l
	logx.Info("P2P", "listening on ", l.Addr(), " network ", s.Chain.Params().Name)

	for _, addr := range s.seedAddrs() {
		s.wg.Add(1)
		go func(addr string) {
			defer s.wg.Done()
			s.Connect(ctx, addr)
		}(addr)
	}

	s.wg.Add(1)
	go s.acceptLoop()
	return nil
}

// Addr returns the listening address, or nil before Start.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stop closes the listener and every peer, then waits for their loops.
func (s *Server) Stop() {
	close(s.quit)
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.peerMu.RLock()
	for _, p := range s.peers {
		p.Stop()
	}
	s.peerMu.RUnlock()
	s.wg.Wait()
}

func (s *Server) seedAddrs() []string {
	addrs := append([]string(nil), s.Config.Connect...)
	if s.Config.NoFixedSeeds {
		return addrs
	}
	for _, seed := range s.Chain.Params().FixedSeeds() {
		addrs = append(addrs, seed.Addr.String())
	}
	return addrs
}

// Connect dials addr and registers it as an outbound peer.
func (s *Server) Connect(ctx context.Context, addr string) {
	d := net.Dialer{Timeout: s.Config.DialTimeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		logx.Debug("P2P", "failed to connect to ", addr, ": ", err)
		return
	}
	s.addPeer(conn, true)
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.quit:
				return
			default:
				logx.Warn("P2P", "accept error: ", err)
				continue
			}
		}
		s.addPeer(conn, false)
	}
}

func (s *Server) addPeer(conn net.Conn, outbound bool) {
	s.peerMu.Lock()
	select {
	case <-s.quit:
		s.peerMu.Unlock()
		_ = conn.Close()
		return
	default:
	}
	addr := conn.RemoteAddr().String()
	if _, ok := s.peers[addr]; ok {
		s.peerMu.Unlock()
		_ = conn.Close()
		return
	}
	p := NewPeer(conn, s, outbound)
	s.peers[addr] = p
	s.metrics.SetPeerCount(len(s.peers))
	p.Start()
	s.peerMu.Unlock()

	params := s.Chain.Params()
	p.Send(&MsgVersion{
		Version:     ProtocolVersion,
		Network:     params.Name,
		BlockHeight: s.Chain.Height(),
		From:        s.Config.ListenAddr,
	})
	logx.Info("P2P", "peer connected: ", addr, " (outbound=", outbound, ")")
}

// RemovePeer forgets p and closes its connection.
func (s *Server) RemovePeer(p *Peer) {
	s.peerMu.Lock()
	addr := p.Addr()
	if s.peers[addr] == p {
		delete(s.peers, addr)
	}
	s.metrics.SetPeerCount(len(s.peers))
	s.peerMu.Unlock()

	p.Stop()
	logx.Info("P2P", "peer disconnected: ", addr)
}

// PeerCount returns the number of connected peers.
func (s *Server) PeerCount() int {
	s.peerMu.RLock()
	defer s.peerMu.RUnlock()
	return len(s.peers)
}

// Broadcast sends msg to every peer except skip.
func (s *Server) Broadcast(msg Message, skip *Peer) {
	s.peerMu.RLock()
	defer s.peerMu.RUnlock()

	for _, p := range s.peers {
		if p == skip {
			continue
		}
		go p.Send(msg)
	}
}
