package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/anchorcoin/anchord/pkg/chaincfg"
	"github.com/anchorcoin/anchord/pkg/checkpoints"
	"github.com/anchorcoin/anchord/pkg/core/blockchain"
	"github.com/anchorcoin/anchord/pkg/core/types"
	"github.com/anchorcoin/anchord/pkg/logx"
)

// PeerCounter reports connected peers; p2p.Server satisfies it.
type PeerCounter interface {
	PeerCount() int
}

type Server struct {
	chain   *blockchain.Chain
	peers   PeerCounter
	metrics http.Handler
	srv     *http.Server
}

// NewServer serves status for chain. peers and metrics may be nil.
func NewServer(chain *blockchain.Chain, peers PeerCounter, metrics http.Handler) *Server {
	return &Server{
		chain:   chain,
		peers:   peers,
		metrics: metrics,
	}
}

// Handler returns the status routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("GET /checkpoints", s.handleCheckpoints)
	mux.HandleFunc("GET /params", s.handleParams)
	mux.HandleFunc("GET /block/{hash}", s.handleBlock)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics)
	}
	return mux
}

// Start serves on addr until ctx is cancelled.
func (s *Server) Start(ctx context.Context, addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.srv = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	logx.Info("RPC", "listening on ", l.Addr())

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.srv.Shutdown(shutdownCtx)
	}()

	if err := s.srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type StatusResponse struct {
	Network              string                      `json:"network"`
	Height               int64                       `json:"height"`
	Tip                  types.Hash                  `json:"tip"`
	Peers                int                         `json:"peers"`
	EstimatedTotalBlocks int64                       `json:"estimated_total_blocks"`
	SyncCheckpoint       *checkpoints.SyncCheckpoint `json:"sync_checkpoint,omitempty"`
}

// GET /status
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	_, tip, height, ok := s.chain.Tip()
	if !ok {
		http.Error(w, "chain not initialized", http.StatusServiceUnavailable)
		return
	}
	auth := s.chain.Checkpoints()
	resp := StatusResponse{
		Network:              s.chain.Params().Name,
		Height:               height,
		Tip:                  tip,
		EstimatedTotalBlocks: auth.EstimatedTotalBlocks(),
	}
	if s.peers != nil {
		resp.Peers = s.peers.PeerCount()
	}
	if floor, err := auth.AutoSelectSyncCheckpoint(); err == nil {
		resp.SyncCheckpoint = &floor
	}
	writeJSON(w, resp)
}

type CheckpointsResponse struct {
	Checkpoints          []chaincfg.Checkpoint `json:"checkpoints"`
	EstimatedTotalBlocks int64                 `json:"estimated_total_blocks"`
	LastKnown            *chaincfg.Checkpoint  `json:"last_known,omitempty"`
}

// GET /checkpoints
func (s *Server) handleCheckpoints(w http.ResponseWriter, r *http.Request) {
	auth := s.chain.Checkpoints()
	resp := CheckpointsResponse{
		Checkpoints:          auth.Checkpoints(),
		EstimatedTotalBlocks: auth.EstimatedTotalBlocks(),
	}
	if cp, ok := auth.LastCheckpoint(s.chain); ok {
		resp.LastKnown = &cp
	}
	writeJSON(w, resp)
}

// GET /params
func (s *Server) handleParams(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.chain.Params().Summary())
}

type BlockResponse struct {
	Hash          types.Hash `json:"hash"`
	Height        int64      `json:"height"`
	PrevBlock     types.Hash `json:"prev_block"`
	MerkleRoot    types.Hash `json:"merkle_root"`
	Time          int64      `json:"time"`
	Bits          string     `json:"bits"`
	Nonce         uint32     `json:"nonce"`
	MainChain     bool       `json:"main_chain"`
	Confirmations int64      `json:"confirmations"`
	Final         bool       `json:"final"`
}

// GET /block/{hash}
func (s *Server) handleBlock(w http.ResponseWriter, r *http.Request) {
	hash, err := types.NewHashFromStr(r.PathValue("hash"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	header, height, err := s.chain.GetHeaderByHash(hash)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	confirmations := s.chain.Confirmations(hash)
	writeJSON(w, BlockResponse{
		Hash:          hash,
		Height:        height,
		PrevBlock:     header.PrevBlock,
		MerkleRoot:    header.MerkleRoot,
		Time:          header.Timestamp.Unix(),
		Bits:          fmt.Sprintf("%08x", header.Bits),
		Nonce:         header.Nonce,
		MainChain:     confirmations > 0,
		Confirmations: confirmations,
		Final:         s.chain.IsFinal(hash),
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logx.Warn("RPC", "encode response: ", err)
	}
}
