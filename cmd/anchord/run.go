package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/anchorcoin/anchord/pkg/chaincfg"
	"github.com/anchorcoin/anchord/pkg/config"
	"github.com/anchorcoin/anchord/pkg/core/blockchain"
	"github.com/anchorcoin/anchord/pkg/core/consensus"
	"github.com/anchorcoin/anchord/pkg/logx"
	"github.com/anchorcoin/anchord/pkg/miner"
	"github.com/anchorcoin/anchord/pkg/monitoring"
	"github.com/anchorcoin/anchord/pkg/p2p"
	"github.com/anchorcoin/anchord/pkg/rpc"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the node",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("mine") {
			nodeConfig.Mine = mine
		}
		return runNode(cmd.Context(), nodeConfig, nodeHasher)
	},
}

var mine bool

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().BoolVar(&mine, "mine", false, "Mine proof-of-work blocks until proof of stake starts")
}

func runNode(ctx context.Context, cfg *config.NodeConfig, hasher consensus.Hasher) error {
	params := chaincfg.FromContext(ctx)

	logx.Init(cfg.Log)
	defer logx.Close()
	logx.Info("NODE", "starting anchord on ", params.Name, ", data dir ", cfg.DataDir)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := monitoring.NewNodeMetrics(reg)

	chainDir := cfg.ChainDir(params)
	if err := os.MkdirAll(chainDir, 0o755); err != nil {
		return err
	}
	store, err := blockchain.NewBadgerStore(chainDir)
	if err != nil {
		return err
	}
	defer store.Close()

	chain := blockchain.NewChain(params, hasher, blockchain.WithStore(store), blockchain.WithEvents(metrics))
	if err := chain.Load(); err != nil {
		if !errors.Is(err, blockchain.ErrEmptyStore) {
			return err
		}
		if err := chain.InitGenesis(); err != nil {
			return err
		}
	}

	p2pServer := p2p.NewServer(p2p.ServerConfig{
		ListenAddr:   cfg.ListenAddr,
		Connect:      cfg.Connect,
		NoFixedSeeds: cfg.NoSeeds,
	}, chain, metrics)
	if err := p2pServer.Start(ctx); err != nil {
		return err
	}
	defer p2pServer.Stop()

	if cfg.Mine {
		minerCfg, err := cfg.MinerConfig(params)
		if err != nil {
			return err
		}
		m := miner.New(chain, hasher, p2pServer, minerCfg)
		m.Start(ctx)
		defer m.Stop()
	}

	errCh := make(chan error, 2)
	rpcServer := rpc.NewServer(chain, p2pServer, metrics.Handler())
	go func() { errCh <- rpcServer.Start(ctx, cfg.RPCAddr) }()

	if cfg.MetricsAddr != "" {
		go func() { errCh <- serveMetrics(ctx, cfg.MetricsAddr, metrics) }()
	}

	select {
	case <-ctx.Done():
		logx.Info("NODE", "shutting down")
		return nil
	case err := <-errCh:
		return err
	}
}

func serveMetrics(ctx context.Context, addr string, metrics *monitoring.NodeMetrics) error {
	mux := http.NewServeMux()
	metrics.RegisterMetrics(mux)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
