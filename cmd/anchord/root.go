package main

import (
	"context"
	"os"

	"github.com/anchorcoin/anchord/pkg/chaincfg"
	"github.com/anchorcoin/anchord/pkg/config"
	"github.com/anchorcoin/anchord/pkg/core/consensus"
	"github.com/anchorcoin/anchord/pkg/logx"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var (
	configPath string
	testnet    bool
	dataDir    string

	// Set by selectNetwork before any subcommand runs.
	nodeConfig *config.NodeConfig
	nodeHasher consensus.Hasher
)

var rootCmd = &cobra.Command{
	Use:               "anchord",
	Short:             "Anchor hybrid PoW/PoS node",
	Long:              "Command line interface for running an anchord node and inspecting its network profile.",
	SilenceUsage:      true,
	PersistentPreRunE: selectNetwork,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if nodeHasher != nil {
			nodeHasher.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to the YAML config file")
	rootCmd.PersistentFlags().BoolVar(&testnet, "testnet", false, "Use the test network")
	rootCmd.PersistentFlags().StringVar(&dataDir, "datadir", "", "Data directory (overrides the config file)")
}

func Execute(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logx.Error("CMD", "Command execution failed: ", err)
		os.Exit(1)
	}
}

// selectNetwork loads the config, builds and self-checks the selected
// network profile and threads it through the command context.
func selectNetwork(cmd *cobra.Command, args []string) error {
	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if cmd.Flags().Changed("testnet") {
		cfg.Testnet = testnet
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	network, err := cfg.Network()
	if err != nil {
		return err
	}
	hasher := consensus.NewX11Hasher()
	params, err := chaincfg.New(network, hasher)
	if err != nil {
		hasher.Close()
		return errors.Wrap(err, "select network")
	}
	cfg.ApplyProfile(params)

	nodeConfig = cfg
	nodeHasher = hasher
	cmd.SetContext(chaincfg.NewContext(cmd.Context(), params))
	return nil
}
