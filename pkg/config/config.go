// Package config loads the node configuration file.
package config

import (
	"bytes"
	"io"
	"os"
	"path/filepath"

	"github.com/anchorcoin/anchord/pkg/chaincfg"
	"github.com/anchorcoin/anchord/pkg/core/types"
	"github.com/anchorcoin/anchord/pkg/logx"
	"github.com/anchorcoin/anchord/pkg/miner"
	"github.com/anchorcoin/anchord/pkg/wallet"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

var ErrInvalidConfig = errors.New("invalid config")

// NodeConfig holds the node settings. Empty address fields are filled from
// the selected network profile by ApplyProfile.
type NodeConfig struct {
	// NetworkName selects the network by name; when empty the testnet
	// switch decides.
	NetworkName string      `yaml:"network"`
	Testnet     bool        `yaml:"testnet"`
	DataDir     string      `yaml:"data_dir"`
	ListenAddr  string      `yaml:"listen_addr"`
	RPCAddr     string      `yaml:"rpc_addr"`
	MetricsAddr string      `yaml:"metrics_addr"`
	Connect     []string    `yaml:"connect"`
	NoSeeds     bool        `yaml:"no_seeds"`
	Mine        bool        `yaml:"mine"`
	MineBits    uint32      `yaml:"mine_bits"`
	MineAddress string      `yaml:"mine_address"`
	MineKey     string      `yaml:"mine_key"`
	MineReward  int64       `yaml:"mine_reward"`
	Log         logx.Config `yaml:"log"`
}

// Default returns the configuration used when no file is given.
func Default() *NodeConfig {
	return &NodeConfig{
		DataDir: defaultDataDir(),
		Log: logx.Config{
			MaxSizeMB:  100,
			MaxAgeDays: 30,
			MaxBackups: 5,
		},
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".anchord"
	}
	return filepath.Join(home, ".anchord")
}

// Load reads the YAML file at path over the defaults. Unknown keys are
// rejected.
func Load(path string) (*NodeConfig, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read config %s", path)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Wrapf(err, "parse config %s", path)
	}
	return cfg, nil
}

// Network returns the selected network.
func (c *NodeConfig) Network() (chaincfg.Network, error) {
	if c.NetworkName == "" {
		return chaincfg.NetworkFromFlag(c.Testnet), nil
	}
	n, err := chaincfg.ParseNetwork(c.NetworkName)
	if err != nil {
		return 0, errors.Wrap(ErrInvalidConfig, err.Error())
	}
	if c.Testnet && n != chaincfg.TestNet {
		return 0, errors.Wrapf(ErrInvalidConfig, "network %q conflicts with testnet", c.NetworkName)
	}
	return n, nil
}

// ChainDir is the directory holding the selected network's block store.
func (c *NodeConfig) ChainDir(params *chaincfg.Params) string {
	return filepath.Join(c.DataDir, params.DataDir, "blocks")
}

// ApplyProfile fills unset addresses from params and points the log file
// into the network's data directory when it is relative.
func (c *NodeConfig) ApplyProfile(params *chaincfg.Params) {
	if c.ListenAddr == "" {
		c.ListenAddr = params.DefaultListenAddr()
	}
	if c.RPCAddr == "" {
		c.RPCAddr = params.DefaultRPCAddr()
	}
	if c.Log.File != "" && !filepath.IsAbs(c.Log.File) {
		c.Log.File = filepath.Join(c.DataDir, params.DataDir, c.Log.File)
	}
}

// MinerConfig resolves the mining settings for params. The payout goes to
// mine_address, or to the key stored at mine_key, or nowhere.
func (c *NodeConfig) MinerConfig(params *chaincfg.Params) (miner.Config, error) {
	cfg := miner.Config{
		Bits:   c.MineBits,
		Reward: types.NewAmountFromCoins(c.MineReward),
	}
	switch {
	case c.MineAddress != "":
		addr, err := wallet.DecodeAddress(params, c.MineAddress)
		if err != nil {
			return miner.Config{}, errors.Wrap(err, "mine_address")
		}
		cfg.PayTo = addr.PayToScript()
	case c.MineKey != "":
		key, err := wallet.LoadKey(params, c.MineKey)
		if err != nil {
			return miner.Config{}, errors.Wrapf(err, "mine_key %s", c.MineKey)
		}
		cfg.PayTo = wallet.PubKeyHashScript(key.PubKey())
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c *NodeConfig) Validate() error {
	if c.DataDir == "" {
		return errors.Wrap(ErrInvalidConfig, "data_dir is empty")
	}
	if _, err := c.Network(); err != nil {
		return err
	}
	if c.Log.MaxSizeMB < 0 || c.Log.MaxAgeDays < 0 || c.Log.MaxBackups < 0 {
		return errors.Wrap(ErrInvalidConfig, "log rotation limits must not be negative")
	}
	if c.MineAddress != "" && c.MineKey != "" {
		return errors.Wrap(ErrInvalidConfig, "mine_address and mine_key are exclusive")
	}
	if c.MineReward < 0 {
		return errors.Wrap(ErrInvalidConfig, "mine_reward must not be negative")
	}
	return nil
}
