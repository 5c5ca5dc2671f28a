package chaincfg

import (
	"encoding/hex"
	"fmt"

	"github.com/anchorcoin/anchord/pkg/core/consensus"
	"github.com/anchorcoin/anchord/pkg/core/types"
)

// Summary is a printable view of a profile.
type Summary struct {
	Name                string            `yaml:"name" json:"name"`
	Magic               string            `yaml:"magic" json:"magic"`
	DefaultPort         uint16            `yaml:"port" json:"port"`
	RPCPort             uint16            `yaml:"rpc_port" json:"rpc_port"`
	DataDir             string            `yaml:"data_dir" json:"data_dir"`
	GenesisHash         types.Hash        `yaml:"genesis_hash" json:"genesis_hash"`
	PowLimit            string            `yaml:"pow_limit" json:"pow_limit"`
	PowLimitBits        string            `yaml:"pow_limit_bits" json:"pow_limit_bits"`
	Prefixes            map[string]string `yaml:"prefixes" json:"prefixes"`
	DNSSeeds            []DNSSeed         `yaml:"dns_seeds" json:"dns_seeds"`
	FixedSeeds          []string          `yaml:"fixed_seeds" json:"fixed_seeds"`
	PoolMaxTransactions int               `yaml:"pool_max_transactions" json:"pool_max_transactions"`
	PoolDummyAddress    string            `yaml:"pool_dummy_address" json:"pool_dummy_address"`
	LastPOWBlock        int64             `yaml:"last_pow_block" json:"last_pow_block"`
	POSStartBlock       int64             `yaml:"pos_start_block" json:"pos_start_block"`
	Checkpoints         []Checkpoint      `yaml:"checkpoints" json:"checkpoints"`
}

// Summary returns a printable view of p.
func (p *Params) Summary() Summary {
	s := Summary{
		Name:                p.Name,
		Magic:               hex.EncodeToString(p.NetMagic[:]),
		DefaultPort:         p.DefaultPort,
		RPCPort:             p.RPCPort,
		DataDir:             p.DataDir,
		GenesisHash:         p.genesisHash,
		Prefixes:            make(map[string]string),
		DNSSeeds:            p.DNSSeeds,
		PoolMaxTransactions: p.PoolMaxTransactions,
		PoolDummyAddress:    p.DarksendPoolDummyAddress,
		LastPOWBlock:        p.LastPOWBlock,
		POSStartBlock:       p.POSStartBlock,
		Checkpoints:         p.Checkpoints,
	}
	if p.PowLimit != nil {
		s.PowLimit = p.PowLimit.Hex()
		s.PowLimitBits = fmt.Sprintf("%08x", consensus.TargetToCompact(p.PowLimit))
	}
	for _, kind := range []AddressKind{PubKeyAddress, ScriptAddress, SecretKey, StealthAddress, ExtPublicKey, ExtSecretKey} {
		s.Prefixes[kind.String()] = hex.EncodeToString(p.Prefix(kind))
	}
	for _, seed := range p.fixedSeeds {
		s.FixedSeeds = append(s.FixedSeeds, seed.Addr.String())
	}
	return s
}
