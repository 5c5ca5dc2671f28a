// Package chaincfg defines the network parameter profiles a node can run
// with. A profile fixes the wire identity (magic, ports), address version
// bytes, the genesis block, seed peers, consensus heights and the hardened
// checkpoint table of one network.
package chaincfg

import (
	"fmt"
	"net/netip"
	"strings"
	"time"

	"github.com/anchorcoin/anchord/pkg/core/types"
	"github.com/holiman/uint256"
)

// Network identifies one of the closed set of supported networks.
type Network int

const (
	MainNet Network = iota
	TestNet
)

// String returns the canonical network name.
func (n Network) String() string {
	switch n {
	case MainNet:
		return "main"
	case TestNet:
		return "testnet"
	default:
		return fmt.Sprintf("Network(%d)", int(n))
	}
}

// ParseNetwork maps a configured network name onto a Network.
func ParseNetwork(name string) (Network, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "main", "mainnet":
		return MainNet, nil
	case "test", "testnet":
		return TestNet, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownNetwork, name)
	}
}

// NetworkFromFlag maps the startup testnet flag onto a Network.
func NetworkFromFlag(testnet bool) Network {
	if testnet {
		return TestNet
	}
	return MainNet
}

// AddressKind selects a base58 version prefix.
type AddressKind int

const (
	PubKeyAddress AddressKind = iota
	ScriptAddress
	SecretKey
	StealthAddress
	ExtPublicKey
	ExtSecretKey
)

func (k AddressKind) String() string {
	switch k {
	case PubKeyAddress:
		return "pubkey"
	case ScriptAddress:
		return "script"
	case SecretKey:
		return "secret"
	case StealthAddress:
		return "stealth"
	case ExtPublicKey:
		return "xpub"
	case ExtSecretKey:
		return "xprv"
	default:
		return fmt.Sprintf("AddressKind(%d)", int(k))
	}
}

// DNSSeed is a named seed host queried for peer addresses.
type DNSSeed struct {
	Name string `yaml:"name" json:"name"`
	Host string `yaml:"host" json:"host"`
}

// NetAddress is a known peer address with a last-seen time.
type NetAddress struct {
	Addr     netip.AddrPort `yaml:"addr" json:"addr"`
	LastSeen time.Time      `yaml:"last_seen" json:"last_seen"`
}

// Checkpoint pins the canonical block hash at a height.
type Checkpoint struct {
	Height int64      `yaml:"height" json:"height"`
	Hash   types.Hash `yaml:"hash" json:"hash"`
}

// Params defines a network by its parameters. A Params value is built once
// by New and must not be modified afterwards; share it by pointer.
type Params struct {
	Name string
	Net  Network

	// NetMagic prefixes every peer message on this network.
	NetMagic    [4]byte
	AlertPubKey []byte
	DefaultPort uint16
	RPCPort     uint16

	// DataDir is the network sub-directory under the node data dir.
	DataDir string

	PowLimit *uint256.Int

	// Base58 version prefixes.
	PubKeyAddrID   byte
	ScriptAddrID   byte
	SecretKeyID    byte
	StealthAddrID  byte
	HDPublicKeyID  [4]byte
	HDPrivateKeyID [4]byte

	DNSSeeds []DNSSeed

	// Darksend pool limits.
	PoolMaxTransactions      int
	DarksendPoolDummyAddress string

	// LastPOWBlock is the last height paying a proof-of-work reward.
	LastPOWBlock int64
	// POSStartBlock is the first height accepting proof-of-stake blocks.
	POSStartBlock int64

	// Checkpoints ordered from oldest to newest.
	Checkpoints []Checkpoint

	genesis       *types.Block
	genesisHash   types.Hash
	rawFixedSeeds [][16]byte
	fixedSeeds    []NetAddress
}

// GenesisBlock returns the network's genesis block. Callers must not mutate it.
func (p *Params) GenesisBlock() *types.Block {
	return p.genesis
}

// GenesisHash returns the pinned hash of the genesis block.
func (p *Params) GenesisHash() types.Hash {
	return p.genesisHash
}

// FixedSeeds returns a copy of the hardcoded seed addresses.
func (p *Params) FixedSeeds() []NetAddress {
	out := make([]NetAddress, len(p.fixedSeeds))
	copy(out, p.fixedSeeds)
	return out
}

// Prefix returns the base58 version bytes for kind.
func (p *Params) Prefix(kind AddressKind) []byte {
	switch kind {
	case PubKeyAddress:
		return []byte{p.PubKeyAddrID}
	case ScriptAddress:
		return []byte{p.ScriptAddrID}
	case SecretKey:
		return []byte{p.SecretKeyID}
	case StealthAddress:
		return []byte{p.StealthAddrID}
	case ExtPublicKey:
		return append([]byte(nil), p.HDPublicKeyID[:]...)
	case ExtSecretKey:
		return append([]byte(nil), p.HDPrivateKeyID[:]...)
	default:
		return nil
	}
}

// DefaultListenAddr returns ":<DefaultPort>".
func (p *Params) DefaultListenAddr() string {
	return fmt.Sprintf(":%d", p.DefaultPort)
}

// DefaultRPCAddr returns "127.0.0.1:<RPCPort>".
func (p *Params) DefaultRPCAddr() string {
	return fmt.Sprintf("127.0.0.1:%d", p.RPCPort)
}
