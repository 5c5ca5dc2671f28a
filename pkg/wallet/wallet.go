// Package wallet derives keys and base58check strings using the version
// prefixes of the selected network profile.
package wallet

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/anchorcoin/anchord/pkg/chaincfg"
	"github.com/anchorcoin/anchord/pkg/core/types"
	"github.com/btcsuite/btcutil/base58"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"golang.org/x/crypto/ripemd160"
)

var (
	ErrWrongNetwork  = errors.New("address belongs to another network")
	ErrInvalidFormat = errors.New("invalid base58check string")
	ErrInvalidKey    = errors.New("invalid private key")
)

// compressedFlag marks a WIF key whose public key is compressed.
const compressedFlag = 0x01

// GenerateKey generates a new secp256k1 private key.
func GenerateKey() (*secp256k1.PrivateKey, error) {
	return secp256k1.GeneratePrivateKey()
}

// Hash160 is RIPEMD160(SHA256(b)).
func Hash160(b []byte) []byte {
	sum := sha256.Sum256(b)
	h := ripemd160.New()
	h.Write(sum[:])
	return h.Sum(nil)
}

// PubKeyHashAddress encodes the compressed public key's hash as a
// pay-to-pubkey-hash address for params.
func PubKeyHashAddress(params *chaincfg.Params, pub *secp256k1.PublicKey) string {
	return base58.CheckEncode(Hash160(pub.SerializeCompressed()), params.PubKeyAddrID)
}

// ScriptHashAddress encodes the hash of script as a pay-to-script-hash
// address for params.
func ScriptHashAddress(params *chaincfg.Params, script []byte) string {
	return base58.CheckEncode(Hash160(script), params.ScriptAddrID)
}

// Address is a decoded address.
type Address struct {
	Kind chaincfg.AddressKind
	Hash []byte
}

// PayToScript returns the output script that pays a.
func (a Address) PayToScript() []byte {
	b := types.NewScriptBuilder()
	if a.Kind == chaincfg.ScriptAddress {
		return b.AddOp(types.OP_HASH160).AddData(a.Hash).AddOp(types.OP_EQUAL).Script()
	}
	return b.AddOp(types.OP_DUP).AddOp(types.OP_HASH160).AddData(a.Hash).
		AddOp(types.OP_EQUALVERIFY).AddOp(types.OP_CHECKSIG).Script()
}

// PubKeyHashScript returns the pay-to-pubkey-hash script of pub.
func PubKeyHashScript(pub *secp256k1.PublicKey) []byte {
	return Address{Kind: chaincfg.PubKeyAddress, Hash: Hash160(pub.SerializeCompressed())}.PayToScript()
}

// DecodeAddress decodes s and checks its version byte against params.
func DecodeAddress(params *chaincfg.Params, s string) (Address, error) {
	payload, version, err := base58.CheckDecode(strings.TrimSpace(s))
	if err != nil {
		return Address{}, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	if len(payload) != ripemd160.Size {
		return Address{}, fmt.Errorf("%w: payload is %d bytes", ErrInvalidFormat, len(payload))
	}
	switch version {
	case params.PubKeyAddrID:
		return Address{Kind: chaincfg.PubKeyAddress, Hash: payload}, nil
	case params.ScriptAddrID:
		return Address{Kind: chaincfg.ScriptAddress, Hash: payload}, nil
	default:
		return Address{}, fmt.Errorf("%w: version %d on %s", ErrWrongNetwork, version, params.Name)
	}
}

// EncodePrivateKey returns key in wallet import format for params.
func EncodePrivateKey(params *chaincfg.Params, key *secp256k1.PrivateKey) string {
	payload := append(key.Serialize(), compressedFlag)
	return base58.CheckEncode(payload, params.SecretKeyID)
}

// DecodePrivateKey parses a wallet import format key for params.
func DecodePrivateKey(params *chaincfg.Params, wif string) (*secp256k1.PrivateKey, error) {
	payload, version, err := base58.CheckDecode(strings.TrimSpace(wif))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	if version != params.SecretKeyID {
		return nil, fmt.Errorf("%w: version %d on %s", ErrWrongNetwork, version, params.Name)
	}
	switch {
	case len(payload) == secp256k1.PrivKeyBytesLen+1 && payload[secp256k1.PrivKeyBytesLen] == compressedFlag:
		payload = payload[:secp256k1.PrivKeyBytesLen]
	case len(payload) == secp256k1.PrivKeyBytesLen:
	default:
		return nil, ErrInvalidKey
	}
	return secp256k1.PrivKeyFromBytes(payload), nil
}

// SaveKey saves the private key to a file in wallet import format.
func SaveKey(params *chaincfg.Params, filename string, key *secp256k1.PrivateKey) error {
	return os.WriteFile(filename, []byte(EncodePrivateKey(params, key)+"\n"), 0600)
}

// LoadKey loads a private key saved by SaveKey.
func LoadKey(params *chaincfg.Params, filename string) (*secp256k1.PrivateKey, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return DecodePrivateKey(params, string(data))
}

// PubKeyHex returns the compressed public key in hex.
func PubKeyHex(pub *secp256k1.PublicKey) string {
	return hex.EncodeToString(pub.SerializeCompressed())
}
