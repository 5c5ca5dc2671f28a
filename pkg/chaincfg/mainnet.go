package chaincfg

import (
	"encoding/hex"

	"github.com/anchorcoin/anchord/pkg/core/consensus"
	"github.com/anchorcoin/anchord/pkg/core/types"
)

const alertPubKeyHex = "04a983220ea7a38a7106385803fef77896538a382addcc6596c45f3c98751d9af423a097576757576259351a98a8a6a628a1fd644c3232678c5845384c744ff8d7"

// mainNetCheckpoints is the hand-curated hardened table. Keep it ordered by
// height; a block contradicting any entry is rejected with its branch.
func mainNetCheckpoints() []Checkpoint {
	return []Checkpoint{
		{0, genesisHash},
		{1, types.MustHash("99f0be26ff63a62280dfb9e8a041014591d74af2030017ab5177347afeaeb93d")},
		{2, types.MustHash("1af29801364a632dd1539ab7e49ddffa78853c609e3da1ea2be6e6c21b813d4d")},
		{19, types.MustHash("75f66cc2e70176db9a8ec72ac75935845b68ef8a2ef5d3b01f63e6964a8d2db5")},
		{69, types.MustHash("42a46eb20103df84431327272700c5946321a06f71aae2e3c43226f1934c9e02")},
		{84, types.MustHash("b21f8f6259b9b617717d4e6fb41f3378052864e21924aa73699427ade6ba9cd0")},
		{98, types.MustHash("196b6b74d7462e4c4bc2286f5b7ac23e0e8222cf36e010ac0ccc6810432059ad")},
		{101, types.MustHash("282a7f880e1d42b2f3e395a81c7d7ebdabac0cd27c730d35572cd1a4c7b0c569")},
		{220, types.MustHash("4f1ea16d26a5f931f8674ce73de1bcafbc6b5047f32c3b2b0ee01b31a0960be8")},
	}
}

// mainNetParams returns the main network profile as plain data.
func mainNetParams() Params {
	alertKey, err := hex.DecodeString(alertPubKeyHex)
	if err != nil {
		panic(err)
	}

	return Params{
		Name: "main",
		Net:  MainNet,

		// Rarely used upper ASCII, not valid UTF-8, and a large 4-byte int at
		// any alignment.
		NetMagic:    [4]byte{0x2a, 0xf7, 0xd5, 0xe6},
		AlertPubKey: alertKey,
		DefaultPort: 28218,
		RPCPort:     28217,
		DataDir:     "",

		PowLimit: consensus.PowLimitFromShift(16),

		PubKeyAddrID:   60,
		ScriptAddrID:   85,
		SecretKeyID:    153,
		StealthAddrID:  40,
		HDPublicKeyID:  [4]byte{0x04, 0x88, 0xb2, 0x1e},
		HDPrivateKeyID: [4]byte{0x04, 0x88, 0xad, 0xe4},

		DNSSeeds: []DNSSeed{
			{"0", "159.65.245.18"},
			{"1", "159.203.43.8"},
			{"2", "138.68.180.33"},
			{"3", "188.166.226.48"},
			{"4", "174.138.6.72"},
			{"5", "138.68.49.146"},
		},

		PoolMaxTransactions:      3,
		DarksendPoolDummyAddress: "R8gZqgY4r2RoEdqYk3QsAqFckyf9pRHN6i",
		LastPOWBlock:             500000,
		POSStartBlock:            351,

		Checkpoints: mainNetCheckpoints(),

		genesis:       newGenesisBlock(genesisBits, genesisNonce),
		genesisHash:   genesisHash,
		rawFixedSeeds: mainNetFixedSeeds(),
	}
}
