package chaincfg

// testNetParams derives the test network from a fresh copy of the main
// network data by explicit field overrides.
func testNetParams() Params {
	p := mainNetParams()

	p.Name = "testnet"
	p.Net = TestNet
	p.NetMagic = [4]byte{0xa2, 0xe3, 0xb9, 0x4c}
	p.DefaultPort = 38218
	p.RPCPort = 38217
	p.DataDir = "testnet"

	// Same proof fields as main, so the genesis hash is unchanged.
	p.genesis = newGenesisBlock(genesisBits, genesisNonce)
	p.genesisHash = genesisHash

	p.DNSSeeds = nil
	p.rawFixedSeeds = nil

	p.PubKeyAddrID = 127
	p.ScriptAddrID = 196
	p.SecretKeyID = 239
	p.StealthAddrID = 40
	p.HDPublicKeyID = [4]byte{0x04, 0x35, 0x87, 0xcf}
	p.HDPrivateKeyID = [4]byte{0x04, 0x35, 0x83, 0x94}

	p.LastPOWBlock = 0x7fffffff

	p.Checkpoints = nil
	return p
}
