// Copyright (c) 2014-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chaincfg

import (
	"math/big"
	"strconv"

	"github.com/thunderbolt-node/thunderbolt/chain"
	"github.com/thunderbolt-node/thunderbolt/wire"
)

// TestNetParams returns the network parameters for the public test network.
// Its proof-of-work limit is looser than main-net's so that test miners
// without dedicated hardware can still produce blocks.
func TestNetParams() *Params {
	testNetPowLimit := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 232), big.NewInt(1))

	genesisBlock := &wire.Block{
		Header: wire.BlockHeader{
			Version:   1,
			Timestamp: 1525003294,
			Bits:      chain.BigToCompact(testNetPowLimit),
			Nonce:     0,
		},
		Txs: []wire.Transaction{{
			Version: 1,
			Inputs:  []wire.OutPoint{{}},
			Outputs: []wire.Output{{
				Amount:     chain.BaseSubsidy,
				LockType:   wire.LockUnspendable,
				LockParams: []byte("thunderbolt testnet genesis"),
			}},
			Witnesses: [][]byte{nil},
		}},
	}
	genesisBlock.Header.MerkleRoot = chain.CalcMerkleRoot(genesisBlock.Txs)

	return &Params{
		Name:        "testnet",
		Net:         wire.TestNetMagic,
		DefaultPort: strconv.Itoa(wire.TestNetPort),
		DNSSeeds: []string{
			"testnet-seed.thunderbolt.io",
		},
		GenesisBlock: genesisBlock,
		GenesisHash:  genesisBlock.Hash(),
		PowLimit:     testNetPowLimit,
		PowLimitBits: chain.BigToCompact(testNetPowLimit),
	}
}
