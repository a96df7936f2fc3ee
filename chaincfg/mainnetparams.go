// Copyright (c) 2014-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chaincfg

import (
	"math/big"

	"github.com/thunderbolt-node/thunderbolt/chain"
	"github.com/thunderbolt-node/thunderbolt/wire"
)

// mainNetGenesisMessage is the coinbase output's lock params: an
// unspendable output carrying a short provenance string, in the tradition
// of the genesis coinbase messages Bitcoin-family chains embed.
var mainNetGenesisMessage = []byte("thunderbolt genesis 2018-04-29")

// MainNetParams returns the network parameters for the main Thunderbolt
// network.
func MainNetParams() *Params {
	genesisBlock := &wire.Block{
		Header: wire.BlockHeader{
			Version:   1,
			Timestamp: 1525003294,
			Bits:      0x1dfffff8,
			Nonce:     449327816,
		},
		Txs: []wire.Transaction{{
			Version: 1,
			Inputs:  []wire.OutPoint{{}},
			Outputs: []wire.Output{{
				Amount:     chain.BaseSubsidy,
				LockType:   wire.LockUnspendable,
				LockParams: mainNetGenesisMessage,
			}},
			Witnesses: [][]byte{nil},
		}},
	}
	genesisBlock.Header.MerkleRoot = chain.CalcMerkleRoot(genesisBlock.Txs)

	return &Params{
		Name:        "mainnet",
		Net:         wire.MainNetMagic,
		DefaultPort: "9567",
		DNSSeeds: []string{
			"seed.thunderbolt.io",
			"seed2.thunderbolt.io",
		},
		GenesisBlock: genesisBlock,
		GenesisHash:  genesisBlock.Hash(),
		PowLimit:     new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 224), big.NewInt(1)),
		PowLimitBits: chain.PowLimitBits,
	}
}
