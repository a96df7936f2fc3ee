// Copyright (c) 2014-2016 The btcsuite developers
// Copyright (c) 2015-2019 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chaincfg

import (
	"math/big"
	"strconv"

	"github.com/thunderbolt-node/thunderbolt/chain"
	"github.com/thunderbolt-node/thunderbolt/wire"
)

// SimNetParams returns the network parameters for the simulation network,
// used for integration tests between independent thunderbolt processes
// (wallets, multiple nodes) where real mining still needs to be feasible
// on commodity hardware, unlike regnet.
func SimNetParams() *Params {
	simNetPowLimit := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 238), big.NewInt(1))

	genesisBlock := &wire.Block{
		Header: wire.BlockHeader{
			Version:   1,
			Timestamp: 1525003294,
			Bits:      chain.BigToCompact(simNetPowLimit),
			Nonce:     0,
		},
		Txs: []wire.Transaction{{
			Version: 1,
			Inputs:  []wire.OutPoint{{}},
			Outputs: []wire.Output{{
				Amount:     chain.BaseSubsidy,
				LockType:   wire.LockUnspendable,
				LockParams: []byte("thunderbolt simnet genesis"),
			}},
			Witnesses: [][]byte{nil},
		}},
	}
	genesisBlock.Header.MerkleRoot = chain.CalcMerkleRoot(genesisBlock.Txs)

	return &Params{
		Name:         "simnet",
		Net:          wire.SimNetMagic,
		DefaultPort:  strconv.Itoa(wire.SimNetPort),
		DNSSeeds:     nil,
		GenesisBlock: genesisBlock,
		GenesisHash:  genesisBlock.Hash(),
		PowLimit:     simNetPowLimit,
		PowLimitBits: chain.BigToCompact(simNetPowLimit),
	}
}
