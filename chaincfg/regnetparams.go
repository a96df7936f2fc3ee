// Copyright (c) 2018-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chaincfg

import (
	"math/big"
	"strconv"

	"github.com/thunderbolt-node/thunderbolt/chain"
	"github.com/thunderbolt-node/thunderbolt/wire"
)

// RegNetParams returns the network parameters for the regression test
// network: a trivial proof-of-work limit intended only for unit and RPC
// server tests, never for peer-to-peer use between independent processes
// that need real mining.
func RegNetParams() *Params {
	regNetPowLimit := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 255), big.NewInt(1))

	genesisBlock := &wire.Block{
		Header: wire.BlockHeader{
			Version:   1,
			Timestamp: 1525003294,
			Bits:      chain.BigToCompact(regNetPowLimit),
			Nonce:     0,
		},
		Txs: []wire.Transaction{{
			Version: 1,
			Inputs:  []wire.OutPoint{{}},
			Outputs: []wire.Output{{
				Amount:     chain.BaseSubsidy,
				LockType:   wire.LockUnspendable,
				LockParams: []byte("thunderbolt regnet genesis"),
			}},
			Witnesses: [][]byte{nil},
		}},
	}
	genesisBlock.Header.MerkleRoot = chain.CalcMerkleRoot(genesisBlock.Txs)

	return &Params{
		Name:         "regnet",
		Net:          wire.RegNetMagic,
		DefaultPort:  strconv.Itoa(wire.RegNetPort),
		DNSSeeds:     nil, // regnet peers are always configured explicitly
		GenesisBlock: genesisBlock,
		GenesisHash:  genesisBlock.Hash(),
		PowLimit:     regNetPowLimit,
		PowLimitBits: chain.BigToCompact(regNetPowLimit),
	}
}
