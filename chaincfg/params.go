// Copyright (c) 2014-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chaincfg

import (
	"math/big"

	"github.com/thunderbolt-node/thunderbolt/chaincfg/chainhash"
	"github.com/thunderbolt-node/thunderbolt/wire"
)

// Params identifies everything that differs between the Thunderbolt
// networks: the wire magic, genesis block, proof-of-work floor, and the
// bootstrap DNS seeds and peer-discovery defaults. The
// consensus rules themselves (retarget interval, subsidy schedule, coinbase
// maturity) are fixed across networks and live in the chain package.
type Params struct {
	// Name is the network's human-readable identifier, used in logging and
	// the data-directory path.
	Name string

	// Net is the wire protocol magic distinguishing this network's peers
	// from every other network's MessageHeader.magic.
	Net uint32

	// DefaultPort is the TCP port peers on this network listen on by
	// default.
	DefaultPort string

	// DNSSeeds lists the network's bootstrap hostnames. Nothing in this
	// module resolves them: connmgr bootstraps from the addrmgr address book
	// and the seed list passed to addrmgr.New.
	DNSSeeds []string

	// GenesisBlock is the network's hard-coded first block.
	GenesisBlock *wire.Block

	// GenesisHash is GenesisBlock.Hash(), cached since it never changes.
	GenesisHash chainhash.Hash

	// PowLimit is the highest (easiest) target any block on this network
	// may have.
	PowLimit *big.Int

	// PowLimitBits is PowLimit encoded in compact form. The test, regression
	// and simulation genesis blocks carry this value; the main-net genesis
	// block carries its fixed fixture bits 0x1dfffff8 instead.
	PowLimitBits uint32
}
