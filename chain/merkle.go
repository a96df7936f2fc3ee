// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chain

import (
	"github.com/thunderbolt-node/thunderbolt/chaincfg/chainhash"
	"github.com/thunderbolt-node/thunderbolt/crypto"
	"github.com/thunderbolt-node/thunderbolt/wire"
)

// CalcMerkleRoot computes the binary merkle root over a block's transaction
// ids, duplicating the final hash of an odd-sized level the standard
// Bitcoin-family way.
func CalcMerkleRoot(txs []wire.Transaction) chainhash.Hash {
	if len(txs) == 0 {
		return chainhash.Hash{}
	}

	level := make([]chainhash.Hash, len(txs))
	for i := range txs {
		level[i] = wire.TxID(&txs[i])
	}

	for len(level) > 1 {
		if len(level)%2 != 0 {
			level = append(level, level[len(level)-1])
		}
		next := make([]chainhash.Hash, len(level)/2)
		for i := range next {
			var buf [64]byte
			copy(buf[:32], level[2*i][:])
			copy(buf[32:], level[2*i+1][:])
			next[i] = chainhash.Hash(crypto.DoubleSha256(buf[:]))
		}
		level = next
	}
	return level[0]
}
