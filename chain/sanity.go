// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chain

import (
	"github.com/thunderbolt-node/thunderbolt/wire"
)

// checkBlockSanity runs the context-free validity checks on a block: those
// that never depend on chain state.
func (c *Chain) checkBlockSanity(block *wire.Block) error {
	if block.SerializeSize() > wire.MaxBlockSize {
		return ruleError(ErrInvalidBlock, "block exceeds MAX_BLOCK_SIZE")
	}
	hash := block.Hash()
	if !CheckProofOfWork(hash, block.Header.Bits) {
		return ruleError(ErrInvalidBlock, "block hash does not meet target encoded by bits")
	}
	if len(block.Txs) == 0 {
		return ruleError(ErrInvalidBlock, "block has no transactions")
	}
	if got, want := CalcMerkleRoot(block.Txs), block.Header.MerkleRoot; got != want {
		return ruleError(ErrInvalidBlock, "merkle root mismatch")
	}
	for i := range block.Txs {
		if err := checkTransactionSanity(&block.Txs[i], i == 0); err != nil {
			return err
		}
	}
	return nil
}

// checkTransactionSanity runs the checks independent of any UTXO lookup,
// shared by block validation and mempool admission.
func checkTransactionSanity(tx *wire.Transaction, isCoinbase bool) error {
	txid := wire.TxID(tx)
	if len(tx.Inputs) == 0 {
		return txError(txid, "transaction has no inputs")
	}
	if len(tx.Outputs) == 0 {
		return txError(txid, "transaction has no outputs")
	}
	if len(tx.Witnesses) != len(tx.Inputs) {
		return txError(txid, "witness count does not match input count")
	}

	if isCoinbase {
		if len(tx.Inputs) != 1 || !tx.Inputs[0].IsCoinbaseOutPoint() {
			return txError(txid, "coinbase must have exactly one all-zero input")
		}
		return nil
	}

	seen := make(map[wire.OutPoint]bool, len(tx.Inputs))
	for _, in := range tx.Inputs {
		if in.IsCoinbaseOutPoint() {
			return txError(txid, "non-coinbase transaction references coinbase input")
		}
		if seen[in] {
			return txError(txid, "duplicate input within transaction")
		}
		seen[in] = true
	}

	var total uint64
	for _, out := range tx.Outputs {
		total += out.Amount
		if total > wire.MaxMoney {
			return txError(txid, "output total exceeds MAX_MONEY")
		}
	}
	return nil
}
