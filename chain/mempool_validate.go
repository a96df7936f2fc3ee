// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chain

import (
	"github.com/thunderbolt-node/thunderbolt/database/metadb"
	"github.com/thunderbolt-node/thunderbolt/wire"
)

// ValidateForMempool runs the non-contextual checks of checkTransactionSanity
// plus the contextual checks the mempool must run against the current
// tip's UTXO set: input resolution, coinbase maturity, unlock
// verification, and value conservation. It returns the transaction's fee
// (inputSum - outputSum) on success.
func (c *Chain) ValidateForMempool(tx *wire.Transaction, tip *metadb.BlockMetadata) (uint64, error) {
	if err := checkTransactionSanity(tx, false); err != nil {
		return 0, err
	}

	txid := wire.TxID(tx)
	seen := make(map[wire.OutPoint]bool, len(tx.Inputs))
	var inputSum uint64
	for idx := range tx.Inputs {
		in := tx.Inputs[idx]
		if seen[in] {
			return 0, txError(txid, "duplicate input within transaction")
		}
		seen[in] = true

		entry, err := c.db.GetUtxo(in.RefTx, in.Index)
		if err != nil {
			if err == metadb.ErrNotFound {
				return 0, txError(txid, "input references unknown or already-spent output")
			}
			return 0, &RuleError{Kind: ErrStorageError, Reason: err.Error()}
		}

		if entry.IsCoinbase && tip.Height+1 < entry.BlockHeight+CoinbaseMaturity {
			return 0, txError(txid, "spends immature coinbase")
		}

		if idx >= len(tx.Witnesses) {
			return 0, txError(txid, "missing witness for input")
		}
		if err := checkUnlock(&in, entry, tx.Witnesses[idx]); err != nil {
			return 0, txError(txid, err.Error())
		}

		inputSum += entry.Output.Amount
	}

	var outputSum uint64
	for _, out := range tx.Outputs {
		outputSum += out.Amount
	}
	if inputSum < outputSum {
		return 0, txError(txid, "outputs exceed inputs")
	}
	return inputSum - outputSum, nil
}
