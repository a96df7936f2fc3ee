// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chain

import (
	"fmt"

	"github.com/thunderbolt-node/thunderbolt/chaincfg/chainhash"
	"github.com/thunderbolt-node/thunderbolt/database/metadb"
	"github.com/thunderbolt-node/thunderbolt/wire"
)

// validateConnect runs per-connected-block contextual validation and
// returns the list of UtxoEntry the block consumed, in block-input order,
// for the revert record.
func (c *Chain) validateConnect(meta *metadb.BlockMetadata, block *wire.Block) ([]metadb.UtxoEntry, error) {
	if len(block.Txs) == 0 {
		return nil, ruleError(ErrInvalidBlock, "block has no transactions")
	}

	var consumed []metadb.UtxoEntry
	usedInputs := make(map[wire.OutPoint]bool)
	inBlockOutputs := make(map[wire.OutPoint]*metadb.UtxoEntry)
	var totalFees uint64

	for i := range block.Txs {
		tx := &block.Txs[i]
		txid := wire.TxID(tx)

		if i == 0 {
			registerOutputs(inBlockOutputs, txid, meta.Height, tx, true)
			continue
		}

		var inputSum uint64
		for idx := range tx.Inputs {
			in := tx.Inputs[idx]
			if usedInputs[in] {
				return nil, txError(txid, "input used more than once in this block")
			}
			usedInputs[in] = true

			entry, ok := inBlockOutputs[in]
			if !ok {
				var err error
				entry, err = c.db.GetUtxo(in.RefTx, in.Index)
				if err != nil {
					if err == metadb.ErrNotFound {
						return nil, txError(txid, "input references unknown or already-spent output")
					}
					return nil, &RuleError{Kind: ErrStorageError, Reason: err.Error()}
				}
			}

			if entry.IsCoinbase && meta.Height < entry.BlockHeight+CoinbaseMaturity {
				return nil, txError(txid, "spends immature coinbase")
			}

			if idx >= len(tx.Witnesses) {
				return nil, txError(txid, "missing witness for input")
			}
			if err := checkUnlock(&in, entry, tx.Witnesses[idx]); err != nil {
				return nil, txError(txid, err.Error())
			}

			inputSum += entry.Output.Amount
			consumed = append(consumed, *entry)
			delete(inBlockOutputs, in)
		}

		var outputSum uint64
		for _, out := range tx.Outputs {
			outputSum += out.Amount
		}
		if inputSum < outputSum {
			return nil, txError(txid, "outputs exceed inputs")
		}
		totalFees += inputSum - outputSum

		registerOutputs(inBlockOutputs, txid, meta.Height, tx, false)
	}

	var coinbaseSum uint64
	for _, out := range block.Txs[0].Outputs {
		coinbaseSum += out.Amount
	}
	subsidy := CalcBlockSubsidy(meta.Height)
	if coinbaseSum > subsidy+totalFees {
		return nil, &RuleError{
			Kind:   ErrCoinbaseOverpay,
			Reason: fmt.Sprintf("coinbase claims %d, entitled to at most %d", coinbaseSum, subsidy+totalFees),
		}
	}

	return consumed, nil
}

// registerOutputs records tx's own outputs in the in-block UTXO view so a
// later transaction in the same block may reference them, allowing
// topological ordering within a block.
func registerOutputs(into map[wire.OutPoint]*metadb.UtxoEntry, txid chainhash.Hash, height uint64, tx *wire.Transaction, isCoinbase bool) {
	for idx := range tx.Outputs {
		op := wire.OutPoint{RefTx: txid, Index: uint32(idx)}
		into[op] = &metadb.UtxoEntry{
			TxID:        txid,
			Index:       uint32(idx),
			BlockHeight: height,
			Version:     tx.Version,
			IsCoinbase:  isCoinbase,
			Output:      tx.Outputs[idx],
		}
	}
}
