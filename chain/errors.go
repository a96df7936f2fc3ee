// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chain

import (
	"fmt"

	"github.com/thunderbolt-node/thunderbolt/chaincfg/chainhash"
)

// ErrorKind identifies the class of failure block/transaction acceptance
// can return. The coordinator dispatches on kind: Orphan is retryable,
// InvalidBlock and InvalidTransaction are permanent, StorageError aborts the
// engine entirely.
type ErrorKind int

const (
	// ErrOrphan means the block's parent is not yet known; it is held in
	// the orphan pool rather than rejected.
	ErrOrphan ErrorKind = iota
	// ErrInvalidBlock means the block fails a non-contextual or header
	// context check and must never be revisited.
	ErrInvalidBlock
	// ErrInvalidTransaction means a specific transaction inside an
	// otherwise well-formed block fails contextual validation.
	ErrInvalidTransaction
	// ErrStorageError means a read or write against the block or metadata
	// store failed; the engine's caller must treat the chain state as
	// untrustworthy.
	ErrStorageError
	// ErrCoinbaseOverpay means a block's coinbase claims more than
	// subsidy(height) plus collected fees.
	ErrCoinbaseOverpay
)

func (k ErrorKind) String() string {
	switch k {
	case ErrOrphan:
		return "orphan"
	case ErrInvalidBlock:
		return "invalid-block"
	case ErrInvalidTransaction:
		return "invalid-transaction"
	case ErrStorageError:
		return "storage-error"
	case ErrCoinbaseOverpay:
		return "coinbase-overpay"
	default:
		return "unknown"
	}
}

// RuleError is the typed error the chain engine returns for every block or
// transaction rejection path.
type RuleError struct {
	Kind   ErrorKind
	TxID   chainhash.Hash // only meaningful for ErrInvalidTransaction
	Reason string
}

func (e *RuleError) Error() string {
	if e.Kind == ErrInvalidTransaction {
		return fmt.Sprintf("chain: %s: tx %s: %s", e.Kind, e.TxID, e.Reason)
	}
	return fmt.Sprintf("chain: %s: %s", e.Kind, e.Reason)
}

func ruleError(kind ErrorKind, reason string) *RuleError {
	return &RuleError{Kind: kind, Reason: reason}
}

func txError(txid chainhash.Hash, reason string) *RuleError {
	return &RuleError{Kind: ErrInvalidTransaction, TxID: txid, Reason: reason}
}

// IsOrphan reports whether err is a RuleError of kind ErrOrphan.
func IsOrphan(err error) bool {
	re, ok := err.(*RuleError)
	return ok && re.Kind == ErrOrphan
}
