// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package mempool implements the transaction validator and pending-transaction
// pool: an in-memory txid-keyed map with a running byte-size
// counter, lowest-fee-rate-first eviction once the pool exceeds its byte
// budget, and a pick operation returning the best candidates for block
// inclusion.
package mempool

import (
	"sort"
	"sync"

	"github.com/decred/slog"

	"github.com/thunderbolt-node/thunderbolt/chain"
	"github.com/thunderbolt-node/thunderbolt/chaincfg/chainhash"
	"github.com/thunderbolt-node/thunderbolt/wire"
)

// log is the package-level subsystem logger; the coordinator installs a
// real one at start-up via UseLogger.
var log = slog.Disabled

// UseLogger installs logger as the mempool package's output sink.
func UseLogger(logger slog.Logger) {
	log = logger
}

// TxDesc describes a transaction admitted to the pool: the transaction
// itself plus the fee it pays, cached at admission time since recomputing it
// would require re-resolving every input against the UTXO set.
type TxDesc struct {
	Tx   *wire.Transaction
	Fee  uint64
	Size int
}

// FeeRate is fee paid per byte of serialized transaction size, the ordering
// key pick() and eviction both use.
func (d *TxDesc) FeeRate() float64 {
	if d.Size == 0 {
		return 0
	}
	return float64(d.Fee) / float64(d.Size)
}

// Pool is the mempool: a txid-keyed map of admitted transactions guarded by
// a single mutex, mirroring the chain package's own mutex-guarded-map idiom.
type Pool struct {
	chain *chain.Chain

	mu         sync.RWMutex
	txs        map[chainhash.Hash]*TxDesc
	byOutpoint map[wire.OutPoint]chainhash.Hash
	totalBytes int
}

// New constructs an empty pool that validates admissions against c's
// current tip.
func New(c *chain.Chain) *Pool {
	return &Pool{
		chain:      c,
		txs:        make(map[chainhash.Hash]*TxDesc),
		byOutpoint: make(map[wire.OutPoint]chainhash.Hash),
	}
}

// Len returns the number of transactions currently held.
func (p *Pool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.txs)
}

// Have reports whether txid is already in the pool.
func (p *Pool) Have(txid chainhash.Hash) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.txs[txid]
	return ok
}

// Get returns the pooled transaction for txid, if any.
func (p *Pool) Get(txid chainhash.Hash) (*wire.Transaction, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	d, ok := p.txs[txid]
	if !ok {
		return nil, false
	}
	return d.Tx, true
}

// AddTransaction validates tx against the current chain tip and, if it
// passes, admits it to the pool, evicting the lowest fee-rate entries
// first if that would push the pool past MempoolMaxBytes.
func (p *Pool) AddTransaction(tx *wire.Transaction) error {
	tip := p.chain.Tip()
	if tip == nil {
		return chainErrorf("chain has no tip yet")
	}

	fee, err := p.chain.ValidateForMempool(tx, tip)
	if err != nil {
		return err
	}

	txid := wire.TxID(tx)
	size := tx.SerializeSize()

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.txs[txid]; exists {
		return nil
	}
	for _, in := range tx.Inputs {
		if other, ok := p.byOutpoint[in]; ok {
			return txConflictErrorf(txid, other)
		}
	}

	desc := &TxDesc{Tx: tx, Fee: fee, Size: size}
	p.txs[txid] = desc
	for _, in := range tx.Inputs {
		p.byOutpoint[in] = txid
	}
	p.totalBytes += size

	p.evictIfOverCapacity()
	return nil
}

// Remove drops txid from the pool, e.g. because it was just mined into a
// connected block.
func (p *Pool) Remove(txid chainhash.Hash) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.removeLocked(txid)
}

func (p *Pool) removeLocked(txid chainhash.Hash) {
	d, ok := p.txs[txid]
	if !ok {
		return
	}
	delete(p.txs, txid)
	p.totalBytes -= d.Size
	for _, in := range d.Tx.Inputs {
		if p.byOutpoint[in] == txid {
			delete(p.byOutpoint, in)
		}
	}
}

// RemoveConfirmed drops every transaction in block from the pool, called
// after the chain engine connects the block: a mined input can no longer
// be spent again from the pool.
func (p *Pool) RemoveConfirmed(block *wire.Block) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range block.Txs {
		p.removeLocked(wire.TxID(&block.Txs[i]))
	}
}

// evictIfOverCapacity drops the lowest fee-rate transactions until the pool
// is back under MempoolMaxBytes. Callers must hold p.mu.
func (p *Pool) evictIfOverCapacity() {
	for p.totalBytes > chain.MempoolMaxBytes && len(p.txs) > 0 {
		var worstID chainhash.Hash
		var worst *TxDesc
		for id, d := range p.txs {
			if worst == nil || d.FeeRate() < worst.FeeRate() {
				worstID, worst = id, d
			}
		}
		log.Debugf("evicting %s to stay under mempool byte budget", worstID)
		p.removeLocked(worstID)
	}
}

// Pick returns up to max transactions ordered by descending fee rate, the
// candidate set for block template construction.
func (p *Pool) Pick(max int) []*wire.Transaction {
	p.mu.RLock()
	defer p.mu.RUnlock()

	descs := make([]*TxDesc, 0, len(p.txs))
	for _, d := range p.txs {
		descs = append(descs, d)
	}
	sort.Slice(descs, func(i, j int) bool {
		return descs[i].FeeRate() > descs[j].FeeRate()
	})
	if max <= 0 || max > len(descs) {
		max = len(descs)
	}
	out := make([]*wire.Transaction, max)
	for i := 0; i < max; i++ {
		out[i] = descs[i].Tx
	}
	return out
}

func chainErrorf(msg string) error {
	return &poolError{msg: msg}
}

func txConflictErrorf(txid, other chainhash.Hash) error {
	return &poolError{msg: "input already spent by pooled transaction " + other.String() + " (tx " + txid.String() + ")"}
}

type poolError struct{ msg string }

func (e *poolError) Error() string { return e.msg }
