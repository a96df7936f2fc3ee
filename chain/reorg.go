// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chain

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/thunderbolt-node/thunderbolt/chaincfg/chainhash"
	"github.com/thunderbolt-node/thunderbolt/database/blockstore"
	"github.com/thunderbolt-node/thunderbolt/database/metadb"
	"github.com/thunderbolt-node/thunderbolt/wire"
)

// reorgTo makes newMeta/newBlock the chain tip, disconnecting down to the
// common ancestor with the current tip and reconnecting up the candidate
// branch. newMeta has not yet been persisted; it is written as part of the
// final connect step.
func (c *Chain) reorgTo(newMeta *metadb.BlockMetadata, newBlock *wire.Block) error {
	if c.tip == nil {
		return c.connectBlock(newMeta, newBlock)
	}

	_, disconnectPath, connectAncestors, err := c.findReorgPlan(newMeta)
	if err != nil {
		return err
	}

	for _, m := range disconnectPath {
		if err := c.disconnectBlock(m); err != nil {
			return fmt.Errorf("disconnect %s: %w", m.Hash(), err)
		}
	}

	connected := 0
	rollback := func() {
		for i := connected - 1; i >= 0; i-- {
			_ = c.disconnectBlock(connectAncestors[i])
		}
		for i := len(disconnectPath) - 1; i >= 0; i-- {
			m := disconnectPath[i]
			b, lerr := c.loadBlock(m)
			if lerr != nil {
				continue
			}
			_ = c.connectBlock(m, b)
		}
	}

	for _, m := range connectAncestors {
		b, lerr := c.loadBlock(m)
		if lerr != nil {
			rollback()
			return &RuleError{Kind: ErrStorageError, Reason: lerr.Error()}
		}
		if err := c.connectBlock(m, b); err != nil {
			rollback()
			return err
		}
		connected++
	}

	if err := c.connectBlock(newMeta, newBlock); err != nil {
		rollback()
		return err
	}

	return nil
}

// findReorgPlan returns the common ancestor of the current tip and
// newMeta's branch, the blocks to disconnect (tip down to, but excluding,
// the ancestor, ordered newest first) and the blocks on the candidate
// branch to connect before newMeta (ancestor's child up to newMeta's
// parent, ordered oldest first).
func (c *Chain) findReorgPlan(newMeta *metadb.BlockMetadata) (*metadb.BlockMetadata, []*metadb.BlockMetadata, []*metadb.BlockMetadata, error) {
	tipChain := []*metadb.BlockMetadata{}
	node := c.tip
	for {
		tipChain = append(tipChain, node)
		if node.Height == 0 {
			break
		}
		p, err := c.getMetadata(node.Header.Parent)
		if err != nil {
			return nil, nil, nil, &RuleError{Kind: ErrStorageError, Reason: err.Error()}
		}
		node = p
	}
	tipIndex := make(map[chainhash.Hash]int, len(tipChain))
	for i, m := range tipChain {
		tipIndex[m.Hash()] = i
	}

	candidateChain := []*metadb.BlockMetadata{}
	node, err := c.getMetadata(newMeta.Header.Parent)
	if err != nil {
		return nil, nil, nil, &RuleError{Kind: ErrStorageError, Reason: err.Error()}
	}
	var ancestorIdx int
	for {
		if idx, ok := tipIndex[node.Hash()]; ok {
			ancestorIdx = idx
			break
		}
		candidateChain = append(candidateChain, node)
		if node.Height == 0 {
			return nil, nil, nil, ruleError(ErrInvalidBlock, "no common ancestor with main chain")
		}
		p, err := c.getMetadata(node.Header.Parent)
		if err != nil {
			return nil, nil, nil, &RuleError{Kind: ErrStorageError, Reason: err.Error()}
		}
		node = p
	}

	ancestor := tipChain[ancestorIdx]
	disconnectPath := tipChain[:ancestorIdx]

	connectAncestors := make([]*metadb.BlockMetadata, len(candidateChain))
	for i, m := range candidateChain {
		connectAncestors[len(candidateChain)-1-i] = m
	}

	return ancestor, disconnectPath, connectAncestors, nil
}

// RevertRecord is the ordered list of UTXO entries a block consumed, the
// disconnect payload needed to undo it during a reorg.
type RevertRecord struct {
	Consumed []metadb.UtxoEntry
}

func encodeRevertRecord(r *RevertRecord) ([]byte, error) {
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, uint32(len(r.Consumed))); err != nil {
		return nil, err
	}
	for i := range r.Consumed {
		data, err := r.Consumed[i].Encode()
		if err != nil {
			return nil, err
		}
		if err := binary.Write(&buf, binary.LittleEndian, uint32(len(data))); err != nil {
			return nil, err
		}
		buf.Write(data)
	}
	return buf.Bytes(), nil
}

func decodeRevertRecord(data []byte) (*RevertRecord, error) {
	r := bytes.NewReader(data)
	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, err
	}
	rec := &RevertRecord{Consumed: make([]metadb.UtxoEntry, count)}
	for i := range rec.Consumed {
		var length uint32
		if err := binary.Read(r, binary.LittleEndian, &length); err != nil {
			return nil, err
		}
		buf := make([]byte, length)
		if _, err := r.Read(buf); err != nil {
			return nil, err
		}
		entry, err := metadb.DecodeUtxoEntry(buf)
		if err != nil {
			return nil, err
		}
		rec.Consumed[i] = *entry
	}
	return rec, nil
}

// connectBlock runs contextual validation, mutates the UTXO set, persists
// the revert record, and publishes meta as the new chain head, all in one
// atomic metadata-store batch.
func (c *Chain) connectBlock(meta *metadb.BlockMetadata, block *wire.Block) error {
	consumed, err := c.validateConnect(meta, block)
	if err != nil {
		return err
	}

	revertPtr, err := c.persistRevert(consumed)
	if err != nil {
		return &RuleError{Kind: ErrStorageError, Reason: err.Error()}
	}
	meta.RevertPtr = revertPtr
	meta.Status = metadb.StatusOnMain

	batch := c.db.NewBatch()
	for i := range block.Txs {
		txid := wire.TxID(&block.Txs[i])
		for idx := range block.Txs[i].Inputs {
			in := &block.Txs[i].Inputs[idx]
			if in.IsCoinbaseOutPoint() {
				continue
			}
			batch.DeleteUtxo(in.RefTx, in.Index)
		}
		for idx := range block.Txs[i].Outputs {
			entry := &metadb.UtxoEntry{
				TxID:        txid,
				Index:       uint32(idx),
				BlockHeight: meta.Height,
				Version:     block.Txs[i].Version,
				IsCoinbase:  i == 0,
				Output:      block.Txs[i].Outputs[idx],
			}
			if err := batch.PutUtxo(entry); err != nil {
				return err
			}
		}
		txMeta := &metadb.TxMetadata{TxID: txid, BlockPtr: meta.BlockPtr, PositionInBlock: uint32(i)}
		if err := batch.PutTxMetadata(txMeta); err != nil {
			return err
		}
	}
	if err := batch.PutBlockMetadata(meta); err != nil {
		return err
	}
	if err := batch.SetChainHead(meta); err != nil {
		return err
	}
	batch.SetLatestBlockSegment(c.blocks.LatestSegment())
	batch.SetLatestRevertSegment(c.reverts.LatestSegment())

	if err := c.db.Write(batch); err != nil {
		return &RuleError{Kind: ErrStorageError, Reason: err.Error()}
	}

	c.tip = meta
	c.headerCache.Add(meta.Hash(), meta)
	return nil
}

func (c *Chain) persistRevert(consumed []metadb.UtxoEntry) (blockstore.Pointer, error) {
	data, err := encodeRevertRecord(&RevertRecord{Consumed: consumed})
	if err != nil {
		return blockstore.Pointer{}, err
	}
	return c.reverts.Store(data)
}

// disconnectBlock undoes connectBlock: re-inserts the UTXO entries the
// block consumed, and removes the entries it created.
func (c *Chain) disconnectBlock(meta *metadb.BlockMetadata) error {
	data, err := c.reverts.Retrieve(meta.RevertPtr)
	if err != nil {
		return err
	}
	rec, err := decodeRevertRecord(data)
	if err != nil {
		return err
	}

	block, err := c.loadBlock(meta)
	if err != nil {
		return err
	}

	batch := c.db.NewBatch()
	for i := range rec.Consumed {
		e := rec.Consumed[i]
		if err := batch.PutUtxo(&e); err != nil {
			return err
		}
	}
	for i := range block.Txs {
		txid := wire.TxID(&block.Txs[i])
		for idx := range block.Txs[i].Outputs {
			batch.DeleteUtxo(txid, uint32(idx))
		}
	}
	meta.Status &^= metadb.StatusOnMain
	if err := batch.PutBlockMetadata(meta); err != nil {
		return err
	}
	if err := c.db.Write(batch); err != nil {
		return &RuleError{Kind: ErrStorageError, Reason: err.Error()}
	}
	c.headerCache.Add(meta.Hash(), meta)
	return nil
}
