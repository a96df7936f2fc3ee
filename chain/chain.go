// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package chain implements the block acceptance pipeline, fork choice, and
// UTXO set maintenance: the chain engine. Difficulty retargeting and the
// subsidy schedule use the familiar compact<->big target conversion and
// halving schedule found throughout the Bitcoin/Decred family, adapted from
// Decred's stake/treasury-aware retarget down to a plain single-branch
// proof-of-work model.
package chain

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/decred/slog"

	"github.com/thunderbolt-node/thunderbolt/chaincfg/chainhash"
	"github.com/thunderbolt-node/thunderbolt/database/blockstore"
	"github.com/thunderbolt-node/thunderbolt/database/metadb"
	"github.com/thunderbolt-node/thunderbolt/lru"
	"github.com/thunderbolt-node/thunderbolt/wire"
)

const headerCacheSize = 4096

// log is the package-level subsystem logger; the coordinator installs a
// real one at start-up via UseLogger.
var log = slog.Disabled

// UseLogger installs logger as the chain package's output sink.
func UseLogger(logger slog.Logger) {
	log = logger
}

// Chain is the chain engine: the metadata store plus the two segmented
// storage arenas that back it, and the in-memory orphan pool and header
// cache it maintains for fast ancestry walks.
type Chain struct {
	db          *metadb.DB
	blocks      *blockstore.Store
	reverts     *blockstore.Store
	headerCache *lru.Cache[chainhash.Hash, *metadb.BlockMetadata]

	mu  sync.Mutex
	tip *metadb.BlockMetadata

	orphanMu    sync.Mutex
	orphans     map[chainhash.Hash]*wire.Block
	orphanOrder []chainhash.Hash
}

// New constructs a Chain engine over an already-open metadata store and the
// two block/revert storage arenas.
func New(db *metadb.DB, blocks, reverts *blockstore.Store) *Chain {
	return &Chain{
		db:          db,
		blocks:      blocks,
		reverts:     reverts,
		headerCache: lru.New[chainhash.Hash, *metadb.BlockMetadata](headerCacheSize),
		orphans:     make(map[chainhash.Hash]*wire.Block),
	}
}

// Tip returns the current best block's metadata.
func (c *Chain) Tip() *metadb.BlockMetadata {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tip
}

// InitGenesis bootstraps an empty chain with the hard-coded genesis block.
// It is a no-op if a chain head already exists.
func (c *Chain) InitGenesis(genesis *wire.Block) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if head, err := c.db.GetChainHead(); err == nil {
		c.tip = head
		return nil
	} else if err != metadb.ErrNotFound {
		return &RuleError{Kind: ErrStorageError, Reason: err.Error()}
	}

	ptr, err := c.blocks.Store(mustEncodeBlock(genesis))
	if err != nil {
		return &RuleError{Kind: ErrStorageError, Reason: err.Error()}
	}

	meta := &metadb.BlockMetadata{
		Header:    genesis.Header,
		Height:    0,
		TxCount:   uint32(len(genesis.Txs)),
		Status:    metadb.StatusOnMain,
		TotalWork: CalcWork(genesis.Header.Bits),
		BlockPtr:  ptr,
	}

	batch := c.db.NewBatch()
	if err := batch.PutBlockMetadata(meta); err != nil {
		return err
	}
	if err := batch.SetChainHead(meta); err != nil {
		return err
	}
	batch.SetLatestBlockSegment(c.blocks.LatestSegment())
	if err := c.db.Write(batch); err != nil {
		return &RuleError{Kind: ErrStorageError, Reason: err.Error()}
	}

	c.tip = meta
	return nil
}

func mustEncodeBlock(b *wire.Block) []byte {
	var buf bytes.Buffer
	_ = wire.EncodeBlock(&buf, b)
	return buf.Bytes()
}

// AcceptBlock runs the full block acceptance pipeline, then retries any
// orphans that were waiting on this block's hash as their parent.
func (c *Chain) AcceptBlock(block *wire.Block) error {
	hash := block.Hash()
	err := c.acceptOne(block)
	if err == nil || IsOrphan(err) {
		for _, child := range c.takeOrphanChildren(hash) {
			_ = c.AcceptBlock(child)
		}
	}
	return err
}

// acceptOne runs the pipeline for a single block without touching the
// orphan pool's waiting children.
func (c *Chain) acceptOne(block *wire.Block) error {
	if err := c.checkBlockSanity(block); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	hash := block.Hash()
	parent, err := c.getMetadata(block.Header.Parent)
	if err != nil {
		if err == metadb.ErrNotFound {
			c.stashOrphan(block)
			return &RuleError{Kind: ErrOrphan, Reason: fmt.Sprintf("parent %s unknown", block.Header.Parent)}
		}
		return &RuleError{Kind: ErrStorageError, Reason: err.Error()}
	}

	height := parent.Height + 1
	firstTS, err := c.retargetWindowStart(parent, height)
	if err != nil {
		return &RuleError{Kind: ErrStorageError, Reason: err.Error()}
	}
	expectedBits := CalcNextRequiredDifficulty(height, parent.Header.Bits, firstTS, parent.Header.Timestamp)
	if block.Header.Bits != expectedBits {
		return ruleError(ErrInvalidBlock, fmt.Sprintf("bad bits: got %08x want %08x", block.Header.Bits, expectedBits))
	}

	ptr, err := c.blocks.Store(mustEncodeBlock(block))
	if err != nil {
		return &RuleError{Kind: ErrStorageError, Reason: err.Error()}
	}

	candidateWork := parent.TotalWork.Add(CalcWork(block.Header.Bits))
	meta := &metadb.BlockMetadata{
		Header:    block.Header,
		Height:    height,
		TxCount:   uint32(len(block.Txs)),
		TotalWork: candidateWork,
		BlockPtr:  ptr,
	}

	if c.tip != nil && candidateWork.Cmp(c.tip.TotalWork) <= 0 {
		// Side branch: persist and index only, no reorg.
		batch := c.db.NewBatch()
		if err := batch.PutBlockMetadata(meta); err != nil {
			return err
		}
		if err := c.db.Write(batch); err != nil {
			return &RuleError{Kind: ErrStorageError, Reason: err.Error()}
		}
		c.headerCache.Add(hash, meta)
		return nil
	}

	if err := c.reorgTo(meta, block); err != nil {
		meta.Status = metadb.StatusInvalid
		batch := c.db.NewBatch()
		_ = batch.PutBlockMetadata(meta)
		_ = c.db.Write(batch)
		log.Warnf("block %s rejected: %v", hash, err)
		return err
	}

	log.Infof("new chain tip %s at height %d", hash, height)
	c.headerCache.Add(hash, meta)
	return nil
}

// retargetWindowStart returns the timestamp of the block at
// parent.Height-RetargetInterval+1 (that is, height-RetargetInterval) along
// parent's branch, the "first" timestamp
// the actualTimespan retarget calculation needs.
func (c *Chain) retargetWindowStart(parent *metadb.BlockMetadata, height uint64) (uint32, error) {
	if height%RetargetInterval != 0 {
		return 0, nil
	}
	back := uint64(RetargetInterval - 1)
	node := parent
	for node.Height > 0 && back > 0 {
		p, err := c.getMetadata(node.Header.Parent)
		if err != nil {
			return 0, err
		}
		node = p
		back--
	}
	return node.Header.Timestamp, nil
}

func (c *Chain) getMetadata(hash chainhash.Hash) (*metadb.BlockMetadata, error) {
	if m, ok := c.headerCache.Get(hash); ok {
		return m, nil
	}
	m, err := c.db.GetBlockMetadata(hash)
	if err != nil {
		return nil, err
	}
	c.headerCache.Add(hash, m)
	return m, nil
}

// GetBlock returns the full block stored under hash, used to serve GetData
// requests and by the RPC getBlock operation.
func (c *Chain) GetBlock(hash chainhash.Hash) (*wire.Block, error) {
	meta, err := c.getMetadata(hash)
	if err != nil {
		return nil, err
	}
	return c.loadBlock(meta)
}

func (c *Chain) loadBlock(meta *metadb.BlockMetadata) (*wire.Block, error) {
	data, err := c.blocks.Retrieve(meta.BlockPtr)
	if err != nil {
		return nil, err
	}
	b, err := wire.DecodeBlock(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// stashOrphan records block in the bounded FIFO orphan pool, dropping the
// oldest entry once full.
func (c *Chain) stashOrphan(block *wire.Block) {
	c.orphanMu.Lock()
	defer c.orphanMu.Unlock()

	hash := block.Hash()
	if _, ok := c.orphans[hash]; ok {
		return
	}
	if len(c.orphanOrder) >= OrphanPoolCapacity {
		oldest := c.orphanOrder[0]
		c.orphanOrder = c.orphanOrder[1:]
		delete(c.orphans, oldest)
	}
	c.orphans[hash] = block
	c.orphanOrder = append(c.orphanOrder, hash)
}

// takeOrphanChildren removes and returns any orphans whose declared parent
// is hash, for AcceptBlock to retry now that the parent has landed.
func (c *Chain) takeOrphanChildren(hash chainhash.Hash) []*wire.Block {
	c.orphanMu.Lock()
	defer c.orphanMu.Unlock()
	var remaining []chainhash.Hash
	var ready []*wire.Block
	for _, h := range c.orphanOrder {
		b := c.orphans[h]
		if b.Header.Parent == hash {
			ready = append(ready, b)
			delete(c.orphans, h)
			continue
		}
		remaining = append(remaining, h)
	}
	c.orphanOrder = remaining
	return ready
}
