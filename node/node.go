// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package node implements the node coordinator: the single place that owns
// the chain engine, mempool, peer manager, address book, and IBD. It
// receives every inbound message the peer manager forwards (on the sending
// peer's reader goroutine) and runs a periodic IBD check. It follows the familiar
// top-level daemon-wiring pattern found throughout the Bitcoin/Decred
// family's full-node `main`/`server.go` entry points.
package node

import (
	"fmt"
	"sync"
	"time"

	"github.com/decred/slog"

	"github.com/thunderbolt-node/thunderbolt/addrmgr"
	"github.com/thunderbolt-node/thunderbolt/chain"
	"github.com/thunderbolt-node/thunderbolt/connmgr"
	"github.com/thunderbolt-node/thunderbolt/database/blockstore"
	"github.com/thunderbolt-node/thunderbolt/database/metadb"
	"github.com/thunderbolt-node/thunderbolt/ibd"
	"github.com/thunderbolt-node/thunderbolt/mempool"
	"github.com/thunderbolt-node/thunderbolt/peer"
	"github.com/thunderbolt-node/thunderbolt/wire"
)

// log is the package-level subsystem logger; Coordinator installs a real
// one at start-up via UseLogger.
var log = slog.Disabled

// UseLogger installs logger as the node package's output sink.
func UseLogger(logger slog.Logger) {
	log = logger
}

// HeartbeatInterval gates the periodic task tick (the IBD check; address-book
// housekeeping and the inactivity sweep run on connmgr's own timers). 10s is comfortably
// finer-grained than connmgr's 1-minute dial loop, enough to notice a
// stalled sync promptly without busy-polling.
const HeartbeatInterval = 10 * time.Second

// ShutdownDrainDeadline sets the pause Shutdown makes after closing the
// peers: a tenth of this value. Outbound queues are not drained before the
// peers close.
const ShutdownDrainDeadline = 2 * time.Second

// MaxBlocksPerGetBlocksReply caps how many hashes a GetBlocks reply
// announces at once, mirroring wire.MaxInventoryPerMessage.
const MaxBlocksPerGetBlocksReply = wire.MaxInventoryPerMessage

// Coordinator owns every other component and is the single dispatch point
// for inbound peer messages.
type Coordinator struct {
	Chain   *chain.Chain
	Mempool *mempool.Pool
	ConnMgr *connmgr.Manager
	AddrMgr *addrmgr.Manager
	IBD     *ibd.Manager

	metaDB     *metadb.DB
	blockFile  *blockstore.Store
	revertFile *blockstore.Store

	peersAddr string

	quit     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// Config bundles the already-open storage handles and network parameters
// Coordinator needs. The caller opens storage and builds
// the sub-managers; Coordinator only wires them together and drives the
// run loop.
type Config struct {
	Chain      *chain.Chain
	Mempool    *mempool.Pool
	ConnMgr    *connmgr.Manager
	AddrMgr    *addrmgr.Manager
	IBD        *ibd.Manager
	MetaDB     *metadb.DB
	BlockFile  *blockstore.Store
	RevertFile *blockstore.Store
	ListenAddr string
}

// New assembles a Coordinator from an already-wired Config.
func New(cfg Config) *Coordinator {
	return &Coordinator{
		Chain:      cfg.Chain,
		Mempool:    cfg.Mempool,
		ConnMgr:    cfg.ConnMgr,
		AddrMgr:    cfg.AddrMgr,
		IBD:        cfg.IBD,
		metaDB:     cfg.MetaDB,
		blockFile:  cfg.BlockFile,
		revertFile: cfg.RevertFile,
		peersAddr:  cfg.ListenAddr,
		quit:       make(chan struct{}),
	}
}

// Run starts the peer manager and the coordinator's own periodic-task loop.
// It blocks until Shutdown is called.
func (n *Coordinator) Run() error {
	if n.peersAddr != "" {
		if err := n.ConnMgr.Listen(n.peersAddr); err != nil {
			return fmt.Errorf("node: listen: %w", err)
		}
	}
	if err := n.ConnMgr.Bootstrap(); err != nil {
		log.Warnf("bootstrap: %v", err)
	}
	n.ConnMgr.Run()

	n.wg.Add(1)
	go n.periodicLoop()

	<-n.quit
	return nil
}

// periodicLoop runs the coordinator's own heartbeat: check whether IBD
// should start, nothing else needs a coordinator-level timer since connmgr
// and peer already run their own.
func (n *Coordinator) periodicLoop() {
	defer n.wg.Done()
	ticker := time.NewTicker(HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-n.quit:
			return
		case <-ticker.C:
			n.IBD.MaybeStart()
		}
	}
}

// Shutdown runs an orderly shutdown sequence: stop the periodic loop, stop
// the accept/dial loops and close every peer, pause briefly, then close the
// revert store, the block store and the metadata store. Messages still
// waiting in peers' outbound queues are discarded, not flushed.
func (n *Coordinator) Shutdown() {
	n.stopOnce.Do(func() {
		close(n.quit)
		n.wg.Wait()

		n.ConnMgr.Shutdown()

		time.Sleep(ShutdownDrainDeadline / 10) // brief pause after the peers are closed; their outbound queues are not flushed

		if n.revertFile != nil {
			if err := n.revertFile.Close(); err != nil {
				log.Warnf("closing revert segments: %v", err)
			}
		}
		if n.blockFile != nil {
			if err := n.blockFile.Close(); err != nil {
				log.Warnf("closing block segments: %v", err)
			}
		}
		if n.metaDB != nil {
			if err := n.metaDB.Close(); err != nil {
				log.Warnf("closing metadata store: %v", err)
			}
		}
	})
}

// Dispatch implements connmgr.Upstream: every inbound message connmgr does
// not itself consume (everything but Address/GetAddress) arrives here.
func (n *Coordinator) Dispatch(p *peer.Peer, msg wire.Message) {
	if n.IBD.Dispatch(p, msg) {
		return
	}

	switch v := msg.(type) {
	case *wire.MsgBlock:
		n.handleBlock(p, v)
	case *wire.MsgTransaction:
		n.handleTransaction(p, v)
	case *wire.MsgGetBlocks:
		n.handleGetBlocks(p, v)
	case *wire.MsgGetData:
		n.handleGetData(p, v)
	case *wire.MsgInventory:
		n.handleInventory(p, v)
	}
}

func (n *Coordinator) handleBlock(p *peer.Peer, v *wire.MsgBlock) {
	block := v.Block
	hash := block.Hash()
	if err := n.Chain.AcceptBlock(&block); err != nil {
		if chain.IsOrphan(err) {
			log.Debugf("received orphan block %s from %s", hash, p.Addr())
			return
		}
		log.Warnf("rejected block %s from %s: %v", hash, p.Addr(), err)
		p.AddBanScore(1)
		return
	}
	n.Mempool.RemoveConfirmed(&block)
	n.ConnMgr.BroadcastInventory(wire.InvVect{Type: wire.InvBlock, Hash: hash})
}

func (n *Coordinator) handleTransaction(p *peer.Peer, v *wire.MsgTransaction) {
	tx := v.Tx
	txid := wire.TxID(&tx)
	if n.Mempool.Have(txid) {
		return
	}
	if err := n.Mempool.AddTransaction(&tx); err != nil {
		log.Debugf("rejected transaction %s from %s: %v", txid, p.Addr(), err)
		return
	}
	n.ConnMgr.BroadcastInventory(wire.InvVect{Type: wire.InvTransaction, Hash: txid})
}

func (n *Coordinator) handleGetBlocks(p *peer.Peer, v *wire.MsgGetBlocks) {
	hashes := n.Chain.BlocksAfterLocator(v.Locator, MaxBlocksPerGetBlocksReply)
	if len(hashes) == 0 {
		return
	}
	items := make([]wire.InvVect, len(hashes))
	for i, h := range hashes {
		items[i] = wire.InvVect{Type: wire.InvBlock, Hash: h}
	}
	p.QueueMessage(&wire.MsgInventory{Nonce: v.Nonce, Items: items})
}

func (n *Coordinator) handleGetData(p *peer.Peer, v *wire.MsgGetData) {
	var notFound []wire.InvVect
	for _, item := range v.Items {
		switch item.Type {
		case wire.InvBlock:
			block, err := n.Chain.GetBlock(item.Hash)
			if err != nil {
				notFound = append(notFound, item)
				continue
			}
			p.QueueMessage(&wire.MsgBlock{Block: *block})
		case wire.InvTransaction:
			tx, ok := n.Mempool.Get(item.Hash)
			if !ok {
				notFound = append(notFound, item)
				continue
			}
			p.QueueMessage(&wire.MsgTransaction{Tx: *tx})
		default:
			notFound = append(notFound, item)
		}
	}
	if len(notFound) > 0 {
		p.QueueMessage(&wire.MsgNotFound{Items: notFound})
	}
}

// handleInventory answers an unsolicited Inventory announcement (outside
// IBD) by requesting whichever items are new to us.
func (n *Coordinator) handleInventory(p *peer.Peer, v *wire.MsgInventory) {
	var want []wire.InvVect
	for _, item := range v.Items {
		switch item.Type {
		case wire.InvBlock:
			if _, err := n.Chain.GetBlock(item.Hash); err != nil {
				want = append(want, item)
			}
		case wire.InvTransaction:
			if !n.Mempool.Have(item.Hash) {
				want = append(want, item)
			}
		}
	}
	if len(want) > 0 {
		p.QueueMessage(&wire.MsgGetData{Items: want})
	}
}
