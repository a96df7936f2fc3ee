// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package node

import (
	"net"
	"testing"
	"time"

	"github.com/thunderbolt-node/thunderbolt/addrmgr"
	"github.com/thunderbolt-node/thunderbolt/chain"
	"github.com/thunderbolt-node/thunderbolt/chaincfg/chainhash"
	"github.com/thunderbolt-node/thunderbolt/connmgr"
	"github.com/thunderbolt-node/thunderbolt/database/blockstore"
	"github.com/thunderbolt-node/thunderbolt/database/metadb"
	"github.com/thunderbolt-node/thunderbolt/ibd"
	"github.com/thunderbolt-node/thunderbolt/mempool"
	"github.com/thunderbolt-node/thunderbolt/peer"
	"github.com/thunderbolt-node/thunderbolt/wire"
)

const (
	testBlockMagic  = 0x74626c6b
	testRevertMagic = 0x74627276
)

func testGenesisBlock() *wire.Block {
	coinbase := wire.Transaction{
		Version: 1,
		Inputs:  []wire.OutPoint{{}},
		Outputs: []wire.Output{
			{Amount: chain.BaseSubsidy, LockType: wire.LockUnspendable, LockParams: nil},
		},
		Witnesses: [][]byte{nil},
	}
	b := &wire.Block{
		Header: wire.BlockHeader{
			Version:   1,
			Timestamp: 1525003294,
			Bits:      0x1dfffff8,
			Nonce:     449327816,
		},
		Txs: []wire.Transaction{coinbase},
	}
	b.Header.MerkleRoot = chain.CalcMerkleRoot(b.Txs)
	return b
}

func newTestCoordinator(t *testing.T) *Coordinator {
	t.Helper()

	db, err := metadb.Open(t.TempDir())
	if err != nil {
		t.Fatalf("metadb.Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	blocks, err := blockstore.Open(t.TempDir(), testBlockMagic, 0)
	if err != nil {
		t.Fatalf("blockstore.Open(blocks): %v", err)
	}
	t.Cleanup(func() { blocks.Close() })

	reverts, err := blockstore.Open(t.TempDir(), testRevertMagic, 0)
	if err != nil {
		t.Fatalf("blockstore.Open(reverts): %v", err)
	}
	t.Cleanup(func() { reverts.Close() })

	c := chain.New(db, blocks, reverts)
	if err := c.InitGenesis(testGenesisBlock()); err != nil {
		t.Fatalf("InitGenesis: %v", err)
	}

	mp := mempool.New(c)
	am := addrmgr.New(nil)

	coord := &Coordinator{
		Chain:   c,
		Mempool: mp,
		AddrMgr: am,
		quit:    make(chan struct{}),
	}
	coord.ConnMgr = connmgr.New(am, wire.MainNetMagic, func() uint64 {
		tip := c.Tip()
		if tip == nil {
			return 0
		}
		return tip.Height
	}, coord)
	coord.IBD = ibd.New(c, coord.ConnMgr)

	return coord
}

// observedPeer returns an inbound *peer.Peer backed by one end of a
// net.Pipe, plus the other end to read whatever the coordinator queues onto
// it. The peer is never driven through a handshake; QueueMessage/writeLoop
// work regardless of handshake state.
func observedPeer(t *testing.T) (*peer.Peer, net.Conn) {
	t.Helper()
	local, remote := net.Pipe()
	p := peer.New(local, "test-peer", wire.MainNetMagic, false, 0, &nullDispatcher{})
	p.Start()
	t.Cleanup(p.Close)
	return p, remote
}

type nullDispatcher struct{}

func (nullDispatcher) Dispatch(p *peer.Peer, msg wire.Message) {}
func (nullDispatcher) Banned(p *peer.Peer)                     {}

func readOne(t *testing.T, conn net.Conn) wire.Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(time.Second))
	msg, _, err := wire.ReadMessage(conn, wire.MainNetMagic)
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	return msg
}

func TestHandleGetDataServesKnownBlockAndReportsNotFoundForUnknown(t *testing.T) {
	coord := newTestCoordinator(t)
	genesisHash := testGenesisBlock().Hash()
	var unknownHash [32]byte
	unknownHash[0] = 0xff

	p, remote := observedPeer(t)
	defer remote.Close()

	coord.handleGetData(p, &wire.MsgGetData{Items: []wire.InvVect{
		{Type: wire.InvBlock, Hash: genesisHash},
		{Type: wire.InvBlock, Hash: unknownHash},
	}})

	msg := readOne(t, remote)
	block, ok := msg.(*wire.MsgBlock)
	if !ok {
		t.Fatalf("expected the known block first, got %T", msg)
	}
	if block.Block.Hash() != genesisHash {
		t.Fatalf("served the wrong block")
	}

	msg = readOne(t, remote)
	notFound, ok := msg.(*wire.MsgNotFound)
	if !ok {
		t.Fatalf("expected a NotFound for the unknown hash, got %T", msg)
	}
	if len(notFound.Items) != 1 || notFound.Items[0].Hash != unknownHash {
		t.Fatalf("unexpected NotFound contents: %+v", notFound.Items)
	}
}

func TestHandleGetBlocksWithLocatorAtTipRepliesNothing(t *testing.T) {
	coord := newTestCoordinator(t)
	genesisHash := testGenesisBlock().Hash()

	p, remote := observedPeer(t)
	defer remote.Close()

	req := &wire.MsgGetBlocks{}
	req.Locator = []chainhash.Hash{genesisHash}
	coord.handleGetBlocks(p, req)

	remote.SetReadDeadline(time.Now().Add(50 * time.Millisecond))
	buf := make([]byte, 1)
	if _, err := remote.Read(buf); err == nil {
		t.Fatal("expected no continuation when the locator already names the tip")
	}
}

func TestHandleInventoryRequestsUnknownBlocks(t *testing.T) {
	coord := newTestCoordinator(t)
	var unknownHash [32]byte
	unknownHash[0] = 0xaa

	p, remote := observedPeer(t)
	defer remote.Close()

	coord.handleInventory(p, &wire.MsgInventory{Items: []wire.InvVect{
		{Type: wire.InvBlock, Hash: unknownHash},
	}})

	msg := readOne(t, remote)
	getData, ok := msg.(*wire.MsgGetData)
	if !ok {
		t.Fatalf("expected a GetData request, got %T", msg)
	}
	if len(getData.Items) != 1 || getData.Items[0].Hash != unknownHash {
		t.Fatalf("unexpected GetData contents: %+v", getData.Items)
	}
}

func TestHandleInventoryIgnoresAlreadyKnownBlock(t *testing.T) {
	coord := newTestCoordinator(t)
	genesisHash := testGenesisBlock().Hash()

	p, remote := observedPeer(t)
	defer remote.Close()

	coord.handleInventory(p, &wire.MsgInventory{Items: []wire.InvVect{
		{Type: wire.InvBlock, Hash: genesisHash},
	}})

	remote.SetReadDeadline(time.Now().Add(50 * time.Millisecond))
	buf := make([]byte, 1)
	if _, err := remote.Read(buf); err == nil {
		t.Fatal("expected no message to be queued for an already-known block")
	}
}
