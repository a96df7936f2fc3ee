// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package ibd

import (
	"net"
	"testing"
	"time"

	"github.com/thunderbolt-node/thunderbolt/peer"
	"github.com/thunderbolt-node/thunderbolt/wire"
)

type nullDispatcher struct {
	banned bool
}

func (d *nullDispatcher) Dispatch(p *peer.Peer, msg wire.Message) {}
func (d *nullDispatcher) Banned(p *peer.Peer)                     { d.banned = true }

type fakePeerLister struct {
	peers []*peer.Peer
}

func (f *fakePeerLister) Peers() []*peer.Peer { return f.peers }

func waitActive(t *testing.T, p *peer.Peer) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if p.State() == peer.Active {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("peer %s never reached Active, stuck at %s", p.Addr(), p.State())
}

// handshaken returns a peer whose KnownHeight() reports remoteHeight, having
// completed a real handshake over a net.Pipe with a peer advertising
// remoteHeight as its own height.
func handshaken(t *testing.T, remoteHeight uint64) *peer.Peer {
	t.Helper()
	c1, c2 := net.Pipe()
	near := peer.New(c1, "near", wire.MainNetMagic, true, 0, &nullDispatcher{})
	far := peer.New(c2, "far", wire.MainNetMagic, false, remoteHeight, &nullDispatcher{})
	near.Start()
	far.Start()
	t.Cleanup(near.Close)
	t.Cleanup(far.Close)
	waitActive(t, near)
	waitActive(t, far)
	return near
}

func TestSelectSyncPeerPicksGreatestKnownHeight(t *testing.T) {
	low := handshaken(t, 10)
	high := handshaken(t, 50)

	m := New(nil, &fakePeerLister{peers: []*peer.Peer{low, high}})
	m.mu.Lock()
	got := m.selectSyncPeer()
	m.mu.Unlock()

	if got != high {
		t.Fatalf("expected the peer advertising the greater height, got %s", got.Addr())
	}
}

func TestSelectSyncPeerBreaksTiesByFirstReported(t *testing.T) {
	a := handshaken(t, 30)
	b := handshaken(t, 30)

	m := New(nil, &fakePeerLister{peers: []*peer.Peer{a, b}})

	m.mu.Lock()
	first := m.selectSyncPeer()
	m.mu.Unlock()
	if first != a {
		t.Fatalf("expected the first-reported peer on a tie, got %s", first.Addr())
	}

	// A second call must keep favoring a: both were first seen in the same
	// call and share one firstSeen timestamp, so the tie goes to a, which the
	// lister reports first.
	m.mu.Lock()
	second := m.selectSyncPeer()
	m.mu.Unlock()
	if second != a {
		t.Fatalf("expected the tie-break to stay stable across calls, got %s", second.Addr())
	}
}

func TestDispatchIgnoresMessagesWhenInactive(t *testing.T) {
	p := handshaken(t, 10)
	m := New(nil, &fakePeerLister{})

	consumed := m.Dispatch(p, &wire.MsgInventory{Nonce: 1})
	if consumed {
		t.Fatal("expected an inactive Manager to ignore Inventory messages")
	}
}

func TestDispatchIgnoresMessagesFromNonSyncPeer(t *testing.T) {
	syncPeer := handshaken(t, 10)
	other := handshaken(t, 10)

	m := New(nil, &fakePeerLister{})
	m.active = true
	m.syncPeer = syncPeer
	m.nonce = 42

	consumed := m.Dispatch(other, &wire.MsgInventory{Nonce: 42})
	if consumed {
		t.Fatal("expected a message from a peer other than the sync peer to be ignored")
	}
}

func TestEmptyInventoryCompletesRound(t *testing.T) {
	p := handshaken(t, 10)
	m := New(nil, &fakePeerLister{})
	m.active = true
	m.syncPeer = p
	m.nonce = 7

	consumed := m.Dispatch(p, &wire.MsgInventory{Nonce: 7})
	if !consumed {
		t.Fatal("expected the Inventory message to be consumed")
	}
	if m.Active() {
		t.Fatal("expected an empty Inventory reply to end the sync round")
	}
}

func TestNonEmptyInventoryRequestsData(t *testing.T) {
	p := handshaken(t, 10)
	m := New(nil, &fakePeerLister{})
	m.active = true
	m.syncPeer = p
	m.nonce = 7

	items := []wire.InvVect{{Type: wire.InvBlock}, {Type: wire.InvTransaction}, {Type: wire.InvBlock}}
	consumed := m.Dispatch(p, &wire.MsgInventory{Nonce: 7, Items: items})
	if !consumed {
		t.Fatal("expected the Inventory message to be consumed")
	}
	if !m.Active() {
		t.Fatal("expected the round to remain active while awaiting block data")
	}
	if m.expected != 2 {
		t.Fatalf("expected only the two Block items to be requested, got %d", m.expected)
	}
}

func TestInventoryFromWrongNonceIsIgnored(t *testing.T) {
	p := handshaken(t, 10)
	m := New(nil, &fakePeerLister{})
	m.active = true
	m.syncPeer = p
	m.nonce = 7

	consumed := m.Dispatch(p, &wire.MsgInventory{Nonce: 999})
	if consumed {
		t.Fatal("expected an Inventory reply with a stale nonce to be ignored")
	}
	if !m.Active() {
		t.Fatal("a stale-nonce reply must not end the round")
	}
}
