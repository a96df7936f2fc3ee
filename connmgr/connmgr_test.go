// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package connmgr

import (
	"net"
	"testing"
	"time"

	"github.com/thunderbolt-node/thunderbolt/addrmgr"
	"github.com/thunderbolt-node/thunderbolt/peer"
	"github.com/thunderbolt-node/thunderbolt/wire"
)

type recordingUpstream struct {
	ch chan wire.Message
}

func newRecordingUpstream() *recordingUpstream {
	return &recordingUpstream{ch: make(chan wire.Message, 16)}
}

func (u *recordingUpstream) Dispatch(p *peer.Peer, msg wire.Message) {
	u.ch <- msg
}

func waitPeerCount(t *testing.T, m *Manager, want int, within time.Duration) {
	t.Helper()
	deadline := time.Now().Add(within)
	for time.Now().Before(deadline) {
		if m.PeerCount() == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("manager never reached %d peers, stuck at %d", want, m.PeerCount())
}

func TestListenAndConnectEstablishesPeerOnBothSides(t *testing.T) {
	serverAddrMgr := addrmgr.New(nil)
	server := New(serverAddrMgr, wire.MainNetMagic, func() uint64 { return 0 }, newRecordingUpstream())
	if err := server.Listen("127.0.0.1:0"); err != nil {
		t.Fatalf("Listen: %v", err)
	}
	t.Cleanup(server.Shutdown)

	clientAddrMgr := addrmgr.New(nil)
	client := New(clientAddrMgr, wire.MainNetMagic, func() uint64 { return 0 }, newRecordingUpstream())
	t.Cleanup(client.Shutdown)

	listenAddr := server.listener.Addr().String()
	if _, err := client.Connect(listenAddr); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	waitPeerCount(t, client, 1, time.Second)
	waitPeerCount(t, server, 1, time.Second)
}

func TestAcceptRefusesBannedAddress(t *testing.T) {
	serverAddrMgr := addrmgr.New(nil)
	server := New(serverAddrMgr, wire.MainNetMagic, func() uint64 { return 0 }, newRecordingUpstream())
	if err := server.Listen("127.0.0.1:0"); err != nil {
		t.Fatalf("Listen: %v", err)
	}
	t.Cleanup(server.Shutdown)

	// Ban the loopback address before a client ever connects.
	serverAddrMgr.Ban("127.0.0.1")

	clientAddrMgr := addrmgr.New(nil)
	client := New(clientAddrMgr, wire.MainNetMagic, func() uint64 { return 0 }, newRecordingUpstream())
	t.Cleanup(client.Shutdown)

	listenAddr := server.listener.Addr().String()
	if _, err := client.Connect(listenAddr); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	// The client believes it connected; the server should refuse and close
	// without ever registering the peer.
	time.Sleep(50 * time.Millisecond)
	if server.PeerCount() != 0 {
		t.Fatalf("expected the server to refuse a banned address, got %d peers", server.PeerCount())
	}
}

func TestBannedNotificationPersistsBanAndDisconnects(t *testing.T) {
	am := addrmgr.New(nil)
	m := New(am, wire.MainNetMagic, func() uint64 { return 0 }, newRecordingUpstream())

	serverConn, _ := net.Pipe()
	p := peer.New(serverConn, "10.0.0.1:9567", wire.MainNetMagic, true, 0, m)
	m.addPeer(p.Addr(), p)

	m.Banned(p)

	if !am.IsBanned("10.0.0.1:9567") {
		t.Fatal("expected Banned to persist the address ban")
	}
	if m.PeerCount() != 0 {
		t.Fatalf("expected Banned to drop the peer, got %d peers", m.PeerCount())
	}
}
