// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package ibd implements initial block download: selecting a syncing peer,
// issuing block locators, and draining the resulting Inventory/Block
// exchange into the chain engine. It follows the well-known dcrd/btcd
// netsync blockmanager's single-peer-at-a-time sync loop, adapted to a
// flat single-branch proof-of-work chain.
package ibd

import (
	"crypto/rand"
	"encoding/binary"
	"sync"
	"time"

	"github.com/decred/slog"

	"github.com/thunderbolt-node/thunderbolt/chain"
	"github.com/thunderbolt-node/thunderbolt/chaincfg/chainhash"
	"github.com/thunderbolt-node/thunderbolt/peer"
	"github.com/thunderbolt-node/thunderbolt/wire"
)

// log is the package-level subsystem logger; the coordinator installs a
// real one at start-up via UseLogger.
var log = slog.Disabled

// UseLogger installs logger as the ibd package's output sink.
func UseLogger(logger slog.Logger) {
	log = logger
}

// SyncThreshold is how far behind the best-known peer's advertised height
// the local tip must fall before IBD engages; 10 blocks matches real
// Bitcoin-family nodes' "nearly caught up" cutoff.
const SyncThreshold = 10

// SyncAttempts is how many consecutive failed rounds (invalid block, or a
// sync peer that vanishes) IBD tolerates before giving up until the next
// MaybeStart call.
const SyncAttempts = 5

// PeerLister supplies the set of currently connected peers to choose a sync
// peer from (*connmgr.Manager satisfies this directly).
type PeerLister interface {
	Peers() []*peer.Peer
}

// Manager drives IBD against one peer at a time.
type Manager struct {
	chain *chain.Chain
	peers PeerLister

	mu        sync.Mutex
	active    bool
	syncPeer  *peer.Peer
	nonce     uint64
	expected  int
	received  int
	attempts  int
	firstSeen map[*peer.Peer]time.Time
}

// New constructs a Manager that syncs c against whichever peer peers reports
// as furthest ahead.
func New(c *chain.Chain, peers PeerLister) *Manager {
	return &Manager{
		chain:     c,
		peers:     peers,
		firstSeen: make(map[*peer.Peer]time.Time),
	}
}

// Active reports whether a sync round is currently in flight.
func (m *Manager) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// selectSyncPeer picks the connected peer with the greatest advertised
// height, breaking ties by whichever was first reported to this Manager.
// Must be called with m.mu held.
func (m *Manager) selectSyncPeer() *peer.Peer {
	now := time.Now()
	var best *peer.Peer
	var bestHeight uint64
	var bestSeen time.Time
	for _, p := range m.peers.Peers() {
		if p.State() != peer.Active {
			continue
		}
		seen, ok := m.firstSeen[p]
		if !ok {
			seen = now
			m.firstSeen[p] = seen
		}
		h := p.KnownHeight()
		if best == nil || h > bestHeight || (h == bestHeight && seen.Before(bestSeen)) {
			best = p
			bestHeight = h
			bestSeen = seen
		}
	}
	return best
}

// MaybeStart starts a sync round if the local tip is at least SyncThreshold
// blocks behind the best connected peer and no round is already active. The
// coordinator calls this on its periodic tick.
func (m *Manager) MaybeStart() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active {
		return
	}

	p := m.selectSyncPeer()
	if p == nil {
		return
	}

	var localHeight uint64
	if tip := m.chain.Tip(); tip != nil {
		localHeight = tip.Height
	}
	if p.KnownHeight() < localHeight+SyncThreshold {
		return
	}

	m.startRoundLocked(p)
}

// startRoundLocked issues a fresh GetBlocks against p using the chain's
// current locator. Must be called with m.mu held.
func (m *Manager) startRoundLocked(p *peer.Peer) {
	locator := m.chain.BuildLocator()
	nonce := randomNonce()

	m.active = true
	m.syncPeer = p
	m.nonce = nonce
	m.expected = 0
	m.received = 0

	log.Infof("starting sync round against %s (locator depth %d)", p.Addr(), len(locator))
	p.QueueMessage(buildGetBlocks(locator, nonce))
}

// giveUpLocked abandons the current round, after which MaybeStart is free to
// pick (possibly the same) sync peer again on its next call. Must be called
// with m.mu held.
func (m *Manager) giveUpLocked(reason string) {
	log.Warnf("sync round abandoned: %s", reason)
	m.active = false
	m.syncPeer = nil
}

// restartLocked re-selects a sync peer and starts a fresh round, or gives up
// entirely once SYNC_ATTEMPTS consecutive failures have accumulated. Must be
// called with m.mu held.
func (m *Manager) restartLocked() {
	m.attempts++
	if m.attempts >= SyncAttempts {
		m.giveUpLocked("exceeded SYNC_ATTEMPTS consecutive failures")
		m.attempts = 0
		return
	}
	p := m.selectSyncPeer()
	if p == nil {
		m.giveUpLocked("no connected peers to retry against")
		return
	}
	m.startRoundLocked(p)
}

// Dispatch handles one inbound message from p. It reports whether it
// consumed msg; an unconsumed message (wrong type, wrong peer, wrong round)
// should fall through to the coordinator's normal dispatch path. Inventory
// and Block are handled as two distinct, non-fallthrough cases: a node that
// receives a Block must never also re-run the Inventory branch for it.
func (m *Manager) Dispatch(p *peer.Peer, msg wire.Message) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.active || p != m.syncPeer {
		return false
	}

	switch v := msg.(type) {
	case *wire.MsgInventory:
		return m.handleInventoryLocked(v)
	case *wire.MsgBlock:
		return m.handleBlockLocked(v)
	}
	return false
}

func (m *Manager) handleInventoryLocked(v *wire.MsgInventory) bool {
	if v.Nonce != m.nonce {
		return false
	}

	var items []wire.InvVect
	for _, item := range v.Items {
		if item.Type == wire.InvBlock {
			items = append(items, item)
		}
	}

	if len(items) == 0 {
		log.Infof("sync round complete against %s", m.syncPeer.Addr())
		m.active = false
		m.syncPeer = nil
		m.attempts = 0
		return true
	}

	m.expected = len(items)
	m.received = 0
	m.syncPeer.QueueMessage(&wire.MsgGetData{Items: items})
	return true
}

func (m *Manager) handleBlockLocked(v *wire.MsgBlock) bool {
	block := v.Block
	if err := m.chain.AcceptBlock(&block); err != nil {
		log.Warnf("sync peer %s sent an invalid block: %v", m.syncPeer.Addr(), err)
		m.syncPeer.AddBanScore(peer.BanScoreThreshold)
		m.restartLocked()
		return true
	}

	m.received++
	m.attempts = 0
	if m.received >= m.expected {
		m.startRoundLocked(m.syncPeer)
	}
	return true
}

// buildGetBlocks assembles a GetBlocks request for locator with a zero
// stop hash, requesting as many blocks after the match point as the peer
// will send.
func buildGetBlocks(locator []chainhash.Hash, nonce uint64) *wire.MsgGetBlocks {
	msg := &wire.MsgGetBlocks{}
	msg.ProtocolVersion = wire.ProtocolVersion
	msg.Locator = locator
	msg.Nonce = nonce
	return msg
}

func randomNonce() uint64 {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic("ibd: crypto/rand unavailable: " + err.Error())
	}
	return binary.LittleEndian.Uint64(b[:])
}
