// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package connmgr implements the peer manager: bootstrap from the address
// book or compiled-in seeds, an accept loop with ban and capacity checks,
// a periodic dial loop, an inactivity sweep, and address
// book housekeeping. It owns every live *peer.Peer and is the one place
// Address/GetAddress messages and ban notifications are handled, forwarding
// everything else to an injected upstream dispatcher (the coordinator).
package connmgr

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/decred/slog"

	"github.com/thunderbolt-node/thunderbolt/addrmgr"
	"github.com/thunderbolt-node/thunderbolt/container/apbf"
	"github.com/thunderbolt-node/thunderbolt/peer"
	"github.com/thunderbolt-node/thunderbolt/wire"
)

// log is the package-level subsystem logger; the coordinator installs a
// real one at start-up via UseLogger.
var log = slog.Disabled

// UseLogger installs logger as the connmgr package's output sink.
func UseLogger(logger slog.Logger) {
	log = logger
}

// Tunables with no canonical literal value; chosen in the same range real
// Bitcoin-family nodes use for the same role.
const (
	MaxPeers         = 125
	MinInitialPeers  = 1
	NewPeersInterval = time.Minute
	CleanInterval    = 10 * time.Minute
	// MaxInactive bounds peer silence before a disconnect: comfortably above
	// HeartbeatInterval+PongTimeout so a peer always gets a liveness check
	// before the sweep would otherwise disconnect it for silence alone.
	MaxInactive = 5 * time.Minute
)

const dialFanoutMultiple = 5

// Upstream receives every inbound message connmgr itself doesn't consume
// (everything but Address/GetAddress), the coordinator's hook into the
// per-peer message stream.
type Upstream interface {
	Dispatch(p *peer.Peer, msg wire.Message)
}

// Manager owns every connected peer, the address book, and the listener.
type Manager struct {
	addrMgr     *addrmgr.Manager
	magic       uint32
	localHeight func() uint64
	upstream    Upstream
	seenInv     *apbf.Filter

	mu       sync.Mutex
	peers    map[string]*peer.Peer
	listener net.Listener

	quit chan struct{}
	wg   sync.WaitGroup
}

// New constructs a Manager. localHeight is called each time a new peer is
// created, to stamp its outgoing Version with the current chain height.
func New(am *addrmgr.Manager, magic uint32, localHeight func() uint64, upstream Upstream) *Manager {
	return &Manager{
		addrMgr:     am,
		magic:       magic,
		localHeight: localHeight,
		upstream:    upstream,
		seenInv:     apbf.NewFilter(4, 4096, 3),
		peers:       make(map[string]*peer.Peer),
		quit:        make(chan struct{}),
	}
}

// PeerCount returns the number of currently connected peers.
func (m *Manager) PeerCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.peers)
}

// Peers returns a snapshot of every connected peer.
func (m *Manager) Peers() []*peer.Peer {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*peer.Peer, 0, len(m.peers))
	for _, p := range m.peers {
		out = append(out, p)
	}
	return out
}

func (m *Manager) isConnected(addr string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.peers[addr]
	return ok
}

func (m *Manager) addPeer(addr string, p *peer.Peer) {
	m.mu.Lock()
	m.peers[addr] = p
	m.mu.Unlock()
}

func (m *Manager) removePeer(p *peer.Peer) {
	m.mu.Lock()
	delete(m.peers, p.Addr())
	m.mu.Unlock()
}

func (m *Manager) disconnect(p *peer.Peer) {
	p.Close()
	m.removePeer(p)
}

// Connect dials addr and registers the resulting peer. Callers that just
// want best-effort connectivity (the dial loop) should ignore the error.
func (m *Manager) Connect(addr string) (*peer.Peer, error) {
	conn, err := net.DialTimeout("tcp", addr, peer.ConnectTimeout)
	if err != nil {
		return nil, fmt.Errorf("connmgr: dial %s: %w", addr, err)
	}
	p := peer.New(conn, addr, m.magic, true, m.localHeight(), m)
	m.addPeer(addr, p)
	p.Start()
	log.Infof("connected to %s", addr)
	return p, nil
}

// Bootstrap dials the address book's (or seed list's) bootstrap candidates
// and fails if fewer than MinInitialPeers connect.
func (m *Manager) Bootstrap() error {
	candidates := m.addrMgr.Bootstrap()
	connected := 0
	for _, addr := range candidates {
		if connected >= MaxPeers {
			break
		}
		if _, err := m.Connect(addr); err != nil {
			log.Debugf("bootstrap dial failed: %v", err)
			continue
		}
		connected++
	}
	if connected < MinInitialPeers {
		return fmt.Errorf("connmgr: only %d initial peer(s) connected, need %d", connected, MinInitialPeers)
	}
	return nil
}

// Listen starts the accept loop on listenAddr.
func (m *Manager) Listen(listenAddr string) error {
	l, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return err
	}
	m.listener = l
	m.wg.Add(1)
	go m.acceptLoop()
	return nil
}

func (m *Manager) acceptLoop() {
	defer m.wg.Done()
	for {
		conn, err := m.listener.Accept()
		if err != nil {
			select {
			case <-m.quit:
				return
			default:
				log.Warnf("accept error: %v", err)
				continue
			}
		}

		addr := conn.RemoteAddr().String()
		host, _, _ := net.SplitHostPort(addr)
		if m.addrMgr.IsBanned(addr) || m.addrMgr.IsBanned(host) {
			conn.Close()
			continue
		}
		if m.PeerCount() >= MaxPeers {
			conn.Close()
			continue
		}

		p := peer.New(conn, addr, m.magic, false, m.localHeight(), m)
		m.addPeer(addr, p)
		p.Start()
		log.Infof("accepted connection from %s", addr)
	}
}

// Run starts the dial loop and the address-book housekeeping loop. Callers
// should call Bootstrap and, if they want an accept loop, Listen before Run.
func (m *Manager) Run() {
	m.wg.Add(2)
	go m.dialLoop()
	go m.housekeepingLoop()
}

func (m *Manager) dialLoop() {
	defer m.wg.Done()
	ticker := time.NewTicker(NewPeersInterval)
	defer ticker.Stop()
	for {
		select {
		case <-m.quit:
			return
		case <-ticker.C:
			m.dialMore()
			m.sweep()
		}
	}
}

func (m *Manager) dialMore() {
	if m.PeerCount() >= MaxPeers {
		return
	}
	candidates := m.addrMgr.GetAddresses(dialFanoutMultiple * MaxPeers)
	for _, c := range candidates {
		if m.PeerCount() >= MaxPeers {
			return
		}
		addr := net.JoinHostPort(ipString(c.IP), strconv.Itoa(int(c.Port)))
		if m.isConnected(addr) {
			continue
		}
		go func(addr string) {
			if _, err := m.Connect(addr); err != nil {
				log.Debugf("dial loop: %v", err)
			}
		}(addr)
	}
}

// sweep disconnects peers that have gone quiet or have already crossed the
// ban threshold.
func (m *Manager) sweep() {
	for _, p := range m.Peers() {
		if p.LastMessageAge() >= MaxInactive || p.BanScore() >= peer.BanScoreThreshold {
			log.Debugf("sweeping inactive peer %s", p.Addr())
			m.disconnect(p)
		}
	}
}

func (m *Manager) housekeepingLoop() {
	defer m.wg.Done()
	ticker := time.NewTicker(CleanInterval)
	defer ticker.Stop()
	for {
		select {
		case <-m.quit:
			return
		case <-ticker.C:
			m.addrMgr.ReleaseExpiredBans()
			m.addrMgr.PruneStale()
		}
	}
}

// Shutdown stops the accept/dial/housekeeping loops and closes every peer.
func (m *Manager) Shutdown() {
	close(m.quit)
	if m.listener != nil {
		m.listener.Close()
	}
	for _, p := range m.Peers() {
		p.Close()
	}
	m.wg.Wait()
}

// Dispatch implements peer.Dispatcher: Address and GetAddress are consumed
// here, everything else is forwarded to the upstream dispatcher.
func (m *Manager) Dispatch(p *peer.Peer, msg wire.Message) {
	switch v := msg.(type) {
	case *wire.MsgAddress:
		addrs := make([]wire.NetworkAddress, len(v.Addrs))
		for i := range v.Addrs {
			addrs[i] = v.Addrs[i].Addr
		}
		m.addrMgr.AddAddresses(addrs)
	case *wire.MsgGetAddress:
		m.replyAddresses(p)
	default:
		if m.upstream != nil {
			m.upstream.Dispatch(p, msg)
		}
	}
}

// Banned implements peer.Dispatcher: persist the address ban and drop the
// connection.
func (m *Manager) Banned(p *peer.Peer) {
	m.addrMgr.Ban(p.Addr())
	m.disconnect(p)
}

func (m *Manager) replyAddresses(p *peer.Peer) {
	known := m.addrMgr.GetAddresses(wire.MaxAddressesPerMessage)
	entries := make([]wire.AddressEntry, len(known))
	now := uint32(time.Now().Unix())
	for i, a := range known {
		entries[i] = wire.AddressEntry{Timestamp: now, Addr: a}
	}
	p.QueueMessage(&wire.MsgAddress{Addrs: entries})
}

// BroadcastInventory announces item to every connected peer, skipping peers
// entirely once item has already been announced, using the APBF dedup
// filter to bound the relay path's per-peer memory.
func (m *Manager) BroadcastInventory(item wire.InvVect) {
	key := append([]byte{byte(item.Type)}, item.Hash[:]...)
	if m.seenInv.Contains(key) {
		return
	}
	m.seenInv.Add(key)

	msg := &wire.MsgInventory{Nonce: randomNonce(), Items: []wire.InvVect{item}}
	for _, p := range m.Peers() {
		p.QueueMessage(msg)
	}
}

func ipString(ip [16]byte) string {
	return net.IP(ip[:]).String()
}

func randomNonce() uint64 {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic("connmgr: crypto/rand unavailable: " + err.Error())
	}
	return binary.LittleEndian.Uint64(b[:])
}
