// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package peer implements the per-connection state machine: handshake
// negotiation, ping/pong liveness, ban-score accumulation, and the
// serialized outbound / single-reader inbound framing discipline that
// keeps a connection's message order and write interleaving well defined.
package peer

import (
	"crypto/rand"
	"encoding/binary"
	"io"
	"net"
	"sync"
	"time"

	"github.com/decred/slog"

	"github.com/thunderbolt-node/thunderbolt/wire"
)

// log is the package-level subsystem logger; the coordinator installs a
// real one at start-up via UseLogger; until then log calls are no-ops.
var log = slog.Disabled

// UseLogger installs logger as the peer package's output sink.
func UseLogger(logger slog.Logger) {
	log = logger
}

// Per-operation deadlines.
const (
	ConnectTimeout = 100 * time.Millisecond
	PingTimeout    = 1 * time.Second
	PongTimeout    = 60 * time.Second
	ReadTimeout    = 50 * time.Millisecond
)

// HeartbeatInterval is the idle period after which Active sends an
// unsolicited Ping; 30s sits comfortably under PongTimeout so a stalled
// peer is caught well before the pong-timeout ban fires.
const HeartbeatInterval = 30 * time.Second

// BanScoreThreshold is the score at which a peer is banned.
const BanScoreThreshold = 100

// pingTimeoutBanScore is the increment applied for a pong that never
// arrives; chosen to cross BanScoreThreshold outright, since a peer that
// lets a ping time out has already failed liveness.
const pingTimeoutBanScore = BanScoreThreshold

// Transport is the capability interface a Peer drives, collapsing the
// usual connection-plus-deadline surface into the minimum a Peer needs.
// A net.Conn satisfies it directly; tests supply an in-memory
// implementation.
type Transport interface {
	io.Reader
	io.Writer
	io.Closer
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
}

// Dispatcher receives messages a Peer does not consume itself (everything
// but Version/Verack/Ping/Pong) and is notified when a peer crosses the ban
// threshold. Implementations (the coordinator, the peer manager) decide
// what to do with the message and with the ban; the peer package never
// imports them.
type Dispatcher interface {
	Dispatch(p *Peer, msg wire.Message)
	Banned(p *Peer)
}

// State is a position in the handshake/liveness state machine.
type State int

const (
	Connecting State = iota
	AwaitingVersion
	AwaitingVerack
	Active
	Draining
	Closed
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case AwaitingVersion:
		return "awaiting-version"
	case AwaitingVerack:
		return "awaiting-verack"
	case Active:
		return "active"
	case Draining:
		return "draining"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

const outboundQueueSize = 100

// Peer drives one connection end to end: handshake, liveness, and delivery
// of post-handshake messages to a Dispatcher. Outbound writes are serialized
// through a single writer goroutine; inbound decode runs on a single reader
// goroutine, so message arrival order from this peer is preserved end to
// end.
type Peer struct {
	conn        Transport
	addr        string
	magic       uint32
	outbound    bool
	localHeight uint64
	dispatcher  Dispatcher

	versionNonce uint64

	mu           sync.RWMutex
	state        State
	banScore     int
	peerHeight   uint64
	peerServices uint64
	lastRTT      time.Duration
	lastSendTime time.Time
	lastRecvTime time.Time
	pendingPings map[uint64]time.Time

	outq chan wire.Message
	quit chan struct{}
	once sync.Once
}

// New constructs a Peer around conn. localHeight is this node's chain
// height at connect time, advertised in the Version message. outbound
// distinguishes the dialler (which speaks first) from the accepted side.
func New(conn Transport, addr string, magic uint32, outbound bool, localHeight uint64, d Dispatcher) *Peer {
	return &Peer{
		conn:         conn,
		addr:         addr,
		magic:        magic,
		outbound:     outbound,
		localHeight:  localHeight,
		dispatcher:   d,
		versionNonce: randomNonce(),
		state:        Connecting,
		pendingPings: make(map[uint64]time.Time),
		outq:         make(chan wire.Message, outboundQueueSize),
		quit:         make(chan struct{}),
		lastSendTime: time.Now(),
		lastRecvTime: time.Now(),
	}
}

// Addr returns the remote address this peer was constructed with.
func (p *Peer) Addr() string { return p.addr }

// Outbound reports whether this peer was dialled by us.
func (p *Peer) Outbound() bool { return p.outbound }

// State returns the peer's current position in the state machine.
func (p *Peer) State() State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// BanScore returns the peer's accumulated ban score.
func (p *Peer) BanScore() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.banScore
}

// KnownHeight returns the height the peer last advertised in its Version
// message, used by IBD to pick a syncing peer.
func (p *Peer) KnownHeight() uint64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.peerHeight
}

// LastMessageAge is the time since the last message this peer sent us,
// the input to the peer manager's inactivity sweep.
func (p *Peer) LastMessageAge() time.Duration {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return time.Since(p.lastRecvTime)
}

// Start launches the peer's I/O and heartbeat goroutines and, for an
// outbound connection, sends the opening Version message once the socket
// is ready.
func (p *Peer) Start() {
	p.mu.Lock()
	p.state = AwaitingVersion
	p.mu.Unlock()

	if p.outbound {
		p.QueueMessage(p.buildVersion())
	}

	go p.writeLoop()
	go p.readLoop()
	go p.heartbeatLoop()
}

// Close tears down the connection and transitions to Closed. Safe to call
// more than once and from any goroutine.
func (p *Peer) Close() {
	p.once.Do(func() {
		close(p.quit)
		p.conn.Close()
		p.mu.Lock()
		p.state = Closed
		p.mu.Unlock()
	})
}

// QueueMessage enqueues msg for the writer goroutine. If the outbound queue
// is full the oldest queued message is dropped to make room, since a slow
// peer should lose stale gossip rather than block the coordinator.
func (p *Peer) QueueMessage(msg wire.Message) {
	select {
	case p.outq <- msg:
		return
	default:
	}
	select {
	case <-p.outq:
	default:
	}
	select {
	case p.outq <- msg:
	default:
	}
}

func (p *Peer) writeLoop() {
	for {
		select {
		case <-p.quit:
			return
		case msg := <-p.outq:
			p.conn.SetWriteDeadline(time.Now().Add(PingTimeout))
			if err := wire.WriteMessage(p.conn, p.magic, msg); err != nil {
				p.Close()
				return
			}
			p.mu.Lock()
			p.lastSendTime = time.Now()
			p.mu.Unlock()
		}
	}
}

func (p *Peer) readLoop() {
	defer p.Close()
	for {
		select {
		case <-p.quit:
			return
		default:
		}
		p.conn.SetReadDeadline(time.Now().Add(ReadTimeout))
		msg, _, err := wire.ReadMessage(p.conn, p.magic)
		if err != nil {
			if isTimeout(err) {
				continue
			}
			return
		}
		p.mu.Lock()
		p.lastRecvTime = time.Now()
		p.mu.Unlock()
		p.handleMessage(msg)
	}
}

func isTimeout(err error) bool {
	ne, ok := err.(net.Error)
	return ok && ne.Timeout()
}

func (p *Peer) heartbeatLoop() {
	ticker := time.NewTicker(HeartbeatInterval / 3)
	defer ticker.Stop()
	for {
		select {
		case <-p.quit:
			return
		case <-ticker.C:
			p.mu.RLock()
			idle := time.Since(p.lastSendTime)
			active := p.state == Active
			p.mu.RUnlock()
			if active && idle >= HeartbeatInterval {
				p.sendPing()
			}
			p.checkPingTimeout()
		}
	}
}

func (p *Peer) sendPing() {
	nonce := randomNonce()
	p.mu.Lock()
	p.pendingPings[nonce] = time.Now()
	p.mu.Unlock()
	p.QueueMessage(&wire.MsgPing{Nonce: nonce})
}

func (p *Peer) checkPingTimeout() {
	now := time.Now()
	p.mu.Lock()
	var timedOut bool
	for nonce, sentAt := range p.pendingPings {
		if now.Sub(sentAt) >= PongTimeout {
			delete(p.pendingPings, nonce)
			timedOut = true
		}
	}
	p.mu.Unlock()
	if timedOut {
		p.addBanScore(pingTimeoutBanScore)
	}
}

// handleMessage is the state machine's single entry point, called serially
// from readLoop so message order from this peer is preserved.
func (p *Peer) handleMessage(msg wire.Message) {
	p.mu.RLock()
	state := p.state
	p.mu.RUnlock()

	switch state {
	case AwaitingVersion:
		v, ok := msg.(*wire.MsgVersion)
		if !ok {
			p.addBanScore(1)
			return
		}
		p.onVersion(v)
	case AwaitingVerack:
		if _, ok := msg.(*wire.MsgVerack); ok {
			p.onVerack()
		}
		// Anything else before the handshake completes is ignored rather
		// than penalized.
	case Active:
		p.onActiveMessage(msg)
	default:
		// Draining and Closed peers don't process further messages.
	}
}

func (p *Peer) onVersion(v *wire.MsgVersion) {
	if v.ProtocolVersion != wire.ProtocolVersion {
		log.Debugf("%s: protocol version mismatch (got %d, want %d)", p.addr, v.ProtocolVersion, wire.ProtocolVersion)
		p.Close()
		return
	}
	if v.Nonce == p.versionNonce {
		log.Debugf("%s: loopback connection detected, disconnecting", p.addr)
		p.Close()
		return
	}

	p.mu.Lock()
	p.peerHeight = v.BlockHeight
	p.peerServices = v.Services
	p.state = AwaitingVerack
	p.mu.Unlock()

	if !p.outbound {
		p.QueueMessage(p.buildVersion())
	}
	p.QueueMessage(&wire.MsgVerack{})
}

func (p *Peer) onVerack() {
	p.mu.Lock()
	p.state = Active
	p.mu.Unlock()

	if p.outbound {
		p.QueueMessage(&wire.MsgGetAddress{})
	}
}

func (p *Peer) onActiveMessage(msg wire.Message) {
	switch m := msg.(type) {
	case *wire.MsgPing:
		p.QueueMessage(&wire.MsgPong{Nonce: m.Nonce})
	case *wire.MsgPong:
		p.mu.Lock()
		sentAt, ok := p.pendingPings[m.Nonce]
		if ok {
			delete(p.pendingPings, m.Nonce)
			p.lastRTT = time.Since(sentAt)
		}
		p.mu.Unlock()
		if !ok {
			p.addBanScore(1)
		}
	default:
		if p.dispatcher != nil {
			p.dispatcher.Dispatch(p, msg)
		}
	}
}

// AddBanScore applies n to the peer's ban score, for protocol violations
// detected above the peer layer (an invalid block received during sync, for
// instance). See addBanScore for the threshold-crossing behavior.
func (p *Peer) AddBanScore(n int) {
	p.addBanScore(n)
}

// addBanScore applies n to the peer's ban score and transitions to Draining
// the moment the score reaches BanScoreThreshold, notifying the dispatcher
// exactly once so it can persist the 24h address ban.
func (p *Peer) addBanScore(n int) {
	p.mu.Lock()
	p.banScore += n
	crossed := p.banScore >= BanScoreThreshold && p.state != Draining && p.state != Closed
	if crossed {
		p.state = Draining
	}
	p.mu.Unlock()

	if crossed {
		log.Warnf("%s: ban score reached threshold, draining connection", p.addr)
		if p.dispatcher != nil {
			p.dispatcher.Banned(p)
		}
	}
}

func (p *Peer) buildVersion() *wire.MsgVersion {
	return &wire.MsgVersion{
		ProtocolVersion: wire.ProtocolVersion,
		Services:        0,
		Time:            time.Now().Unix(),
		BlockHeight:     p.localHeight,
		Nonce:           p.versionNonce,
	}
}

func randomNonce() uint64 {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		// crypto/rand failing is a fatal host condition; a zero nonce would
		// silently defeat loopback detection, so this path is never taken
		// in practice but must not be swallowed.
		panic("peer: crypto/rand unavailable: " + err.Error())
	}
	return binary.LittleEndian.Uint64(b[:])
}
