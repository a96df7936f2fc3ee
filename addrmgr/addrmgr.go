// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package addrmgr implements the peer address book: a persisted set of
// known peer addresses with last-seen bookkeeping and a 24-hour ban list,
// consulted by the peer manager for bootstrap, dial candidate selection,
// and accept-time ban checks.
package addrmgr

import (
	"encoding/json"
	"math/rand"
	"net"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/decred/slog"

	"github.com/thunderbolt-node/thunderbolt/wire"
)

// log is the package-level subsystem logger; the coordinator installs a
// real one at start-up via UseLogger.
var log = slog.Disabled

// UseLogger installs logger as the addrmgr package's output sink.
func UseLogger(logger slog.Logger) {
	log = logger
}

// BanDuration is how long an address stays banned once its peer's ban score
// reaches the threshold.
const BanDuration = 24 * time.Hour

// RetentionWindow is how long an address is kept after it was last seen
// before housekeeping prunes it; 14 days matches what real Bitcoin-family
// address managers use for the same role.
const RetentionWindow = 14 * 24 * time.Hour

// KnownAddress is one entry in the address book.
type KnownAddress struct {
	Addr        wire.NetworkAddress
	LastSeen    time.Time
	BannedUntil time.Time // zero value means not banned
}

func (k *KnownAddress) banned(now time.Time) bool {
	return !k.BannedUntil.IsZero() && now.Before(k.BannedUntil)
}

// Manager is the address book: known addresses keyed by "ip:port", plus a
// compiled-in seed list used only when the book is empty.
type Manager struct {
	mu    sync.RWMutex
	addrs map[string]*KnownAddress
	seeds []string
}

// New constructs an empty address book backed by seeds as the fallback
// bootstrap list.
func New(seeds []string) *Manager {
	return &Manager{
		addrs: make(map[string]*KnownAddress),
		seeds: seeds,
	}
}

func addrKey(a wire.NetworkAddress) string {
	return net.IP(a.IP[:]).String() + ":" + strconv.Itoa(int(a.Port))
}

// AddAddress records addr as seen just now, or refreshes LastSeen if it is
// already known. A banned address stays banned; AddAddress never clears a
// ban.
func (m *Manager) AddAddress(addr wire.NetworkAddress) {
	key := addrKey(addr)
	m.mu.Lock()
	defer m.mu.Unlock()
	if ka, ok := m.addrs[key]; ok {
		ka.LastSeen = time.Now()
		ka.Addr = addr
		return
	}
	m.addrs[key] = &KnownAddress{Addr: addr, LastSeen: time.Now()}
}

// AddAddresses is a convenience wrapper over AddAddress for a batch, the
// shape a received MsgAddress arrives in.
func (m *Manager) AddAddresses(addrs []wire.NetworkAddress) {
	for _, a := range addrs {
		m.AddAddress(a)
	}
}

// IsBanned reports whether key ("ip:port") is currently under a live ban.
func (m *Manager) IsBanned(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ka, ok := m.addrs[key]
	return ok && ka.banned(time.Now())
}

// Ban marks key banned for BanDuration from now, creating the entry if it is
// not already known (a peer can misbehave before ever completing a
// handshake that would have added it via AddAddress).
func (m *Manager) Ban(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ka, ok := m.addrs[key]
	if !ok {
		ka = &KnownAddress{LastSeen: time.Now()}
		m.addrs[key] = ka
	}
	ka.BannedUntil = time.Now().Add(BanDuration)
	log.Warnf("banned %s until %s", key, ka.BannedUntil.Format(time.RFC3339))
}

// Unban clears key's ban immediately, backing the CLI's unbanPeer operation.
func (m *Manager) Unban(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ka, ok := m.addrs[key]; ok {
		ka.BannedUntil = time.Time{}
	}
}

// ListBanned returns the keys of every address currently under a live ban,
// backing the CLI's listBannedPeers operation.
func (m *Manager) ListBanned() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	now := time.Now()
	var out []string
	for key, ka := range m.addrs {
		if ka.banned(now) {
			out = append(out, key)
		}
	}
	return out
}

// GetAddresses returns up to n known, currently-unbanned addresses chosen
// uniformly at random, the reply to a GetAddress request and the candidate
// pool the dial loop draws from.
func (m *Manager) GetAddresses(n int) []wire.NetworkAddress {
	m.mu.RLock()
	defer m.mu.RUnlock()
	now := time.Now()
	candidates := make([]wire.NetworkAddress, 0, len(m.addrs))
	for _, ka := range m.addrs {
		if !ka.banned(now) {
			candidates = append(candidates, ka.Addr)
		}
	}
	rand.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})
	if n <= 0 || n > len(candidates) {
		n = len(candidates)
	}
	return candidates[:n]
}

// Bootstrap returns the address strings to dial at start-up: a uniformly
// random, unbanned sample of the persisted book if it has any entries,
// otherwise the compiled-in seed list.
func (m *Manager) Bootstrap() []string {
	m.mu.RLock()
	now := time.Now()
	var persisted []string
	for key, ka := range m.addrs {
		if !ka.banned(now) {
			persisted = append(persisted, key)
		}
	}
	m.mu.RUnlock()

	if len(persisted) > 0 {
		rand.Shuffle(len(persisted), func(i, j int) {
			persisted[i], persisted[j] = persisted[j], persisted[i]
		})
		return persisted
	}
	return m.seeds
}

// ReleaseExpiredBans clears any ban whose 24h expiry has passed, part of the
// periodic housekeeping tick.
func (m *Manager) ReleaseExpiredBans() {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	for _, ka := range m.addrs {
		if !ka.BannedUntil.IsZero() && now.After(ka.BannedUntil) {
			ka.BannedUntil = time.Time{}
		}
	}
}

// PruneStale drops addresses not seen within RetentionWindow, leaving
// currently-banned addresses in place so their ban still takes effect.
func (m *Manager) PruneStale() {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	for key, ka := range m.addrs {
		if ka.banned(now) {
			continue
		}
		if now.Sub(ka.LastSeen) > RetentionWindow {
			delete(m.addrs, key)
		}
	}
}

// Len returns the number of known addresses, banned or not.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.addrs)
}

// persistedAddress is the on-disk shape of a KnownAddress, stable across the
// wire.NetworkAddress struct's field order.
type persistedAddress struct {
	IP          string
	Port        uint16
	Services    uint64
	LastSeen    time.Time
	BannedUntil time.Time
}

// Save writes the address book to path as JSON (peers.json in the data
// directory, the well-known Bitcoin-family address-manager convention).
func (m *Manager) Save(path string) error {
	m.mu.RLock()
	out := make([]persistedAddress, 0, len(m.addrs))
	for _, ka := range m.addrs {
		out = append(out, persistedAddress{
			IP:          net.IP(ka.Addr.IP[:]).String(),
			Port:        ka.Addr.Port,
			Services:    ka.Addr.Services,
			LastSeen:    ka.LastSeen,
			BannedUntil: ka.BannedUntil,
		})
	}
	m.mu.RUnlock()

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// Load replaces the address book's contents with what was previously saved
// at path. A missing file is not an error: the book simply starts empty and
// falls back to the compiled-in seed list.
func (m *Manager) Load(path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	var in []persistedAddress
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.addrs = make(map[string]*KnownAddress, len(in))
	for _, pa := range in {
		ip := net.ParseIP(pa.IP)
		if ip == nil {
			continue
		}
		var addr wire.NetworkAddress
		copy(addr.IP[:], ip.To16())
		addr.Port = pa.Port
		addr.Services = pa.Services
		key := addrKey(addr)
		m.addrs[key] = &KnownAddress{Addr: addr, LastSeen: pa.LastSeen, BannedUntil: pa.BannedUntil}
	}
	return nil
}
