// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package addrmgr

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/thunderbolt-node/thunderbolt/wire"
)

func testAddr(ip byte, port uint16) wire.NetworkAddress {
	var a wire.NetworkAddress
	a.IP[10] = 0xff
	a.IP[11] = 0xff
	a.IP[12] = 192
	a.IP[13] = 168
	a.IP[14] = 0
	a.IP[15] = ip
	a.Port = port
	return a
}

func TestBootstrapFallsBackToSeedsWhenEmpty(t *testing.T) {
	m := New([]string{"seed1.example.com:9567", "seed2.example.com:9567"})
	got := m.Bootstrap()
	if len(got) != 2 {
		t.Fatalf("expected the seed list with an empty book, got %v", got)
	}
}

func TestBootstrapPrefersPersistedOverSeeds(t *testing.T) {
	m := New([]string{"seed.example.com:9567"})
	m.AddAddress(testAddr(1, 9567))
	got := m.Bootstrap()
	if len(got) != 1 || got[0] == "seed.example.com:9567" {
		t.Fatalf("expected the persisted address, got %v", got)
	}
}

func TestBanExcludesFromBootstrapAndGetAddresses(t *testing.T) {
	m := New(nil)
	addr := testAddr(2, 9567)
	m.AddAddress(addr)
	key := addrKey(addr)
	m.Ban(key)

	if !m.IsBanned(key) {
		t.Fatal("expected address to be banned")
	}
	if got := m.Bootstrap(); len(got) != 0 {
		t.Fatalf("expected no bootstrap candidates while the only address is banned, got %v", got)
	}
	if got := m.GetAddresses(10); len(got) != 0 {
		t.Fatalf("expected no addresses while the only address is banned, got %v", got)
	}
}

func TestUnbanClearsBan(t *testing.T) {
	m := New(nil)
	addr := testAddr(3, 9567)
	m.AddAddress(addr)
	key := addrKey(addr)
	m.Ban(key)
	m.Unban(key)
	if m.IsBanned(key) {
		t.Fatal("expected ban to be cleared")
	}
}

func TestReleaseExpiredBansClearsPastBans(t *testing.T) {
	m := New(nil)
	addr := testAddr(4, 9567)
	m.AddAddress(addr)
	key := addrKey(addr)

	m.mu.Lock()
	m.addrs[key].BannedUntil = time.Now().Add(-time.Minute)
	m.mu.Unlock()

	m.ReleaseExpiredBans()
	if m.IsBanned(key) {
		t.Fatal("expected an expired ban to be released")
	}
}

func TestPruneStaleDropsOldUnbannedAddressesOnly(t *testing.T) {
	m := New(nil)
	stale := testAddr(5, 9567)
	fresh := testAddr(6, 9567)
	bannedStale := testAddr(7, 9567)
	m.AddAddress(stale)
	m.AddAddress(fresh)
	m.AddAddress(bannedStale)
	m.Ban(addrKey(bannedStale))

	past := time.Now().Add(-RetentionWindow - time.Hour)
	m.mu.Lock()
	m.addrs[addrKey(stale)].LastSeen = past
	m.addrs[addrKey(bannedStale)].LastSeen = past
	m.mu.Unlock()

	m.PruneStale()

	if m.Len() != 2 {
		t.Fatalf("expected the fresh and banned-stale addresses to remain, got %d entries", m.Len())
	}
	if m.IsBanned(addrKey(stale)) {
		t.Fatal("unexpected ban on the pruned address")
	}
	if !m.IsBanned(addrKey(bannedStale)) {
		t.Fatal("expected the banned address to survive pruning despite being stale")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	m := New(nil)
	addr := testAddr(8, 9567)
	m.AddAddress(addr)
	m.Ban(addrKey(addr))

	path := filepath.Join(t.TempDir(), "peers.json")
	if err := m.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	m2 := New(nil)
	if err := m2.Load(path); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if m2.Len() != 1 {
		t.Fatalf("expected 1 loaded address, got %d", m2.Len())
	}
	if !m2.IsBanned(addrKey(addr)) {
		t.Fatal("expected ban state to survive the round trip")
	}
}

func TestLoadMissingFileIsNotAnError(t *testing.T) {
	m := New(nil)
	if err := m.Load(filepath.Join(t.TempDir(), "does-not-exist.json")); err != nil {
		t.Fatalf("Load of a missing file should succeed, got %v", err)
	}
}
