// Copyright (c) 2014-2016 The btcsuite developers
// Copyright (c) 2015-2019 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chaincfg

import "testing"

func TestGenesisHashMatchesGenesisBlock(t *testing.T) {
	for _, p := range []*Params{MainNetParams(), TestNetParams(), RegNetParams(), SimNetParams()} {
		if got, want := p.GenesisBlock.Hash(), p.GenesisHash; got != want {
			t.Fatalf("%s: GenesisHash %s does not match GenesisBlock.Hash() %s", p.Name, want, got)
		}
		wantBits := p.PowLimitBits
		if p.Name == "mainnet" {
			// Main net's genesis carries its fixed fixture bits (see
			// TestMainNetMatchesGenesisFixture), not the compact pow limit.
			wantBits = 0x1dfffff8
		}
		if p.GenesisBlock.Header.Bits != wantBits {
			t.Fatalf("%s: genesis bits %08x, want %08x", p.Name, p.GenesisBlock.Header.Bits, wantBits)
		}
	}
}

func TestNetworksHaveDistinctMagicsAndPorts(t *testing.T) {
	all := []*Params{MainNetParams(), TestNetParams(), RegNetParams(), SimNetParams()}
	seenMagic := make(map[uint32]string)
	seenPort := make(map[string]string)
	for _, p := range all {
		if other, ok := seenMagic[p.Net]; ok {
			t.Fatalf("%s and %s share wire magic %08x", p.Name, other, p.Net)
		}
		seenMagic[p.Net] = p.Name
		if other, ok := seenPort[p.DefaultPort]; ok {
			t.Fatalf("%s and %s share default port %s", p.Name, other, p.DefaultPort)
		}
		seenPort[p.DefaultPort] = p.Name
	}
}

func TestMainNetMatchesGenesisFixture(t *testing.T) {
	p := MainNetParams()
	if p.GenesisBlock.Header.Timestamp != 1525003294 {
		t.Fatalf("unexpected genesis timestamp %d", p.GenesisBlock.Header.Timestamp)
	}
	if p.GenesisBlock.Header.Bits != 0x1dfffff8 {
		t.Fatalf("unexpected genesis bits %08x", p.GenesisBlock.Header.Bits)
	}
	if p.GenesisBlock.Header.Nonce != 449327816 {
		t.Fatalf("unexpected genesis nonce %d", p.GenesisBlock.Header.Nonce)
	}
}
