// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"io"

	"github.com/thunderbolt-node/thunderbolt/chaincfg/chainhash"
)

// MaxLocatorHashes bounds a block locator's hash list (ten
// back-to-back plus exponential back-off to genesis comfortably fits well
// under this).
const MaxLocatorHashes = 500

// blockLocatorMsg is the shared payload shape of GetBlocks and GetHeaders.
type blockLocatorMsg struct {
	ProtocolVersion uint32
	Locator         []chainhash.Hash
	StopHash        chainhash.Hash
	Nonce           uint64
}

func (m *blockLocatorMsg) encode(w io.Writer) error {
	if err := writeUint32(w, m.ProtocolVersion); err != nil {
		return err
	}
	if err := writeUint32(w, uint32(len(m.Locator))); err != nil {
		return err
	}
	for _, h := range m.Locator {
		if err := writeHash(w, h); err != nil {
			return err
		}
	}
	if err := writeHash(w, m.StopHash); err != nil {
		return err
	}
	return writeUint64(w, m.Nonce)
}

func (m *blockLocatorMsg) decode(r io.Reader) error {
	var err error
	if m.ProtocolVersion, err = readUint32(r); err != nil {
		return err
	}
	count, err := readCount(r, MaxLocatorHashes, "locator")
	if err != nil {
		return err
	}
	m.Locator = make([]chainhash.Hash, count)
	for i := range m.Locator {
		if m.Locator[i], err = readHash(r); err != nil {
			return err
		}
	}
	if m.StopHash, err = readHash(r); err != nil {
		return err
	}
	m.Nonce, err = readUint64(r)
	return err
}

// MsgGetBlocks requests block inventory starting after the best match for
// Locator, up to StopHash.
type MsgGetBlocks struct{ blockLocatorMsg }

// Command returns CmdGetBlocks.
func (m *MsgGetBlocks) Command() MessageType { return CmdGetBlocks }

// Encode writes the payload.
func (m *MsgGetBlocks) Encode(w io.Writer) error { return m.encode(w) }

// Decode reads the payload.
func (m *MsgGetBlocks) Decode(r io.Reader) error { return m.decode(r) }

// MsgGetHeaders requests headers only, otherwise identical to MsgGetBlocks.
type MsgGetHeaders struct{ blockLocatorMsg }

// Command returns CmdGetHeaders.
func (m *MsgGetHeaders) Command() MessageType { return CmdGetHeaders }

// Encode writes the payload.
func (m *MsgGetHeaders) Encode(w io.Writer) error { return m.encode(w) }

// Decode reads the payload.
func (m *MsgGetHeaders) Decode(r io.Reader) error { return m.decode(r) }
