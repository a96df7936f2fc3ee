// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import "io"

// MaxAddressesPerMessage bounds the Address message's item list.
const MaxAddressesPerMessage = 1000

// AddressEntry pairs a NetworkAddress with the timestamp it was last seen
// by the sender.
type AddressEntry struct {
	Timestamp uint32
	Addr      NetworkAddress
}

// MsgAddress gossips known peer addresses.
type MsgAddress struct {
	Addrs []AddressEntry
}

// Command returns CmdAddress.
func (m *MsgAddress) Command() MessageType { return CmdAddress }

// Encode writes the payload.
func (m *MsgAddress) Encode(w io.Writer) error {
	if err := writeUint32(w, uint32(len(m.Addrs))); err != nil {
		return err
	}
	for i := range m.Addrs {
		if err := writeUint32(w, m.Addrs[i].Timestamp); err != nil {
			return err
		}
		if err := EncodeNetworkAddress(w, &m.Addrs[i].Addr); err != nil {
			return err
		}
	}
	return nil
}

// Decode reads the payload.
func (m *MsgAddress) Decode(r io.Reader) error {
	count, err := readCount(r, MaxAddressesPerMessage, "addrs")
	if err != nil {
		return err
	}
	m.Addrs = make([]AddressEntry, count)
	for i := range m.Addrs {
		if m.Addrs[i].Timestamp, err = readUint32(r); err != nil {
			return err
		}
		if m.Addrs[i].Addr, err = DecodeNetworkAddress(r); err != nil {
			return err
		}
	}
	return nil
}

// MsgGetAddress requests the peer's known address list.
type MsgGetAddress struct{}

// Command returns CmdGetAddress.
func (m *MsgGetAddress) Command() MessageType { return CmdGetAddress }

// Encode writes the (empty) payload.
func (m *MsgGetAddress) Encode(w io.Writer) error { return nil }

// Decode reads the (empty) payload.
func (m *MsgGetAddress) Decode(r io.Reader) error { return nil }
