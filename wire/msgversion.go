// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import "io"

// MsgVersion is the first message either side of a handshake sends.
type MsgVersion struct {
	ProtocolVersion uint32
	Services        uint64
	Time            int64
	BlockHeight     uint64
	Nonce           uint64
	ReceiveAddr     NetworkAddress
}

// Command returns CmdVersion.
func (m *MsgVersion) Command() MessageType { return CmdVersion }

// Encode writes the payload.
func (m *MsgVersion) Encode(w io.Writer) error {
	if err := writeUint32(w, m.ProtocolVersion); err != nil {
		return err
	}
	if err := writeUint64(w, m.Services); err != nil {
		return err
	}
	if err := writeInt64(w, m.Time); err != nil {
		return err
	}
	if err := writeUint64(w, m.BlockHeight); err != nil {
		return err
	}
	if err := writeUint64(w, m.Nonce); err != nil {
		return err
	}
	return EncodeNetworkAddress(w, &m.ReceiveAddr)
}

// Decode reads the payload.
func (m *MsgVersion) Decode(r io.Reader) error {
	var err error
	if m.ProtocolVersion, err = readUint32(r); err != nil {
		return err
	}
	if m.Services, err = readUint64(r); err != nil {
		return err
	}
	if m.Time, err = readInt64(r); err != nil {
		return err
	}
	if m.BlockHeight, err = readUint64(r); err != nil {
		return err
	}
	if m.Nonce, err = readUint64(r); err != nil {
		return err
	}
	m.ReceiveAddr, err = DecodeNetworkAddress(r)
	return err
}

// MsgVerack concludes the handshake with an empty payload.
type MsgVerack struct{}

// Command returns CmdVerack.
func (m *MsgVerack) Command() MessageType { return CmdVerack }

// Encode writes the (empty) payload.
func (m *MsgVerack) Encode(w io.Writer) error { return nil }

// Decode reads the (empty) payload.
func (m *MsgVerack) Decode(r io.Reader) error { return nil }
