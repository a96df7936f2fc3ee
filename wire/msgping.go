// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import "io"

// MsgPing carries a liveness-check nonce.
type MsgPing struct {
	Nonce uint64
}

// Command returns CmdPing.
func (m *MsgPing) Command() MessageType { return CmdPing }

// Encode writes the payload.
func (m *MsgPing) Encode(w io.Writer) error {
	return writeUint64(w, m.Nonce)
}

// Decode reads the payload.
func (m *MsgPing) Decode(r io.Reader) error {
	n, err := readUint64(r)
	if err != nil {
		return err
	}
	m.Nonce = n
	return nil
}

// MsgPong answers a MsgPing with the same nonce.
type MsgPong struct {
	Nonce uint64
}

// Command returns CmdPong.
func (m *MsgPong) Command() MessageType { return CmdPong }

// Encode writes the payload.
func (m *MsgPong) Encode(w io.Writer) error {
	return writeUint64(w, m.Nonce)
}

// Decode reads the payload.
func (m *MsgPong) Decode(r io.Reader) error {
	n, err := readUint64(r)
	if err != nil {
		return err
	}
	m.Nonce = n
	return nil
}
