// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import "io"

// MsgBlock carries a full block.
type MsgBlock struct {
	Block Block
}

// Command returns CmdBlock.
func (m *MsgBlock) Command() MessageType { return CmdBlock }

// Encode writes the payload.
func (m *MsgBlock) Encode(w io.Writer) error { return EncodeBlock(w, &m.Block) }

// Decode reads the payload.
func (m *MsgBlock) Decode(r io.Reader) error {
	b, err := DecodeBlock(r)
	if err != nil {
		return err
	}
	m.Block = b
	return nil
}

// MsgHeaders carries up to 2000 block headers, typically sent in
// response to MsgGetHeaders during header-first sync.
type MsgHeaders struct {
	Headers []BlockHeader
}

// Command returns CmdHeaders.
func (m *MsgHeaders) Command() MessageType { return CmdHeaders }

// Encode writes the payload.
func (m *MsgHeaders) Encode(w io.Writer) error {
	if err := writeUint32(w, uint32(len(m.Headers))); err != nil {
		return err
	}
	for i := range m.Headers {
		if err := encodeBlockHeader(w, &m.Headers[i]); err != nil {
			return err
		}
	}
	return nil
}

// Decode reads the payload.
func (m *MsgHeaders) Decode(r io.Reader) error {
	count, err := readCount(r, MaxHeadersPerMessage, "headers")
	if err != nil {
		return err
	}
	m.Headers = make([]BlockHeader, count)
	for i := range m.Headers {
		m.Headers[i], err = DecodeBlockHeader(r)
		if err != nil {
			return err
		}
	}
	return nil
}

// MsgTransaction carries a single transaction.
type MsgTransaction struct {
	Tx Transaction
}

// Command returns CmdTransaction.
func (m *MsgTransaction) Command() MessageType { return CmdTransaction }

// Encode writes the payload.
func (m *MsgTransaction) Encode(w io.Writer) error { return EncodeTransaction(w, &m.Tx) }

// Decode reads the payload.
func (m *MsgTransaction) Decode(r io.Reader) error {
	tx, err := DecodeTransaction(r)
	if err != nil {
		return err
	}
	m.Tx = tx
	return nil
}
