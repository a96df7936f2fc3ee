// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"io"

	"github.com/thunderbolt-node/thunderbolt/chaincfg/chainhash"
)

// InvType identifies what an InvVect's hash refers to.
type InvType uint8

const (
	// InvBlock identifies a Block.
	InvBlock InvType = iota
	// InvTransaction identifies a Transaction.
	InvTransaction
)

// InvVect pairs an InvType with the hash it refers to.
type InvVect struct {
	Type InvType
	Hash chainhash.Hash
}

func encodeInvVect(w io.Writer, v *InvVect) error {
	if err := writeByte(w, byte(v.Type)); err != nil {
		return err
	}
	return writeHash(w, v.Hash)
}

func decodeInvVect(r io.Reader) (InvVect, error) {
	var v InvVect
	t, err := readByte(r)
	if err != nil {
		return v, err
	}
	h, err := readHash(r)
	if err != nil {
		return v, err
	}
	v.Type = InvType(t)
	v.Hash = h
	return v, nil
}

func encodeInvList(w io.Writer, items []InvVect) error {
	if err := writeUint32(w, uint32(len(items))); err != nil {
		return err
	}
	for i := range items {
		if err := encodeInvVect(w, &items[i]); err != nil {
			return err
		}
	}
	return nil
}

func decodeInvList(r io.Reader, max uint32, fieldName string) ([]InvVect, error) {
	count, err := readCount(r, max, fieldName)
	if err != nil {
		return nil, err
	}
	items := make([]InvVect, count)
	for i := range items {
		items[i], err = decodeInvVect(r)
		if err != nil {
			return nil, err
		}
	}
	return items, nil
}

// MsgInventory announces available blocks/transactions; a single
// message carries at most 500 items.
type MsgInventory struct {
	Nonce uint64
	Items []InvVect
}

// Command returns CmdInventory.
func (m *MsgInventory) Command() MessageType { return CmdInventory }

// Encode writes the payload.
func (m *MsgInventory) Encode(w io.Writer) error {
	if err := writeUint64(w, m.Nonce); err != nil {
		return err
	}
	return encodeInvList(w, m.Items)
}

// Decode reads the payload.
func (m *MsgInventory) Decode(r io.Reader) error {
	nonce, err := readUint64(r)
	if err != nil {
		return err
	}
	items, err := decodeInvList(r, MaxInventoryPerMessage, "inventory")
	if err != nil {
		return err
	}
	m.Nonce = nonce
	m.Items = items
	return nil
}

// MsgGetData requests the full payload for a list of previously announced
// inventory items.
type MsgGetData struct {
	Items []InvVect
}

// Command returns CmdGetData.
func (m *MsgGetData) Command() MessageType { return CmdGetData }

// Encode writes the payload.
func (m *MsgGetData) Encode(w io.Writer) error { return encodeInvList(w, m.Items) }

// Decode reads the payload.
func (m *MsgGetData) Decode(r io.Reader) error {
	items, err := decodeInvList(r, MaxInventoryPerMessage, "getdata")
	if err != nil {
		return err
	}
	m.Items = items
	return nil
}

// MsgNotFound answers a GetData request for items the sender does not have.
type MsgNotFound struct {
	Items []InvVect
}

// Command returns CmdNotFound.
func (m *MsgNotFound) Command() MessageType { return CmdNotFound }

// Encode writes the payload.
func (m *MsgNotFound) Encode(w io.Writer) error { return encodeInvList(w, m.Items) }

// Decode reads the payload.
func (m *MsgNotFound) Decode(r io.Reader) error {
	items, err := decodeInvList(r, MaxInventoryPerMessage, "notfound")
	if err != nil {
		return err
	}
	m.Items = items
	return nil
}
