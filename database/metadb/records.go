// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package metadb

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/thunderbolt-node/thunderbolt/chaincfg/chainhash"
	"github.com/thunderbolt-node/thunderbolt/database/blockstore"
	mathuint256 "github.com/thunderbolt-node/thunderbolt/math/uint256"
	"github.com/thunderbolt-node/thunderbolt/wire"
)

// Status bits for BlockMetadata.Status: the one field mutated after
// initial persist.
const (
	StatusNone    uint8 = 0
	StatusInvalid uint8 = 1 << 0
	StatusOnMain  uint8 = 1 << 1
)

// BlockMetadata is the 'b'-prefixed record: a block header plus the
// bookkeeping the chain engine needs without re-reading the full block.
type BlockMetadata struct {
	Header     wire.BlockHeader
	Height     uint64
	TxCount    uint32
	Status     uint8
	TotalWork  mathuint256.Uint256
	BlockPtr   blockstore.Pointer
	RevertPtr  blockstore.Pointer
}

// Hash returns the block's header hash, which is also this record's key.
func (m *BlockMetadata) Hash() chainhash.Hash {
	return wire.HashBlockHeader(&m.Header)
}

func encodePointer(w io.Writer, p blockstore.Pointer) error {
	if err := binary.Write(w, binary.LittleEndian, p.Segment); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, p.Offset)
}

func decodePointer(r io.Reader) (blockstore.Pointer, error) {
	var p blockstore.Pointer
	if err := binary.Read(r, binary.LittleEndian, &p.Segment); err != nil {
		return p, err
	}
	if err := binary.Read(r, binary.LittleEndian, &p.Offset); err != nil {
		return p, err
	}
	return p, nil
}

// Encode serializes a BlockMetadata record.
func (m *BlockMetadata) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := wire.EncodeBlockHeader(&buf, &m.Header); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.LittleEndian, m.Height); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.LittleEndian, m.TxCount); err != nil {
		return nil, err
	}
	if err := buf.WriteByte(m.Status); err != nil {
		return nil, err
	}
	for _, word := range m.TotalWork {
		if err := binary.Write(&buf, binary.LittleEndian, word); err != nil {
			return nil, err
		}
	}
	if err := encodePointer(&buf, m.BlockPtr); err != nil {
		return nil, err
	}
	if err := encodePointer(&buf, m.RevertPtr); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeBlockMetadata deserializes a BlockMetadata record.
func DecodeBlockMetadata(data []byte) (*BlockMetadata, error) {
	r := bytes.NewReader(data)
	m := &BlockMetadata{}

	header, err := wire.DecodeBlockHeader(r)
	if err != nil {
		return nil, err
	}
	m.Header = header

	if err := binary.Read(r, binary.LittleEndian, &m.Height); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.LittleEndian, &m.TxCount); err != nil {
		return nil, err
	}
	status, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	m.Status = status
	for i := range m.TotalWork {
		if err := binary.Read(r, binary.LittleEndian, &m.TotalWork[i]); err != nil {
			return nil, err
		}
	}
	if m.BlockPtr, err = decodePointer(r); err != nil {
		return nil, err
	}
	if m.RevertPtr, err = decodePointer(r); err != nil {
		return nil, err
	}
	return m, nil
}

// TxMetadata is the 't'-prefixed record supporting lookup of a confirmed
// transaction by id without scanning whole blocks.
type TxMetadata struct {
	TxID            chainhash.Hash
	BlockPtr        blockstore.Pointer
	PositionInBlock uint32
}

// Encode serializes a TxMetadata record.
func (m *TxMetadata) Encode() ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(m.TxID[:])
	if err := encodePointer(&buf, m.BlockPtr); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.LittleEndian, m.PositionInBlock); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeTxMetadata deserializes a TxMetadata record.
func DecodeTxMetadata(data []byte) (*TxMetadata, error) {
	r := bytes.NewReader(data)
	m := &TxMetadata{}
	if _, err := io.ReadFull(r, m.TxID[:]); err != nil {
		return nil, err
	}
	var err error
	if m.BlockPtr, err = decodePointer(r); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.LittleEndian, &m.PositionInBlock); err != nil {
		return nil, err
	}
	return m, nil
}

// UtxoEntry is the 'u'-prefixed record: one entry per unspent output,
// keyed by (txid, index) so reorgs never need a per-transaction spent
// bitmap — each disconnect simply re-inserts the entries it removed.
type UtxoEntry struct {
	TxID        chainhash.Hash
	Index       uint32
	BlockHeight uint64
	Version     int32
	IsCoinbase  bool
	Output      wire.Output
}

// Encode serializes a UtxoEntry record (the key itself is derived by the
// caller from TxID/Index, not stored redundantly in the value... except it
// is kept here too so RevertRecord entries are self-describing once pulled
// out of revert storage, independent of the metadata store).
func (e *UtxoEntry) Encode() ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(e.TxID[:])
	if err := binary.Write(&buf, binary.LittleEndian, e.Index); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.LittleEndian, e.BlockHeight); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.LittleEndian, e.Version); err != nil {
		return nil, err
	}
	if err := buf.WriteByte(boolByte(e.IsCoinbase)); err != nil {
		return nil, err
	}
	if err := wire.EncodeOutput(&buf, &e.Output); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeUtxoEntry deserializes a UtxoEntry record.
func DecodeUtxoEntry(data []byte) (*UtxoEntry, error) {
	r := bytes.NewReader(data)
	e := &UtxoEntry{}
	if _, err := io.ReadFull(r, e.TxID[:]); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.LittleEndian, &e.Index); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.LittleEndian, &e.BlockHeight); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.LittleEndian, &e.Version); err != nil {
		return nil, err
	}
	isCoinbase, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	e.IsCoinbase = isCoinbase != 0
	out, err := wire.DecodeOutput(r)
	if err != nil {
		return nil, err
	}
	e.Output = out
	return e, nil
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

// NetworkAddressMetadata is the 'a'-prefixed record: a persisted peer
// address book entry.
type NetworkAddressMetadata struct {
	Addr      wire.NetworkAddress
	LastSeen  uint32
	BanScore  int32
	IsBanned  bool
	BanExpiry uint32
}

// Encode serializes a NetworkAddressMetadata record.
func (m *NetworkAddressMetadata) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := wire.EncodeNetworkAddress(&buf, &m.Addr); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.LittleEndian, m.LastSeen); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.LittleEndian, m.BanScore); err != nil {
		return nil, err
	}
	if err := buf.WriteByte(boolByte(m.IsBanned)); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.LittleEndian, m.BanExpiry); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeNetworkAddressMetadata deserializes a NetworkAddressMetadata record.
func DecodeNetworkAddressMetadata(data []byte) (*NetworkAddressMetadata, error) {
	r := bytes.NewReader(data)
	m := &NetworkAddressMetadata{}
	addr, err := wire.DecodeNetworkAddress(r)
	if err != nil {
		return nil, err
	}
	m.Addr = addr
	if err := binary.Read(r, binary.LittleEndian, &m.LastSeen); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.LittleEndian, &m.BanScore); err != nil {
		return nil, err
	}
	isBanned, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	m.IsBanned = isBanned != 0
	if err := binary.Read(r, binary.LittleEndian, &m.BanExpiry); err != nil {
		return nil, err
	}
	return m, nil
}
