// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package metadb implements the ordered key-value metadata store on top of
// github.com/syndtr/goleveldb, the same embedded store real Bitcoin-family
// database drivers pair with flat-file block storage. Keys are
// single-byte prefixed per the schema below; values are the fixed binary
// records of records.go.
package metadb

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/thunderbolt-node/thunderbolt/chaincfg/chainhash"
)

// Key prefixes for each record kind stored in the metadata database.
const (
	prefixBlock        byte = 'b'
	prefixTx           byte = 't'
	prefixUtxo         byte = 'u'
	keyChainHead       byte = 'h'
	keyLatestBlockSeg  byte = 'l'
	keyLatestRevertSeg byte = 'r' // symmetric counterpart to 'l'
	prefixAddress      byte = 'a'
)

// ErrNotFound is returned by lookups that find no record for the given key.
var ErrNotFound = errors.New("metadb: not found")

// DB wraps a single LevelDB handle for all of the node's metadata records.
type DB struct {
	ldb *leveldb.DB
}

// Open opens (creating if necessary) the metadata store rooted at dir.
func Open(dir string) (*DB, error) {
	ldb, err := leveldb.OpenFile(dir, nil)
	if err != nil {
		return nil, fmt.Errorf("metadb: open %s: %w", dir, err)
	}
	return &DB{ldb: ldb}, nil
}

// Close releases the underlying LevelDB handle.
func (db *DB) Close() error {
	return db.ldb.Close()
}

func blockKey(hash chainhash.Hash) []byte {
	k := make([]byte, 1+chainhash.HashSize)
	k[0] = prefixBlock
	copy(k[1:], hash[:])
	return k
}

func txKey(txid chainhash.Hash) []byte {
	k := make([]byte, 1+chainhash.HashSize)
	k[0] = prefixTx
	copy(k[1:], txid[:])
	return k
}

func utxoKey(txid chainhash.Hash, index uint32) []byte {
	k := make([]byte, 1+chainhash.HashSize+4)
	k[0] = prefixUtxo
	copy(k[1:], txid[:])
	binary.LittleEndian.PutUint32(k[1+chainhash.HashSize:], index)
	return k
}

func addressKey(raw [16]byte) []byte {
	k := make([]byte, 1+16)
	k[0] = prefixAddress
	copy(k[1:], raw[:])
	return k
}

func wrapNotFound(err error) error {
	if errors.Is(err, leveldb.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

// GetBlockMetadata looks up a block's metadata record by its header hash.
func (db *DB) GetBlockMetadata(hash chainhash.Hash) (*BlockMetadata, error) {
	data, err := db.ldb.Get(blockKey(hash), nil)
	if err != nil {
		return nil, wrapNotFound(err)
	}
	return DecodeBlockMetadata(data)
}

// PutBlockMetadata stores m, keyed by its own header hash.
func (db *DB) PutBlockMetadata(m *BlockMetadata) error {
	data, err := m.Encode()
	if err != nil {
		return err
	}
	return db.ldb.Put(blockKey(m.Hash()), data, nil)
}

// GetTxMetadata looks up a transaction's location by its id.
func (db *DB) GetTxMetadata(txid chainhash.Hash) (*TxMetadata, error) {
	data, err := db.ldb.Get(txKey(txid), nil)
	if err != nil {
		return nil, wrapNotFound(err)
	}
	return DecodeTxMetadata(data)
}

// PutTxMetadata stores m, keyed by its own txid.
func (db *DB) PutTxMetadata(m *TxMetadata) error {
	data, err := m.Encode()
	if err != nil {
		return err
	}
	return db.ldb.Put(txKey(m.TxID), data, nil)
}

// GetUtxo looks up the unspent output at (txid, index).
func (db *DB) GetUtxo(txid chainhash.Hash, index uint32) (*UtxoEntry, error) {
	data, err := db.ldb.Get(utxoKey(txid, index), nil)
	if err != nil {
		return nil, wrapNotFound(err)
	}
	return DecodeUtxoEntry(data)
}

// HasUtxo reports whether (txid, index) is currently unspent, without
// paying the cost of decoding the full entry.
func (db *DB) HasUtxo(txid chainhash.Hash, index uint32) (bool, error) {
	return db.ldb.Has(utxoKey(txid, index), nil)
}

// GetChainHead returns the metadata record of the current best block.
func (db *DB) GetChainHead() (*BlockMetadata, error) {
	data, err := db.ldb.Get([]byte{keyChainHead}, nil)
	if err != nil {
		return nil, wrapNotFound(err)
	}
	return DecodeBlockMetadata(data)
}

// GetLatestBlockSegment returns the segment id the block storage arena was
// last appending to, for resuming after restart.
func (db *DB) GetLatestBlockSegment() (uint32, error) {
	return db.getLatestSegment(keyLatestBlockSeg)
}

// GetLatestRevertSegment returns the segment id the revert storage arena
// was last appending to.
func (db *DB) GetLatestRevertSegment() (uint32, error) {
	return db.getLatestSegment(keyLatestRevertSeg)
}

func (db *DB) getLatestSegment(key byte) (uint32, error) {
	data, err := db.ldb.Get([]byte{key}, nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}
	if len(data) != 4 {
		return 0, fmt.Errorf("metadb: malformed latest-segment record")
	}
	return binary.LittleEndian.Uint32(data), nil
}

// GetAddressMetadata looks up a known peer address by its raw 16-byte form.
func (db *DB) GetAddressMetadata(raw [16]byte) (*NetworkAddressMetadata, error) {
	data, err := db.ldb.Get(addressKey(raw), nil)
	if err != nil {
		return nil, wrapNotFound(err)
	}
	return DecodeNetworkAddressMetadata(data)
}

// PutAddressMetadata stores m, keyed by its raw advertised IP.
func (db *DB) PutAddressMetadata(raw [16]byte, m *NetworkAddressMetadata) error {
	data, err := m.Encode()
	if err != nil {
		return err
	}
	return db.ldb.Put(addressKey(raw), data, nil)
}

// ForEachAddress calls fn for every known address record, in key order.
// Iteration stops early if fn returns an error, and that error is returned.
func (db *DB) ForEachAddress(fn func(raw [16]byte, m *NetworkAddressMetadata) error) error {
	iter := db.ldb.NewIterator(util.BytesPrefix([]byte{prefixAddress}), nil)
	defer iter.Release()
	for iter.Next() {
		key := iter.Key()
		var raw [16]byte
		copy(raw[:], key[1:])
		m, err := DecodeNetworkAddressMetadata(iter.Value())
		if err != nil {
			return err
		}
		if err := fn(raw, m); err != nil {
			return err
		}
	}
	return iter.Error()
}

// Batch accumulates a set of writes to be applied atomically. The chain
// engine's publish step uses this to make a block's UTXO delta, revert
// pointer, and new chain head visible as one unit: a crash partway through
// never leaves the metadata store half-updated.
type Batch struct {
	b *leveldb.Batch
}

// NewBatch starts a new empty Batch.
func (db *DB) NewBatch() *Batch {
	return &Batch{b: new(leveldb.Batch)}
}

// PutBlockMetadata stages a block metadata write.
func (batch *Batch) PutBlockMetadata(m *BlockMetadata) error {
	data, err := m.Encode()
	if err != nil {
		return err
	}
	batch.b.Put(blockKey(m.Hash()), data)
	return nil
}

// PutTxMetadata stages a transaction metadata write.
func (batch *Batch) PutTxMetadata(m *TxMetadata) error {
	data, err := m.Encode()
	if err != nil {
		return err
	}
	batch.b.Put(txKey(m.TxID), data)
	return nil
}

// PutUtxo stages an unspent output write.
func (batch *Batch) PutUtxo(e *UtxoEntry) error {
	data, err := e.Encode()
	if err != nil {
		return err
	}
	batch.b.Put(utxoKey(e.TxID, e.Index), data)
	return nil
}

// DeleteUtxo stages the removal of a spent output.
func (batch *Batch) DeleteUtxo(txid chainhash.Hash, index uint32) {
	batch.b.Delete(utxoKey(txid, index))
}

// SetChainHead stages the new best-block pointer.
func (batch *Batch) SetChainHead(m *BlockMetadata) error {
	data, err := m.Encode()
	if err != nil {
		return err
	}
	batch.b.Put([]byte{keyChainHead}, data)
	return nil
}

// SetLatestBlockSegment stages the block storage arena's latest segment id.
func (batch *Batch) SetLatestBlockSegment(id uint32) {
	batch.setLatestSegment(keyLatestBlockSeg, id)
}

// SetLatestRevertSegment stages the revert storage arena's latest segment id.
func (batch *Batch) SetLatestRevertSegment(id uint32) {
	batch.setLatestSegment(keyLatestRevertSeg, id)
}

func (batch *Batch) setLatestSegment(key byte, id uint32) {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, id)
	batch.b.Put([]byte{key}, buf)
}

// Write applies all staged operations atomically.
func (db *DB) Write(batch *Batch) error {
	return db.ldb.Write(batch.b, nil)
}
