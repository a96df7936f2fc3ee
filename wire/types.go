// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"

	"github.com/thunderbolt-node/thunderbolt/chaincfg/chainhash"
	"github.com/thunderbolt-node/thunderbolt/crypto"
)

// Coin is the smallest-unit scale factor: 1 coin equals
// 100,000,000 units.
const Coin = 100000000

// MaxMoney is the maximum number of units any output may carry.
const MaxMoney = 21000000 * Coin

// MaxBlockSize is the maximum serialized size of a Block, in bytes.
const MaxBlockSize = 5 * 1024 * 1024

// MaxUnspendableDataSize bounds an Unspendable output's lockParams.
const MaxUnspendableDataSize = 32

// MaxInventoryPerMessage bounds the Inventory message's item list.
const MaxInventoryPerMessage = 500

// MaxHeadersPerMessage bounds the Headers message's item list.
const MaxHeadersPerMessage = 2000

// LockType identifies the fixed, small output-lock taxonomy that stands in
// for a script interpreter.
type LockType uint8

const (
	// LockSingleSig requires a single ECDSA signature matching lockParams.
	LockSingleSig LockType = iota
	// LockMultiSig requires M-of-N ECDSA signatures.
	LockMultiSig
	// LockUnspendable can never be spent.
	LockUnspendable
)

func (t LockType) String() string {
	switch t {
	case LockSingleSig:
		return "single-sig"
	case LockMultiSig:
		return "multi-sig"
	case LockUnspendable:
		return "unspendable"
	default:
		return "unknown"
	}
}

// IsValid reports whether t is one of the three defined lock types.
func (t LockType) IsValid() bool {
	return t == LockSingleSig || t == LockMultiSig || t == LockUnspendable
}

// Output is a single transaction output.
type Output struct {
	Amount     uint64
	LockType   LockType
	LockParams []byte
}

// OutPoint identifies a spendable output by the transaction that created it
// and its index within that transaction.
type OutPoint struct {
	RefTx chainhash.Hash
	Index uint32
}

// IsCoinbaseOutPoint reports whether op references the synthetic all-zero
// coinbase input.
func (op OutPoint) IsCoinbaseOutPoint() bool {
	return op.RefTx == (chainhash.Hash{})
}

// Transaction is the unit of value transfer. Witnesses are kept
// separate from the signed preimage so that replacing them never changes the
// transaction id, avoiding witness-malleability of the txid.
type Transaction struct {
	Version   int32
	Inputs    []OutPoint
	Outputs   []Output
	LockTime  uint64
	Witnesses [][]byte
}

// BlockHeader is the fixed-size, hashed portion of a block.
type BlockHeader struct {
	Version    int32
	Parent     chainhash.Hash
	MerkleRoot chainhash.Hash
	Timestamp  uint32
	Bits       uint32
	Nonce      uint32
}

// Block is a header plus its ordered transaction list.
type Block struct {
	Header BlockHeader
	Txs    []Transaction
}

// NetworkAddress identifies a peer's advertised services and socket address.
// IP is always stored as 16 bytes, IPv4-mapped when necessary.
type NetworkAddress struct {
	Services uint64
	IP       [16]byte
	Port     uint16
}

// TxID computes the transaction id: SHA256(SHA256(serialize_without_witnesses)).
func TxID(tx *Transaction) chainhash.Hash {
	var buf bytes.Buffer
	encodeTransaction(&buf, tx, false)
	return chainhash.Hash(crypto.DoubleSha256(buf.Bytes()))
}

// HashBlockHeader computes SHA256(SHA256(serialize(header))).
func HashBlockHeader(h *BlockHeader) chainhash.Hash {
	var buf bytes.Buffer
	// encodeBlockHeader never returns an error writing to a bytes.Buffer.
	_ = encodeBlockHeader(&buf, h)
	return chainhash.Hash(crypto.DoubleSha256(buf.Bytes()))
}

// Hash returns the block's header hash.
func (b *Block) Hash() chainhash.Hash {
	return HashBlockHeader(&b.Header)
}

// SerializeSize returns the exact encoded size of the block in bytes,
// computed by encoding the whole block into a buffer.
func (b *Block) SerializeSize() int {
	var buf bytes.Buffer
	_ = EncodeBlock(&buf, b)
	return buf.Len()
}
