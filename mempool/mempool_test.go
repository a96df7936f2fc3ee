// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"testing"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/thunderbolt-node/thunderbolt/chain"
	"github.com/thunderbolt-node/thunderbolt/chaincfg/chainhash"
	"github.com/thunderbolt-node/thunderbolt/crypto"
	"github.com/thunderbolt-node/thunderbolt/database/blockstore"
	"github.com/thunderbolt-node/thunderbolt/database/metadb"
	"github.com/thunderbolt-node/thunderbolt/wire"
)

const (
	testBlockMagic  = 0x6d706c6b
	testRevertMagic = 0x6d70727a
)

func newTestChain(t *testing.T) (*chain.Chain, *metadb.DB) {
	t.Helper()
	db, err := metadb.Open(t.TempDir())
	if err != nil {
		t.Fatalf("metadb.Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	blocks, err := blockstore.Open(t.TempDir(), testBlockMagic, 0)
	if err != nil {
		t.Fatalf("blockstore.Open(blocks): %v", err)
	}
	t.Cleanup(func() { blocks.Close() })

	reverts, err := blockstore.Open(t.TempDir(), testRevertMagic, 0)
	if err != nil {
		t.Fatalf("blockstore.Open(reverts): %v", err)
	}
	t.Cleanup(func() { reverts.Close() })

	c := chain.New(db, blocks, reverts)

	genesis := &wire.Block{
		Header: wire.BlockHeader{Version: 1, Timestamp: 1, Bits: chain.PowLimitBits, Nonce: 0},
		Txs: []wire.Transaction{{
			Version:   1,
			Inputs:    []wire.OutPoint{{}},
			Outputs:   []wire.Output{{Amount: chain.BaseSubsidy, LockType: wire.LockUnspendable}},
			Witnesses: [][]byte{nil},
		}},
	}
	genesis.Header.MerkleRoot = chain.CalcMerkleRoot(genesis.Txs)
	if err := c.InitGenesis(genesis); err != nil {
		t.Fatalf("InitGenesis: %v", err)
	}
	return c, db
}

// plantUtxo directly inserts a spendable SingleSig output into db, standing
// in for a coinbase-matured output an earlier connected block would have
// produced.
func plantUtxo(t *testing.T, db *metadb.DB, priv *secp256k1.PrivateKey, amount uint64) wire.OutPoint {
	t.Helper()
	pub := priv.PubKey().SerializeCompressed()
	hash160 := crypto.Hash160(pub)

	// Derive a unique synthetic source txid per key so distinct callers
	// within the same test never collide on the same outpoint.
	sourceTxID := chainhash.Hash(crypto.DoubleSha256(pub))
	entry := &metadb.UtxoEntry{
		TxID:        sourceTxID,
		Index:       0,
		BlockHeight: 0,
		Version:     1,
		IsCoinbase:  false,
		Output:      wire.Output{Amount: amount, LockType: wire.LockSingleSig, LockParams: hash160[:]},
	}
	batch := db.NewBatch()
	if err := batch.PutUtxo(entry); err != nil {
		t.Fatalf("PutUtxo: %v", err)
	}
	if err := db.Write(batch); err != nil {
		t.Fatalf("db.Write: %v", err)
	}
	return wire.OutPoint{RefTx: sourceTxID, Index: 0}
}

func spendTx(t *testing.T, priv *secp256k1.PrivateKey, in wire.OutPoint, amount, outAmount uint64) *wire.Transaction {
	t.Helper()
	pub := priv.PubKey().SerializeCompressed()
	hash160 := crypto.Hash160(pub)

	tx := &wire.Transaction{
		Version: 1,
		Inputs:  []wire.OutPoint{in},
		Outputs: []wire.Output{{Amount: outAmount, LockType: wire.LockSingleSig, LockParams: hash160[:]}},
	}
	preimage, err := chain.SignedPreimage(&in, wire.LockSingleSig, hash160[:])
	if err != nil {
		t.Fatalf("SignedPreimage: %v", err)
	}
	sig := crypto.Sign(priv, preimage)
	w := &chain.SingleSigWitness{PubKey: pub, Sig: sig}
	tx.Witnesses = [][]byte{w.Encode()}
	return tx
}

func TestAddTransactionAcceptsValidSpend(t *testing.T) {
	c, db := newTestChain(t)
	priv, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("GeneratePrivateKey: %v", err)
	}
	in := plantUtxo(t, db, priv, 1000)
	tx := spendTx(t, priv, in, 1000, 900)

	p := New(c)
	if err := p.AddTransaction(tx); err != nil {
		t.Fatalf("AddTransaction: %v", err)
	}
	if p.Len() != 1 {
		t.Fatalf("expected 1 pooled tx, got %d", p.Len())
	}
	desc, ok := p.txs[wire.TxID(tx)]
	if !ok {
		t.Fatal("transaction missing from pool")
	}
	if desc.Fee != 100 {
		t.Fatalf("expected fee 100, got %d", desc.Fee)
	}
}

func TestAddTransactionRejectsBadSignature(t *testing.T) {
	c, db := newTestChain(t)
	priv, _ := secp256k1.GeneratePrivateKey()
	other, _ := secp256k1.GeneratePrivateKey()
	in := plantUtxo(t, db, priv, 1000)
	tx := spendTx(t, other, in, 1000, 900) // signed by the wrong key

	p := New(c)
	if err := p.AddTransaction(tx); err == nil {
		t.Fatal("expected rejection of a transaction signed by the wrong key")
	}
}

func TestAddTransactionRejectsDoubleSpendWithinPool(t *testing.T) {
	c, db := newTestChain(t)
	priv, _ := secp256k1.GeneratePrivateKey()
	in := plantUtxo(t, db, priv, 1000)

	p := New(c)
	first := spendTx(t, priv, in, 1000, 900)
	if err := p.AddTransaction(first); err != nil {
		t.Fatalf("AddTransaction(first): %v", err)
	}

	second := spendTx(t, priv, in, 1000, 800)
	if err := p.AddTransaction(second); err == nil {
		t.Fatal("expected rejection of a second transaction spending the same already-pooled input")
	}
}

func TestPickOrdersByDescendingFeeRate(t *testing.T) {
	c, db := newTestChain(t)
	p := New(c)

	var expectFirst chainhash.Hash
	for i, outAmount := range []uint64{990, 900, 950} { // fees 10, 100, 50
		priv, _ := secp256k1.GeneratePrivateKey()
		in := plantUtxo(t, db, priv, 1000)
		tx := spendTx(t, priv, in, 1000, outAmount)
		if err := p.AddTransaction(tx); err != nil {
			t.Fatalf("AddTransaction(%d): %v", i, err)
		}
		if outAmount == 900 { // highest fee (100)
			expectFirst = wire.TxID(tx)
		}
	}

	picked := p.Pick(0)
	if len(picked) != 3 {
		t.Fatalf("expected 3 transactions, got %d", len(picked))
	}
	if got := wire.TxID(picked[0]); got != expectFirst {
		t.Fatalf("expected highest fee-rate tx first, got %s want %s", got, expectFirst)
	}
}

func TestRemoveConfirmedClearsMinedTransactions(t *testing.T) {
	c, db := newTestChain(t)
	priv, _ := secp256k1.GeneratePrivateKey()
	in := plantUtxo(t, db, priv, 1000)
	tx := spendTx(t, priv, in, 1000, 900)

	p := New(c)
	if err := p.AddTransaction(tx); err != nil {
		t.Fatalf("AddTransaction: %v", err)
	}

	block := &wire.Block{Txs: []wire.Transaction{*tx}}
	p.RemoveConfirmed(block)
	if p.Len() != 0 {
		t.Fatalf("expected empty pool after RemoveConfirmed, got %d", p.Len())
	}
}
