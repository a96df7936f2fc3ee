package metadb

import (
	"testing"

	"github.com/thunderbolt-node/thunderbolt/chaincfg/chainhash"
	"github.com/thunderbolt-node/thunderbolt/database/blockstore"
	"github.com/thunderbolt-node/thunderbolt/wire"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleBlockMetadata() *BlockMetadata {
	return &BlockMetadata{
		Header: wire.BlockHeader{
			Version:   1,
			Timestamp: 1525003294,
			Bits:      0x1dfffff8,
			Nonce:     449327816,
		},
		Height:  0,
		TxCount: 1,
		Status:  StatusOnMain,
		BlockPtr: blockstore.Pointer{
			Segment: 0,
			Offset:  0,
		},
	}
}

func TestPutGetBlockMetadata(t *testing.T) {
	db := openTestDB(t)
	m := sampleBlockMetadata()

	if err := db.PutBlockMetadata(m); err != nil {
		t.Fatalf("PutBlockMetadata: %v", err)
	}
	got, err := db.GetBlockMetadata(m.Hash())
	if err != nil {
		t.Fatalf("GetBlockMetadata: %v", err)
	}
	if got.Height != m.Height || got.Header.Nonce != m.Header.Nonce {
		t.Fatalf("round trip mismatch: got %+v want %+v", got, m)
	}
}

func TestGetBlockMetadataNotFound(t *testing.T) {
	db := openTestDB(t)
	_, err := db.GetBlockMetadata(chainhash.Hash{0x01})
	if err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUtxoPutHasDelete(t *testing.T) {
	db := openTestDB(t)
	txid := chainhash.Hash{0xAA}
	entry := &UtxoEntry{
		TxID:       txid,
		Index:      0,
		IsCoinbase: true,
		Output: wire.Output{
			Amount:   5000000000,
			LockType: wire.LockSingleSig,
		},
	}

	batch := db.NewBatch()
	if err := batch.PutUtxo(entry); err != nil {
		t.Fatalf("PutUtxo: %v", err)
	}
	if err := db.Write(batch); err != nil {
		t.Fatalf("Write: %v", err)
	}

	has, err := db.HasUtxo(txid, 0)
	if err != nil || !has {
		t.Fatalf("expected utxo present, has=%v err=%v", has, err)
	}

	spend := db.NewBatch()
	spend.DeleteUtxo(txid, 0)
	if err := db.Write(spend); err != nil {
		t.Fatalf("Write spend: %v", err)
	}
	has, err = db.HasUtxo(txid, 0)
	if err != nil || has {
		t.Fatalf("expected utxo gone after spend, has=%v err=%v", has, err)
	}
}

func TestBatchAtomicPublish(t *testing.T) {
	db := openTestDB(t)
	m := sampleBlockMetadata()

	batch := db.NewBatch()
	if err := batch.SetChainHead(m); err != nil {
		t.Fatalf("SetChainHead: %v", err)
	}
	batch.SetLatestBlockSegment(3)
	if err := db.Write(batch); err != nil {
		t.Fatalf("Write: %v", err)
	}

	head, err := db.GetChainHead()
	if err != nil {
		t.Fatalf("GetChainHead: %v", err)
	}
	if head.Header.Nonce != m.Header.Nonce {
		t.Fatalf("chain head mismatch: got %+v want %+v", head, m)
	}

	seg, err := db.GetLatestBlockSegment()
	if err != nil {
		t.Fatalf("GetLatestBlockSegment: %v", err)
	}
	if seg != 3 {
		t.Fatalf("expected latest segment 3, got %d", seg)
	}
}

func TestForEachAddress(t *testing.T) {
	db := openTestDB(t)
	var raw [16]byte
	raw[15] = 1
	if err := db.PutAddressMetadata(raw, &NetworkAddressMetadata{
		Addr:     wire.NetworkAddress{Port: 9567},
		LastSeen: 42,
	}); err != nil {
		t.Fatalf("PutAddressMetadata: %v", err)
	}

	seen := 0
	err := db.ForEachAddress(func(got [16]byte, m *NetworkAddressMetadata) error {
		seen++
		if got != raw {
			t.Fatalf("unexpected address key: %x", got)
		}
		if m.LastSeen != 42 {
			t.Fatalf("unexpected LastSeen: %d", m.LastSeen)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("ForEachAddress: %v", err)
	}
	if seen != 1 {
		t.Fatalf("expected 1 address, saw %d", seen)
	}
}
