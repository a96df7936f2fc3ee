package chain

import (
	"math/big"
	"testing"

	"github.com/thunderbolt-node/thunderbolt/chaincfg/chainhash"
	"github.com/thunderbolt-node/thunderbolt/database/blockstore"
	"github.com/thunderbolt-node/thunderbolt/database/metadb"
	"github.com/thunderbolt-node/thunderbolt/wire"
)

const (
	testBlockMagic  = 0x74626c6b
	testRevertMagic = 0x74627276
)

func TestCompactBigRoundTrip(t *testing.T) {
	for _, bits := range []uint32{0x1d00ffff, 0x1dfffff8, PowLimitBits} {
		n := CompactToBig(bits)
		got := BigToCompact(n)
		if got != bits {
			t.Fatalf("round trip mismatch for %08x: got %08x (n=%s)", bits, got, n)
		}
	}
}

func TestCalcBlockSubsidyHalving(t *testing.T) {
	cases := []struct {
		height uint64
		want   uint64
	}{
		{0, BaseSubsidy},
		{SubsidyHalvingInterval - 1, BaseSubsidy},
		{SubsidyHalvingInterval, BaseSubsidy / 2},
		{SubsidyHalvingInterval * SubsidyZeroAtMultiplier, 0},
	}
	for _, c := range cases {
		if got := CalcBlockSubsidy(c.height); got != c.want {
			t.Fatalf("CalcBlockSubsidy(%d) = %d, want %d", c.height, got, c.want)
		}
	}
}

func TestCalcNextRequiredDifficultyNoRetarget(t *testing.T) {
	got := CalcNextRequiredDifficulty(1, 0x1d00ffff, 0, 0)
	if got != 0x1d00ffff {
		t.Fatalf("expected unchanged bits between retarget points, got %08x", got)
	}
}

func TestCalcNextRequiredDifficultyClampsExtremeTimespan(t *testing.T) {
	// A wildly fast window should clamp to TARGET_TIMESPAN/4, not collapse
	// the target to near zero.
	fast := CalcNextRequiredDifficulty(RetargetInterval, 0x1d00ffff, 1000, 1001)
	slow := CalcNextRequiredDifficulty(RetargetInterval, 0x1d00ffff, 1000, 1000+TargetTimespanSeconds*100)

	fastTarget := CompactToBig(fast)
	slowTarget := CompactToBig(slow)
	oldTarget := CompactToBig(0x1d00ffff)

	minTarget := new(big.Int).Div(oldTarget, big.NewInt(RetargetAdjustFactor))
	if fastTarget.Cmp(minTarget) < 0 {
		t.Fatalf("fast-window target %s fell below the clamp floor %s", fastTarget, minTarget)
	}
	if slowTarget.Cmp(powLimit) > 0 {
		t.Fatalf("slow-window target %s exceeded PROOF_OF_WORK_LIMIT", slowTarget)
	}
}

func TestCheckTransactionSanityRejectsDuplicateInput(t *testing.T) {
	tx := &wire.Transaction{
		Version: 1,
		Inputs: []wire.OutPoint{
			{RefTx: chainhash.Hash{0x01}, Index: 0},
			{RefTx: chainhash.Hash{0x01}, Index: 0},
		},
		Outputs:   []wire.Output{{Amount: 1, LockType: wire.LockSingleSig, LockParams: make([]byte, 20)}},
		Witnesses: [][]byte{nil, nil},
	}
	if err := checkTransactionSanity(tx, false); err == nil {
		t.Fatal("expected duplicate-input rejection")
	}
}

func TestCheckTransactionSanityRequiresCoinbaseShape(t *testing.T) {
	tx := &wire.Transaction{
		Version:   1,
		Inputs:    []wire.OutPoint{{RefTx: chainhash.Hash{0x01}, Index: 0}}, // not the all-zero coinbase outpoint
		Outputs:   []wire.Output{{Amount: 1, LockType: wire.LockSingleSig, LockParams: make([]byte, 20)}},
		Witnesses: [][]byte{nil},
	}
	if err := checkTransactionSanity(tx, true); err == nil {
		t.Fatal("expected rejection of a non-coinbase-shaped first transaction")
	}
}

func newTestChain(t *testing.T) *Chain {
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

	return New(db, blocks, reverts)
}

func testGenesisBlock() *wire.Block {
	coinbase := wire.Transaction{
		Version: 1,
		Inputs:  []wire.OutPoint{{}},
		Outputs: []wire.Output{
			{Amount: BaseSubsidy, LockType: wire.LockUnspendable, LockParams: nil},
		},
		Witnesses: [][]byte{nil},
	}
	b := &wire.Block{
		Header: wire.BlockHeader{
			Version:   1,
			Timestamp: 1525003294,
			Bits:      0x1dfffff8,
			Nonce:     449327816,
		},
		Txs: []wire.Transaction{coinbase},
	}
	b.Header.MerkleRoot = CalcMerkleRoot(b.Txs)
	return b
}

func TestInitGenesisBootstrapIsIdempotent(t *testing.T) {
	c := newTestChain(t)
	genesis := testGenesisBlock()

	if err := c.InitGenesis(genesis); err != nil {
		t.Fatalf("InitGenesis: %v", err)
	}
	tip := c.Tip()
	if tip.Height != 0 {
		t.Fatalf("expected genesis height 0, got %d", tip.Height)
	}
	if tip.Header.Nonce != genesis.Header.Nonce {
		t.Fatalf("tip nonce mismatch: got %d want %d", tip.Header.Nonce, genesis.Header.Nonce)
	}

	// A second call must not re-mutate the stored chain head.
	if err := c.InitGenesis(genesis); err != nil {
		t.Fatalf("second InitGenesis: %v", err)
	}
	if c.Tip().Hash() != tip.Hash() {
		t.Fatalf("InitGenesis was not idempotent")
	}
}
