// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chain

import (
	"bytes"
	"fmt"

	"github.com/thunderbolt-node/thunderbolt/crypto"
	"github.com/thunderbolt-node/thunderbolt/database/metadb"
	"github.com/thunderbolt-node/thunderbolt/wire"
)

// SignedPreimage builds the bytes an unlock check verifies a signature
// over: serialize(input) || lockType || lockParams. Wallets and the RPC
// server sign this exact byte string when constructing a SingleSig or
// MultiSig witness for input.
func SignedPreimage(input *wire.OutPoint, lockType wire.LockType, lockParams []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := wire.EncodeOutPoint(&buf, input); err != nil {
		return nil, err
	}
	buf.WriteByte(byte(lockType))
	buf.Write(lockParams)
	return buf.Bytes(), nil
}

// checkUnlock verifies that witness unlocks the output referenced by input
// under entry's lock, dispatching on the output's lock type.
func checkUnlock(input *wire.OutPoint, entry *metadb.UtxoEntry, witness []byte) error {
	preimage, err := SignedPreimage(input, entry.Output.LockType, entry.Output.LockParams)
	if err != nil {
		return err
	}

	switch entry.Output.LockType {
	case wire.LockSingleSig:
		return checkSingleSig(entry.Output.LockParams, preimage, witness)
	case wire.LockMultiSig:
		return checkMultiSig(entry.Output.LockParams, preimage, witness)
	case wire.LockUnspendable:
		return fmt.Errorf("output is unspendable")
	default:
		return fmt.Errorf("unknown lock type %s", entry.Output.LockType)
	}
}

func checkSingleSig(lockParams, preimage, witnessBytes []byte) error {
	w, err := DecodeSingleSigWitness(witnessBytes)
	if err != nil {
		return fmt.Errorf("malformed single-sig witness: %w", err)
	}
	hash160 := crypto.Hash160(w.PubKey)
	if !bytes.Equal(hash160[:], lockParams) {
		return fmt.Errorf("public key does not match lockParams")
	}
	ok, err := crypto.Verify(w.PubKey, preimage, w.Sig)
	if err != nil {
		return fmt.Errorf("signature verify: %w", err)
	}
	if !ok {
		return fmt.Errorf("invalid signature")
	}
	return nil
}

func checkMultiSig(lockParams, preimage, witnessBytes []byte) error {
	w, err := DecodeMultiSigWitness(witnessBytes)
	if err != nil {
		return fmt.Errorf("malformed multi-sig witness: %w", err)
	}

	var commitBuf bytes.Buffer
	commitBuf.WriteByte(w.M)
	for _, pk := range w.PubKeys {
		commitBuf.Write(pk)
	}
	h := crypto.DoubleSha256(commitBuf.Bytes())
	if !bytes.Equal(h[:], lockParams) {
		return fmt.Errorf("pubkey set does not match lockParams")
	}

	if int(w.M) != len(w.Sigs) {
		return fmt.Errorf("expected %d signatures, got %d", w.M, len(w.Sigs))
	}

	used := make(map[byte]bool, len(w.Sigs))
	for i, sig := range w.Sigs {
		idx := w.SigIndex[i]
		if used[idx] {
			return fmt.Errorf("key index %d used more than once", idx)
		}
		used[idx] = true
		if int(idx) >= len(w.PubKeys) {
			return fmt.Errorf("key index %d out of range", idx)
		}
		ok, err := crypto.Verify(w.PubKeys[idx], preimage, sig)
		if err != nil {
			return fmt.Errorf("signature verify: %w", err)
		}
		if !ok {
			return fmt.Errorf("invalid signature at index %d", idx)
		}
	}
	return nil
}
