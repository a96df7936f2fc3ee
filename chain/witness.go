// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chain

import (
	"bytes"
	"errors"
)

// SingleSigWitness is the witness shape for a SingleSig input: a public
// key and a DER signature, each length-prefixed by a single byte since
// neither ever approaches 256 bytes. Transaction builders (the
// wallet, the RPC server) construct one of these per SingleSig input and
// encode it into Transaction.Witnesses.
type SingleSigWitness struct {
	PubKey []byte
	Sig    []byte
}

// Encode serializes w into the bytes stored in Transaction.Witnesses.
func (w *SingleSigWitness) Encode() []byte {
	var buf bytes.Buffer
	buf.WriteByte(byte(len(w.PubKey)))
	buf.Write(w.PubKey)
	buf.WriteByte(byte(len(w.Sig)))
	buf.Write(w.Sig)
	return buf.Bytes()
}

// DecodeSingleSigWitness parses a SingleSigWitness previously produced by
// Encode.
func DecodeSingleSigWitness(data []byte) (*SingleSigWitness, error) {
	r := bytes.NewReader(data)
	w := &SingleSigWitness{}
	n, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	w.PubKey = make([]byte, n)
	if _, err := r.Read(w.PubKey); err != nil {
		return nil, err
	}
	n, err = r.ReadByte()
	if err != nil {
		return nil, err
	}
	w.Sig = make([]byte, n)
	if _, err := r.Read(w.Sig); err != nil {
		return nil, err
	}
	return w, nil
}

// MultiSigWitness is the witness shape for a MultiSig input: the threshold
// M, the full ordered public key list (needed to recompute lockParams's
// commitment hash), and a sparse map from key index to signature.
type MultiSigWitness struct {
	M        byte
	PubKeys  [][]byte
	SigIndex []byte // parallel to Sigs: which PubKeys entry each signs with
	Sigs     [][]byte
}

var errShortWitness = errors.New("chain: truncated witness")

// Encode serializes w into the bytes stored in Transaction.Witnesses.
func (w *MultiSigWitness) Encode() []byte {
	var buf bytes.Buffer
	buf.WriteByte(w.M)
	buf.WriteByte(byte(len(w.PubKeys)))
	for _, pk := range w.PubKeys {
		buf.WriteByte(byte(len(pk)))
		buf.Write(pk)
	}
	buf.WriteByte(byte(len(w.Sigs)))
	for i, sig := range w.Sigs {
		buf.WriteByte(w.SigIndex[i])
		buf.WriteByte(byte(len(sig)))
		buf.Write(sig)
	}
	return buf.Bytes()
}

// DecodeMultiSigWitness parses a MultiSigWitness previously produced by
// Encode.
func DecodeMultiSigWitness(data []byte) (*MultiSigWitness, error) {
	r := bytes.NewReader(data)
	w := &MultiSigWitness{}

	m, err := r.ReadByte()
	if err != nil {
		return nil, errShortWitness
	}
	w.M = m

	numPk, err := r.ReadByte()
	if err != nil {
		return nil, errShortWitness
	}
	w.PubKeys = make([][]byte, numPk)
	for i := range w.PubKeys {
		n, err := r.ReadByte()
		if err != nil {
			return nil, errShortWitness
		}
		pk := make([]byte, n)
		if _, err := r.Read(pk); err != nil {
			return nil, errShortWitness
		}
		w.PubKeys[i] = pk
	}

	numSigs, err := r.ReadByte()
	if err != nil {
		return nil, errShortWitness
	}
	w.SigIndex = make([]byte, numSigs)
	w.Sigs = make([][]byte, numSigs)
	for i := range w.Sigs {
		idx, err := r.ReadByte()
		if err != nil {
			return nil, errShortWitness
		}
		n, err := r.ReadByte()
		if err != nil {
			return nil, errShortWitness
		}
		sig := make([]byte, n)
		if _, err := r.Read(sig); err != nil {
			return nil, errShortWitness
		}
		w.SigIndex[i] = idx
		w.Sigs[i] = sig
	}
	return w, nil
}
