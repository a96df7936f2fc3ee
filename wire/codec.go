// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"io"
)

// EncodeOutput writes a single Output.
func EncodeOutput(w io.Writer, o *Output) error {
	if err := writeUint64(w, o.Amount); err != nil {
		return err
	}
	if err := writeByte(w, byte(o.LockType)); err != nil {
		return err
	}
	return writeBytes(w, o.LockParams)
}

// DecodeOutput reads a single Output, rejecting unknown lock types and
// other encoding invariant violations.
func DecodeOutput(r io.Reader) (Output, error) {
	var o Output
	amount, err := readUint64(r)
	if err != nil {
		return o, err
	}
	lt, err := readByte(r)
	if err != nil {
		return o, err
	}
	params, err := readBytes(r, MaxPayloadSize, "lockParams")
	if err != nil {
		return o, err
	}

	o.Amount = amount
	o.LockType = LockType(lt)
	o.LockParams = params
	if !o.LockType.IsValid() {
		return o, protoErr(ErrUnknownEnum, "DecodeOutput", "unknown lockType")
	}
	if o.Amount > MaxMoney {
		return o, protoErr(ErrLengthOverflow, "DecodeOutput", "amount exceeds MAX_MONEY")
	}
	if o.LockType == LockUnspendable && len(o.LockParams) > MaxUnspendableDataSize {
		return o, protoErr(ErrLengthOverflow, "DecodeOutput", "unspendable lockParams too large")
	}
	return o, nil
}

// EncodeOutPoint writes a single OutPoint.
func EncodeOutPoint(w io.Writer, op *OutPoint) error {
	if err := writeHash(w, op.RefTx); err != nil {
		return err
	}
	return writeUint32(w, op.Index)
}

// DecodeOutPoint reads a single OutPoint.
func DecodeOutPoint(r io.Reader) (OutPoint, error) {
	var op OutPoint
	h, err := readHash(r)
	if err != nil {
		return op, err
	}
	idx, err := readUint32(r)
	if err != nil {
		return op, err
	}
	op.RefTx = h
	op.Index = idx
	return op, nil
}

// encodeTransaction writes tx; witnesses are included only when
// includeWitnesses is true, which is how TxID excludes them from the signed
// digest while the wire codec includes them for relay.
func encodeTransaction(w io.Writer, tx *Transaction, includeWitnesses bool) error {
	if err := writeInt32(w, tx.Version); err != nil {
		return err
	}
	if err := writeUint32(w, uint32(len(tx.Inputs))); err != nil {
		return err
	}
	for i := range tx.Inputs {
		if err := EncodeOutPoint(w, &tx.Inputs[i]); err != nil {
			return err
		}
	}
	if err := writeUint32(w, uint32(len(tx.Outputs))); err != nil {
		return err
	}
	for i := range tx.Outputs {
		if err := EncodeOutput(w, &tx.Outputs[i]); err != nil {
			return err
		}
	}
	if err := writeUint64(w, tx.LockTime); err != nil {
		return err
	}
	if !includeWitnesses {
		return nil
	}
	if err := writeUint32(w, uint32(len(tx.Witnesses))); err != nil {
		return err
	}
	for _, wit := range tx.Witnesses {
		if err := writeBytes(w, wit); err != nil {
			return err
		}
	}
	return nil
}

// EncodeTransaction writes the full transaction, witnesses included.
func EncodeTransaction(w io.Writer, tx *Transaction) error {
	return encodeTransaction(w, tx, true)
}

// MaxInputsOrOutputs bounds the declared input/output counts of a single
// transaction, generous enough for any block that fits MaxBlockSize.
const MaxInputsOrOutputs = MaxBlockSize / 41

// DecodeTransaction reads a full transaction.
func DecodeTransaction(r io.Reader) (Transaction, error) {
	var tx Transaction
	ver, err := readInt32(r)
	if err != nil {
		return tx, err
	}
	tx.Version = ver

	inCount, err := readCount(r, MaxInputsOrOutputs, "inputs")
	if err != nil {
		return tx, err
	}
	tx.Inputs = make([]OutPoint, inCount)
	for i := range tx.Inputs {
		tx.Inputs[i], err = DecodeOutPoint(r)
		if err != nil {
			return tx, err
		}
	}

	outCount, err := readCount(r, MaxInputsOrOutputs, "outputs")
	if err != nil {
		return tx, err
	}
	tx.Outputs = make([]Output, outCount)
	for i := range tx.Outputs {
		tx.Outputs[i], err = DecodeOutput(r)
		if err != nil {
			return tx, err
		}
	}

	lockTime, err := readUint64(r)
	if err != nil {
		return tx, err
	}
	tx.LockTime = lockTime

	witCount, err := readCount(r, MaxInputsOrOutputs, "witnesses")
	if err != nil {
		return tx, err
	}
	tx.Witnesses = make([][]byte, witCount)
	for i := range tx.Witnesses {
		tx.Witnesses[i], err = readBytes(r, MaxPayloadSize, "witness")
		if err != nil {
			return tx, err
		}
	}

	if len(tx.Witnesses) != len(tx.Inputs) {
		return tx, protoErr(ErrLengthOverflow, "DecodeTransaction",
			"len(witnesses) must equal len(inputs)")
	}
	return tx, nil
}

func encodeBlockHeader(w io.Writer, h *BlockHeader) error {
	if err := writeInt32(w, h.Version); err != nil {
		return err
	}
	if err := writeHash(w, h.Parent); err != nil {
		return err
	}
	if err := writeHash(w, h.MerkleRoot); err != nil {
		return err
	}
	if err := writeUint32(w, h.Timestamp); err != nil {
		return err
	}
	if err := writeUint32(w, h.Bits); err != nil {
		return err
	}
	return writeUint32(w, h.Nonce)
}

// EncodeBlockHeader writes a BlockHeader.
func EncodeBlockHeader(w io.Writer, h *BlockHeader) error {
	return encodeBlockHeader(w, h)
}

// DecodeBlockHeader reads a BlockHeader.
func DecodeBlockHeader(r io.Reader) (BlockHeader, error) {
	var h BlockHeader
	var err error
	if h.Version, err = readInt32(r); err != nil {
		return h, err
	}
	if h.Parent, err = readHash(r); err != nil {
		return h, err
	}
	if h.MerkleRoot, err = readHash(r); err != nil {
		return h, err
	}
	if h.Timestamp, err = readUint32(r); err != nil {
		return h, err
	}
	if h.Bits, err = readUint32(r); err != nil {
		return h, err
	}
	if h.Nonce, err = readUint32(r); err != nil {
		return h, err
	}
	return h, nil
}

// MaxTxsPerBlock generously bounds the declared transaction count of a block.
const MaxTxsPerBlock = MaxBlockSize / 60

// EncodeBlock writes a full block.
func EncodeBlock(w io.Writer, b *Block) error {
	if err := encodeBlockHeader(w, &b.Header); err != nil {
		return err
	}
	if err := writeUint32(w, uint32(len(b.Txs))); err != nil {
		return err
	}
	for i := range b.Txs {
		if err := EncodeTransaction(w, &b.Txs[i]); err != nil {
			return err
		}
	}
	return nil
}

// DecodeBlock reads a full block and rejects anything over MaxBlockSize once
// fully decoded.
func DecodeBlock(r io.Reader) (Block, error) {
	var b Block
	var err error
	if b.Header, err = DecodeBlockHeader(r); err != nil {
		return b, err
	}
	count, err := readCount(r, MaxTxsPerBlock, "txs")
	if err != nil {
		return b, err
	}
	b.Txs = make([]Transaction, count)
	for i := range b.Txs {
		b.Txs[i], err = DecodeTransaction(r)
		if err != nil {
			return b, err
		}
	}
	if b.SerializeSize() > MaxBlockSize {
		return b, protoErr(ErrLengthOverflow, "DecodeBlock", "block exceeds MAX_BLOCK_SIZE")
	}
	return b, nil
}

// EncodeNetworkAddress writes a NetworkAddress.
func EncodeNetworkAddress(w io.Writer, a *NetworkAddress) error {
	if err := writeUint64(w, a.Services); err != nil {
		return err
	}
	if _, err := w.Write(a.IP[:]); err != nil {
		return err
	}
	return writeUint16(w, a.Port)
}

// DecodeNetworkAddress reads a NetworkAddress.
func DecodeNetworkAddress(r io.Reader) (NetworkAddress, error) {
	var a NetworkAddress
	services, err := readUint64(r)
	if err != nil {
		return a, err
	}
	a.Services = services
	if _, err := io.ReadFull(r, a.IP[:]); err != nil {
		return a, protoErr(ErrTruncatedInput, "DecodeNetworkAddress", err.Error())
	}
	port, err := readUint16(r)
	if err != nil {
		return a, err
	}
	a.Port = port
	return a, nil
}

// encodeToBytes is a convenience wrapper returning the encoded bytes of any value
// whose encoder is one of the functions above.
func encodeToBytes(encode func(io.Writer) error) ([]byte, error) {
	var buf bytes.Buffer
	if err := encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
