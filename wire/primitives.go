// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"encoding/binary"
	"io"

	"github.com/thunderbolt-node/thunderbolt/chaincfg/chainhash"
)

// MaxPayloadSize is the largest payload, in bytes, the codec will ever decode
// for a single message or length-prefixed byte array.
const MaxPayloadSize = 32 * 1024 * 1024

func readUint32(r io.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, protoErr(ErrTruncatedInput, "readUint32", err.Error())
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

func writeUint32(w io.Writer, v uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func readUint16(r io.Reader) (uint16, error) {
	var buf [2]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, protoErr(ErrTruncatedInput, "readUint16", err.Error())
	}
	return binary.LittleEndian.Uint16(buf[:]), nil
}

func writeUint16(w io.Writer, v uint16) error {
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func readUint64(r io.Reader) (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, protoErr(ErrTruncatedInput, "readUint64", err.Error())
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

func writeUint64(w io.Writer, v uint64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func readInt32(r io.Reader) (int32, error) {
	v, err := readUint32(r)
	return int32(v), err
}

func writeInt32(w io.Writer, v int32) error {
	return writeUint32(w, uint32(v))
}

func readInt64(r io.Reader) (int64, error) {
	v, err := readUint64(r)
	return int64(v), err
}

func writeInt64(w io.Writer, v int64) error {
	return writeUint64(w, uint64(v))
}

func readByte(r io.Reader) (byte, error) {
	var buf [1]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, protoErr(ErrTruncatedInput, "readByte", err.Error())
	}
	return buf[0], nil
}

func writeByte(w io.Writer, b byte) error {
	_, err := w.Write([]byte{b})
	return err
}

func readBool(r io.Reader) (bool, error) {
	b, err := readByte(r)
	return b != 0, err
}

func writeBool(w io.Writer, v bool) error {
	if v {
		return writeByte(w, 1)
	}
	return writeByte(w, 0)
}

func readHash(r io.Reader) (chainhash.Hash, error) {
	var h chainhash.Hash
	if _, err := io.ReadFull(r, h[:]); err != nil {
		return h, protoErr(ErrTruncatedInput, "readHash", err.Error())
	}
	return h, nil
}

func writeHash(w io.Writer, h chainhash.Hash) error {
	_, err := w.Write(h[:])
	return err
}

// readBytes reads a u32 length prefix followed by that many bytes. maxLen
// bounds the declared length against a type-specific maximum, in addition to
// the blanket MaxPayloadSize.
func readBytes(r io.Reader, maxLen uint32, fieldName string) ([]byte, error) {
	length, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	if length > MaxPayloadSize || length > maxLen {
		return nil, protoErr(ErrLengthOverflow, "readBytes",
			fieldName+" length "+itoa(length)+" exceeds maximum")
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, protoErr(ErrTruncatedInput, "readBytes", fieldName+": "+err.Error())
	}
	return buf, nil
}

func writeBytes(w io.Writer, b []byte) error {
	if err := writeUint32(w, uint32(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

// readCount reads a u32 element count and bounds it against maxCount so a
// malicious peer cannot force an enormous slice allocation.
func readCount(r io.Reader, maxCount uint32, fieldName string) (uint32, error) {
	count, err := readUint32(r)
	if err != nil {
		return 0, err
	}
	if count > maxCount {
		return 0, protoErr(ErrLengthOverflow, "readCount",
			fieldName+" count "+itoa(count)+" exceeds maximum "+itoa(maxCount))
	}
	return count, nil
}

func itoa(v uint32) string {
	if v == 0 {
		return "0"
	}
	var buf [10]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}
