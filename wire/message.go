// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"io"

	"github.com/thunderbolt-node/thunderbolt/crypto"
)

// MessageType identifies the payload carried by a message.
type MessageType uint16

const (
	CmdPing MessageType = iota
	CmdPong
	CmdVersion
	CmdVerack
	CmdAddress
	CmdGetAddress
	CmdGetBlocks
	CmdGetHeaders
	CmdInventory
	CmdGetData
	CmdBlock
	CmdHeaders
	CmdTransaction
	CmdNotFound
)

func (t MessageType) String() string {
	switch t {
	case CmdPing:
		return "ping"
	case CmdPong:
		return "pong"
	case CmdVersion:
		return "version"
	case CmdVerack:
		return "verack"
	case CmdAddress:
		return "address"
	case CmdGetAddress:
		return "getaddress"
	case CmdGetBlocks:
		return "getblocks"
	case CmdGetHeaders:
		return "getheaders"
	case CmdInventory:
		return "inventory"
	case CmdGetData:
		return "getdata"
	case CmdBlock:
		return "block"
	case CmdHeaders:
		return "headers"
	case CmdTransaction:
		return "transaction"
	case CmdNotFound:
		return "notfound"
	default:
		return "unknown"
	}
}

// MainNetMagic is Thunderbolt's default main-net magic, byte sequence
// 0x70 0x64 0x6E 0x74 read little-endian.
const MainNetMagic uint32 = 0x746e6470

// MainNetPort is the default P2P listen port.
const MainNetPort = 9567

// TestNetMagic, RegNetMagic, and SimNetMagic distinguish the public test
// network, the local regression-test harness, and the simulation network
// from main-net and each other, so a misconfigured peer never accidentally
// cross-connects.
const (
	TestNetMagic uint32 = 0x746e6474
	RegNetMagic  uint32 = 0x746e6472
	SimNetMagic  uint32 = 0x746e6473
)

// TestNetPort, RegNetPort, and SimNetPort are the default listen ports for
// the non-main networks.
const (
	TestNetPort = 19567
	RegNetPort  = 19568
	SimNetPort  = 19569
)

// ProtocolVersion is the protocol version advertised in the Version message.
const ProtocolVersion uint32 = 1

// messageHeaderSize is the fixed size of a MessageHeader on the wire:
// magic(4) + type(2) + payloadLen(4) + checksum(4).
const messageHeaderSize = 4 + 2 + 4 + 4

// MessageHeader is the fixed framing prefix of every wire message.
type MessageHeader struct {
	Magic      uint32
	Type       MessageType
	PayloadLen uint32
	Checksum   [4]byte
}

// Message is implemented by every payload type the protocol defines.
type Message interface {
	Command() MessageType
	Encode(w io.Writer) error
	Decode(r io.Reader) error
}

// NewMessageForType returns a zero-value Message for the given type, or nil
// if the type is not recognized.
func NewMessageForType(t MessageType) Message {
	switch t {
	case CmdPing:
		return &MsgPing{}
	case CmdPong:
		return &MsgPong{}
	case CmdVersion:
		return &MsgVersion{}
	case CmdVerack:
		return &MsgVerack{}
	case CmdAddress:
		return &MsgAddress{}
	case CmdGetAddress:
		return &MsgGetAddress{}
	case CmdGetBlocks:
		return &MsgGetBlocks{}
	case CmdGetHeaders:
		return &MsgGetHeaders{}
	case CmdInventory:
		return &MsgInventory{}
	case CmdGetData:
		return &MsgGetData{}
	case CmdBlock:
		return &MsgBlock{}
	case CmdHeaders:
		return &MsgHeaders{}
	case CmdTransaction:
		return &MsgTransaction{}
	case CmdNotFound:
		return &MsgNotFound{}
	default:
		return nil
	}
}

// WriteMessage frames msg with magic and writes it to w in one call: the
// payload is encoded to a buffer first so the length and checksum fields can
// be filled in before anything touches the wire.
func WriteMessage(w io.Writer, magic uint32, msg Message) error {
	var payload bytes.Buffer
	if err := msg.Encode(&payload); err != nil {
		return err
	}
	if payload.Len() > MaxPayloadSize {
		return protoErr(ErrLengthOverflow, "WriteMessage", "payload exceeds 32 MiB")
	}

	if err := writeUint32(w, magic); err != nil {
		return err
	}
	if err := writeUint16(w, uint16(msg.Command())); err != nil {
		return err
	}
	if err := writeUint32(w, uint32(payload.Len())); err != nil {
		return err
	}
	checksum := crypto.Checksum(payload.Bytes())
	if _, err := w.Write(checksum[:]); err != nil {
		return err
	}
	_, err := w.Write(payload.Bytes())
	return err
}

// ReadMessage scans r for the next valid framed message. Before reading a
// header it resyncs on the magic value byte-by-byte so garbage on the wire
// (a dropped partial write, a misbehaving peer) cannot wedge the reader.
func ReadMessage(r io.Reader, magic uint32) (Message, []byte, error) {
	if err := resyncOnMagic(r, magic); err != nil {
		return nil, nil, err
	}

	typeCode, err := readUint16(r)
	if err != nil {
		return nil, nil, err
	}
	payloadLen, err := readUint32(r)
	if err != nil {
		return nil, nil, err
	}
	if payloadLen > MaxPayloadSize {
		return nil, nil, protoErr(ErrLengthOverflow, "ReadMessage", "payloadLen exceeds 32 MiB")
	}
	var checksum [4]byte
	if _, err := io.ReadFull(r, checksum[:]); err != nil {
		return nil, nil, protoErr(ErrTruncatedInput, "ReadMessage", err.Error())
	}

	payload := make([]byte, payloadLen)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, nil, protoErr(ErrTruncatedInput, "ReadMessage", err.Error())
	}

	want := crypto.Checksum(payload)
	if checksum != want {
		return nil, nil, protoErr(ErrLengthOverflow, "ReadMessage", "checksum mismatch")
	}

	msg := NewMessageForType(MessageType(typeCode))
	if msg == nil {
		return nil, payload, protoErr(ErrUnknownEnum, "ReadMessage", "unknown message type")
	}
	if err := msg.Decode(bytes.NewReader(payload)); err != nil {
		return nil, payload, err
	}
	return msg, payload, nil
}

// resyncOnMagic reads single bytes from r until the last four read bytes,
// interpreted little-endian, equal magic, then returns with r positioned
// immediately after the magic.
func resyncOnMagic(r io.Reader, magic uint32) error {
	var window [4]byte
	var magicBytes [4]byte
	magicBytes[0] = byte(magic)
	magicBytes[1] = byte(magic >> 8)
	magicBytes[2] = byte(magic >> 16)
	magicBytes[3] = byte(magic >> 24)

	if _, err := io.ReadFull(r, window[:]); err != nil {
		return protoErr(ErrTruncatedInput, "resyncOnMagic", err.Error())
	}
	for window != magicBytes {
		b, err := readByte(r)
		if err != nil {
			return err
		}
		window[0], window[1], window[2], window[3] = window[1], window[2], window[3], b
	}
	return nil
}
