// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"testing"

	"github.com/thunderbolt-node/thunderbolt/crypto"
)

// TestPingMessageFixture checks a known-good encoding byte for byte: a Ping
// with nonce 0xDEADBEEFCAFEBABE under the main-net magic encodes to exactly
// 14 header bytes + 8 payload bytes, with a checksum computed over the
// encoded nonce.
func TestPingMessageFixture(t *testing.T) {
	msg := &MsgPing{Nonce: 0xDEADBEEFCAFEBABE}

	var buf bytes.Buffer
	if err := WriteMessage(&buf, MainNetMagic, msg); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}
	if buf.Len() != 14+8 {
		t.Fatalf("encoded length = %d, want 22", buf.Len())
	}

	raw := buf.Bytes()
	gotChecksum := raw[10:14]
	payload := raw[14:]

	wantSum := crypto.Checksum(payload)
	if !bytes.Equal(gotChecksum, wantSum[:]) {
		t.Fatalf("checksum mismatch: got %x want %x", gotChecksum, wantSum)
	}

	decoded, _, err := ReadMessage(bytes.NewReader(raw), MainNetMagic)
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	pong, ok := decoded.(*MsgPing)
	if !ok {
		t.Fatalf("decoded type = %T, want *MsgPing", decoded)
	}
	if pong.Nonce != msg.Nonce {
		t.Fatalf("nonce mismatch: got %x want %x", pong.Nonce, msg.Nonce)
	}
}

func TestReadMessageResyncsOnGarbage(t *testing.T) {
	msg := &MsgVerack{}
	var framed bytes.Buffer
	if err := WriteMessage(&framed, MainNetMagic, msg); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}

	garbage := append([]byte{0x00, 0x11, 0x22, 0x33, 0x44}, framed.Bytes()...)
	decoded, _, err := ReadMessage(bytes.NewReader(garbage), MainNetMagic)
	if err != nil {
		t.Fatalf("ReadMessage after garbage: %v", err)
	}
	if decoded.Command() != CmdVerack {
		t.Fatalf("command = %v, want verack", decoded.Command())
	}
}

func TestReadMessageRejectsOversizePayload(t *testing.T) {
	var buf bytes.Buffer
	_ = writeUint32(&buf, MainNetMagic)
	_ = writeUint16(&buf, uint16(CmdPing))
	_ = writeUint32(&buf, MaxPayloadSize+1)
	buf.Write([]byte{0, 0, 0, 0})

	if _, _, err := ReadMessage(&buf, MainNetMagic); err == nil {
		t.Fatal("expected LengthOverflow error for oversize payload")
	}
}
