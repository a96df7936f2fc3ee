// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package crypto collects the cryptographic primitives the rest of
// Thunderbolt treats as external collaborators: double SHA-256, RIPEMD160,
// ECDSA over secp256k1, and AES-128-CBC for the wallet container. None of the
// math is reimplemented here; the package only adapts real library calls to
// the shapes the codec and chain engine expect.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"golang.org/x/crypto/ripemd160" //lint:ignore SA1019 kept for byte-compatible hash160
)

// Sha256 returns the single SHA-256 digest of b.
func Sha256(b []byte) [32]byte {
	return sha256.Sum256(b)
}

// DoubleSha256 returns SHA256(SHA256(b)), the digest used for block header
// hashes, transaction ids, and message checksums.
func DoubleSha256(b []byte) [32]byte {
	first := sha256.Sum256(b)
	return sha256.Sum256(first[:])
}

// Checksum returns the first four bytes of DoubleSha256(payload), as used in
// the wire message header.
func Checksum(payload []byte) [4]byte {
	sum := DoubleSha256(payload)
	var out [4]byte
	copy(out[:], sum[:4])
	return out
}

// Ripemd160 returns the RIPEMD160 digest of b.
func Ripemd160(b []byte) [20]byte {
	h := ripemd160.New()
	h.Write(b)
	var out [20]byte
	copy(out[:], h.Sum(nil))
	return out
}

// Hash160 returns RIPEMD160(SHA256(b)), the digest used to derive
// SingleSig/MultiSig lock parameters and addresses.
func Hash160(b []byte) [20]byte {
	sum := sha256.Sum256(b)
	return Ripemd160(sum[:])
}

// Sign produces a DER-encoded ECDSA signature over preimage using priv.
func Sign(priv *secp256k1.PrivateKey, preimage []byte) []byte {
	digest := sha256.Sum256(preimage)
	sig := ecdsa.Sign(priv, digest[:])
	return sig.Serialize()
}

// Verify checks a DER-encoded ECDSA signature over preimage against a
// serialized compressed or uncompressed public key.
func Verify(pubKeyBytes, preimage, derSig []byte) (bool, error) {
	pub, err := secp256k1.ParsePubKey(pubKeyBytes)
	if err != nil {
		return false, fmt.Errorf("parse public key: %w", err)
	}
	sig, err := ecdsa.ParseDERSignature(derSig)
	if err != nil {
		return false, fmt.Errorf("parse signature: %w", err)
	}
	digest := sha256.Sum256(preimage)
	return sig.Verify(digest[:], pub), nil
}

// ErrShortCiphertext is returned by DecryptCBC when the input is not a whole
// number of AES blocks, or is shorter than one block.
var ErrShortCiphertext = errors.New("crypto: ciphertext is not a multiple of the block size")

// EncryptCBC encrypts plaintext with AES-128-CBC under key, using iv as the
// initialization vector, after applying PKCS#7 padding.
func EncryptCBC(key, iv, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	padded := pkcs7Pad(plaintext, block.BlockSize())
	out := make([]byte, len(padded))
	mode := cipher.NewCBCEncrypter(block, iv)
	mode.CryptBlocks(out, padded)
	return out, nil
}

// DecryptCBC decrypts ciphertext with AES-128-CBC under key and iv, and
// strips the PKCS#7 padding.
func DecryptCBC(key, iv, ciphertext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	if len(ciphertext) == 0 || len(ciphertext)%block.BlockSize() != 0 {
		return nil, ErrShortCiphertext
	}
	out := make([]byte, len(ciphertext))
	mode := cipher.NewCBCDecrypter(block, iv)
	mode.CryptBlocks(out, ciphertext)
	return pkcs7Unpad(out)
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padLen := blockSize - len(data)%blockSize
	padded := make([]byte, len(data)+padLen)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(padLen)
	}
	return padded
}

func pkcs7Unpad(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, errors.New("crypto: empty plaintext")
	}
	padLen := int(data[len(data)-1])
	if padLen == 0 || padLen > len(data) {
		return nil, errors.New("crypto: invalid PKCS#7 padding")
	}
	return data[:len(data)-padLen], nil
}
