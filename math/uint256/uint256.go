// Copyright (c) 2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package uint256 implements fixed-width 256-bit unsigned integer
// arithmetic for the chain engine's cumulative work accumulator
// (BlockMetadata.TotalWork). It exists so work comparisons across the
// whole chain never need to allocate a big.Int.
package uint256

import "math/big"

// Uint256 is an unsigned 256-bit integer stored as four little-endian words.
type Uint256 [4]uint64

// Zero is the additive identity.
var Zero = Uint256{}

// FromBig converts a non-negative big.Int into a Uint256. Values that do not
// fit are truncated to their low 256 bits, the same style CompactToBig/
// BigToCompact use to silently normalize out-of-range values at the
// boundary rather than panicking deep in consensus code.
func FromBig(b *big.Int) Uint256 {
	var out Uint256
	buf := make([]byte, 32)
	new(big.Int).And(b, maxUint256).FillBytes(buf)
	for i := 0; i < 4; i++ {
		var word uint64
		for j := 0; j < 8; j++ {
			word = word<<8 | uint64(buf[i*8+j])
		}
		out[3-i] = word
	}
	return out
}

var maxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// Big converts u to a big.Int.
func (u Uint256) Big() *big.Int {
	buf := make([]byte, 32)
	for i := 0; i < 4; i++ {
		word := u[3-i]
		for j := 0; j < 8; j++ {
			buf[i*8+j] = byte(word >> (56 - 8*j))
		}
	}
	return new(big.Int).SetBytes(buf)
}

// Add returns u+v, wrapping on overflow (cumulative work never approaches
// 2^256 in practice).
func (u Uint256) Add(v Uint256) Uint256 {
	var out Uint256
	var carry uint64
	for i := 0; i < 4; i++ {
		sum := u[i] + v[i] + carry
		if sum < u[i] || (carry == 1 && sum == u[i]) {
			carry = 1
		} else {
			carry = 0
		}
		out[i] = sum
	}
	return out
}

// Cmp returns -1, 0, or 1 as u is less than, equal to, or greater than v.
func (u Uint256) Cmp(v Uint256) int {
	for i := 3; i >= 0; i-- {
		if u[i] != v[i] {
			if u[i] < v[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

// GreaterThan reports whether u > v.
func (u Uint256) GreaterThan(v Uint256) bool { return u.Cmp(v) > 0 }
