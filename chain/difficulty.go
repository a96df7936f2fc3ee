// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chain

import (
	"math/big"

	"github.com/thunderbolt-node/thunderbolt/math/uint256"
)

// CompactToBig converts a compact-form target (the wire encoding of
// BlockHeader.Bits: a one-byte exponent plus three-byte mantissa) into its
// full big.Int form, the same base-256 floating-point layout Bitcoin's
// nBits uses.
func CompactToBig(compact uint32) *big.Int {
	mantissa := compact & 0x007fffff
	exponent := uint(compact >> 24)

	var bn *big.Int
	if exponent <= 3 {
		mantissa >>= 8 * (3 - exponent)
		bn = big.NewInt(int64(mantissa))
	} else {
		bn = big.NewInt(int64(mantissa))
		bn.Lsh(bn, 8*(exponent-3))
	}

	if compact&0x00800000 != 0 {
		bn = bn.Neg(bn)
	}
	return bn
}

// BigToCompact converts n into compact form.
func BigToCompact(n *big.Int) uint32 {
	if n.Sign() == 0 {
		return 0
	}

	var mantissa uint32
	exponent := uint(len(n.Bytes()))
	if exponent <= 3 {
		mantissa = uint32(n.Bits()[0])
		mantissa <<= 8 * (3 - exponent)
	} else {
		tn := new(big.Int).Set(n)
		mantissa = uint32(tn.Rsh(tn, 8*(exponent-3)).Bits()[0])
	}

	if mantissa&0x00800000 != 0 {
		mantissa >>= 8
		exponent++
	}

	compact := uint32(exponent<<24) | mantissa
	if n.Sign() < 0 {
		compact |= 0x00800000
	}
	return compact
}

func clampInt64(v, lo, hi int64) int64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// CalcNextRequiredDifficulty retargets difficulty every RetargetInterval
// blocks by rescaling the target by the ratio of actual to expected
// timespan, clamped to a factor of RetargetAdjustFactor either way and
// capped at PowLimitBits. Between retarget points, bits does not change.
func CalcNextRequiredDifficulty(height uint64, prevBits uint32, firstTimestamp, lastTimestamp uint32) uint32 {
	if height == 0 {
		return PowLimitBits
	}
	if height%RetargetInterval != 0 {
		return prevBits
	}

	actualTimespan := int64(lastTimestamp) - int64(firstTimestamp)
	actualTimespan = clampInt64(actualTimespan,
		TargetTimespanSeconds/RetargetAdjustFactor,
		TargetTimespanSeconds*RetargetAdjustFactor)

	oldTarget := CompactToBig(prevBits)
	newTarget := new(big.Int).Mul(oldTarget, big.NewInt(actualTimespan))
	newTarget.Div(newTarget, big.NewInt(TargetTimespanSeconds))

	if newTarget.Cmp(powLimit) > 0 {
		newTarget = powLimit
	}
	return BigToCompact(newTarget)
}

// CheckProofOfWork reports whether hash, interpreted as a big-endian
// unsigned integer, is at or below the target encoded by bits.
func CheckProofOfWork(hash [32]byte, bits uint32) bool {
	target := CompactToBig(bits)
	if target.Sign() <= 0 || target.Cmp(powLimit) > 0 {
		return false
	}
	hashNum := new(big.Int).SetBytes(reverse(hash[:]))
	return hashNum.Cmp(target) <= 0
}

func reverse(b []byte) []byte {
	out := make([]byte, len(b))
	for i, v := range b {
		out[len(b)-1-i] = v
	}
	return out
}

// oneLsh256 is 2^256, used as the numerator of the work formula below.
var oneLsh256 = new(big.Int).Lsh(big.NewInt(1), 256)

// CalcWork returns the cumulative-work contribution of a single block with
// the given bits: floor(2^256 / (target+1)), the standard definition used
// for total chain work.
func CalcWork(bits uint32) uint256.Uint256 {
	target := CompactToBig(bits)
	if target.Sign() <= 0 {
		return uint256.Zero
	}
	denom := new(big.Int).Add(target, big.NewInt(1))
	work := new(big.Int).Div(oneLsh256, denom)
	return uint256.FromBig(work)
}
