// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chain

import "math/big"

// Retarget constants. RetargetInterval is chosen wide enough that a
// testnet-scale chain still sees several retarget events without forcing
// an unreasonably short timespan.
const (
	RetargetInterval      = 5040
	TargetTimespanSeconds = 7 * 24 * 60 * 60
	TargetSpacingSeconds  = 120
	RetargetAdjustFactor  = 4
)

// Subsidy constants governing the block reward halving schedule.
const (
	BaseSubsidy             = 5000000000
	SubsidyHalvingInterval  = 210000
	SubsidyZeroAtMultiplier = 64
)

// CoinbaseMaturity is the number of confirmations a coinbase output needs
// before it may be spent.
const CoinbaseMaturity = 100

// MempoolMaxBytes bounds the mempool's total byte size before lowest
// fee-rate eviction kicks in.
const MempoolMaxBytes = 64 * 1024 * 1024

// OrphanPoolCapacity bounds the block acceptance pipeline's orphan pool:
// FIFO, drop oldest.
const OrphanPoolCapacity = 512

// powLimit is PROOF_OF_WORK_LIMIT = 2^224 - 1, the easiest difficulty this
// chain will ever accept.
var powLimit = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 224), big.NewInt(1))

// PowLimitBits is powLimit encoded in compact form; any post-reset
// minimum-difficulty block carries this value. The main-net genesis block
// does not: it carries its fixed fixture bits 0x1dfffff8.
var PowLimitBits = BigToCompact(powLimit)
