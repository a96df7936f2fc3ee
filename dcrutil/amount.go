// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package dcrutil holds small, standalone helpers shared by the CLI and RPC
// layers that don't belong in wire or chain. Amount is presently the only
// one this domain needs; Thunderbolt addresses use their own hex encoding
// rather than base58 address/WIF encoding.
package dcrutil

import (
	"errors"
	"math"
	"strconv"

	"github.com/thunderbolt-node/thunderbolt/wire"
)

// ErrInvalidAmount is returned when a decimal coin amount can't be
// represented exactly as an Amount, e.g. because it has too many digits
// after the decimal point or overflows the unit scale.
var ErrInvalidAmount = errors.New("invalid amount")

// Amount represents a quantity of thunderbolt units, the smallest
// indivisible value (1 coin = wire.Coin units). It is always an int64 count
// of units, never a floating-point coin value, so arithmetic on it never
// accumulates rounding error.
type Amount int64

// NewAmount creates an Amount from a floating-point coin value, rounding to
// the nearest unit. It rejects NaN, Inf, and values that would overflow an
// Amount.
func NewAmount(coins float64) (Amount, error) {
	if math.IsNaN(coins) || math.IsInf(coins, 0) {
		return 0, ErrInvalidAmount
	}
	units := math.Round(coins * wire.Coin)
	if units < math.MinInt64 || units > math.MaxInt64 {
		return 0, ErrInvalidAmount
	}
	return Amount(units), nil
}

// ToCoin returns the amount as a floating-point number of coins.
func (a Amount) ToCoin() float64 {
	return float64(a) / wire.Coin
}

// ToUnit returns the amount in the given AmountUnit.
func (a Amount) ToUnit(u AmountUnit) float64 {
	return a.ToCoin() / math.Pow10(int(u))
}

// String formats the amount as a decimal coin value.
func (a Amount) String() string {
	return strconv.FormatFloat(a.ToCoin(), 'f', -1, 64) + " " + AmountCoin.String()
}

// AmountUnit maps a power-of-ten scale onto its suffix, mirroring btcsuite's
// AmountUnit convention so CLI output can pick the most readable scale.
type AmountUnit int

const (
	AmountMegaCoin  AmountUnit = 6
	AmountKiloCoin  AmountUnit = 3
	AmountCoin      AmountUnit = 0
	AmountMilliCoin AmountUnit = -3
	AmountMicroCoin AmountUnit = -6
	AmountAtom      AmountUnit = -8
)

// String returns the unit's suffix, e.g. "coin" or "mcoin".
func (u AmountUnit) String() string {
	switch u {
	case AmountMegaCoin:
		return "Mcoin"
	case AmountKiloCoin:
		return "kcoin"
	case AmountCoin:
		return "coin"
	case AmountMilliCoin:
		return "mcoin"
	case AmountMicroCoin:
		return "ucoin"
	case AmountAtom:
		return "atom"
	default:
		return "1e" + strconv.Itoa(int(u)) + " coin"
	}
}
