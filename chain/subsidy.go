// Copyright (c) 2013-2015 The btcsuite developers
// Copyright (c) 2015-2020 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chain

// CalcBlockSubsidy returns the base block reward for a block at height:
// 5,000,000,000 units at height 0, halving every SubsidyHalvingInterval
// blocks, reaching zero once height crosses
// SubsidyHalvingInterval*SubsidyZeroAtMultiplier.
func CalcBlockSubsidy(height uint64) uint64 {
	halvings := height / SubsidyHalvingInterval
	if halvings >= SubsidyZeroAtMultiplier {
		return 0
	}
	return BaseSubsidy >> halvings
}
