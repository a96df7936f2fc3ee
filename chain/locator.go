// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chain

import "github.com/thunderbolt-node/thunderbolt/chaincfg/chainhash"

// genesisParent is the zero hash used as a terminator: the genesis block's
// header always points to it.
var genesisParent chainhash.Hash

// BuildLocator returns a block locator for the current tip: the 10 most
// recent headers back-to-back, then hashes spaced by a doubling step,
// terminating at genesis. It snapshots the tip under its own lock and is
// safe to call from outside any lock the caller may hold.
func (c *Chain) BuildLocator() []chainhash.Hash {
	c.mu.Lock()
	tip := c.tip
	c.mu.Unlock()

	if tip == nil {
		return nil
	}

	var locator []chainhash.Hash
	meta := tip
	step := 1
	for {
		locator = append(locator, meta.Hash())
		if meta.Header.Parent == genesisParent {
			break
		}
		if len(locator) >= 10 {
			step *= 2
		}
		for i := 0; i < step; i++ {
			parentHash := meta.Header.Parent
			if parentHash == genesisParent {
				break
			}
			parent, err := c.getMetadata(parentHash)
			if err != nil {
				log.Warnf("BuildLocator: missing ancestor %s: %v", parentHash, err)
				return locator
			}
			meta = parent
		}
	}
	return locator
}

// BlocksAfterLocator returns up to maxCount block hashes that come after the
// best match between locator and this chain's ancestry, oldest first: the
// reply to a GetBlocks request. It walks backward from the tip collecting
// ancestors until it reaches a hash locator names (or genesis), then
// returns that run in forward order.
func (c *Chain) BlocksAfterLocator(locator []chainhash.Hash, maxCount int) []chainhash.Hash {
	c.mu.Lock()
	tip := c.tip
	c.mu.Unlock()

	if tip == nil {
		return nil
	}

	known := make(map[chainhash.Hash]struct{}, len(locator))
	for _, h := range locator {
		known[h] = struct{}{}
	}

	var path []chainhash.Hash
	meta := tip
	for {
		hash := meta.Hash()
		if _, ok := known[hash]; ok {
			break
		}
		path = append(path, hash)
		if meta.Header.Parent == genesisParent {
			break
		}
		parent, err := c.getMetadata(meta.Header.Parent)
		if err != nil {
			log.Warnf("BlocksAfterLocator: missing ancestor %s: %v", meta.Header.Parent, err)
			break
		}
		meta = parent
	}

	// path is newest-first (tip..match+1); keep the maxCount entries closest
	// to the match point, then reverse to oldest-first before returning.
	if len(path) > maxCount {
		path = path[len(path)-maxCount:]
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}
