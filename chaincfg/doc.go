// Package chaincfg defines network parameters for the Thunderbolt networks:
// main, test, reg, and sim. Each network has its own genesis block, magic,
// default port, and proof-of-work limit, so software must never mix data
// gathered under one network's parameters with another.
//
// A (typically global) variable holds the active network's Params for the
// lifetime of a process:
//
//	activeNetParams := chaincfg.MainNetParams()
//
//	func main() {
//	        if *testnet {
//	                activeNetParams = chaincfg.TestNetParams()
//	        }
//	}
package chaincfg
