// Command rskcli is a command line client for Rootstock.
//
// Usage:
//
//	rskcli [--config rsk.yaml] [--network testnet] <command> [args]
//
// Examples:
//
//	# Checksum an address for mainnet
//	rskcli --network mainnet checksum 0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed
//
//	# Balance of an RNS name
//	rskcli balance alice.rsk
//
//	# Send 0.001 RBTC, key taken from the environment
//	RSK_PRIVATE_KEY=0x... rskcli send 0x5aAeb6053F3e94c9b9A09F33669435E7EF1BEaEd 0.001
//
// Every flag can also be set through the config file or an RSK_ environment
// variable (RSK_RPC_URL, RSK_LOG_LEVEL, RSK_PRIVATE_KEY, ...).
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
