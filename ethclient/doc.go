// Package ethclient is a JSON-RPC client for Rootstock nodes.
//
// Rootstock is a Bitcoin merge-mined sidechain whose node speaks the Ethereum
// JSON-RPC dialect with a few differences this client smooths over.
//
// # Legacy transactions only
//
// There is no EIP-1559 fee market and no EIP-4844 blobs. SendTransaction
// rejects typed transactions and call arguments only carry gasPrice.
//
// # Header structure
//
// Headers carry minimumGasPrice instead of baseFeePerGas, plus merged mining
// fields. HeaderByNumber maps minimumGasPrice to types.Header.BaseFee so the
// lowest accepted gas price is reachable through the standard type.
//
// # Receipts and transactions
//
// Receipts and transactions decode into this package's own Receipt and
// Transaction types. Older nodes encode the receipt status as "0x01" which the
// go-ethereum decoder rejects.
//
// # Transaction hashes
//
// The hash returned by eth_sendRawTransaction is the one the node indexes
// receipts under, so callers should poll with it rather than a locally
// computed hash.
//
// Usage:
//
//	client, err := ethclient.Dial("https://public-node.testnet.rsk.co")
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	head, err := client.HeaderByNumber(ctx, nil)
//	if err != nil {
//	    return err
//	}
//	fmt.Println("min gas price", head.BaseFee)
//
// Retry, timeout and error classification live one layer up, in package
// provider.
package ethclient
