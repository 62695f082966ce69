// Package metrics records SDK counters and latencies.
package metrics

import "time"

// Counter names.
const (
	RPCCalls            = "rpc_calls"
	RPCRetries          = "rpc_retries"
	RPCErrors           = "rpc_errors"
	TxSent              = "tx_sent"
	TxReverted          = "tx_reverted"
	TxInsufficientFunds = "tx_insufficient_funds"
	RPCLatency          = "rpc"
)

// Label keys understood by the recorders.
const (
	LabelMethod = "method"
	LabelKind   = "kind"
)

type Recorder interface {
	IncCounter(name string, labels map[string]string)
	ObserveLatency(name string, duration time.Duration, labels map[string]string)
}
