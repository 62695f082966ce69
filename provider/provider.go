// Package provider is the SDK's single point of contact with a Rootstock
// node.
//
// Reads are retried on connectivity failures with exponential backoff
// (1s, 2s, 4s, ... between attempts). Anything the node itself answered,
// including rate limiting, is classified and returned at once. Gas
// estimation, contract calls and broadcasts are never retried.
//
// Usage:
//
//	p, err := provider.FromTestnet(ctx, "", provider.WithMaxRetries(5))
//	if err != nil {
//	    return err
//	}
//	defer p.Close()
//
//	bal, err := p.GetBalance(ctx, addr, nil)
package provider

import (
	"context"
	"errors"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/log"

	"rsksdk/ethclient"
	"rsksdk/metrics"
	"rsksdk/network"
	"rsksdk/rskerr"
)

// Defaults for the tunables.
const (
	DefaultMaxRetries     = 3
	DefaultRequestTimeout = 30 * time.Second
	DefaultPollInterval   = 2 * time.Second
	DefaultReceiptTimeout = 120 * time.Second
)

// Backend is the RPC surface the provider drives. *ethclient.Client
// implements it.
type Backend interface {
	BlockNumber(ctx context.Context) (uint64, error)
	ChainID(ctx context.Context) (*big.Int, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	BlockByNumber(ctx context.Context, number *big.Int) (*ethclient.Block, error)
	BlockByHash(ctx context.Context, hash common.Hash) (*ethclient.Block, error)
	TransactionByHash(ctx context.Context, hash common.Hash) (*ethclient.Transaction, error)
	TransactionReceipt(ctx context.Context, hash common.Hash) (*ethclient.Receipt, error)
	SendRawTransaction(ctx context.Context, raw []byte) (common.Hash, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	NonceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (uint64, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
	Close()
}

// Provider wraps a Backend with retry, timeouts, error classification and
// metrics. It is safe for concurrent use.
type Provider struct {
	backend Backend
	network network.Config

	maxRetries     int
	backoff        func(attempt int) time.Duration
	requestTimeout time.Duration
	pollInterval   time.Duration
	receiptTimeout time.Duration

	log     log.Logger
	metrics metrics.Recorder
}

// New wraps an existing backend.
func New(backend Backend, cfg network.Config, opts ...Option) *Provider {
	p := &Provider{
		backend:        backend,
		network:        cfg,
		maxRetries:     DefaultMaxRetries,
		backoff:        ExponentialBackoff,
		requestTimeout: DefaultRequestTimeout,
		pollInterval:   DefaultPollInterval,
		receiptTimeout: DefaultReceiptTimeout,
		log:            log.Root(),
		metrics:        metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(p)
	}
	p.log = p.log.New("chain", cfg.ChainID)
	return p
}

// Dial validates cfg and connects to its RPC URL.
func Dial(ctx context.Context, cfg network.Config, opts ...Option) (*Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	client, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, rskerr.Wrap(rskerr.ErrProviderConnection, err, "cannot connect to RPC %s", cfg.RPCURL)
	}
	return New(client, cfg, opts...), nil
}

// FromMainnet connects to Rootstock mainnet; an empty rpcURL selects the
// public node.
func FromMainnet(ctx context.Context, rpcURL string, opts ...Option) (*Provider, error) {
	return Dial(ctx, network.Mainnet(rpcURL), opts...)
}

// FromTestnet connects to Rootstock testnet.
func FromTestnet(ctx context.Context, rpcURL string, opts ...Option) (*Provider, error) {
	return Dial(ctx, network.Testnet(rpcURL), opts...)
}

// FromURL connects to any node, e.g. a local regtest node on chain 33.
func FromURL(ctx context.Context, rpcURL string, chainID int64, opts ...Option) (*Provider, error) {
	cfg, err := network.Custom(chainID, rpcURL, "", "")
	if err != nil {
		return nil, err
	}
	return Dial(ctx, cfg, opts...)
}

// ExponentialBackoff waits 2^attempt seconds after the failed attempt.
func ExponentialBackoff(attempt int) time.Duration {
	return time.Duration(1<<uint(attempt)) * time.Second
}

// Close releases the backend connection.
func (p *Provider) Close() {
	p.backend.Close()
}

// Network returns the network configuration.
func (p *Provider) Network() network.Config {
	return p.network
}

// ChainID returns the configured chain id.
func (p *Provider) ChainID() int64 {
	return p.network.ChainID
}

// BigChainID returns the configured chain id for signing.
func (p *Provider) BigChainID() *big.Int {
	return big.NewInt(p.network.ChainID)
}

// PollInterval returns the receipt polling interval.
func (p *Provider) PollInterval() time.Duration {
	return p.pollInterval
}

// IsConnected reports whether the node answers eth_blockNumber. It makes a
// single attempt.
func (p *Provider) IsConnected(ctx context.Context) bool {
	err := p.once(ctx, "eth_blockNumber", func(ctx context.Context) error {
		_, err := p.backend.BlockNumber(ctx)
		return err
	})
	return err == nil
}

// RemoteChainID asks the node for its chain id.
func (p *Provider) RemoteChainID(ctx context.Context) (*big.Int, error) {
	var id *big.Int
	err := p.retry(ctx, "eth_chainId", func(ctx context.Context) (err error) {
		id, err = p.backend.ChainID(ctx)
		return err
	})
	return id, err
}

// GetBalance returns the wei balance of account at block, or the latest
// block when nil.
func (p *Provider) GetBalance(ctx context.Context, account common.Address, block *big.Int) (*big.Int, error) {
	var bal *big.Int
	err := p.retry(ctx, "eth_getBalance", func(ctx context.Context) (err error) {
		bal, err = p.backend.BalanceAt(ctx, account, block)
		return err
	})
	return bal, err
}

// GetTransactionCount returns the nonce of account at block, or the latest
// block when nil.
func (p *Provider) GetTransactionCount(ctx context.Context, account common.Address, block *big.Int) (uint64, error) {
	var n uint64
	err := p.retry(ctx, "eth_getTransactionCount", func(ctx context.Context) (err error) {
		n, err = p.backend.NonceAt(ctx, account, block)
		return err
	})
	return n, err
}

// GetGasPrice returns eth_gasPrice.
func (p *Provider) GetGasPrice(ctx context.Context) (*big.Int, error) {
	var price *big.Int
	err := p.retry(ctx, "eth_gasPrice", func(ctx context.Context) (err error) {
		price, err = p.backend.SuggestGasPrice(ctx)
		return err
	})
	return price, err
}

// GetMinimumGasPrice returns the minimumGasPrice of the latest block.
func (p *Provider) GetMinimumGasPrice(ctx context.Context) (*big.Int, error) {
	var head *types.Header
	err := p.retry(ctx, "eth_getBlockByNumber", func(ctx context.Context) (err error) {
		head, err = p.backend.HeaderByNumber(ctx, nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	if head.BaseFee == nil {
		return big.NewInt(0), nil
	}
	return head.BaseFee, nil
}

// GetBlock returns the block at number, or the latest block when nil.
func (p *Provider) GetBlock(ctx context.Context, number *big.Int) (*ethclient.Block, error) {
	var b *ethclient.Block
	err := p.retry(ctx, "eth_getBlockByNumber", func(ctx context.Context) (err error) {
		b, err = p.backend.BlockByNumber(ctx, number)
		return err
	})
	return b, err
}

// GetBlockByHash returns the block with the given hash.
func (p *Provider) GetBlockByHash(ctx context.Context, hash common.Hash) (*ethclient.Block, error) {
	var b *ethclient.Block
	err := p.retry(ctx, "eth_getBlockByHash", func(ctx context.Context) (err error) {
		b, err = p.backend.BlockByHash(ctx, hash)
		return err
	})
	return b, err
}

// GetBlockNumber returns the latest block height.
func (p *Provider) GetBlockNumber(ctx context.Context) (uint64, error) {
	var n uint64
	err := p.retry(ctx, "eth_blockNumber", func(ctx context.Context) (err error) {
		n, err = p.backend.BlockNumber(ctx)
		return err
	})
	return n, err
}

// GetCode returns the contract code at account.
func (p *Provider) GetCode(ctx context.Context, account common.Address, block *big.Int) ([]byte, error) {
	var code []byte
	err := p.retry(ctx, "eth_getCode", func(ctx context.Context) (err error) {
		code, err = p.backend.CodeAt(ctx, account, block)
		return err
	})
	return code, err
}

// GetTransaction returns the transaction with hash, or nil if the node does
// not know it.
func (p *Provider) GetTransaction(ctx context.Context, hash common.Hash) (*ethclient.Transaction, error) {
	var tx *ethclient.Transaction
	err := p.retry(ctx, "eth_getTransactionByHash", func(ctx context.Context) (err error) {
		tx, err = p.backend.TransactionByHash(ctx, hash)
		return err
	})
	if errors.Is(err, ethereum.NotFound) {
		return nil, nil
	}
	return tx, err
}

// GetTransactionReceipt returns the receipt for hash, or nil while the
// transaction is pending.
func (p *Provider) GetTransactionReceipt(ctx context.Context, hash common.Hash) (*ethclient.Receipt, error) {
	var r *ethclient.Receipt
	err := p.retry(ctx, "eth_getTransactionReceipt", func(ctx context.Context) (err error) {
		r, err = p.backend.TransactionReceipt(ctx, hash)
		return err
	})
	if errors.Is(err, ethereum.NotFound) {
		return nil, nil
	}
	return r, err
}

// FilterLogs runs a log filter query.
func (p *Provider) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	var logs []types.Log
	err := p.retry(ctx, "eth_getLogs", func(ctx context.Context) (err error) {
		logs, err = p.backend.FilterLogs(ctx, q)
		return err
	})
	return logs, err
}

// EstimateGas estimates the gas of msg. A revert fails with
// rskerr.ErrGasEstimation.
func (p *Provider) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	var gas uint64
	err := p.once(ctx, "eth_estimateGas", func(ctx context.Context) error {
		var err error
		gas, err = p.backend.EstimateGas(ctx, msg)
		if err != nil && isRevert(err) {
			text := "gas estimation failed"
			if reason := revertReason(err); reason != "" {
				text += ": " + reason
			}
			return rskerr.Wrap(rskerr.ErrGasEstimation, err, "%s", text)
		}
		return err
	})
	return gas, err
}

// Call executes a read-only call against the latest block. A revert fails
// with an *rskerr.RPCError carrying the revert reason.
func (p *Provider) Call(ctx context.Context, msg ethereum.CallMsg) ([]byte, error) {
	return p.CallAt(ctx, msg, nil)
}

// CallAt executes a read-only call against block.
func (p *Provider) CallAt(ctx context.Context, msg ethereum.CallMsg, block *big.Int) ([]byte, error) {
	var out []byte
	err := p.once(ctx, "eth_call", func(ctx context.Context) error {
		var err error
		out, err = p.backend.CallContract(ctx, msg, block)
		if err != nil && isRevert(err) {
			rpcErr := toRPCError(err)
			rpcErr.Reverted = true
			rpcErr.Reason = revertReason(err)
			if rpcErr.Reason != "" {
				rpcErr.Message = "call reverted: " + rpcErr.Reason
			} else {
				rpcErr.Message = "call reverted: " + rpcErr.Message
			}
			return rpcErr
		}
		return err
	})
	return out, err
}

// SendRawTransaction broadcasts a signed transaction and returns the hash
// the node reports. It is not retried.
func (p *Provider) SendRawTransaction(ctx context.Context, raw []byte) (common.Hash, error) {
	var hash common.Hash
	err := p.once(ctx, "eth_sendRawTransaction", func(ctx context.Context) (err error) {
		hash, err = p.backend.SendRawTransaction(ctx, raw)
		return err
	})
	return hash, err
}

// WaitForTransactionReceipt polls for the receipt of hash until it is mined
// or timeout passes. A zero timeout selects the configured default. A
// reverted transaction fails with *RevertedError.
func (p *Provider) WaitForTransactionReceipt(ctx context.Context, hash common.Hash, timeout time.Duration) (*ethclient.Receipt, error) {
	if timeout <= 0 {
		timeout = p.receiptTimeout
	}
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		var r *ethclient.Receipt
		err := p.once(ctx, "eth_getTransactionReceipt", func(ctx context.Context) (err error) {
			r, err = p.backend.TransactionReceipt(ctx, hash)
			return err
		})
		switch {
		case err == nil:
			if !r.Succeeded() {
				p.log.Warn("Transaction reverted", "tx", hash, "block", r.BlockNumber, "gasUsed", r.GasUsed)
				return nil, &RevertedError{TxHash: hash, Receipt: r}
			}
			p.log.Debug("Transaction mined", "tx", hash, "block", r.BlockNumber, "gasUsed", r.GasUsed)
			return r, nil
		case errors.Is(err, ethereum.NotFound):
		default:
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, rskerr.Wrap(rskerr.ErrTransaction, ctx.Err(), "stopped waiting for %s", hash.Hex())
		case <-deadline.C:
			return nil, rskerr.New(rskerr.ErrTransaction, "transaction %s not mined within %s", hash.Hex(), timeout)
		case <-ticker.C:
		}
	}
}
