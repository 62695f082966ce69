// Package txbuilder builds, signs and broadcasts legacy Rootstock
// transactions.
//
// A Builder is bound to one signer and one provider. It assigns nonces
// itself so that transactions sent back to back, before the first is mined,
// do not collide:
//
//	b := txbuilder.New(p, w)
//	res, err := b.TransferRBTC(ctx, to, decimal.RequireFromString("0.001"), true, 0)
//	if errors.Is(err, rskerr.ErrInsufficientFunds) {
//	    ...
//	}
//
// Nonce tracking is local to the Builder. Two builders, or two processes,
// sending from the same account still race.
package txbuilder

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/log"
	"github.com/shopspring/decimal"

	"rsksdk/ethclient"
	"rsksdk/metrics"
	"rsksdk/network"
	"rsksdk/rskaddr"
	"rsksdk/rskerr"
	"rsksdk/units"
)

// Backend is the provider surface the builder needs. *provider.Provider
// implements it.
type Backend interface {
	GasPriceSource
	ChainID() int64
	GetBalance(ctx context.Context, account common.Address, block *big.Int) (*big.Int, error)
	GetTransactionCount(ctx context.Context, account common.Address, block *big.Int) (uint64, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendRawTransaction(ctx context.Context, raw []byte) (common.Hash, error)
	WaitForTransactionReceipt(ctx context.Context, hash common.Hash, timeout time.Duration) (*ethclient.Receipt, error)
}

// Signer holds the sending key. *wallet.Wallet implements it.
type Signer interface {
	CommonAddress() common.Address
	SignTransaction(tx *types.Transaction, chainID *big.Int) ([]byte, error)
}

// Request describes a transaction to build. Zero GasLimit, nil GasPrice and
// nil Nonce are filled in from the network.
type Request struct {
	To       string
	Value    *big.Int
	Data     []byte
	GasLimit uint64
	GasPrice *big.Int
	Nonce    *uint64
}

// Intent is a fully populated, unsigned legacy transaction. Addresses are in
// checksum form for ChainID and Data is 0x-prefixed hex.
type Intent struct {
	From     string
	To       string
	Value    *big.Int
	Data     string
	Gas      uint64
	GasPrice *big.Int
	Nonce    uint64
	ChainID  int64
}

// Transaction returns the unsigned go-ethereum transaction.
func (i *Intent) Transaction() (*types.Transaction, error) {
	to, err := rskaddr.ToCommon(i.To)
	if err != nil {
		return nil, err
	}
	data, err := hexutil.Decode(i.Data)
	if err != nil {
		return nil, rskerr.Wrap(rskerr.ErrTransaction, err, "invalid transaction data")
	}
	return types.NewTx(&types.LegacyTx{
		Nonce:    i.Nonce,
		GasPrice: i.GasPrice,
		Gas:      i.Gas,
		To:       &to,
		Value:    i.Value,
		Data:     data,
	}), nil
}

// Validate checks the fields SignAndSend relies on.
func (i *Intent) Validate() error {
	switch {
	case i.Value == nil:
		return rskerr.New(rskerr.ErrTransaction, "missing value")
	case i.Value.Sign() < 0:
		return rskerr.New(rskerr.ErrTransaction, "negative value %s", i.Value)
	case i.GasPrice == nil:
		return rskerr.New(rskerr.ErrTransaction, "missing gas price")
	case i.GasPrice.Sign() < 0:
		return rskerr.New(rskerr.ErrTransaction, "negative gas price %s", i.GasPrice)
	case i.Gas == 0:
		return rskerr.New(rskerr.ErrTransaction, "missing gas limit")
	}
	return nil
}

// Cost returns value + gas * gasPrice, the balance the transaction needs.
func (i *Intent) Cost() *big.Int {
	cost := new(big.Int).Mul(new(big.Int).SetUint64(i.Gas), i.GasPrice)
	return cost.Add(cost, i.Value)
}

// SendResult is the outcome of SignAndSend. Receipt is nil when the caller
// did not wait.
type SendResult struct {
	TxHash  common.Hash
	Receipt *ethclient.Receipt
}

// CostEstimate projects what a transaction would cost without sending it.
type CostEstimate struct {
	Gas           uint64
	GasPrice      *big.Int
	GasCost       *big.Int
	Value         *big.Int
	TotalCost     *big.Int
	TotalCostRBTC decimal.Decimal
}

// Builder builds and sends transactions for one signer. It is safe for
// concurrent use.
type Builder struct {
	backend  Backend
	signer   Signer
	gasPrice GasPriceEstimatorFn
	log      log.Logger
	metrics  metrics.Recorder

	// mu guards the nonce state and serializes balance check and broadcast.
	mu       sync.Mutex
	lastBase uint64
	hasBase  bool
	offset   uint64
}

// New returns a builder that sends from signer through backend.
func New(backend Backend, signer Signer, opts ...Option) *Builder {
	b := &Builder{
		backend:  backend,
		signer:   signer,
		gasPrice: NodeGasPrice,
		log:      log.Root(),
		metrics:  metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(b)
	}
	b.log = b.log.New("from", b.From())
	return b
}

// From returns the sending address in checksum form.
func (b *Builder) From() string {
	return rskaddr.FromCommon(b.signer.CommonAddress(), rskaddr.Chain(b.backend.ChainID()))
}

// BuildTransaction fills in the missing fields of req. Gas is estimated
// last, against the otherwise complete transaction, and a failed estimate is
// reported as rskerr.ErrGasEstimation.
//
// An automatic nonce is reserved before gas is estimated, so a failed
// estimate or a later failed SignAndSend leaves a gap in the sequence. Call
// ResetNonce after such a failure when no other transaction is in flight.
func (b *Builder) BuildTransaction(ctx context.Context, req Request) (*Intent, error) {
	chain := rskaddr.Chain(b.backend.ChainID())
	to, err := rskaddr.ToChecksum(req.To, chain)
	if err != nil {
		return nil, err
	}
	value := req.Value
	if value == nil {
		value = new(big.Int)
	}
	if value.Sign() < 0 {
		return nil, rskerr.New(rskerr.ErrTransaction, "negative value %s", value)
	}

	intent := &Intent{
		From:    b.From(),
		To:      to,
		Value:   value,
		Data:    hexutil.Encode(req.Data),
		ChainID: chain.ID(),
	}

	if req.GasPrice != nil {
		intent.GasPrice = req.GasPrice
	} else if intent.GasPrice, err = b.gasPrice(ctx, b.backend); err != nil {
		return nil, err
	}

	if req.Nonce != nil {
		intent.Nonce = *req.Nonce
	} else if intent.Nonce, err = b.nextNonce(ctx); err != nil {
		return nil, err
	}

	intent.Gas = req.GasLimit
	if intent.Gas == 0 {
		if intent.Gas, err = b.estimateGas(ctx, intent, req.Data); err != nil {
			return nil, err
		}
	}
	return intent, nil
}

func (b *Builder) estimateGas(ctx context.Context, intent *Intent, data []byte) (uint64, error) {
	to, err := rskaddr.ToCommon(intent.To)
	if err != nil {
		return 0, err
	}
	gas, err := b.backend.EstimateGas(ctx, ethereum.CallMsg{
		From:     b.signer.CommonAddress(),
		To:       &to,
		Value:    intent.Value,
		Data:     data,
		GasPrice: intent.GasPrice,
	})
	if err == nil {
		return gas, nil
	}
	if errors.Is(err, rskerr.ErrGasEstimation) || errors.Is(err, rskerr.ErrProviderConnection) {
		return 0, err
	}
	return 0, rskerr.Wrap(rskerr.ErrGasEstimation, err, "gas estimation failed")
}

// nextNonce returns the account's transaction count, offset by the number of
// nonces handed out since the count last moved.
func (b *Builder) nextNonce(ctx context.Context) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	base, err := b.backend.GetTransactionCount(ctx, b.signer.CommonAddress(), nil)
	if err != nil {
		return 0, err
	}
	if b.hasBase && base == b.lastBase {
		b.offset++
		return base + b.offset, nil
	}
	b.lastBase = base
	b.hasBase = true
	b.offset = 0
	return base, nil
}

// ResetNonce forgets the nonces handed out so far. Call it once every
// in-flight transaction has been mined or dropped.
func (b *Builder) ResetNonce() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastBase = 0
	b.hasBase = false
	b.offset = 0
}

// SignAndSend checks the balance covers intent, signs and broadcasts it. With
// wait it blocks until the receipt arrives or timeout passes (zero selects
// the provider default); a reverted transaction fails with an error matching
// rskerr.ErrTransactionReverted.
func (b *Builder) SignAndSend(ctx context.Context, intent *Intent, wait bool, timeout time.Duration) (*SendResult, error) {
	if intent == nil {
		return nil, rskerr.New(rskerr.ErrTransaction, "missing transaction")
	}
	if err := intent.Validate(); err != nil {
		return nil, err
	}
	hash, err := b.broadcast(ctx, intent)
	if err != nil {
		return nil, err
	}
	res := &SendResult{TxHash: hash}
	if !wait {
		return res, nil
	}

	receipt, err := b.backend.WaitForTransactionReceipt(ctx, hash, timeout)
	if err != nil {
		if errors.Is(err, rskerr.ErrTransactionReverted) {
			b.metrics.IncCounter(metrics.TxReverted, nil)
		}
		return nil, err
	}
	res.Receipt = receipt
	return res, nil
}

func (b *Builder) broadcast(ctx context.Context, intent *Intent) (common.Hash, error) {
	tx, err := intent.Transaction()
	if err != nil {
		return common.Hash{}, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	balance, err := b.backend.GetBalance(ctx, b.signer.CommonAddress(), nil)
	if err != nil {
		return common.Hash{}, err
	}
	required := intent.Cost()
	if balance.Cmp(required) < 0 {
		b.metrics.IncCounter(metrics.TxInsufficientFunds, nil)
		return common.Hash{}, rskerr.New(rskerr.ErrInsufficientFunds,
			"insufficient funds: balance %s wei, required %s wei", balance, required)
	}

	raw, err := b.signer.SignTransaction(tx, big.NewInt(intent.ChainID))
	if err != nil {
		return common.Hash{}, err
	}
	hash, err := b.backend.SendRawTransaction(ctx, raw)
	if err != nil {
		return common.Hash{}, err
	}
	b.metrics.IncCounter(metrics.TxSent, nil)
	b.log.Info("Submitted transaction", "tx", hash, "to", intent.To, "nonce", intent.Nonce,
		"value", intent.Value, "gas", intent.Gas, "gasPrice", intent.GasPrice)
	return hash, nil
}

// Transfer sends a plain value transfer. A zero GasLimit selects
// network.DefaultGasLimitTransfer and req.Data is ignored.
func (b *Builder) Transfer(ctx context.Context, req Request, wait bool, timeout time.Duration) (*SendResult, error) {
	req.Data = nil
	if req.GasLimit == 0 {
		req.GasLimit = network.DefaultGasLimitTransfer
	}
	intent, err := b.BuildTransaction(ctx, req)
	if err != nil {
		return nil, err
	}
	return b.SignAndSend(ctx, intent, wait, timeout)
}

// TransferRBTC sends amount RBTC to to.
func (b *Builder) TransferRBTC(ctx context.Context, to string, amount decimal.Decimal, wait bool, timeout time.Duration) (*SendResult, error) {
	value, err := units.ToWei(amount, "rbtc")
	if err != nil {
		return nil, rskerr.Wrap(rskerr.ErrTransaction, err, "invalid amount")
	}
	return b.Transfer(ctx, Request{To: to, Value: value}, wait, timeout)
}

// EstimateTotalCost estimates gas and prices a transaction to to. It never
// signs or sends.
func (b *Builder) EstimateTotalCost(ctx context.Context, to string, value *big.Int, data []byte) (*CostEstimate, error) {
	toAddr, err := rskaddr.ToCommon(to)
	if err != nil {
		return nil, err
	}
	if value == nil {
		value = new(big.Int)
	}
	gas, err := b.backend.EstimateGas(ctx, ethereum.CallMsg{
		From:  b.signer.CommonAddress(),
		To:    &toAddr,
		Value: value,
		Data:  data,
	})
	if err != nil {
		return nil, err
	}
	gasPrice, err := b.gasPrice(ctx, b.backend)
	if err != nil {
		return nil, err
	}

	gasCost := new(big.Int).Mul(new(big.Int).SetUint64(gas), gasPrice)
	total := new(big.Int).Add(gasCost, value)
	totalRBTC, err := units.FromWei(total, "rbtc")
	if err != nil {
		return nil, err
	}
	return &CostEstimate{
		Gas:           gas,
		GasPrice:      gasPrice,
		GasCost:       gasCost,
		Value:         value,
		TotalCost:     total,
		TotalCostRBTC: totalRBTC,
	}, nil
}
