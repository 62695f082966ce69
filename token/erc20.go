// Package token wraps ERC-20 contracts.
package token

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/shopspring/decimal"

	"rsksdk/contract"
	"rsksdk/network"
	"rsksdk/rskaddr"
	"rsksdk/rskerr"
	"rsksdk/txbuilder"
	"rsksdk/units"
)

// ABI is the standard ERC-20 interface.
const ABI = `[
	{"type":"function","name":"name","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
	{"type":"function","name":"symbol","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
	{"type":"function","name":"decimals","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint8"}]},
	{"type":"function","name":"totalSupply","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"owner","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"allowance","stateMutability":"view","inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"transfer","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"},{"name":"value","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"approve","stateMutability":"nonpayable","inputs":[{"name":"spender","type":"address"},{"name":"value","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"transferFrom","stateMutability":"nonpayable","inputs":[{"name":"from","type":"address"},{"name":"to","type":"address"},{"name":"value","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"event","name":"Transfer","anonymous":false,"inputs":[{"name":"from","type":"address","indexed":true},{"name":"to","type":"address","indexed":true},{"name":"value","type":"uint256","indexed":false}]},
	{"type":"event","name":"Approval","anonymous":false,"inputs":[{"name":"owner","type":"address","indexed":true},{"name":"spender","type":"address","indexed":true},{"name":"value","type":"uint256","indexed":false}]}
]`

type Option func(*ERC20)

func WithLogger(l log.Logger) Option {
	return func(t *ERC20) {
		if l != nil {
			t.log = l
		}
	}
}

// ERC20 is a token contract.
type ERC20 struct {
	*contract.Contract
	log log.Logger
}

// New binds the ERC-20 ABI to address.
func New(backend contract.Backend, address string, opts ...Option) (*ERC20, error) {
	c, err := contract.New(backend, address, []byte(ABI))
	if err != nil {
		return nil, err
	}
	t := &ERC20{Contract: c, log: log.Root()}
	for _, opt := range opts {
		opt(t)
	}
	t.log = t.log.New("token", t.Address())
	return t, nil
}

// FromSymbol returns a well-known token of the backend's chain, e.g. RIF on
// mainnet or tRIF on testnet. Symbols are case-insensitive.
func FromSymbol(backend contract.Backend, symbol string, opts ...Option) (*ERC20, error) {
	tok, ok := network.LookupToken(backend.ChainID(), symbol)
	if !ok {
		return nil, rskerr.New(rskerr.ErrToken, "token %q not available on chain id %d", symbol, backend.ChainID())
	}
	return New(backend, tok.Address, opts...)
}

func (t *ERC20) call(ctx context.Context, method string, args ...interface{}) (interface{}, error) {
	res, err := t.Call(ctx, method, args...)
	if err != nil {
		return nil, err
	}
	if len(res) != 1 {
		return nil, rskerr.New(rskerr.ErrToken, "unexpected %s result", method)
	}
	return res[0], nil
}

func (t *ERC20) callString(ctx context.Context, method string) (string, error) {
	v, err := t.call(ctx, method)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", rskerr.New(rskerr.ErrToken, "unexpected %s result type %T", method, v)
	}
	return s, nil
}

func (t *ERC20) callBig(ctx context.Context, method string, args ...interface{}) (*big.Int, error) {
	v, err := t.call(ctx, method, args...)
	if err != nil {
		return nil, err
	}
	n, ok := v.(*big.Int)
	if !ok {
		return nil, rskerr.New(rskerr.ErrToken, "unexpected %s result type %T", method, v)
	}
	return n, nil
}

func (t *ERC20) Name(ctx context.Context) (string, error) {
	return t.callString(ctx, "name")
}

func (t *ERC20) Symbol(ctx context.Context) (string, error) {
	return t.callString(ctx, "symbol")
}

func (t *ERC20) Decimals(ctx context.Context) (uint8, error) {
	v, err := t.call(ctx, "decimals")
	if err != nil {
		return 0, err
	}
	d, ok := v.(uint8)
	if !ok {
		return 0, rskerr.New(rskerr.ErrToken, "unexpected decimals result type %T", v)
	}
	return d, nil
}

func (t *ERC20) TotalSupply(ctx context.Context) (*big.Int, error) {
	return t.callBig(ctx, "totalSupply")
}

// BalanceOf returns the raw token balance of owner.
func (t *ERC20) BalanceOf(ctx context.Context, owner string) (*big.Int, error) {
	addr, err := rskaddr.ToCommon(owner)
	if err != nil {
		return nil, err
	}
	return t.callBig(ctx, "balanceOf", addr)
}

// BalanceOfHuman returns the balance of owner scaled by the token decimals.
func (t *ERC20) BalanceOfHuman(ctx context.Context, owner string) (decimal.Decimal, error) {
	raw, err := t.BalanceOf(ctx, owner)
	if err != nil {
		return decimal.Decimal{}, err
	}
	dec, err := t.Decimals(ctx)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return units.FromBaseUnits(raw, dec), nil
}

// Allowance returns how much spender may move out of owner's balance.
func (t *ERC20) Allowance(ctx context.Context, owner, spender string) (*big.Int, error) {
	o, err := rskaddr.ToCommon(owner)
	if err != nil {
		return nil, err
	}
	s, err := rskaddr.ToCommon(spender)
	if err != nil {
		return nil, err
	}
	return t.callBig(ctx, "allowance", o, s)
}

// Transfer moves amount base units from the builder's account to to. It
// fails with rskerr.ErrToken, without sending, when the balance is short.
func (t *ERC20) Transfer(ctx context.Context, b *txbuilder.Builder, to string, amount *big.Int, opts contract.TxOptions) (*txbuilder.SendResult, error) {
	toAddr, err := addressArg(to, amount)
	if err != nil {
		return nil, err
	}
	balance, err := t.BalanceOf(ctx, b.From())
	if err != nil {
		return nil, err
	}
	if balance.Cmp(amount) < 0 {
		return nil, rskerr.New(rskerr.ErrToken, "insufficient token balance: have %s, need %s", balance, amount)
	}
	t.log.Debug("Transferring tokens", "from", b.From(), "to", to, "amount", amount)
	return t.Transact(ctx, b, opts, "transfer", toAddr, amount)
}

// Approve lets spender move up to amount base units from the builder's
// account.
func (t *ERC20) Approve(ctx context.Context, b *txbuilder.Builder, spender string, amount *big.Int, opts contract.TxOptions) (*txbuilder.SendResult, error) {
	spenderAddr, err := addressArg(spender, amount)
	if err != nil {
		return nil, err
	}
	t.log.Debug("Approving spender", "owner", b.From(), "spender", spender, "amount", amount)
	return t.Transact(ctx, b, opts, "approve", spenderAddr, amount)
}

// TransferFrom moves amount from from to to using the builder account's
// allowance. It fails with rskerr.ErrAllowanceExceeded, without sending,
// when the allowance is short.
func (t *ERC20) TransferFrom(ctx context.Context, b *txbuilder.Builder, from, to string, amount *big.Int, opts contract.TxOptions) (*txbuilder.SendResult, error) {
	fromAddr, err := addressArg(from, amount)
	if err != nil {
		return nil, err
	}
	toAddr, err := rskaddr.ToCommon(to)
	if err != nil {
		return nil, err
	}
	allowance, err := t.Allowance(ctx, from, b.From())
	if err != nil {
		return nil, err
	}
	if allowance.Cmp(amount) < 0 {
		return nil, rskerr.New(rskerr.ErrAllowanceExceeded, "allowance exceeded: approved %s, need %s", allowance, amount)
	}
	return t.Transact(ctx, b, opts, "transferFrom", fromAddr, toAddr, amount)
}

// ToBaseUnits converts a human amount using the token's decimals.
func (t *ERC20) ToBaseUnits(ctx context.Context, amount decimal.Decimal) (*big.Int, error) {
	dec, err := t.Decimals(ctx)
	if err != nil {
		return nil, err
	}
	raw, err := units.ToBaseUnits(amount, dec)
	if err != nil {
		return nil, rskerr.Wrap(rskerr.ErrToken, err, "invalid amount")
	}
	return raw, nil
}

func addressArg(address string, amount *big.Int) (common.Address, error) {
	addr, err := rskaddr.ToCommon(address)
	if err != nil {
		return common.Address{}, err
	}
	if amount == nil || amount.Sign() < 0 {
		return common.Address{}, rskerr.New(rskerr.ErrToken, "invalid amount %v", amount)
	}
	return addr, nil
}

func (t *ERC20) String() string {
	return fmt.Sprintf("ERC20(address=%s)", t.Address())
}
