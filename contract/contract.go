// Package contract calls and transacts with a contract through its JSON ABI.
//
// Functions and events are looked up by name in the ABI; a name the ABI does
// not define fails with rskerr.ErrABI before anything is sent.
package contract

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"os"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"rsksdk/rskaddr"
	"rsksdk/rskerr"
	"rsksdk/txbuilder"
)

// Backend executes calls and log queries. *provider.Provider implements it.
type Backend interface {
	ChainID() int64
	CallAt(ctx context.Context, msg ethereum.CallMsg, block *big.Int) ([]byte, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
}

// TxOptions tune a state changing call. Zero values are filled in by the
// builder.
type TxOptions struct {
	Value    *big.Int
	GasLimit uint64
	GasPrice *big.Int
	Nonce    *uint64
	Wait     bool
	Timeout  time.Duration
}

// Event is a decoded log.
type Event struct {
	Name string
	Args map[string]interface{}
	Log  types.Log
}

// Contract binds an ABI to a deployed address.
type Contract struct {
	backend Backend
	address common.Address
	abi     abi.ABI
}

// New parses abiJSON and binds it to address.
func New(backend Backend, address string, abiJSON []byte) (*Contract, error) {
	addr, err := rskaddr.ToCommon(address)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(abiJSON)) == 0 {
		return nil, rskerr.New(rskerr.ErrABI, "ABI cannot be empty")
	}
	parsed, err := abi.JSON(bytes.NewReader(abiJSON))
	if err != nil {
		return nil, rskerr.Wrap(rskerr.ErrABI, err, "invalid ABI")
	}
	if len(parsed.Methods) == 0 && len(parsed.Events) == 0 {
		return nil, rskerr.New(rskerr.ErrABI, "ABI cannot be empty")
	}
	return &Contract{backend: backend, address: addr, abi: parsed}, nil
}

// FromABIFile reads the ABI from path.
func FromABIFile(backend Backend, address, path string) (*Contract, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, rskerr.Wrap(rskerr.ErrABI, err, "failed to load ABI from %s", path)
	}
	return New(backend, address, raw)
}

// Address returns the contract address in checksum form.
func (c *Contract) Address() string {
	return rskaddr.FromCommon(c.address, rskaddr.Chain(c.backend.ChainID()))
}

// ABI returns the parsed ABI.
func (c *Contract) ABI() abi.ABI {
	return c.abi
}

// Functions lists the function names, sorted.
func (c *Contract) Functions() []string {
	names := make([]string, 0, len(c.abi.Methods))
	for name := range c.abi.Methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Events lists the event names, sorted.
func (c *Contract) Events() []string {
	names := make([]string, 0, len(c.abi.Events))
	for name := range c.abi.Events {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (c *Contract) method(name string) (abi.Method, error) {
	m, ok := c.abi.Methods[name]
	if !ok {
		return abi.Method{}, rskerr.New(rskerr.ErrABI, "function %q not found in ABI", name)
	}
	return m, nil
}

// EncodeFunctionData returns the call data of name(args...).
func (c *Contract) EncodeFunctionData(name string, args ...interface{}) ([]byte, error) {
	if _, err := c.method(name); err != nil {
		return nil, err
	}
	data, err := c.abi.Pack(name, args...)
	if err != nil {
		return nil, rskerr.Wrap(rskerr.ErrABI, err, "failed to encode %s", name)
	}
	return data, nil
}

// Call runs name(args...) against the latest block and returns the decoded
// outputs.
func (c *Contract) Call(ctx context.Context, name string, args ...interface{}) ([]interface{}, error) {
	return c.CallAt(ctx, nil, name, args...)
}

// CallAt runs name(args...) against block. A revert fails with
// rskerr.ErrContract.
func (c *Contract) CallAt(ctx context.Context, block *big.Int, name string, args ...interface{}) ([]interface{}, error) {
	m, err := c.method(name)
	if err != nil {
		return nil, err
	}
	data, err := c.EncodeFunctionData(name, args...)
	if err != nil {
		return nil, err
	}
	out, err := c.backend.CallAt(ctx, ethereum.CallMsg{To: &c.address, Data: data}, block)
	if err != nil {
		var rpcErr *rskerr.RPCError
		if errors.As(err, &rpcErr) && rpcErr.Reverted {
			return nil, rskerr.Wrap(rskerr.ErrContract, err, "call to %s reverted", name)
		}
		return nil, err
	}
	if len(out) == 0 && len(m.Outputs) > 0 {
		return nil, rskerr.New(rskerr.ErrContract, "call to %s returned no data, is %s a contract?", name, c.Address())
	}
	res, err := m.Outputs.Unpack(out)
	if err != nil {
		return nil, rskerr.Wrap(rskerr.ErrABI, err, "failed to decode %s result", name)
	}
	return res, nil
}

// Transact sends name(args...) from the builder's signer.
func (c *Contract) Transact(ctx context.Context, b *txbuilder.Builder, opts TxOptions, name string, args ...interface{}) (*txbuilder.SendResult, error) {
	data, err := c.EncodeFunctionData(name, args...)
	if err != nil {
		return nil, err
	}
	intent, err := b.BuildTransaction(ctx, txbuilder.Request{
		To:       c.Address(),
		Value:    opts.Value,
		Data:     data,
		GasLimit: opts.GasLimit,
		GasPrice: opts.GasPrice,
		Nonce:    opts.Nonce,
	})
	if err != nil {
		return nil, err
	}
	return b.SignAndSend(ctx, intent, opts.Wait, opts.Timeout)
}

// GetEvents returns the logs of event name between from and to, decoded. A
// nil from starts at block 0, a nil to ends at the latest block. filters
// match the indexed arguments in order; a nil entry matches anything.
func (c *Contract) GetEvents(ctx context.Context, name string, from, to *big.Int, filters ...[]interface{}) ([]Event, error) {
	ev, ok := c.abi.Events[name]
	if !ok {
		return nil, rskerr.New(rskerr.ErrABI, "event %q not found in ABI", name)
	}

	var indexed abi.Arguments
	for _, arg := range ev.Inputs {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	if len(filters) > len(indexed) {
		return nil, rskerr.New(rskerr.ErrABI, "event %s has %d indexed arguments, got %d filters", name, len(indexed), len(filters))
	}
	topics, err := abi.MakeTopics(filters...)
	if err != nil {
		return nil, rskerr.Wrap(rskerr.ErrABI, err, "invalid filter for %s", name)
	}

	if from == nil {
		from = new(big.Int)
	}
	logs, err := c.backend.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: from,
		ToBlock:   to,
		Addresses: []common.Address{c.address},
		Topics:    append([][]common.Hash{{ev.ID}}, topics...),
	})
	if err != nil {
		return nil, err
	}

	events := make([]Event, 0, len(logs))
	for _, l := range logs {
		if len(l.Topics) == 0 || l.Topics[0] != ev.ID {
			continue
		}
		args := map[string]interface{}{}
		if len(l.Data) > 0 {
			if err := c.abi.UnpackIntoMap(args, name, l.Data); err != nil {
				return nil, rskerr.Wrap(rskerr.ErrABI, err, "failed to decode %s log", name)
			}
		}
		if err := abi.ParseTopicsIntoMap(args, indexed, l.Topics[1:]); err != nil {
			return nil, rskerr.Wrap(rskerr.ErrABI, err, "failed to decode %s topics", name)
		}
		events = append(events, Event{Name: name, Args: args, Log: l})
	}
	return events, nil
}
