package rns

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"

	"rsksdk/network"
	"rsksdk/rskaddr"
	"rsksdk/rskerr"
)

// DefaultSuffix is appended to domains given without it.
const DefaultSuffix = ".rsk"

const registryABI = `[
	{"constant":true,"inputs":[{"name":"node","type":"bytes32"}],"name":"resolver","outputs":[{"name":"","type":"address"}],"type":"function"},
	{"constant":true,"inputs":[{"name":"node","type":"bytes32"}],"name":"owner","outputs":[{"name":"","type":"address"}],"type":"function"}
]`

const resolverABI = `[
	{"constant":true,"inputs":[{"name":"node","type":"bytes32"}],"name":"addr","outputs":[{"name":"","type":"address"}],"type":"function"},
	{"constant":true,"inputs":[{"name":"node","type":"bytes32"}],"name":"name","outputs":[{"name":"","type":"string"}],"type":"function"}
]`

var (
	registry = mustABI(registryABI)
	resolver = mustABI(resolverABI)
)

func mustABI(s string) abi.ABI {
	a, err := abi.JSON(strings.NewReader(s))
	if err != nil {
		panic(err)
	}
	return a
}

// Caller executes read-only contract calls against the latest block.
type Caller interface {
	Call(ctx context.Context, msg ethereum.CallMsg) ([]byte, error)
}

type Option func(*Resolver)

// WithRegistry overrides the registry address, required on chains without a
// default registry.
func WithRegistry(addr common.Address) Option {
	return func(r *Resolver) {
		r.registry = addr
		r.hasRegistry = true
	}
}

func WithLogger(l log.Logger) Option {
	return func(r *Resolver) {
		r.log = l
	}
}

// Resolver performs forward and reverse RNS lookups. It keeps no state
// between calls.
type Resolver struct {
	caller      Caller
	chain       *rskaddr.ChainID
	registry    common.Address
	hasRegistry bool
	log         log.Logger
}

// NewResolver returns a resolver for chainID. Mainnet and testnet have a
// default registry; other chains need WithRegistry.
func NewResolver(caller Caller, chainID int64, opts ...Option) (*Resolver, error) {
	r := &Resolver{
		caller: caller,
		chain:  rskaddr.Chain(chainID),
		log:    log.Root(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if !r.hasRegistry {
		addr, ok := network.RNSRegistry(chainID)
		if !ok {
			return nil, fmt.Errorf("no default RNS registry for chain id %d, use WithRegistry", chainID)
		}
		r.registry = common.HexToAddress(addr)
	}
	return r, nil
}

// Registry returns the registry address in checksum form.
func (r *Resolver) Registry() string {
	return rskaddr.FromCommon(r.registry, r.chain)
}

func withSuffix(domain string) string {
	d := strings.ToLower(strings.TrimSpace(domain))
	if !strings.HasSuffix(d, DefaultSuffix) {
		d += DefaultSuffix
	}
	return d
}

func (r *Resolver) node(domain string) (string, common.Hash, error) {
	d := withSuffix(domain)
	node, err := NameHash(d)
	if err != nil {
		return "", common.Hash{}, err
	}
	return d, node, nil
}

func (r *Resolver) call(ctx context.Context, contract abi.ABI, to common.Address, method string, node common.Hash) ([]interface{}, error) {
	data, err := contract.Pack(method, [32]byte(node))
	if err != nil {
		return nil, rskerr.Wrap(rskerr.ErrABI, err, "failed to pack %s", method)
	}
	out, err := r.caller.Call(ctx, ethereum.CallMsg{To: &to, Data: data})
	if err != nil {
		return nil, err
	}
	res, err := contract.Unpack(method, out)
	if err != nil {
		return nil, rskerr.Wrap(rskerr.ErrRPC, err, "failed to decode %s result", method)
	}
	if len(res) != 1 {
		return nil, rskerr.New(rskerr.ErrRPC, "unexpected %s result", method)
	}
	return res, nil
}

func (r *Resolver) callAddress(ctx context.Context, contract abi.ABI, to common.Address, method string, node common.Hash) (common.Address, error) {
	res, err := r.call(ctx, contract, to, method, node)
	if err != nil {
		return common.Address{}, err
	}
	addr, ok := res[0].(common.Address)
	if !ok {
		return common.Address{}, rskerr.New(rskerr.ErrRPC, "unexpected %s result type %T", method, res[0])
	}
	return addr, nil
}

func (r *Resolver) resolverOf(ctx context.Context, domain string, node common.Hash) (common.Address, error) {
	addr, err := r.callAddress(ctx, registry, r.registry, "resolver", node)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to query resolver for %s: %w", domain, err)
	}
	if addr == (common.Address{}) {
		return common.Address{}, rskerr.New(rskerr.ErrResolverNotFound, "no resolver set for %q", domain)
	}
	return addr, nil
}

// Resolve returns the checksummed address domain points to. The ".rsk"
// suffix is appended when missing.
func (r *Resolver) Resolve(ctx context.Context, domain string) (string, error) {
	d, node, err := r.node(domain)
	if err != nil {
		return "", err
	}
	res, err := r.resolverOf(ctx, d, node)
	if err != nil {
		return "", err
	}
	addr, err := r.callAddress(ctx, resolver, res, "addr", node)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", d, err)
	}
	if addr == (common.Address{}) {
		return "", rskerr.New(rskerr.ErrDomainNotFound, "domain %q resolves to the zero address", d)
	}
	r.log.Debug("Resolved RNS domain", "domain", d, "address", addr)
	return rskaddr.FromCommon(addr, r.chain), nil
}

// GetResolver returns the checksummed resolver address of domain.
func (r *Resolver) GetResolver(ctx context.Context, domain string) (string, error) {
	d, node, err := r.node(domain)
	if err != nil {
		return "", err
	}
	res, err := r.resolverOf(ctx, d, node)
	if err != nil {
		return "", err
	}
	return rskaddr.FromCommon(res, r.chain), nil
}

// GetOwner returns the checksummed owner of domain, the zero address when
// the domain is unregistered.
func (r *Resolver) GetOwner(ctx context.Context, domain string) (string, error) {
	d, node, err := r.node(domain)
	if err != nil {
		return "", err
	}
	owner, err := r.callAddress(ctx, registry, r.registry, "owner", node)
	if err != nil {
		return "", fmt.Errorf("failed to get owner of %s: %w", d, err)
	}
	return rskaddr.FromCommon(owner, r.chain), nil
}

// IsAvailable reports whether domain has no owner.
func (r *Resolver) IsAvailable(ctx context.Context, domain string) (bool, error) {
	owner, err := r.GetOwner(ctx, domain)
	if err != nil {
		return false, err
	}
	return strings.ToLower(owner) == rskaddr.ZeroAddress, nil
}

// ReverseResolve looks up the name recorded for address. found is false when
// no resolver or no name is set. Only connectivity failures and malformed
// input are returned as errors.
func (r *Resolver) ReverseResolve(ctx context.Context, address string) (name string, found bool, err error) {
	norm, err := rskaddr.Normalize(address)
	if err != nil {
		return "", false, err
	}
	node, err := NameHash(norm[2:] + network.AddrReverseSuffix)
	if err != nil {
		return "", false, err
	}

	res, err := r.callAddress(ctx, registry, r.registry, "resolver", node)
	if err != nil {
		return notFound(r.log, address, err)
	}
	if res == (common.Address{}) {
		return "", false, nil
	}

	out, err := r.call(ctx, resolver, res, "name", node)
	if err != nil {
		return notFound(r.log, address, err)
	}
	name, _ = out[0].(string)
	if name == "" {
		return "", false, nil
	}
	return name, true, nil
}

func notFound(l log.Logger, address string, err error) (string, bool, error) {
	if errors.Is(err, rskerr.ErrProviderConnection) {
		return "", false, err
	}
	l.Debug("Reverse lookup failed", "address", address, "err", err)
	return "", false, nil
}
