// Package network holds Rootstock chain presets and well-known addresses.
package network

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Chain ids of the public Rootstock networks.
const (
	MainnetChainID int64 = 30
	TestnetChainID int64 = 31
)

const (
	MainnetRPCURL = "https://public-node.rsk.co"
	TestnetRPCURL = "https://public-node.testnet.rsk.co"

	MainnetExplorerURL = "https://rootstock.blockscout.com"
	TestnetExplorerURL = "https://rootstock-testnet.blockscout.com"
)

// DefaultGasLimitTransfer is the gas of a plain value transfer.
const DefaultGasLimitTransfer uint64 = 21000

// AddrReverseSuffix names the reverse-record subtree.
const AddrReverseSuffix = ".addr.reverse"

// BIP-44 account paths. Rootstock mainnet uses its own registered coin type.
var derivationPaths = map[int64]string{
	MainnetChainID: "m/44'/137'/0'/0",
	TestnetChainID: "m/44'/37310'/0'/0",
}

var rnsRegistries = map[int64]string{
	MainnetChainID: "0xcb868aeabd31e2b66f74e9a55cf064abb31a4ad5",
	TestnetChainID: "0x7d284aaac6e925aad802a53c0c69efe3764597b8",
}

// Token is a well-known ERC-20 deployment.
type Token struct {
	Symbol   string
	Address  string
	Decimals uint8
}

var tokens = map[int64]map[string]Token{
	MainnetChainID: {
		"WRBTC": {Symbol: "WRBTC", Address: "0x542FDA317318eBf1d3DeAF76E0B632741a7e677d", Decimals: 18},
		"RIF":   {Symbol: "RIF", Address: "0x2acc95758f8b5f583470ba265eb685a8f45fc9d5", Decimals: 18},
	},
	TestnetChainID: {
		"TRIF": {Symbol: "tRIF", Address: "0x19f64674D8a5b4e652319F5e239EFd3bc969a1FE", Decimals: 18},
	},
}

// DerivationPath returns the BIP-44 account path used for chainID. Chains
// without a registered path fall back to the mainnet path.
func DerivationPath(chainID int64) string {
	if p, ok := derivationPaths[chainID]; ok {
		return p
	}
	return derivationPaths[MainnetChainID]
}

// RNSRegistry returns the default RNS registry address for chainID.
func RNSRegistry(chainID int64) (string, bool) {
	a, ok := rnsRegistries[chainID]
	return a, ok
}

// LookupToken finds a well-known token by symbol (case-insensitive).
func LookupToken(chainID int64, symbol string) (Token, bool) {
	t, ok := tokens[chainID][strings.ToUpper(symbol)]
	return t, ok
}

// Config describes a network the SDK talks to.
type Config struct {
	ChainID     int64  `validate:"required,gt=0"`
	RPCURL      string `validate:"required,url"`
	ExplorerURL string `validate:"omitempty,url"`
	Name        string `validate:"required"`
}

var validate = validator.New()

// Mainnet returns the Rootstock mainnet preset. An empty rpcURL selects the
// public node.
func Mainnet(rpcURL string) Config {
	if rpcURL == "" {
		rpcURL = MainnetRPCURL
	}
	return Config{
		ChainID:     MainnetChainID,
		RPCURL:      rpcURL,
		ExplorerURL: MainnetExplorerURL,
		Name:        "Rootstock Mainnet",
	}
}

// Testnet returns the Rootstock testnet preset.
func Testnet(rpcURL string) Config {
	if rpcURL == "" {
		rpcURL = TestnetRPCURL
	}
	return Config{
		ChainID:     TestnetChainID,
		RPCURL:      rpcURL,
		ExplorerURL: TestnetExplorerURL,
		Name:        "Rootstock Testnet",
	}
}

// Custom returns a config for any other chain, e.g. a local regtest node.
func Custom(chainID int64, rpcURL, name, explorerURL string) (Config, error) {
	if name == "" {
		name = "Custom"
	}
	c := Config{ChainID: chainID, RPCURL: rpcURL, ExplorerURL: explorerURL, Name: name}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// ByName returns the preset for "mainnet" or "testnet".
func ByName(name, rpcURL string) (Config, error) {
	switch strings.ToLower(name) {
	case "mainnet":
		return Mainnet(rpcURL), nil
	case "testnet":
		return Testnet(rpcURL), nil
	}
	return Config{}, fmt.Errorf("unknown network %q", name)
}

// Validate checks the config fields.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid network config: %w", err)
	}
	return nil
}

// TxURL links a transaction in the block explorer, or "" without one.
func (c Config) TxURL(txHash string) string {
	if c.ExplorerURL == "" {
		return ""
	}
	return c.ExplorerURL + "/tx/" + txHash
}

// AddressURL links an address in the block explorer, or "" without one.
func (c Config) AddressURL(address string) string {
	if c.ExplorerURL == "" {
		return ""
	}
	return c.ExplorerURL + "/address/" + address
}
