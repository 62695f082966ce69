// Package rskaddr renders and validates Rootstock addresses.
//
// Rootstock keys the address checksum with the chain id (RSKIP-60, the same
// scheme Ethereum later standardised as EIP-1191). The hash input for chain 30
// is the string "300x" followed by the lowercase hex body, so the same 20
// bytes carry a different capitalization on mainnet, testnet and on chains
// that use the plain EIP-55 form.
//
// Usage:
//
//	sum, err := rskaddr.ToChecksum("0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed", rskaddr.Chain(30))
//	ok := rskaddr.IsChecksum(sum, rskaddr.Chain(30))
package rskaddr

import (
	"encoding/hex"
	"regexp"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"

	"rsksdk/rskerr"
)

// ZeroAddress is the canonical form of the all-zero address.
const ZeroAddress = "0x0000000000000000000000000000000000000000"

var addressRe = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// ChainID optionally keys the checksum. A nil *ChainID selects the generic
// EIP-55 form.
type ChainID struct {
	id int64
}

// Chain returns a checksum key for the given chain id.
func Chain(id int64) *ChainID {
	return &ChainID{id: id}
}

// ID returns the chain id.
func (c *ChainID) ID() int64 { return c.id }

// Normalize returns the lowercase canonical form of address.
func Normalize(address string) (string, error) {
	if !addressRe.MatchString(address) {
		return "", rskerr.New(rskerr.ErrInvalidAddress, "invalid address %q: expected 0x followed by 40 hex characters", address)
	}
	return strings.ToLower(address), nil
}

// ToChecksum renders address in its mixed-case checksum form for chain. The
// input case is ignored.
func ToChecksum(address string, chain *ChainID) (string, error) {
	norm, err := Normalize(address)
	if err != nil {
		return "", err
	}
	body := norm[2:]

	prefix := ""
	if chain != nil {
		prefix = strconv.FormatInt(chain.id, 10) + "0x"
	}
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(prefix + body))
	digest := hex.EncodeToString(h.Sum(nil))

	out := make([]byte, 0, 42)
	out = append(out, '0', 'x')
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c >= 'a' && c <= 'f' && digest[i] >= '8' {
			c -= 'a' - 'A'
		}
		out = append(out, c)
	}
	return string(out), nil
}

// IsChecksum reports whether address is exactly the checksum form for chain.
// Malformed input is reported as false.
func IsChecksum(address string, chain *ChainID) bool {
	sum, err := ToChecksum(address, chain)
	if err != nil {
		return false
	}
	return sum == address
}

// FromCommon renders a go-ethereum address in checksum form for chain.
func FromCommon(addr common.Address, chain *ChainID) string {
	// A common.Address always normalizes.
	sum, _ := ToChecksum(strings.ToLower(addr.Hex()), chain)
	return sum
}

// ToCommon parses address into a go-ethereum address. Any case is accepted.
func ToCommon(address string) (common.Address, error) {
	norm, err := Normalize(address)
	if err != nil {
		return common.Address{}, err
	}
	return common.HexToAddress(norm), nil
}
