// Package rns resolves RIF Name Service (.rsk) domains.
//
// Domains are identified on chain by their EIP-137 node hash: the root node is
// 32 zero bytes and each label, from the rightmost to the leftmost, is folded
// in as node = keccak256(node || keccak256(label)).
package rns

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"rsksdk/rskerr"
)

// NormalizeName lowercases and trims name and drops a single trailing dot.
// A name that is empty after that, such as ".", is the root. Any other name
// must not contain empty labels.
func NormalizeName(name string) (string, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	n = strings.TrimSuffix(n, ".")
	if n == "" {
		return "", nil
	}
	for _, label := range strings.Split(n, ".") {
		if label == "" {
			return "", rskerr.New(rskerr.ErrInvalidDomain, "invalid domain %q: empty label", name)
		}
	}
	return n, nil
}

// LabelHash returns keccak256 of a single label.
func LabelHash(label string) common.Hash {
	return crypto.Keccak256Hash([]byte(label))
}

// NameHash returns the node hash of name after normalization.
func NameHash(name string) (common.Hash, error) {
	n, err := NormalizeName(name)
	if err != nil {
		return common.Hash{}, err
	}

	var node common.Hash
	if n == "" {
		return node, nil
	}
	labels := strings.Split(n, ".")
	for i := len(labels) - 1; i >= 0; i-- {
		lh := LabelHash(labels[i])
		node = crypto.Keccak256Hash(node[:], lh[:])
	}
	return node, nil
}
