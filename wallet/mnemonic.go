package wallet

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/tyler-smith/go-bip32"
	"github.com/tyler-smith/go-bip39"

	"rsksdk/network"
	"rsksdk/rskerr"
)

// MnemonicEntropyBits gives a 24 word phrase.
const MnemonicEntropyBits = 256

// NewMnemonic generates a random BIP-39 phrase.
func NewMnemonic() (string, error) {
	entropy, err := bip39.NewEntropy(MnemonicEntropyBits)
	if err != nil {
		return "", fmt.Errorf("generate entropy: %w", err)
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", fmt.Errorf("generate mnemonic: %w", err)
	}
	return mnemonic, nil
}

// FromMnemonic derives the wallet at index under the chain's account path
// (m/44'/137'/0'/0 on mainnet, m/44'/37310'/0'/0 on testnet).
func FromMnemonic(mnemonic, passphrase string, index uint32, chainID int64) (*Wallet, error) {
	path := network.DerivationPath(chainID) + "/" + strconv.FormatUint(uint64(index), 10)
	return FromMnemonicPath(mnemonic, passphrase, path, chainID)
}

// FromMnemonicPath derives the wallet at an explicit BIP-32 path such as
// "m/44'/60'/0'/0/0".
func FromMnemonicPath(mnemonic, passphrase, path string, chainID int64) (*Wallet, error) {
	indices, err := ParsePath(path)
	if err != nil {
		return nil, err
	}
	seed, err := bip39.NewSeedWithErrorChecking(mnemonic, passphrase)
	if err != nil {
		return nil, rskerr.Wrap(rskerr.ErrInvalidPrivateKey, err, "invalid mnemonic")
	}
	key, err := bip32.NewMasterKey(seed)
	if err != nil {
		return nil, rskerr.Wrap(rskerr.ErrInvalidPrivateKey, err, "create master key")
	}
	for _, idx := range indices {
		key, err = key.NewChildKey(idx)
		if err != nil {
			return nil, rskerr.Wrap(rskerr.ErrInvalidPrivateKey, err, "derive child %d", idx)
		}
	}

	// bip32 Key.Key is 33 bytes with a leading 0x00 for private keys.
	raw := key.Key
	if len(raw) == 33 && raw[0] == 0 {
		raw = raw[1:]
	}
	priv, err := crypto.ToECDSA(raw)
	if err != nil {
		return nil, rskerr.Wrap(rskerr.ErrInvalidPrivateKey, err, "invalid derived key")
	}
	return newWallet(priv, chainID), nil
}

// ParsePath turns "m/44'/137'/0'/0/0" into child indices. Both ' and h mark
// a hardened index.
func ParsePath(path string) ([]uint32, error) {
	parts := strings.Split(strings.TrimSpace(path), "/")
	if len(parts) == 0 || parts[0] != "m" {
		return nil, fmt.Errorf("invalid derivation path %q: must start with m", path)
	}
	out := make([]uint32, 0, len(parts)-1)
	for _, p := range parts[1:] {
		hardened := strings.HasSuffix(p, "'") || strings.HasSuffix(p, "h")
		p = strings.TrimRight(p, "'h")
		n, err := strconv.ParseUint(p, 10, 32)
		if err != nil || n >= uint64(bip32.FirstHardenedChild) {
			return nil, fmt.Errorf("invalid derivation path %q: bad index %q", path, p)
		}
		idx := uint32(n)
		if hardened {
			idx += bip32.FirstHardenedChild
		}
		out = append(out, idx)
	}
	return out, nil
}
