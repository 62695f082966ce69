// Package wallet holds a single secp256k1 key and signs with it.
//
// The private key never leaves the Wallet except through PrivateKeyHex and
// Encrypt. String and GoString render only the address and chain id, so a
// Wallet is safe to pass to loggers and fmt verbs.
//
// Usage:
//
//	w, err := wallet.FromPrivateKey(os.Getenv("RSK_PRIVATE_KEY"), network.TestnetChainID)
//	if err != nil {
//	    return err
//	}
//	fmt.Println(w.Address())
package wallet

import (
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"rsksdk/rskaddr"
	"rsksdk/rskerr"
)

// Wallet is a private key bound to a chain id. The chain id selects the
// checksum form of Address.
type Wallet struct {
	key     *ecdsa.PrivateKey
	address common.Address
	chainID int64
}

// Info is a snapshot of the public parts of a wallet.
type Info struct {
	Address string `json:"address"`
	ChainID int64  `json:"chainId"`
}

func newWallet(key *ecdsa.PrivateKey, chainID int64) *Wallet {
	return &Wallet{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
		chainID: chainID,
	}
}

// New generates a wallet with a fresh random key.
func New(chainID int64) (*Wallet, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}
	return newWallet(key, chainID), nil
}

// FromPrivateKey imports a hex encoded key, with or without the 0x prefix.
func FromPrivateKey(hexKey string, chainID int64) (*Wallet, error) {
	s := strings.TrimSpace(hexKey)
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		s = s[2:]
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		// The decoder error quotes the offending character.
		return nil, rskerr.New(rskerr.ErrInvalidPrivateKey, "invalid private key: not a hex string")
	}
	return FromPrivateKeyBytes(raw, chainID)
}

// FromPrivateKeyBytes imports a raw 32 byte key.
func FromPrivateKeyBytes(raw []byte, chainID int64) (*Wallet, error) {
	key, err := crypto.ToECDSA(raw)
	if err != nil {
		return nil, rskerr.Wrap(rskerr.ErrInvalidPrivateKey, err, "invalid private key")
	}
	return newWallet(key, chainID), nil
}

// Address returns the checksummed address for the wallet's chain id.
func (w *Wallet) Address() string {
	return rskaddr.FromCommon(w.address, rskaddr.Chain(w.chainID))
}

// CommonAddress returns the address as a go-ethereum value.
func (w *Wallet) CommonAddress() common.Address {
	return w.address
}

// ChainID returns the chain id the wallet was bound to.
func (w *Wallet) ChainID() int64 {
	return w.chainID
}

// PrivateKeyHex exports the key as 0x-prefixed lowercase hex.
func (w *Wallet) PrivateKeyHex() string {
	return hexutil.Encode(crypto.FromECDSA(w.key))
}

// Info returns the wallet's public snapshot.
func (w *Wallet) Info() Info {
	return Info{Address: w.Address(), ChainID: w.chainID}
}

// SignTx signs a legacy transaction with EIP-155 replay protection for
// chainID.
func (w *Wallet) SignTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	if tx.Type() != types.LegacyTxType {
		return nil, fmt.Errorf("unsupported transaction type %d", tx.Type())
	}
	signed, err := types.SignTx(tx, types.NewEIP155Signer(chainID), w.key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}
	return signed, nil
}

// SignTransaction signs tx and returns its raw RLP encoding, ready for
// eth_sendRawTransaction.
func (w *Wallet) SignTransaction(tx *types.Transaction, chainID *big.Int) ([]byte, error) {
	signed, err := w.SignTx(tx, chainID)
	if err != nil {
		return nil, err
	}
	raw, err := signed.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("failed to encode signed transaction: %w", err)
	}
	return raw, nil
}

// SignMessage signs msg with the personal_sign prefix and returns the 65
// byte signature as hex, with v in {27, 28}.
func (w *Wallet) SignMessage(msg []byte) (string, error) {
	sig, err := crypto.Sign(accounts.TextHash(msg), w.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign message: %w", err)
	}
	sig[crypto.RecoveryIDOffset] += 27
	return hexutil.Encode(sig), nil
}

// RecoverMessageSigner returns the address that produced sig over msg with
// SignMessage.
func RecoverMessageSigner(msg []byte, sig string) (common.Address, error) {
	raw, err := hexutil.Decode(sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("invalid signature: %w", err)
	}
	if len(raw) != crypto.SignatureLength {
		return common.Address{}, fmt.Errorf("invalid signature length %d", len(raw))
	}
	if raw[crypto.RecoveryIDOffset] >= 27 {
		raw[crypto.RecoveryIDOffset] -= 27
	}
	pub, err := crypto.SigToPub(accounts.TextHash(msg), raw)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to recover signer: %w", err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}

func (w Wallet) String() string {
	return fmt.Sprintf("Wallet(address=%s, chainID=%d)", w.Address(), w.chainID)
}

func (w Wallet) GoString() string {
	return w.String()
}
