package wallet

import (
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/google/uuid"

	"rsksdk/rskerr"
)

// FromKeystore decrypts a V3 keystore JSON document.
func FromKeystore(keyJSON []byte, password string, chainID int64) (*Wallet, error) {
	key, err := keystore.DecryptKey(keyJSON, password)
	if err != nil {
		return nil, rskerr.Wrap(rskerr.ErrKeystoreDecryption, err, "failed to decrypt keystore")
	}
	return newWallet(key.PrivateKey, chainID), nil
}

// Encrypt exports the key as a V3 keystore JSON document. Use
// keystore.StandardScryptN/P for production and keystore.LightScryptN/P for
// tests.
func (w *Wallet) Encrypt(password string, scryptN, scryptP int) ([]byte, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return nil, fmt.Errorf("failed to generate key id: %w", err)
	}
	key := &keystore.Key{
		Id:         id,
		Address:    w.address,
		PrivateKey: w.key,
	}
	out, err := keystore.EncryptKey(key, password, scryptN, scryptP)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt key: %w", err)
	}
	return out, nil
}
