package wallet

import (
	"fmt"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rsksdk/rskerr"
)

const (
	hardhatKey  = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	hardhatAddr = "0xf39fd6e51aad88f6f4ce6ab8827279cfffb92266"
	testPhrase  = "test test test test test test test test test test test junk"
)

func TestFromPrivateKey(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		chainID int64
		want    string
	}{
		{"mainnet prefixed", hardhatKey, 30, "0xF39Fd6E51AAd88f6F4Ce6AB8827279cffFb92266"},
		{"testnet bare", strings.TrimPrefix(hardhatKey, "0x"), 31, "0xf39FD6e51AAd88F6f4cE6Ab8827279CfFFB92266"},
		{"generic chain", hardhatKey, 1, "0xF39Fd6e51aad88F6F4ce6aB8827279cffFb92266"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := FromPrivateKey(tt.key, tt.chainID)
			require.NoError(t, err)
			assert.Equal(t, hardhatKey, w.PrivateKeyHex())
			assert.Equal(t, common.HexToAddress(hardhatAddr), w.CommonAddress())
			assert.Equal(t, tt.chainID, w.ChainID())
			assert.Equal(t, Info{Address: w.Address(), ChainID: tt.chainID}, w.Info())
			if tt.chainID != 1 {
				assert.Equal(t, tt.want, w.Address())
			}
		})
	}
}

func TestFromPrivateKeyRejects(t *testing.T) {
	tests := []struct {
		name string
		key  string
	}{
		{"empty", ""},
		{"not hex", "0xzz0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"},
		{"short", "0xac0974bec39a17e36ba4a6b4d238ff94"},
		{"zero", "0x" + strings.Repeat("0", 64)},
		{"above curve order", "0x" + strings.Repeat("f", 64)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromPrivateKey(tt.key, 30)
			require.Error(t, err)
			assert.ErrorIs(t, err, rskerr.ErrInvalidPrivateKey)
			assert.ErrorIs(t, err, rskerr.ErrWallet)
			if len(tt.key) > 4 {
				assert.NotContains(t, err.Error(), tt.key[2:])
			}
		})
	}

	_, err := FromPrivateKeyBytes([]byte{1, 2, 3}, 30)
	assert.ErrorIs(t, err, rskerr.ErrInvalidPrivateKey)
}

func TestNewWallet(t *testing.T) {
	a, err := New(31)
	require.NoError(t, err)
	b, err := New(31)
	require.NoError(t, err)
	assert.NotEqual(t, a.CommonAddress(), b.CommonAddress())

	back, err := FromPrivateKey(a.PrivateKeyHex(), 31)
	require.NoError(t, err)
	assert.Equal(t, a.Address(), back.Address())
}

func TestStringOmitsKey(t *testing.T) {
	w, err := FromPrivateKey(hardhatKey, 30)
	require.NoError(t, err)

	secret := strings.TrimPrefix(hardhatKey, "0x")
	for _, s := range []string{
		w.String(),
		fmt.Sprint(w),
		fmt.Sprintf("%v", *w),
		fmt.Sprintf("%+v", w),
		fmt.Sprintf("%#v", w),
		fmt.Sprintf("%#v", *w),
	} {
		assert.NotContains(t, s, secret)
		assert.Contains(t, s, w.Address())
	}
}

func TestSignTransaction(t *testing.T) {
	w, err := FromPrivateKey(hardhatKey, 31)
	require.NoError(t, err)

	to := common.HexToAddress("0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed")
	tx := types.NewTx(&types.LegacyTx{
		Nonce:    7,
		GasPrice: big.NewInt(60_000_000),
		Gas:      21000,
		To:       &to,
		Value:    big.NewInt(1000),
	})

	chainID := big.NewInt(31)
	raw, err := w.SignTransaction(tx, chainID)
	require.NoError(t, err)

	var decoded types.Transaction
	require.NoError(t, decoded.UnmarshalBinary(raw))
	assert.Equal(t, uint8(types.LegacyTxType), decoded.Type())
	assert.Zero(t, chainID.Cmp(decoded.ChainId()))
	assert.Equal(t, uint64(7), decoded.Nonce())

	from, err := types.Sender(types.NewEIP155Signer(chainID), &decoded)
	require.NoError(t, err)
	assert.Equal(t, w.CommonAddress(), from)

	// Signing is deterministic.
	again, err := w.SignTransaction(tx, chainID)
	require.NoError(t, err)
	assert.Equal(t, raw, again)

	dyn := types.NewTx(&types.DynamicFeeTx{ChainID: chainID, To: &to})
	_, err = w.SignTransaction(dyn, chainID)
	assert.Error(t, err)
}

func TestSignMessage(t *testing.T) {
	w, err := FromPrivateKey(hardhatKey, 30)
	require.NoError(t, err)

	msg := []byte("hello rootstock")
	sig, err := w.SignMessage(msg)
	require.NoError(t, err)
	require.Len(t, sig, 2+65*2)
	assert.True(t, strings.HasSuffix(sig, "1b") || strings.HasSuffix(sig, "1c"))

	signer, err := RecoverMessageSigner(msg, sig)
	require.NoError(t, err)
	assert.Equal(t, w.CommonAddress(), signer)

	other, err := RecoverMessageSigner([]byte("hello rootstocK"), sig)
	require.NoError(t, err)
	assert.NotEqual(t, w.CommonAddress(), other)

	_, err = RecoverMessageSigner(msg, "0x1234")
	assert.Error(t, err)
}

func TestKeystoreRoundTrip(t *testing.T) {
	w, err := FromPrivateKey(hardhatKey, 31)
	require.NoError(t, err)

	blob, err := w.Encrypt("correct horse", keystore.LightScryptN, keystore.LightScryptP)
	require.NoError(t, err)
	assert.NotContains(t, string(blob), strings.TrimPrefix(hardhatKey, "0x"))

	back, err := FromKeystore(blob, "correct horse", 31)
	require.NoError(t, err)
	assert.Equal(t, w.PrivateKeyHex(), back.PrivateKeyHex())
	assert.Equal(t, w.Address(), back.Address())

	_, err = FromKeystore(blob, "wrong", 31)
	assert.ErrorIs(t, err, rskerr.ErrKeystoreDecryption)
	assert.ErrorIs(t, err, rskerr.ErrWallet)

	_, err = FromKeystore([]byte("{}"), "x", 31)
	assert.ErrorIs(t, err, rskerr.ErrKeystoreDecryption)
}
