package wallet

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tyler-smith/go-bip32"
	"github.com/tyler-smith/go-bip39"

	"rsksdk/rskerr"
)

func TestFromMnemonicPath(t *testing.T) {
	w, err := FromMnemonicPath(testPhrase, "", "m/44'/60'/0'/0/0", 1)
	require.NoError(t, err)
	assert.Equal(t, hardhatKey, w.PrivateKeyHex())
}

func TestFromMnemonicRSKPaths(t *testing.T) {
	tests := []struct {
		name       string
		passphrase string
		index      uint32
		chainID    int64
		key        string
		address    string
	}{
		{"mainnet 0", "", 0, 30,
			"0x56db8aeb4831576d6b6231941694b0cca6624f3a6a873b4bea2ab9d5f074d945",
			"0x018f141ADB1f6410D393c51de743F17436EEd231"},
		{"mainnet 1", "", 1, 30,
			"0xe8454a9f38afb4961a861674f9e306f7dc7fba8ef454cf8c0828b0ae17d92332", ""},
		{"testnet 0", "", 0, 31,
			"0x227bbd3f99da867c7e0c5ddb1711ee7759ba45646097a22c4412b6019c0108bb",
			"0x0D365f5Da75b496158111650c0d5358F9C7D2070"},
		{"passphrase", "TREZOR", 0, 30,
			"0x1cc8bb23e40304842b5e30a931930fa05e1a9c94a503ee5e24914e7e71eed581", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := FromMnemonic(testPhrase, tt.passphrase, tt.index, tt.chainID)
			require.NoError(t, err)
			assert.Equal(t, tt.key, w.PrivateKeyHex())
			if tt.address != "" {
				assert.Equal(t, tt.address, w.Address())
			}
		})
	}
}

func TestFromMnemonicRejects(t *testing.T) {
	_, err := FromMnemonic("not a valid phrase", "", 0, 30)
	assert.ErrorIs(t, err, rskerr.ErrInvalidPrivateKey)

	_, err = FromMnemonicPath(testPhrase, "", "44'/60'", 30)
	assert.Error(t, err)
}

func TestNewMnemonic(t *testing.T) {
	m, err := NewMnemonic()
	require.NoError(t, err)
	assert.Len(t, strings.Fields(m), 24)
	assert.True(t, bip39.IsMnemonicValid(m))

	w, err := FromMnemonic(m, "", 0, 31)
	require.NoError(t, err)
	assert.NotEmpty(t, w.Address())
}

func TestParsePath(t *testing.T) {
	got, err := ParsePath("m/44'/137'/0'/0/5")
	require.NoError(t, err)
	h := uint32(bip32.FirstHardenedChild)
	assert.Equal(t, []uint32{h + 44, h + 137, h, 0, 5}, got)

	got, err = ParsePath("m/44h/0")
	require.NoError(t, err)
	assert.Equal(t, []uint32{h + 44, 0}, got)

	got, err = ParsePath("m")
	require.NoError(t, err)
	assert.Empty(t, got)

	for _, bad := range []string{"", "x/1", "m/", "m/a", "m/2147483648"} {
		_, err := ParsePath(bad)
		assert.Error(t, err, bad)
	}
}
