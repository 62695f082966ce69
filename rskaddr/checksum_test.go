package rskaddr

import (
	"encoding/binary"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rsksdk/rskerr"
)

func TestToChecksumVectors(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		chain *ChainID
		want  string
	}{
		{"eip55", "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed", nil, "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"},
		{"mainnet", "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed", Chain(30), "0x5aaEB6053f3e94c9b9a09f33669435E7ef1bEAeD"},
		{"testnet", "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed", Chain(31), "0x5aAeb6053F3e94c9b9A09F33669435E7EF1BEaEd"},
		{"mainnet upper input", "0xFB6916095CA1DF60BB79CE92CE3EA74C37C5D359", Chain(30), "0xFb6916095cA1Df60bb79ce92cE3EA74c37c5d359"},
		{"testnet", "0xfb6916095ca1df60bb79ce92ce3ea74c37c5d359", Chain(31), "0xFb6916095CA1dF60bb79CE92ce3Ea74C37c5D359"},
		{"mainnet", "0xdbf03b407c01e7cd3cbea99509d93f8dddc8c6fb", Chain(30), "0xDBF03B407c01E7CD3cBea99509D93F8Dddc8C6FB"},
		{"testnet", "0xd1220a0cf47c7b9be7a2e6ba89f429762e7b9adb", Chain(31), "0xd1220a0CF47c7B9Be7A2E6Ba89f429762E7b9adB"},
		{"mainnet", "0x27b1fdb04752bbc536007a920d24acb045561c26", Chain(30), "0x27b1FdB04752BBc536007A920D24ACB045561c26"},
		{"zero", ZeroAddress, Chain(30), ZeroAddress},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToChecksum(tt.in, tt.chain)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.True(t, IsChecksum(got, tt.chain))
		})
	}
}

func TestNormalizeRejects(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"empty", ""},
		{"too short", "0x5aaeb6053f3e94c9b9a09f33669435e7ef1bea"},
		{"too long", "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed00"},
		{"missing prefix", "5aaeb6053f3e94c9b9a09f33669435e7ef1beaed"},
		{"upper prefix", "0X5aaeb6053f3e94c9b9a09f33669435e7ef1beaed"},
		{"non hex", "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaeg"},
		{"spaces", " 0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize(tt.in)
			assert.ErrorIs(t, err, rskerr.ErrInvalidAddress)
			assert.ErrorIs(t, err, rskerr.ErrAddress)

			_, err = ToChecksum(tt.in, Chain(30))
			assert.ErrorIs(t, err, rskerr.ErrInvalidAddress)
			assert.False(t, IsChecksum(tt.in, Chain(30)))
		})
	}
}

func TestNormalize(t *testing.T) {
	got, err := Normalize("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")
	require.NoError(t, err)
	assert.Equal(t, "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed", got)
}

func TestIsChecksumCaseSensitive(t *testing.T) {
	lower := "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed"
	assert.False(t, IsChecksum(lower, Chain(30)))
	assert.False(t, IsChecksum(strings.ToUpper(lower[2:]), Chain(30)))
	assert.False(t, IsChecksum("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", Chain(30)))
	assert.True(t, IsChecksum("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", nil))
}

func sampleAddresses(n int) []string {
	out := make([]string, n)
	var buf [8]byte
	for i := range out {
		binary.BigEndian.PutUint64(buf[:], uint64(i))
		out[i] = strings.ToLower(common.BytesToAddress(crypto.Keccak256(buf[:])).Hex())
	}
	return out
}

func TestChecksumIdempotent(t *testing.T) {
	chains := []*ChainID{nil, Chain(30), Chain(31), Chain(33)}
	for _, a := range sampleAddresses(200) {
		for _, c := range chains {
			once, err := ToChecksum(a, c)
			require.NoError(t, err)
			twice, err := ToChecksum(once, c)
			require.NoError(t, err)
			assert.Equal(t, once, twice)
			assert.Equal(t, a, strings.ToLower(once))
		}
	}
}

func TestChecksumChainSpecific(t *testing.T) {
	addrs := sampleAddresses(500)

	differs := 0
	collisions := 0
	for _, a := range addrs {
		main, err := ToChecksum(a, Chain(30))
		require.NoError(t, err)
		test, err := ToChecksum(a, Chain(31))
		require.NoError(t, err)
		if main != test {
			differs++
		}
		// A checksum from one chain can validate on another by chance.
		if IsChecksum(main, Chain(31)) {
			collisions++
		}
	}

	assert.Greater(t, differs, 0)
	assert.Less(t, collisions*100/len(addrs), 5, "collision rate should be low")
}

func TestCommonConversions(t *testing.T) {
	addr := common.HexToAddress("0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed")
	assert.Equal(t, "0x5aaEB6053f3e94c9b9a09f33669435E7ef1bEAeD", FromCommon(addr, Chain(30)))
	assert.Equal(t, addr.Hex(), FromCommon(addr, nil))

	back, err := ToCommon("0x5aaEB6053f3e94c9b9a09f33669435E7ef1bEAeD")
	require.NoError(t, err)
	assert.Equal(t, addr, back)

	_, err = ToCommon("nope")
	assert.ErrorIs(t, err, rskerr.ErrInvalidAddress)
}
