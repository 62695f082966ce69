package txbuilder

import (
	"context"
	"errors"
	"math/big"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rsksdk/ethclient"
	"rsksdk/provider"
	"rsksdk/rskerr"
	"rsksdk/wallet"
)

const (
	testKey     = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	testChainID = int64(31)
	recipient   = "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed"
)

// mockBackend records what the builder asks of the provider.
type mockBackend struct {
	mu sync.Mutex

	balance  *big.Int
	nonce    uint64
	gasPrice *big.Int
	minimum  *big.Int
	gas      uint64

	estimateErr error
	waitErr     error
	receipt     *ethclient.Receipt
	nodeHash    common.Hash

	estimates []ethereum.CallMsg
	sent      [][]byte
	waits     int
	nonceReqs int
	priceReqs int
}

func newMockBackend() *mockBackend {
	return &mockBackend{
		balance:  new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil),
		nonce:    5,
		gasPrice: big.NewInt(60000000),
		minimum:  big.NewInt(59240000),
		gas:      50000,
		nodeHash: common.HexToHash("0x1234"),
	}
}

func (m *mockBackend) ChainID() int64 { return testChainID }

func (m *mockBackend) GetGasPrice(ctx context.Context) (*big.Int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.priceReqs++
	return m.gasPrice, nil
}

func (m *mockBackend) GetMinimumGasPrice(ctx context.Context) (*big.Int, error) {
	return m.minimum, nil
}

func (m *mockBackend) GetBalance(ctx context.Context, account common.Address, block *big.Int) (*big.Int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balance, nil
}

func (m *mockBackend) GetTransactionCount(ctx context.Context, account common.Address, block *big.Int) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nonceReqs++
	return m.nonce, nil
}

func (m *mockBackend) setNonce(n uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nonce = n
}

func (m *mockBackend) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.estimates = append(m.estimates, msg)
	if m.estimateErr != nil {
		return 0, m.estimateErr
	}
	return m.gas, nil
}

func (m *mockBackend) SendRawTransaction(ctx context.Context, raw []byte) (common.Hash, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, raw)
	return m.nodeHash, nil
}

func (m *mockBackend) WaitForTransactionReceipt(ctx context.Context, hash common.Hash, timeout time.Duration) (*ethclient.Receipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.waits++
	if m.waitErr != nil {
		return nil, m.waitErr
	}
	return m.receipt, nil
}

// countingRecorder counts metric events by name.
type countingRecorder struct {
	mu     sync.Mutex
	counts map[string]int
}

func (r *countingRecorder) IncCounter(name string, labels map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.counts == nil {
		r.counts = map[string]int{}
	}
	r.counts[name]++
}

func (r *countingRecorder) ObserveLatency(string, time.Duration, map[string]string) {}

func (r *countingRecorder) count(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[name]
}

func newTestBuilder(t *testing.T, m *mockBackend, opts ...Option) (*Builder, *wallet.Wallet) {
	t.Helper()
	w, err := wallet.FromPrivateKey(testKey, testChainID)
	require.NoError(t, err)
	return New(m, w, opts...), w
}

func decodeSent(t *testing.T, raw []byte) (*types.Transaction, common.Address) {
	t.Helper()
	tx := new(types.Transaction)
	require.NoError(t, tx.UnmarshalBinary(raw))
	from, err := types.Sender(types.NewEIP155Signer(big.NewInt(testChainID)), tx)
	require.NoError(t, err)
	return tx, from
}

func u64(n uint64) *uint64 { return &n }

func TestBuildTransactionFillsDefaults(t *testing.T) {
	m := newMockBackend()
	b, w := newTestBuilder(t, m)

	intent, err := b.BuildTransaction(context.Background(), Request{To: recipient, Value: big.NewInt(1000)})
	require.NoError(t, err)

	assert.Equal(t, "0x5aAeb6053F3e94c9b9A09F33669435E7EF1BEaEd", intent.To)
	assert.Equal(t, w.Address(), intent.From)
	assert.Equal(t, "0x", intent.Data)
	assert.Equal(t, uint64(5), intent.Nonce)
	assert.Equal(t, int64(60000000), intent.GasPrice.Int64())
	assert.Equal(t, uint64(50000), intent.Gas)
	assert.Equal(t, testChainID, intent.ChainID)

	require.Len(t, m.estimates, 1)
	msg := m.estimates[0]
	assert.Equal(t, w.CommonAddress(), msg.From)
	assert.Equal(t, common.HexToAddress(recipient), *msg.To)
	assert.Equal(t, int64(1000), msg.Value.Int64())
	assert.Equal(t, int64(60000000), msg.GasPrice.Int64())
}

func TestBuildTransactionExplicitFields(t *testing.T) {
	m := newMockBackend()
	b, _ := newTestBuilder(t, m)

	intent, err := b.BuildTransaction(context.Background(), Request{
		To:       recipient,
		Data:     []byte{0xa9, 0x05, 0x9c, 0xbb},
		GasLimit: 90000,
		GasPrice: big.NewInt(70000000),
		Nonce:    u64(42),
	})
	require.NoError(t, err)

	assert.Equal(t, "0xa9059cbb", intent.Data)
	assert.Equal(t, uint64(42), intent.Nonce)
	assert.Equal(t, uint64(90000), intent.Gas)
	assert.Equal(t, int64(70000000), intent.GasPrice.Int64())
	assert.Equal(t, 0, intent.Value.Sign())
	assert.Empty(t, m.estimates)
	assert.Zero(t, m.nonceReqs)
	assert.Zero(t, m.priceReqs)
}

func TestBuildTransactionRejects(t *testing.T) {
	m := newMockBackend()
	b, _ := newTestBuilder(t, m)
	ctx := context.Background()

	_, err := b.BuildTransaction(ctx, Request{To: "0x1234"})
	assert.ErrorIs(t, err, rskerr.ErrInvalidAddress)

	_, err = b.BuildTransaction(ctx, Request{To: recipient, Value: big.NewInt(-1)})
	assert.ErrorIs(t, err, rskerr.ErrTransaction)
}

func TestBuildTransactionEstimateFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"revert", rskerr.New(rskerr.ErrGasEstimation, "gas estimation failed: not owner")},
		{"node error", &rskerr.RPCError{Code: -32000, Message: "out of gas"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newMockBackend()
			m.estimateErr = tt.err
			b, _ := newTestBuilder(t, m)

			_, err := b.BuildTransaction(context.Background(), Request{To: recipient})
			assert.ErrorIs(t, err, rskerr.ErrGasEstimation)
			assert.ErrorIs(t, err, rskerr.ErrTransaction)
		})
	}
}

func TestBuildTransactionEstimateConnectionFailure(t *testing.T) {
	m := newMockBackend()
	m.estimateErr = rskerr.New(rskerr.ErrProviderConnection, "cannot connect to RPC")
	b, _ := newTestBuilder(t, m)

	_, err := b.BuildTransaction(context.Background(), Request{To: recipient})
	assert.ErrorIs(t, err, rskerr.ErrProviderConnection)
	assert.NotErrorIs(t, err, rskerr.ErrGasEstimation)
}

func TestNonceSequencer(t *testing.T) {
	m := newMockBackend()
	b, _ := newTestBuilder(t, m)
	ctx := context.Background()

	next := func() uint64 {
		n, err := b.nextNonce(ctx)
		require.NoError(t, err)
		return n
	}

	assert.Equal(t, uint64(5), next())
	assert.Equal(t, uint64(6), next())
	assert.Equal(t, uint64(7), next())

	// The network caught up.
	m.setNonce(8)
	assert.Equal(t, uint64(8), next())
	assert.Equal(t, uint64(9), next())

	b.ResetNonce()
	assert.Equal(t, uint64(8), next())
}

func TestFailedBuildLeavesNonceGap(t *testing.T) {
	m := newMockBackend()
	b, _ := newTestBuilder(t, m)
	ctx := context.Background()

	m.estimateErr = &rskerr.RPCError{Code: -32000, Message: "out of gas"}
	_, err := b.BuildTransaction(ctx, Request{To: recipient})
	require.ErrorIs(t, err, rskerr.ErrGasEstimation)

	m.mu.Lock()
	m.estimateErr = nil
	m.mu.Unlock()
	intent, err := b.BuildTransaction(ctx, Request{To: recipient})
	require.NoError(t, err)
	assert.Equal(t, uint64(6), intent.Nonce)

	b.ResetNonce()
	intent, err = b.BuildTransaction(ctx, Request{To: recipient})
	require.NoError(t, err)
	assert.Equal(t, uint64(5), intent.Nonce)
}

func TestNonceSequencerFirstBaseZero(t *testing.T) {
	m := newMockBackend()
	m.nonce = 0
	b, _ := newTestBuilder(t, m)

	first, err := b.nextNonce(context.Background())
	require.NoError(t, err)
	second, err := b.nextNonce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(0), first)
	assert.Equal(t, uint64(1), second)
}

func TestNonceSequencerConcurrent(t *testing.T) {
	m := newMockBackend()
	b, _ := newTestBuilder(t, m)

	const workers = 20
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		nonces []uint64
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := b.nextNonce(context.Background())
			if err != nil {
				t.Error(err)
				return
			}
			mu.Lock()
			nonces = append(nonces, n)
			mu.Unlock()
		}()
	}
	wg.Wait()

	sort.Slice(nonces, func(i, j int) bool { return nonces[i] < nonces[j] })
	require.Len(t, nonces, workers)
	for i, n := range nonces {
		assert.Equal(t, uint64(5+i), n)
	}
}

func TestSignAndSendWaits(t *testing.T) {
	m := newMockBackend()
	m.receipt = &ethclient.Receipt{TxHash: m.nodeHash, Status: ethclient.ReceiptStatusSuccessful, GasUsed: 21000}
	rec := &countingRecorder{}
	b, w := newTestBuilder(t, m, WithMetrics(rec))

	intent, err := b.BuildTransaction(context.Background(), Request{To: recipient, Value: big.NewInt(1000), GasLimit: 21000})
	require.NoError(t, err)
	res, err := b.SignAndSend(context.Background(), intent, true, time.Second)
	require.NoError(t, err)

	assert.Equal(t, m.nodeHash, res.TxHash)
	require.NotNil(t, res.Receipt)
	assert.Equal(t, uint64(21000), res.Receipt.GasUsed)
	assert.Equal(t, 1, m.waits)
	assert.Equal(t, 1, rec.count("tx_sent"))

	require.Len(t, m.sent, 1)
	tx, from := decodeSent(t, m.sent[0])
	assert.Equal(t, w.CommonAddress(), from)
	assert.Equal(t, uint8(types.LegacyTxType), tx.Type())
	assert.Equal(t, uint64(5), tx.Nonce())
	assert.Equal(t, uint64(21000), tx.Gas())
	assert.Equal(t, int64(1000), tx.Value().Int64())
	assert.Equal(t, int64(60000000), tx.GasPrice().Int64())
	assert.Equal(t, testChainID, tx.ChainId().Int64())
	assert.Equal(t, common.HexToAddress(recipient), *tx.To())
}

func TestSignAndSendWithoutWaiting(t *testing.T) {
	m := newMockBackend()
	b, _ := newTestBuilder(t, m)

	intent, err := b.BuildTransaction(context.Background(), Request{To: recipient, GasLimit: 21000})
	require.NoError(t, err)
	res, err := b.SignAndSend(context.Background(), intent, false, 0)
	require.NoError(t, err)

	assert.Equal(t, m.nodeHash, res.TxHash)
	assert.Nil(t, res.Receipt)
	assert.Zero(t, m.waits)
}

func TestSignAndSendInsufficientFunds(t *testing.T) {
	m := newMockBackend()
	rec := &countingRecorder{}
	b, _ := newTestBuilder(t, m, WithMetrics(rec))

	intent := &Intent{
		To:       recipient,
		Value:    big.NewInt(1000),
		Data:     "0x",
		Gas:      21000,
		GasPrice: big.NewInt(10),
		ChainID:  testChainID,
	}
	// Exactly enough is enough.
	m.balance = big.NewInt(1000 + 21000*10)
	_, err := b.SignAndSend(context.Background(), intent, false, 0)
	require.NoError(t, err)

	m.balance = big.NewInt(1000 + 21000*10 - 1)
	_, err = b.SignAndSend(context.Background(), intent, true, 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, rskerr.ErrInsufficientFunds)
	assert.ErrorIs(t, err, rskerr.ErrWallet)
	assert.Len(t, m.sent, 1)
	assert.Zero(t, m.waits)
	assert.Equal(t, 1, rec.count("tx_insufficient_funds"))
}

func TestSignAndSendReverted(t *testing.T) {
	m := newMockBackend()
	failed := &ethclient.Receipt{TxHash: m.nodeHash, Status: ethclient.ReceiptStatusFailed}
	m.waitErr = &provider.RevertedError{TxHash: m.nodeHash, Receipt: failed}
	rec := &countingRecorder{}
	b, _ := newTestBuilder(t, m, WithMetrics(rec))

	intent, err := b.BuildTransaction(context.Background(), Request{To: recipient, GasLimit: 21000})
	require.NoError(t, err)
	_, err = b.SignAndSend(context.Background(), intent, true, time.Second)
	require.Error(t, err)
	assert.ErrorIs(t, err, rskerr.ErrTransactionReverted)

	var reverted *provider.RevertedError
	require.True(t, errors.As(err, &reverted))
	assert.Equal(t, m.nodeHash, reverted.TxHash)
	assert.Equal(t, 1, rec.count("tx_reverted"))
}

func TestTransfer(t *testing.T) {
	m := newMockBackend()
	b, _ := newTestBuilder(t, m)

	res, err := b.Transfer(context.Background(), Request{To: recipient, Value: big.NewInt(7), Data: []byte{1}}, false, 0)
	require.NoError(t, err)
	assert.Equal(t, m.nodeHash, res.TxHash)
	assert.Empty(t, m.estimates)

	tx, _ := decodeSent(t, m.sent[0])
	assert.Equal(t, uint64(21000), tx.Gas())
	assert.Empty(t, tx.Data())
	assert.Equal(t, int64(7), tx.Value().Int64())
}

func TestTransferRBTC(t *testing.T) {
	m := newMockBackend()
	b, _ := newTestBuilder(t, m)

	_, err := b.TransferRBTC(context.Background(), recipient, decimal.RequireFromString("0.5"), false, 0)
	require.NoError(t, err)

	tx, _ := decodeSent(t, m.sent[0])
	assert.Equal(t, "500000000000000000", tx.Value().String())

	_, err = b.TransferRBTC(context.Background(), recipient, decimal.RequireFromString("-1"), false, 0)
	assert.ErrorIs(t, err, rskerr.ErrTransaction)
}

func TestBackToBackTransfersUseDistinctNonces(t *testing.T) {
	m := newMockBackend()
	b, _ := newTestBuilder(t, m)

	for i := 0; i < 3; i++ {
		_, err := b.Transfer(context.Background(), Request{To: recipient, Value: big.NewInt(1)}, false, 0)
		require.NoError(t, err)
	}
	require.Len(t, m.sent, 3)
	for i, raw := range m.sent {
		tx, _ := decodeSent(t, raw)
		assert.Equal(t, uint64(5+i), tx.Nonce())
	}
}

func TestEstimateTotalCost(t *testing.T) {
	m := newMockBackend()
	b, _ := newTestBuilder(t, m)

	est, err := b.EstimateTotalCost(context.Background(), recipient, big.NewInt(1000000000000000), nil)
	require.NoError(t, err)

	assert.Equal(t, uint64(50000), est.Gas)
	assert.Equal(t, int64(60000000), est.GasPrice.Int64())
	assert.Equal(t, "3000000000000", est.GasCost.String())
	assert.Equal(t, "1003000000000000", est.TotalCost.String())
	assert.Equal(t, "0.001003", est.TotalCostRBTC.String())
	assert.Empty(t, m.sent)
	assert.Zero(t, m.nonceReqs)
}

func TestEstimateTotalCostUsesEstimator(t *testing.T) {
	m := newMockBackend()
	m.gasPrice = big.NewInt(1)
	b, _ := newTestBuilder(t, m, WithGasPriceEstimator(AboveMinimumGasPrice))

	est, err := b.EstimateTotalCost(context.Background(), recipient, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(59240000), est.GasPrice.Int64())
	assert.Equal(t, 0, est.Value.Sign())
}

func TestIntentCost(t *testing.T) {
	i := &Intent{Value: big.NewInt(5), Gas: 21000, GasPrice: big.NewInt(2)}
	assert.Equal(t, int64(42005), i.Cost().Int64())
}

func TestSignAndSendRejectsIncompleteIntent(t *testing.T) {
	valid := func() *Intent {
		return &Intent{To: recipient, Value: big.NewInt(1), Data: "0x", Gas: 21000, GasPrice: big.NewInt(60000000), ChainID: 31}
	}
	tests := []struct {
		name   string
		intent *Intent
	}{
		{"nil intent", nil},
		{"nil value", func() *Intent { i := valid(); i.Value = nil; return i }()},
		{"negative value", func() *Intent { i := valid(); i.Value = big.NewInt(-1); return i }()},
		{"nil gas price", func() *Intent { i := valid(); i.GasPrice = nil; return i }()},
		{"negative gas price", func() *Intent { i := valid(); i.GasPrice = big.NewInt(-1); return i }()},
		{"zero gas", func() *Intent { i := valid(); i.Gas = 0; return i }()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newMockBackend()
			b, _ := newTestBuilder(t, m)

			var err error
			assert.NotPanics(t, func() {
				_, err = b.SignAndSend(context.Background(), tt.intent, false, 0)
			})
			assert.ErrorIs(t, err, rskerr.ErrTransaction)
			assert.Empty(t, m.sent)

			// The lock must still be free.
			_, err = b.SignAndSend(context.Background(), valid(), false, 0)
			require.NoError(t, err)
		})
	}
}
