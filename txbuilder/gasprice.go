package txbuilder

import (
	"context"
	"fmt"
	"math/big"
)

// Gas price bounds used by PaddedGasPrice.
var (
	MinPaddedGasPrice = big.NewInt(60000000)   // 0.06 gwei, Rootstock's usual minimumGasPrice
	MaxPaddedGasPrice = big.NewInt(5000000000) // 5 gwei
)

// GasPriceSource is what the estimators read from the node.
type GasPriceSource interface {
	GetGasPrice(ctx context.Context) (*big.Int, error)
	GetMinimumGasPrice(ctx context.Context) (*big.Int, error)
}

// GasPriceEstimatorFn picks the gas price of a legacy transaction.
//
// Rootstock has no EIP-1559 fee market: every transaction pays a single gas
// price that must be at least the block's minimumGasPrice.
type GasPriceEstimatorFn func(ctx context.Context, src GasPriceSource) (*big.Int, error)

// NodeGasPrice uses eth_gasPrice unchanged. It is the default.
func NodeGasPrice(ctx context.Context, src GasPriceSource) (*big.Int, error) {
	return src.GetGasPrice(ctx)
}

// AboveMinimumGasPrice uses eth_gasPrice but never goes below the latest
// block's minimumGasPrice.
func AboveMinimumGasPrice(ctx context.Context, src GasPriceSource) (*big.Int, error) {
	gasPrice, err := src.GetGasPrice(ctx)
	if err != nil {
		return nil, err
	}
	minimum, err := src.GetMinimumGasPrice(ctx)
	if err != nil {
		return nil, err
	}
	if minimum != nil && gasPrice.Cmp(minimum) < 0 {
		return new(big.Int).Set(minimum), nil
	}
	return gasPrice, nil
}

// GasPriceWithMinimum wraps estimator and enforces a floor. A nil floor
// disables enforcement.
//
// Usage:
//
//	b := txbuilder.New(p, w, txbuilder.WithGasPriceEstimator(
//	    txbuilder.GasPriceWithMinimum(txbuilder.AboveMinimumGasPrice, big.NewInt(1000000000)),
//	))
func GasPriceWithMinimum(estimator GasPriceEstimatorFn, floor *big.Int) GasPriceEstimatorFn {
	return func(ctx context.Context, src GasPriceSource) (*big.Int, error) {
		gasPrice, err := estimator(ctx, src)
		if err != nil {
			return nil, err
		}
		if floor != nil && gasPrice.Cmp(floor) < 0 {
			return new(big.Int).Set(floor), nil
		}
		return gasPrice, nil
	}
}

// PaddedGasPrice pads the minimumGasPrice by 50% and takes the larger of
// that and eth_gasPrice, clamped to [MinPaddedGasPrice, MaxPaddedGasPrice].
// It suits deployments that must not stall when the minimum moves.
func PaddedGasPrice(ctx context.Context, src GasPriceSource) (*big.Int, error) {
	gasPrice, err := src.GetGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get gas price: %w", err)
	}
	minimum, err := src.GetMinimumGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get minimum gas price: %w", err)
	}
	if minimum == nil || minimum.Sign() == 0 {
		minimum = gasPrice
	}

	padded := new(big.Int).Add(minimum, new(big.Int).Div(minimum, big.NewInt(2)))
	if padded.Cmp(gasPrice) < 0 {
		padded.Set(gasPrice)
	}
	if padded.Cmp(MinPaddedGasPrice) < 0 {
		padded.Set(MinPaddedGasPrice)
	}
	if padded.Cmp(MaxPaddedGasPrice) > 0 {
		padded.Set(MaxPaddedGasPrice)
	}
	return padded, nil
}
