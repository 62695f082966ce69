package txbuilder

import (
	"github.com/ethereum/go-ethereum/log"

	"rsksdk/metrics"
)

// Option configures a Builder.
type Option func(*Builder)

// WithGasPriceEstimator replaces NodeGasPrice as the source of gas prices
// for requests that leave GasPrice unset.
func WithGasPriceEstimator(fn GasPriceEstimatorFn) Option {
	return func(b *Builder) {
		if fn != nil {
			b.gasPrice = fn
		}
	}
}

func WithLogger(l log.Logger) Option {
	return func(b *Builder) {
		if l != nil {
			b.log = l
		}
	}
}

func WithMetrics(r metrics.Recorder) Option {
	return func(b *Builder) {
		if r != nil {
			b.metrics = r
		}
	}
}
