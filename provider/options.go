package provider

import (
	"time"

	"github.com/ethereum/go-ethereum/log"

	"rsksdk/metrics"
)

// Option configures a Provider.
type Option func(*Provider)

// WithMaxRetries sets the total number of attempts for retried reads.
// Values below 1 are ignored.
func WithMaxRetries(n int) Option {
	return func(p *Provider) {
		if n >= 1 {
			p.maxRetries = n
		}
	}
}

// WithBackoff replaces the wait between attempts. The argument is the
// zero-based index of the attempt that failed.
func WithBackoff(backoff func(attempt int) time.Duration) Option {
	return func(p *Provider) {
		if backoff != nil {
			p.backoff = backoff
		}
	}
}

// WithRequestTimeout bounds every single RPC request.
func WithRequestTimeout(d time.Duration) Option {
	return func(p *Provider) {
		if d > 0 {
			p.requestTimeout = d
		}
	}
}

// WithPollInterval sets how often WaitForTransactionReceipt polls.
func WithPollInterval(d time.Duration) Option {
	return func(p *Provider) {
		if d > 0 {
			p.pollInterval = d
		}
	}
}

// WithReceiptTimeout sets the default WaitForTransactionReceipt timeout.
func WithReceiptTimeout(d time.Duration) Option {
	return func(p *Provider) {
		if d > 0 {
			p.receiptTimeout = d
		}
	}
}

func WithLogger(l log.Logger) Option {
	return func(p *Provider) {
		if l != nil {
			p.log = l
		}
	}
}

func WithMetrics(r metrics.Recorder) Option {
	return func(p *Provider) {
		if r != nil {
			p.metrics = r
		}
	}
}
