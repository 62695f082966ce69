package provider

import (
	"context"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum"

	"rsksdk/metrics"
	"rsksdk/rskerr"
)

// retry runs call up to maxRetries times while it fails with a transient
// error, sleeping backoff(i) after failed attempt i. Each attempt gets its
// own request timeout. The final error is classified.
func (p *Provider) retry(ctx context.Context, method string, call func(ctx context.Context) error) error {
	var err error
	for attempt := 0; attempt < p.maxRetries; attempt++ {
		if attempt > 0 {
			wait := p.backoff(attempt - 1)
			p.metrics.IncCounter(metrics.RPCRetries, map[string]string{metrics.LabelMethod: method})
			p.log.Debug("Retrying RPC request", "method", method, "attempt", attempt+1, "wait", wait, "err", err)
			if !sleep(ctx, wait) {
				return rskerr.Wrap(rskerr.ErrProviderConnection, ctx.Err(), "cannot connect to RPC (%s)", method)
			}
		}
		err = p.attempt(ctx, method, call)
		if err == nil {
			return nil
		}
		if !isTransient(err) || ctx.Err() != nil {
			break
		}
	}
	return p.fail(method, err)
}

// once runs call a single time with the request timeout.
func (p *Provider) once(ctx context.Context, method string, call func(ctx context.Context) error) error {
	if err := p.attempt(ctx, method, call); err != nil {
		return p.fail(method, err)
	}
	return nil
}

func (p *Provider) attempt(ctx context.Context, method string, call func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, p.requestTimeout)
	defer cancel()

	labels := map[string]string{metrics.LabelMethod: method}
	start := time.Now()
	err := call(ctx)
	p.metrics.IncCounter(metrics.RPCCalls, labels)
	p.metrics.ObserveLatency(metrics.RPCLatency, time.Since(start), labels)
	return err
}

// fail classifies err. ethereum.NotFound is an answer, not a failure, and is
// returned as is.
func (p *Provider) fail(method string, err error) error {
	if errors.Is(err, ethereum.NotFound) {
		return err
	}
	err = classify(method, err)
	kind := "unknown"
	if k := rskerr.KindOf(err); k != nil {
		kind = k.Error()
	}
	p.metrics.IncCounter(metrics.RPCErrors, map[string]string{metrics.LabelMethod: method, metrics.LabelKind: kind})
	p.log.Debug("RPC request failed", "method", method, "err", err)
	return err
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
