package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"

	"rsksdk/provider"
	"rsksdk/rns"
	"rsksdk/rskaddr"
	"rsksdk/txbuilder"
	"rsksdk/units"
)

// gasPriceStrategies maps --gas-price values to estimators.
var gasPriceStrategies = map[string]txbuilder.GasPriceEstimatorFn{
	"node":          txbuilder.NodeGasPrice,
	"above-minimum": txbuilder.AboveMinimumGasPrice,
	"padded":        txbuilder.PaddedGasPrice,
}

// resolveTarget accepts an address or an RNS name.
func (a *app) resolveTarget(ctx context.Context, p *provider.Provider, target string) (string, error) {
	if _, err := rskaddr.Normalize(target); err == nil {
		return target, nil
	}
	r, err := rns.NewResolver(p, a.net.ChainID, rns.WithLogger(a.log))
	if err != nil {
		return "", err
	}
	return r.Resolve(ctx, target)
}

// builder connects and returns a transaction builder for the configured key.
func (a *app) builder(ctx context.Context, strategy string) (*provider.Provider, *txbuilder.Builder, error) {
	estimator, ok := gasPriceStrategies[strategy]
	if !ok {
		return nil, nil, fmt.Errorf("unknown gas price strategy %q", strategy)
	}
	w, err := a.wallet()
	if err != nil {
		return nil, nil, err
	}
	p, err := a.dial(ctx)
	if err != nil {
		return nil, nil, err
	}
	b := txbuilder.New(p, w,
		txbuilder.WithGasPriceEstimator(estimator),
		txbuilder.WithLogger(a.log),
		txbuilder.WithMetrics(a.recorder),
	)
	return p, b, nil
}

func newBalanceCmd(a *app) *cobra.Command {
	var unit string
	cmd := &cobra.Command{
		Use:   "balance <address|domain>",
		Short: "Print the RBTC balance of an address or RNS name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			p, err := a.dial(ctx)
			if err != nil {
				return err
			}
			defer p.Close()

			addr, err := a.resolveTarget(ctx, p, args[0])
			if err != nil {
				return err
			}
			account, err := rskaddr.ToCommon(addr)
			if err != nil {
				return err
			}
			wei, err := p.GetBalance(ctx, account, nil)
			if err != nil {
				return err
			}
			amount, err := units.FromWei(wei, unit)
			if err != nil {
				return err
			}
			printf(cmd, "%s %s\n", amount.String(), strings.ToLower(unit))
			return nil
		},
	}
	cmd.Flags().StringVar(&unit, "unit", "rbtc", "display unit: "+strings.Join(units.Supported(), ", "))
	return cmd
}

func newSendCmd(a *app) *cobra.Command {
	var (
		unit     string
		gasLimit uint64
		strategy string
		noWait   bool
		timeout  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "send <to|domain> <amount>",
		Short: "Send RBTC",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			value, err := units.ParseToWei(args[1], unit)
			if err != nil {
				return err
			}
			p, b, err := a.builder(ctx, strategy)
			if err != nil {
				return err
			}
			defer p.Close()

			to, err := a.resolveTarget(ctx, p, args[0])
			if err != nil {
				return err
			}
			res, err := b.Transfer(ctx, txbuilder.Request{To: to, Value: value, GasLimit: gasLimit}, !noWait, timeout)
			if err != nil {
				return err
			}

			printf(cmd, "Transaction: %s\n", res.TxHash.Hex())
			if url := a.net.TxURL(res.TxHash.Hex()); url != "" {
				printf(cmd, "Explorer:    %s\n", url)
			}
			if res.Receipt != nil {
				printf(cmd, "Block:       %s\n", res.Receipt.BlockNumber)
				printf(cmd, "Gas used:    %d\n", res.Receipt.GasUsed)
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&unit, "unit", "rbtc", "unit of amount")
	f.Uint64Var(&gasLimit, "gas-limit", 0, "gas limit, 21000 when zero")
	f.StringVar(&strategy, "gas-price", "node", "gas price strategy: node, above-minimum or padded")
	f.BoolVar(&noWait, "no-wait", false, "return after broadcasting")
	f.DurationVar(&timeout, "timeout", 0, "receipt wait timeout, the configured default when zero")
	return cmd
}

func newEstimateCmd(a *app) *cobra.Command {
	var (
		unit     string
		data     string
		strategy string
	)
	cmd := &cobra.Command{
		Use:   "estimate <to|domain> <amount>",
		Short: "Estimate the total cost of a transaction without sending it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			value, err := units.ParseToWei(args[1], unit)
			if err != nil {
				return err
			}
			var payload []byte
			if data != "" {
				if payload, err = hexutil.Decode(data); err != nil {
					return err
				}
			}
			p, b, err := a.builder(ctx, strategy)
			if err != nil {
				return err
			}
			defer p.Close()

			to, err := a.resolveTarget(ctx, p, args[0])
			if err != nil {
				return err
			}
			est, err := b.EstimateTotalCost(ctx, to, value, payload)
			if err != nil {
				return err
			}
			printf(cmd, "Gas:        %d\n", est.Gas)
			printf(cmd, "Gas price:  %s wei\n", est.GasPrice)
			printf(cmd, "Gas cost:   %s wei\n", est.GasCost)
			printf(cmd, "Total:      %s rbtc\n", est.TotalCostRBTC.String())
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&unit, "unit", "rbtc", "unit of amount")
	f.StringVar(&data, "data", "", "0x-prefixed call data")
	f.StringVar(&strategy, "gas-price", "node", "gas price strategy: node, above-minimum or padded")
	return cmd
}
