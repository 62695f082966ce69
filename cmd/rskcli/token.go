package main

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"rsksdk/contract"
	"rsksdk/provider"
	"rsksdk/rskaddr"
	"rsksdk/token"
)

func newTokenCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Query and transfer ERC-20 tokens",
	}
	cmd.AddCommand(newTokenInfoCmd(a), newTokenBalanceCmd(a), newTokenTransferCmd(a))
	return cmd
}

// openToken accepts a well-known symbol or a contract address.
func (a *app) openToken(p *provider.Provider, ref string) (*token.ERC20, error) {
	if _, err := rskaddr.Normalize(ref); err == nil {
		return token.New(p, ref, token.WithLogger(a.log))
	}
	return token.FromSymbol(p, ref, token.WithLogger(a.log))
}

func (a *app) withToken(ctx context.Context, ref string, fn func(*provider.Provider, *token.ERC20) error) error {
	p, err := a.dial(ctx)
	if err != nil {
		return err
	}
	defer p.Close()
	t, err := a.openToken(p, ref)
	if err != nil {
		return err
	}
	return fn(p, t)
}

func newTokenInfoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "info <symbol|address>",
		Short: "Print token metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return a.withToken(ctx, args[0], func(_ *provider.Provider, t *token.ERC20) error {
				name, err := t.Name(ctx)
				if err != nil {
					return err
				}
				symbol, err := t.Symbol(ctx)
				if err != nil {
					return err
				}
				decimals, err := t.Decimals(ctx)
				if err != nil {
					return err
				}
				supply, err := t.TotalSupply(ctx)
				if err != nil {
					return err
				}
				printf(cmd, "Name:         %s\n", name)
				printf(cmd, "Symbol:       %s\n", symbol)
				printf(cmd, "Decimals:     %d\n", decimals)
				printf(cmd, "Total supply: %s\n", supply)
				printf(cmd, "Address:      %s\n", t.Address())
				return nil
			})
		},
	}
}

func newTokenBalanceCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "balance <symbol|address> <owner|domain>",
		Short: "Print a token balance",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return a.withToken(ctx, args[0], func(p *provider.Provider, t *token.ERC20) error {
				owner, err := a.resolveTarget(ctx, p, args[1])
				if err != nil {
					return err
				}
				amount, err := t.BalanceOfHuman(ctx, owner)
				if err != nil {
					return err
				}
				printf(cmd, "%s\n", amount.String())
				return nil
			})
		},
	}
}

func newTokenTransferCmd(a *app) *cobra.Command {
	var (
		noWait bool
		opts   contract.TxOptions
	)
	cmd := &cobra.Command{
		Use:   "transfer <symbol|address> <to|domain> <amount>",
		Short: "Transfer tokens from the configured key",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			amount, err := decimal.NewFromString(args[2])
			if err != nil {
				return err
			}
			p, b, err := a.builder(ctx, "node")
			if err != nil {
				return err
			}
			defer p.Close()

			t, err := a.openToken(p, args[0])
			if err != nil {
				return err
			}
			to, err := a.resolveTarget(ctx, p, args[1])
			if err != nil {
				return err
			}
			raw, err := t.ToBaseUnits(ctx, amount)
			if err != nil {
				return err
			}
			opts.Wait = !noWait
			res, err := t.Transfer(ctx, b, to, raw, opts)
			if err != nil {
				return err
			}
			printf(cmd, "Transaction: %s\n", res.TxHash.Hex())
			if url := a.net.TxURL(res.TxHash.Hex()); url != "" {
				printf(cmd, "Explorer:    %s\n", url)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&noWait, "no-wait", false, "return after broadcasting")
	cmd.Flags().Uint64Var(&opts.GasLimit, "gas-limit", 0, "gas limit, estimated when zero")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 0, "receipt wait timeout")
	return cmd
}
