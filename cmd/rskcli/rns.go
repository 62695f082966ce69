package main

import (
	"github.com/spf13/cobra"

	"rsksdk/rns"
)

func newResolveCmd(a *app) *cobra.Command {
	var owner bool
	cmd := &cobra.Command{
		Use:   "resolve <domain>",
		Short: "Resolve an RNS name to an address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			p, err := a.dial(ctx)
			if err != nil {
				return err
			}
			defer p.Close()

			r, err := rns.NewResolver(p, a.net.ChainID, rns.WithLogger(a.log))
			if err != nil {
				return err
			}
			if owner {
				addr, err := r.GetOwner(ctx, args[0])
				if err != nil {
					return err
				}
				printf(cmd, "%s\n", addr)
				return nil
			}
			addr, err := r.Resolve(ctx, args[0])
			if err != nil {
				return err
			}
			printf(cmd, "%s\n", addr)
			return nil
		},
	}
	cmd.Flags().BoolVar(&owner, "owner", false, "print the registry owner instead of the address record")
	return cmd
}

func newReverseCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reverse <address>",
		Short: "Look up the RNS name of an address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			p, err := a.dial(ctx)
			if err != nil {
				return err
			}
			defer p.Close()

			r, err := rns.NewResolver(p, a.net.ChainID, rns.WithLogger(a.log))
			if err != nil {
				return err
			}
			name, found, err := r.ReverseResolve(ctx, args[0])
			if err != nil {
				return err
			}
			if !found {
				printf(cmd, "no name set\n")
				return nil
			}
			printf(cmd, "%s\n", name)
			return nil
		},
	}
}
