package main

import (
	"github.com/spf13/cobra"

	"rsksdk/rns"
	"rsksdk/rskaddr"
)

func newChecksumCmd(a *app) *cobra.Command {
	var (
		chainID int64
		verify  bool
	)
	cmd := &cobra.Command{
		Use:   "checksum <address>",
		Short: "Print the checksum form of an address",
		Long: `Print the RSKIP-60 checksum form of an address for the configured network.

--chain-id 0 selects the chain-agnostic EIP-55 form. With --verify the command
reports whether the argument already is in checksum form and fails if not.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			chain := rskaddr.Chain(a.net.ChainID)
			if cmd.Flags().Changed("for-chain") {
				chain = nil
				if chainID != 0 {
					chain = rskaddr.Chain(chainID)
				}
			}

			if verify {
				if !rskaddr.IsChecksum(args[0], chain) {
					return errNotChecksum
				}
				printf(cmd, "valid\n")
				return nil
			}
			sum, err := rskaddr.ToChecksum(args[0], chain)
			if err != nil {
				return err
			}
			printf(cmd, "%s\n", sum)
			return nil
		},
	}
	cmd.Flags().Int64Var(&chainID, "for-chain", 0, "checksum for this chain id instead of the network's, 0 for EIP-55")
	cmd.Flags().BoolVar(&verify, "verify", false, "check the address instead of converting it")
	return cmd
}

func newNamehashCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "namehash <domain>",
		Short: "Print the EIP-137 namehash of a domain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := rns.NameHash(args[0])
			if err != nil {
				return err
			}
			printf(cmd, "%s\n", h.Hex())
			return nil
		},
	}
}
