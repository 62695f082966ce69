package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/spf13/cobra"

	"rsksdk/network"
	"rsksdk/wallet"
)

func newWalletCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wallet",
		Short: "Create and inspect wallets",
	}
	cmd.AddCommand(newWalletNewCmd(a), newWalletAddressCmd(a), newWalletSignCmd(a))
	return cmd
}

func newWalletNewCmd(a *app) *cobra.Command {
	var (
		withMnemonic bool
		out          string
		light        bool
	)
	cmd := &cobra.Command{
		Use:   "new",
		Short: "Generate a new wallet",
		Long: `Generate a new wallet.

With --mnemonic a BIP-39 phrase is generated and the first account of the
network's derivation path is used. With --out the key is written to an
encrypted V3 keystore (password from RSK_KEYSTORE_PASSWORD) and never printed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				w        *wallet.Wallet
				mnemonic string
				err      error
			)
			if withMnemonic {
				if mnemonic, err = wallet.NewMnemonic(); err != nil {
					return err
				}
				w, err = wallet.FromMnemonic(mnemonic, "", 0, a.net.ChainID)
			} else {
				w, err = wallet.New(a.net.ChainID)
			}
			if err != nil {
				return err
			}

			printf(cmd, "Address: %s\n", w.Address())
			if mnemonic != "" {
				printf(cmd, "Path:    %s/0\n", network.DerivationPath(a.net.ChainID))
			}

			if out != "" {
				password := a.v.GetString(keyKeystorePassword)
				if password == "" {
					return errors.New("RSK_KEYSTORE_PASSWORD is required with --out")
				}
				n, p := keystore.StandardScryptN, keystore.StandardScryptP
				if light {
					n, p = keystore.LightScryptN, keystore.LightScryptP
				}
				blob, err := w.Encrypt(password, n, p)
				if err != nil {
					return err
				}
				if err := os.WriteFile(out, blob, 0o600); err != nil {
					return fmt.Errorf("failed to write keystore: %w", err)
				}
				printf(cmd, "Keystore: %s\n", out)
				if mnemonic != "" {
					printf(cmd, "Mnemonic: %s\n", mnemonic)
				}
				return nil
			}

			if mnemonic != "" {
				printf(cmd, "Mnemonic: %s\n", mnemonic)
			} else {
				printf(cmd, "Private key: %s\n", w.PrivateKeyHex())
			}
			fmt.Fprintln(cmd.ErrOrStderr(), "Store the secret above offline, it is not saved anywhere.")
			return nil
		},
	}
	cmd.Flags().BoolVar(&withMnemonic, "mnemonic", false, "derive the wallet from a new BIP-39 mnemonic")
	cmd.Flags().StringVar(&out, "out", "", "write an encrypted keystore instead of printing the key")
	cmd.Flags().BoolVar(&light, "light-kdf", false, "use light scrypt parameters for the keystore")
	return cmd
}

func newWalletAddressCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "address",
		Short: "Print the address of the configured signing key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := a.wallet()
			if err != nil {
				return err
			}
			printf(cmd, "%s\n", w.Address())
			return nil
		},
	}
}

func newWalletSignCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sign <message>",
		Short: "Sign a message with the EIP-191 personal prefix",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := a.wallet()
			if err != nil {
				return err
			}
			sig, err := w.SignMessage([]byte(args[0]))
			if err != nil {
				return err
			}
			printf(cmd, "%s\n", sig)
			return nil
		},
	}
}
