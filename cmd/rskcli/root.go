package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"rsksdk/config"
	"rsksdk/metrics"
	"rsksdk/network"
	"rsksdk/provider"
	"rsksdk/wallet"
)

// Keys only read by the CLI. They are never written to a file.
const (
	keyPrivateKey       = "private_key"
	keyMnemonic         = "mnemonic"
	keyKeystorePassword = "keystore_password"
	keyAccountIndex     = "account_index"
	keyKeystore         = "keystore"
)

var errNotChecksum = errors.New("address is not in checksum form")

// app is the state shared by all commands.
type app struct {
	v       *viper.Viper
	cfgFile string

	cfg      *config.Config
	net      network.Config
	log      log.Logger
	recorder metrics.Recorder
	server   *http.Server
}

func newRootCmd() *cobra.Command {
	a := &app{v: config.NewViper(), recorder: metrics.NoopRecorder{}}

	root := &cobra.Command{
		Use:          "rskcli",
		Short:        "Command line client for the Rootstock network",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.teardown()
		},
	}

	f := root.PersistentFlags()
	f.StringVar(&a.cfgFile, "config", "", "config file (YAML)")
	f.String("network", "testnet", "network: mainnet, testnet or custom")
	f.String("rpc-url", "", "RPC endpoint, defaults to the network's public node")
	f.Int64("chain-id", 0, "chain id of a custom network")
	f.Int("max-retries", provider.DefaultMaxRetries, "attempts per read request")
	f.Duration("request-timeout", provider.DefaultRequestTimeout, "timeout of a single RPC request")
	f.String("log-level", "info", "log level: trace, debug, info, warn, error, crit")
	f.Bool("log-json", false, "log as JSON")
	f.String("private-key", "", "hex private key (prefer RSK_PRIVATE_KEY)")
	f.String("mnemonic", "", "BIP-39 mnemonic (prefer RSK_MNEMONIC)")
	f.Uint32("index", 0, "account index for --mnemonic")
	f.String("keystore", "", "V3 keystore file, password in RSK_KEYSTORE_PASSWORD")

	bind := map[string]string{
		config.KeyNetwork:        "network",
		config.KeyRPCURL:         "rpc-url",
		config.KeyChainID:        "chain-id",
		config.KeyMaxRetries:     "max-retries",
		config.KeyRequestTimeout: "request-timeout",
		config.KeyLogLevel:       "log-level",
		config.KeyLogJSON:        "log-json",
		keyPrivateKey:            "private-key",
		keyMnemonic:              "mnemonic",
		keyAccountIndex:          "index",
		keyKeystore:              "keystore",
	}
	for key, flag := range bind {
		// Lookup only fails for a misspelled flag name.
		_ = a.v.BindPFlag(key, f.Lookup(flag))
	}

	root.AddCommand(
		newWalletCmd(a),
		newChecksumCmd(a),
		newNamehashCmd(a),
		newBalanceCmd(a),
		newSendCmd(a),
		newEstimateCmd(a),
		newResolveCmd(a),
		newReverseCmd(a),
		newTokenCmd(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.v, a.cfgFile)
	if err != nil {
		return err
	}
	a.cfg = cfg

	errOut := cmd.ErrOrStderr()
	h, err := cfg.Log.Handler(errOut, isTerminal(errOut))
	if err != nil {
		return err
	}
	a.log = log.NewLogger(h)
	log.SetDefault(a.log)

	if a.net, err = cfg.NetworkConfig(); err != nil {
		return err
	}

	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		rec, err := metrics.NewPrometheusRecorder(reg)
		if err != nil {
			return err
		}
		a.recorder = rec

		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		a.server = &http.Server{Addr: cfg.Metrics.Listen, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.log.Error("Metrics server failed", "addr", cfg.Metrics.Listen, "err", err)
			}
		}()
		a.log.Debug("Serving metrics", "addr", cfg.Metrics.Listen)
	}
	return nil
}

func (a *app) teardown() error {
	if a.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	return a.server.Shutdown(ctx)
}

// dial connects to the configured network.
func (a *app) dial(ctx context.Context) (*provider.Provider, error) {
	opts := append(a.cfg.ProviderOptions(), provider.WithLogger(a.log), provider.WithMetrics(a.recorder))
	p, err := provider.Dial(ctx, a.net, opts...)
	if err != nil {
		return nil, err
	}
	a.log.Debug("Connected", "network", a.net.Name, "rpc", a.net.RPCURL)
	return p, nil
}

// wallet loads the signing key from --private-key, --mnemonic or
// --keystore, in that order.
func (a *app) wallet() (*wallet.Wallet, error) {
	if key := a.v.GetString(keyPrivateKey); key != "" {
		return wallet.FromPrivateKey(key, a.net.ChainID)
	}
	if mnemonic := a.v.GetString(keyMnemonic); mnemonic != "" {
		return wallet.FromMnemonic(mnemonic, "", a.v.GetUint32(keyAccountIndex), a.net.ChainID)
	}
	if path := a.v.GetString(keyKeystore); path != "" {
		blob, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read keystore: %w", err)
		}
		return wallet.FromKeystore(blob, a.v.GetString(keyKeystorePassword), a.net.ChainID)
	}
	return nil, errors.New("no signing key: set RSK_PRIVATE_KEY, RSK_MNEMONIC or RSK_KEYSTORE")
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func printf(cmd *cobra.Command, format string, args ...interface{}) {
	fmt.Fprintf(cmd.OutOrStdout(), format, args...)
}
