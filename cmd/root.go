package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/ryfenlabs/presale-cli/internal/chain"
	"github.com/ryfenlabs/presale-cli/internal/config"
	"github.com/ryfenlabs/presale-cli/internal/presale"
	"github.com/ryfenlabs/presale-cli/internal/rpc"
	"github.com/ryfenlabs/presale-cli/internal/salesapi"
	"github.com/ryfenlabs/presale-cli/internal/wallet"
)

// Version is the current release. Overridable via build ldflags:
//
//	go build -ldflags "-X github.com/ryfenlabs/presale-cli/cmd.Version=1.2.3" .
var Version = "1.0.0"

var (
	cfgDir  string
	cfg     *config.Config
	rpcFlag string
	verbose bool
)

// rootCmd is the top-level command.
var rootCmd = &cobra.Command{
	Use:   "presale",
	Short: "RYFN presale terminal",
	Long: `presale — terminal client for the RYFN token presale.

  Live phase status and countdown, ETH/USDT/USDC purchase quotes,
  balance checks, and guided on-chain purchases with automatic
  approval handling and RPC failover.

Configuration comes from the environment (or a .env file):
  PRESALE_RPC_URL, PRESALE_CONTRACT_ADDRESS,
  PRESALE_USDT_ADDRESS, PRESALE_USDC_ADDRESS, PRESALE_API_URL`,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		return nil
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	if envDir := os.Getenv("PRESALE_CONFIG_DIR"); envDir != "" {
		cfgDir = envDir
	}

	rootCmd.PersistentFlags().StringVar(&cfgDir, "config", cfgDir, "config directory (default: ~/.presale-cli)")
	rootCmd.PersistentFlags().StringVar(&rpcFlag, "rpc", "", "RPC endpoint to try first")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(
		statusCmd,
		quoteCmd,
		balanceCmd,
		buyCmd,
		widgetCmd,
		walletCmd,
		rpcCmd,
		connectCmd,
		progressCmd,
	)
}

// configDir resolves the directory holding wallets.json and related state.
func configDir() string {
	if cfgDir != "" {
		return cfgDir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".presale-cli"
	}
	return filepath.Join(home, ".presale-cli")
}

// endpoints merges the --rpc flag ahead of the configured endpoint list.
func endpoints() []string {
	urls := cfg.Endpoints()
	if rpcFlag == "" {
		return urls
	}
	merged := []string{rpcFlag}
	for _, u := range urls {
		if u != rpcFlag {
			merged = append(merged, u)
		}
	}
	return merged
}

// newReader wires the failover transport and the typed contract reader.
func newReader() (*presale.Reader, error) {
	if cfg.ContractAddress == "" {
		return nil, fmt.Errorf("PRESALE_CONTRACT_ADDRESS is not set")
	}
	f, err := rpc.NewFailover(endpoints())
	if err != nil {
		return nil, err
	}
	var usdt, usdc common.Address
	if cfg.USDTAddress != "" {
		usdt = common.HexToAddress(cfg.USDTAddress)
	}
	if cfg.USDCAddress != "" {
		usdc = common.HexToAddress(cfg.USDCAddress)
	}
	return presale.NewReader(f, common.HexToAddress(cfg.ContractAddress), usdt, usdc), nil
}

// newCache builds the refresh cache over the reader, preferring the sales
// API for phase sold totals and falling back to the contract counter.
func newCache(r *presale.Reader) *presale.Cache {
	api := salesapi.NewClient(cfg.APIURL)
	fetchers := presale.ChainFetchers(r, apiSoldTotal(api, r))
	return presale.NewCache(fetchers)
}

// apiSoldTotal queries the sales API for the running phase's sold total,
// falling back to the contract counter when the API is unreachable.
func apiSoldTotal(api *salesapi.Client, r *presale.Reader) func(ctx context.Context) (float64, error) {
	return func(ctx context.Context) (float64, error) {
		phase, err := r.PhaseID(ctx)
		if err != nil {
			return 0, err
		}
		total, err := api.TotalTokensSold(ctx, phase)
		if err == nil {
			return total, nil
		}
		raw, cerr := r.TokensSold(ctx)
		if cerr != nil {
			return 0, fmt.Errorf("sales api: %w", err)
		}
		return chain.UnitsToFloat(raw, 18), nil
	}
}

// newWalletManager opens the wallet store under the config directory.
func newWalletManager() *wallet.Manager {
	store := wallet.NewJSONStore(filepath.Join(configDir(), "wallets.json"))
	return wallet.NewManager(wallet.WithStore(store))
}

// availableAssets lists the purchasable assets given the configured token
// addresses. ETH always works; a stable asset needs its contract address.
func availableAssets() []presale.Asset {
	assets := []presale.Asset{presale.AssetETH}
	if cfg.USDTAddress != "" {
		assets = append(assets, presale.AssetUSDT)
	}
	if cfg.USDCAddress != "" {
		assets = append(assets, presale.AssetUSDC)
	}
	return assets
}
