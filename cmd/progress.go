package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ryfenlabs/presale-cli/internal/salesapi"
	"github.com/ryfenlabs/presale-cli/internal/ui"
)

var progressRefresh bool

var progressCmd = &cobra.Command{
	Use:   "progress [wallet-name-or-address]",
	Short: "Show a wallet's purchase totals",
	Long: `Show a wallet's aggregated purchases from the sales API: token total
and USD value across all phases.

--refresh asks the backend to recompute instead of serving its cache; the
endpoint is rate-limited and reports when to retry.

Examples:
  presale progress
  presale progress 0xABC... --refresh`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		nameOrAddr := ""
		if len(args) == 1 {
			nameOrAddr = args[0]
		}
		addr, label, err := resolveWallet(nameOrAddr)
		if err != nil {
			return err
		}

		api := salesapi.NewClient(cfg.APIURL)
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		defer cancel()

		spin := ui.NewSpinner("Fetching purchase totals...")
		spin.Start()
		var prog salesapi.UserProgress
		if progressRefresh {
			prog, err = api.RefreshUserProgress(ctx, addr)
		} else {
			prog, err = api.UserProgress(ctx, addr)
		}
		spin.Stop()

		if err != nil {
			var rl *salesapi.RateLimitError
			if errors.As(err, &rl) {
				fmt.Println(ui.Warn(fmt.Sprintf("Refresh rate-limited — retry in %s", rl.RetryAfter)))
				return nil
			}
			return err
		}

		fmt.Println(ui.KeyValueBlock("Purchase Totals", [][2]string{
			{"Wallet", label},
			{"Tokens", fmt.Sprintf("%.2f", prog.TokenSales)},
			{"USD value", fmt.Sprintf("$%.2f", prog.TotalUSDValue)},
			{"Progress", fmt.Sprintf("%.1f%%", prog.ProgressPercentage)},
		}))
		return nil
	},
}

func init() {
	progressCmd.Flags().BoolVar(&progressRefresh, "refresh", false, "force the backend to recompute")
}
