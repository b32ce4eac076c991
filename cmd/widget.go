package cmd

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/ryfenlabs/presale-cli/internal/presale"
	"github.com/ryfenlabs/presale-cli/internal/salesapi"
	"github.com/ryfenlabs/presale-cli/internal/ui"
)

var (
	widgetWallet   string
	widgetReferral string
)

var widgetCmd = &cobra.Command{
	Use:   "widget",
	Short: "Open the live purchase widget",
	Long: `Full-screen terminal widget: live countdown, phase progress,
pay/receive quoting, and one-key purchases.

Without a wallet the widget runs read-only.

Keys: ←→ asset · Tab field · m max · Enter buy · r retry · g refresh · q quit`,
	RunE: func(cmd *cobra.Command, args []string) error {
		reader, err := newReader()
		if err != nil {
			return err
		}
		cache := newCache(reader)
		driver := presale.NewRefreshDriver(cache)
		engine := presale.NewEngine(reader)

		deps := ui.WidgetDeps{
			Cache:  cache,
			Driver: driver,
			Engine: engine,
			Assets: availableAssets(),
		}

		if widgetReferral != "" {
			ref, ok := presale.ParseReferral(widgetReferral)
			if !ok {
				return fmt.Errorf("invalid referral %q", widgetReferral)
			}
			deps.Referral = ref
		}

		mgr := newWalletManager()
		name := widgetWallet
		if name == "" {
			if w := mgr.Default(); w != nil {
				name = w.Name
			}
		}
		if name != "" {
			w, err := mgr.Get(name)
			if err != nil {
				return err
			}
			deps.Wallet = common.HexToAddress(w.Address)
			deps.HasWallet = true
			if signer, err := mgr.Signer(name); err == nil {
				deps.Orchestrator = presale.NewOrchestrator(reader, signer)
			}
		}

		if deps.HasWallet {
			api := salesapi.NewClient(cfg.APIURL)
			owner := deps.Wallet
			driver.OnUserTotals(func(ctx context.Context) error {
				_, err := api.RefreshUserProgress(ctx, owner)
				return err
			})
		}

		return ui.RunWidget(deps)
	},
}

func init() {
	widgetCmd.Flags().StringVar(&widgetWallet, "wallet", "", "wallet name (default: default wallet)")
	widgetCmd.Flags().StringVar(&widgetReferral, "referral", "", "#BuyNow?ref=0x... referral fragment")
}
