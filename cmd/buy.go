package cmd

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/ryfenlabs/presale-cli/internal/config"
	"github.com/ryfenlabs/presale-cli/internal/presale"
	"github.com/ryfenlabs/presale-cli/internal/salesapi"
	"github.com/ryfenlabs/presale-cli/internal/ui"
	"github.com/ryfenlabs/presale-cli/internal/wallet"
)

var (
	buyAsset    string
	buyWallet   string
	buyReferral string
	buyYes      bool
)

var buyCmd = &cobra.Command{
	Use:   "buy <amount>",
	Short: "Buy sale tokens",
	Long: `Purchase sale tokens with ETH, USDT or USDC.

Stable purchases first grant the presale contract an allowance sized to the
exact amount, then buy. Native purchases keep a small ETH reserve for gas.
The wallet must be a signing wallet (imported with a private key).

Examples:
  presale buy 0.5                          # 0.5 ETH
  presale buy 150 --asset USDT             # 150 USDT
  presale buy 0.5 --referral '#BuyNow?ref=0xABC...'`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := strconv.ParseFloat(args[0], 64)
		if err != nil || amount <= 0 {
			return fmt.Errorf("invalid amount %q", args[0])
		}
		asset, err := presale.ParseAsset(buyAsset)
		if err != nil {
			return err
		}
		if asset.Stable() && asset == presale.AssetUSDT && cfg.USDTAddress == "" {
			return fmt.Errorf("USDT purchases are disabled: PRESALE_USDT_ADDRESS is not set")
		}
		if asset.Stable() && asset == presale.AssetUSDC && cfg.USDCAddress == "" {
			return fmt.Errorf("USDC purchases are disabled: PRESALE_USDC_ADDRESS is not set")
		}

		mgr := newWalletManager()
		name := buyWallet
		if name == "" {
			if w := mgr.Default(); w != nil {
				name = w.Name
			} else {
				name, err = pickSigningWallet(mgr)
				if err != nil {
					return err
				}
				if name == "" {
					fmt.Println(ui.Meta("Cancelled."))
					return nil
				}
			}
		}
		signer, err := mgr.Signer(name)
		if err != nil {
			return err
		}

		referral := common.Address{}
		if buyReferral != "" {
			ref, ok := presale.ParseReferral(buyReferral)
			if !ok && common.IsHexAddress(buyReferral) {
				ref, ok = common.HexToAddress(buyReferral), true
			}
			if !ok {
				return fmt.Errorf("invalid referral %q", buyReferral)
			}
			referral = ref
		}

		reader, err := newReader()
		if err != nil {
			return err
		}
		cache := newCache(reader)
		engine := presale.NewEngine(reader)

		spin := ui.NewSpinner("Preparing purchase...")
		spin.Start()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		tokenPrice, _ := cache.TokenPriceUSD(ctx, false)
		ethPrice, _ := cache.ETHPriceUSD(ctx, false)
		balance := cache.Balance(ctx, asset, signer.Address(), false)

		var tokens float64
		if asset.Stable() {
			tokens = presale.StableToTokens(amount, tokenPrice)
		} else {
			tokens, _ = engine.NativeTokens(ctx, amount, ethPrice, tokenPrice)
		}
		spin.Stop()

		balStr := "unknown"
		if balance.Known {
			balStr = fmt.Sprintf("%.4f %s", balance.Amount, asset)
		}
		pairs := [][2]string{
			{"Wallet", name + " (" + ui.TruncateAddr(signer.Address().Hex()) + ")"},
			{"Pay", args[0] + " " + string(asset)},
			{"Receive", "≈ " + presale.FormatTokens(tokens) + " " + config.SaleTokenSymbol},
			{"Balance", balStr},
		}
		if referral != (common.Address{}) {
			pairs = append(pairs, [2]string{"Referral", ui.TruncateAddr(referral.Hex())})
		}
		fmt.Println(ui.KeyValueBlock("Purchase Preview", pairs))

		if !buyYes && !ui.Confirm("Submit this purchase?") {
			fmt.Println(ui.Meta("Cancelled."))
			return nil
		}

		orch := presale.NewOrchestrator(reader, signer)
		confirmed := make(chan string, 1)
		orch.OnConfirmed(func(a presale.Asset, hash string) {
			confirmed <- hash
		})

		spin = ui.NewSpinner("Submitting purchase (this can take a minute)...")
		spin.Start()
		err = orch.Buy(context.Background(), asset, amount, balance, referral)
		spin.Stop()

		if err != nil {
			status := orch.Status()
			fmt.Println(ui.Err(describeBuyError(err)))
			if status.TxHash != "" {
				fmt.Println(ui.Meta("  tx: ") + ui.Addr(status.TxHash))
				fmt.Println(ui.Hint(config.ExplorerTxURL + status.TxHash))
			}
			if status.CanRetry {
				fmt.Println(ui.Hint("This failure is retryable — run the same command again."))
			}
			return fmt.Errorf("purchase failed")
		}

		hash := <-confirmed
		fmt.Println(ui.Success("Purchase confirmed"))
		fmt.Println(ui.Meta("  tx: ") + ui.Addr(hash))
		fmt.Println(ui.Hint(config.ExplorerTxURL + hash))

		// Nudge the backend to recompute this wallet's USD totals. Failure
		// here never fails the purchase.
		api := salesapi.NewClient(cfg.APIURL)
		refreshCtx, refreshCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer refreshCancel()
		if _, err := api.RefreshUserProgress(refreshCtx, signer.Address()); err != nil {
			var rl *salesapi.RateLimitError
			if errors.As(err, &rl) {
				fmt.Println(ui.Meta(fmt.Sprintf("  progress refresh rate-limited, retry in %s", rl.RetryAfter)))
			}
		}
		return nil
	},
}

// pickSigningWallet offers an interactive choice between the stored signing
// wallets. Returns "" when the user cancels.
func pickSigningWallet(mgr *wallet.Manager) (string, error) {
	var items []ui.PickerItem
	for _, w := range mgr.List() {
		if w.Type != wallet.TypeSigning {
			continue
		}
		items = append(items, ui.PickerItem{
			Label:    w.Name,
			SubLabel: ui.TruncateAddr(w.Address),
			Value:    w.Name,
		})
	}
	if len(items) == 0 {
		return "", fmt.Errorf("no signing wallet — import one with: presale wallet import myWallet --key 0x...")
	}
	if len(items) == 1 {
		return items[0].Value, nil
	}
	return ui.PickItem("Select a wallet", items)
}

// describeBuyError turns the orchestrator's error taxonomy into a
// user-facing message.
func describeBuyError(err error) string {
	switch {
	case errors.Is(err, presale.ErrUserRejected):
		return "Signature request rejected"
	case errors.Is(err, presale.ErrAllowance):
		return "Token approval failed"
	case errors.Is(err, presale.ErrGasEstimation):
		return "Gas estimation failed — the contract may be rejecting this purchase"
	case errors.Is(err, presale.ErrTimeout):
		return "Not confirmed within the time limit — the transaction may still land"
	case errors.Is(err, presale.ErrConnection):
		return "No reachable RPC endpoint"
	case errors.Is(err, presale.ErrValidation):
		return "Invalid purchase: " + err.Error()
	default:
		return err.Error()
	}
}

func init() {
	buyCmd.Flags().StringVar(&buyAsset, "asset", "ETH", "payment asset (ETH, USDT, USDC)")
	buyCmd.Flags().StringVar(&buyWallet, "wallet", "", "signing wallet name (default: default wallet)")
	buyCmd.Flags().StringVar(&buyReferral, "referral", "", "referral address or #BuyNow?ref=0x... fragment")
	buyCmd.Flags().BoolVarP(&buyYes, "yes", "y", false, "skip the confirmation prompt")
}
