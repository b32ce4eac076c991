package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/ryfenlabs/presale-cli/internal/chain"
	"github.com/ryfenlabs/presale-cli/internal/ui"
)

var balanceWallet string

var balanceCmd = &cobra.Command{
	Use:   "balance [wallet-name-or-address]",
	Short: "Check payment-asset balances",
	Long: `Show the wallet's balance in every purchasable asset, plus its
allowance toward the presale contract for the stable assets.

Examples:
  presale balance                      # default wallet
  presale balance trading              # named wallet
  presale balance 0xABC...             # raw address`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 1 && balanceWallet == "" {
			balanceWallet = args[0]
		}
		addr, label, err := resolveWallet(balanceWallet)
		if err != nil {
			return err
		}

		reader, err := newReader()
		if err != nil {
			return err
		}
		cache := newCache(reader)

		spin := ui.NewSpinner(fmt.Sprintf("Fetching balances for %s...", ui.TruncateAddr(addr.Hex())))
		spin.Start()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		t := ui.NewTable([]ui.Column{
			{Title: "ASSET", Width: 8},
			{Title: "BALANCE", Width: 16},
			{Title: "ALLOWANCE", Width: 16},
		})
		for _, asset := range availableAssets() {
			bal := cache.Balance(ctx, asset, addr, false)
			balStr := "Error"
			if bal.Known {
				balStr = fmt.Sprintf("%.4f", bal.Amount)
			}

			allowStr := "—"
			if asset.Stable() {
				token := reader.StableAddress(asset)
				if raw, err := reader.Allowance(ctx, token, addr, reader.PresaleAddress()); err == nil {
					decimals, derr := reader.TokenDecimals(ctx, token)
					if derr == nil {
						allowStr = fmt.Sprintf("%.4f", chain.UnitsToFloat(raw, decimals))
					}
				}
			}
			t.AddRow(ui.Row{string(asset), balStr, allowStr})
		}
		spin.Stop()

		fmt.Println(ui.Meta("Wallet: ") + ui.Addr(label))
		fmt.Println(t.Render())
		return nil
	},
}

// resolveWallet maps a wallet name, raw address, or the default wallet to
// an address. The label is what gets displayed (name plus address, or just
// the address).
func resolveWallet(nameOrAddr string) (common.Address, string, error) {
	if common.IsHexAddress(nameOrAddr) {
		addr := common.HexToAddress(nameOrAddr)
		return addr, addr.Hex(), nil
	}

	mgr := newWalletManager()
	if nameOrAddr == "" {
		w := mgr.Default()
		if w == nil {
			return common.Address{}, "", fmt.Errorf(
				"no wallet specified — pass an address or add one:\n  presale wallet import myWallet --key 0x...")
		}
		return common.HexToAddress(w.Address), w.Name + " (" + w.Address + ")", nil
	}

	w, err := mgr.Get(nameOrAddr)
	if err != nil {
		return common.Address{}, "", fmt.Errorf(
			"wallet %q not found — run `presale wallet list`, or pass an address directly", nameOrAddr)
	}
	return common.HexToAddress(w.Address), w.Name + " (" + w.Address + ")", nil
}

func init() {
	balanceCmd.Flags().StringVar(&balanceWallet, "wallet", "", "wallet name or address")
}
