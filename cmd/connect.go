package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ryfenlabs/presale-cli/internal/presale"
	"github.com/ryfenlabs/presale-cli/internal/salesapi"
	"github.com/ryfenlabs/presale-cli/internal/ui"
)

var connectReferral string

var connectCmd = &cobra.Command{
	Use:   "connect [wallet-name-or-address]",
	Short: "Register the wallet with the presale backend",
	Long: `Register a wallet connection with the sales API, optionally crediting
a referrer. The backend tracks connections for the referral program.

Examples:
  presale connect
  presale connect trading --referral '#BuyNow?ref=0xABC...'`,
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

		ref := ""
		if connectReferral != "" {
			refAddr, ok := presale.ParseReferral(connectReferral)
			if !ok {
				return fmt.Errorf("invalid referral %q", connectReferral)
			}
			ref = refAddr.Hex()
		}

		api := salesapi.NewClient(cfg.APIURL)
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := api.ConnectWallet(ctx, addr, ref); err != nil {
			return fmt.Errorf("registering wallet: %w", err)
		}

		fmt.Println(ui.Success("Wallet registered: " + label))
		if ref != "" {
			fmt.Println(ui.Meta("  referrer: ") + ui.Addr(ref))
		}
		return nil
	},
}

func init() {
	connectCmd.Flags().StringVar(&connectReferral, "referral", "", "#BuyNow?ref=0x... referral fragment")
}
