package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ryfenlabs/presale-cli/internal/presale"
	"github.com/ryfenlabs/presale-cli/internal/ui"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current presale phase",
	Long: `Show the running phase, its countdown, token and ETH prices,
tokens sold and progress toward the phase target.

Examples:
  presale status
  presale status --rpc https://rpc.sepolia.org`,
	RunE: func(cmd *cobra.Command, args []string) error {
		reader, err := newReader()
		if err != nil {
			return err
		}
		cache := newCache(reader)
		driver := presale.NewRefreshDriver(cache)

		spin := ui.NewSpinner("Fetching presale state...")
		spin.Start()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		warnings := driver.Mount(ctx)

		phase, _ := cache.PhaseID(ctx, false)
		phaseEnd, _ := cache.PhaseEnd(ctx, false)
		tokenPrice, _ := cache.TokenPriceUSD(ctx, false)
		ethPrice, _ := cache.ETHPriceUSD(ctx, false)
		sold, _ := cache.TokensSold(ctx, false)
		open, openErr := reader.PresaleOpen(ctx)
		spin.Stop()

		saleState := "unknown"
		if openErr == nil {
			saleState = "closed"
			if open {
				saleState = "open"
			}
		}

		countdown := presale.SplitCountdown(phaseEnd, time.Now())
		remaining := "unknown"
		switch {
		case countdown.Expired():
			remaining = "phase ended"
		case countdown.Known:
			remaining = fmt.Sprintf("%dd %02dh %02dm %02ds",
				countdown.Days, countdown.Hours, countdown.Minutes, countdown.Seconds)
		}

		pairs := [][2]string{
			{"Sale", saleState},
			{"Phase", fmt.Sprintf("%d", phase)},
			{"Remaining", remaining},
			{"Token price", "$" + presale.FormatPrice(tokenPrice)},
			{"ETH price", "$" + presale.FormatUSD(ethPrice)},
			{"Tokens sold", presale.FormatTokens(sold)},
		}
		if target, ok := presale.PhaseTarget(phase); ok {
			raised := sold * tokenPrice
			pct := presale.Progress(raised, target)
			pairs = append(pairs, [2]string{
				"Progress", fmt.Sprintf("$%.0f / $%.0f (%.1f%%)", raised, target, pct),
			})
		}
		pairs = append(pairs, [2]string{"Endpoint", reader.ActiveEndpoint()})

		fmt.Println(ui.KeyValueBlock("RYFN Presale", pairs))

		for _, w := range warnings {
			fmt.Println(ui.Warn(w.Error()))
		}
		return nil
	},
}
