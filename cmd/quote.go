package cmd

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/ryfenlabs/presale-cli/internal/presale"
	"github.com/ryfenlabs/presale-cli/internal/ui"
)

var (
	quoteAsset  string
	quoteTokens bool
)

var quoteCmd = &cobra.Command{
	Use:   "quote <amount>",
	Short: "Quote a purchase",
	Long: `Convert a payment amount into sale tokens at the live phase price.
ETH quotes ask the contract directly and fall back to the price formula;
stable quotes are pure math on the phase price.

With --tokens the amount is a token count and the payment cost is quoted
instead.

Examples:
  presale quote 0.5                    # 0.5 ETH → tokens
  presale quote 150 --asset USDT       # 150 USDT → tokens
  presale quote 100000 --tokens        # cost of 100000 tokens in ETH`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := strconv.ParseFloat(args[0], 64)
		if err != nil || amount <= 0 {
			return fmt.Errorf("invalid amount %q", args[0])
		}
		asset, err := presale.ParseAsset(quoteAsset)
		if err != nil {
			return err
		}

		reader, err := newReader()
		if err != nil {
			return err
		}
		cache := newCache(reader)
		engine := presale.NewEngine(reader)

		spin := ui.NewSpinner("Fetching prices...")
		spin.Start()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		tokenPrice, priceErr := cache.TokenPriceUSD(ctx, false)
		ethPrice, _ := cache.ETHPriceUSD(ctx, false)
		spin.Stop()

		if priceErr != nil {
			fmt.Println(ui.Warn("live price unavailable, quoting from defaults"))
		}

		pairs := [][2]string{
			{"Token price", "$" + presale.FormatPrice(tokenPrice)},
		}

		if quoteTokens {
			// Amount is a token count; quote its cost.
			var cost, usd string
			if asset.Stable() {
				cost = presale.FormatUSD(presale.TokensToStable(amount, tokenPrice)) + " " + string(asset)
				usd = presale.FormatUSD(amount * tokenPrice)
			} else {
				cost = presale.FormatNative(presale.TokensToNative(amount, tokenPrice, ethPrice)) + " ETH"
				usd = presale.FormatUSD(amount * tokenPrice)
			}
			pairs = append(pairs,
				[2]string{"Tokens", presale.FormatTokens(amount)},
				[2]string{"Cost", cost},
				[2]string{"USD value", "$" + usd},
			)
		} else {
			var tokens float64
			var quoteErr error
			if asset.Stable() {
				tokens = presale.StableToTokens(amount, tokenPrice)
			} else {
				tokens, quoteErr = engine.NativeTokens(ctx, amount, ethPrice, tokenPrice)
				if quoteErr != nil && !errors.Is(quoteErr, presale.ErrFormulaFallback) {
					return quoteErr
				}
			}
			usd := amount
			if !asset.Stable() {
				usd = amount * ethPrice
			}
			pairs = append(pairs,
				[2]string{"Pay", args[0] + " " + string(asset)},
				[2]string{"Receive", presale.FormatTokens(tokens) + " RYFN"},
				[2]string{"USD value", "$" + presale.FormatUSD(usd)},
			)
			if quoteErr != nil {
				defer fmt.Println(ui.Warn(quoteErr.Error()))
			}
		}

		fmt.Println(ui.KeyValueBlock("Quote", pairs))
		return nil
	},
}

var returnsCmd = &cobra.Command{
	Use:   "returns <invest-usd> <future-price>",
	Short: "Project returns at a hypothetical future price",
	Long: `Compute the future worth of a USD investment made at the live phase
price, assuming the token later trades at the given price.

Example:
  presale quote returns 1000 0.05`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		invest, err := strconv.ParseFloat(args[0], 64)
		if err != nil || invest <= 0 {
			return fmt.Errorf("invalid investment %q", args[0])
		}
		future, err := strconv.ParseFloat(args[1], 64)
		if err != nil || future <= 0 {
			return fmt.Errorf("invalid future price %q", args[1])
		}

		reader, err := newReader()
		if err != nil {
			return err
		}
		cache := newCache(reader)

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		tokenPrice, priceErr := cache.TokenPriceUSD(ctx, false)
		if priceErr != nil {
			fmt.Println(ui.Warn("live price unavailable, using default"))
		}

		tokens := presale.StableToTokens(invest, tokenPrice)
		worth := tokens * future
		multiple := 0.0
		if invest > 0 {
			multiple = worth / invest
		}

		fmt.Println(ui.KeyValueBlock("Projected Returns", [][2]string{
			{"Invest", "$" + presale.FormatUSD(invest)},
			{"Entry price", "$" + presale.FormatPrice(tokenPrice)},
			{"Tokens", presale.FormatTokens(tokens)},
			{"Future price", "$" + presale.FormatPrice(future)},
			{"Future worth", "$" + presale.FormatUSD(worth)},
			{"Multiple", fmt.Sprintf("%.2fx", multiple)},
		}))
		return nil
	},
}

func init() {
	quoteCmd.Flags().StringVar(&quoteAsset, "asset", "ETH", "payment asset (ETH, USDT, USDC)")
	quoteCmd.Flags().BoolVar(&quoteTokens, "tokens", false, "treat the amount as a token count")
	quoteCmd.AddCommand(returnsCmd)
}
