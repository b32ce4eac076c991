package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ryfenlabs/presale-cli/internal/rpc"
	"github.com/ryfenlabs/presale-cli/internal/ui"
)

var rpcCmd = &cobra.Command{
	Use:   "rpc",
	Short: "Inspect RPC endpoints",
}

var rpcHealthCmd = &cobra.Command{
	Use:   "health",
	Short: "Probe every configured RPC endpoint",
	Long: `Probe each endpoint in failover order: latency, head block, and
whether the node is healthy (reachable and not lagging the best head).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		urls := endpoints()

		spin := ui.NewSpinner(fmt.Sprintf("Probing %d endpoint(s)...", len(urls)))
		spin.Start()
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		results := rpc.ProbeAll(ctx, urls)
		spin.Stop()

		t := ui.NewTable([]ui.Column{
			{Title: "#", Width: 3},
			{Title: "ENDPOINT", Width: 48},
			{Title: "LATENCY", Width: 10},
			{Title: "BLOCK", Width: 12},
			{Title: "STATUS", Width: 10},
		})
		healthy := 0
		for i, ep := range results {
			status := ui.StyleError.Render("down")
			if ep.Healthy {
				status = ui.StyleSuccess.Render("healthy")
				healthy++
			}
			lat := "—"
			if ep.Latency > 0 {
				lat = ep.Latency.Truncate(time.Millisecond).String()
			}
			blk := "—"
			if ep.BlockNumber > 0 {
				blk = fmt.Sprintf("#%d", ep.BlockNumber)
			}
			t.AddRow(ui.Row{
				fmt.Sprintf("%d", i+1),
				ep.URL,
				lat,
				blk,
				status,
			})
		}
		fmt.Println(t.Render())
		fmt.Println(ui.Meta(fmt.Sprintf("%d/%d endpoint(s) healthy — failover tries them in order", healthy, len(results))))
		return nil
	},
}

func init() {
	rpcCmd.AddCommand(rpcHealthCmd)
}
