// check-endpoints: pings every fallback RPC endpoint in parallel and prints
// a latency/head-block summary. Useful when reordering the fallback list.
//
// Run from the module root:
//
//	go run ./scripts/check-endpoints
package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/ryfenlabs/presale-cli/internal/chain"
	"github.com/ryfenlabs/presale-cli/internal/config"
)

const rpcTimeout = 12 * time.Second

type result struct {
	url     string
	latency time.Duration
	block   uint64
	err     string
}

func main() {
	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results []result
	)

	for _, url := range config.FallbackRPCURLs {
		wg.Add(1)
		go func(url string) {
			defer wg.Done()

			ctx, cancel := context.WithTimeout(context.Background(), rpcTimeout)
			defer cancel()

			client := chain.NewEVMClient(url)
			latency, block, err := client.Ping(ctx)

			r := result{url: url, latency: latency, block: block}
			if err != nil {
				r.err = err.Error()
			}

			mu.Lock()
			results = append(results, r)
			mu.Unlock()
		}(url)
	}
	wg.Wait()

	sort.Slice(results, func(i, j int) bool {
		if (results[i].err == "") != (results[j].err == "") {
			return results[i].err == ""
		}
		return results[i].latency < results[j].latency
	})

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ENDPOINT\tLATENCY\tBLOCK\tERROR")
	for _, r := range results {
		lat := "—"
		if r.err == "" {
			lat = r.latency.Truncate(time.Millisecond).String()
		}
		blk := "—"
		if r.block > 0 {
			blk = fmt.Sprintf("#%d", r.block)
		}
		errStr := r.err
		if len(errStr) > 60 {
			errStr = errStr[:60] + "…"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.url, lat, blk, errStr)
	}
	w.Flush() //nolint:errcheck
}
